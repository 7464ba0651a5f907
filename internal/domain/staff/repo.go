package staff

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	UpdateTwoFactor(ctx context.Context, id uuid.UUID, secret string, enabled bool) error
	List(ctx context.Context, role string, limit, offset int) ([]*User, int, error)
}
