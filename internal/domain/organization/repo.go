package organization

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	Update(ctx context.Context, o *Organization) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, status string, limit, offset int) ([]*Organization, int, error)
}

type LocationRepository interface {
	Create(ctx context.Context, l *Location) error
	GetByID(ctx context.Context, id uuid.UUID) (*Location, error)
	Update(ctx context.Context, l *Location) error
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*Location, error)
}
