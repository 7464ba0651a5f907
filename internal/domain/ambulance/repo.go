package ambulance

import (
	"context"

	"github.com/google/uuid"
)

type VehicleRepository interface {
	Create(ctx context.Context, v *Vehicle) error
	GetByID(ctx context.Context, id uuid.UUID) (*Vehicle, error)
	Update(ctx context.Context, v *Vehicle) error
	List(ctx context.Context, status string, limit, offset int) ([]*Vehicle, int, error)
	// ClaimAvailable atomically flips an available vehicle to in_use.
	ClaimAvailable(ctx context.Context, id uuid.UUID) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

type RequestRepository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	Update(ctx context.Context, r *Request) error
	List(ctx context.Context, status string, limit, offset int) ([]*Request, int, error)
	AddHistory(ctx context.Context, h *StatusHistory) error
	ListHistory(ctx context.Context, requestID uuid.UUID) ([]StatusHistory, error)
}
