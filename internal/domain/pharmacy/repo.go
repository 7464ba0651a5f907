package pharmacy

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, status string, patientID *uuid.UUID, limit, offset int) ([]*Prescription, int, error)
	AddDispense(ctx context.Context, d *Dispense) error
}
