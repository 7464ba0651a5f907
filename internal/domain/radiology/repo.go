package radiology

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, status string, patientID *uuid.UUID, limit, offset int) ([]*Order, int, error)

	CreateReport(ctx context.Context, rep *Report) error
	GetReportByOrder(ctx context.Context, orderID uuid.UUID) (*Report, error)
	UpdateReport(ctx context.Context, rep *Report) error
}
