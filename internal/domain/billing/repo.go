package billing

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for invoices, their line items, and
// their payments.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	SetAmountPaid(ctx context.Context, id uuid.UUID, amountPaid int64, status string) error
	List(ctx context.Context, status string, patientID *uuid.UUID, limit, offset int) ([]*Invoice, int, error)

	AddPayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error)
	UpdatePaymentMethod(ctx context.Context, id uuid.UUID, method string) error
}
