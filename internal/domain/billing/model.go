package billing

import (
	"time"

	"github.com/google/uuid"
)

// Invoice statuses. Reversed, voided, and cancelled are terminal: once an
// invoice reaches one of them no further transition is accepted.
const (
	StatusDraft            = "draft"
	StatusSent             = "sent"
	StatusPaid             = "paid"
	StatusPartiallyPaid    = "partially_paid"
	StatusPendingInsurance = "pending_insurance"
	StatusReversed         = "reversed"
	StatusVoided           = "voided"
	StatusCancelled        = "cancelled"
)

// Payment methods accepted on recorded payments.
const (
	MethodCash      = "cash"
	MethodCard      = "card"
	MethodTransfer  = "transfer"
	MethodInsurance = "insurance"
)

// IsTerminal reports whether the status accepts no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusReversed, StatusVoided, StatusCancelled:
		return true
	}
	return false
}

// payable reports whether payments may be recorded against the status.
func payable(status string) bool {
	switch status {
	case StatusSent, StatusPartiallyPaid, StatusPendingInsurance:
		return true
	}
	return false
}

func validMethod(m string) bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodInsurance:
		return true
	}
	return false
}

// Invoice maps to the invoices table. Line items and payments load from
// their own tables. Monetary amounts are integer minor units.
type Invoice struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	Number     string     `db:"number" json:"number"`
	Status     string     `db:"status" json:"status"`
	Total      int64      `db:"total" json:"total"`
	AmountPaid int64      `db:"amount_paid" json:"amount_paid"`
	Note       *string    `db:"note" json:"note,omitempty"`
	Items      []LineItem `db:"-" json:"items,omitempty"`
	Payments   []Payment  `db:"-" json:"payments,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Balance is the amount still owed on the invoice.
func (inv *Invoice) Balance() int64 { return inv.Total - inv.AmountPaid }

// LineItem maps to the invoice_items table.
type LineItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	InvoiceID   uuid.UUID `db:"invoice_id" json:"invoice_id"`
	Description string    `db:"description" json:"description"`
	Quantity    int       `db:"quantity" json:"quantity"`
	UnitPrice   int64     `db:"unit_price" json:"unit_price"`
	Amount      int64     `db:"amount" json:"amount"`
}

// Payment maps to the invoice_payments table.
type Payment struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	InvoiceID  uuid.UUID  `db:"invoice_id" json:"invoice_id"`
	Amount     int64      `db:"amount" json:"amount"`
	Method     string     `db:"method" json:"method"`
	Reference  *string    `db:"reference" json:"reference,omitempty"`
	RecordedBy *uuid.UUID `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordedAt time.Time  `db:"recorded_at" json:"recorded_at"`
}
