package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("invoice not found")
	ErrInvalidTransition = errors.New("invalid invoice transition")
	ErrOverpayment       = errors.New("payment exceeds outstanding balance")
)

// AuditSink records billing lifecycle events for the compliance trail.
// Reversals, voids, and payment-method corrections always go through it.
type AuditSink interface {
	RecordAction(ctx context.Context, action, resourceType, resourceID string, detail map[string]string) error
}

type Service struct {
	repo  Repository
	audit AuditSink
}

func NewService(repo Repository, audit AuditSink) *Service {
	return &Service{repo: repo, audit: audit}
}

// GenerateInvoiceNumber produces a short human-readable invoice number.
func GenerateInvoiceNumber() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "INV-" + strings.ToUpper(raw[:8])
}

// CreateInvoice opens a draft invoice. Totals are computed from the line
// items, never taken from the caller.
func (s *Service) CreateInvoice(ctx context.Context, inv *Invoice) error {
	if inv.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if len(inv.Items) == 0 {
		return fmt.Errorf("at least one line item is required")
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.Number == "" {
		inv.Number = GenerateInvoiceNumber()
	} else if existing, err := s.repo.GetByNumber(ctx, inv.Number); err == nil && existing != nil {
		return fmt.Errorf("invoice number %s already exists", inv.Number)
	}

	var total int64
	for i := range inv.Items {
		it := &inv.Items[i]
		if it.Description == "" {
			return fmt.Errorf("line item %d: description is required", i+1)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("line item %d: quantity must be positive", i+1)
		}
		if it.UnitPrice < 0 {
			return fmt.Errorf("line item %d: unit price cannot be negative", i+1)
		}
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		it.InvoiceID = inv.ID
		it.Amount = int64(it.Quantity) * it.UnitPrice
		total += it.Amount
	}

	inv.Status = StatusDraft
	inv.Total = total
	inv.AmountPaid = 0
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	return s.repo.Create(ctx, inv)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return inv, nil
}

func (s *Service) List(ctx context.Context, status string, patientID *uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	return s.repo.List(ctx, status, patientID, limit, offset)
}

// Send issues a draft invoice to the patient. Only drafts can be sent.
func (s *Service) Send(ctx context.Context, id uuid.UUID) error {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if inv.Status != StatusDraft {
		return ErrInvalidTransition
	}
	return s.repo.UpdateStatus(ctx, id, StatusSent)
}

// RecordPayment applies a payment and recomputes the invoice status from the
// paid amounts. A fully covered invoice becomes paid; a partial insurance
// payment leaves it pending_insurance, any other partial payment leaves it
// partially_paid.
func (s *Service) RecordPayment(ctx context.Context, invoiceID uuid.UUID, amount int64, method string, reference *string, recordedBy *uuid.UUID) (*Payment, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, ErrNotFound
	}
	if !payable(inv.Status) {
		return nil, ErrInvalidTransition
	}
	if amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("unknown payment method %q", method)
	}
	if amount > inv.Balance() {
		return nil, ErrOverpayment
	}

	p := &Payment{
		ID:         uuid.New(),
		InvoiceID:  invoiceID,
		Amount:     amount,
		Method:     method,
		Reference:  reference,
		RecordedBy: recordedBy,
		RecordedAt: time.Now().UTC(),
	}
	if err := s.repo.AddPayment(ctx, p); err != nil {
		return nil, err
	}

	paid := inv.AmountPaid + amount
	status := StatusPartiallyPaid
	switch {
	case paid >= inv.Total:
		status = StatusPaid
	case method == MethodInsurance:
		status = StatusPendingInsurance
	}
	if err := s.repo.SetAmountPaid(ctx, invoiceID, paid, status); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "payment", invoiceID, map[string]string{
		"amount": fmt.Sprintf("%d", amount),
		"method": method,
		"status": status,
	})
	return p, nil
}

// ChangePaymentMethod corrects the method on a recorded payment. The invoice
// must still be open and the correction is always audit-logged.
func (s *Service) ChangePaymentMethod(ctx context.Context, paymentID uuid.UUID, method string) error {
	if !validMethod(method) {
		return fmt.Errorf("unknown payment method %q", method)
	}
	p, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return ErrNotFound
	}
	inv, err := s.repo.GetByID(ctx, p.InvoiceID)
	if err != nil {
		return ErrNotFound
	}
	if IsTerminal(inv.Status) {
		return ErrInvalidTransition
	}
	if err := s.repo.UpdatePaymentMethod(ctx, paymentID, method); err != nil {
		return err
	}
	s.recordAudit(ctx, "payment_method_change", inv.ID, map[string]string{
		"payment_id": paymentID.String(),
		"from":       p.Method,
		"to":         method,
	})
	return nil
}

// Reverse backs out a settled or partially settled invoice. Reversing an
// already reversed invoice is rejected, not absorbed.
func (s *Service) Reverse(ctx context.Context, id uuid.UUID) error {
	return s.terminate(ctx, id, StatusReversed, "reverse", func(inv *Invoice) bool {
		return inv.AmountPaid > 0
	})
}

// Void discards an issued invoice that collected no money.
func (s *Service) Void(ctx context.Context, id uuid.UUID) error {
	return s.terminate(ctx, id, StatusVoided, "void", func(inv *Invoice) bool {
		return inv.Status == StatusSent && inv.AmountPaid == 0
	})
}

// Cancel abandons a draft before it is sent.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.terminate(ctx, id, StatusCancelled, "cancel", func(inv *Invoice) bool {
		return inv.Status == StatusDraft
	})
}

func (s *Service) terminate(ctx context.Context, id uuid.UUID, target, action string, allowed func(*Invoice) bool) error {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if IsTerminal(inv.Status) || !allowed(inv) {
		return ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, id, target); err != nil {
		return err
	}
	s.recordAudit(ctx, action, id, map[string]string{"from": inv.Status, "to": target})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, invoiceID uuid.UUID, detail map[string]string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.RecordAction(ctx, action, "invoice", invoiceID.String(), detail)
}
