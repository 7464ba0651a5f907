package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("prescription not found")
	ErrNotActive    = errors.New("prescription is not active")
	ErrOverDispense = errors.New("quantity exceeds the amount remaining")
	ErrTerminal     = errors.New("prescription is closed")
)

// AuditSink records dispensing events for the controlled-substance trail.
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

// Prescribe opens a new active prescription.
func (s *Service) Prescribe(ctx context.Context, p *Prescription) error {
	if p.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if p.PrescriberID == uuid.Nil {
		return fmt.Errorf("prescriber_id is required")
	}
	if p.MedicationCode == "" || p.MedicationName == "" {
		return fmt.Errorf("medication code and name are required")
	}
	if p.Dose == "" || p.Frequency == "" {
		return fmt.Errorf("dose and frequency are required")
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if p.Refills < 0 {
		return fmt.Errorf("refills cannot be negative")
	}
	if p.Route == "" {
		p.Route = RouteOral
	}

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Status = StatusActive
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, status string, patientID *uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.List(ctx, status, patientID, limit, offset)
}

// Dispense hands out part of the authorized quantity. The prescription must
// be active and the amount must fit within what remains; exhausting the
// authorization completes the prescription.
func (s *Service) Dispense(ctx context.Context, prescriptionID uuid.UUID, quantity int, dispensedBy *uuid.UUID, note *string) (*Dispense, error) {
	p, err := s.repo.GetByID(ctx, prescriptionID)
	if err != nil {
		return nil, ErrNotFound
	}
	if p.Status != StatusActive {
		return nil, ErrNotActive
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if quantity > p.Remaining() {
		return nil, ErrOverDispense
	}

	d := &Dispense{
		ID:             uuid.New(),
		PrescriptionID: prescriptionID,
		Quantity:       quantity,
		DispensedBy:    dispensedBy,
		Note:           note,
		DispensedAt:    time.Now().UTC(),
	}
	if err := s.repo.AddDispense(ctx, d); err != nil {
		return nil, err
	}

	remaining := p.Remaining() - quantity
	if remaining == 0 {
		if err := s.repo.UpdateStatus(ctx, prescriptionID, StatusCompleted); err != nil {
			return nil, err
		}
	}
	s.recordAudit(ctx, "dispense", prescriptionID, map[string]string{
		"quantity":  fmt.Sprintf("%d", quantity),
		"remaining": fmt.Sprintf("%d", remaining),
	})
	return d, nil
}

// Hold pauses an active prescription.
func (s *Service) Hold(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(ctx, id, StatusActive, StatusOnHold)
}

// Resume reactivates a held prescription.
func (s *Service) Resume(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(ctx, id, StatusOnHold, StatusActive)
}

// Cancel closes a prescription before it is used up.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if p.Status == StatusCompleted || p.Status == StatusCancelled {
		return ErrTerminal
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		return err
	}
	s.recordAudit(ctx, "cancel", id, map[string]string{"from": p.Status})
	return nil
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if p.Status == StatusCompleted || p.Status == StatusCancelled {
		return ErrTerminal
	}
	if p.Status != from {
		return ErrNotActive
	}
	return s.repo.UpdateStatus(ctx, id, to)
}

func (s *Service) recordAudit(ctx context.Context, action string, id uuid.UUID, detail map[string]string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.RecordAction(ctx, action, "prescription", id.String(), detail)
}
