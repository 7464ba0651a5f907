package radiology

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("imaging order not found")
	ErrInvalidTransition = errors.New("invalid imaging order transition")
	ErrReportExists      = errors.New("order already has a report")
	ErrReportFinal       = errors.New("report has been finalized")
	ErrNoReport          = errors.New("order has no report")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateOrder places a new imaging order.
func (s *Service) CreateOrder(ctx context.Context, o *Order) error {
	if o.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if o.OrderedBy == uuid.Nil {
		return fmt.Errorf("ordered_by is required")
	}
	if !validModality(o.Modality) {
		return fmt.Errorf("unknown modality %q", o.Modality)
	}
	if o.BodySite == "" {
		return fmt.Errorf("body_site is required")
	}

	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.Status = StatusOrdered
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	return s.repo.Create(ctx, o)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, status string, patientID *uuid.UUID, limit, offset int) ([]*Order, int, error) {
	return s.repo.List(ctx, status, patientID, limit, offset)
}

// Schedule books the study.
func (s *Service) Schedule(ctx context.Context, id uuid.UUID) error {
	return s.advance(ctx, id, StatusScheduled)
}

// Start marks the study in progress.
func (s *Service) Start(ctx context.Context, id uuid.UUID) error {
	return s.advance(ctx, id, StatusInProgress)
}

// Complete closes the study once images are acquired.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	return s.advance(ctx, id, StatusCompleted)
}

// Cancel aborts an order before completion.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.advance(ctx, id, StatusCancelled)
}

func (s *Service) advance(ctx context.Context, id uuid.UUID, to string) error {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if !CanAdvance(o.Status, to) {
		return ErrInvalidTransition
	}
	return s.repo.UpdateStatus(ctx, id, to)
}

// CreateReport attaches a preliminary report to a completed study. One
// report per order.
func (s *Service) CreateReport(ctx context.Context, rep *Report) error {
	if rep.RadiologistID == uuid.Nil {
		return fmt.Errorf("radiologist_id is required")
	}
	if rep.Findings == "" {
		return fmt.Errorf("findings are required")
	}
	o, err := s.repo.GetByID(ctx, rep.OrderID)
	if err != nil {
		return ErrNotFound
	}
	if o.Status != StatusCompleted {
		return ErrInvalidTransition
	}
	if o.Report != nil {
		return ErrReportExists
	}

	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	rep.Status = ReportPreliminary
	now := time.Now().UTC()
	rep.CreatedAt = now
	rep.UpdatedAt = now
	return s.repo.CreateReport(ctx, rep)
}

// AmendReport edits a preliminary report. Final reports are immutable.
func (s *Service) AmendReport(ctx context.Context, orderID uuid.UUID, findings, impression string) (*Report, error) {
	rep, err := s.repo.GetReportByOrder(ctx, orderID)
	if err != nil {
		return nil, ErrNoReport
	}
	if rep.Status == ReportFinal {
		return nil, ErrReportFinal
	}
	if findings != "" {
		rep.Findings = findings
	}
	if impression != "" {
		rep.Impression = impression
	}
	if err := s.repo.UpdateReport(ctx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// FinalizeReport signs off the report. Finalizing is one-way.
func (s *Service) FinalizeReport(ctx context.Context, orderID uuid.UUID) (*Report, error) {
	rep, err := s.repo.GetReportByOrder(ctx, orderID)
	if err != nil {
		return nil, ErrNoReport
	}
	if rep.Status == ReportFinal {
		return nil, ErrReportFinal
	}
	rep.Status = ReportFinal
	if err := s.repo.UpdateReport(ctx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}
