package lab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("lab order not found")
	ErrInvalidTransition = errors.New("invalid lab order transition")
)

// Notifier pushes result-ready events to the ordering physician. Wired to
// the notification service; nil disables pushes.
type Notifier interface {
	ResultReady(ctx context.Context, order *Order)
}

type Service struct {
	repo     Repository
	notifier Notifier
}

func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// CreateOrder places a new lab order.
func (s *Service) CreateOrder(ctx context.Context, o *Order) error {
	if o.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if o.OrderedBy == uuid.Nil {
		return fmt.Errorf("ordered_by is required")
	}
	if o.TestCode == "" || o.TestName == "" {
		return fmt.Errorf("test code and name are required")
	}
	switch o.Priority {
	case "":
		o.Priority = PriorityRoutine
	case PriorityRoutine, PriorityUrgent, PriorityStat:
	default:
		return fmt.Errorf("unknown priority %q", o.Priority)
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

// MarkCollected records specimen collection.
func (s *Service) MarkCollected(ctx context.Context, id uuid.UUID) error {
	_, err := s.advance(ctx, id, StatusCollected)
	return err
}

// MarkInProgress records that the lab started processing.
func (s *Service) MarkInProgress(ctx context.Context, id uuid.UUID) error {
	_, err := s.advance(ctx, id, StatusInProgress)
	return err
}

// Cancel aborts an order that has not been resulted.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	_, err := s.advance(ctx, id, StatusCancelled)
	return err
}

// AttachResults stores the result rows and moves the order to resulted.
// Results attach exactly once, at the in_progress to resulted step.
func (s *Service) AttachResults(ctx context.Context, id uuid.UUID, results []Result) (*Order, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("at least one result is required")
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	if !CanAdvance(o.Status, StatusResulted) {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	for i := range results {
		if results[i].Analyte == "" || results[i].Value == "" {
			return nil, fmt.Errorf("result %d: analyte and value are required", i+1)
		}
		if results[i].ID == uuid.Nil {
			results[i].ID = uuid.New()
		}
		results[i].OrderID = id
		results[i].ResultedAt = now
	}
	if err := s.repo.AddResults(ctx, results); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusResulted); err != nil {
		return nil, err
	}

	o.Status = StatusResulted
	o.Results = results
	if s.notifier != nil {
		s.notifier.ResultReady(ctx, o)
	}
	return o, nil
}

func (s *Service) advance(ctx context.Context, id uuid.UUID, to string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	if !CanAdvance(o.Status, to) {
		return nil, ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return nil, err
	}
	o.Status = to
	return o, nil
}
