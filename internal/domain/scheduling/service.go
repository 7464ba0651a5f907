package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrInvalidTransition = errors.New("invalid appointment transition")
	ErrDoubleBooked      = errors.New("practitioner already booked for this time")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Book creates a new appointment. The practitioner must be free for the
// whole window.
func (s *Service) Book(ctx context.Context, a *Appointment) error {
	if err := validateWindow(a); err != nil {
		return err
	}
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.PractitionerID == uuid.Nil {
		return fmt.Errorf("practitioner_id is required")
	}
	if err := s.checkConflicts(ctx, a); err != nil {
		return err
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Status = StatusBooked
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	return s.repo.Create(ctx, a)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.List(ctx, status, limit, offset)
}

// Day lists appointments on the given calendar day, optionally narrowed to
// one practitioner or one patient.
func (s *Service) Day(ctx context.Context, day time.Time, practitionerID, patientID *uuid.UUID) ([]*Appointment, error) {
	return s.repo.ListDay(ctx, day, practitionerID, patientID)
}

// Reschedule moves or edits a booked appointment. Appointments that have
// already started their lifecycle keep their recorded times.
func (s *Service) Reschedule(ctx context.Context, a *Appointment) error {
	existing, err := s.repo.GetByID(ctx, a.ID)
	if err != nil {
		return ErrNotFound
	}
	if existing.Status != StatusBooked {
		return ErrInvalidTransition
	}
	if err := validateWindow(a); err != nil {
		return err
	}
	if a.PractitionerID == uuid.Nil {
		a.PractitionerID = existing.PractitionerID
	}
	if err := s.checkConflicts(ctx, a); err != nil {
		return err
	}
	return s.repo.Update(ctx, a)
}

// MarkArrived records that the patient checked in.
func (s *Service) MarkArrived(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, StatusArrived)
}

// MarkFulfilled closes out a completed visit.
func (s *Service) MarkFulfilled(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, StatusFulfilled)
}

// MarkNoShow records a missed appointment.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, StatusNoShow)
}

// Cancel sets the cancelled status. Appointments are never deleted, so the
// history of past bookings stays intact.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to string) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if !CanTransition(a.Status, to) {
		return ErrInvalidTransition
	}
	return s.repo.UpdateStatus(ctx, id, to)
}

func (s *Service) checkConflicts(ctx context.Context, a *Appointment) error {
	others, err := s.repo.ListPractitionerBetween(ctx, a.PractitionerID, a.StartTime, a.EndTime)
	if err != nil {
		return err
	}
	for _, other := range others {
		if other.ID != a.ID && a.Overlaps(other) {
			return ErrDoubleBooked
		}
	}
	return nil
}

func validateWindow(a *Appointment) error {
	if a.StartTime.IsZero() || a.EndTime.IsZero() {
		return fmt.Errorf("start_time and end_time are required")
	}
	if !a.EndTime.After(a.StartTime) {
		return fmt.Errorf("end_time must be after start_time")
	}
	return nil
}
