package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, status string, limit, offset int) ([]*Appointment, int, error)
	// ListDay returns appointments overlapping the given calendar day,
	// optionally filtered to one practitioner or one patient.
	ListDay(ctx context.Context, day time.Time, practitionerID, patientID *uuid.UUID) ([]*Appointment, error)
	// ListPractitionerBetween returns non-cancelled appointments for the
	// practitioner that overlap the window. Used for double-booking checks.
	ListPractitionerBetween(ctx context.Context, practitionerID uuid.UUID, start, end time.Time) ([]*Appointment, error)
}
