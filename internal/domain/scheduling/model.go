package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses.
const (
	StatusBooked    = "booked"
	StatusArrived   = "arrived"
	StatusFulfilled = "fulfilled"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// validTransitions holds the allowed status moves. Fulfilled, cancelled,
// and no_show are terminal.
var validTransitions = map[string][]string{
	StatusBooked:  {StatusArrived, StatusFulfilled, StatusCancelled, StatusNoShow},
	StatusArrived: {StatusFulfilled, StatusCancelled},
}

// CanTransition reports whether an appointment may move from one status
// to another.
func CanTransition(from, to string) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Appointment maps to the appointments table.
type Appointment struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	PractitionerID uuid.UUID  `db:"practitioner_id" json:"practitioner_id"`
	LocationID     *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	Status         string     `db:"status" json:"status"`
	Reason         *string    `db:"reason" json:"reason,omitempty"`
	StartTime      time.Time  `db:"start_time" json:"start_time"`
	EndTime        time.Time  `db:"end_time" json:"end_time"`
	Note           *string    `db:"note" json:"note,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Overlaps reports whether two appointments share any time.
func (a *Appointment) Overlaps(other *Appointment) bool {
	return a.StartTime.Before(other.EndTime) && other.StartTime.Before(a.EndTime)
}
