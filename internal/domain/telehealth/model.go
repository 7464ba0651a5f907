package telehealth

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session statuses. Completed and cancelled are terminal.
const (
	StatusScheduled  = "scheduled"
	StatusWaiting    = "waiting"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

var validTransitions = map[string][]string{
	StatusScheduled:  {StatusWaiting, StatusInProgress, StatusCancelled},
	StatusWaiting:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether a session may move between two statuses.
func CanTransition(from, to string) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Session maps to the telehealth_sessions table. Each party holds its own
// join token; the tokens never appear in list responses.
type Session struct {
	ID                uuid.UUID `db:"id" json:"id"`
	PatientID         uuid.UUID `db:"patient_id" json:"patient_id"`
	PractitionerID    uuid.UUID `db:"practitioner_id" json:"practitioner_id"`
	Status            string    `db:"status" json:"status"`
	ScheduledAt       time.Time `db:"scheduled_at" json:"scheduled_at"`
	PatientToken      string    `db:"patient_token" json:"patient_token,omitempty"`
	PractitionerToken string    `db:"practitioner_token" json:"practitioner_token,omitempty"`
	Note              *string   `db:"note" json:"note,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// NewJoinToken produces an opaque single-session join token.
func NewJoinToken() string {
	return strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", "")
}

// Redacted returns a copy safe for list responses, with both join tokens
// stripped.
func (s *Session) Redacted() *Session {
	cp := *s
	cp.PatientToken = ""
	cp.PractitionerToken = ""
	return &cp
}
