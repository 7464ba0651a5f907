package organization

import (
	"time"

	"github.com/google/uuid"
)

// Organization statuses. Registrations start pending; the platform owner
// moves them through the lifecycle. Organizations are never hard-deleted.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusSuspended = "suspended"
	StatusRejected  = "rejected"
)

// Organization maps to the shared.organizations table. Slug doubles as the
// tenant schema identifier (schema org_<slug>).
type Organization struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Slug         string    `db:"slug" json:"slug"`
	Region       string    `db:"region" json:"region"`
	Status       string    `db:"status" json:"status"`
	ContactEmail string    `db:"contact_email" json:"contact_email"`
	ContactPhone *string   `db:"contact_phone" json:"contact_phone,omitempty"`
	Address      *string   `db:"address" json:"address,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Location maps to the shared.locations table, one row per physical site
// (hospital building, clinic, annex) of an organization.
type Location struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	Name           string    `db:"name" json:"name"`
	Address        *string   `db:"address" json:"address,omitempty"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// validTransitions encodes the organization lifecycle. Rejected is terminal;
// suspended organizations can be re-approved.
var validTransitions = map[string]map[string]bool{
	StatusPending:   {StatusApproved: true, StatusRejected: true},
	StatusApproved:  {StatusSuspended: true},
	StatusSuspended: {StatusApproved: true},
	StatusRejected:  {},
}

// CanTransition reports whether an organization may move from one status to
// another.
func CanTransition(from, to string) bool {
	return validTransitions[from][to]
}
