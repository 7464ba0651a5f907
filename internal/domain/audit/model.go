package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is a single immutable audit trail row. Two kinds of events share the
// shape: access events recorded by the HTTP middleware for every API call,
// and action events recorded by domain services for state changes (payments,
// dispenses, status transitions).
type Event struct {
	ID           uuid.UUID         `db:"id" json:"id"`
	OrgID        string            `db:"org_id" json:"org_id"`
	ActorID      string            `db:"actor_id" json:"actor_id"`
	ActorRole    string            `db:"actor_role" json:"actor_role"`
	Action       string            `db:"action" json:"action"`
	ResourceType string            `db:"resource_type" json:"resource_type"`
	ResourceID   string            `db:"resource_id" json:"resource_id"`
	Path         string            `db:"path" json:"path,omitempty"`
	Method       string            `db:"method" json:"method,omitempty"`
	IPAddress    string            `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent    string            `db:"user_agent" json:"user_agent,omitempty"`
	StatusCode   int               `db:"status_code" json:"status_code,omitempty"`
	Detail       map[string]string `db:"detail" json:"detail,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}

// Filter narrows audit queries. Zero values mean no constraint.
type Filter struct {
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	From         time.Time
	To           time.Time
}
