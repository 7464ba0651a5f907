package audit

import "context"

// Repository persists and queries tenant-scoped audit events. Rows live in
// the organization's own schema; an org admin can only see their own trail.
type Repository interface {
	Insert(ctx context.Context, e *Event) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Event, int, error)
}

// PlatformRepository persists and queries the shared cross-organization
// access log written by the HTTP middleware. Only super admins read it.
type PlatformRepository interface {
	Insert(ctx context.Context, e *Event) error
	List(ctx context.Context, orgID string, f Filter, limit, offset int) ([]*Event, int, error)
}
