package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yacco/emr/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const eventCols = `id, org_id, actor_id, actor_role, action, resource_type, resource_id,
	path, method, ip_address, user_agent, status_code, COALESCE(detail, '{}'::jsonb), created_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.OrgID, &e.ActorID, &e.ActorRole, &e.Action, &e.ResourceType,
		&e.ResourceID, &e.Path, &e.Method, &e.IPAddress, &e.UserAgent, &e.StatusCode,
		&e.Detail, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// RepoPG stores tenant audit events in the organization schema's
// audit_events table.
type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

func (r *RepoPG) conn(ctx context.Context) queryable {
	if conn := db.ConnFromContext(ctx); conn != nil {
		return conn
	}
	return r.pool
}

func (r *RepoPG) Insert(ctx context.Context, e *Event) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_events (id, org_id, actor_id, actor_role, action, resource_type,
			resource_id, path, method, ip_address, user_agent, status_code, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.OrgID, e.ActorID, e.ActorRole, e.Action, e.ResourceType, e.ResourceID,
		e.Path, e.Method, e.IPAddress, e.UserAgent, e.StatusCode, e.Detail, e.CreatedAt)
	return err
}

func (r *RepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Event, int, error) {
	return listEvents(ctx, r.conn(ctx), "audit_events", "", f, limit, offset)
}

// PlatformRepoPG stores the cross-organization access log in the shared
// schema. Writes go straight through the pool because the middleware runs
// after the response, outside any tenant-scoped connection.
type PlatformRepoPG struct {
	pool *pgxpool.Pool
}

func NewPlatformRepoPG(pool *pgxpool.Pool) *PlatformRepoPG {
	return &PlatformRepoPG{pool: pool}
}

func (r *PlatformRepoPG) Insert(ctx context.Context, e *Event) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO shared.audit_events (id, org_id, actor_id, actor_role, action, resource_type,
			resource_id, path, method, ip_address, user_agent, status_code, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.OrgID, e.ActorID, e.ActorRole, e.Action, e.ResourceType, e.ResourceID,
		e.Path, e.Method, e.IPAddress, e.UserAgent, e.StatusCode, e.Detail, e.CreatedAt)
	return err
}

func (r *PlatformRepoPG) List(ctx context.Context, orgID string, f Filter, limit, offset int) ([]*Event, int, error) {
	return listEvents(ctx, r.pool, "shared.audit_events", orgID, f, limit, offset)
}

func listEvents(ctx context.Context, q queryable, table, orgID string, f Filter, limit, offset int) ([]*Event, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	idx := 1

	if orgID != "" {
		where += fmt.Sprintf(" AND org_id = $%d", idx)
		args = append(args, orgID)
		idx++
	}
	if f.ActorID != "" {
		where += fmt.Sprintf(" AND actor_id = $%d", idx)
		args = append(args, f.ActorID)
		idx++
	}
	if f.Action != "" {
		where += fmt.Sprintf(" AND action = $%d", idx)
		args = append(args, f.Action)
		idx++
	}
	if f.ResourceType != "" {
		where += fmt.Sprintf(" AND resource_type = $%d", idx)
		args = append(args, f.ResourceType)
		idx++
	}
	if f.ResourceID != "" {
		where += fmt.Sprintf(" AND resource_id = $%d", idx)
		args = append(args, f.ResourceID)
		idx++
	}
	if !f.From.IsZero() {
		where += fmt.Sprintf(" AND created_at >= $%d", idx)
		args = append(args, f.From)
		idx++
	}
	if !f.To.IsZero() {
		where += fmt.Sprintf(" AND created_at < $%d", idx)
		args = append(args, f.To)
		idx++
	}

	var total int
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM "+table+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + eventCols + " FROM " + table + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}
