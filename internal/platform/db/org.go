// Package db provides the PostgreSQL connection pool, the per-organization
// schema isolation middleware, and the SQL-file migration runner.
//
// Every hospital organization gets its own schema (org_<id>). The middleware
// pins an acquired connection's search_path to the caller's organization so
// repository queries can only see that organization's rows. Platform-level
// tables (the organization registry, platform audit) live in the shared
// schema.
package db

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	OrgIDKey  contextKey = "org_id"
	DBConnKey contextKey = "db_conn"
)

var orgIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// OrgMiddleware resolves the caller's organization and scopes the request's
// database connection to that organization's schema. Resolution order: JWT
// claim (set by the auth middleware), X-Org-ID header, org_id query param,
// then the configured default.
func OrgMiddleware(pool *pgxpool.Pool, defaultOrg string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			orgID := extractOrgID(c, defaultOrg)

			if !orgIDPattern.MatchString(orgID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid organization identifier")
			}

			ctx := c.Request().Context()
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer conn.Release()

			schema := fmt.Sprintf("org_%s", orgID)
			_, err = conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, shared, public", schema))
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "organization resolution failed")
			}

			ctx = context.WithValue(ctx, OrgIDKey, orgID)
			ctx = context.WithValue(ctx, DBConnKey, conn)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("org_id", orgID)
			c.Set("db", conn)

			return next(c)
		}
	}
}

func extractOrgID(c echo.Context, defaultOrg string) string {
	if oid, ok := c.Get("jwt_org_id").(string); ok && oid != "" {
		return oid
	}
	if oid := c.Request().Header.Get("X-Org-ID"); oid != "" {
		return oid
	}
	if oid := c.QueryParam("org_id"); oid != "" {
		return oid
	}
	return defaultOrg
}

// ConnFromContext retrieves the organization-scoped database connection
// from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// OrgFromContext retrieves the organization ID from context.
func OrgFromContext(ctx context.Context) string {
	oid, _ := ctx.Value(OrgIDKey).(string)
	return oid
}

// CreateOrgSchema creates the schema for a newly approved organization and
// runs all migrations against it. When migrationsDir is empty, migrations
// are skipped.
func CreateOrgSchema(ctx context.Context, pool *pgxpool.Pool, orgID string, migrationsDir string) error {
	if !orgIDPattern.MatchString(orgID) {
		return fmt.Errorf("invalid organization identifier: %s", orgID)
	}

	schema := fmt.Sprintf("org_%s", orgID)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema))
	if err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	if migrationsDir != "" {
		migrator := NewMigrator(pool, migrationsDir)
		if _, err := migrator.Up(ctx, schema); err != nil {
			return fmt.Errorf("run migrations for %s: %w", schema, err)
		}
	}

	return nil
}
