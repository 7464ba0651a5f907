package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yacco/emr/internal/platform/auth"
	"github.com/yacco/emr/internal/platform/db"
	"github.com/yacco/emr/internal/platform/middleware"
)

// Service is the write and query surface for the audit trail. It doubles as
// the action sink injected into domain services and as the access recorder
// attached to the HTTP middleware.
type Service struct {
	repo     Repository
	platform PlatformRepository
	logger   zerolog.Logger
}

func NewService(repo Repository, platform PlatformRepository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, platform: platform, logger: logger}
}

// RecordAction writes a tenant event for a domain state change. The actor
// and organization come from the request context. Failures are returned to
// the caller, which treats the trail as best effort.
func (s *Service) RecordAction(ctx context.Context, action, resourceType, resourceID string, detail map[string]string) error {
	if action == "" || resourceType == "" {
		return fmt.Errorf("action and resource_type are required")
	}
	e := &Event{
		ID:           uuid.New(),
		OrgID:        db.OrgFromContext(ctx),
		ActorID:      auth.UserIDFromContext(ctx),
		ActorRole:    auth.RoleFromContext(ctx),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Detail:       detail,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		s.logger.Error().Err(err).
			Str("action", action).
			Str("resource_type", resourceType).
			Msg("failed to record audit action")
		return err
	}
	return nil
}

// RecordAccess implements the middleware recorder. Access entries go to the
// shared platform log; the request context is already finished by the time
// the middleware calls us, so the write runs on its own deadline.
func (s *Service) RecordAccess(entry middleware.AuditEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e := &Event{
		ID:           uuid.New(),
		OrgID:        entry.OrgID,
		ActorID:      entry.UserID,
		ActorRole:    entry.Role,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		Path:         entry.Path,
		Method:       entry.Method,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		StatusCode:   entry.StatusCode,
		CreatedAt:    entry.Timestamp,
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if entry.RequestID != "" {
		e.Detail = map[string]string{"request_id": entry.RequestID}
	}
	return s.platform.Insert(ctx, e)
}

// ListOrg returns the calling organization's own trail.
func (s *Service) ListOrg(ctx context.Context, f Filter, limit, offset int) ([]*Event, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// ListPlatform returns the shared access log, optionally narrowed to one
// organization.
func (s *Service) ListPlatform(ctx context.Context, orgID string, f Filter, limit, offset int) ([]*Event, int, error) {
	return s.platform.List(ctx, orgID, f, limit, offset)
}
