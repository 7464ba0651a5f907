package organization

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("organization not found")
	ErrInvalidTransition = errors.New("invalid organization status transition")
)

// SchemaProvisioner creates the tenant schema and runs migrations for a
// newly approved organization.
type SchemaProvisioner interface {
	ProvisionSchema(ctx context.Context, slug string) error
}

// SchemaProvisionerFunc adapts a function to SchemaProvisioner.
type SchemaProvisionerFunc func(ctx context.Context, slug string) error

func (f SchemaProvisionerFunc) ProvisionSchema(ctx context.Context, slug string) error {
	return f(ctx, slug)
}

// AuditSink records sensitive transitions (approval, suspension). Nil is
// allowed; recording is best-effort.
type AuditSink interface {
	RecordAction(ctx context.Context, action, resourceType, resourceID string, detail map[string]string) error
}

type Service struct {
	repo        Repository
	locations   LocationRepository
	provisioner SchemaProvisioner
	audit       AuditSink
}

func NewService(repo Repository, locations LocationRepository, provisioner SchemaProvisioner, audit AuditSink) *Service {
	return &Service{repo: repo, locations: locations, provisioner: provisioner, audit: audit}
}

var slugSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a schema-safe identifier from an organization name.
func Slugify(name string) string {
	s := slugSanitizer.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(s, "_")
}

// Register creates a pending organization. Self-service registrations wait
// for platform approval before a tenant schema exists.
func (s *Service) Register(ctx context.Context, o *Organization) error {
	if o.Name == "" {
		return fmt.Errorf("name is required")
	}
	if o.ContactEmail == "" {
		return fmt.Errorf("contact_email is required")
	}
	if o.Slug == "" {
		o.Slug = Slugify(o.Name)
	}
	if o.Slug == "" {
		return fmt.Errorf("name yields an empty slug")
	}
	if existing, err := s.repo.GetBySlug(ctx, o.Slug); err == nil && existing != nil {
		return fmt.Errorf("organization slug %q already taken", o.Slug)
	}
	o.Status = StatusPending
	return s.repo.Create(ctx, o)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]*Organization, int, error) {
	return s.repo.List(ctx, status, limit, offset)
}

func (s *Service) Update(ctx context.Context, o *Organization) error {
	current, err := s.repo.GetByID(ctx, o.ID)
	if err != nil {
		return ErrNotFound
	}
	if o.Name == "" {
		o.Name = current.Name
	}
	return s.repo.Update(ctx, o)
}

// Approve moves a pending or suspended organization to approved. First
// approval provisions the tenant schema; re-approving a suspended tenant
// only flips the status.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, actorID string) error {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if !CanTransition(o.Status, StatusApproved) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, StatusApproved)
	}
	from := o.Status
	if o.Status == StatusPending && s.provisioner != nil {
		if err := s.provisioner.ProvisionSchema(ctx, o.Slug); err != nil {
			return fmt.Errorf("provision tenant schema: %w", err)
		}
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusApproved); err != nil {
		return err
	}
	s.recordTransition(ctx, "approve", o, from, actorID)
	return nil
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID, actorID string) error {
	return s.transition(ctx, id, StatusRejected, "reject", actorID)
}

func (s *Service) Suspend(ctx context.Context, id uuid.UUID, actorID string) error {
	return s.transition(ctx, id, StatusSuspended, "suspend", actorID)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to, action, actorID string) error {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	from := o.Status
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return err
	}
	s.recordTransition(ctx, action, o, from, actorID)
	return nil
}

func (s *Service) recordTransition(ctx context.Context, action string, o *Organization, from, actorID string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.RecordAction(ctx, action, "organization", o.ID.String(), map[string]string{
		"slug":        o.Slug,
		"from_status": from,
		"actor_id":    actorID,
	})
}

// -- Locations --

func (s *Service) CreateLocation(ctx context.Context, l *Location) error {
	if l.OrganizationID == uuid.Nil {
		return fmt.Errorf("organization_id is required")
	}
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := s.repo.GetByID(ctx, l.OrganizationID); err != nil {
		return ErrNotFound
	}
	l.Active = true
	return s.locations.Create(ctx, l)
}

func (s *Service) GetLocation(ctx context.Context, id uuid.UUID) (*Location, error) {
	l, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return l, nil
}

func (s *Service) UpdateLocation(ctx context.Context, l *Location) error {
	if _, err := s.locations.GetByID(ctx, l.ID); err != nil {
		return ErrNotFound
	}
	return s.locations.Update(ctx, l)
}

func (s *Service) ListLocations(ctx context.Context, orgID uuid.UUID) ([]*Location, error) {
	return s.locations.ListByOrganization(ctx, orgID)
}
