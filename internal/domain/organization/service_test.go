package organization

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	orgs map[uuid.UUID]*Organization
}

func newMockRepo() *mockRepo {
	return &mockRepo{orgs: make(map[uuid.UUID]*Organization)}
}

func (m *mockRepo) Create(_ context.Context, o *Organization) error {
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	m.orgs[o.ID] = o
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Organization, error) {
	o, ok := m.orgs[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return o, nil
}

func (m *mockRepo) GetBySlug(_ context.Context, slug string) (*Organization, error) {
	for _, o := range m.orgs {
		if o.Slug == slug {
			return o, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) Update(_ context.Context, o *Organization) error {
	m.orgs[o.ID] = o
	return nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	o, ok := m.orgs[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	o.Status = status
	return nil
}

func (m *mockRepo) List(_ context.Context, status string, limit, offset int) ([]*Organization, int, error) {
	var result []*Organization
	for _, o := range m.orgs {
		if status == "" || o.Status == status {
			result = append(result, o)
		}
	}
	return result, len(result), nil
}

type mockLocationRepo struct {
	locations map[uuid.UUID]*Location
}

func newMockLocationRepo() *mockLocationRepo {
	return &mockLocationRepo{locations: make(map[uuid.UUID]*Location)}
}

func (m *mockLocationRepo) Create(_ context.Context, l *Location) error {
	l.ID = uuid.New()
	m.locations[l.ID] = l
	return nil
}

func (m *mockLocationRepo) GetByID(_ context.Context, id uuid.UUID) (*Location, error) {
	l, ok := m.locations[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return l, nil
}

func (m *mockLocationRepo) Update(_ context.Context, l *Location) error {
	m.locations[l.ID] = l
	return nil
}

func (m *mockLocationRepo) ListByOrganization(_ context.Context, orgID uuid.UUID) ([]*Location, error) {
	var result []*Location
	for _, l := range m.locations {
		if l.OrganizationID == orgID {
			result = append(result, l)
		}
	}
	return result, nil
}

type mockProvisioner struct {
	provisioned []string
	err         error
}

func (m *mockProvisioner) ProvisionSchema(_ context.Context, slug string) error {
	if m.err != nil {
		return m.err
	}
	m.provisioned = append(m.provisioned, slug)
	return nil
}

type mockAudit struct {
	actions []string
}

func (m *mockAudit) RecordAction(_ context.Context, action, _, _ string, _ map[string]string) error {
	m.actions = append(m.actions, action)
	return nil
}

func newTestService() (*Service, *mockProvisioner, *mockAudit) {
	prov := &mockProvisioner{}
	audit := &mockAudit{}
	return NewService(newMockRepo(), newMockLocationRepo(), prov, audit), prov, audit
}

func registerApproved(t *testing.T, svc *Service) *Organization {
	t.Helper()
	o := &Organization{Name: "St. Mary Hospital", ContactEmail: "admin@stmary.test", Region: "west"}
	if err := svc.Register(context.Background(), o); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Approve(context.Background(), o.ID, "owner-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	return o
}

func TestRegister_StartsPending(t *testing.T) {
	svc, _, _ := newTestService()
	o := &Organization{Name: "General Hospital", ContactEmail: "it@general.test"}
	if err := svc.Register(context.Background(), o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != StatusPending {
		t.Errorf("expected pending, got %s", o.Status)
	}
	if o.Slug != "general_hospital" {
		t.Errorf("expected slug general_hospital, got %s", o.Slug)
	}
}

func TestRegister_NameRequired(t *testing.T) {
	svc, _, _ := newTestService()
	o := &Organization{ContactEmail: "it@general.test"}
	if err := svc.Register(context.Background(), o); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestRegister_DuplicateSlugRejected(t *testing.T) {
	svc, _, _ := newTestService()
	first := &Organization{Name: "City Clinic", ContactEmail: "a@city.test"}
	if err := svc.Register(context.Background(), first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := &Organization{Name: "City Clinic", ContactEmail: "b@city.test"}
	if err := svc.Register(context.Background(), second); err == nil {
		t.Error("expected duplicate slug error")
	}
}

func TestApprove_ProvisionsSchemaOnce(t *testing.T) {
	svc, prov, audit := newTestService()
	o := registerApproved(t, svc)

	if len(prov.provisioned) != 1 || prov.provisioned[0] != o.Slug {
		t.Errorf("expected one provisioned schema for %s, got %v", o.Slug, prov.provisioned)
	}
	if len(audit.actions) != 1 || audit.actions[0] != "approve" {
		t.Errorf("expected approve audit action, got %v", audit.actions)
	}

	// Suspend and re-approve: no second provisioning.
	if err := svc.Suspend(context.Background(), o.ID, "owner-1"); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if err := svc.Approve(context.Background(), o.ID, "owner-1"); err != nil {
		t.Fatalf("re-approve: %v", err)
	}
	if len(prov.provisioned) != 1 {
		t.Errorf("expected provisioning to run once, got %v", prov.provisioned)
	}
}

func TestApprove_AlreadyApprovedRejected(t *testing.T) {
	svc, _, _ := newTestService()
	o := registerApproved(t, svc)
	err := svc.Approve(context.Background(), o.ID, "owner-1")
	if err == nil {
		t.Fatal("expected invalid transition error")
	}
}

func TestReject_TerminalState(t *testing.T) {
	svc, _, _ := newTestService()
	o := &Organization{Name: "Bad Actor Clinic", ContactEmail: "x@bad.test"}
	svc.Register(context.Background(), o)
	if err := svc.Reject(context.Background(), o.ID, "owner-1"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := svc.Approve(context.Background(), o.ID, "owner-1"); err == nil {
		t.Error("expected rejected org to stay rejected")
	}
}

func TestSuspend_PendingRejected(t *testing.T) {
	svc, _, _ := newTestService()
	o := &Organization{Name: "Pending Hospital", ContactEmail: "p@p.test"}
	svc.Register(context.Background(), o)
	if err := svc.Suspend(context.Background(), o.ID, "owner-1"); err == nil {
		t.Error("expected error suspending a pending org")
	}
}

func TestApprove_ProvisionFailureAborts(t *testing.T) {
	svc, prov, _ := newTestService()
	prov.err = fmt.Errorf("schema exists")
	o := &Organization{Name: "Fail Hospital", ContactEmail: "f@f.test"}
	svc.Register(context.Background(), o)
	if err := svc.Approve(context.Background(), o.ID, "owner-1"); err == nil {
		t.Fatal("expected provisioning error")
	}
	fetched, _ := svc.Get(context.Background(), o.ID)
	if fetched.Status != StatusPending {
		t.Errorf("expected org still pending, got %s", fetched.Status)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"St. Mary Hospital": "st_mary_hospital",
		"  General  ":       "general",
		"Clinic-42":         "clinic_42",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateLocation(t *testing.T) {
	svc, _, _ := newTestService()
	o := registerApproved(t, svc)
	l := &Location{OrganizationID: o.ID, Name: "Main Campus"}
	if err := svc.CreateLocation(context.Background(), l); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.Active {
		t.Error("expected new location to be active")
	}
	items, err := svc.ListLocations(context.Background(), o.ID)
	if err != nil || len(items) != 1 {
		t.Errorf("expected one location, got %d (err %v)", len(items), err)
	}
}

func TestCreateLocation_UnknownOrg(t *testing.T) {
	svc, _, _ := newTestService()
	l := &Location{OrganizationID: uuid.New(), Name: "Orphan Site"}
	if err := svc.CreateLocation(context.Background(), l); err == nil {
		t.Error("expected error for unknown organization")
	}
}
