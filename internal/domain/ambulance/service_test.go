package ambulance

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

type mockVehicleRepo struct {
	vehicles map[uuid.UUID]*Vehicle
}

func newMockVehicleRepo() *mockVehicleRepo {
	return &mockVehicleRepo{vehicles: make(map[uuid.UUID]*Vehicle)}
}

func (m *mockVehicleRepo) Create(_ context.Context, v *Vehicle) error {
	v.ID = uuid.New()
	m.vehicles[v.ID] = v
	return nil
}

func (m *mockVehicleRepo) GetByID(_ context.Context, id uuid.UUID) (*Vehicle, error) {
	v, ok := m.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return v, nil
}

func (m *mockVehicleRepo) Update(_ context.Context, v *Vehicle) error {
	m.vehicles[v.ID] = v
	return nil
}

func (m *mockVehicleRepo) List(_ context.Context, status string, limit, offset int) ([]*Vehicle, int, error) {
	var result []*Vehicle
	for _, v := range m.vehicles {
		if status == "" || v.Status == status {
			result = append(result, v)
		}
	}
	return result, len(result), nil
}

func (m *mockVehicleRepo) ClaimAvailable(_ context.Context, id uuid.UUID) (bool, error) {
	v, ok := m.vehicles[id]
	if !ok {
		return false, fmt.Errorf("not found")
	}
	if v.Status != VehicleAvailable {
		return false, nil
	}
	v.Status = VehicleInUse
	return true, nil
}

func (m *mockVehicleRepo) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	v, ok := m.vehicles[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	v.Status = status
	return nil
}

type mockRequestRepo struct {
	requests map[uuid.UUID]*Request
	history  []StatusHistory
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{requests: make(map[uuid.UUID]*Request)}
}

func (m *mockRequestRepo) Create(_ context.Context, r *Request) error {
	r.ID = uuid.New()
	m.requests[r.ID] = r
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*Request, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return r, nil
}

func (m *mockRequestRepo) Update(_ context.Context, r *Request) error {
	m.requests[r.ID] = r
	return nil
}

func (m *mockRequestRepo) List(_ context.Context, status string, limit, offset int) ([]*Request, int, error) {
	var result []*Request
	for _, r := range m.requests {
		if status == "" || r.Status == status {
			result = append(result, r)
		}
	}
	return result, len(result), nil
}

func (m *mockRequestRepo) AddHistory(_ context.Context, h *StatusHistory) error {
	h.ID = uuid.New()
	m.history = append(m.history, *h)
	return nil
}

func (m *mockRequestRepo) ListHistory(_ context.Context, requestID uuid.UUID) ([]StatusHistory, error) {
	var result []StatusHistory
	for _, h := range m.history {
		if h.RequestID == requestID {
			result = append(result, h)
		}
	}
	return result, nil
}

type mockAudit struct {
	actions []string
}

func (m *mockAudit) RecordAction(_ context.Context, action, _, _ string, _ map[string]string) error {
	m.actions = append(m.actions, action)
	return nil
}

type fixture struct {
	svc      *Service
	vehicles *mockVehicleRepo
	requests *mockRequestRepo
	audit    *mockAudit
}

func newFixture() *fixture {
	vehicles := newMockVehicleRepo()
	requests := newMockRequestRepo()
	audit := &mockAudit{}
	return &fixture{
		svc:      NewService(vehicles, requests, audit),
		vehicles: vehicles,
		requests: requests,
		audit:    audit,
	}
}

func (f *fixture) newVehicle(t *testing.T) *Vehicle {
	t.Helper()
	v := &Vehicle{Registration: fmt.Sprintf("AMB-%d", len(f.vehicles.vehicles)+1)}
	if err := f.svc.CreateVehicle(context.Background(), v); err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	return v
}

func (f *fixture) newRequest(t *testing.T) *Request {
	t.Helper()
	r := &Request{RequestedBy: uuid.New(), PickupLocation: "ER bay 2", Destination: "County General"}
	if err := f.svc.CreateRequest(context.Background(), r); err != nil {
		t.Fatalf("create request: %v", err)
	}
	return r
}

func TestCreateRequest_StartsRequested(t *testing.T) {
	f := newFixture()
	r := f.newRequest(t)
	if r.Status != StatusRequested {
		t.Errorf("expected requested, got %s", r.Status)
	}
	hist, _ := f.requests.ListHistory(context.Background(), r.ID)
	if len(hist) != 1 || hist[0].Status != StatusRequested {
		t.Errorf("expected initial history entry, got %v", hist)
	}
}

func TestDispatch_AssignsVehicle(t *testing.T) {
	f := newFixture()
	v := f.newVehicle(t)
	r := f.newRequest(t)

	if err := f.svc.Approve(context.Background(), r.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := f.svc.Dispatch(context.Background(), r.ID, v.ID, nil); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if r.Status != StatusDispatched || r.VehicleID == nil || *r.VehicleID != v.ID {
		t.Errorf("expected dispatched with vehicle, got %+v", r)
	}
	if f.vehicles.vehicles[v.ID].Status != VehicleInUse {
		t.Errorf("expected vehicle in_use, got %s", f.vehicles.vehicles[v.ID].Status)
	}
}

func TestDispatch_BeforeApprovalRejected(t *testing.T) {
	f := newFixture()
	v := f.newVehicle(t)
	r := f.newRequest(t)
	if err := f.svc.Dispatch(context.Background(), r.ID, v.ID, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestDispatch_VehicleInUseRejected(t *testing.T) {
	f := newFixture()
	v := f.newVehicle(t)
	first := f.newRequest(t)
	second := f.newRequest(t)
	f.svc.Approve(context.Background(), first.ID, nil)
	f.svc.Approve(context.Background(), second.ID, nil)

	if err := f.svc.Dispatch(context.Background(), first.ID, v.ID, nil); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if err := f.svc.Dispatch(context.Background(), second.ID, v.ID, nil); !errors.Is(err, ErrVehicleUnavailable) {
		t.Errorf("expected ErrVehicleUnavailable, got %v", err)
	}
}

func TestUpdateStatus_ForwardOnly(t *testing.T) {
	f := newFixture()
	v := f.newVehicle(t)
	r := f.newRequest(t)
	ctx := context.Background()
	f.svc.Approve(ctx, r.ID, nil)
	f.svc.Dispatch(ctx, r.ID, v.ID, nil)

	if err := f.svc.UpdateStatus(ctx, r.ID, StatusArrived, nil, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected skipping en_route to fail, got %v", err)
	}
	if err := f.svc.UpdateStatus(ctx, r.ID, StatusEnRoute, nil, ""); err != nil {
		t.Fatalf("en_route: %v", err)
	}
	if err := f.svc.UpdateStatus(ctx, r.ID, StatusRequested, nil, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected backward walk to fail, got %v", err)
	}
}

func TestUpdateStatus_CompletionFreesVehicle(t *testing.T) {
	f := newFixture()
	v := f.newVehicle(t)
	r := f.newRequest(t)
	ctx := context.Background()
	f.svc.Approve(ctx, r.ID, nil)
	f.svc.Dispatch(ctx, r.ID, v.ID, nil)
	f.svc.UpdateStatus(ctx, r.ID, StatusEnRoute, nil, "")
	f.svc.UpdateStatus(ctx, r.ID, StatusArrived, nil, "")

	if err := f.svc.UpdateStatus(ctx, r.ID, StatusCompleted, nil, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if f.vehicles.vehicles[v.ID].Status != VehicleAvailable {
		t.Errorf("expected vehicle released, got %s", f.vehicles.vehicles[v.ID].Status)
	}

	if err := f.svc.UpdateStatus(ctx, r.ID, StatusCancelled, nil, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected completed to be terminal, got %v", err)
	}
}

func TestUpdateStatus_CancelFromAnyActiveState(t *testing.T) {
	f := newFixture()
	v := f.newVehicle(t)
	r := f.newRequest(t)
	ctx := context.Background()
	f.svc.Approve(ctx, r.ID, nil)
	f.svc.Dispatch(ctx, r.ID, v.ID, nil)

	if err := f.svc.UpdateStatus(ctx, r.ID, StatusCancelled, nil, "patient refused transport"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if f.vehicles.vehicles[v.ID].Status != VehicleAvailable {
		t.Error("expected vehicle released on cancel")
	}
}

func TestUpdateStatus_CannotShortcutDispatch(t *testing.T) {
	f := newFixture()
	r := f.newRequest(t)
	if err := f.svc.UpdateStatus(context.Background(), r.ID, StatusDispatched, nil, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected dispatch via UpdateStatus to fail, got %v", err)
	}
}

func TestLifecycle_HistoryAndAudit(t *testing.T) {
	f := newFixture()
	v := f.newVehicle(t)
	r := f.newRequest(t)
	ctx := context.Background()
	f.svc.Approve(ctx, r.ID, nil)
	f.svc.Dispatch(ctx, r.ID, v.ID, nil)
	f.svc.UpdateStatus(ctx, r.ID, StatusEnRoute, nil, "")
	f.svc.UpdateStatus(ctx, r.ID, StatusArrived, nil, "")
	f.svc.UpdateStatus(ctx, r.ID, StatusCompleted, nil, "")

	hist, _ := f.requests.ListHistory(ctx, r.ID)
	want := []string{StatusRequested, StatusApproved, StatusDispatched, StatusEnRoute, StatusArrived, StatusCompleted}
	if len(hist) != len(want) {
		t.Fatalf("expected %d history entries, got %d", len(want), len(hist))
	}
	for i, w := range want {
		if hist[i].Status != w {
			t.Errorf("history[%d]: expected %s, got %s", i, w, hist[i].Status)
		}
	}
	if len(f.audit.actions) == 0 {
		t.Error("expected audit actions for transitions")
	}
}

func TestSetVehicleStatus_InUseProtected(t *testing.T) {
	f := newFixture()
	v := f.newVehicle(t)
	r := f.newRequest(t)
	ctx := context.Background()
	f.svc.Approve(ctx, r.ID, nil)
	f.svc.Dispatch(ctx, r.ID, v.ID, nil)

	if err := f.svc.SetVehicleStatus(ctx, v.ID, VehicleMaintenance); err == nil {
		t.Error("expected error forcing an in-use vehicle to maintenance")
	}
}
