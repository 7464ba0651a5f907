package lab

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	orders  map[uuid.UUID]*Order
	results []Result
}

func newMockRepo() *mockRepo {
	return &mockRepo{orders: make(map[uuid.UUID]*Order)}
}

func (m *mockRepo) Create(_ context.Context, o *Order) error {
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	cp := *o
	cp.Results = nil
	for _, res := range m.results {
		if res.OrderID == id {
			cp.Results = append(cp.Results, res)
		}
	}
	return &cp, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	o, ok := m.orders[id]
	if !ok {
		return errors.New("no rows")
	}
	o.Status = status
	return nil
}

func (m *mockRepo) List(_ context.Context, status string, patientID *uuid.UUID, limit, offset int) ([]*Order, int, error) {
	var out []*Order
	for _, o := range m.orders {
		if status != "" && o.Status != status {
			continue
		}
		if patientID != nil && o.PatientID != *patientID {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *mockRepo) AddResults(_ context.Context, results []Result) error {
	m.results = append(m.results, results...)
	return nil
}

type mockNotifier struct {
	ready []uuid.UUID
}

func (m *mockNotifier) ResultReady(_ context.Context, o *Order) {
	m.ready = append(m.ready, o.ID)
}

func newOrder(t *testing.T, svc *Service) *Order {
	t.Helper()
	o := &Order{
		PatientID: uuid.New(),
		OrderedBy: uuid.New(),
		TestCode:  "CBC",
		TestName:  "Complete Blood Count",
	}
	if err := svc.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return o
}

func sampleResults() []Result {
	unit := "g/dL"
	rr := "13.5-17.5"
	return []Result{
		{Analyte: "Hemoglobin", Value: "11.2", Unit: &unit, ReferenceRange: &rr, Abnormal: true},
		{Analyte: "WBC", Value: "6.1"},
	}
}

func TestCreateOrderDefaults(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	o := newOrder(t, svc)
	if o.Status != StatusOrdered {
		t.Errorf("status = %q, want %q", o.Status, StatusOrdered)
	}
	if o.Priority != PriorityRoutine {
		t.Errorf("priority = %q, want %q", o.Priority, PriorityRoutine)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	o := &Order{OrderedBy: uuid.New(), TestCode: "CBC", TestName: "CBC"}
	if err := svc.CreateOrder(context.Background(), o); err == nil {
		t.Error("missing patient accepted")
	}

	o = &Order{PatientID: uuid.New(), OrderedBy: uuid.New(), TestName: "CBC"}
	if err := svc.CreateOrder(context.Background(), o); err == nil {
		t.Error("missing test code accepted")
	}

	o = &Order{PatientID: uuid.New(), OrderedBy: uuid.New(), TestCode: "CBC", TestName: "CBC", Priority: "asap"}
	if err := svc.CreateOrder(context.Background(), o); err == nil {
		t.Error("unknown priority accepted")
	}
}

func TestForwardOnlyWalk(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	o := newOrder(t, svc)

	// skipping collection is not allowed
	if err := svc.MarkInProgress(context.Background(), o.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("skip to in_progress = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.AttachResults(context.Background(), o.ID, sampleResults()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("result from ordered = %v, want ErrInvalidTransition", err)
	}

	if err := svc.MarkCollected(context.Background(), o.ID); err != nil {
		t.Fatalf("MarkCollected: %v", err)
	}
	// no going back
	if err := svc.MarkCollected(context.Background(), o.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("collect twice = %v, want ErrInvalidTransition", err)
	}
	if err := svc.MarkInProgress(context.Background(), o.ID); err != nil {
		t.Fatalf("MarkInProgress: %v", err)
	}
}

func TestAttachResults(t *testing.T) {
	repo := newMockRepo()
	notifier := &mockNotifier{}
	svc := NewService(repo, notifier)
	o := newOrder(t, svc)

	if err := svc.MarkCollected(context.Background(), o.ID); err != nil {
		t.Fatalf("MarkCollected: %v", err)
	}
	if err := svc.MarkInProgress(context.Background(), o.ID); err != nil {
		t.Fatalf("MarkInProgress: %v", err)
	}

	resulted, err := svc.AttachResults(context.Background(), o.ID, sampleResults())
	if err != nil {
		t.Fatalf("AttachResults: %v", err)
	}
	if resulted.Status != StatusResulted {
		t.Errorf("status = %q, want %q", resulted.Status, StatusResulted)
	}
	if len(resulted.Results) != 2 {
		t.Errorf("results = %d, want 2", len(resulted.Results))
	}
	if !resulted.Results[0].Abnormal {
		t.Error("abnormal flag lost")
	}
	if len(notifier.ready) != 1 || notifier.ready[0] != o.ID {
		t.Errorf("notifier calls = %v", notifier.ready)
	}

	// resulted is terminal
	if _, err := svc.AttachResults(context.Background(), o.ID, sampleResults()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second result = %v, want ErrInvalidTransition", err)
	}
	if err := svc.Cancel(context.Background(), o.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("cancel resulted = %v, want ErrInvalidTransition", err)
	}
}

func TestAttachResultsValidation(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	o := newOrder(t, svc)
	if err := svc.MarkCollected(context.Background(), o.ID); err != nil {
		t.Fatalf("MarkCollected: %v", err)
	}
	if err := svc.MarkInProgress(context.Background(), o.ID); err != nil {
		t.Fatalf("MarkInProgress: %v", err)
	}

	if _, err := svc.AttachResults(context.Background(), o.ID, nil); err == nil {
		t.Error("empty results accepted")
	}
	if _, err := svc.AttachResults(context.Background(), o.ID, []Result{{Analyte: "Hb"}}); err == nil {
		t.Error("result without value accepted")
	}
}

func TestCancelFromAnyNonTerminal(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	o := newOrder(t, svc)
	if err := svc.Cancel(context.Background(), o.ID); err != nil {
		t.Fatalf("cancel from ordered: %v", err)
	}
	if err := svc.Cancel(context.Background(), o.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("cancel twice = %v, want ErrInvalidTransition", err)
	}
	if err := svc.MarkCollected(context.Background(), o.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("collect cancelled = %v, want ErrInvalidTransition", err)
	}

	o2 := newOrder(t, svc)
	if err := svc.MarkCollected(context.Background(), o2.ID); err != nil {
		t.Fatalf("MarkCollected: %v", err)
	}
	if err := svc.Cancel(context.Background(), o2.ID); err != nil {
		t.Errorf("cancel from collected: %v", err)
	}
}
