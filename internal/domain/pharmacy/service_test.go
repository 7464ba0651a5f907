package pharmacy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	prescriptions map[uuid.UUID]*Prescription
	dispenses     []*Dispense
}

func newMockRepo() *mockRepo {
	return &mockRepo{prescriptions: make(map[uuid.UUID]*Prescription)}
}

func (m *mockRepo) Create(_ context.Context, p *Prescription) error {
	cp := *p
	m.prescriptions[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	p, ok := m.prescriptions[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	cp := *p
	cp.Dispenses = nil
	for _, d := range m.dispenses {
		if d.PrescriptionID == id {
			cp.Dispenses = append(cp.Dispenses, *d)
		}
	}
	return &cp, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	p, ok := m.prescriptions[id]
	if !ok {
		return errors.New("no rows")
	}
	p.Status = status
	return nil
}

func (m *mockRepo) List(_ context.Context, status string, patientID *uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var out []*Prescription
	for _, p := range m.prescriptions {
		if status != "" && p.Status != status {
			continue
		}
		if patientID != nil && p.PatientID != *patientID {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockRepo) AddDispense(_ context.Context, d *Dispense) error {
	cp := *d
	m.dispenses = append(m.dispenses, &cp)
	return nil
}

type mockAudit struct {
	actions []string
}

func (m *mockAudit) RecordAction(_ context.Context, action, _, _ string, _ map[string]string) error {
	m.actions = append(m.actions, action)
	return nil
}

func newTestService() (*Service, *mockAudit) {
	audit := &mockAudit{}
	return NewService(newMockRepo(), audit), audit
}

func prescribe(t *testing.T, svc *Service, quantity, refills int) *Prescription {
	t.Helper()
	p := &Prescription{
		PatientID:      uuid.New(),
		PrescriberID:   uuid.New(),
		MedicationCode: "R03AC02",
		MedicationName: "Salbutamol",
		Dose:           "100mcg",
		Frequency:      "PRN",
		Quantity:       quantity,
		Refills:        refills,
	}
	if err := svc.Prescribe(context.Background(), p); err != nil {
		t.Fatalf("Prescribe: %v", err)
	}
	return p
}

func TestPrescribeStartsActive(t *testing.T) {
	svc, _ := newTestService()
	p := prescribe(t, svc, 30, 2)
	if p.Status != StatusActive {
		t.Errorf("status = %q, want %q", p.Status, StatusActive)
	}
	if p.Route != RouteOral {
		t.Errorf("default route = %q, want %q", p.Route, RouteOral)
	}
	if p.TotalAuthorized() != 90 {
		t.Errorf("total authorized = %d, want 90", p.TotalAuthorized())
	}
}

func TestPrescribeValidation(t *testing.T) {
	svc, _ := newTestService()
	base := func() *Prescription {
		return &Prescription{
			PatientID:      uuid.New(),
			PrescriberID:   uuid.New(),
			MedicationCode: "N02BE01",
			MedicationName: "Paracetamol",
			Dose:           "500mg",
			Frequency:      "TID",
			Quantity:       20,
		}
	}

	p := base()
	p.Quantity = 0
	if err := svc.Prescribe(context.Background(), p); err == nil {
		t.Error("zero quantity accepted")
	}

	p = base()
	p.Refills = -1
	if err := svc.Prescribe(context.Background(), p); err == nil {
		t.Error("negative refills accepted")
	}

	p = base()
	p.MedicationCode = ""
	if err := svc.Prescribe(context.Background(), p); err == nil {
		t.Error("missing medication code accepted")
	}

	p = base()
	p.Dose = ""
	if err := svc.Prescribe(context.Background(), p); err == nil {
		t.Error("missing dose accepted")
	}
}

func TestDispenseTracksRemaining(t *testing.T) {
	svc, audit := newTestService()
	p := prescribe(t, svc, 30, 0)

	if _, err := svc.Dispense(context.Background(), p.ID, 10, nil, nil); err != nil {
		t.Fatalf("Dispense: %v", err)
	}
	got, _ := svc.Get(context.Background(), p.ID)
	if got.Remaining() != 20 {
		t.Errorf("remaining = %d, want 20", got.Remaining())
	}
	if got.Status != StatusActive {
		t.Errorf("status = %q, want %q", got.Status, StatusActive)
	}
	if len(audit.actions) != 1 || audit.actions[0] != "dispense" {
		t.Errorf("audit actions = %v", audit.actions)
	}
}

func TestOverDispenseRejected(t *testing.T) {
	svc, _ := newTestService()
	p := prescribe(t, svc, 30, 0)

	if _, err := svc.Dispense(context.Background(), p.ID, 31, nil, nil); !errors.Is(err, ErrOverDispense) {
		t.Errorf("over-dispense = %v, want ErrOverDispense", err)
	}
	if _, err := svc.Dispense(context.Background(), p.ID, 25, nil, nil); err != nil {
		t.Fatalf("Dispense: %v", err)
	}
	if _, err := svc.Dispense(context.Background(), p.ID, 6, nil, nil); !errors.Is(err, ErrOverDispense) {
		t.Errorf("dispense past remaining = %v, want ErrOverDispense", err)
	}
}

func TestExhaustingAuthorizationCompletes(t *testing.T) {
	svc, _ := newTestService()
	p := prescribe(t, svc, 10, 1)

	if _, err := svc.Dispense(context.Background(), p.ID, 10, nil, nil); err != nil {
		t.Fatalf("first fill: %v", err)
	}
	if _, err := svc.Dispense(context.Background(), p.ID, 10, nil, nil); err != nil {
		t.Fatalf("refill: %v", err)
	}
	got, _ := svc.Get(context.Background(), p.ID)
	if got.Status != StatusCompleted {
		t.Errorf("status = %q, want %q", got.Status, StatusCompleted)
	}
	if _, err := svc.Dispense(context.Background(), p.ID, 1, nil, nil); !errors.Is(err, ErrNotActive) {
		t.Errorf("dispense on completed = %v, want ErrNotActive", err)
	}
}

func TestHoldBlocksDispensing(t *testing.T) {
	svc, _ := newTestService()
	p := prescribe(t, svc, 30, 0)

	if err := svc.Hold(context.Background(), p.ID); err != nil {
		t.Fatalf("Hold: %v", err)
	}
	if _, err := svc.Dispense(context.Background(), p.ID, 5, nil, nil); !errors.Is(err, ErrNotActive) {
		t.Errorf("dispense on hold = %v, want ErrNotActive", err)
	}

	if err := svc.Resume(context.Background(), p.ID); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if _, err := svc.Dispense(context.Background(), p.ID, 5, nil, nil); err != nil {
		t.Errorf("dispense after resume: %v", err)
	}
}

func TestCancelIsTerminal(t *testing.T) {
	svc, _ := newTestService()
	p := prescribe(t, svc, 30, 0)

	if err := svc.Cancel(context.Background(), p.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := svc.Cancel(context.Background(), p.ID); !errors.Is(err, ErrTerminal) {
		t.Errorf("second cancel = %v, want ErrTerminal", err)
	}
	if err := svc.Resume(context.Background(), p.ID); !errors.Is(err, ErrTerminal) {
		t.Errorf("resume cancelled = %v, want ErrTerminal", err)
	}
	if _, err := svc.Dispense(context.Background(), p.ID, 1, nil, nil); !errors.Is(err, ErrNotActive) {
		t.Errorf("dispense cancelled = %v, want ErrNotActive", err)
	}
}

func TestResumeRequiresHold(t *testing.T) {
	svc, _ := newTestService()
	p := prescribe(t, svc, 30, 0)
	if err := svc.Resume(context.Background(), p.ID); !errors.Is(err, ErrNotActive) {
		t.Errorf("resume active = %v, want ErrNotActive", err)
	}
}
