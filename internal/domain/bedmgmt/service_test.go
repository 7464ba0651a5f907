package bedmgmt

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

type mockWardRepo struct {
	wards map[uuid.UUID]*Ward
	beds  *mockBedRepo
}

func newMockWardRepo(beds *mockBedRepo) *mockWardRepo {
	return &mockWardRepo{wards: make(map[uuid.UUID]*Ward), beds: beds}
}

func (m *mockWardRepo) Create(_ context.Context, w *Ward) error {
	w.ID = uuid.New()
	m.wards[w.ID] = w
	return nil
}

func (m *mockWardRepo) GetByID(_ context.Context, id uuid.UUID) (*Ward, error) {
	w, ok := m.wards[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return w, nil
}

func (m *mockWardRepo) Update(_ context.Context, w *Ward) error {
	m.wards[w.ID] = w
	return nil
}

func (m *mockWardRepo) List(_ context.Context, limit, offset int) ([]*Ward, int, error) {
	var result []*Ward
	for _, w := range m.wards {
		result = append(result, w)
	}
	return result, len(result), nil
}

func (m *mockWardRepo) Census(_ context.Context, wardID uuid.UUID) (*Census, error) {
	w, ok := m.wards[wardID]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	c := &Census{WardID: w.ID, WardName: w.Name, ByStatus: make(map[string]int)}
	for _, b := range m.beds.beds {
		if b.WardID == wardID {
			c.ByStatus[b.Status]++
			c.Total++
		}
	}
	c.Occupied = c.ByStatus[BedOccupied]
	c.Available = c.ByStatus[BedAvailable]
	return c, nil
}

func (m *mockWardRepo) CensusAll(ctx context.Context) ([]*Census, error) {
	var result []*Census
	for id := range m.wards {
		c, _ := m.Census(ctx, id)
		result = append(result, c)
	}
	return result, nil
}

type mockBedRepo struct {
	beds map[uuid.UUID]*Bed
}

func newMockBedRepo() *mockBedRepo {
	return &mockBedRepo{beds: make(map[uuid.UUID]*Bed)}
}

func (m *mockBedRepo) Create(_ context.Context, b *Bed) error {
	b.ID = uuid.New()
	m.beds[b.ID] = b
	return nil
}

func (m *mockBedRepo) GetByID(_ context.Context, id uuid.UUID) (*Bed, error) {
	b, ok := m.beds[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return b, nil
}

func (m *mockBedRepo) ListByWard(_ context.Context, wardID uuid.UUID) ([]*Bed, error) {
	var result []*Bed
	for _, b := range m.beds {
		if b.WardID == wardID {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *mockBedRepo) ListByStatus(_ context.Context, status string, limit, offset int) ([]*Bed, int, error) {
	var result []*Bed
	for _, b := range m.beds {
		if status == "" || b.Status == status {
			result = append(result, b)
		}
	}
	return result, len(result), nil
}

func (m *mockBedRepo) Claim(_ context.Context, id uuid.UUID, fromStatuses []string) (string, bool, error) {
	b, ok := m.beds[id]
	if !ok {
		return "", false, fmt.Errorf("not found")
	}
	for _, s := range fromStatuses {
		if b.Status == s {
			prev := b.Status
			b.Status = BedOccupied
			return prev, true, nil
		}
	}
	return "", false, nil
}

func (m *mockBedRepo) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	b, ok := m.beds[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	b.Status = status
	return nil
}

type mockAdmissionRepo struct {
	admissions map[uuid.UUID]*Admission
	transfers  []TransferRecord
	discharges map[uuid.UUID]*DischargeRecord

	createErr error
	updateErr error
}

func newMockAdmissionRepo() *mockAdmissionRepo {
	return &mockAdmissionRepo{
		admissions: make(map[uuid.UUID]*Admission),
		discharges: make(map[uuid.UUID]*DischargeRecord),
	}
}

func (m *mockAdmissionRepo) Create(_ context.Context, a *Admission) error {
	if m.createErr != nil {
		return m.createErr
	}
	a.ID = uuid.New()
	m.admissions[a.ID] = a
	return nil
}

func (m *mockAdmissionRepo) GetByID(_ context.Context, id uuid.UUID) (*Admission, error) {
	a, ok := m.admissions[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return a, nil
}

func (m *mockAdmissionRepo) GetActiveByPatient(_ context.Context, patientID uuid.UUID) (*Admission, error) {
	for _, a := range m.admissions {
		if a.PatientID == patientID && a.Status == AdmissionActive {
			return a, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockAdmissionRepo) Update(_ context.Context, a *Admission) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.admissions[a.ID] = a
	return nil
}

func (m *mockAdmissionRepo) List(_ context.Context, status string, limit, offset int) ([]*Admission, int, error) {
	var result []*Admission
	for _, a := range m.admissions {
		if status == "" || a.Status == status {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockAdmissionRepo) AddTransfer(_ context.Context, t *TransferRecord) error {
	t.ID = uuid.New()
	m.transfers = append(m.transfers, *t)
	return nil
}

func (m *mockAdmissionRepo) ListTransfers(_ context.Context, admissionID uuid.UUID) ([]TransferRecord, error) {
	var result []TransferRecord
	for _, t := range m.transfers {
		if t.AdmissionID == admissionID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *mockAdmissionRepo) SetDischarge(_ context.Context, d *DischargeRecord) error {
	m.discharges[d.AdmissionID] = d
	return nil
}

func (m *mockAdmissionRepo) GetDischarge(_ context.Context, admissionID uuid.UUID) (*DischargeRecord, error) {
	d, ok := m.discharges[admissionID]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return d, nil
}

type recordedAction struct {
	action string
}

type mockAudit struct {
	actions []recordedAction
}

func (m *mockAudit) RecordAction(_ context.Context, action, _, _ string, _ map[string]string) error {
	m.actions = append(m.actions, recordedAction{action: action})
	return nil
}

type fixture struct {
	svc   *Service
	beds  *mockBedRepo
	adms  *mockAdmissionRepo
	audit *mockAudit
	ward  *Ward
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	beds := newMockBedRepo()
	wards := newMockWardRepo(beds)
	adms := newMockAdmissionRepo()
	audit := &mockAudit{}
	svc := NewService(wards, beds, adms, audit)

	ward := &Ward{Name: "Medical Ward A", WardType: "general", Capacity: 20}
	if err := svc.CreateWard(context.Background(), ward); err != nil {
		t.Fatalf("create ward: %v", err)
	}
	return &fixture{svc: svc, beds: beds, adms: adms, audit: audit, ward: ward}
}

func (f *fixture) newBed(t *testing.T, status string) *Bed {
	t.Helper()
	b := &Bed{WardID: f.ward.ID, Label: fmt.Sprintf("A-%d", len(f.beds.beds)+1), Status: status}
	if err := f.svc.CreateBed(context.Background(), b); err != nil {
		t.Fatalf("create bed: %v", err)
	}
	return b
}

func (f *fixture) admit(t *testing.T, bed *Bed) *Admission {
	t.Helper()
	a := &Admission{PatientID: uuid.New(), BedID: bed.ID, PhysicianID: uuid.New()}
	if err := f.svc.Admit(context.Background(), a); err != nil {
		t.Fatalf("admit: %v", err)
	}
	return a
}

func TestAdmit_OccupiesBed(t *testing.T) {
	f := newFixture(t)
	bed := f.newBed(t, BedAvailable)
	a := f.admit(t, bed)

	if a.Status != AdmissionActive {
		t.Errorf("expected active admission, got %s", a.Status)
	}
	if f.beds.beds[bed.ID].Status != BedOccupied {
		t.Errorf("expected bed occupied, got %s", f.beds.beds[bed.ID].Status)
	}
	if a.AdmittedAt.IsZero() {
		t.Error("expected admitted_at to be set")
	}
}

func TestAdmit_ReservedBedAllowed(t *testing.T) {
	f := newFixture(t)
	bed := f.newBed(t, BedReserved)
	f.admit(t, bed)
}

func TestAdmit_OccupiedBedRejected(t *testing.T) {
	f := newFixture(t)
	bed := f.newBed(t, BedAvailable)
	f.admit(t, bed)

	second := &Admission{PatientID: uuid.New(), BedID: bed.ID, PhysicianID: uuid.New()}
	err := f.svc.Admit(context.Background(), second)
	if !errors.Is(err, ErrBedUnavailable) {
		t.Errorf("expected ErrBedUnavailable, got %v", err)
	}
}

func TestAdmit_CleaningBedRejected(t *testing.T) {
	f := newFixture(t)
	bed := f.newBed(t, BedCleaning)
	a := &Admission{PatientID: uuid.New(), BedID: bed.ID, PhysicianID: uuid.New()}
	if err := f.svc.Admit(context.Background(), a); !errors.Is(err, ErrBedUnavailable) {
		t.Errorf("expected ErrBedUnavailable, got %v", err)
	}
}

func TestAdmit_PatientAlreadyAdmitted(t *testing.T) {
	f := newFixture(t)
	bed1 := f.newBed(t, BedAvailable)
	bed2 := f.newBed(t, BedAvailable)
	a := f.admit(t, bed1)

	again := &Admission{PatientID: a.PatientID, BedID: bed2.ID, PhysicianID: uuid.New()}
	if err := f.svc.Admit(context.Background(), again); !errors.Is(err, ErrAlreadyAdmitted) {
		t.Errorf("expected ErrAlreadyAdmitted, got %v", err)
	}
	// The losing admit must not have claimed the second bed.
	if f.beds.beds[bed2.ID].Status != BedAvailable {
		t.Errorf("expected second bed untouched, got %s", f.beds.beds[bed2.ID].Status)
	}
}

func TestAdmit_FailedInsertRestoresReservation(t *testing.T) {
	f := newFixture(t)
	bed := f.newBed(t, BedReserved)
	f.adms.createErr = errors.New("insert failed")

	a := &Admission{PatientID: uuid.New(), BedID: bed.ID, PhysicianID: uuid.New()}
	if err := f.svc.Admit(context.Background(), a); err == nil {
		t.Fatal("expected admit to fail")
	}
	// The rollback must restore the reservation, not free the bed.
	if got := f.beds.beds[bed.ID].Status; got != BedReserved {
		t.Errorf("expected bed back to reserved, got %s", got)
	}
}

func TestTransfer_FailedUpdateRestoresReservation(t *testing.T) {
	f := newFixture(t)
	bed1 := f.newBed(t, BedAvailable)
	bed2 := f.newBed(t, BedReserved)
	a := f.admit(t, bed1)

	f.adms.updateErr = errors.New("update failed")
	if err := f.svc.Transfer(context.Background(), a.ID, bed2.ID, "", nil); err == nil {
		t.Fatal("expected transfer to fail")
	}
	if got := f.beds.beds[bed2.ID].Status; got != BedReserved {
		t.Errorf("expected target bed back to reserved, got %s", got)
	}
	if got := f.beds.beds[bed1.ID].Status; got != BedOccupied {
		t.Errorf("expected patient still in original bed, got %s", got)
	}
	if a.BedID != bed1.ID {
		t.Error("expected admission to still reference the original bed")
	}
}

func TestTransfer_OldBedGoesToCleaning(t *testing.T) {
	f := newFixture(t)
	bed1 := f.newBed(t, BedAvailable)
	bed2 := f.newBed(t, BedAvailable)
	a := f.admit(t, bed1)

	if err := f.svc.Transfer(context.Background(), a.ID, bed2.ID, "closer to nurses station", nil); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := f.beds.beds[bed1.ID].Status; got != BedCleaning {
		t.Errorf("expected old bed cleaning, got %s", got)
	}
	if got := f.beds.beds[bed2.ID].Status; got != BedOccupied {
		t.Errorf("expected new bed occupied, got %s", got)
	}

	transfers, _ := f.adms.ListTransfers(context.Background(), a.ID)
	if len(transfers) != 1 {
		t.Fatalf("expected one transfer record, got %d", len(transfers))
	}
	if transfers[0].FromBedID != bed1.ID || transfers[0].ToBedID != bed2.ID {
		t.Error("transfer record bed ids wrong")
	}
}

func TestTransfer_TargetOccupiedRejected(t *testing.T) {
	f := newFixture(t)
	bed1 := f.newBed(t, BedAvailable)
	bed2 := f.newBed(t, BedAvailable)
	a := f.admit(t, bed1)
	f.admit(t, bed2)

	if err := f.svc.Transfer(context.Background(), a.ID, bed2.ID, "", nil); !errors.Is(err, ErrBedUnavailable) {
		t.Errorf("expected ErrBedUnavailable, got %v", err)
	}
	// Failed transfer leaves the patient where they were.
	if f.beds.beds[bed1.ID].Status != BedOccupied {
		t.Error("expected original bed still occupied")
	}
}

func TestDischarge_BedGoesToCleaning(t *testing.T) {
	f := newFixture(t)
	bed := f.newBed(t, BedAvailable)
	a := f.admit(t, bed)

	by := uuid.New()
	if err := f.svc.Discharge(context.Background(), a.ID, "home", "stable", &by); err != nil {
		t.Fatalf("discharge: %v", err)
	}
	if f.beds.beds[bed.ID].Status != BedCleaning {
		t.Errorf("expected bed cleaning after discharge, got %s", f.beds.beds[bed.ID].Status)
	}
	if a.Status != AdmissionDischarged {
		t.Errorf("expected discharged, got %s", a.Status)
	}
	d, err := f.adms.GetDischarge(context.Background(), a.ID)
	if err != nil || d.Disposition != "home" {
		t.Errorf("expected discharge record, got %v (err %v)", d, err)
	}
}

func TestDischarge_TwiceRejected(t *testing.T) {
	f := newFixture(t)
	bed := f.newBed(t, BedAvailable)
	a := f.admit(t, bed)

	if err := f.svc.Discharge(context.Background(), a.ID, "home", "", nil); err != nil {
		t.Fatalf("first discharge: %v", err)
	}
	if err := f.svc.Discharge(context.Background(), a.ID, "home", "", nil); !errors.Is(err, ErrNotActive) {
		t.Errorf("expected ErrNotActive, got %v", err)
	}
}

func TestDischarge_RequiresDisposition(t *testing.T) {
	f := newFixture(t)
	bed := f.newBed(t, BedAvailable)
	a := f.admit(t, bed)
	if err := f.svc.Discharge(context.Background(), a.ID, "", "", nil); err == nil {
		t.Error("expected error for missing disposition")
	}
}

func TestSetBedStatus_OccupiedRejected(t *testing.T) {
	f := newFixture(t)
	bed := f.newBed(t, BedAvailable)
	if err := f.svc.SetBedStatus(context.Background(), bed.ID, BedOccupied); !errors.Is(err, ErrOccupiedReserved) {
		t.Errorf("expected ErrOccupiedReserved, got %v", err)
	}
}

func TestSetBedStatus_OccupiedBedUntouchable(t *testing.T) {
	f := newFixture(t)
	bed := f.newBed(t, BedAvailable)
	f.admit(t, bed)
	if err := f.svc.SetBedStatus(context.Background(), bed.ID, BedCleaning); !errors.Is(err, ErrOccupiedReserved) {
		t.Errorf("expected ErrOccupiedReserved, got %v", err)
	}
}

func TestSetBedStatus_CleaningToAvailable(t *testing.T) {
	f := newFixture(t)
	bed := f.newBed(t, BedCleaning)
	if err := f.svc.SetBedStatus(context.Background(), bed.ID, BedAvailable); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.beds.beds[bed.ID].Status != BedAvailable {
		t.Error("expected bed available after cleaning")
	}
}

func TestWardCensus(t *testing.T) {
	f := newFixture(t)
	f.newBed(t, BedAvailable)
	f.newBed(t, BedAvailable)
	bed := f.newBed(t, BedAvailable)
	f.newBed(t, BedCleaning)
	f.admit(t, bed)

	c, err := f.svc.WardCensus(context.Background(), f.ward.ID)
	if err != nil {
		t.Fatalf("census: %v", err)
	}
	if c.Total != 4 || c.Occupied != 1 || c.Available != 2 || c.ByStatus[BedCleaning] != 1 {
		t.Errorf("unexpected census: %+v", c)
	}
}

func TestAdmissionLifecycle_Audited(t *testing.T) {
	f := newFixture(t)
	bed1 := f.newBed(t, BedAvailable)
	bed2 := f.newBed(t, BedAvailable)
	a := f.admit(t, bed1)
	f.svc.Transfer(context.Background(), a.ID, bed2.ID, "", nil)
	f.svc.Discharge(context.Background(), a.ID, "home", "", nil)

	want := []string{"admit", "transfer", "discharge"}
	if len(f.audit.actions) != len(want) {
		t.Fatalf("expected %d audit actions, got %d", len(want), len(f.audit.actions))
	}
	for i, w := range want {
		if f.audit.actions[i].action != w {
			t.Errorf("audit action %d: expected %s, got %s", i, w, f.audit.actions[i].action)
		}
	}
}
