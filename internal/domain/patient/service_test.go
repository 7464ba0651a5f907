package patient

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockRepo) GetByMRN(_ context.Context, mrn string) (*Patient, error) {
	for _, p := range m.patients {
		if p.MRN == mrn {
			return p, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		result = append(result, p)
	}
	return result, len(result), nil
}

func (m *mockRepo) Search(_ context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		if strings.Contains(strings.ToLower(p.LastName), strings.ToLower(query)) || strings.Contains(p.MRN, query) {
			result = append(result, p)
		}
	}
	return result, len(result), nil
}

func newTestService() *Service {
	return NewService(newMockRepo())
}

func TestCreate_GeneratesMRN(t *testing.T) {
	svc := newTestService()
	p := &Patient{FirstName: "Ada", LastName: "Okafor", PaymentType: PaymentCash}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(p.MRN, "MRN-") || len(p.MRN) != 12 {
		t.Errorf("unexpected MRN format: %q", p.MRN)
	}
	if p.MRN != strings.ToUpper(p.MRN) {
		t.Errorf("expected uppercase MRN, got %q", p.MRN)
	}
}

func TestCreate_KeepsProvidedMRN(t *testing.T) {
	svc := newTestService()
	p := &Patient{FirstName: "Ada", LastName: "Okafor", PaymentType: PaymentCash, MRN: "MRN-LEGACY01"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.MRN != "MRN-LEGACY01" {
		t.Errorf("expected MRN preserved, got %q", p.MRN)
	}
}

func TestCreate_DuplicateMRNRejected(t *testing.T) {
	svc := newTestService()
	first := &Patient{LastName: "One", PaymentType: PaymentCash, MRN: "MRN-SAME0001"}
	if err := svc.Create(context.Background(), first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := &Patient{LastName: "Two", PaymentType: PaymentCash, MRN: "MRN-SAME0001"}
	if err := svc.Create(context.Background(), second); err == nil {
		t.Error("expected duplicate MRN error")
	}
}

func TestCreate_InsuranceRequiresFields(t *testing.T) {
	svc := newTestService()
	p := &Patient{LastName: "Bello", PaymentType: PaymentInsurance}
	if err := svc.Create(context.Background(), p); err == nil {
		t.Error("expected error for missing insurance info")
	}

	p.InsuranceInfo = &Insurance{Provider: "NHIS", PolicyNumber: "POL-1234"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Errorf("unexpected error with insurance info: %v", err)
	}
}

func TestCreate_CashDropsInsuranceInfo(t *testing.T) {
	svc := newTestService()
	p := &Patient{LastName: "Musa", PaymentType: PaymentCash,
		InsuranceInfo: &Insurance{Provider: "stale", PolicyNumber: "stale"}}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.InsuranceInfo != nil {
		t.Error("expected insurance info cleared for cash patient")
	}
}

func TestCreate_UnknownPaymentType(t *testing.T) {
	svc := newTestService()
	p := &Patient{LastName: "Eze", PaymentType: "barter"}
	if err := svc.Create(context.Background(), p); err == nil {
		t.Error("expected error for unknown payment type")
	}
}

func TestUpdate_MRNImmutable(t *testing.T) {
	svc := newTestService()
	p := &Patient{LastName: "Okafor", PaymentType: PaymentCash}
	svc.Create(context.Background(), p)
	original := p.MRN

	upd := &Patient{ID: p.ID, LastName: "Okafor-Smith", PaymentType: PaymentCash, MRN: "MRN-HACKED00"}
	if err := svc.Update(context.Background(), upd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upd.MRN != original {
		t.Errorf("expected MRN %q preserved, got %q", original, upd.MRN)
	}
}

func TestUpdate_SwitchToInsuranceNeedsFields(t *testing.T) {
	svc := newTestService()
	p := &Patient{LastName: "Ibrahim", PaymentType: PaymentCash}
	svc.Create(context.Background(), p)

	upd := &Patient{ID: p.ID, LastName: "Ibrahim", PaymentType: PaymentInsurance}
	if err := svc.Update(context.Background(), upd); err == nil {
		t.Error("expected error switching to insurance without coverage fields")
	}
}

func TestGenerateMRN_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		mrn := GenerateMRN()
		if seen[mrn] {
			t.Fatalf("duplicate MRN generated: %s", mrn)
		}
		seen[mrn] = true
	}
}
