package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("patient not found")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GenerateMRN derives a medical record number from fresh uuid entropy.
func GenerateMRN() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "MRN-" + strings.ToUpper(raw[:8])
}

func validatePayment(p *Patient) error {
	switch p.PaymentType {
	case PaymentCash:
		return nil
	case PaymentInsurance:
		if p.InsuranceInfo == nil || p.InsuranceInfo.Provider == "" || p.InsuranceInfo.PolicyNumber == "" {
			return fmt.Errorf("insurance provider and policy number are required for insurance patients")
		}
		return nil
	case "":
		return fmt.Errorf("payment_type is required")
	default:
		return fmt.Errorf("unknown payment_type %q", p.PaymentType)
	}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.FirstName == "" && p.LastName == "" {
		return fmt.Errorf("patient name is required")
	}
	if err := validatePayment(p); err != nil {
		return err
	}
	if p.MRN == "" {
		p.MRN = GenerateMRN()
	} else if existing, err := s.repo.GetByMRN(ctx, p.MRN); err == nil && existing != nil {
		return fmt.Errorf("mrn %s already assigned", p.MRN)
	}
	if p.PaymentType == PaymentCash {
		p.InsuranceInfo = nil
	}
	p.Active = true
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	current, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return ErrNotFound
	}
	// MRN is immutable once assigned.
	p.MRN = current.MRN
	if p.PaymentType == "" {
		p.PaymentType = current.PaymentType
		if p.InsuranceInfo == nil {
			p.InsuranceInfo = current.InsuranceInfo
		}
	}
	if err := validatePayment(p); err != nil {
		return err
	}
	if p.PaymentType == PaymentCash {
		p.InsuranceInfo = nil
	}
	p.Active = current.Active
	return s.repo.Update(ctx, p)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	if strings.TrimSpace(query) == "" {
		return s.repo.List(ctx, limit, offset)
	}
	return s.repo.Search(ctx, query, limit, offset)
}
