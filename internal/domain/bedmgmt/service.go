package bedmgmt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrBedUnavailable   = errors.New("bed is not available")
	ErrAlreadyAdmitted  = errors.New("patient already has an active admission")
	ErrNotActive        = errors.New("admission is not active")
	ErrOccupiedReserved = errors.New("occupied status is controlled by admissions")
)

// AuditSink records admission lifecycle events for the compliance trail.
type AuditSink interface {
	RecordAction(ctx context.Context, action, resourceType, resourceID string, detail map[string]string) error
}

type Service struct {
	wards      WardRepository
	beds       BedRepository
	admissions AdmissionRepository
	audit      AuditSink
}

func NewService(wards WardRepository, beds BedRepository, admissions AdmissionRepository, audit AuditSink) *Service {
	return &Service{wards: wards, beds: beds, admissions: admissions, audit: audit}
}

// -- Wards --

func (s *Service) CreateWard(ctx context.Context, w *Ward) error {
	if w.Name == "" {
		return fmt.Errorf("name is required")
	}
	if w.Capacity < 0 {
		return fmt.Errorf("capacity cannot be negative")
	}
	if w.WardType == "" {
		w.WardType = "general"
	}
	return s.wards.Create(ctx, w)
}

func (s *Service) GetWard(ctx context.Context, id uuid.UUID) (*Ward, error) {
	w, err := s.wards.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return w, nil
}

func (s *Service) UpdateWard(ctx context.Context, w *Ward) error {
	if _, err := s.wards.GetByID(ctx, w.ID); err != nil {
		return ErrNotFound
	}
	return s.wards.Update(ctx, w)
}

func (s *Service) ListWards(ctx context.Context, limit, offset int) ([]*Ward, int, error) {
	return s.wards.List(ctx, limit, offset)
}

func (s *Service) WardCensus(ctx context.Context, wardID uuid.UUID) (*Census, error) {
	c, err := s.wards.Census(ctx, wardID)
	if err != nil {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *Service) CensusDashboard(ctx context.Context) ([]*Census, error) {
	return s.wards.CensusAll(ctx)
}

// -- Beds --

func (s *Service) CreateBed(ctx context.Context, b *Bed) error {
	if b.WardID == uuid.Nil {
		return fmt.Errorf("ward_id is required")
	}
	if b.Label == "" {
		return fmt.Errorf("label is required")
	}
	if _, err := s.wards.GetByID(ctx, b.WardID); err != nil {
		return ErrNotFound
	}
	if b.Status == "" {
		b.Status = BedAvailable
	}
	if !directSettable(b.Status) {
		return fmt.Errorf("new bed status %q not allowed", b.Status)
	}
	return s.beds.Create(ctx, b)
}

func (s *Service) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	b, err := s.beds.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *Service) ListBedsByWard(ctx context.Context, wardID uuid.UUID) ([]*Bed, error) {
	return s.beds.ListByWard(ctx, wardID)
}

func (s *Service) ListBeds(ctx context.Context, status string, limit, offset int) ([]*Bed, int, error) {
	return s.beds.ListByStatus(ctx, status, limit, offset)
}

// SetBedStatus handles housekeeping transitions (cleaning done, bed sent to
// maintenance, reservation). It refuses occupied, and refuses to touch a bed
// that currently holds a patient.
func (s *Service) SetBedStatus(ctx context.Context, id uuid.UUID, status string) error {
	if status == BedOccupied {
		return ErrOccupiedReserved
	}
	if !directSettable(status) {
		return fmt.Errorf("unknown bed status %q", status)
	}
	b, err := s.beds.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if b.Status == BedOccupied {
		return fmt.Errorf("%w: discharge or transfer the patient first", ErrOccupiedReserved)
	}
	return s.beds.SetStatus(ctx, id, status)
}

// -- Admissions --

// Admit places a patient in a bed. The bed must be available or reserved
// and the patient must not already be admitted; the conditional bed claim
// decides races between concurrent admits.
func (s *Service) Admit(ctx context.Context, a *Admission) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.BedID == uuid.Nil {
		return fmt.Errorf("bed_id is required")
	}
	if a.PhysicianID == uuid.Nil {
		return fmt.Errorf("physician_id is required")
	}
	if existing, err := s.admissions.GetActiveByPatient(ctx, a.PatientID); err == nil && existing != nil {
		return ErrAlreadyAdmitted
	}

	prevStatus, claimed, err := s.beds.Claim(ctx, a.BedID, admittableStatuses)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrBedUnavailable
	}

	a.Status = AdmissionActive
	if a.AdmittedAt.IsZero() {
		a.AdmittedAt = time.Now()
	}
	if err := s.admissions.Create(ctx, a); err != nil {
		// Put the bed back in its pre-claim state so a failed insert does
		// not strand it occupied or drop a reservation.
		_ = s.beds.SetStatus(ctx, a.BedID, prevStatus)
		return err
	}
	s.record(ctx, "admit", a.ID, map[string]string{
		"patient_id": a.PatientID.String(),
		"bed_id":     a.BedID.String(),
	})
	return nil
}

func (s *Service) GetAdmission(ctx context.Context, id uuid.UUID) (*Admission, error) {
	a, err := s.admissions.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *Service) ListAdmissions(ctx context.Context, status string, limit, offset int) ([]*Admission, int, error) {
	return s.admissions.List(ctx, status, limit, offset)
}

// Transfer moves an active admission to a new bed. The old bed goes to
// cleaning, never straight back to available.
func (s *Service) Transfer(ctx context.Context, admissionID, toBedID uuid.UUID, reason string, movedBy *uuid.UUID) error {
	a, err := s.admissions.GetByID(ctx, admissionID)
	if err != nil {
		return ErrNotFound
	}
	if a.Status != AdmissionActive {
		return ErrNotActive
	}
	if toBedID == a.BedID {
		return fmt.Errorf("patient is already in that bed")
	}

	prevStatus, claimed, err := s.beds.Claim(ctx, toBedID, admittableStatuses)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrBedUnavailable
	}

	fromBed := a.BedID
	a.BedID = toBedID
	if err := s.admissions.Update(ctx, a); err != nil {
		a.BedID = fromBed
		_ = s.beds.SetStatus(ctx, toBedID, prevStatus)
		return err
	}
	if err := s.beds.SetStatus(ctx, fromBed, BedCleaning); err != nil {
		return err
	}

	t := &TransferRecord{
		AdmissionID: a.ID,
		FromBedID:   fromBed,
		ToBedID:     toBedID,
		MovedBy:     movedBy,
		MovedAt:     time.Now(),
	}
	if reason != "" {
		t.Reason = &reason
	}
	if err := s.admissions.AddTransfer(ctx, t); err != nil {
		return err
	}
	s.record(ctx, "transfer", a.ID, map[string]string{
		"from_bed": fromBed.String(),
		"to_bed":   toBedID.String(),
	})
	return nil
}

// Discharge ends an active admission. Terminal: a second discharge is a
// conflict. The vacated bed goes to cleaning.
func (s *Service) Discharge(ctx context.Context, admissionID uuid.UUID, disposition, note string, by *uuid.UUID) error {
	a, err := s.admissions.GetByID(ctx, admissionID)
	if err != nil {
		return ErrNotFound
	}
	if a.Status != AdmissionActive {
		return ErrNotActive
	}
	if disposition == "" {
		return fmt.Errorf("disposition is required")
	}

	a.Status = AdmissionDischarged
	if err := s.admissions.Update(ctx, a); err != nil {
		return err
	}
	if err := s.beds.SetStatus(ctx, a.BedID, BedCleaning); err != nil {
		return err
	}

	d := &DischargeRecord{
		AdmissionID:  a.ID,
		Disposition:  disposition,
		DischargedBy: by,
		DischargedAt: time.Now(),
	}
	if note != "" {
		d.Note = &note
	}
	if err := s.admissions.SetDischarge(ctx, d); err != nil {
		return err
	}
	s.record(ctx, "discharge", a.ID, map[string]string{
		"patient_id":  a.PatientID.String(),
		"disposition": disposition,
	})
	return nil
}

func (s *Service) record(ctx context.Context, action string, id uuid.UUID, detail map[string]string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.RecordAction(ctx, action, "admission", id.String(), detail)
}
