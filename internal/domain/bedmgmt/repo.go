package bedmgmt

import (
	"context"

	"github.com/google/uuid"
)

type WardRepository interface {
	Create(ctx context.Context, w *Ward) error
	GetByID(ctx context.Context, id uuid.UUID) (*Ward, error)
	Update(ctx context.Context, w *Ward) error
	List(ctx context.Context, limit, offset int) ([]*Ward, int, error)
	Census(ctx context.Context, wardID uuid.UUID) (*Census, error)
	CensusAll(ctx context.Context) ([]*Census, error)
}

type BedRepository interface {
	Create(ctx context.Context, b *Bed) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bed, error)
	ListByWard(ctx context.Context, wardID uuid.UUID) ([]*Bed, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Bed, int, error)
	// Claim atomically moves the bed to occupied if its current status is
	// one of fromStatuses, returning the status the bed held before the
	// claim so a failed admission can restore it. claimed=false means the
	// bed was not claimable, which is how concurrent admissions lose the
	// race.
	Claim(ctx context.Context, id uuid.UUID, fromStatuses []string) (prev string, claimed bool, err error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

type AdmissionRepository interface {
	Create(ctx context.Context, a *Admission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Admission, error)
	GetActiveByPatient(ctx context.Context, patientID uuid.UUID) (*Admission, error)
	Update(ctx context.Context, a *Admission) error
	List(ctx context.Context, status string, limit, offset int) ([]*Admission, int, error)
	AddTransfer(ctx context.Context, t *TransferRecord) error
	ListTransfers(ctx context.Context, admissionID uuid.UUID) ([]TransferRecord, error)
	SetDischarge(ctx context.Context, d *DischargeRecord) error
	GetDischarge(ctx context.Context, admissionID uuid.UUID) (*DischargeRecord, error)
}
