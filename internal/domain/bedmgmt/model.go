package bedmgmt

import (
	"time"

	"github.com/google/uuid"
)

// Bed statuses. Occupied is owned by the admission lifecycle; every other
// status can be set directly by bed managers. A vacated bed always goes to
// cleaning before it can be available again.
const (
	BedAvailable   = "available"
	BedOccupied    = "occupied"
	BedCleaning    = "cleaning"
	BedReserved    = "reserved"
	BedIsolation   = "isolation"
	BedMaintenance = "maintenance"
)

// Admission statuses.
const (
	AdmissionActive     = "active"
	AdmissionDischarged = "discharged"
)

// Ward maps to the wards table.
type Ward struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	WardType   string     `db:"ward_type" json:"ward_type"`
	LocationID *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	Capacity   int        `db:"capacity" json:"capacity"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Bed maps to the beds table.
type Bed struct {
	ID        uuid.UUID `db:"id" json:"id"`
	WardID    uuid.UUID `db:"ward_id" json:"ward_id"`
	Label     string    `db:"label" json:"label"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Admission maps to the admissions table. Transfers and the discharge
// record load from their own tables.
type Admission struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	PatientID   uuid.UUID        `db:"patient_id" json:"patient_id"`
	BedID       uuid.UUID        `db:"bed_id" json:"bed_id"`
	PhysicianID uuid.UUID        `db:"physician_id" json:"physician_id"`
	Diagnosis   *string          `db:"diagnosis" json:"diagnosis,omitempty"`
	Status      string           `db:"status" json:"status"`
	AdmittedAt  time.Time        `db:"admitted_at" json:"admitted_at"`
	Transfers   []TransferRecord `db:"-" json:"transfers,omitempty"`
	Discharge   *DischargeRecord `db:"-" json:"discharge,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// TransferRecord maps to the admission_transfers table.
type TransferRecord struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	AdmissionID uuid.UUID  `db:"admission_id" json:"admission_id"`
	FromBedID   uuid.UUID  `db:"from_bed_id" json:"from_bed_id"`
	ToBedID     uuid.UUID  `db:"to_bed_id" json:"to_bed_id"`
	Reason      *string    `db:"reason" json:"reason,omitempty"`
	MovedBy     *uuid.UUID `db:"moved_by" json:"moved_by,omitempty"`
	MovedAt     time.Time  `db:"moved_at" json:"moved_at"`
}

// DischargeRecord maps to the admission_discharges table.
type DischargeRecord struct {
	AdmissionID  uuid.UUID  `db:"admission_id" json:"admission_id"`
	Disposition  string     `db:"disposition" json:"disposition"`
	Note         *string    `db:"note" json:"note,omitempty"`
	DischargedBy *uuid.UUID `db:"discharged_by" json:"discharged_by,omitempty"`
	DischargedAt time.Time  `db:"discharged_at" json:"discharged_at"`
}

// Census summarizes bed occupancy for one ward.
type Census struct {
	WardID      uuid.UUID      `json:"ward_id"`
	WardName    string         `json:"ward_name"`
	Total       int            `json:"total"`
	Occupied    int            `json:"occupied"`
	Available   int            `json:"available"`
	ByStatus    map[string]int `json:"by_status"`
	OccupancyPc float64        `json:"occupancy_pct"`
}

// admittableStatuses are the bed states an admission or transfer may claim.
var admittableStatuses = []string{BedAvailable, BedReserved}

// directSettable reports whether bed managers may set the status by hand.
// Occupied is excluded: only admit/transfer/discharge own that state.
func directSettable(status string) bool {
	switch status {
	case BedAvailable, BedCleaning, BedReserved, BedIsolation, BedMaintenance:
		return true
	}
	return false
}
