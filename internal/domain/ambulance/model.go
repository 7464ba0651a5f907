package ambulance

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle statuses.
const (
	VehicleAvailable   = "available"
	VehicleInUse       = "in_use"
	VehicleMaintenance = "maintenance"
)

// Request statuses, in order. The state machine only walks forward;
// cancelled is reachable from any non-terminal state.
const (
	StatusRequested  = "requested"
	StatusApproved   = "approved"
	StatusDispatched = "dispatched"
	StatusEnRoute    = "en_route"
	StatusArrived    = "arrived"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// statusOrder gives each forward state its rank. Cancelled sits outside the
// ordering.
var statusOrder = map[string]int{
	StatusRequested:  0,
	StatusApproved:   1,
	StatusDispatched: 2,
	StatusEnRoute:    3,
	StatusArrived:    4,
	StatusCompleted:  5,
}

// CanAdvance reports whether a request may move from one status to the
// next. Only single forward steps are allowed; completed and cancelled are
// terminal.
func CanAdvance(from, to string) bool {
	if from == StatusCompleted || from == StatusCancelled {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	fromRank, ok := statusOrder[from]
	if !ok {
		return false
	}
	toRank, ok := statusOrder[to]
	if !ok {
		return false
	}
	return toRank == fromRank+1
}

// Vehicle maps to the ambulance_vehicles table.
type Vehicle struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Registration string    `db:"registration" json:"registration"`
	VehicleType  string    `db:"vehicle_type" json:"vehicle_type"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Request maps to the ambulance_requests table.
type Request struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	PatientID      *uuid.UUID      `db:"patient_id" json:"patient_id,omitempty"`
	RequestedBy    uuid.UUID       `db:"requested_by" json:"requested_by"`
	PickupLocation string          `db:"pickup_location" json:"pickup_location"`
	Destination    string          `db:"destination" json:"destination"`
	Priority       string          `db:"priority" json:"priority"`
	Reason         *string         `db:"reason" json:"reason,omitempty"`
	VehicleID      *uuid.UUID      `db:"vehicle_id" json:"vehicle_id,omitempty"`
	Status         string          `db:"status" json:"status"`
	History        []StatusHistory `db:"-" json:"history,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// StatusHistory maps to the ambulance_status_history table.
type StatusHistory struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	RequestID uuid.UUID  `db:"request_id" json:"request_id"`
	Status    string     `db:"status" json:"status"`
	ChangedBy *uuid.UUID `db:"changed_by" json:"changed_by,omitempty"`
	ChangedAt time.Time  `db:"changed_at" json:"changed_at"`
	Note      *string    `db:"note" json:"note,omitempty"`
}
