package lab

import (
	"time"

	"github.com/google/uuid"
)

// Lab order statuses. The workflow only moves forward one step at a time;
// cancellation is allowed from any non-terminal status.
const (
	StatusOrdered    = "ordered"
	StatusCollected  = "collected"
	StatusInProgress = "in_progress"
	StatusResulted   = "resulted"
	StatusCancelled  = "cancelled"
)

// Order priorities.
const (
	PriorityRoutine = "routine"
	PriorityUrgent  = "urgent"
	PriorityStat    = "stat"
)

// statusOrder ranks the workflow statuses for the forward-only check.
var statusOrder = map[string]int{
	StatusOrdered:    0,
	StatusCollected:  1,
	StatusInProgress: 2,
	StatusResulted:   3,
}

// CanAdvance reports whether an order may move from one status to the
// next. Only single forward steps are allowed; cancel works from any
// non-terminal status.
func CanAdvance(from, to string) bool {
	if to == StatusCancelled {
		return from != StatusResulted && from != StatusCancelled
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

// Order maps to the lab_orders table.
type Order struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	OrderedBy   uuid.UUID `db:"ordered_by" json:"ordered_by"`
	TestCode    string    `db:"test_code" json:"test_code"`
	TestName    string    `db:"test_name" json:"test_name"`
	Priority    string    `db:"priority" json:"priority"`
	Status      string    `db:"status" json:"status"`
	Note        *string   `db:"note" json:"note,omitempty"`
	Results     []Result  `db:"-" json:"results,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Result maps to the lab_results table. Rows attach when the order is
// resulted.
type Result struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrderID        uuid.UUID `db:"order_id" json:"order_id"`
	Analyte        string    `db:"analyte" json:"analyte"`
	Value          string    `db:"value" json:"value"`
	Unit           *string   `db:"unit" json:"unit,omitempty"`
	ReferenceRange *string   `db:"reference_range" json:"reference_range,omitempty"`
	Abnormal       bool      `db:"abnormal" json:"abnormal"`
	ResultedAt     time.Time `db:"resulted_at" json:"resulted_at"`
}
