package radiology

import (
	"time"

	"github.com/google/uuid"
)

// Imaging order statuses. The workflow moves forward one step at a time;
// cancellation is allowed up until the study completes.
const (
	StatusOrdered    = "ordered"
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Report statuses. Finalizing is one-way: a final report can no longer be
// edited.
const (
	ReportPreliminary = "preliminary"
	ReportFinal       = "final"
)

// Supported modalities.
const (
	ModalityXR = "XR"
	ModalityCT = "CT"
	ModalityMR = "MR"
	ModalityUS = "US"
)

func validModality(m string) bool {
	switch m {
	case ModalityXR, ModalityCT, ModalityMR, ModalityUS:
		return true
	}
	return false
}

var statusOrder = map[string]int{
	StatusOrdered:    0,
	StatusScheduled:  1,
	StatusInProgress: 2,
	StatusCompleted:  3,
}

// CanAdvance reports whether an order may move from one status to the
// next workflow step, or be cancelled.
func CanAdvance(from, to string) bool {
	if to == StatusCancelled {
		return from != StatusCompleted && from != StatusCancelled
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

// Order maps to the imaging_orders table.
type Order struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	OrderedBy uuid.UUID `db:"ordered_by" json:"ordered_by"`
	Modality  string    `db:"modality" json:"modality"`
	BodySite  string    `db:"body_site" json:"body_site"`
	Status    string    `db:"status" json:"status"`
	Note      *string   `db:"note" json:"note,omitempty"`
	Report    *Report   `db:"-" json:"report,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Report maps to the radiology_reports table. One report per order.
type Report struct {
	ID            uuid.UUID `db:"id" json:"id"`
	OrderID       uuid.UUID `db:"order_id" json:"order_id"`
	RadiologistID uuid.UUID `db:"radiologist_id" json:"radiologist_id"`
	Findings      string    `db:"findings" json:"findings"`
	Impression    string    `db:"impression" json:"impression"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
