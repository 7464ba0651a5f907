package pharmacy

import (
	"time"

	"github.com/google/uuid"
)

// Prescription statuses. Completed and cancelled are terminal.
const (
	StatusActive    = "active"
	StatusOnHold    = "on_hold"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Common administration routes. The route field is free text but these
// cover the usual orders.
const (
	RouteOral        = "oral"
	RouteIntravenous = "intravenous"
	RouteTopical     = "topical"
	RouteInhalation  = "inhalation"
)

// Prescription maps to the prescriptions table. Quantity is the amount per
// fill; refills is the number of additional fills allowed after the first.
type Prescription struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	PrescriberID   uuid.UUID `db:"prescriber_id" json:"prescriber_id"`
	MedicationCode string    `db:"medication_code" json:"medication_code"`
	MedicationName string    `db:"medication_name" json:"medication_name"`
	Dose           string    `db:"dose" json:"dose"`
	Route          string    `db:"route" json:"route"`
	Frequency      string    `db:"frequency" json:"frequency"`
	Quantity       int       `db:"quantity" json:"quantity"`
	Refills        int       `db:"refills" json:"refills"`
	Status         string    `db:"status" json:"status"`
	Note           *string   `db:"note" json:"note,omitempty"`
	Dispenses      []Dispense `db:"-" json:"dispenses,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// TotalAuthorized is the full quantity the prescription allows across the
// initial fill and all refills.
func (p *Prescription) TotalAuthorized() int {
	return p.Quantity * (p.Refills + 1)
}

// Dispensed sums the quantity handed out so far.
func (p *Prescription) Dispensed() int {
	var total int
	for _, d := range p.Dispenses {
		total += d.Quantity
	}
	return total
}

// Remaining is the quantity still available to dispense.
func (p *Prescription) Remaining() int {
	return p.TotalAuthorized() - p.Dispensed()
}

// Dispense maps to the dispenses table.
type Dispense struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PrescriptionID uuid.UUID  `db:"prescription_id" json:"prescription_id"`
	Quantity       int        `db:"quantity" json:"quantity"`
	DispensedBy    *uuid.UUID `db:"dispensed_by" json:"dispensed_by,omitempty"`
	Note           *string    `db:"note" json:"note,omitempty"`
	DispensedAt    time.Time  `db:"dispensed_at" json:"dispensed_at"`
}
