package patient

import (
	"time"

	"github.com/google/uuid"
)

// Payment types. Insurance details are mandatory for insurance patients and
// ignored for cash patients.
const (
	PaymentCash      = "cash"
	PaymentInsurance = "insurance"
)

// Patient maps to the patients table. MRN is unique per organization and
// auto-generated when the intake form leaves it blank.
type Patient struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	MRN           string     `db:"mrn" json:"mrn"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	DateOfBirth   *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender        *string    `db:"gender" json:"gender,omitempty"`
	Phone         *string    `db:"phone" json:"phone,omitempty"`
	Email         *string    `db:"email" json:"email,omitempty"`
	Address       *string    `db:"address" json:"address,omitempty"`
	PaymentType   string     `db:"payment_type" json:"payment_type"`
	InsuranceInfo *Insurance `db:"-" json:"insurance_info,omitempty"`
	BloodType     *string    `db:"blood_type" json:"blood_type,omitempty"`
	Allergies     *string    `db:"allergies" json:"allergies,omitempty"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Insurance holds the coverage fields stored inline on the patient row.
type Insurance struct {
	Provider      string  `db:"insurance_provider" json:"provider"`
	PolicyNumber  string  `db:"insurance_policy_number" json:"policy_number"`
	CoverageNotes *string `db:"insurance_coverage_notes" json:"coverage_notes,omitempty"`
}
