package staff

import (
	"time"

	"github.com/google/uuid"
)

// User maps to the users table in the tenant schema. Password hash and the
// 2FA secret never serialize to JSON.
type User struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	FirstName        string     `db:"first_name" json:"first_name"`
	LastName         string     `db:"last_name" json:"last_name"`
	Role             string     `db:"role" json:"role"`
	HospitalID       *uuid.UUID `db:"hospital_id" json:"hospital_id,omitempty"`
	LocationID       *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	TwoFactorSecret  string     `db:"two_factor_secret" json:"-"`
	TwoFactorEnabled bool       `db:"two_factor_enabled" json:"two_factor_enabled"`
	Active           bool       `db:"active" json:"active"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName is used in notification payloads and chat sender labels.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
