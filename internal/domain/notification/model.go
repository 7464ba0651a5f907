package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification types pushed to users.
const (
	TypeLabResult   = "lab_result"
	TypeAdmission   = "admission"
	TypeAmbulance   = "ambulance"
	TypeBilling     = "billing"
	TypeChat        = "chat"
	TypeAppointment = "appointment"
	TypeSystem      = "system"
)

// Notification maps to the notifications table.
type Notification struct {
	ID          uuid.UUID `db:"id" json:"id"`
	RecipientID uuid.UUID `db:"recipient_id" json:"recipient_id"`
	OrgID       string    `db:"org_id" json:"org_id"`
	Type        string    `db:"type" json:"type"`
	Title       string    `db:"title" json:"title"`
	Body        string    `db:"body" json:"body"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Preference maps to the notification_preferences table. One row per user
// and type; absent rows mean enabled with defaults.
type Preference struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	Type        string    `db:"type" json:"type"`
	Enabled     bool      `db:"enabled" json:"enabled"`
	Sound       bool      `db:"sound" json:"sound"`
	BrowserPush bool      `db:"browser_push" json:"browser_push"`
}

// ChatMessage maps to the chat_messages table.
type ChatMessage struct {
	ID          uuid.UUID `db:"id" json:"id"`
	SenderID    uuid.UUID `db:"sender_id" json:"sender_id"`
	RecipientID uuid.UUID `db:"recipient_id" json:"recipient_id"`
	Body        string    `db:"body" json:"body"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
