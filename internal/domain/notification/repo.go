package notification

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error)
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) error

	GetPreferences(ctx context.Context, userID uuid.UUID) ([]*Preference, error)
	UpsertPreference(ctx context.Context, p *Preference) error
}

type ChatRepository interface {
	Create(ctx context.Context, m *ChatMessage) error
	ListConversation(ctx context.Context, a, b uuid.UUID, limit, offset int) ([]*ChatMessage, int, error)
	MarkConversationRead(ctx context.Context, recipientID, senderID uuid.UUID) error
}
