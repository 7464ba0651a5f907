package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yacco/emr/internal/platform/ws"
)

var ErrNotFound = errors.New("notification not found")

type Service struct {
	repo      Repository
	chats     ChatRepository
	publisher ws.Publisher
	logger    zerolog.Logger
}

func NewService(repo Repository, chats ChatRepository, publisher ws.Publisher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, chats: chats, publisher: publisher, logger: logger}
}

// Notify stores a notification and pushes it to the recipient's live
// connections. A disabled preference suppresses the row entirely; push
// failures never fail the calling operation.
func (s *Service) Notify(ctx context.Context, n *Notification) error {
	if n.RecipientID == uuid.Nil {
		return fmt.Errorf("recipient_id is required")
	}
	if n.Type == "" || n.Title == "" {
		return fmt.Errorf("type and title are required")
	}
	if !s.typeEnabled(ctx, n.RecipientID, n.Type) {
		return nil
	}

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.Read = false
	n.CreatedAt = time.Now().UTC()
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.push(ctx, n)
	return nil
}

func (s *Service) push(ctx context.Context, n *Notification) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}
	err = s.publisher.PublishToUser(ctx, n.OrgID, n.RecipientID.String(), ws.Event{
		Type:         "notification",
		Notification: payload,
		Timestamp:    n.CreatedAt,
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("user_id", n.RecipientID.String()).Msg("notification push failed")
	}
}

func (s *Service) typeEnabled(ctx context.Context, userID uuid.UUID, notifType string) bool {
	prefs, err := s.repo.GetPreferences(ctx, userID)
	if err != nil {
		return true
	}
	for _, p := range prefs {
		if p.Type == notifType {
			return p.Enabled
		}
	}
	return true
}

func (s *Service) List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	return s.repo.ListByRecipient(ctx, recipientID, unreadOnly, limit, offset)
}

// UnreadCount backs the client's 60 second polling fallback for when the
// WebSocket is down.
func (s *Service) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error) {
	return s.repo.UnreadCount(ctx, recipientID)
}

// MarkRead flags one notification. Only the recipient may mark their own.
func (s *Service) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if n.RecipientID != recipientID {
		return ErrNotFound
	}
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, recipientID)
}

func (s *Service) Preferences(ctx context.Context, userID uuid.UUID) ([]*Preference, error) {
	return s.repo.GetPreferences(ctx, userID)
}

func (s *Service) SetPreference(ctx context.Context, p *Preference) error {
	if p.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if p.Type == "" {
		return fmt.Errorf("type is required")
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return s.repo.UpsertPreference(ctx, p)
}

// PostChat stores a direct message and pushes it to the recipient.
func (s *Service) PostChat(ctx context.Context, orgID string, m *ChatMessage) (*ChatMessage, error) {
	if m.SenderID == uuid.Nil || m.RecipientID == uuid.Nil {
		return nil, fmt.Errorf("sender and recipient are required")
	}
	if m.SenderID == m.RecipientID {
		return nil, fmt.Errorf("cannot message yourself")
	}
	if m.Body == "" {
		return nil, fmt.Errorf("body is required")
	}

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.Read = false
	m.CreatedAt = time.Now().UTC()
	if err := s.chats.Create(ctx, m); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if payload, err := json.Marshal(m); err == nil {
			_ = s.publisher.PublishToUser(ctx, orgID, m.RecipientID.String(), ws.Event{
				Type:      "message",
				Message:   payload,
				Timestamp: m.CreatedAt,
			})
		}
	}
	return m, nil
}

func (s *Service) Conversation(ctx context.Context, me, other uuid.UUID, limit, offset int) ([]*ChatMessage, int, error) {
	items, total, err := s.chats.ListConversation(ctx, me, other, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	// viewing the thread clears the unread flags on my side
	if err := s.chats.MarkConversationRead(ctx, me, other); err != nil {
		s.logger.Debug().Err(err).Msg("mark conversation read failed")
	}
	return items, total, nil
}
