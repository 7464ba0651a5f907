package main

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yacco/emr/internal/domain/lab"
	"github.com/yacco/emr/internal/domain/notification"
)

type stubNotificationRepo struct {
	created []*notification.Notification
}

func (s *stubNotificationRepo) Create(_ context.Context, n *notification.Notification) error {
	cp := *n
	s.created = append(s.created, &cp)
	return nil
}

func (s *stubNotificationRepo) GetByID(_ context.Context, id uuid.UUID) (*notification.Notification, error) {
	return nil, notification.ErrNotFound
}

func (s *stubNotificationRepo) ListByRecipient(_ context.Context, _ uuid.UUID, _ bool, _, _ int) ([]*notification.Notification, int, error) {
	return nil, 0, nil
}

func (s *stubNotificationRepo) UnreadCount(_ context.Context, _ uuid.UUID) (int, error) {
	return 0, nil
}

func (s *stubNotificationRepo) MarkRead(_ context.Context, _ uuid.UUID) error { return nil }

func (s *stubNotificationRepo) MarkAllRead(_ context.Context, _ uuid.UUID) error { return nil }

func (s *stubNotificationRepo) GetPreferences(_ context.Context, _ uuid.UUID) ([]*notification.Preference, error) {
	return nil, nil
}

func (s *stubNotificationRepo) UpsertPreference(_ context.Context, _ *notification.Preference) error {
	return nil
}

type stubChatRepo struct{}

func (stubChatRepo) Create(_ context.Context, _ *notification.ChatMessage) error { return nil }

func (stubChatRepo) ListConversation(_ context.Context, _, _ uuid.UUID, _, _ int) ([]*notification.ChatMessage, int, error) {
	return nil, 0, nil
}

func (stubChatRepo) MarkConversationRead(_ context.Context, _, _ uuid.UUID) error { return nil }

func TestLabResultNotifierTargetsOrderer(t *testing.T) {
	repo := &stubNotificationRepo{}
	svc := notification.NewService(repo, stubChatRepo{}, nil, zerolog.Nop())
	notifier := &labResultNotifier{notifications: svc, logger: zerolog.Nop()}

	orderer := uuid.New()
	notifier.ResultReady(context.Background(), &lab.Order{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		OrderedBy: orderer,
		TestCode:  "CBC",
		TestName:  "Complete Blood Count",
		Status:    lab.StatusResulted,
	})

	if len(repo.created) != 1 {
		t.Fatalf("created %d notifications, want 1", len(repo.created))
	}
	n := repo.created[0]
	if n.RecipientID != orderer {
		t.Errorf("recipient = %s, want ordering practitioner %s", n.RecipientID, orderer)
	}
	if n.Type != notification.TypeLabResult {
		t.Errorf("type = %q, want %q", n.Type, notification.TypeLabResult)
	}
}
