package telehealth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	sessions map[uuid.UUID]*Session
}

func newMockRepo() *mockRepo {
	return &mockRepo{sessions: make(map[uuid.UUID]*Session)}
}

func (m *mockRepo) Create(_ context.Context, s *Session) error {
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	cp := *s
	return &cp, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	s, ok := m.sessions[id]
	if !ok {
		return errors.New("no rows")
	}
	s.Status = status
	return nil
}

func (m *mockRepo) List(_ context.Context, status string, limit, offset int) ([]*Session, int, error) {
	var out []*Session
	for _, s := range m.sessions {
		if status == "" || s.Status == status {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func schedule(t *testing.T, svc *Service) *Session {
	t.Helper()
	s := &Session{
		PatientID:      uuid.New(),
		PractitionerID: uuid.New(),
		ScheduledAt:    time.Now().UTC().Add(time.Hour),
	}
	if err := svc.Schedule(context.Background(), s); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	return s
}

func TestScheduleMintsDistinctTokens(t *testing.T) {
	svc := NewService(newMockRepo())
	s := schedule(t, svc)
	if s.Status != StatusScheduled {
		t.Errorf("status = %q, want %q", s.Status, StatusScheduled)
	}
	if s.PatientToken == "" || s.PractitionerToken == "" {
		t.Fatal("missing join tokens")
	}
	if s.PatientToken == s.PractitionerToken {
		t.Error("both parties share one token")
	}
}

func TestJoinProgression(t *testing.T) {
	svc := NewService(newMockRepo())
	s := schedule(t, svc)

	first, err := svc.Join(context.Background(), s.ID, s.PatientToken)
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	if first.Status != StatusWaiting {
		t.Errorf("after first join = %q, want %q", first.Status, StatusWaiting)
	}

	second, err := svc.Join(context.Background(), s.ID, s.PractitionerToken)
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if second.Status != StatusInProgress {
		t.Errorf("after second join = %q, want %q", second.Status, StatusInProgress)
	}

	// reconnect keeps the call in progress
	again, err := svc.Join(context.Background(), s.ID, s.PatientToken)
	if err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if again.Status != StatusInProgress {
		t.Errorf("after reconnect = %q, want %q", again.Status, StatusInProgress)
	}
}

func TestJoinRejectsBadToken(t *testing.T) {
	svc := NewService(newMockRepo())
	s := schedule(t, svc)

	if _, err := svc.Join(context.Background(), s.ID, "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("bad token = %v, want ErrInvalidToken", err)
	}
	if _, err := svc.Join(context.Background(), s.ID, ""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("empty token = %v, want ErrInvalidToken", err)
	}
}

func TestJoinClosedSession(t *testing.T) {
	svc := NewService(newMockRepo())
	s := schedule(t, svc)
	if err := svc.Cancel(context.Background(), s.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := svc.Join(context.Background(), s.ID, s.PatientToken); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("join cancelled = %v, want ErrInvalidTransition", err)
	}
}

func TestCompleteRequiresInProgress(t *testing.T) {
	svc := NewService(newMockRepo())
	s := schedule(t, svc)

	if err := svc.Complete(context.Background(), s.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("complete scheduled = %v, want ErrInvalidTransition", err)
	}

	if _, err := svc.Join(context.Background(), s.ID, s.PatientToken); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := svc.Join(context.Background(), s.ID, s.PractitionerToken); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := svc.Complete(context.Background(), s.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := svc.Cancel(context.Background(), s.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("cancel completed = %v, want ErrInvalidTransition", err)
	}
}

func TestListRedactsTokens(t *testing.T) {
	svc := NewService(newMockRepo())
	schedule(t, svc)

	items, total, err := svc.List(context.Background(), "", 20, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("total = %d, items = %d", total, len(items))
	}
	if items[0].PatientToken != "" || items[0].PractitionerToken != "" {
		t.Error("tokens leaked in list response")
	}
}
