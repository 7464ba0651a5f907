package telehealth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrInvalidToken      = errors.New("join token does not match this session")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Schedule creates a session and mints a join token for each party.
func (s *Service) Schedule(ctx context.Context, sess *Session) error {
	if sess.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if sess.PractitionerID == uuid.Nil {
		return fmt.Errorf("practitioner_id is required")
	}
	if sess.ScheduledAt.IsZero() {
		return fmt.Errorf("scheduled_at is required")
	}

	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	sess.Status = StatusScheduled
	sess.PatientToken = NewJoinToken()
	sess.PractitionerToken = NewJoinToken()
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	return s.repo.Create(ctx, sess)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]*Session, int, error) {
	items, total, err := s.repo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	redacted := make([]*Session, len(items))
	for i, sess := range items {
		redacted[i] = sess.Redacted()
	}
	return redacted, total, nil
}

// Join validates a party's token against the session. The first join moves
// the session to waiting; the second starts the call.
func (s *Service) Join(ctx context.Context, id uuid.UUID, token string) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	if token == "" || (token != sess.PatientToken && token != sess.PractitionerToken) {
		return nil, ErrInvalidToken
	}

	var next string
	switch sess.Status {
	case StatusScheduled:
		next = StatusWaiting
	case StatusWaiting:
		next = StatusInProgress
	case StatusInProgress:
		// reconnecting party, no status change
		return sess, nil
	default:
		return nil, ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, err
	}
	sess.Status = next
	return sess, nil
}

// Complete ends a call in progress.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, StatusCompleted)
}

// Cancel calls off a session that has not completed.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to string) error {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if !CanTransition(sess.Status, to) {
		return ErrInvalidTransition
	}
	return s.repo.UpdateStatus(ctx, id, to)
}
