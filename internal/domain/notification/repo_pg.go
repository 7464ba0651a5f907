package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yacco/emr/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepoPG returns a Postgres-backed Repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const notifCols = `id, recipient_id, org_id, type, title, body, read, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.RecipientID, &n.OrgID, &n.Type, &n.Title, &n.Body, &n.Read, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repoPG) Create(ctx context.Context, n *Notification) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO notifications (`+notifCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.RecipientID, n.OrgID, n.Type, n.Title, n.Body, n.Read, n.CreatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return scanNotification(r.conn(ctx).QueryRow(ctx,
		`SELECT `+notifCols+` FROM notifications WHERE id = $1`, id))
}

func (r *repoPG) ListByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	filter := ``
	if unreadOnly {
		filter = ` AND read = false`
	}

	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`+filter, recipientID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+notifCols+` FROM notifications
		WHERE recipient_id = $1`+filter+`
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, recipientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = false`,
		recipientID).Scan(&count)
	return count, err
}

func (r *repoPG) MarkRead(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE notifications SET read = true WHERE id = $1`, id)
	return err
}

func (r *repoPG) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE notifications SET read = true WHERE recipient_id = $1 AND read = false`, recipientID)
	return err
}

func (r *repoPG) GetPreferences(ctx context.Context, userID uuid.UUID) ([]*Preference, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, type, enabled, sound, browser_push
		FROM notification_preferences WHERE user_id = $1 ORDER BY type`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Preference
	for rows.Next() {
		var p Preference
		if err := rows.Scan(&p.ID, &p.UserID, &p.Type, &p.Enabled, &p.Sound, &p.BrowserPush); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}

func (r *repoPG) UpsertPreference(ctx context.Context, p *Preference) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO notification_preferences (id, user_id, type, enabled, sound, browser_push)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, type)
		DO UPDATE SET enabled = $4, sound = $5, browser_push = $6`,
		p.ID, p.UserID, p.Type, p.Enabled, p.Sound, p.BrowserPush)
	return err
}

type chatRepoPG struct {
	pool *pgxpool.Pool
}

// NewChatRepoPG returns a Postgres-backed ChatRepository.
func NewChatRepoPG(pool *pgxpool.Pool) ChatRepository {
	return &chatRepoPG{pool: pool}
}

func (r *chatRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const chatCols = `id, sender_id, recipient_id, body, read, created_at`

func (r *chatRepoPG) Create(ctx context.Context, m *ChatMessage) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO chat_messages (`+chatCols+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.SenderID, m.RecipientID, m.Body, m.Read, m.CreatedAt)
	return err
}

func (r *chatRepoPG) ListConversation(ctx context.Context, a, b uuid.UUID, limit, offset int) ([]*ChatMessage, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM chat_messages
		WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)`,
		a, b).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+chatCols+` FROM chat_messages
		WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`, a, b, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Body, &m.Read, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &m)
	}
	return items, total, rows.Err()
}

func (r *chatRepoPG) MarkConversationRead(ctx context.Context, recipientID, senderID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE chat_messages SET read = true
		WHERE recipient_id = $1 AND sender_id = $2 AND read = false`, recipientID, senderID)
	return err
}
