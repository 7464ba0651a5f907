package staff

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yacco/emr/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const userCols = `id, email, first_name, last_name, role, hospital_id, location_id,
	password_hash, two_factor_secret, two_factor_enabled, active, created_at, updated_at`

func (r *repoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.HospitalID, &u.LocationID,
		&u.PasswordHash, &u.TwoFactorSecret, &u.TwoFactorEnabled, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name, role, hospital_id, location_id,
			password_hash, two_factor_secret, two_factor_enabled, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		u.ID, u.Email, u.FirstName, u.LastName, u.Role, u.HospitalID, u.LocationID,
		u.PasswordHash, u.TwoFactorSecret, u.TwoFactorEnabled, u.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET first_name=$2, last_name=$3, role=$4, hospital_id=$5, location_id=$6,
			active=$7, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.FirstName, u.LastName, u.Role, u.HospitalID, u.LocationID, u.Active)
	return err
}

func (r *repoPG) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id = $1`, id, hash)
	return err
}

func (r *repoPG) UpdateTwoFactor(ctx context.Context, id uuid.UUID, secret string, enabled bool) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET two_factor_secret=$2, two_factor_enabled=$3, updated_at=NOW() WHERE id = $1`,
		id, secret, enabled)
	return err
}

func (r *repoPG) List(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	query := `SELECT ` + userCols + ` FROM users WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM users WHERE 1=1`
	var args []interface{}
	idx := 1

	if role != "" {
		query += fmt.Sprintf(` AND role = $%d`, idx)
		countQuery += fmt.Sprintf(` AND role = $%d`, idx)
		args = append(args, role)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, nil
}
