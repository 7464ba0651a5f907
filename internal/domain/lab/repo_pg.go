package lab

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

const orderCols = `id, patient_id, ordered_by, test_code, test_name, priority, status, note, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.PatientID, &o.OrderedBy, &o.TestCode, &o.TestName,
		&o.Priority, &o.Status, &o.Note, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repoPG) Create(ctx context.Context, o *Order) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_orders (`+orderCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.PatientID, o.OrderedBy, o.TestCode, o.TestName,
		o.Priority, o.Status, o.Note, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orderCols+` FROM lab_orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, order_id, analyte, value, unit, reference_range, abnormal, resulted_at
		FROM lab_results WHERE order_id = $1 ORDER BY analyte`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var res Result
		if err := rows.Scan(&res.ID, &res.OrderID, &res.Analyte, &res.Value, &res.Unit,
			&res.ReferenceRange, &res.Abnormal, &res.ResultedAt); err != nil {
			return nil, err
		}
		o.Results = append(o.Results, res)
	}
	return o, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE lab_orders SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}

func (r *repoPG) List(ctx context.Context, status string, patientID *uuid.UUID, limit, offset int) ([]*Order, int, error) {
	query := `SELECT ` + orderCols + ` FROM lab_orders WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM lab_orders WHERE 1=1`
	var args []interface{}
	idx := 1

	if status != "" {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, status)
		idx++
	}
	if patientID != nil {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, *patientID)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}

func (r *repoPG) AddResults(ctx context.Context, results []Result) error {
	c := r.conn(ctx)
	for _, res := range results {
		_, err := c.Exec(ctx, `
			INSERT INTO lab_results (id, order_id, analyte, value, unit, reference_range, abnormal, resulted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			res.ID, res.OrderID, res.Analyte, res.Value, res.Unit,
			res.ReferenceRange, res.Abnormal, res.ResultedAt)
		if err != nil {
			return err
		}
	}
	return nil
}
