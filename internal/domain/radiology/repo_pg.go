package radiology

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

const orderCols = `id, patient_id, ordered_by, modality, body_site, status, note, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.PatientID, &o.OrderedBy, &o.Modality, &o.BodySite,
		&o.Status, &o.Note, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

const reportCols = `id, order_id, radiologist_id, findings, impression, status, created_at, updated_at`

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	err := row.Scan(&rep.ID, &rep.OrderID, &rep.RadiologistID, &rep.Findings,
		&rep.Impression, &rep.Status, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *repoPG) Create(ctx context.Context, o *Order) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO imaging_orders (`+orderCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.PatientID, o.OrderedBy, o.Modality, o.BodySite,
		o.Status, o.Note, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orderCols+` FROM imaging_orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	rep, err := scanReport(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportCols+` FROM radiology_reports WHERE order_id = $1`, id))
	if err == nil {
		o.Report = rep
	} else if err != pgx.ErrNoRows {
		return nil, err
	}
	return o, nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE imaging_orders SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}

func (r *repoPG) List(ctx context.Context, status string, patientID *uuid.UUID, limit, offset int) ([]*Order, int, error) {
	query := `SELECT ` + orderCols + ` FROM imaging_orders WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM imaging_orders WHERE 1=1`
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

func (r *repoPG) CreateReport(ctx context.Context, rep *Report) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO radiology_reports (`+reportCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rep.ID, rep.OrderID, rep.RadiologistID, rep.Findings,
		rep.Impression, rep.Status, rep.CreatedAt, rep.UpdatedAt)
	return err
}

func (r *repoPG) GetReportByOrder(ctx context.Context, orderID uuid.UUID) (*Report, error) {
	return scanReport(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportCols+` FROM radiology_reports WHERE order_id = $1`, orderID))
}

func (r *repoPG) UpdateReport(ctx context.Context, rep *Report) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE radiology_reports
		SET findings = $2, impression = $3, status = $4, updated_at = now()
		WHERE id = $1`,
		rep.ID, rep.Findings, rep.Impression, rep.Status)
	return err
}
