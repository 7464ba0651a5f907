package billing

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

const invoiceCols = `id, patient_id, number, status, total, amount_paid, note, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.PatientID, &inv.Number, &inv.Status, &inv.Total,
		&inv.AmountPaid, &inv.Note, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repoPG) Create(ctx context.Context, inv *Invoice) error {
	c := r.conn(ctx)
	_, err := c.Exec(ctx, `
		INSERT INTO invoices (id, patient_id, number, status, total, amount_paid, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inv.ID, inv.PatientID, inv.Number, inv.Status, inv.Total, inv.AmountPaid,
		inv.Note, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return err
	}
	for _, it := range inv.Items {
		_, err = c.Exec(ctx, `
			INSERT INTO invoice_items (id, invoice_id, description, quantity, unit_price, amount)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			it.ID, it.InvoiceID, it.Description, it.Quantity, it.UnitPrice, it.Amount)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadDetails(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE number = $1`, number))
	if err != nil {
		return nil, err
	}
	if err := r.loadDetails(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repoPG) loadDetails(ctx context.Context, inv *Invoice) error {
	c := r.conn(ctx)
	rows, err := c.Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price, amount
		FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, inv.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Amount); err != nil {
			return err
		}
		inv.Items = append(inv.Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	prows, err := c.Query(ctx, `
		SELECT id, invoice_id, amount, method, reference, recorded_by, recorded_at
		FROM invoice_payments WHERE invoice_id = $1 ORDER BY recorded_at`, inv.ID)
	if err != nil {
		return err
	}
	defer prows.Close()
	for prows.Next() {
		var p Payment
		if err := prows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.Reference, &p.RecordedBy, &p.RecordedAt); err != nil {
			return err
		}
		inv.Payments = append(inv.Payments, p)
	}
	return prows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE invoices SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}

func (r *repoPG) SetAmountPaid(ctx context.Context, id uuid.UUID, amountPaid int64, status string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE invoices SET amount_paid = $2, status = $3, updated_at = now() WHERE id = $1`,
		id, amountPaid, status)
	return err
}

func (r *repoPG) List(ctx context.Context, status string, patientID *uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	query := `SELECT ` + invoiceCols + ` FROM invoices WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM invoices WHERE 1=1`
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
	var items []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}

func (r *repoPG) AddPayment(ctx context.Context, p *Payment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoice_payments (id, invoice_id, amount, method, reference, recorded_by, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.InvoiceID, p.Amount, p.Method, p.Reference, p.RecordedBy, p.RecordedAt)
	return err
}

func (r *repoPG) GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	var p Payment
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, invoice_id, amount, method, reference, recorded_by, recorded_at
		FROM invoice_payments WHERE id = $1`, id).
		Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.Reference, &p.RecordedBy, &p.RecordedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) UpdatePaymentMethod(ctx context.Context, id uuid.UUID, method string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE invoice_payments SET method = $2 WHERE id = $1`, id, method)
	return err
}
