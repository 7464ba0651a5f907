package pharmacy

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

const rxCols = `id, patient_id, prescriber_id, medication_code, medication_name, dose, route, frequency, quantity, refills, status, note, created_at, updated_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.PatientID, &p.PrescriberID, &p.MedicationCode, &p.MedicationName,
		&p.Dose, &p.Route, &p.Frequency, &p.Quantity, &p.Refills, &p.Status, &p.Note,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescriptions (`+rxCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID, p.PatientID, p.PrescriberID, p.MedicationCode, p.MedicationName,
		p.Dose, p.Route, p.Frequency, p.Quantity, p.Refills, p.Status, p.Note,
		p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+rxCols+` FROM prescriptions WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, prescription_id, quantity, dispensed_by, note, dispensed_at
		FROM dispenses WHERE prescription_id = $1 ORDER BY dispensed_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var d Dispense
		if err := rows.Scan(&d.ID, &d.PrescriptionID, &d.Quantity, &d.DispensedBy, &d.Note, &d.DispensedAt); err != nil {
			return nil, err
		}
		p.Dispenses = append(p.Dispenses, d)
	}
	return p, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE prescriptions SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}

func (r *repoPG) List(ctx context.Context, status string, patientID *uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	query := `SELECT ` + rxCols + ` FROM prescriptions WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM prescriptions WHERE 1=1`
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
	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) AddDispense(ctx context.Context, d *Dispense) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dispenses (id, prescription_id, quantity, dispensed_by, note, dispensed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.PrescriptionID, d.Quantity, d.DispensedBy, d.Note, d.DispensedAt)
	return err
}
