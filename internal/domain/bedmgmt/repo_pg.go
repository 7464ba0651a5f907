package bedmgmt

import (
	"context"
	"errors"
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

// =========== Ward Repository ===========

type wardRepoPG struct{ pool *pgxpool.Pool }

func NewWardRepoPG(pool *pgxpool.Pool) WardRepository { return &wardRepoPG{pool: pool} }

func (r *wardRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const wardCols = `id, name, ward_type, location_id, capacity, created_at, updated_at`

func (r *wardRepoPG) scanWard(row pgx.Row) (*Ward, error) {
	var w Ward
	err := row.Scan(&w.ID, &w.Name, &w.WardType, &w.LocationID, &w.Capacity, &w.CreatedAt, &w.UpdatedAt)
	return &w, err
}

func (r *wardRepoPG) Create(ctx context.Context, w *Ward) error {
	w.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO wards (id, name, ward_type, location_id, capacity)
		VALUES ($1,$2,$3,$4,$5)`,
		w.ID, w.Name, w.WardType, w.LocationID, w.Capacity)
	return err
}

func (r *wardRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Ward, error) {
	return r.scanWard(r.conn(ctx).QueryRow(ctx, `SELECT `+wardCols+` FROM wards WHERE id = $1`, id))
}

func (r *wardRepoPG) Update(ctx context.Context, w *Ward) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE wards SET name=$2, ward_type=$3, location_id=$4, capacity=$5, updated_at=NOW()
		WHERE id = $1`,
		w.ID, w.Name, w.WardType, w.LocationID, w.Capacity)
	return err
}

func (r *wardRepoPG) List(ctx context.Context, limit, offset int) ([]*Ward, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM wards`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+wardCols+` FROM wards ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Ward
	for rows.Next() {
		w, err := r.scanWard(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, w)
	}
	return items, total, nil
}

// Census counts beds by status at read time rather than maintaining
// counters that drift.
func (r *wardRepoPG) Census(ctx context.Context, wardID uuid.UUID) (*Census, error) {
	w, err := r.GetByID(ctx, wardID)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT status, COUNT(*) FROM beds WHERE ward_id = $1 GROUP BY status`, wardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c := &Census{WardID: w.ID, WardName: w.Name, ByStatus: make(map[string]int)}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		c.ByStatus[status] = count
		c.Total += count
	}
	c.Occupied = c.ByStatus[BedOccupied]
	c.Available = c.ByStatus[BedAvailable]
	if c.Total > 0 {
		c.OccupancyPc = float64(c.Occupied) / float64(c.Total) * 100
	}
	return c, nil
}

func (r *wardRepoPG) CensusAll(ctx context.Context) ([]*Census, error) {
	wards, _, err := r.List(ctx, 1000, 0)
	if err != nil {
		return nil, err
	}
	var result []*Census
	for _, w := range wards {
		c, err := r.Census(ctx, w.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

// =========== Bed Repository ===========

type bedRepoPG struct{ pool *pgxpool.Pool }

func NewBedRepoPG(pool *pgxpool.Pool) BedRepository { return &bedRepoPG{pool: pool} }

func (r *bedRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const bedCols = `id, ward_id, label, status, created_at, updated_at`

func (r *bedRepoPG) scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.WardID, &b.Label, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

func (r *bedRepoPG) Create(ctx context.Context, b *Bed) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO beds (id, ward_id, label, status) VALUES ($1,$2,$3,$4)`,
		b.ID, b.WardID, b.Label, b.Status)
	return err
}

func (r *bedRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return r.scanBed(r.conn(ctx).QueryRow(ctx, `SELECT `+bedCols+` FROM beds WHERE id = $1`, id))
}

func (r *bedRepoPG) ListByWard(ctx context.Context, wardID uuid.UUID) ([]*Bed, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+bedCols+` FROM beds WHERE ward_id = $1 ORDER BY label`, wardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Bed
	for rows.Next() {
		b, err := r.scanBed(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, nil
}

func (r *bedRepoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Bed, int, error) {
	query := `SELECT ` + bedCols + ` FROM beds WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM beds WHERE 1=1`
	var args []interface{}
	idx := 1

	if status != "" {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY label LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Bed
	for rows.Next() {
		b, err := r.scanBed(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, nil
}

// Claim is the guard against double admission: the UPDATE only wins when
// the bed is still in a claimable state, so of two concurrent admits one
// sees zero rows. The CTE captures the pre-claim status for rollback.
func (r *bedRepoPG) Claim(ctx context.Context, id uuid.UUID, fromStatuses []string) (string, bool, error) {
	var prev string
	err := r.conn(ctx).QueryRow(ctx,
		`WITH prev AS (SELECT status FROM beds WHERE id = $1)
		 UPDATE beds SET status=$2, updated_at=NOW()
		 WHERE id = $1 AND status = ANY($3)
		 RETURNING (SELECT status FROM prev)`,
		id, BedOccupied, fromStatuses).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return prev, true, nil
}

func (r *bedRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE beds SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

// =========== Admission Repository ===========

type admissionRepoPG struct{ pool *pgxpool.Pool }

func NewAdmissionRepoPG(pool *pgxpool.Pool) AdmissionRepository { return &admissionRepoPG{pool: pool} }

func (r *admissionRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const admissionCols = `id, patient_id, bed_id, physician_id, diagnosis, status, admitted_at, created_at, updated_at`

func (r *admissionRepoPG) scanAdmission(row pgx.Row) (*Admission, error) {
	var a Admission
	err := row.Scan(&a.ID, &a.PatientID, &a.BedID, &a.PhysicianID, &a.Diagnosis,
		&a.Status, &a.AdmittedAt, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *admissionRepoPG) Create(ctx context.Context, a *Admission) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admissions (id, patient_id, bed_id, physician_id, diagnosis, status, admitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.PatientID, a.BedID, a.PhysicianID, a.Diagnosis, a.Status, a.AdmittedAt)
	return err
}

func (r *admissionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Admission, error) {
	a, err := r.scanAdmission(r.conn(ctx).QueryRow(ctx,
		`SELECT `+admissionCols+` FROM admissions WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if a.Transfers, err = r.ListTransfers(ctx, a.ID); err != nil {
		return nil, err
	}
	if a.Status == AdmissionDischarged {
		if a.Discharge, err = r.GetDischarge(ctx, a.ID); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (r *admissionRepoPG) GetActiveByPatient(ctx context.Context, patientID uuid.UUID) (*Admission, error) {
	return r.scanAdmission(r.conn(ctx).QueryRow(ctx,
		`SELECT `+admissionCols+` FROM admissions WHERE patient_id = $1 AND status = $2`,
		patientID, AdmissionActive))
}

func (r *admissionRepoPG) Update(ctx context.Context, a *Admission) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE admissions SET bed_id=$2, diagnosis=$3, status=$4, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.BedID, a.Diagnosis, a.Status)
	return err
}

func (r *admissionRepoPG) List(ctx context.Context, status string, limit, offset int) ([]*Admission, int, error) {
	query := `SELECT ` + admissionCols + ` FROM admissions WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM admissions WHERE 1=1`
	var args []interface{}
	idx := 1

	if status != "" {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY admitted_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Admission
	for rows.Next() {
		a, err := r.scanAdmission(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *admissionRepoPG) AddTransfer(ctx context.Context, t *TransferRecord) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission_transfers (id, admission_id, from_bed_id, to_bed_id, reason, moved_by, moved_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.AdmissionID, t.FromBedID, t.ToBedID, t.Reason, t.MovedBy, t.MovedAt)
	return err
}

func (r *admissionRepoPG) ListTransfers(ctx context.Context, admissionID uuid.UUID) ([]TransferRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, admission_id, from_bed_id, to_bed_id, reason, moved_by, moved_at
		FROM admission_transfers WHERE admission_id = $1 ORDER BY moved_at`, admissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransferRecord
	for rows.Next() {
		var t TransferRecord
		if err := rows.Scan(&t.ID, &t.AdmissionID, &t.FromBedID, &t.ToBedID, &t.Reason, &t.MovedBy, &t.MovedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, nil
}

func (r *admissionRepoPG) SetDischarge(ctx context.Context, d *DischargeRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission_discharges (admission_id, disposition, note, discharged_by, discharged_at)
		VALUES ($1,$2,$3,$4,$5)`,
		d.AdmissionID, d.Disposition, d.Note, d.DischargedBy, d.DischargedAt)
	return err
}

func (r *admissionRepoPG) GetDischarge(ctx context.Context, admissionID uuid.UUID) (*DischargeRecord, error) {
	var d DischargeRecord
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT admission_id, disposition, note, discharged_by, discharged_at
		FROM admission_discharges WHERE admission_id = $1`, admissionID).
		Scan(&d.AdmissionID, &d.Disposition, &d.Note, &d.DischargedBy, &d.DischargedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
