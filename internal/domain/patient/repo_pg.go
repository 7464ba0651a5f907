package patient

import (
	"context"

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

const patientCols = `id, mrn, first_name, last_name, date_of_birth, gender, phone, email, address,
	payment_type, insurance_provider, insurance_policy_number, insurance_coverage_notes,
	blood_type, allergies, active, created_at, updated_at`

func (r *repoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var provider, policy, notes *string
	err := row.Scan(&p.ID, &p.MRN, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender,
		&p.Phone, &p.Email, &p.Address, &p.PaymentType, &provider, &policy, &notes,
		&p.BloodType, &p.Allergies, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if provider != nil && policy != nil {
		p.InsuranceInfo = &Insurance{Provider: *provider, PolicyNumber: *policy, CoverageNotes: notes}
	}
	return &p, nil
}

func insuranceFields(p *Patient) (provider, policy, notes *string) {
	if p.InsuranceInfo == nil {
		return nil, nil, nil
	}
	return &p.InsuranceInfo.Provider, &p.InsuranceInfo.PolicyNumber, p.InsuranceInfo.CoverageNotes
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	provider, policy, notes := insuranceFields(p)
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, mrn, first_name, last_name, date_of_birth, gender, phone, email, address,
			payment_type, insurance_provider, insurance_policy_number, insurance_coverage_notes,
			blood_type, allergies, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		p.ID, p.MRN, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.Phone, p.Email, p.Address,
		p.PaymentType, provider, policy, notes, p.BloodType, p.Allergies, p.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE mrn = $1`, mrn))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	provider, policy, notes := insuranceFields(p)
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET first_name=$2, last_name=$3, date_of_birth=$4, gender=$5, phone=$6,
			email=$7, address=$8, payment_type=$9, insurance_provider=$10,
			insurance_policy_number=$11, insurance_coverage_notes=$12,
			blood_type=$13, allergies=$14, active=$15, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.Phone,
		p.Email, p.Address, p.PaymentType, provider, policy, notes,
		p.BloodType, p.Allergies, p.Active)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE active`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients WHERE active ORDER BY last_name, first_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

// Search matches name, MRN, and phone with a single ILIKE filter, the way
// the front desk looks patients up.
func (r *repoPG) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	pattern := "%" + query + "%"
	where := ` FROM patients WHERE active AND
		(first_name ILIKE $1 OR last_name ILIKE $1 OR mrn ILIKE $1 OR phone ILIKE $1)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+where, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+where+` ORDER BY last_name, first_name LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *repoPG) collect(rows pgx.Rows, total int) ([]*Patient, int, error) {
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}
