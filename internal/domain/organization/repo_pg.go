package organization

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

// Organization rows live in the shared schema so the platform owner can see
// every tenant regardless of search_path. Queries qualify the table name.

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const orgCols = `id, name, slug, region, status, contact_email, contact_phone, address, created_at, updated_at`

func (r *repoPG) scanOrg(row pgx.Row) (*Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.Region, &o.Status,
		&o.ContactEmail, &o.ContactPhone, &o.Address, &o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func (r *repoPG) Create(ctx context.Context, o *Organization) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO shared.organizations (id, name, slug, region, status, contact_email, contact_phone, address)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		o.ID, o.Name, o.Slug, o.Region, o.Status, o.ContactEmail, o.ContactPhone, o.Address)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return r.scanOrg(r.conn(ctx).QueryRow(ctx, `SELECT `+orgCols+` FROM shared.organizations WHERE id = $1`, id))
}

func (r *repoPG) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	return r.scanOrg(r.conn(ctx).QueryRow(ctx, `SELECT `+orgCols+` FROM shared.organizations WHERE slug = $1`, slug))
}

func (r *repoPG) Update(ctx context.Context, o *Organization) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE shared.organizations SET name=$2, region=$3, contact_email=$4, contact_phone=$5, address=$6, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.Name, o.Region, o.ContactEmail, o.ContactPhone, o.Address)
	return err
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE shared.organizations SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

func (r *repoPG) List(ctx context.Context, status string, limit, offset int) ([]*Organization, int, error) {
	query := `SELECT ` + orgCols + ` FROM shared.organizations WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM shared.organizations WHERE 1=1`
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

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Organization
	for rows.Next() {
		o, err := r.scanOrg(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, nil
}

type locationRepoPG struct{ pool *pgxpool.Pool }

func NewLocationRepoPG(pool *pgxpool.Pool) LocationRepository { return &locationRepoPG{pool: pool} }

func (r *locationRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const locationCols = `id, organization_id, name, address, phone, active, created_at, updated_at`

func (r *locationRepoPG) scanLocation(row pgx.Row) (*Location, error) {
	var l Location
	err := row.Scan(&l.ID, &l.OrganizationID, &l.Name, &l.Address, &l.Phone, &l.Active, &l.CreatedAt, &l.UpdatedAt)
	return &l, err
}

func (r *locationRepoPG) Create(ctx context.Context, l *Location) error {
	l.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO shared.locations (id, organization_id, name, address, phone, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		l.ID, l.OrganizationID, l.Name, l.Address, l.Phone, l.Active)
	return err
}

func (r *locationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Location, error) {
	return r.scanLocation(r.conn(ctx).QueryRow(ctx, `SELECT `+locationCols+` FROM shared.locations WHERE id = $1`, id))
}

func (r *locationRepoPG) Update(ctx context.Context, l *Location) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE shared.locations SET name=$2, address=$3, phone=$4, active=$5, updated_at=NOW()
		WHERE id = $1`,
		l.ID, l.Name, l.Address, l.Phone, l.Active)
	return err
}

func (r *locationRepoPG) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*Location, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+locationCols+` FROM shared.locations WHERE organization_id = $1 ORDER BY name`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Location
	for rows.Next() {
		l, err := r.scanLocation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, nil
}
