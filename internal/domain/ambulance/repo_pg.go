package ambulance

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

// =========== Vehicle Repository ===========

type vehicleRepoPG struct{ pool *pgxpool.Pool }

func NewVehicleRepoPG(pool *pgxpool.Pool) VehicleRepository { return &vehicleRepoPG{pool: pool} }

func (r *vehicleRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const vehicleCols = `id, registration, vehicle_type, status, created_at, updated_at`

func (r *vehicleRepoPG) scanVehicle(row pgx.Row) (*Vehicle, error) {
	var v Vehicle
	err := row.Scan(&v.ID, &v.Registration, &v.VehicleType, &v.Status, &v.CreatedAt, &v.UpdatedAt)
	return &v, err
}

func (r *vehicleRepoPG) Create(ctx context.Context, v *Vehicle) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ambulance_vehicles (id, registration, vehicle_type, status)
		VALUES ($1,$2,$3,$4)`,
		v.ID, v.Registration, v.VehicleType, v.Status)
	return err
}

func (r *vehicleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Vehicle, error) {
	return r.scanVehicle(r.conn(ctx).QueryRow(ctx,
		`SELECT `+vehicleCols+` FROM ambulance_vehicles WHERE id = $1`, id))
}

func (r *vehicleRepoPG) Update(ctx context.Context, v *Vehicle) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE ambulance_vehicles SET registration=$2, vehicle_type=$3, status=$4, updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.Registration, v.VehicleType, v.Status)
	return err
}

func (r *vehicleRepoPG) List(ctx context.Context, status string, limit, offset int) ([]*Vehicle, int, error) {
	query := `SELECT ` + vehicleCols + ` FROM ambulance_vehicles WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM ambulance_vehicles WHERE 1=1`
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

	query += fmt.Sprintf(` ORDER BY registration LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Vehicle
	for rows.Next() {
		v, err := r.scanVehicle(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, nil
}

// ClaimAvailable wins only when the vehicle is still available, so two
// dispatchers cannot assign the same unit.
func (r *vehicleRepoPG) ClaimAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE ambulance_vehicles SET status=$2, updated_at=NOW() WHERE id = $1 AND status = $3`,
		id, VehicleInUse, VehicleAvailable)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *vehicleRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE ambulance_vehicles SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

// =========== Request Repository ===========

type requestRepoPG struct{ pool *pgxpool.Pool }

func NewRequestRepoPG(pool *pgxpool.Pool) RequestRepository { return &requestRepoPG{pool: pool} }

func (r *requestRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const requestCols = `id, patient_id, requested_by, pickup_location, destination, priority, reason,
	vehicle_id, status, created_at, updated_at`

func (r *requestRepoPG) scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.PatientID, &req.RequestedBy, &req.PickupLocation, &req.Destination,
		&req.Priority, &req.Reason, &req.VehicleID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	return &req, err
}

func (r *requestRepoPG) Create(ctx context.Context, req *Request) error {
	req.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ambulance_requests (id, patient_id, requested_by, pickup_location, destination,
			priority, reason, vehicle_id, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		req.ID, req.PatientID, req.RequestedBy, req.PickupLocation, req.Destination,
		req.Priority, req.Reason, req.VehicleID, req.Status)
	return err
}

func (r *requestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	req, err := r.scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestCols+` FROM ambulance_requests WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if req.History, err = r.ListHistory(ctx, req.ID); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *requestRepoPG) Update(ctx context.Context, req *Request) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE ambulance_requests SET priority=$2, reason=$3, vehicle_id=$4, status=$5, updated_at=NOW()
		WHERE id = $1`,
		req.ID, req.Priority, req.Reason, req.VehicleID, req.Status)
	return err
}

func (r *requestRepoPG) List(ctx context.Context, status string, limit, offset int) ([]*Request, int, error) {
	query := `SELECT ` + requestCols + ` FROM ambulance_requests WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM ambulance_requests WHERE 1=1`
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
	var items []*Request
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, req)
	}
	return items, total, nil
}

func (r *requestRepoPG) AddHistory(ctx context.Context, h *StatusHistory) error {
	h.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ambulance_status_history (id, request_id, status, changed_by, changed_at, note)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		h.ID, h.RequestID, h.Status, h.ChangedBy, h.ChangedAt, h.Note)
	return err
}

func (r *requestRepoPG) ListHistory(ctx context.Context, requestID uuid.UUID) ([]StatusHistory, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, request_id, status, changed_by, changed_at, note
		FROM ambulance_status_history WHERE request_id = $1 ORDER BY changed_at`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StatusHistory
	for rows.Next() {
		var h StatusHistory
		if err := rows.Scan(&h.ID, &h.RequestID, &h.Status, &h.ChangedBy, &h.ChangedAt, &h.Note); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, nil
}
