package ambulance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid request status transition")
	ErrVehicleUnavailable = errors.New("vehicle is not available")
)

type AuditSink interface {
	RecordAction(ctx context.Context, action, resourceType, resourceID string, detail map[string]string) error
}

type Service struct {
	vehicles VehicleRepository
	requests RequestRepository
	audit    AuditSink
}

func NewService(vehicles VehicleRepository, requests RequestRepository, audit AuditSink) *Service {
	return &Service{vehicles: vehicles, requests: requests, audit: audit}
}

// -- Vehicles --

func (s *Service) CreateVehicle(ctx context.Context, v *Vehicle) error {
	if v.Registration == "" {
		return fmt.Errorf("registration is required")
	}
	if v.VehicleType == "" {
		v.VehicleType = "basic"
	}
	if v.Status == "" {
		v.Status = VehicleAvailable
	}
	switch v.Status {
	case VehicleAvailable, VehicleInUse, VehicleMaintenance:
	default:
		return fmt.Errorf("unknown vehicle status %q", v.Status)
	}
	return s.vehicles.Create(ctx, v)
}

func (s *Service) GetVehicle(ctx context.Context, id uuid.UUID) (*Vehicle, error) {
	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return v, nil
}

func (s *Service) ListVehicles(ctx context.Context, status string, limit, offset int) ([]*Vehicle, int, error) {
	return s.vehicles.List(ctx, status, limit, offset)
}

// SetVehicleStatus moves a vehicle in or out of maintenance. In-use vehicles
// are released by completing or cancelling their request, not here.
func (s *Service) SetVehicleStatus(ctx context.Context, id uuid.UUID, status string) error {
	switch status {
	case VehicleAvailable, VehicleMaintenance:
	default:
		return fmt.Errorf("vehicle status %q cannot be set directly", status)
	}
	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if v.Status == VehicleInUse {
		return fmt.Errorf("%w: vehicle is on an active run", ErrVehicleUnavailable)
	}
	return s.vehicles.SetStatus(ctx, id, status)
}

// -- Requests --

func (s *Service) CreateRequest(ctx context.Context, r *Request) error {
	if r.RequestedBy == uuid.Nil {
		return fmt.Errorf("requested_by is required")
	}
	if r.PickupLocation == "" {
		return fmt.Errorf("pickup_location is required")
	}
	if r.Destination == "" {
		return fmt.Errorf("destination is required")
	}
	if r.Priority == "" {
		r.Priority = "routine"
	}
	r.Status = StatusRequested
	r.VehicleID = nil
	if err := s.requests.Create(ctx, r); err != nil {
		return err
	}
	return s.appendHistory(ctx, r.ID, StatusRequested, &r.RequestedBy, "")
}

func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*Request, error) {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r, nil
}

func (s *Service) ListRequests(ctx context.Context, status string, limit, offset int) ([]*Request, int, error) {
	return s.requests.List(ctx, status, limit, offset)
}

// Approve moves requested -> approved.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, by *uuid.UUID) error {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if !CanAdvance(r.Status, StatusApproved) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, StatusApproved)
	}
	r.Status = StatusApproved
	if err := s.requests.Update(ctx, r); err != nil {
		return err
	}
	if err := s.appendHistory(ctx, r.ID, StatusApproved, by, ""); err != nil {
		return err
	}
	s.record(ctx, "approve", r.ID, nil)
	return nil
}

// Dispatch assigns an available vehicle to an approved request.
func (s *Service) Dispatch(ctx context.Context, id, vehicleID uuid.UUID, by *uuid.UUID) error {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if !CanAdvance(r.Status, StatusDispatched) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, StatusDispatched)
	}

	claimed, err := s.vehicles.ClaimAvailable(ctx, vehicleID)
	if err != nil {
		return ErrNotFound
	}
	if !claimed {
		return ErrVehicleUnavailable
	}

	r.Status = StatusDispatched
	r.VehicleID = &vehicleID
	if err := s.requests.Update(ctx, r); err != nil {
		_ = s.vehicles.SetStatus(ctx, vehicleID, VehicleAvailable)
		return err
	}
	if err := s.appendHistory(ctx, r.ID, StatusDispatched, by, ""); err != nil {
		return err
	}
	s.record(ctx, "dispatch", r.ID, map[string]string{"vehicle_id": vehicleID.String()})
	return nil
}

// UpdateStatus walks the request forward (en_route, arrived, completed) or
// cancels it. Completion and cancellation free the assigned vehicle.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string, by *uuid.UUID, note string) error {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if status == StatusApproved || status == StatusDispatched {
		return fmt.Errorf("%w: use the approve and dispatch operations", ErrInvalidTransition)
	}
	if !CanAdvance(r.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, status)
	}

	r.Status = status
	if err := s.requests.Update(ctx, r); err != nil {
		return err
	}
	if (status == StatusCompleted || status == StatusCancelled) && r.VehicleID != nil {
		if err := s.vehicles.SetStatus(ctx, *r.VehicleID, VehicleAvailable); err != nil {
			return err
		}
	}
	if err := s.appendHistory(ctx, r.ID, status, by, note); err != nil {
		return err
	}
	s.record(ctx, "status_"+status, r.ID, nil)
	return nil
}

func (s *Service) appendHistory(ctx context.Context, requestID uuid.UUID, status string, by *uuid.UUID, note string) error {
	h := &StatusHistory{RequestID: requestID, Status: status, ChangedBy: by, ChangedAt: time.Now()}
	if note != "" {
		h.Note = &note
	}
	return s.requests.AddHistory(ctx, h)
}

func (s *Service) record(ctx context.Context, action string, id uuid.UUID, detail map[string]string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.RecordAction(ctx, action, "ambulance_request", id.String(), detail)
}
