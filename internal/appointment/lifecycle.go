package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicdesk/appointment-booking/internal/auth"
	"github.com/clinicdesk/appointment-booking/internal/doctor"
)

// LifecycleService drives the two permitted status transitions and the
// authorized read paths. Completed and cancelled are terminal.
type LifecycleService struct {
	store  doctor.AvailabilityStore
	repo   Repository
	logger *zap.Logger
}

func NewLifecycleService(store doctor.AvailabilityStore, repo Repository, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{
		store:  store,
		repo:   repo,
		logger: logger,
	}
}

// Cancel moves a scheduled appointment to cancelled and frees its slot.
func (s *LifecycleService) Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !Allowed(actor, ActionCancel, appt) {
		return ErrForbidden
	}

	if appt.Status != StatusScheduled {
		return ErrInvalidState
	}

	updated, err := s.repo.UpdateStatus(ctx, id, StatusScheduled, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a transition race after the status check above.
			return ErrInvalidState
		}
		return fmt.Errorf("cancel appointment: %w", err)
	}

	if err := s.store.ReleaseSlot(ctx, updated.DoctorID, updated.Slot); err != nil {
		return fmt.Errorf("release slot after cancel: %w", err)
	}

	s.logger.Info("appointment cancelled",
		zap.String("appointment_id", id.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.String("actor_role", string(actor.Role)),
	)

	return nil
}

// Complete moves a scheduled appointment to completed. The slot stays
// consumed: the visit happened.
func (s *LifecycleService) Complete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !Allowed(actor, ActionComplete, appt) {
		return ErrForbidden
	}

	if appt.Status != StatusScheduled {
		return ErrInvalidState
	}

	if _, err := s.repo.UpdateStatus(ctx, id, StatusScheduled, StatusCompleted); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return ErrInvalidState
		}
		return fmt.Errorf("complete appointment: %w", err)
	}

	s.logger.Info("appointment completed",
		zap.String("appointment_id", id.String()),
		zap.String("actor_id", actor.ID.String()),
	)

	return nil
}

// Get returns one appointment, subject to the view policy.
func (s *LifecycleService) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Allowed(actor, ActionView, appt) {
		return nil, ErrForbidden
	}
	return appt, nil
}

// List scopes the filter to what the actor may see: patients their own
// appointments, doctors their own calendar, admins anything.
func (s *LifecycleService) List(ctx context.Context, actor auth.Actor, f Filter) ([]Appointment, error) {
	switch actor.Role {
	case auth.RolePatient:
		if f.PatientID != nil && *f.PatientID != actor.ID {
			return nil, ErrForbidden
		}
		id := actor.ID
		f.PatientID = &id
	case auth.RoleDoctor:
		if f.DoctorID != nil && *f.DoctorID != actor.ID {
			return nil, ErrForbidden
		}
		id := actor.ID
		f.DoctorID = &id
	case auth.RoleAdmin:
		// unrestricted
	default:
		return nil, ErrForbidden
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	return s.repo.List(ctx, f)
}
