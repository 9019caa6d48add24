package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicdesk/appointment-booking/internal/doctor"
	redisclient "github.com/clinicdesk/appointment-booking/internal/redis"
)

// BookingService turns a free slot into a scheduled appointment. The
// ordering is reserve-then-persist: the calendar reservation is the single
// point where a booking race can be lost, and a failed persist rolls the
// reservation back.
type BookingService struct {
	store  doctor.AvailabilityStore
	repo   Repository
	locker redisclient.Locker
	logger *zap.Logger
	now    func() time.Time
}

func NewBookingService(store doctor.AvailabilityStore, repo Repository, locker redisclient.Locker, logger *zap.Logger) *BookingService {
	return &BookingService{
		store:  store,
		repo:   repo,
		locker: locker,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the booking clock. Tests use it to pin "now".
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

func (s *BookingService) Book(ctx context.Context, patientID, doctorID uuid.UUID, slot doctor.Slot) (*Appointment, error) {
	doc, err := s.store.GetDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, doctor.ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	if !doc.AcceptingAppointments {
		return nil, doctor.ErrDoctorNotAccepting
	}

	// Server-side: a slot must start strictly in the future, whatever the
	// client claims.
	if !slot.StartsAt().After(s.now().UTC()) {
		return nil, fmt.Errorf("%w: slot %s is not in the future", doctor.ErrInvalidSlot, slot)
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, doctorID, slot.Date, slot.Time, func(lockCtx context.Context) error {
		if err := s.store.ReserveSlot(lockCtx, doctorID, slot); err != nil {
			return err
		}

		appt := &Appointment{
			ID:        uuid.New(),
			PatientID: patientID,
			DoctorID:  doctorID,
			Slot:      slot,
			Amount:    doc.Price, // price snapshot, immutable from here on
			Status:    StatusScheduled,
		}

		if err := s.repo.Create(lockCtx, appt); err != nil {
			// Compensating action: undo the reservation so the failed
			// booking leaves no trace.
			if relErr := s.store.ReleaseSlot(lockCtx, doctorID, slot); relErr != nil {
				s.logger.Error("compensating slot release failed",
					zap.String("doctor_id", doctorID.String()),
					zap.String("slot", slot.String()),
					zap.Error(relErr),
				)
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			// Someone else is booking this exact slot right now.
			return nil, doctor.ErrSlotTaken
		}
		return nil, err
	}

	s.logger.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("doctor_id", doctorID.String()),
		zap.String("patient_id", patientID.String()),
		zap.String("slot", slot.String()),
		zap.Int64("amount", created.Amount),
	)

	return created, nil
}
