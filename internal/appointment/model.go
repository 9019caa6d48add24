package appointment

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/appointment-booking/internal/doctor"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrForbidden           = errors.New("actor may not perform this action")
	ErrInvalidState        = errors.New("transition not valid from current status")
)

// Appointment is created only by a successful booking and mutated only by
// the two permitted status transitions. Amount is the doctor's price at the
// moment of booking and never changes afterwards.
type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Slot      doctor.Slot
	Amount    int64
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}
