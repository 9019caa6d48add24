package appointment

import (
	"context"

	"github.com/google/uuid"
)

// Filter restricts List. Nil id pointers mean unrestricted on that axis.
type Filter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Limit     int
	Offset    int
}

// Repository contains all DB interactions needed by the services.
// Appointments are never physically deleted; cancellation is a status change.
type Repository interface {
	Create(ctx context.Context, appt *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, f Filter) ([]Appointment, error)

	// UpdateStatus transitions id from one status to another in a single
	// conditional write. Returns ErrAppointmentNotFound when no row matches
	// both the id and the expected current status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
}
