package api

import (
	"time"

	"github.com/google/uuid"
)

type BookAppointmentRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	// PatientID is only honored for admin callers booking on behalf of a
	// patient; patients always book for themselves.
	PatientID string `json:"patient_id,omitempty"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type DoctorResponse struct {
	ID                    uuid.UUID `json:"id"`
	Name                  string    `json:"name"`
	Specialty             string    `json:"specialty"`
	Price                 int64     `json:"price"`
	AcceptingAppointments bool      `json:"accepting_appointments"`
}

type UpdateDoctorRequest struct {
	AcceptingAppointments *bool  `json:"accepting_appointments,omitempty"`
	Price                 *int64 `json:"price,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
