package appointment

import (
	"github.com/clinicdesk/appointment-booking/internal/auth"
)

type Action string

const (
	ActionView     Action = "view"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
)

// Allowed is the single permission check for appointment operations.
// Admins may do anything. Patients may view and cancel their own
// appointments. Doctors may view, cancel and complete appointments on
// their own calendar. Patients never complete.
func Allowed(actor auth.Actor, action Action, appt *Appointment) bool {
	if actor.Role == auth.RoleAdmin {
		return true
	}

	switch action {
	case ActionView, ActionCancel:
		switch actor.Role {
		case auth.RolePatient:
			return actor.ID == appt.PatientID
		case auth.RoleDoctor:
			return actor.ID == appt.DoctorID
		}
	case ActionComplete:
		return actor.Role == auth.RoleDoctor && actor.ID == appt.DoctorID
	}

	return false
}
