package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicdesk/appointment-booking/internal/appointment"
	"github.com/clinicdesk/appointment-booking/internal/auth"
	"github.com/clinicdesk/appointment-booking/internal/doctor"
)

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		Date:      a.Slot.Date,
		Time:      a.Slot.Time,
		Amount:    a.Amount,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
	}
}

func toDoctorResponse(d *doctor.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:                    d.ID,
		Name:                  d.Name,
		Specialty:             d.Specialty,
		Price:                 d.Price,
		AcceptingAppointments: d.AcceptingAppointments,
	}
}

func bookAppointmentHandler(svc *appointment.BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing actor")
			return
		}

		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		var patientID uuid.UUID
		switch actor.Role {
		case auth.RolePatient:
			if req.PatientID != "" && req.PatientID != actor.ID.String() {
				writeError(w, http.StatusForbidden, "forbidden", "patients book for themselves")
				return
			}
			patientID = actor.ID
		case auth.RoleAdmin:
			patientID, err = uuid.Parse(req.PatientID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
		default:
			writeError(w, http.StatusForbidden, "forbidden", "doctors cannot book appointments")
			return
		}

		slot, err := doctor.ParseSlot(req.Date, req.Time)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_slot", err.Error())
			return
		}

		appt, err := svc.Book(r.Context(), patientID, doctorID, slot)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func transitionHandler(do func(ctx context.Context, actor auth.Actor, id uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing actor")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		if err := do(r.Context(), actor, id); err != nil {
			handleDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func getAppointmentHandler(svc *appointment.LifecycleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing actor")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *appointment.LifecycleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing actor")
			return
		}

		var f appointment.Filter

		if v := r.URL.Query().Get("patient_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			f.PatientID = &id
		}
		if v := r.URL.Query().Get("doctor_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			f.DoctorID = &id
		}
		f.Limit = queryInt(r, "limit", 20)
		f.Offset = queryInt(r, "offset", 0)

		appts, err := svc.List(r.Context(), actor, f)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func listDoctorsHandler(store doctor.AvailabilityStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := store.ListDoctors(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]DoctorResponse, 0, len(doctors))
		for i := range doctors {
			resp = append(resp, toDoctorResponse(&doctors[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func getDoctorHandler(store doctor.AvailabilityStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		doc, err := store.GetDoctor(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDoctorResponse(doc))
	}
}

func updateDoctorHandler(store doctor.AvailabilityStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing actor")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		// Doctors manage their own record; admins manage any.
		if actor.Role != auth.RoleAdmin && !(actor.Role == auth.RoleDoctor && actor.ID == id) {
			writeError(w, http.StatusForbidden, "forbidden", "not allowed to update this doctor")
			return
		}

		var req UpdateDoctorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if req.Price != nil {
			if *req.Price < 0 {
				writeError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
				return
			}
			if err := store.SetPrice(r.Context(), id, *req.Price); err != nil {
				handleDomainError(w, err)
				return
			}
		}
		if req.AcceptingAppointments != nil {
			if err := store.SetAccepting(r.Context(), id, *req.AcceptingAppointments); err != nil {
				handleDomainError(w, err)
				return
			}
		}

		doc, err := store.GetDoctor(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDoctorResponse(doc))
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// handleDomainError maps the typed business outcomes onto HTTP statuses.
func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, doctor.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, doctor.ErrDoctorNotAccepting):
		writeError(w, http.StatusConflict, "doctor_unavailable", err.Error())
	case errors.Is(err, doctor.ErrInvalidSlot):
		writeError(w, http.StatusUnprocessableEntity, "invalid_slot", err.Error())
	case errors.Is(err, doctor.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, appointment.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, appointment.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
