package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicdesk/appointment-booking/internal/appointment"
	"github.com/clinicdesk/appointment-booking/internal/auth"
	"github.com/clinicdesk/appointment-booking/internal/doctor"
)

type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, doctorID uuid.UUID, date, timeOfDay string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type testEnv struct {
	server *httptest.Server
	guard  *auth.JWTGuard
	store  *doctor.MemoryStore
	docID  uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := doctor.NewMemoryStore()
	repo := appointment.NewMemoryRepository()
	guard := auth.NewJWTGuard("test-secret")
	logger := zap.NewNop()

	docID := uuid.New()
	store.PutDoctor(doctor.Doctor{
		ID:                    docID,
		Name:                  "Dr Example",
		Specialty:             "Dermatology",
		Price:                 20000,
		AcceptingAppointments: true,
	})

	router := NewRouter(RouterConfig{
		Booking:   appointment.NewBookingService(store, repo, passLocker{}, logger),
		Lifecycle: appointment.NewLifecycleService(store, repo, logger),
		Store:     store,
		Guard:     guard,
		Logger:    logger,
		Env:       "test",
		Version:   "test",
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, guard: guard, store: store, docID: docID}
}

func (e *testEnv) token(t *testing.T, actor auth.Actor) string {
	t.Helper()
	tok, err := e.guard.MintToken(actor, time.Minute)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func futureDate() string {
	return time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02")
}

func decodeAppointment(t *testing.T, resp *http.Response) AppointmentResponse {
	t.Helper()
	var a AppointmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		t.Fatalf("decode appointment: %v", err)
	}
	return a
}

func TestBookEndpoint(t *testing.T) {
	env := newTestEnv(t)
	patientID := uuid.New()
	patientTok := env.token(t, auth.Actor{ID: patientID, Role: auth.RolePatient})

	body := BookAppointmentRequest{
		DoctorID: env.docID.String(),
		Date:     futureDate(),
		Time:     "10:00",
	}

	resp := env.do(t, "POST", "/appointments", patientTok, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	appt := decodeAppointment(t, resp)
	if appt.PatientID != patientID {
		t.Errorf("patient id mismatch: %s", appt.PatientID)
	}
	if appt.Status != "scheduled" || appt.Amount != 20000 {
		t.Errorf("unexpected appointment: %+v", appt)
	}

	// Same slot again conflicts.
	resp = env.do(t, "POST", "/appointments", patientTok, body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on second booking, got %d", resp.StatusCode)
	}
}

func TestBookEndpointRejectsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, "POST", "/appointments", "", BookAppointmentRequest{
		DoctorID: env.docID.String(),
		Date:     futureDate(),
		Time:     "10:00",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestBookEndpointRoleRules(t *testing.T) {
	env := newTestEnv(t)

	t.Run("doctor cannot book", func(t *testing.T) {
		tok := env.token(t, auth.Actor{ID: uuid.New(), Role: auth.RoleDoctor})
		resp := env.do(t, "POST", "/appointments", tok, BookAppointmentRequest{
			DoctorID: env.docID.String(), Date: futureDate(), Time: "11:00",
		})
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", resp.StatusCode)
		}
	})

	t.Run("patient cannot book for another patient", func(t *testing.T) {
		tok := env.token(t, auth.Actor{ID: uuid.New(), Role: auth.RolePatient})
		resp := env.do(t, "POST", "/appointments", tok, BookAppointmentRequest{
			DoctorID:  env.docID.String(),
			Date:      futureDate(),
			Time:      "11:00",
			PatientID: uuid.New().String(),
		})
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", resp.StatusCode)
		}
	})

	t.Run("admin books on behalf of patient", func(t *testing.T) {
		tok := env.token(t, auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin})
		patientID := uuid.New()
		resp := env.do(t, "POST", "/appointments", tok, BookAppointmentRequest{
			DoctorID:  env.docID.String(),
			Date:      futureDate(),
			Time:      "12:00",
			PatientID: patientID.String(),
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}
		if appt := decodeAppointment(t, resp); appt.PatientID != patientID {
			t.Fatalf("expected patient %s, got %s", patientID, appt.PatientID)
		}
	})
}

func TestBookEndpointValidation(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, auth.Actor{ID: uuid.New(), Role: auth.RolePatient})

	t.Run("bad doctor id", func(t *testing.T) {
		resp := env.do(t, "POST", "/appointments", tok, BookAppointmentRequest{
			DoctorID: "not-a-uuid", Date: futureDate(), Time: "10:00",
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("malformed slot", func(t *testing.T) {
		resp := env.do(t, "POST", "/appointments", tok, BookAppointmentRequest{
			DoctorID: env.docID.String(), Date: "tomorrow", Time: "10:00",
		})
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", resp.StatusCode)
		}
	})

	t.Run("past slot", func(t *testing.T) {
		resp := env.do(t, "POST", "/appointments", tok, BookAppointmentRequest{
			DoctorID: env.docID.String(), Date: "2020-01-01", Time: "10:00",
		})
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", resp.StatusCode)
		}
	})

	t.Run("unknown doctor", func(t *testing.T) {
		resp := env.do(t, "POST", "/appointments", tok, BookAppointmentRequest{
			DoctorID: uuid.New().String(), Date: futureDate(), Time: "10:00",
		})
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})
}

func TestLifecycleEndpoints(t *testing.T) {
	env := newTestEnv(t)
	patientID := uuid.New()
	patientTok := env.token(t, auth.Actor{ID: patientID, Role: auth.RolePatient})
	doctorTok := env.token(t, auth.Actor{ID: env.docID, Role: auth.RoleDoctor})

	book := func(t *testing.T, timeOfDay string) AppointmentResponse {
		resp := env.do(t, "POST", "/appointments", patientTok, BookAppointmentRequest{
			DoctorID: env.docID.String(), Date: futureDate(), Time: timeOfDay,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("book: expected 201, got %d", resp.StatusCode)
		}
		return decodeAppointment(t, resp)
	}

	t.Run("cancel frees the slot", func(t *testing.T) {
		appt := book(t, "09:00")

		resp := env.do(t, "POST", fmt.Sprintf("/appointments/%s/cancel", appt.ID), patientTok, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("cancel: expected 204, got %d", resp.StatusCode)
		}

		// Slot is bookable again.
		resp = env.do(t, "POST", "/appointments", patientTok, BookAppointmentRequest{
			DoctorID: env.docID.String(), Date: futureDate(), Time: "09:00",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("rebook: expected 201, got %d", resp.StatusCode)
		}
	})

	t.Run("stranger cannot cancel", func(t *testing.T) {
		appt := book(t, "10:00")
		tok := env.token(t, auth.Actor{ID: uuid.New(), Role: auth.RolePatient})

		resp := env.do(t, "POST", fmt.Sprintf("/appointments/%s/cancel", appt.ID), tok, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", resp.StatusCode)
		}
	})

	t.Run("complete then cancel conflicts", func(t *testing.T) {
		appt := book(t, "11:00")

		resp := env.do(t, "POST", fmt.Sprintf("/appointments/%s/complete", appt.ID), doctorTok, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("complete: expected 204, got %d", resp.StatusCode)
		}

		resp = env.do(t, "POST", fmt.Sprintf("/appointments/%s/cancel", appt.ID), patientTok, nil)
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("cancel after complete: expected 409, got %d", resp.StatusCode)
		}
	})

	t.Run("patient cannot complete", func(t *testing.T) {
		appt := book(t, "12:00")

		resp := env.do(t, "POST", fmt.Sprintf("/appointments/%s/complete", appt.ID), patientTok, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", resp.StatusCode)
		}
	})

	t.Run("unknown appointment", func(t *testing.T) {
		resp := env.do(t, "POST", fmt.Sprintf("/appointments/%s/cancel", uuid.New()), patientTok, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})
}

func TestListEndpointScoping(t *testing.T) {
	env := newTestEnv(t)
	patientID := uuid.New()
	patientTok := env.token(t, auth.Actor{ID: patientID, Role: auth.RolePatient})
	otherTok := env.token(t, auth.Actor{ID: uuid.New(), Role: auth.RolePatient})

	resp := env.do(t, "POST", "/appointments", patientTok, BookAppointmentRequest{
		DoctorID: env.docID.String(), Date: futureDate(), Time: "10:00",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("book: expected 201, got %d", resp.StatusCode)
	}

	// Owner sees it.
	resp = env.do(t, "GET", "/appointments", patientTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var appts []AppointmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&appts); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(appts) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(appts))
	}

	// Another patient sees nothing.
	resp = env.do(t, "GET", "/appointments", otherTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("other list: expected 200, got %d", resp.StatusCode)
	}
	appts = nil
	if err := json.NewDecoder(resp.Body).Decode(&appts); err != nil {
		t.Fatalf("decode other list: %v", err)
	}
	if len(appts) != 0 {
		t.Fatalf("expected empty list, got %d", len(appts))
	}

	// And may not request the owner's scope.
	resp = env.do(t, "GET", "/appointments?patient_id="+patientID.String(), otherTok, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestDoctorEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("public listing", func(t *testing.T) {
		resp := env.do(t, "GET", "/doctors", "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var doctors []DoctorResponse
		if err := json.NewDecoder(resp.Body).Decode(&doctors); err != nil {
			t.Fatalf("decode doctors: %v", err)
		}
		if len(doctors) != 1 || doctors[0].ID != env.docID {
			t.Fatalf("unexpected doctors: %+v", doctors)
		}
	})

	t.Run("get unknown doctor", func(t *testing.T) {
		resp := env.do(t, "GET", "/doctors/"+uuid.New().String(), "", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("patient cannot update doctor", func(t *testing.T) {
		tok := env.token(t, auth.Actor{ID: uuid.New(), Role: auth.RolePatient})
		accepting := false
		resp := env.do(t, "PATCH", "/doctors/"+env.docID.String(), tok, UpdateDoctorRequest{AcceptingAppointments: &accepting})
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", resp.StatusCode)
		}
	})

	t.Run("doctor updates own record", func(t *testing.T) {
		tok := env.token(t, auth.Actor{ID: env.docID, Role: auth.RoleDoctor})
		price := int64(30000)
		resp := env.do(t, "PATCH", "/doctors/"+env.docID.String(), tok, UpdateDoctorRequest{Price: &price})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var d DoctorResponse
		if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
			t.Fatalf("decode doctor: %v", err)
		}
		if d.Price != 30000 {
			t.Fatalf("expected updated price, got %d", d.Price)
		}
	})
}
