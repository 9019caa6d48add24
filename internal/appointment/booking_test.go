package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicdesk/appointment-booking/internal/doctor"
)

// passLocker runs the critical section without any cross-process lock, so
// these tests exercise the store's own atomicity.
type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, doctorID uuid.UUID, date, timeOfDay string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// failingRepo rejects every create so the compensating release path runs.
type failingRepo struct {
	*MemoryRepository
}

func (failingRepo) Create(ctx context.Context, appt *Appointment) error {
	return errors.New("storage unreachable")
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newBookingFixture(t *testing.T) (*BookingService, *doctor.MemoryStore, *MemoryRepository, uuid.UUID) {
	t.Helper()

	store := doctor.NewMemoryStore()
	repo := NewMemoryRepository()
	docID := uuid.New()
	store.PutDoctor(doctor.Doctor{
		ID:                    docID,
		Name:                  "Dr Example",
		Specialty:             "Dermatology",
		Price:                 20000,
		AcceptingAppointments: true,
	})

	svc := NewBookingService(store, repo, passLocker{}, zap.NewNop()).WithClock(fixedClock(testNow))
	return svc, store, repo, docID
}

func mustSlot(t *testing.T, date, timeOfDay string) doctor.Slot {
	t.Helper()
	slot, err := doctor.ParseSlot(date, timeOfDay)
	if err != nil {
		t.Fatalf("parse slot: %v", err)
	}
	return slot
}

func TestBookHappyPath(t *testing.T) {
	svc, store, _, docID := newBookingFixture(t)
	ctx := context.Background()
	patientID := uuid.New()
	slot := mustSlot(t, "2024-06-01", "10:00")

	appt, err := svc.Book(ctx, patientID, docID, slot)
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	if appt.Status != StatusScheduled {
		t.Errorf("expected scheduled, got %s", appt.Status)
	}
	if appt.Amount != 20000 {
		t.Errorf("expected amount 20000, got %d", appt.Amount)
	}
	if appt.PatientID != patientID || appt.DoctorID != docID {
		t.Errorf("wrong parties on appointment: %+v", appt)
	}

	free, _ := store.IsSlotFree(ctx, docID, slot)
	if free {
		t.Error("slot should be consumed after booking")
	}
}

func TestBookDoctorNotFound(t *testing.T) {
	svc, _, _, _ := newBookingFixture(t)

	_, err := svc.Book(context.Background(), uuid.New(), uuid.New(), mustSlot(t, "2024-06-01", "10:00"))
	if !errors.Is(err, doctor.ErrDoctorNotFound) {
		t.Fatalf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestBookDoctorNotAccepting(t *testing.T) {
	svc, store, _, docID := newBookingFixture(t)
	ctx := context.Background()

	if err := store.SetAccepting(ctx, docID, false); err != nil {
		t.Fatalf("set accepting: %v", err)
	}

	_, err := svc.Book(ctx, uuid.New(), docID, mustSlot(t, "2024-06-01", "10:00"))
	if !errors.Is(err, doctor.ErrDoctorNotAccepting) {
		t.Fatalf("expected ErrDoctorNotAccepting, got %v", err)
	}
}

func TestBookRejectsPastSlot(t *testing.T) {
	svc, store, _, docID := newBookingFixture(t)
	ctx := context.Background()

	// Clock is pinned to 2024-01-01 12:00 UTC.
	for _, tc := range []struct{ date, time string }{
		{"2023-12-31", "10:00"},
		{"2024-01-01", "12:00"}, // exactly now is not strictly future
		{"2024-01-01", "11:59"},
	} {
		_, err := svc.Book(ctx, uuid.New(), docID, mustSlot(t, tc.date, tc.time))
		if !errors.Is(err, doctor.ErrInvalidSlot) {
			t.Errorf("slot %s %s: expected ErrInvalidSlot, got %v", tc.date, tc.time, err)
		}
	}

	// Rejected bookings must not consume the slot.
	free, _ := store.IsSlotFree(ctx, docID, doctor.Slot{Date: "2023-12-31", Time: "10:00"})
	if !free {
		t.Error("past slot should not have been reserved")
	}
}

func TestBookSlotTaken(t *testing.T) {
	svc, _, repo, docID := newBookingFixture(t)
	ctx := context.Background()
	slot := mustSlot(t, "2024-06-01", "10:00")

	first, err := svc.Book(ctx, uuid.New(), docID, slot)
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}

	_, err = svc.Book(ctx, uuid.New(), docID, slot)
	if !errors.Is(err, doctor.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	// No second record was created.
	all, err := repo.List(ctx, Filter{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].ID != first.ID {
		t.Fatalf("expected only the first appointment, got %d records", len(all))
	}
}

func TestBookDifferentTimesSameDay(t *testing.T) {
	svc, _, _, docID := newBookingFixture(t)
	ctx := context.Background()

	if _, err := svc.Book(ctx, uuid.New(), docID, mustSlot(t, "2024-06-01", "10:00")); err != nil {
		t.Fatalf("book 10:00: %v", err)
	}
	if _, err := svc.Book(ctx, uuid.New(), docID, mustSlot(t, "2024-06-01", "11:00")); err != nil {
		t.Fatalf("book 11:00: %v", err)
	}
}

func TestBookCompensatesOnPersistFailure(t *testing.T) {
	store := doctor.NewMemoryStore()
	docID := uuid.New()
	store.PutDoctor(doctor.Doctor{ID: docID, Name: "Dr Example", Price: 20000, AcceptingAppointments: true})

	svc := NewBookingService(store, failingRepo{NewMemoryRepository()}, passLocker{}, zap.NewNop()).
		WithClock(fixedClock(testNow))

	ctx := context.Background()
	slot := mustSlot(t, "2024-06-01", "10:00")

	_, err := svc.Book(ctx, uuid.New(), docID, slot)
	if err == nil {
		t.Fatal("expected booking to fail")
	}

	// The reservation must have been rolled back.
	free, _ := store.IsSlotFree(ctx, docID, slot)
	if !free {
		t.Fatal("slot should be free after compensating release")
	}

	// And a retry against a working repo succeeds.
	retry := NewBookingService(store, NewMemoryRepository(), passLocker{}, zap.NewNop()).
		WithClock(fixedClock(testNow))
	if _, err := retry.Book(ctx, uuid.New(), docID, slot); err != nil {
		t.Fatalf("retry after compensation: %v", err)
	}
}

func TestBookAmountSnapshotSurvivesPriceChange(t *testing.T) {
	svc, store, repo, docID := newBookingFixture(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, uuid.New(), docID, mustSlot(t, "2024-06-01", "10:00"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	if err := store.SetPrice(ctx, docID, 99900); err != nil {
		t.Fatalf("set price: %v", err)
	}

	reloaded, err := repo.GetByID(ctx, appt.ID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if reloaded.Amount != 20000 {
		t.Fatalf("amount changed after price update: %d", reloaded.Amount)
	}

	// New bookings pick up the new price.
	appt2, err := svc.Book(ctx, uuid.New(), docID, mustSlot(t, "2024-06-01", "11:00"))
	if err != nil {
		t.Fatalf("second book: %v", err)
	}
	if appt2.Amount != 99900 {
		t.Fatalf("expected new price on new booking, got %d", appt2.Amount)
	}
}

func TestBookConcurrentRace(t *testing.T) {
	svc, _, repo, docID := newBookingFixture(t)
	ctx := context.Background()
	slot := mustSlot(t, "2024-06-01", "10:00")

	const callers = 20

	var wg sync.WaitGroup
	errs := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Book(ctx, uuid.New(), docID, slot)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	won, lost := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, doctor.ErrSlotTaken):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if won != 1 || lost != callers-1 {
		t.Fatalf("expected exactly one winner, got won=%d lost=%d", won, lost)
	}

	all, err := repo.List(ctx, Filter{Limit: callers})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one appointment record, got %d", len(all))
	}
}
