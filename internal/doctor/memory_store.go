package doctor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process AvailabilityStore with the same reservation
// semantics as the Postgres store. It backs tests and the race simulator.
type MemoryStore struct {
	mu       sync.Mutex
	doctors  map[uuid.UUID]*Doctor
	calendar map[uuid.UUID]map[Slot]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		doctors:  make(map[uuid.UUID]*Doctor),
		calendar: make(map[uuid.UUID]map[Slot]struct{}),
	}
}

// PutDoctor inserts or replaces a doctor record.
func (s *MemoryStore) PutDoctor(d Doctor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	d.UpdatedAt = time.Now()
	s.doctors[d.ID] = &d
}

func (s *MemoryStore) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) ListDoctors(ctx context.Context) ([]Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Doctor, 0, len(s.doctors))
	for _, d := range s.doctors {
		result = append(result, *d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *MemoryStore) IsSlotFree(ctx context.Context, doctorID uuid.UUID, slot Slot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, taken := s.calendar[doctorID][slot]
	return !taken, nil
}

func (s *MemoryStore) ReserveSlot(ctx context.Context, doctorID uuid.UUID, slot Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, ok := s.calendar[doctorID]
	if !ok {
		slots = make(map[Slot]struct{})
		s.calendar[doctorID] = slots
	}
	if _, taken := slots[slot]; taken {
		return ErrSlotTaken
	}
	slots[slot] = struct{}{}
	return nil
}

func (s *MemoryStore) ReleaseSlot(ctx context.Context, doctorID uuid.UUID, slot Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.calendar[doctorID], slot)
	return nil
}

func (s *MemoryStore) SetAccepting(ctx context.Context, doctorID uuid.UUID, accepting bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.doctors[doctorID]
	if !ok {
		return ErrDoctorNotFound
	}
	d.AcceptingAppointments = accepting
	d.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetPrice(ctx context.Context, doctorID uuid.UUID, price int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.doctors[doctorID]
	if !ok {
		return ErrDoctorNotFound
	}
	d.Price = price
	d.UpdatedAt = time.Now()
	return nil
}
