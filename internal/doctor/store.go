package doctor

import (
	"context"

	"github.com/google/uuid"
)

// AvailabilityStore owns doctor metadata and the per-doctor slot calendar.
// A slot is present in the calendar exactly while a non-cancelled
// appointment occupies it.
type AvailabilityStore interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)

	// IsSlotFree reports whether nothing currently occupies the slot.
	IsSlotFree(ctx context.Context, doctorID uuid.UUID, slot Slot) (bool, error)

	// ReserveSlot atomically moves the slot from free to consumed.
	// Returns ErrSlotTaken if something already occupies it. Implementations
	// must use a single conditional write, never a read-then-write pair.
	ReserveSlot(ctx context.Context, doctorID uuid.UUID, slot Slot) error

	// ReleaseSlot frees the slot. Releasing an already-free slot is a no-op,
	// so compensating rollbacks can call it unconditionally.
	ReleaseSlot(ctx context.Context, doctorID uuid.UUID, slot Slot) error

	// Metadata updates. Price changes never touch existing appointments.
	SetAccepting(ctx context.Context, doctorID uuid.UUID, accepting bool) error
	SetPrice(ctx context.Context, doctorID uuid.UUID, price int64) error
}
