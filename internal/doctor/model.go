package doctor

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound     = errors.New("doctor not found")
	ErrDoctorNotAccepting = errors.New("doctor is not accepting appointments")
	ErrInvalidSlot        = errors.New("invalid slot")
	ErrSlotTaken          = errors.New("slot already booked")
)

const (
	slotDateLayout = "2006-01-02"
	slotTimeLayout = "15:04"
)

// Doctor metadata as owned by the availability store. Price is in minor
// currency units (cents) and is snapshotted onto appointments at booking.
type Doctor struct {
	ID                    uuid.UUID
	Name                  string
	Specialty             string
	Price                 int64
	AcceptingAppointments bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Slot is one bookable (calendar day, time of day) pair for a doctor.
// Both fields are canonical: "2006-01-02" and 24h "15:04".
type Slot struct {
	Date string
	Time string
}

// ParseSlot validates and canonicalizes caller-supplied date and time so
// that "9:5" and "09:05" cannot name two different slots.
func ParseSlot(date, timeOfDay string) (Slot, error) {
	d, err := time.Parse(slotDateLayout, date)
	if err != nil {
		return Slot{}, fmt.Errorf("%w: bad date %q", ErrInvalidSlot, date)
	}
	t, err := time.Parse(slotTimeLayout, timeOfDay)
	if err != nil {
		return Slot{}, fmt.Errorf("%w: bad time %q", ErrInvalidSlot, timeOfDay)
	}
	return Slot{
		Date: d.Format(slotDateLayout),
		Time: t.Format(slotTimeLayout),
	}, nil
}

// StartsAt returns the moment the slot begins, in UTC.
func (s Slot) StartsAt() time.Time {
	t, err := time.Parse(slotDateLayout+" "+slotTimeLayout, s.Date+" "+s.Time)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func (s Slot) String() string {
	return s.Date + " " + s.Time
}
