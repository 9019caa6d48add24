package doctor

import (
	"errors"
	"testing"
	"time"
)

func TestParseSlot(t *testing.T) {
	slot, err := ParseSlot("2024-06-01", "10:00")
	if err != nil {
		t.Fatalf("parse slot: %v", err)
	}
	if slot.Date != "2024-06-01" || slot.Time != "10:00" {
		t.Fatalf("unexpected slot: %+v", slot)
	}
}

func TestParseSlotCanonicalizes(t *testing.T) {
	// Leading-zero variants must collapse onto the same slot value.
	a, err := ParseSlot("2024-06-01", "09:05")
	if err != nil {
		t.Fatalf("parse slot: %v", err)
	}
	b, err := ParseSlot("2024-06-01", "9:05")
	if err != nil {
		t.Fatalf("parse slot variant: %v", err)
	}
	if a != b {
		t.Fatalf("expected %+v == %+v", a, b)
	}
}

func TestParseSlotRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		date string
		time string
	}{
		{"empty date", "", "10:00"},
		{"empty time", "2024-06-01", ""},
		{"bad date", "June 1st", "10:00"},
		{"bad time", "2024-06-01", "25:00"},
		{"timestamp as date", "2024-06-01T10:00:00Z", "10:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSlot(tt.date, tt.time)
			if !errors.Is(err, ErrInvalidSlot) {
				t.Fatalf("expected ErrInvalidSlot, got %v", err)
			}
		})
	}
}

func TestSlotStartsAt(t *testing.T) {
	slot, err := ParseSlot("2024-06-01", "10:00")
	if err != nil {
		t.Fatalf("parse slot: %v", err)
	}

	want := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if !slot.StartsAt().Equal(want) {
		t.Fatalf("expected %s, got %s", want, slot.StartsAt())
	}
}
