package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestValidSlot(t *testing.T) {
	valid := []string{"00:00", "09:30", "13:00", "23:59"}
	for _, s := range valid {
		if !ValidSlot(s) {
			t.Errorf("ValidSlot(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "9:30", "24:00", "12:60", "12-30", "12:30:00", "noon"}
	for _, s := range invalid {
		if ValidSlot(s) {
			t.Errorf("ValidSlot(%q) = true, want false", s)
		}
	}
}

func TestSlotInRange(t *testing.T) {
	tests := []struct {
		slot string
		want bool
	}{
		{"09:59", false},
		{"10:00", true},
		{"12:59", true},
		{"13:00", false}, // end is exclusive
		{"13:01", false},
	}
	for _, tt := range tests {
		if got := SlotInRange(tt.slot, "10:00", "13:00"); got != tt.want {
			t.Errorf("SlotInRange(%q, 10:00, 13:00) = %v, want %v", tt.slot, got, tt.want)
		}
	}
}

func TestShiftTemplateValidate(t *testing.T) {
	good := ShiftTemplate{Weekday: time.Monday, Shift: "Morning", Start: "10:00", End: "13:00"}
	if err := good.Validate(); err != nil {
		t.Errorf("valid shift: %v", err)
	}

	bad := []ShiftTemplate{
		{Weekday: time.Monday, Shift: "", Start: "10:00", End: "13:00"},
		{Weekday: time.Monday, Shift: "Morning", Start: "10am", End: "13:00"},
		{Weekday: time.Monday, Shift: "Morning", Start: "13:00", End: "10:00"},
		{Weekday: time.Monday, Shift: "Morning", Start: "10:00", End: "10:00"},
	}
	for i, s := range bad {
		if err := s.Validate(); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}

	// A closed row may carry an empty window.
	closed := ShiftTemplate{Weekday: time.Sunday, Shift: "Morning", Start: "10:00", End: "10:00", Closed: true}
	if err := closed.Validate(); err != nil {
		t.Errorf("closed shift: %v", err)
	}
}

func TestShiftTemplateRange(t *testing.T) {
	s := ShiftTemplate{Shift: "Evening", Start: "17:00", End: "22:00"}
	if got := s.Range(); got != "Evening: 17:00 - 22:00" {
		t.Errorf("Range() = %q", got)
	}
}

func TestLeaveCovers(t *testing.T) {
	l := DoctorLeave{
		DoctorID:  uuid.New(),
		StartDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
	}
	tests := []struct {
		day  int
		want bool
	}{
		{9, false},
		{10, true}, // start inclusive
		{11, true},
		{12, true}, // end inclusive
		{13, false},
	}
	for _, tt := range tests {
		d := time.Date(2026, 9, tt.day, 15, 30, 0, 0, time.UTC)
		if got := l.Covers(d); got != tt.want {
			t.Errorf("Covers(Sep %d) = %v, want %v", tt.day, got, tt.want)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusScheduled, StatusCheckedIn, StatusCompleted, StatusCancelled, StatusNoShow} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false", s)
		}
	}
	if ValidStatus("Pending") {
		t.Error("ValidStatus(Pending) = true, want false")
	}
}
