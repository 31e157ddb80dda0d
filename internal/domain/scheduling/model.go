// Package scheduling is the core of the system: weekly shift templates, the
// doctor leave registry, the availability resolver and the appointment
// lifecycle. All slot times are zero-padded "HH:MM" strings in clinic-local
// time, so lexicographic comparison is ordering-correct and half-open range
// membership needs no time parsing.
package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// -- Slots --

// ValidSlot reports whether s is a zero-padded 24h "HH:MM" string.
func ValidSlot(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

// SlotInRange reports whether slot lies in [start, end). Half-open: a slot at
// the shift's end time belongs to the next shift, not this one.
func SlotInRange(slot, start, end string) bool {
	return start <= slot && slot < end
}

// -- Shift templates --

// ShiftTemplate is one row of a doctor's weekly availability: a named shift
// on one weekday. A closed row contributes no bookable range and does not
// block other rows on the same day.
type ShiftTemplate struct {
	ID       uuid.UUID    `json:"id"`
	DoctorID uuid.UUID    `json:"doctor_id"`
	Weekday  time.Weekday `json:"weekday"`
	Shift    string       `json:"shift"`
	Start    string       `json:"start"`
	End      string       `json:"end"`
	Closed   bool         `json:"closed"`
}

// Validate checks a single template row.
func (s *ShiftTemplate) Validate() error {
	if s.Weekday < time.Sunday || s.Weekday > time.Saturday {
		return fmt.Errorf("weekday must be 0 (Sunday) through 6 (Saturday)")
	}
	if s.Shift == "" {
		return fmt.Errorf("shift name is required")
	}
	if !ValidSlot(s.Start) || !ValidSlot(s.End) {
		return fmt.Errorf("start and end must be HH:MM")
	}
	if !s.Closed && s.Start >= s.End {
		return fmt.Errorf("shift start must be before end")
	}
	return nil
}

// Range renders the bookable window as "Shift: start - end".
func (s *ShiftTemplate) Range() string {
	return fmt.Sprintf("%s: %s - %s", s.Shift, s.Start, s.End)
}

// -- Leaves --

type LeaveStatus string

const (
	LeavePending  LeaveStatus = "Pending"
	LeaveApproved LeaveStatus = "Approved"
	LeaveRejected LeaveStatus = "Rejected"
)

func ValidLeaveStatus(s LeaveStatus) bool {
	switch s {
	case LeavePending, LeaveApproved, LeaveRejected:
		return true
	}
	return false
}

// DoctorLeave blocks a doctor's calendar for the inclusive date span
// [StartDate, EndDate]. Only Approved leaves affect availability.
type DoctorLeave struct {
	ID        uuid.UUID   `json:"id"`
	DoctorID  uuid.UUID   `json:"doctor_id"`
	StartDate time.Time   `json:"start_date"`
	EndDate   time.Time   `json:"end_date"`
	Reason    string      `json:"reason,omitempty"`
	Status    LeaveStatus `json:"status"`
}

// Covers reports whether d falls inside the leave span, endpoints included.
func (l *DoctorLeave) Covers(d time.Time) bool {
	day := DateOnly(d)
	return !day.Before(DateOnly(l.StartDate)) && !day.After(DateOnly(l.EndDate))
}

// -- Appointments --

type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusCheckedIn Status = "Checked-In"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
	StatusNoShow    Status = "No-Show"
)

var validStatuses = map[Status]bool{
	StatusScheduled: true,
	StatusCheckedIn: true,
	StatusCompleted: true,
	StatusCancelled: true,
	StatusNoShow:    true,
}

func ValidStatus(s Status) bool { return validStatuses[s] }

// Appointment is one booked slot. Date carries only the calendar day;
// TimeSlot is the "HH:MM" start. BookedAt is set once at creation.
// PatientName, PatientEmail and DoctorName are read-only projections joined
// from the identity tables.
type Appointment struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	ServiceID uuid.UUID `json:"service_id"`
	Date      time.Time `json:"date"`
	TimeSlot  string    `json:"time_slot"`
	Status    Status    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	BookedAt  time.Time `json:"booked_at"`

	PatientName  string `json:"patient_name,omitempty"`
	PatientEmail string `json:"-"`
	DoctorName   string `json:"doctor_name,omitempty"`
}

// DateOnly strips the time-of-day component, keeping t's location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
