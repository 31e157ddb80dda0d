package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/clinichq/clinic/pkg/apperror"
)

const calendarCacheSize = 512

// doctorCalendar is the cached availability input for one doctor: the full
// weekly template plus approved leaves.
type doctorCalendar struct {
	shifts []*ShiftTemplate
	leaves []*DoctorLeave
}

// Availability answers "can doctor D take a patient at slot T on date X".
// It caches per-doctor calendars in an LRU; every write path that changes a
// schedule or leave must call Invalidate for the affected doctor.
type Availability struct {
	shifts ShiftRepository
	leaves LeaveRepository
	cache  *lru.Cache[uuid.UUID, *doctorCalendar]
}

func NewAvailability(shifts ShiftRepository, leaves LeaveRepository) *Availability {
	cache, _ := lru.New[uuid.UUID, *doctorCalendar](calendarCacheSize)
	return &Availability{shifts: shifts, leaves: leaves, cache: cache}
}

// Invalidate drops the cached calendar for one doctor.
func (a *Availability) Invalidate(doctorID uuid.UUID) {
	a.cache.Remove(doctorID)
}

func (a *Availability) calendar(ctx context.Context, doctorID uuid.UUID) (*doctorCalendar, error) {
	if cal, ok := a.cache.Get(doctorID); ok {
		return cal, nil
	}
	shifts, err := a.shifts.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	leaves, err := a.leaves.ListApprovedByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	cal := &doctorCalendar{shifts: shifts, leaves: leaves}
	a.cache.Add(doctorID, cal)
	return cal, nil
}

// CheckSlot validates a candidate slot. The checks run in a fixed order:
// approved leave first, then the weekday's shift rows, then half-open range
// membership. The range error lists every bookable window for that weekday.
func (a *Availability) CheckSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, slot string) error {
	cal, err := a.calendar(ctx, doctorID)
	if err != nil {
		return err
	}

	for _, l := range cal.leaves {
		if l.Covers(date) {
			return apperror.Validation("date", "the doctor is not available on %s (day off or leave)",
				date.Format("Monday, 02 January"))
		}
	}

	weekday := date.Weekday()
	var open []*ShiftTemplate
	for _, s := range cal.shifts {
		if s.Weekday == weekday && !s.Closed {
			open = append(open, s)
		}
	}
	if len(open) == 0 {
		return apperror.Validation("date", "the doctor is not available on %s (day off or leave)",
			date.Format("Monday, 02 January"))
	}

	var ranges []string
	for _, s := range open {
		ranges = append(ranges, s.Range())
		if SlotInRange(slot, s.Start, s.End) {
			return nil
		}
	}
	return apperror.Validation("time_slot", "invalid time. On %ss, the doctor is available during: %s",
		weekday, strings.Join(ranges, " & "))
}

// IsAvailable is the read probe used by the availability endpoint. A
// validation failure means "no"; any other error is infrastructure.
func (a *Availability) IsAvailable(ctx context.Context, doctorID uuid.UUID, date time.Time, slot string) (bool, error) {
	err := a.CheckSlot(ctx, doctorID, date, slot)
	if err == nil {
		return true, nil
	}
	if apperror.IsKind(err, apperror.KindValidation) {
		return false, nil
	}
	return false, err
}

// ValidRanges returns the bookable windows for one weekday, for booking UIs.
func (a *Availability) ValidRanges(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]string, error) {
	cal, err := a.calendar(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	var ranges []string
	for _, s := range cal.shifts {
		if s.Weekday == weekday && !s.Closed {
			ranges = append(ranges, s.Range())
		}
	}
	return ranges, nil
}
