package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinichq/clinic/internal/platform/auth"
	"github.com/clinichq/clinic/internal/platform/db"
	"github.com/clinichq/clinic/internal/platform/notification"
	"github.com/clinichq/clinic/pkg/apperror"
)

// Emitter queues an appointment event for asynchronous delivery.
type Emitter interface {
	Emit(ev notification.Event)
}

// Service owns the appointment lifecycle and the schedule/leave writes that
// feed the availability resolver. Validation always runs against candidate
// values before anything is persisted, so a failed operation leaves the
// stored appointment untouched.
type Service struct {
	appts   AppointmentRepository
	shifts  ShiftRepository
	leaves  LeaveRepository
	avail   *Availability
	emitter Emitter

	runTx func(ctx context.Context, fn func(context.Context) error) error
	now   func() time.Time
}

// NewService wires the scheduling core. pool may be nil in tests; batch
// writes then run without a surrounding transaction.
func NewService(appts AppointmentRepository, shifts ShiftRepository, leaves LeaveRepository,
	avail *Availability, emitter Emitter, pool *pgxpool.Pool) *Service {
	s := &Service{
		appts:   appts,
		shifts:  shifts,
		leaves:  leaves,
		avail:   avail,
		emitter: emitter,
		now:     time.Now,
	}
	if pool != nil {
		s.runTx = func(ctx context.Context, fn func(context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		}
	} else {
		s.runTx = func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		}
	}
	return s
}

// Availability exposes the resolver for read endpoints.
func (s *Service) Availability() *Availability { return s.avail }

// -- Booking --

type BookInput struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	ServiceID uuid.UUID
	Date      time.Time
	TimeSlot  string
	Reason    string
}

// Book validates and creates an appointment. The database unique constraint
// on (doctor, date, slot) is the last word on double booking; a violation
// surfaces as a conflict regardless of what the availability check saw.
func (s *Service) Book(ctx context.Context, in BookInput) (*Appointment, error) {
	if err := s.validateCandidate(ctx, in.DoctorID, in.Date, in.TimeSlot); err != nil {
		return nil, err
	}
	exists, err := s.appts.ExistsForPatientAt(ctx, in.PatientID, DateOnly(in.Date), in.TimeSlot)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.Conflict("you already have an appointment booked for this date and time")
	}

	a := &Appointment{
		PatientID: in.PatientID,
		DoctorID:  in.DoctorID,
		ServiceID: in.ServiceID,
		Date:      DateOnly(in.Date),
		TimeSlot:  in.TimeSlot,
		Status:    StatusScheduled,
		Reason:    in.Reason,
	}
	if err := s.appts.Create(ctx, a); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperror.Conflict("slot already booked")
		}
		return nil, err
	}

	created, err := s.appts.GetByID(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("load created appointment: %w", err)
	}
	s.emit(notification.ActionBooked, created)
	return created, nil
}

// validateCandidate runs the creation-time checks in their fixed order:
// past date, past time today, then availability.
func (s *Service) validateCandidate(ctx context.Context, doctorID uuid.UUID, date time.Time, slot string) error {
	if !ValidSlot(slot) {
		return apperror.Validation("time_slot", "time slot must be HH:MM")
	}
	now := s.now()
	day := DateOnly(date)
	today := DateOnly(now)
	if day.Before(today) {
		return apperror.Validation("date", "cannot book an appointment in the past")
	}
	if day.Equal(today) && slot < now.Format("15:04") {
		return apperror.Validation("time_slot", "cannot book an appointment time that has already passed")
	}
	return s.avail.CheckSlot(ctx, doctorID, day, slot)
}

// Reschedule moves an appointment to a new slot with the same doctor.
// Completed and cancelled appointments cannot be rescheduled. The candidate
// slot is fully validated first; on failure the appointment keeps its
// original date and time. Success resets the status to Scheduled.
func (s *Service) Reschedule(ctx context.Context, p auth.Principal, id uuid.UUID, date time.Time, slot string) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("appointment")
	}
	if !p.IsAdmin() && a.PatientID != p.UserID {
		return nil, apperror.Forbidden("you can only reschedule your own appointments")
	}
	if a.Status == StatusCompleted || a.Status == StatusCancelled {
		return nil, apperror.Validation("status", "cannot reschedule an appointment that is %s", a.Status)
	}

	if err := s.validateCandidate(ctx, a.DoctorID, date, slot); err != nil {
		return nil, err
	}
	if err := s.appts.UpdateSlot(ctx, id, DateOnly(date), slot); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperror.Conflict("slot already booked")
		}
		return nil, err
	}

	updated, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load rescheduled appointment: %w", err)
	}
	s.emit(notification.ActionRescheduled, updated)
	return updated, nil
}

// Cancel marks an appointment cancelled. Completed and past appointments
// cannot be cancelled; cancelling twice is an error.
func (s *Service) Cancel(ctx context.Context, p auth.Principal, id uuid.UUID) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("appointment")
	}
	if !p.IsAdmin() && a.PatientID != p.UserID {
		return nil, apperror.Forbidden("you can only cancel your own appointments")
	}
	if a.Status == StatusCompleted {
		return nil, apperror.Validation("status", "cannot cancel an appointment that is already completed")
	}
	if a.Status == StatusCancelled {
		return nil, apperror.Validation("status", "this appointment is already cancelled")
	}
	if DateOnly(a.Date).Before(DateOnly(s.now())) {
		return nil, apperror.Validation("date", "cannot cancel a past appointment")
	}

	if err := s.appts.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		return nil, err
	}
	a.Status = StatusCancelled
	s.emit(notification.ActionCancelled, a)
	return a, nil
}

// Complete marks a Scheduled appointment completed. Only the owning doctor
// may complete it.
func (s *Service) Complete(ctx context.Context, p auth.Principal, id uuid.UUID) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("appointment")
	}
	if !p.IsDoctor() || a.DoctorID != p.UserID {
		return nil, apperror.Forbidden("only the appointment's doctor can complete it")
	}
	if a.Status != StatusScheduled {
		return nil, apperror.Validation("status", "cannot complete an appointment that is %s", a.Status)
	}

	if err := s.appts.UpdateStatus(ctx, id, StatusCompleted); err != nil {
		return nil, err
	}
	a.Status = StatusCompleted
	return a, nil
}

// SetStatus is the administrative status override. Admins may set any valid
// status; doctors only Completed or Cancelled on their own appointments.
func (s *Service) SetStatus(ctx context.Context, p auth.Principal, id uuid.UUID, status Status) (*Appointment, error) {
	if !ValidStatus(status) {
		return nil, apperror.Validation("status", "unknown status %q", status)
	}
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("appointment")
	}

	switch {
	case p.IsAdmin():
	case p.IsDoctor() && a.DoctorID == p.UserID:
		if status != StatusCompleted && status != StatusCancelled {
			return nil, apperror.Forbidden("doctors can only mark Completed or Cancelled")
		}
	default:
		return nil, apperror.Forbidden("unauthorized")
	}

	if err := s.appts.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	a.Status = status
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("appointment")
	}
	return a, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.ListByPatient(ctx, patientID, limit, offset)
}

// ListForDoctor returns a doctor's appointments, optionally restricted to
// today only.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, todayOnly bool, limit, offset int) ([]*Appointment, int, error) {
	var date *time.Time
	if todayOnly {
		d := DateOnly(s.now())
		date = &d
	}
	return s.appts.ListByDoctor(ctx, doctorID, date, limit, offset)
}

// TodayQueue is the admin view of every appointment scheduled for today.
func (s *Service) TodayQueue(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.ListByDate(ctx, DateOnly(s.now()), limit, offset)
}

func (s *Service) emit(action notification.Action, a *Appointment) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(notification.Event{
		Action:        action,
		AppointmentID: a.ID,
		PatientName:   a.PatientName,
		PatientEmail:  a.PatientEmail,
		DoctorName:    a.DoctorName,
		Date:          a.Date.Format("2006-01-02"),
		TimeSlot:      a.TimeSlot,
		OccurredAt:    s.now(),
	})
}

// -- Weekly schedule --

// GetWeeklySchedule returns every template row for the doctor.
func (s *Service) GetWeeklySchedule(ctx context.Context, doctorID uuid.UUID) ([]*ShiftTemplate, error) {
	return s.shifts.ListByDoctor(ctx, doctorID)
}

// ReplaceWeeklySchedule atomically swaps a doctor's whole weekly template.
// Either every row lands or none does; the availability cache is invalidated
// after the commit.
func (s *Service) ReplaceWeeklySchedule(ctx context.Context, doctorID uuid.UUID, rows []*ShiftTemplate) ([]*ShiftTemplate, error) {
	seen := make(map[string]bool)
	for _, row := range rows {
		row.DoctorID = doctorID
		if err := row.Validate(); err != nil {
			return nil, apperror.Validation("shifts", "%v", err)
		}
		key := fmt.Sprintf("%d/%s", row.Weekday, row.Shift)
		if seen[key] {
			return nil, apperror.Validation("shifts", "duplicate shift %q on %s", row.Shift, row.Weekday)
		}
		seen[key] = true
	}

	err := s.runTx(ctx, func(ctx context.Context) error {
		if err := s.shifts.DeleteByDoctor(ctx, doctorID); err != nil {
			return err
		}
		for _, row := range rows {
			if err := s.shifts.Create(ctx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.avail.Invalidate(doctorID)
	return rows, nil
}

// -- Leaves --

// SubmitLeave is the doctor's self-service path: the leave takes effect
// immediately as Approved.
func (s *Service) SubmitLeave(ctx context.Context, doctorID uuid.UUID, start, end time.Time, reason string) (*DoctorLeave, error) {
	return s.createLeave(ctx, doctorID, start, end, reason, LeaveApproved)
}

// RequestLeave is the admin-moderated path: the leave starts Pending and
// does not affect availability until approved.
func (s *Service) RequestLeave(ctx context.Context, doctorID uuid.UUID, start, end time.Time, reason string) (*DoctorLeave, error) {
	return s.createLeave(ctx, doctorID, start, end, reason, LeavePending)
}

func (s *Service) createLeave(ctx context.Context, doctorID uuid.UUID, start, end time.Time, reason string, status LeaveStatus) (*DoctorLeave, error) {
	startDay, endDay := DateOnly(start), DateOnly(end)
	if endDay.Before(startDay) {
		return nil, apperror.Validation("end_date", "end date cannot be before start date")
	}
	if startDay.Before(DateOnly(s.now())) {
		return nil, apperror.Validation("start_date", "leave cannot start in the past")
	}

	l := &DoctorLeave{
		DoctorID:  doctorID,
		StartDate: startDay,
		EndDate:   endDay,
		Reason:    reason,
		Status:    status,
	}
	if err := s.leaves.Create(ctx, l); err != nil {
		return nil, err
	}
	if status == LeaveApproved {
		s.avail.Invalidate(doctorID)
	}
	return l, nil
}

// DecideLeave moves a Pending leave to Approved or Rejected.
func (s *Service) DecideLeave(ctx context.Context, id uuid.UUID, status LeaveStatus) (*DoctorLeave, error) {
	if status != LeaveApproved && status != LeaveRejected {
		return nil, apperror.Validation("status", "status must be Approved or Rejected")
	}
	l, err := s.leaves.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("leave")
	}
	if l.Status != LeavePending {
		return nil, apperror.Conflict("leave has already been %s", l.Status)
	}

	if err := s.leaves.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	l.Status = status
	s.avail.Invalidate(l.DoctorID)
	return l, nil
}

// DeleteLeave removes a leave. Owners and admins only.
func (s *Service) DeleteLeave(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	l, err := s.leaves.GetByID(ctx, id)
	if err != nil {
		return apperror.NotFound("leave")
	}
	if !p.IsAdmin() && l.DoctorID != p.UserID {
		return apperror.Forbidden("you can only delete your own leaves")
	}

	if err := s.leaves.Delete(ctx, id); err != nil {
		return err
	}
	s.avail.Invalidate(l.DoctorID)
	return nil
}

func (s *Service) ListLeaves(ctx context.Context, doctorID uuid.UUID) ([]*DoctorLeave, error) {
	return s.leaves.ListByDoctor(ctx, doctorID)
}

// ListLeaveRequests returns leaves awaiting an admin decision.
func (s *Service) ListLeaveRequests(ctx context.Context, limit, offset int) ([]*DoctorLeave, int, error) {
	return s.leaves.ListByStatus(ctx, LeavePending, limit, offset)
}
