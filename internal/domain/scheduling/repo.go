package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ShiftRepository interface {
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*ShiftTemplate, error)
	Create(ctx context.Context, s *ShiftTemplate) error
	DeleteByDoctor(ctx context.Context, doctorID uuid.UUID) error
}

type LeaveRepository interface {
	Create(ctx context.Context, l *DoctorLeave) error
	GetByID(ctx context.Context, id uuid.UUID) (*DoctorLeave, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*DoctorLeave, error)
	ListApprovedByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*DoctorLeave, error)
	ListByStatus(ctx context.Context, status LeaveStatus, limit, offset int) ([]*DoctorLeave, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status LeaveStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// UpdateSlot moves an appointment and resets it to Scheduled.
	UpdateSlot(ctx context.Context, id uuid.UUID, date time.Time, slot string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, date *time.Time, limit, offset int) ([]*Appointment, int, error)
	ListByDate(ctx context.Context, date time.Time, limit, offset int) ([]*Appointment, int, error)
	// ExistsForPatientAt reports a booking by the same patient at the same
	// date and slot, with any doctor.
	ExistsForPatientAt(ctx context.Context, patientID uuid.UUID, date time.Time, slot string) (bool, error)
}
