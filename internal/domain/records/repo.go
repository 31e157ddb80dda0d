package records

import (
	"context"

	"github.com/google/uuid"
)

type ServiceRepository interface {
	Create(ctx context.Context, s *ClinicService) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClinicService, error)
	Update(ctx context.Context, s *ClinicService) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*ClinicService, int, error)
	AssignDoctor(ctx context.Context, serviceID, doctorID uuid.UUID) error
	UnassignDoctor(ctx context.Context, serviceID, doctorID uuid.UUID) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*ClinicService, error)
}

type PrescriptionRepository interface {
	// Create persists the prescription and its items together.
	Create(ctx context.Context, p *Prescription) error
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Prescription, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error)
}

type FeedbackRepository interface {
	Create(ctx context.Context, f *Feedback) error
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Feedback, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Feedback, int, error)
}
