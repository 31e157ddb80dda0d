package records

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinichq/clinic/internal/domain/scheduling"
	"github.com/clinichq/clinic/internal/platform/auth"
	"github.com/clinichq/clinic/internal/platform/db"
	"github.com/clinichq/clinic/pkg/apperror"
)

// AppointmentSource resolves appointments for cross-checks. Satisfied by the
// scheduling service.
type AppointmentSource interface {
	Get(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
}

// Service manages the catalog, prescriptions and feedback.
type Service struct {
	services      ServiceRepository
	prescriptions PrescriptionRepository
	feedback      FeedbackRepository
	appts         AppointmentSource

	runTx func(ctx context.Context, fn func(context.Context) error) error
}

func NewService(services ServiceRepository, prescriptions PrescriptionRepository,
	feedback FeedbackRepository, appts AppointmentSource, pool *pgxpool.Pool) *Service {
	s := &Service{
		services:      services,
		prescriptions: prescriptions,
		feedback:      feedback,
		appts:         appts,
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

// -- Catalog --

type ServiceInput struct {
	Name        string
	Description string
	DurationMin int
	BasePrice   int64
}

func (in ServiceInput) validate() error {
	if in.Name == "" {
		return apperror.Validation("name", "name is required")
	}
	if in.DurationMin <= 0 {
		return apperror.Validation("duration_min", "duration must be positive")
	}
	if in.BasePrice < 0 {
		return apperror.Validation("base_price", "price cannot be negative")
	}
	return nil
}

func (s *Service) CreateService(ctx context.Context, in ServiceInput) (*ClinicService, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	svc := &ClinicService{
		Name:        in.Name,
		Description: in.Description,
		DurationMin: in.DurationMin,
		BasePrice:   in.BasePrice,
		Active:      true,
	}
	if err := s.services.Create(ctx, svc); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperror.Conflict("a service named %q already exists", in.Name)
		}
		return nil, err
	}
	return svc, nil
}

func (s *Service) UpdateService(ctx context.Context, id uuid.UUID, in ServiceInput) (*ClinicService, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("service")
	}
	svc.Name = in.Name
	svc.Description = in.Description
	svc.DurationMin = in.DurationMin
	svc.BasePrice = in.BasePrice
	if err := s.services.Update(ctx, svc); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperror.Conflict("a service named %q already exists", in.Name)
		}
		return nil, err
	}
	return svc, nil
}

// DeactivateService retires a catalog entry. Appointments keep their
// reference, so rows are never deleted.
func (s *Service) DeactivateService(ctx context.Context, id uuid.UUID) error {
	if _, err := s.services.GetByID(ctx, id); err != nil {
		return apperror.NotFound("service")
	}
	return s.services.SetActive(ctx, id, false)
}

func (s *Service) GetService(ctx context.Context, id uuid.UUID) (*ClinicService, error) {
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("service")
	}
	return svc, nil
}

func (s *Service) ListServices(ctx context.Context, activeOnly bool, limit, offset int) ([]*ClinicService, int, error) {
	return s.services.List(ctx, activeOnly, limit, offset)
}

func (s *Service) AssignDoctor(ctx context.Context, serviceID, doctorID uuid.UUID) error {
	if _, err := s.services.GetByID(ctx, serviceID); err != nil {
		return apperror.NotFound("service")
	}
	if err := s.services.AssignDoctor(ctx, serviceID, doctorID); err != nil {
		if db.IsForeignKeyViolation(err) {
			return apperror.NotFound("doctor")
		}
		return err
	}
	return nil
}

func (s *Service) UnassignDoctor(ctx context.Context, serviceID, doctorID uuid.UUID) error {
	return s.services.UnassignDoctor(ctx, serviceID, doctorID)
}

func (s *Service) ListServicesForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*ClinicService, error) {
	return s.services.ListByDoctor(ctx, doctorID)
}

// -- Prescriptions --

type PrescriptionInput struct {
	Notes string
	Items []*PrescriptionItem
}

// WritePrescription records the doctor's prescription for a completed
// appointment. Only the doctor who saw the patient may write it, and only
// once per appointment.
func (s *Service) WritePrescription(ctx context.Context, p auth.Principal, appointmentID uuid.UUID, in PrescriptionInput) (*Prescription, error) {
	if len(in.Items) == 0 {
		return nil, apperror.Validation("items", "at least one medicine is required")
	}
	for _, item := range in.Items {
		if item.Medicine == "" {
			return nil, apperror.Validation("items", "medicine name is required")
		}
	}

	a, err := s.appts.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !p.IsDoctor() || a.DoctorID != p.UserID {
		return nil, apperror.Forbidden("only the appointment's doctor can write a prescription")
	}
	if a.Status != scheduling.StatusCompleted {
		return nil, apperror.Validation("status", "prescriptions can only be written for completed appointments")
	}

	pr := &Prescription{
		AppointmentID: appointmentID,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		Notes:         in.Notes,
		Items:         in.Items,
	}
	err = s.runTx(ctx, func(ctx context.Context) error {
		return s.prescriptions.Create(ctx, pr)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperror.Conflict("a prescription already exists for this appointment")
		}
		return nil, err
	}
	return pr, nil
}

// GetPrescription returns the prescription for an appointment. Visible to the
// patient, the doctor and admins.
func (s *Service) GetPrescription(ctx context.Context, p auth.Principal, appointmentID uuid.UUID) (*Prescription, error) {
	a, err := s.appts.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && a.PatientID != p.UserID && a.DoctorID != p.UserID {
		return nil, apperror.Forbidden("you are not part of this appointment")
	}

	pr, err := s.prescriptions.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, apperror.NotFound("prescription")
	}
	return pr, nil
}

func (s *Service) ListPrescriptionsForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.ListByPatient(ctx, patientID, limit, offset)
}

// -- Feedback --

// SubmitFeedback records the patient's rating of a completed appointment,
// exactly once.
func (s *Service) SubmitFeedback(ctx context.Context, p auth.Principal, appointmentID uuid.UUID, rating int, comments string) (*Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, apperror.Validation("rating", "rating must be between 1 and 5")
	}

	a, err := s.appts.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.PatientID != p.UserID {
		return nil, apperror.Forbidden("you can only review your own appointments")
	}
	if a.Status != scheduling.StatusCompleted {
		return nil, apperror.Validation("status", "feedback can only be left on completed appointments")
	}

	f := &Feedback{
		AppointmentID: appointmentID,
		PatientID:     p.UserID,
		Rating:        rating,
		Comments:      comments,
	}
	if err := s.feedback.Create(ctx, f); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperror.Conflict("feedback has already been submitted for this appointment")
		}
		return nil, err
	}
	return f, nil
}

func (s *Service) ListFeedbackForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Feedback, int, error) {
	return s.feedback.ListByDoctor(ctx, doctorID, limit, offset)
}
