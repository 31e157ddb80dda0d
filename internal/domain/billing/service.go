package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinichq/clinic/internal/domain/records"
	"github.com/clinichq/clinic/internal/domain/scheduling"
	"github.com/clinichq/clinic/internal/platform/auth"
	"github.com/clinichq/clinic/internal/platform/db"
	"github.com/clinichq/clinic/pkg/apperror"
)

// AppointmentSource resolves appointments; satisfied by the scheduling
// service.
type AppointmentSource interface {
	Get(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
}

// CatalogSource resolves catalog entries; satisfied by the records service.
type CatalogSource interface {
	GetService(ctx context.Context, id uuid.UUID) (*records.ClinicService, error)
}

type Service struct {
	bills    BillRepository
	payments PaymentRepository
	appts    AppointmentSource
	catalog  CatalogSource

	runTx func(ctx context.Context, fn func(context.Context) error) error
}

func NewService(bills BillRepository, payments PaymentRepository,
	appts AppointmentSource, catalog CatalogSource, pool *pgxpool.Pool) *Service {
	s := &Service{
		bills:    bills,
		payments: payments,
		appts:    appts,
		catalog:  catalog,
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

// GetOrCreateBill returns the bill for an appointment, creating it on first
// request with the booked service's base price. Visible to the patient, the
// doctor and admins.
func (s *Service) GetOrCreateBill(ctx context.Context, p auth.Principal, appointmentID uuid.UUID) (*Bill, error) {
	a, err := s.appts.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && a.PatientID != p.UserID && a.DoctorID != p.UserID {
		return nil, apperror.Forbidden("you are not part of this appointment")
	}

	if b, err := s.bills.GetByAppointment(ctx, appointmentID); err == nil {
		return b, nil
	}

	svc, err := s.catalog.GetService(ctx, a.ServiceID)
	if err != nil {
		return nil, err
	}
	b := &Bill{
		AppointmentID: appointmentID,
		Amount:        svc.BasePrice,
		Status:        BillUnpaid,
	}
	if err := s.bills.Create(ctx, b); err != nil {
		// A concurrent request created it first.
		if db.IsUniqueViolation(err) {
			return s.bills.GetByAppointment(ctx, appointmentID)
		}
		return nil, err
	}
	return b, nil
}

type PayInput struct {
	BillID uuid.UUID
	Amount int64
	Method PaymentMethod
}

// Pay records a completed payment against a bill. The amount must be positive
// and must not exceed what is still due; clearing the balance flips the bill
// to Paid.
func (s *Service) Pay(ctx context.Context, p auth.Principal, in PayInput) (*Payment, error) {
	if in.Amount <= 0 {
		return nil, apperror.Validation("amount", "payment amount must be positive")
	}
	if !ValidMethod(in.Method) {
		return nil, apperror.Validation("method", "method must be Cash, Card or UPI")
	}

	b, err := s.bills.GetByID(ctx, in.BillID)
	if err != nil {
		return nil, apperror.NotFound("bill")
	}
	a, err := s.appts.Get(ctx, b.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && a.PatientID != p.UserID {
		return nil, apperror.Forbidden("you can only pay your own bills")
	}
	if b.Status == BillPaid {
		return nil, apperror.Conflict("this bill is already paid")
	}

	payment := &Payment{
		BillID: b.ID,
		Amount: in.Amount,
		Method: in.Method,
		Status: PaymentCompleted,
	}
	err = s.runTx(ctx, func(ctx context.Context) error {
		// The paid total is read inside the transaction so a concurrent
		// payment cannot slip past the amount-due check.
		paid, err := s.payments.TotalCompleted(ctx, b.ID)
		if err != nil {
			return err
		}
		if in.Amount > b.Amount-paid {
			return apperror.Validation("amount", "payment exceeds the amount due")
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return err
		}
		if paid+in.Amount >= b.Amount {
			return s.bills.SetStatus(ctx, b.ID, BillPaid)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// BillSummary is a bill with its running totals.
type BillSummary struct {
	*Bill
	TotalPaid int64      `json:"total_paid"`
	AmountDue int64      `json:"amount_due"`
	Payments  []*Payment `json:"payments"`
}

func (s *Service) GetBillSummary(ctx context.Context, p auth.Principal, billID uuid.UUID) (*BillSummary, error) {
	b, err := s.bills.GetByID(ctx, billID)
	if err != nil {
		return nil, apperror.NotFound("bill")
	}
	a, err := s.appts.Get(ctx, b.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && a.PatientID != p.UserID && a.DoctorID != p.UserID {
		return nil, apperror.Forbidden("you are not part of this appointment")
	}

	payments, err := s.payments.ListByBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	paid, err := s.payments.TotalCompleted(ctx, billID)
	if err != nil {
		return nil, err
	}
	return &BillSummary{
		Bill:      b,
		TotalPaid: paid,
		AmountDue: b.Amount - paid,
		Payments:  payments,
	}, nil
}
