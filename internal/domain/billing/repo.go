package billing

import (
	"context"

	"github.com/google/uuid"
)

type BillRepository interface {
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Bill, error)
	SetStatus(ctx context.Context, id uuid.UUID, status BillStatus) error
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	ListByBill(ctx context.Context, billID uuid.UUID) ([]*Payment, error)
	// TotalCompleted sums the Completed payments against a bill.
	TotalCompleted(ctx context.Context, billID uuid.UUID) (int64, error)
}
