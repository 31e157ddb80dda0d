// Package billing issues bills for appointments and records payments against
// them. All money is int64 cents.
package billing

import (
	"time"

	"github.com/google/uuid"
)

type BillStatus string

const (
	BillUnpaid BillStatus = "Unpaid"
	BillPaid   BillStatus = "Paid"
)

// Bill is created lazily on first request for an appointment, seeded from the
// booked service's base price.
type Bill struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	Amount        int64      `json:"amount"`
	Status        BillStatus `json:"status"`
	IssuedAt      time.Time  `json:"issued_at"`
}

type PaymentMethod string

const (
	MethodCash PaymentMethod = "Cash"
	MethodCard PaymentMethod = "Card"
	MethodUPI  PaymentMethod = "UPI"
)

func ValidMethod(m PaymentMethod) bool {
	switch m {
	case MethodCash, MethodCard, MethodUPI:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentCompleted PaymentStatus = "Completed"
	PaymentFailed    PaymentStatus = "Failed"
)

type Payment struct {
	ID     uuid.UUID     `json:"id"`
	BillID uuid.UUID     `json:"bill_id"`
	Amount int64         `json:"amount"`
	Method PaymentMethod `json:"method"`
	Status PaymentStatus `json:"status"`
	PaidAt time.Time     `json:"paid_at"`
}
