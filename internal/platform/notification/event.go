// Package notification delivers appointment notifications outside the request
// path. The lifecycle core emits events onto a buffered channel and moves on;
// a dispatcher goroutine renders and delivers them. Delivery failure is logged
// and never reaches the caller.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names the lifecycle change an event describes.
type Action string

const (
	ActionBooked      Action = "booked"
	ActionRescheduled Action = "rescheduled"
	ActionCancelled   Action = "cancelled"
)

// Event is an outbound appointment notification.
type Event struct {
	Action        Action    `json:"action"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientName   string    `json:"patient_name"`
	PatientEmail  string    `json:"patient_email"`
	DoctorName    string    `json:"doctor_name"`
	Date          string    `json:"date"`      // 2006-01-02
	TimeSlot      string    `json:"time_slot"` // 15:04
	OccurredAt    time.Time `json:"occurred_at"`
}

// Sink receives rendered or raw events. The dispatcher fans each event out to
// every registered sink.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}
