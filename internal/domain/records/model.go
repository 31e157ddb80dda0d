// Package records holds what the clinic produces around an appointment: the
// service catalog patients book against, the prescription a doctor writes
// after a completed visit, and the feedback a patient leaves on it.
package records

import (
	"time"

	"github.com/google/uuid"
)

// ClinicService is a bookable catalog entry. BasePrice is in cents and seeds
// the bill for appointments using this service.
type ClinicService struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	DurationMin int       `json:"duration_min"`
	BasePrice   int64     `json:"base_price"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Prescription is written once per appointment by the doctor who completed it.
type Prescription struct {
	ID            uuid.UUID           `json:"id"`
	AppointmentID uuid.UUID           `json:"appointment_id"`
	DoctorID      uuid.UUID           `json:"doctor_id"`
	PatientID     uuid.UUID           `json:"patient_id"`
	Notes         string              `json:"notes"`
	CreatedAt     time.Time           `json:"created_at"`
	Items         []*PrescriptionItem `json:"items"`
}

type PrescriptionItem struct {
	ID             uuid.UUID `json:"id"`
	PrescriptionID uuid.UUID `json:"prescription_id"`
	Medicine       string    `json:"medicine"`
	Dosage         string    `json:"dosage"`
	Frequency      string    `json:"frequency"`
	Duration       string    `json:"duration"`
	Instructions   string    `json:"instructions"`
}

// Feedback is the patient's one-time rating of a completed appointment.
type Feedback struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	Rating        int       `json:"rating"`
	Comments      string    `json:"comments"`
	CreatedAt     time.Time `json:"created_at"`
}
