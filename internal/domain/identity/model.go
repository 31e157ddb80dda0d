// Package identity manages user accounts and the patient and doctor profiles
// attached to them. Doctors register in a pending state and only become able
// to log in once an admin approves them.
package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinichq/clinic/internal/platform/auth"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone,omitempty"`
	Role         auth.Role `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// FullName joins first and last name, falling back to the email address.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Email
	}
}

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// ValidGender reports whether g is one of the known gender values. Empty is
// allowed; the field is optional.
func ValidGender(g Gender) bool {
	switch g {
	case "", GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Patient is the profile attached to a user with the patient role. Name and
// Email are read-only projections of the owning user row.
type Patient struct {
	UserID         uuid.UUID `json:"user_id"`
	DateOfBirth    time.Time `json:"date_of_birth"`
	Gender         Gender    `json:"gender,omitempty"`
	Address        string    `json:"address,omitempty"`
	MedicalHistory string    `json:"medical_history,omitempty"`

	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Doctor is the profile attached to a user with the doctor role. Fee values
// are integer cents. Name and Email are read-only projections of the owning
// user row.
type Doctor struct {
	UserID          uuid.UUID `json:"user_id"`
	Qualification   string    `json:"qualification,omitempty"`
	ExperienceYears int       `json:"experience_years"`
	ConsultationFee int64     `json:"consultation_fee"`
	Bio             string    `json:"bio,omitempty"`
	Approved        bool      `json:"approved"`

	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}
