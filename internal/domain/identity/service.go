package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinichq/clinic/internal/platform/auth"
	"github.com/clinichq/clinic/internal/platform/db"
	"github.com/clinichq/clinic/pkg/apperror"
)

const tokenTTL = 24 * time.Hour

type Service struct {
	users     UserRepository
	patients  PatientRepository
	doctors   DoctorRepository
	jwtSecret []byte

	now func() time.Time
}

func NewService(users UserRepository, patients PatientRepository, doctors DoctorRepository, jwtSecret []byte) *Service {
	return &Service{
		users:     users,
		patients:  patients,
		doctors:   doctors,
		jwtSecret: jwtSecret,
		now:       time.Now,
	}
}

type RegisterPatientInput struct {
	Email          string
	Password       string
	FirstName      string
	LastName       string
	Phone          string
	DateOfBirth    time.Time
	Gender         Gender
	Address        string
	MedicalHistory string
}

type RegisterDoctorInput struct {
	Email           string
	Password        string
	FirstName       string
	LastName        string
	Phone           string
	Qualification   string
	ExperienceYears int
	ConsultationFee int64
	Bio             string
}

// RegisterPatient creates an active patient account.
func (s *Service) RegisterPatient(ctx context.Context, in RegisterPatientInput) (*User, error) {
	if err := validateCredentials(in.Email, in.Password); err != nil {
		return nil, err
	}
	if !in.DateOfBirth.IsZero() && in.DateOfBirth.After(s.now()) {
		return nil, apperror.Validation("date_of_birth", "date of birth cannot be in the future")
	}
	if !ValidGender(in.Gender) {
		return nil, apperror.Validation("gender", "gender must be Male, Female or Other")
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Role:         auth.RolePatient,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperror.Conflict("email already registered")
		}
		return nil, err
	}
	patient := &Patient{
		UserID:         user.ID,
		DateOfBirth:    in.DateOfBirth,
		Gender:         in.Gender,
		Address:        in.Address,
		MedicalHistory: in.MedicalHistory,
	}
	if err := s.patients.Create(ctx, patient); err != nil {
		return nil, err
	}
	return user, nil
}

// RegisterDoctor creates a doctor account awaiting admin approval. The user
// starts inactive and cannot log in until approved.
func (s *Service) RegisterDoctor(ctx context.Context, in RegisterDoctorInput) (*User, error) {
	if err := validateCredentials(in.Email, in.Password); err != nil {
		return nil, err
	}
	if in.ConsultationFee < 0 {
		return nil, apperror.Validation("consultation_fee", "consultation fee cannot be negative")
	}
	if in.ExperienceYears < 0 {
		return nil, apperror.Validation("experience_years", "experience years cannot be negative")
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Role:         auth.RoleDoctor,
		Active:       false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperror.Conflict("email already registered")
		}
		return nil, err
	}
	doctor := &Doctor{
		UserID:          user.ID,
		Qualification:   in.Qualification,
		ExperienceYears: in.ExperienceYears,
		ConsultationFee: in.ConsultationFee,
		Bio:             in.Bio,
		Approved:        false,
	}
	if err := s.doctors.Create(ctx, doctor); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a signed token carrying the role.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, apperror.Validation("email", "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperror.Validation("email", "invalid email or password")
	}
	if !user.Active {
		return "", nil, apperror.Forbidden("account is pending approval")
	}
	token, err := auth.IssueToken(s.jwtSecret, user.ID, user.Role, tokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// ChangePassword verifies the current password before storing the new one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperror.NotFound("user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return apperror.Validation("current_password", "current password is incorrect")
	}
	if len(next) < 8 {
		return apperror.Validation("new_password", "password must be at least 8 characters")
	}
	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// ResetPassword sets a user's password without the current one. Admin only;
// the handler enforces the role.
func (s *Service) ResetPassword(ctx context.Context, email, next string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return apperror.NotFound("user")
	}
	if len(next) < 8 {
		return apperror.Validation("new_password", "password must be at least 8 characters")
	}
	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, hash)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("user")
	}
	return user, nil
}

// -- Patient profile --

func (s *Service) GetPatient(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.NotFound("patient")
	}
	return p, nil
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) (*Patient, error) {
	if !p.DateOfBirth.IsZero() && p.DateOfBirth.After(s.now()) {
		return nil, apperror.Validation("date_of_birth", "date of birth cannot be in the future")
	}
	if !ValidGender(p.Gender) {
		return nil, apperror.Validation("gender", "gender must be Male, Female or Other")
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.GetPatient(ctx, p.UserID)
}

// -- Doctor profile and approval --

func (s *Service) GetDoctor(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.NotFound("doctor")
	}
	return d, nil
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) (*Doctor, error) {
	if d.ConsultationFee < 0 {
		return nil, apperror.Validation("consultation_fee", "consultation fee cannot be negative")
	}
	if d.ExperienceYears < 0 {
		return nil, apperror.Validation("experience_years", "experience years cannot be negative")
	}
	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, err
	}
	return s.GetDoctor(ctx, d.UserID)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.ListApproved(ctx, limit, offset)
}

func (s *Service) ListPendingDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.ListPending(ctx, limit, offset)
}

// ApproveDoctor marks the profile approved and activates the login.
func (s *Service) ApproveDoctor(ctx context.Context, doctorID uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByUserID(ctx, doctorID)
	if err != nil {
		return nil, apperror.NotFound("doctor")
	}
	if d.Approved {
		return nil, apperror.Conflict("doctor is already approved")
	}
	if err := s.doctors.SetApproved(ctx, doctorID, true); err != nil {
		return nil, err
	}
	if err := s.users.SetActive(ctx, doctorID, true); err != nil {
		return nil, err
	}
	return s.doctors.GetByUserID(ctx, doctorID)
}

// RejectDoctor removes a pending registration entirely. The user row cascades
// to the profile.
func (s *Service) RejectDoctor(ctx context.Context, doctorID uuid.UUID) error {
	d, err := s.doctors.GetByUserID(ctx, doctorID)
	if err != nil {
		return apperror.NotFound("doctor")
	}
	if d.Approved {
		return apperror.Conflict("cannot reject an approved doctor")
	}
	return s.users.Delete(ctx, doctorID)
}

func validateCredentials(email, password string) error {
	if email == "" {
		return apperror.Validation("email", "email is required")
	}
	if len(password) < 8 {
		return apperror.Validation("password", "password must be at least 8 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
