package identity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinichq/clinic/internal/platform/auth"
	"github.com/clinichq/clinic/pkg/apperror"
)

// -- Mock Repositories --

type mockUserRepo struct {
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	u.PasswordHash = hash
	return nil
}

func (m *mockUserRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	u.Active = active
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.users, id)
	return nil
}

type mockPatientRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	m.patients[p.UserID] = p
	return nil
}

func (m *mockPatientRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*Patient, error) {
	p, ok := m.patients[userID]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.UserID]; !ok {
		return fmt.Errorf("not found")
	}
	m.patients[p.UserID] = p
	return nil
}

type mockDoctorRepo struct {
	doctors map[uuid.UUID]*Doctor
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[uuid.UUID]*Doctor)}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	m.doctors[d.UserID] = d
	return nil
}

func (m *mockDoctorRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*Doctor, error) {
	d, ok := m.doctors[userID]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return d, nil
}

func (m *mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	if _, ok := m.doctors[d.UserID]; !ok {
		return fmt.Errorf("not found")
	}
	m.doctors[d.UserID] = d
	return nil
}

func (m *mockDoctorRepo) SetApproved(_ context.Context, userID uuid.UUID, approved bool) error {
	d, ok := m.doctors[userID]
	if !ok {
		return fmt.Errorf("not found")
	}
	d.Approved = approved
	return nil
}

func (m *mockDoctorRepo) ListApproved(_ context.Context, limit, offset int) ([]*Doctor, int, error) {
	return m.list(true)
}

func (m *mockDoctorRepo) ListPending(_ context.Context, limit, offset int) ([]*Doctor, int, error) {
	return m.list(false)
}

func (m *mockDoctorRepo) list(approved bool) ([]*Doctor, int, error) {
	var result []*Doctor
	for _, d := range m.doctors {
		if d.Approved == approved {
			result = append(result, d)
		}
	}
	return result, len(result), nil
}

func newTestService() (*Service, *mockUserRepo, *mockPatientRepo, *mockDoctorRepo) {
	users := newMockUserRepo()
	patients := newMockPatientRepo()
	doctors := newMockDoctorRepo()
	svc := NewService(users, patients, doctors, []byte("test-secret"))
	return svc, users, patients, doctors
}

func patientInput() RegisterPatientInput {
	return RegisterPatientInput{
		Email:       "jane@example.com",
		Password:    "hunter2hunter2",
		FirstName:   "Jane",
		LastName:    "Roe",
		DateOfBirth: time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC),
		Gender:      GenderFemale,
	}
}

func doctorInput() RegisterDoctorInput {
	return RegisterDoctorInput{
		Email:           "dr.patel@example.com",
		Password:        "hunter2hunter2",
		FirstName:       "Asha",
		LastName:        "Patel",
		Qualification:   "MBBS",
		ExperienceYears: 8,
		ConsultationFee: 20000,
	}
}

// -- Tests --

func TestRegisterPatient(t *testing.T) {
	svc, _, patients, _ := newTestService()

	user, err := svc.RegisterPatient(context.Background(), patientInput())
	if err != nil {
		t.Fatalf("RegisterPatient: %v", err)
	}
	if user.Role != auth.RolePatient {
		t.Errorf("Role = %v, want patient", user.Role)
	}
	if !user.Active {
		t.Error("patient should be active immediately")
	}
	if _, err := patients.GetByUserID(context.Background(), user.ID); err != nil {
		t.Errorf("patient profile not created: %v", err)
	}
}

func TestRegisterPatientValidation(t *testing.T) {
	svc, _, _, _ := newTestService()

	in := patientInput()
	in.Password = "short"
	if _, err := svc.RegisterPatient(context.Background(), in); !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("short password: err = %v, want validation", err)
	}

	in = patientInput()
	in.DateOfBirth = time.Now().Add(48 * time.Hour)
	if _, err := svc.RegisterPatient(context.Background(), in); !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("future dob: err = %v, want validation", err)
	}

	in = patientInput()
	in.Gender = "Unknown"
	if _, err := svc.RegisterPatient(context.Background(), in); !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("bad gender: err = %v, want validation", err)
	}
}

func TestRegisterPatientDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService()
	if _, err := svc.RegisterPatient(context.Background(), patientInput()); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := svc.RegisterPatient(context.Background(), patientInput()); !apperror.IsKind(err, apperror.KindConflict) {
		t.Errorf("duplicate email: err = %v, want conflict", err)
	}
}

func TestRegisterDoctorPendingApproval(t *testing.T) {
	svc, _, _, doctors := newTestService()

	user, err := svc.RegisterDoctor(context.Background(), doctorInput())
	if err != nil {
		t.Fatalf("RegisterDoctor: %v", err)
	}
	if user.Active {
		t.Error("doctor should start inactive")
	}
	d, err := doctors.GetByUserID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("doctor profile not created: %v", err)
	}
	if d.Approved {
		t.Error("doctor should start unapproved")
	}

	// Login blocked until approval.
	if _, _, err := svc.Login(context.Background(), doctorInput().Email, doctorInput().Password); !apperror.IsKind(err, apperror.KindForbidden) {
		t.Errorf("login before approval: err = %v, want forbidden", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _, _, _ := newTestService()
	if _, err := svc.RegisterPatient(context.Background(), patientInput()); err != nil {
		t.Fatalf("RegisterPatient: %v", err)
	}

	token, user, err := svc.Login(context.Background(), "jane@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Error("expected a token")
	}
	p, err := auth.ParseToken([]byte("test-secret"), token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if p.UserID != user.ID || p.Role != auth.RolePatient {
		t.Errorf("token principal = %+v", p)
	}

	if _, _, err := svc.Login(context.Background(), "jane@example.com", "wrong-password"); err == nil {
		t.Error("expected error for wrong password")
	}
	if _, _, err := svc.Login(context.Background(), "nobody@example.com", "hunter2hunter2"); err == nil {
		t.Error("expected error for unknown email")
	}
}

func TestApproveDoctor(t *testing.T) {
	svc, users, _, _ := newTestService()
	user, err := svc.RegisterDoctor(context.Background(), doctorInput())
	if err != nil {
		t.Fatalf("RegisterDoctor: %v", err)
	}

	approved, err := svc.ApproveDoctor(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ApproveDoctor: %v", err)
	}
	if !approved.Approved {
		t.Error("doctor should be approved")
	}
	u, _ := users.GetByID(context.Background(), user.ID)
	if !u.Active {
		t.Error("user should be activated on approval")
	}

	if _, err := svc.ApproveDoctor(context.Background(), user.ID); !apperror.IsKind(err, apperror.KindConflict) {
		t.Errorf("second approval: err = %v, want conflict", err)
	}

	if _, _, err := svc.Login(context.Background(), doctorInput().Email, doctorInput().Password); err != nil {
		t.Errorf("login after approval: %v", err)
	}
}

func TestRejectDoctor(t *testing.T) {
	svc, users, _, _ := newTestService()
	user, err := svc.RegisterDoctor(context.Background(), doctorInput())
	if err != nil {
		t.Fatalf("RegisterDoctor: %v", err)
	}

	if err := svc.RejectDoctor(context.Background(), user.ID); err != nil {
		t.Fatalf("RejectDoctor: %v", err)
	}
	if _, err := users.GetByID(context.Background(), user.ID); err == nil {
		t.Error("user should be deleted on rejection")
	}

	// Approved doctors cannot be rejected.
	user2, _ := svc.RegisterDoctor(context.Background(), RegisterDoctorInput{
		Email: "dr.two@example.com", Password: "hunter2hunter2",
		FirstName: "B", LastName: "C",
	})
	if _, err := svc.ApproveDoctor(context.Background(), user2.ID); err != nil {
		t.Fatalf("ApproveDoctor: %v", err)
	}
	if err := svc.RejectDoctor(context.Background(), user2.ID); !apperror.IsKind(err, apperror.KindConflict) {
		t.Errorf("reject approved: err = %v, want conflict", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, users, _, _ := newTestService()
	user, err := svc.RegisterPatient(context.Background(), patientInput())
	if err != nil {
		t.Fatalf("RegisterPatient: %v", err)
	}

	if err := svc.ChangePassword(context.Background(), user.ID, "wrong", "newpassword1"); !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("wrong current: err = %v, want validation", err)
	}

	if err := svc.ChangePassword(context.Background(), user.ID, "hunter2hunter2", "newpassword1"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	u, _ := users.GetByID(context.Background(), user.ID)
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("newpassword1")); err != nil {
		t.Error("new password not stored")
	}
}

func TestUpdatePatientValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	user, err := svc.RegisterPatient(context.Background(), patientInput())
	if err != nil {
		t.Fatalf("RegisterPatient: %v", err)
	}

	p, _ := svc.GetPatient(context.Background(), user.ID)
	p.DateOfBirth = time.Now().Add(24 * time.Hour)
	if _, err := svc.UpdatePatient(context.Background(), p); !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("future dob: err = %v, want validation", err)
	}
}
