package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinichq/clinic/internal/platform/auth"
	"github.com/clinichq/clinic/internal/platform/db"
)

// -- User Repository --

type userRepoPG struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

func (r *userRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.ConnFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const userColumns = `id, email, password_hash, first_name, last_name, phone, role, active, created_at`

func (r *userRepoPG) Create(ctx context.Context, user *User) error {
	user.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone, role, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Phone, string(user.Role), user.Active,
	)
	return err
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *userRepoPG) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	return err
}

func (r *userRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE users SET active = $2 WHERE id = $1`, id, active)
	return err
}

func (r *userRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (r *userRepoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Phone, &role, &u.Active, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = auth.Role(role)
	return &u, nil
}

// -- Patient Repository --

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.ConnFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientColumns = `p.user_id, p.date_of_birth, p.gender, p.address, p.medical_history,
	u.first_name || ' ' || u.last_name, u.email`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (user_id, date_of_birth, gender, address, medical_history)
		VALUES ($1, $2, $3, $4, $5)`,
		p.UserID, p.DateOfBirth, string(p.Gender), p.Address, p.MedicalHistory,
	)
	return err
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	var p Patient
	var gender string
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients p JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1`, userID).Scan(
		&p.UserID, &p.DateOfBirth, &gender, &p.Address, &p.MedicalHistory, &p.Name, &p.Email,
	)
	if err != nil {
		return nil, err
	}
	p.Gender = Gender(gender)
	return &p, nil
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET date_of_birth = $2, gender = $3, address = $4, medical_history = $5
		WHERE user_id = $1`,
		p.UserID, p.DateOfBirth, string(p.Gender), p.Address, p.MedicalHistory,
	)
	return err
}

// -- Doctor Repository --

type doctorRepoPG struct {
	pool *pgxpool.Pool
}

func NewDoctorRepo(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.ConnFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const doctorColumns = `d.user_id, d.qualification, d.experience_years, d.consultation_fee,
	d.bio, d.approved, u.first_name || ' ' || u.last_name, u.email`

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctors (user_id, qualification, experience_years, consultation_fee, bio, approved)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		d.UserID, d.Qualification, d.ExperienceYears, d.ConsultationFee, d.Bio, d.Approved,
	)
	return err
}

func (r *doctorRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors d JOIN users u ON u.id = d.user_id
		WHERE d.user_id = $1`, userID))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET qualification = $2, experience_years = $3, consultation_fee = $4, bio = $5
		WHERE user_id = $1`,
		d.UserID, d.Qualification, d.ExperienceYears, d.ConsultationFee, d.Bio,
	)
	return err
}

func (r *doctorRepoPG) SetApproved(ctx context.Context, userID uuid.UUID, approved bool) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE doctors SET approved = $2 WHERE user_id = $1`, userID, approved)
	return err
}

func (r *doctorRepoPG) ListApproved(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return r.list(ctx, true, limit, offset)
}

func (r *doctorRepoPG) ListPending(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return r.list(ctx, false, limit, offset)
}

func (r *doctorRepoPG) list(ctx context.Context, approved bool, limit, offset int) ([]*Doctor, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors WHERE approved = $1`, approved).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors d JOIN users u ON u.id = d.user_id
		WHERE d.approved = $1
		ORDER BY u.last_name, u.first_name LIMIT $2 OFFSET $3`, approved, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var doctors []*Doctor
	for rows.Next() {
		d, err := r.scanDoctorRow(rows)
		if err != nil {
			return nil, 0, err
		}
		doctors = append(doctors, d)
	}
	return doctors, total, nil
}

func (r *doctorRepoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.UserID, &d.Qualification, &d.ExperienceYears, &d.ConsultationFee,
		&d.Bio, &d.Approved, &d.Name, &d.Email)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *doctorRepoPG) scanDoctorRow(rows pgx.Rows) (*Doctor, error) {
	var d Doctor
	err := rows.Scan(&d.UserID, &d.Qualification, &d.ExperienceYears, &d.ConsultationFee,
		&d.Bio, &d.Approved, &d.Name, &d.Email)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
