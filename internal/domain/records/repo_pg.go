package records

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinichq/clinic/internal/platform/db"
)

const serviceColumns = `id, name, description, duration_min, base_price, active, created_at`

type serviceRepoPG struct {
	pool *pgxpool.Pool
}

func NewServiceRepo(pool *pgxpool.Pool) ServiceRepository {
	return &serviceRepoPG{pool: pool}
}

func (r *serviceRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.ConnFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func scanService(row pgx.Row) (*ClinicService, error) {
	var s ClinicService
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.DurationMin, &s.BasePrice, &s.Active, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *serviceRepoPG) Create(ctx context.Context, s *ClinicService) error {
	s.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO services (id, name, description, duration_min, base_price, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		s.ID, s.Name, s.Description, s.DurationMin, s.BasePrice, s.Active,
	).Scan(&s.CreatedAt)
}

func (r *serviceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ClinicService, error) {
	return scanService(r.conn(ctx).QueryRow(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
}

func (r *serviceRepoPG) Update(ctx context.Context, s *ClinicService) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE services
		SET name = $2, description = $3, duration_min = $4, base_price = $5
		WHERE id = $1`,
		s.ID, s.Name, s.Description, s.DurationMin, s.BasePrice,
	)
	return err
}

func (r *serviceRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE services SET active = $2 WHERE id = $1`, id, active)
	return err
}

func (r *serviceRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*ClinicService, int, error) {
	where := ""
	if activeOnly {
		where = ` WHERE active`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM services`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM services%s ORDER BY name LIMIT $1 OFFSET $2`, serviceColumns, where),
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var services []*ClinicService
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, 0, err
		}
		services = append(services, s)
	}
	return services, total, rows.Err()
}

func (r *serviceRepoPG) AssignDoctor(ctx context.Context, serviceID, doctorID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_services (service_id, doctor_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, serviceID, doctorID)
	return err
}

func (r *serviceRepoPG) UnassignDoctor(ctx context.Context, serviceID, doctorID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM doctor_services WHERE service_id = $1 AND doctor_id = $2`,
		serviceID, doctorID)
	return err
}

func (r *serviceRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*ClinicService, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+serviceColumns+` FROM services s
		JOIN doctor_services ds ON ds.service_id = s.id
		WHERE ds.doctor_id = $1 AND s.active
		ORDER BY s.name`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []*ClinicService
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

const prescriptionColumns = `id, appointment_id, doctor_id, patient_id, notes, created_at`

type prescriptionRepoPG struct {
	pool *pgxpool.Pool
}

func NewPrescriptionRepo(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.ConnFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.AppointmentID, &p.DoctorID, &p.PatientID, &p.Notes, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescriptions (id, appointment_id, doctor_id, patient_id, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		p.ID, p.AppointmentID, p.DoctorID, p.PatientID, p.Notes,
	).Scan(&p.CreatedAt)
	if err != nil {
		return err
	}

	for _, item := range p.Items {
		item.ID = uuid.New()
		item.PrescriptionID = p.ID
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO prescription_items (id, prescription_id, medicine, dosage, frequency, duration, instructions)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, item.PrescriptionID, item.Medicine, item.Dosage,
			item.Frequency, item.Duration, item.Instructions,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *prescriptionRepoPG) loadItems(ctx context.Context, p *Prescription) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, prescription_id, medicine, dosage, frequency, duration, instructions
		FROM prescription_items WHERE prescription_id = $1 ORDER BY medicine`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item PrescriptionItem
		if err := rows.Scan(&item.ID, &item.PrescriptionID, &item.Medicine, &item.Dosage,
			&item.Frequency, &item.Duration, &item.Instructions); err != nil {
			return err
		}
		p.Items = append(p.Items, &item)
	}
	return rows.Err()
}

func (r *prescriptionRepoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Prescription, error) {
	p, err := scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionColumns+` FROM prescriptions WHERE appointment_id = $1`, appointmentID))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *prescriptionRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM prescriptions WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+prescriptionColumns+` FROM prescriptions
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var prescriptions []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		prescriptions = append(prescriptions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, p := range prescriptions {
		if err := r.loadItems(ctx, p); err != nil {
			return nil, 0, err
		}
	}
	return prescriptions, total, nil
}

const feedbackColumns = `id, appointment_id, patient_id, rating, comments, created_at`

type feedbackRepoPG struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepo(pool *pgxpool.Pool) FeedbackRepository {
	return &feedbackRepoPG{pool: pool}
}

func (r *feedbackRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.ConnFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func scanFeedback(row pgx.Row) (*Feedback, error) {
	var f Feedback
	err := row.Scan(&f.ID, &f.AppointmentID, &f.PatientID, &f.Rating, &f.Comments, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *feedbackRepoPG) Create(ctx context.Context, f *Feedback) error {
	f.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO feedback (id, appointment_id, patient_id, rating, comments)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		f.ID, f.AppointmentID, f.PatientID, f.Rating, f.Comments,
	).Scan(&f.CreatedAt)
}

func (r *feedbackRepoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Feedback, error) {
	return scanFeedback(r.conn(ctx).QueryRow(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE appointment_id = $1`, appointmentID))
}

func (r *feedbackRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Feedback, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM feedback f
		JOIN appointments a ON a.id = f.appointment_id
		WHERE a.doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT f.id, f.appointment_id, f.patient_id, f.rating, f.comments, f.created_at
		FROM feedback f
		JOIN appointments a ON a.id = f.appointment_id
		WHERE a.doctor_id = $1
		ORDER BY f.created_at DESC LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var feedback []*Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, 0, err
		}
		feedback = append(feedback, f)
	}
	return feedback, total, rows.Err()
}
