package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinichq/clinic/internal/platform/db"
)

// -- Shift Repository --

type shiftRepoPG struct {
	pool *pgxpool.Pool
}

func NewShiftRepo(pool *pgxpool.Pool) ShiftRepository {
	return &shiftRepoPG{pool: pool}
}

func (r *shiftRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.ConnFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *shiftRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*ShiftTemplate, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, doctor_id, weekday, shift, start_time, end_time, closed
		FROM shift_templates WHERE doctor_id = $1
		ORDER BY weekday, start_time`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []*ShiftTemplate
	for rows.Next() {
		var s ShiftTemplate
		var weekday int
		if err := rows.Scan(&s.ID, &s.DoctorID, &weekday, &s.Shift, &s.Start, &s.End, &s.Closed); err != nil {
			return nil, err
		}
		s.Weekday = time.Weekday(weekday)
		shifts = append(shifts, &s)
	}
	return shifts, nil
}

func (r *shiftRepoPG) Create(ctx context.Context, s *ShiftTemplate) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO shift_templates (id, doctor_id, weekday, shift, start_time, end_time, closed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.DoctorID, int(s.Weekday), s.Shift, s.Start, s.End, s.Closed,
	)
	return err
}

func (r *shiftRepoPG) DeleteByDoctor(ctx context.Context, doctorID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM shift_templates WHERE doctor_id = $1`, doctorID)
	return err
}

// -- Leave Repository --

type leaveRepoPG struct {
	pool *pgxpool.Pool
}

func NewLeaveRepo(pool *pgxpool.Pool) LeaveRepository {
	return &leaveRepoPG{pool: pool}
}

func (r *leaveRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.ConnFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const leaveColumns = `id, doctor_id, start_date, end_date, reason, status`

func (r *leaveRepoPG) Create(ctx context.Context, l *DoctorLeave) error {
	l.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_leaves (id, doctor_id, start_date, end_date, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, l.DoctorID, l.StartDate, l.EndDate, l.Reason, string(l.Status),
	)
	return err
}

func (r *leaveRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DoctorLeave, error) {
	return r.scanLeave(r.conn(ctx).QueryRow(ctx,
		`SELECT `+leaveColumns+` FROM doctor_leaves WHERE id = $1`, id))
}

func (r *leaveRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*DoctorLeave, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+leaveColumns+` FROM doctor_leaves
		WHERE doctor_id = $1 ORDER BY start_date DESC`, doctorID)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *leaveRepoPG) ListApprovedByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*DoctorLeave, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+leaveColumns+` FROM doctor_leaves
		WHERE doctor_id = $1 AND status = 'Approved' ORDER BY start_date DESC`, doctorID)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *leaveRepoPG) ListByStatus(ctx context.Context, status LeaveStatus, limit, offset int) ([]*DoctorLeave, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM doctor_leaves WHERE status = $1`, string(status)).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+leaveColumns+` FROM doctor_leaves
		WHERE status = $1 ORDER BY start_date DESC LIMIT $2 OFFSET $3`,
		string(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	leaves, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return leaves, total, nil
}

func (r *leaveRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status LeaveStatus) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctor_leaves SET status = $2 WHERE id = $1`, id, string(status))
	return err
}

func (r *leaveRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctor_leaves WHERE id = $1`, id)
	return err
}

func (r *leaveRepoPG) collect(rows pgx.Rows) ([]*DoctorLeave, error) {
	defer rows.Close()
	var leaves []*DoctorLeave
	for rows.Next() {
		var l DoctorLeave
		var status string
		if err := rows.Scan(&l.ID, &l.DoctorID, &l.StartDate, &l.EndDate, &l.Reason, &status); err != nil {
			return nil, err
		}
		l.Status = LeaveStatus(status)
		leaves = append(leaves, &l)
	}
	return leaves, nil
}

func (r *leaveRepoPG) scanLeave(row pgx.Row) (*DoctorLeave, error) {
	var l DoctorLeave
	var status string
	err := row.Scan(&l.ID, &l.DoctorID, &l.StartDate, &l.EndDate, &l.Reason, &status)
	if err != nil {
		return nil, err
	}
	l.Status = LeaveStatus(status)
	return &l, nil
}

// -- Appointment Repository --

type apptRepoPG struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepo(pool *pgxpool.Pool) AppointmentRepository {
	return &apptRepoPG{pool: pool}
}

func (r *apptRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.ConnFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// apptColumns joins the patient and doctor names so list and event payloads
// need no second query.
const apptColumns = `a.id, a.patient_id, a.doctor_id, a.service_id, a.date, a.time_slot,
	a.status, a.reason, a.booked_at,
	pu.first_name || ' ' || pu.last_name, pu.email,
	du.first_name || ' ' || du.last_name`

const apptFrom = ` FROM appointments a
	JOIN users pu ON pu.id = a.patient_id
	JOIN users du ON du.id = a.doctor_id`

func (r *apptRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, service_id, date, time_slot, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.PatientID, a.DoctorID, a.ServiceID, a.Date, a.TimeSlot, string(a.Status), a.Reason,
	)
	return err
}

func (r *apptRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppt(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptColumns+apptFrom+` WHERE a.id = $1`, id))
}

func (r *apptRepoPG) UpdateSlot(ctx context.Context, id uuid.UUID, date time.Time, slot string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET date = $2, time_slot = $3, status = 'Scheduled'
		WHERE id = $1`, id, date, slot)
	return err
}

func (r *apptRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET status = $2 WHERE id = $1`, id, string(status))
	return err
}

func (r *apptRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments WHERE patient_id = $1`, patientID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptColumns+apptFrom+`
		WHERE a.patient_id = $1
		ORDER BY a.date DESC, a.time_slot DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	appts, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return appts, total, nil
}

func (r *apptRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, date *time.Time, limit, offset int) ([]*Appointment, int, error) {
	countQuery := `SELECT COUNT(*) FROM appointments WHERE doctor_id = $1`
	query := `SELECT ` + apptColumns + apptFrom + ` WHERE a.doctor_id = $1`
	args := []interface{}{doctorID}

	if date != nil {
		countQuery += ` AND date = $2`
		query += ` AND a.date = $2`
		args = append(args, *date)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	idx := len(args) + 1
	query += fmt.Sprintf(` ORDER BY a.date, a.time_slot LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	appts, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return appts, total, nil
}

func (r *apptRepoPG) ListByDate(ctx context.Context, date time.Time, limit, offset int) ([]*Appointment, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments WHERE date = $1`, date).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptColumns+apptFrom+`
		WHERE a.date = $1
		ORDER BY a.time_slot LIMIT $2 OFFSET $3`, date, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	appts, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return appts, total, nil
}

func (r *apptRepoPG) ExistsForPatientAt(ctx context.Context, patientID uuid.UUID, date time.Time, slot string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments WHERE patient_id = $1 AND date = $2 AND time_slot = $3
		)`, patientID, date, slot).Scan(&exists)
	return exists, err
}

func (r *apptRepoPG) collect(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	var appts []*Appointment
	for rows.Next() {
		a, err := r.scanApptRow(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, nil
}

func (r *apptRepoPG) scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.ServiceID, &a.Date, &a.TimeSlot,
		&status, &a.Reason, &a.BookedAt, &a.PatientName, &a.PatientEmail, &a.DoctorName)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}

func (r *apptRepoPG) scanApptRow(rows pgx.Rows) (*Appointment, error) {
	var a Appointment
	var status string
	err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.ServiceID, &a.Date, &a.TimeSlot,
		&status, &a.Reason, &a.BookedAt, &a.PatientName, &a.PatientEmail, &a.DoctorName)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}
