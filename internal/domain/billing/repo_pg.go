package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinichq/clinic/internal/platform/db"
)

const billColumns = `id, appointment_id, amount, status, issued_at`

type billRepoPG struct {
	pool *pgxpool.Pool
}

func NewBillRepo(pool *pgxpool.Pool) BillRepository {
	return &billRepoPG{pool: pool}
}

func (r *billRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.ConnFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.AppointmentID, &b.Amount, &b.Status, &b.IssuedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *billRepoPG) Create(ctx context.Context, b *Bill) error {
	b.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bills (id, appointment_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING issued_at`,
		b.ID, b.AppointmentID, b.Amount, b.Status,
	).Scan(&b.IssuedAt)
}

func (r *billRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return scanBill(r.conn(ctx).QueryRow(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = $1`, id))
}

func (r *billRepoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Bill, error) {
	return scanBill(r.conn(ctx).QueryRow(ctx,
		`SELECT `+billColumns+` FROM bills WHERE appointment_id = $1`, appointmentID))
}

func (r *billRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status BillStatus) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE bills SET status = $2 WHERE id = $1`, id, status)
	return err
}

const paymentColumns = `id, bill_id, amount, method, status, paid_at`

type paymentRepoPG struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepoPG{pool: pool}
}

func (r *paymentRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.ConnFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO payments (id, bill_id, amount, method, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING paid_at`,
		p.ID, p.BillID, p.Amount, p.Method, p.Status,
	).Scan(&p.PaidAt)
}

func (r *paymentRepoPG) ListByBill(ctx context.Context, billID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE bill_id = $1 ORDER BY paid_at`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.BillID, &p.Amount, &p.Method, &p.Status, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}

func (r *paymentRepoPG) TotalCompleted(ctx context.Context, billID uuid.UUID) (int64, error) {
	var total int64
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM payments
		WHERE bill_id = $1 AND status = 'Completed'`, billID).Scan(&total)
	return total, err
}
