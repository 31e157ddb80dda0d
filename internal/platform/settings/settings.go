// Package settings holds clinic-wide configuration that admins edit at
// runtime: the clinic name, the minimum lead time for booking, and the
// cancellation policy shown to patients. The single row is cached in memory
// and invalidated explicitly on every write.
package settings

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinichq/clinic/internal/platform/db"
	"github.com/clinichq/clinic/pkg/apperror"
)

// ClinicSettings is the single clinic-wide configuration row.
type ClinicSettings struct {
	ClinicName         string        `json:"clinic_name" validate:"required"`
	AppointmentLead    time.Duration `json:"-"`
	AppointmentLeadHrs int           `json:"appointment_lead_hours" validate:"min=0"`
	CancellationPolicy string        `json:"cancellation_policy"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Defaults returns the settings used before an admin has saved any.
func Defaults() *ClinicSettings {
	return &ClinicSettings{
		ClinicName:         "Clinic",
		AppointmentLead:    24 * time.Hour,
		AppointmentLeadHrs: 24,
	}
}

// Repository loads and saves the settings row.
type Repository interface {
	Get(ctx context.Context) (*ClinicSettings, error)
	Save(ctx context.Context, s *ClinicSettings) error
}

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.ConnFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) Get(ctx context.Context) (*ClinicSettings, error) {
	var s ClinicSettings
	var leadHours int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT clinic_name, appointment_lead_hours, cancellation_policy, updated_at
		FROM clinic_settings WHERE id = 1`).Scan(
		&s.ClinicName, &leadHours, &s.CancellationPolicy, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.AppointmentLeadHrs = leadHours
	s.AppointmentLead = time.Duration(leadHours) * time.Hour
	return &s, nil
}

func (r *repoPG) Save(ctx context.Context, s *ClinicSettings) error {
	// id = 1 keeps the table a singleton.
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinic_settings (id, clinic_name, appointment_lead_hours, cancellation_policy, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			clinic_name = EXCLUDED.clinic_name,
			appointment_lead_hours = EXCLUDED.appointment_lead_hours,
			cancellation_policy = EXCLUDED.cancellation_policy,
			updated_at = NOW()`,
		s.ClinicName, s.AppointmentLeadHrs, s.CancellationPolicy,
	)
	return err
}

// Store serves settings from an in-process cache. Reads hit the database only
// after Invalidate or on first use, so the lifecycle hot path never pays a
// query for them.
type Store struct {
	repo Repository

	mu     sync.RWMutex
	cached *ClinicSettings
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// Get returns the cached settings, loading them on first use. Defaults apply
// when no row has been saved yet.
func (s *Store) Get(ctx context.Context) (*ClinicSettings, error) {
	s.mu.RLock()
	if s.cached != nil {
		defer s.mu.RUnlock()
		return s.cached, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return s.cached, nil
	}
	loaded, err := s.repo.Get(ctx)
	if errors.Is(err, pgx.ErrNoRows) {
		loaded = Defaults()
	} else if err != nil {
		return nil, err
	}
	s.cached = loaded
	return loaded, nil
}

// Update validates, persists and re-caches the settings.
func (s *Store) Update(ctx context.Context, in *ClinicSettings) (*ClinicSettings, error) {
	if in.ClinicName == "" {
		return nil, apperror.Validation("clinic_name", "clinic name is required")
	}
	if in.AppointmentLeadHrs < 0 {
		return nil, apperror.Validation("appointment_lead_hours", "lead time cannot be negative")
	}
	if err := s.repo.Save(ctx, in); err != nil {
		return nil, err
	}
	s.Invalidate()
	return s.Get(ctx)
}

// Invalidate drops the cached row so the next Get reloads it.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}
