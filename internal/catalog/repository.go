package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lumenspa/booking/internal/model"
	"github.com/lumenspa/booking/libs/db"
)

// Repository reads and maintains the service/staff catalog. The booking
// flow only reads it; writes come from the admin surface.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, specialty, price_cents, duration_minutes, created_at
		FROM services
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		var cents int64
		if err := rows.Scan(&s.ID, &s.Name, &s.Specialty, &cents, &s.DurationMinutes, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Price = model.Money(cents)
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) GetService(ctx context.Context, id string) (model.Service, error) {
	var s model.Service
	var cents int64
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, specialty, price_cents, duration_minutes, created_at
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Specialty, &cents, &s.DurationMinutes, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Service{}, fmt.Errorf("service %s: %w", id, model.ErrNotFound)
		}
		return model.Service{}, err
	}
	s.Price = model.Money(cents)
	return s, nil
}

func (r *Repository) CreateService(ctx context.Context, name, specialty string, price model.Money, durationMinutes int) (model.Service, error) {
	svc, err := model.NewService(uuid.NewString(), name, specialty, price, durationMinutes)
	if err != nil {
		return model.Service{}, err
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO services (id, name, specialty, price_cents, duration_minutes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, svc.ID, svc.Name, svc.Specialty, int64(svc.Price), svc.DurationMinutes).Scan(&svc.CreatedAt)
	if err != nil {
		return model.Service{}, err
	}
	return svc, nil
}

func (r *Repository) ListStaff(ctx context.Context) ([]model.StaffMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, display_name, specialty, created_at
		FROM staff
		ORDER BY display_name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StaffMember
	for rows.Next() {
		var st model.StaffMember
		if err := rows.Scan(&st.ID, &st.DisplayName, &st.Specialty, &st.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) GetStaff(ctx context.Context, id string) (model.StaffMember, error) {
	var st model.StaffMember
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, display_name, specialty, created_at
		FROM staff
		WHERE id = $1
	`, id).Scan(&st.ID, &st.DisplayName, &st.Specialty, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.StaffMember{}, fmt.Errorf("staff %s: %w", id, model.ErrNotFound)
		}
		return model.StaffMember{}, err
	}
	return st, nil
}

func (r *Repository) CreateStaff(ctx context.Context, displayName, specialty string) (model.StaffMember, error) {
	st, err := model.NewStaffMember(uuid.NewString(), displayName, specialty)
	if err != nil {
		return model.StaffMember{}, err
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO staff (id, display_name, specialty)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, st.ID, st.DisplayName, st.Specialty).Scan(&st.CreatedAt)
	if err != nil {
		return model.StaffMember{}, err
	}
	return st, nil
}
