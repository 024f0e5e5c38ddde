package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lumenspa/booking/internal/booking"
	"github.com/lumenspa/booking/internal/model"
	"github.com/lumenspa/booking/internal/outbox"
	"github.com/lumenspa/booking/libs/db"
)

// Repository stores appointments in Postgres. Double-booking is prevented
// by a partial unique index on (staff_id, scheduled_at) WHERE status =
// 'booked'; a violating insert is mapped to booking.ErrConflict.
type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

const appointmentColumns = `
	id::text, group_id::text, client_id, client_name, client_email,
	service_id::text, service_name, service_price_cents, duration_minutes,
	staff_id::text, staff_name,
	scheduled_at, status, payment_method, payment_status,
	discount_applied, total_price_cents, created_at,
	cancelled_at, COALESCE(cancellation_reason, '')`

// ListForStaffRange returns non-cancelled appointments for one staff
// member with scheduled_at in [start, end). This feeds the availability
// calculator, so cancelled rows must not appear.
func (r *Repository) ListForStaffRange(ctx context.Context, staffID string, start, end time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE staff_id = $1
			AND status <> 'cancelled'
			AND scheduled_at >= $2
			AND scheduled_at < $3
		ORDER BY scheduled_at ASC
	`, staffID, start, end)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *Repository) ListByClient(ctx context.Context, clientID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE client_id = $1
		ORDER BY scheduled_at DESC
		LIMIT $2
	`, clientID, limit)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *Repository) ListByStaff(ctx context.Context, staffID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE staff_id = $1
		ORDER BY scheduled_at DESC
		LIMIT $2
	`, staffID, limit)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

// CreateGroup writes all sibling appointments of one booking plus their
// confirmation outbox events in a single transaction. Either every row
// lands or none does.
func (r *Repository) CreateGroup(ctx context.Context, appts []model.Appointment) ([]model.Appointment, error) {
	if len(appts) == 0 {
		return nil, fmt.Errorf("empty appointment group")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := range appts {
		a := &appts[i]
		err := tx.QueryRow(ctx, `
			INSERT INTO appointments
				(id, group_id, client_id, client_name, client_email,
				 service_id, service_name, service_price_cents, duration_minutes,
				 staff_id, staff_name,
				 scheduled_at, status, payment_method, payment_status,
				 discount_applied, total_price_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			RETURNING created_at
		`, a.ID, a.GroupID, a.ClientID, a.ClientName, a.ClientEmail,
			a.ServiceID, a.ServiceName, int64(a.ServicePrice), a.DurationMinutes,
			a.StaffID, a.StaffName,
			a.ScheduledAt, string(a.Status), string(a.PaymentMethod), string(a.PaymentStatus),
			a.DiscountApplied, int64(a.TotalPrice)).Scan(&a.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("slot %s for staff %s: %w", a.ScheduledAt.Format(time.RFC3339), a.StaffID, booking.ErrConflict)
			}
			return nil, fmt.Errorf("insert appointment %s: %w", a.ID, err)
		}

		payload, err := bookedEventPayload(*a)
		if err != nil {
			return nil, err
		}
		if err := r.outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: "appointment",
			AggregateID:   a.ID,
			EventType:     outbox.EventAppointmentBooked,
			Payload:       payload,
		}); err != nil {
			return nil, fmt.Errorf("enqueue confirmation for %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return appts, nil
}

// Get loads one appointment by id.
func (r *Repository) Get(ctx context.Context, appointmentID string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, appointmentID)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, fmt.Errorf("appointment %s: %w", appointmentID, model.ErrNotFound)
		}
		return model.Appointment{}, err
	}
	return appt, nil
}

// Cancel moves a booked appointment to cancelled. Cancelling an already
// cancelled appointment is idempotent.
func (r *Repository) Cancel(ctx context.Context, appointmentID, reason string) (model.Appointment, error) {
	return r.transition(ctx, appointmentID, model.StatusCancelled, reason)
}

// Complete moves a booked appointment to completed.
func (r *Repository) Complete(ctx context.Context, appointmentID string) (model.Appointment, error) {
	return r.transition(ctx, appointmentID, model.StatusCompleted, "")
}

func (r *Repository) transition(ctx context.Context, appointmentID string, next model.AppointmentStatus, reason string) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := getForUpdate(ctx, tx, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}

	if appt.Status == next {
		// Repeating a transition is a no-op, not an error.
		return appt, nil
	}
	if !appt.Status.CanTransitionTo(next) {
		return model.Appointment{}, fmt.Errorf("appointment %s is %s: %w", appointmentID, appt.Status, booking.ErrConflict)
	}

	switch next {
	case model.StatusCancelled:
		err = tx.QueryRow(ctx, `
			UPDATE appointments
			SET status = 'cancelled',
				cancelled_at = now(),
				cancellation_reason = $2
			WHERE id = $1
			RETURNING cancelled_at
		`, appointmentID, reason).Scan(&appt.CancelledAt)
		appt.CancelReason = reason
	case model.StatusCompleted:
		_, err = tx.Exec(ctx, `
			UPDATE appointments
			SET status = 'completed'
			WHERE id = $1
		`, appointmentID)
	}
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = next

	payload, err := statusEventPayload(appt, reason)
	if err != nil {
		return model.Appointment{}, err
	}
	eventType := outbox.EventAppointmentCompleted
	if next == model.StatusCancelled {
		eventType = outbox.EventAppointmentCancelled
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return model.Appointment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func getForUpdate(ctx context.Context, tx pgx.Tx, appointmentID string) (model.Appointment, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, appointmentID)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, fmt.Errorf("appointment %s: %w", appointmentID, model.ErrNotFound)
		}
		return model.Appointment{}, err
	}
	return appt, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var a model.Appointment
	var priceCents, totalCents int64
	var status, method, payStatus string
	var cancelledAt *time.Time
	err := row.Scan(
		&a.ID, &a.GroupID, &a.ClientID, &a.ClientName, &a.ClientEmail,
		&a.ServiceID, &a.ServiceName, &priceCents, &a.DurationMinutes,
		&a.StaffID, &a.StaffName,
		&a.ScheduledAt, &status, &method, &payStatus,
		&a.DiscountApplied, &totalCents, &a.CreatedAt,
		&cancelledAt, &a.CancelReason,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	a.ServicePrice = model.Money(priceCents)
	a.TotalPrice = model.Money(totalCents)
	a.Status = model.AppointmentStatus(status)
	a.PaymentMethod = model.PaymentMethod(method)
	a.PaymentStatus = model.PaymentStatus(payStatus)
	a.CancelledAt = cancelledAt
	return a, nil
}

func scanAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	var appts []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// isUniqueViolation matches both unique (23505) and exclusion (23P01)
// violations so the schema can use either mechanism for the slot lock.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" || pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}

func bookedEventPayload(a model.Appointment) ([]byte, error) {
	return json.Marshal(map[string]any{
		"appointment_id": a.ID,
		"group_id":       a.GroupID,
		"client_id":      a.ClientID,
		"client_name":    a.ClientName,
		"client_email":   a.ClientEmail,
		"service_name":   a.ServiceName,
		"staff_name":     a.StaffName,
		"scheduled_at":   a.ScheduledAt.UTC().Format(time.RFC3339),
		"payment_method": string(a.PaymentMethod),
		"payment_status": string(a.PaymentStatus),
		"total_price":    a.TotalPrice.String(),
	})
}

func statusEventPayload(a model.Appointment, reason string) ([]byte, error) {
	out := map[string]any{
		"appointment_id": a.ID,
		"group_id":       a.GroupID,
		"client_id":      a.ClientID,
		"staff_id":       a.StaffID,
		"scheduled_at":   a.ScheduledAt.UTC().Format(time.RFC3339),
		"status":         string(a.Status),
	}
	if reason != "" {
		out["reason"] = reason
	}
	if a.CancelledAt != nil {
		out["cancelled_at"] = a.CancelledAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(out)
}
