package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in the appointments table.
type PostgresRepository struct {
	db     rowQuerier
	tracer trace.Tracer
	now    func() time.Time
	nextID func() string
}

// NewPostgresRepository creates a repository backed by a pgx pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return NewPostgresRepositoryWithDB(pool)
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db rowQuerier) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		tracer: otel.Tracer("vetchat.internal.appointments.postgres"),
		now:    time.Now,
		nextID: uuid.NewString,
	}
}

const appointmentColumns = `id, session_id, booking_ref, owner_name, pet_name, phone, preferred_datetime, status, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		appt   Appointment
		status string
	)
	if err := row.Scan(
		&appt.ID, &appt.SessionID, &appt.BookingRef, &appt.OwnerName, &appt.PetName, &appt.Phone,
		&appt.PreferredDateTime, &status, &appt.Notes, &appt.CreatedAt, &appt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	appt.Status = Status(status)
	return &appt, nil
}

func (r *PostgresRepository) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	ctx, span := r.tracer.Start(ctx, "appointments.create")
	defer span.End()

	req = req.trimmed()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := r.now().UTC()
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (booking_ref) DO UPDATE SET booking_ref = EXCLUDED.booking_ref
		RETURNING ` + appointmentColumns
	appt, err := scanAppointment(r.db.QueryRow(ctx, query,
		r.nextID(), req.SessionID, req.BookingRef, req.OwnerName, req.PetName, req.Phone,
		req.PreferredDateTime.UTC(), string(StatusPending), req.Notes, now,
	))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}
	return appt, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	ctx, span := r.tracer.Start(ctx, "appointments.get")
	defer span.End()

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("appointments: get %s: %w", id, ErrNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: get %s: %w", id, err)
	}
	return appt, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	ctx, span := r.tracer.Start(ctx, "appointments.list")
	defer span.End()

	filter = filter.Normalized()
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, filter.From.UTC())
		conds = append(conds, fmt.Sprintf("preferred_datetime >= $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit, filter.Skip)
	query := fmt.Sprintf(`SELECT %s FROM appointments%s ORDER BY preferred_datetime ASC, created_at ASC LIMIT $%d OFFSET $%d`,
		appointmentColumns, where, len(args)-1, len(args))

	out, err := r.queryAppointments(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]Appointment, error) {
	ctx, span := r.tracer.Start(ctx, "appointments.list_by_session")
	defer span.End()

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE session_id = $1 ORDER BY created_at DESC`
	out, err := r.queryAppointments(ctx, query, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: list by session %s: %w", sessionID, err)
	}
	return out, nil
}

func (r *PostgresRepository) queryAppointments(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *appt)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) (*Appointment, error) {
	ctx, span := r.tracer.Start(ctx, "appointments.update_status")
	defer span.End()

	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	query := `UPDATE appointments SET status = $2, updated_at = $3 WHERE id = $1 RETURNING ` + appointmentColumns
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id, string(status), r.now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("appointments: update status %s: %w", id, ErrNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: update status %s: %w", id, err)
	}
	return appt, nil
}

func (r *PostgresRepository) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	ctx, span := r.tracer.Start(ctx, "appointments.stats")
	defer span.End()

	start, end := DayBounds(now)
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'confirmed'),
			COUNT(*) FILTER (WHERE preferred_datetime >= $1 AND preferred_datetime < $2)
		FROM appointments
	`
	var stats Stats
	if err := r.db.QueryRow(ctx, query, start.UTC(), end.UTC()).Scan(&stats.Total, &stats.Pending, &stats.Confirmed, &stats.TodayCount); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: stats: %w", err)
	}
	return &stats, nil
}
