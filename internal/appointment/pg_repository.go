package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinical-encounters/internal/apperr"
	"github.com/hackgods/clinical-encounters/internal/db"
)

const appointmentColumns = `id, patient_id, doctor_id, scheduled_at, duration_minutes, mode, status,
	room_id, room_token, note, reason, created_at, last_updated`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.ScheduledAt,
		&a.DurationMinutes,
		&a.Mode,
		&a.Status,
		&a.RoomID,
		&a.RoomToken,
		&a.Note,
		&a.Reason,
		&a.CreatedAt,
		&a.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: appointment", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

func (r *PgRepository) list(ctx context.Context, sql string, args ...any) ([]Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) Insert(ctx context.Context, a Appointment) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, a.ID, a.PatientID, a.DoctorID, a.ScheduledAt, a.DurationMinutes, a.Mode, a.Status,
		a.RoomID, a.RoomToken, a.Note, a.Reason, a.CreatedAt, a.LastUpdated)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, u StatusUpdate) (*Appointment, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    last_updated = $4,
		    room_token = COALESCE($5, room_token),
		    reason = COALESCE($6, reason),
		    room_id = COALESCE($7, room_id)
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns, u.ID, u.To, u.From, u.At, u.RoomToken, u.Reason, u.RoomID)

	a, err := scanAppointment(row)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("%w: appointment %s is no longer %s", apperr.ErrInvalidTransition, u.ID, u.From)
	}
	return a, err
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]Appointment, error) {
	result, err := r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE ($1 = '' OR patient_id = $1)
		  AND ($2 = '' OR doctor_id = $2)
		ORDER BY scheduled_at DESC
		LIMIT $3 OFFSET $4
	`, f.PatientID, f.DoctorID, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return result, nil
}

func (r *PgRepository) FindStaleInProgress(ctx context.Context, before time.Time) ([]Appointment, error) {
	result, err := r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'IN_PROGRESS'
		  AND mode = 'VIDEO'
		  AND last_updated < $1
		ORDER BY last_updated
	`, before)
	if err != nil {
		return nil, fmt.Errorf("find stale in-progress appointments: %w", err)
	}
	return result, nil
}

func (r *PgRepository) FindOverdueScheduled(ctx context.Context, before time.Time) ([]Appointment, error) {
	result, err := r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'SCHEDULED'
		  AND mode = 'VIDEO'
		  AND scheduled_at < $1
		ORDER BY scheduled_at
	`, before)
	if err != nil {
		return nil, fmt.Errorf("find overdue scheduled appointments: %w", err)
	}
	return result, nil
}
