package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinical-encounters/internal/apperr"
	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/db"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: patient", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Role, &s.Status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: staff member", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &s, nil
}

func (r *PgRepository) GetPatient(ctx context.Context, id string) (*Patient, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, first_name, last_name, email, created_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetStaff(ctx context.Context, id string) (*Staff, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, name, email, role, status, created_at
		FROM staff
		WHERE id = $1
	`, id)
	return scanStaff(row)
}

func (r *PgRepository) ListActiveStaff(ctx context.Context, roles ...auth.Role) ([]Staff, error) {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, name, email, role, status, created_at
		FROM staff
		WHERE status = 'ACTIVE' AND role = ANY($1)
		ORDER BY id
	`, names)
	if err != nil {
		return nil, fmt.Errorf("list active staff: %w", err)
	}
	defer rows.Close()

	var result []Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) UpsertPatient(ctx context.Context, p Patient) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO patients (id, first_name, last_name, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    email = EXCLUDED.email
	`, p.ID, p.FirstName, p.LastName, p.Email)
	if err != nil {
		return fmt.Errorf("upsert patient: %w", err)
	}
	return nil
}

func (r *PgRepository) UpsertStaff(ctx context.Context, s Staff) error {
	if s.Status == "" {
		s.Status = StaffActive
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO staff (id, name, email, role, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    email = EXCLUDED.email,
		    role = EXCLUDED.role,
		    status = EXCLUDED.status
	`, s.ID, s.Name, s.Email, s.Role, s.Status)
	if err != nil {
		return fmt.Errorf("upsert staff: %w", err)
	}
	return nil
}
