package admission

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

const (
	constraintOneActivePerPatient = "admissions_one_active_per_patient"
	constraintOpenPerBed          = "bed_allocations_open_bed_idx"
	constraintOpenPerAdmission    = "bed_allocations_open_admission_idx"
)

const admissionColumns = `id, patient_id, admitting_doctor_id, chief_complaint, provisional_diagnosis,
	initial_therapy_plan, referral_doctor, status, admitted_at, discharged_at, discharged_by, discharge_notes`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAdmission(row pgx.Row) (*Admission, error) {
	var a Admission
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.AdmittingDoctorID,
		&a.ChiefComplaint,
		&a.ProvisionalDiagnosis,
		&a.InitialTherapyPlan,
		&a.ReferralDoctor,
		&a.Status,
		&a.AdmittedAt,
		&a.DischargedAt,
		&a.DischargedBy,
		&a.DischargeNotes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: admission", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

func scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.UnitID, &b.BedNumber, &b.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: bed", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &b, nil
}

func scanAllocation(row pgx.Row) (*BedAllocation, error) {
	var a BedAllocation
	err := row.Scan(&a.ID, &a.AdmissionID, &a.BedID, &a.AssignedAt, &a.ReleasedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: bed allocation", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()

	var result []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) FindActiveByPatient(ctx context.Context, patientID string) (*Admission, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+admissionColumns+`
		FROM admissions
		WHERE patient_id = $1 AND status = 'ACTIVE'
	`, patientID)
	return scanAdmission(row)
}

func (r *PgRepository) Insert(ctx context.Context, a Admission) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO admissions (`+admissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, a.ID, a.PatientID, a.AdmittingDoctorID, a.ChiefComplaint, a.ProvisionalDiagnosis,
		a.InitialTherapyPlan, a.ReferralDoctor, a.Status, a.AdmittedAt, a.DischargedAt, a.DischargedBy, a.DischargeNotes)
	if err != nil {
		if db.ConstraintViolated(err, constraintOneActivePerPatient) {
			return fmt.Errorf("%w: patient %s", apperr.ErrDuplicateActiveAdmission, a.PatientID)
		}
		return fmt.Errorf("insert admission: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Admission, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+admissionColumns+`
		FROM admissions
		WHERE id = $1
	`, id)
	return scanAdmission(row)
}

func (r *PgRepository) MarkDischarged(ctx context.Context, id uuid.UUID, by string, notes *string, at time.Time) (*Admission, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE admissions
		SET status = 'DISCHARGED',
		    discharged_at = $2,
		    discharged_by = $3,
		    discharge_notes = $4
		WHERE id = $1
		  AND status = 'ACTIVE'
		RETURNING `+admissionColumns, id, at, by, notes)

	a, err := scanAdmission(row)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrNotAdmitted
	}
	return a, err
}

func (r *PgRepository) ListActive(ctx context.Context) ([]Admission, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+admissionColumns+`
		FROM admissions
		WHERE status = 'ACTIVE'
		ORDER BY admitted_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list active admissions: %w", err)
	}
	return collect(rows, scanAdmission)
}

func (r *PgRepository) CreateUnit(ctx context.Context, u Unit) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO units (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`, u.ID, u.Name)
	if err != nil {
		return fmt.Errorf("create unit: %w", err)
	}
	return nil
}

func (r *PgRepository) CreateBed(ctx context.Context, b Bed) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO beds (id, unit_id, bed_number, is_active) VALUES ($1, $2, $3, $4)
		ON CONFLICT (unit_id, bed_number) DO NOTHING
	`, b.ID, b.UnitID, b.BedNumber, b.IsActive)
	if err != nil {
		return fmt.Errorf("create bed: %w", err)
	}
	return nil
}

func (r *PgRepository) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, unit_id, bed_number, is_active
		FROM beds
		WHERE id = $1
	`, id)
	return scanBed(row)
}

func (r *PgRepository) ListBeds(ctx context.Context, unitID *uuid.UUID) ([]BedOccupancy, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT b.id, b.unit_id, b.bed_number, b.is_active, ba.admission_id
		FROM beds b
		JOIN units u ON u.id = b.unit_id
		LEFT JOIN bed_allocations ba ON ba.bed_id = b.id AND ba.released_at IS NULL
		WHERE $1::uuid IS NULL OR b.unit_id = $1
		ORDER BY u.name, b.bed_number
	`, unitID)
	if err != nil {
		return nil, fmt.Errorf("list beds: %w", err)
	}
	return collect(rows, func(row pgx.Row) (*BedOccupancy, error) {
		var b BedOccupancy
		if err := row.Scan(&b.ID, &b.UnitID, &b.BedNumber, &b.IsActive, &b.AdmissionID); err != nil {
			return nil, err
		}
		return &b, nil
	})
}

func (r *PgRepository) OpenAllocationForBed(ctx context.Context, bedID uuid.UUID) (*BedAllocation, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, admission_id, bed_id, assigned_at, released_at
		FROM bed_allocations
		WHERE bed_id = $1 AND released_at IS NULL
	`, bedID)
	return scanAllocation(row)
}

func (r *PgRepository) OpenAllocationForAdmission(ctx context.Context, admissionID uuid.UUID) (*BedAllocation, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, admission_id, bed_id, assigned_at, released_at
		FROM bed_allocations
		WHERE admission_id = $1 AND released_at IS NULL
	`, admissionID)
	return scanAllocation(row)
}

func (r *PgRepository) ReleaseOpenAllocations(ctx context.Context, admissionID uuid.UUID, at time.Time) ([]BedAllocation, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		UPDATE bed_allocations
		SET released_at = $2
		WHERE admission_id = $1 AND released_at IS NULL
		RETURNING id, admission_id, bed_id, assigned_at, released_at
	`, admissionID, at)
	if err != nil {
		return nil, fmt.Errorf("release bed allocations: %w", err)
	}
	return collect(rows, scanAllocation)
}

func (r *PgRepository) InsertAllocation(ctx context.Context, a BedAllocation) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO bed_allocations (id, admission_id, bed_id, assigned_at, released_at)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.AdmissionID, a.BedID, a.AssignedAt, a.ReleasedAt)
	if err != nil {
		switch {
		case db.ConstraintViolated(err, constraintOpenPerBed):
			return fmt.Errorf("%w: bed %s", apperr.ErrBedOccupied, a.BedID)
		case db.ConstraintViolated(err, constraintOpenPerAdmission):
			return fmt.Errorf("%w: concurrent bed change for admission %s", apperr.ErrTransientStore, a.AdmissionID)
		}
		return fmt.Errorf("insert bed allocation: %w", err)
	}
	return nil
}
