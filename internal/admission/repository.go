package admission

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository holds admissions, beds and allocations. Every method joins the
// transaction carried by ctx, if any.
type Repository interface {
	FindActiveByPatient(ctx context.Context, patientID string) (*Admission, error)
	// Insert maps a second ACTIVE admission for the patient to
	// apperr.ErrDuplicateActiveAdmission.
	Insert(ctx context.Context, a Admission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Admission, error)
	// MarkDischarged only updates an ACTIVE admission; otherwise it
	// returns apperr.ErrNotAdmitted.
	MarkDischarged(ctx context.Context, id uuid.UUID, by string, notes *string, at time.Time) (*Admission, error)
	ListActive(ctx context.Context) ([]Admission, error)

	CreateUnit(ctx context.Context, u Unit) error
	CreateBed(ctx context.Context, b Bed) error
	GetBed(ctx context.Context, id uuid.UUID) (*Bed, error)
	ListBeds(ctx context.Context, unitID *uuid.UUID) ([]BedOccupancy, error)

	OpenAllocationForBed(ctx context.Context, bedID uuid.UUID) (*BedAllocation, error)
	OpenAllocationForAdmission(ctx context.Context, admissionID uuid.UUID) (*BedAllocation, error)
	ReleaseOpenAllocations(ctx context.Context, admissionID uuid.UUID, at time.Time) ([]BedAllocation, error)
	// InsertAllocation maps a second open allocation on the bed to
	// apperr.ErrBedOccupied.
	InsertAllocation(ctx context.Context, a BedAllocation) error
}
