package admission

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinical-encounters/internal/clinical"
)

type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusDischarged Status = "DISCHARGED"
)

type Admission struct {
	ID                   uuid.UUID
	PatientID            string
	AdmittingDoctorID    string
	ChiefComplaint       string
	ProvisionalDiagnosis string
	InitialTherapyPlan   *string
	ReferralDoctor       *string
	Status               Status
	AdmittedAt           time.Time
	DischargedAt         *time.Time
	DischargedBy         *string
	DischargeNotes       *string
}

type Unit struct {
	ID   uuid.UUID
	Name string
}

type Bed struct {
	ID        uuid.UUID
	UnitID    uuid.UUID
	BedNumber string
	IsActive  bool
}

// BedAllocation rows are never deleted; ReleasedAt closes them.
type BedAllocation struct {
	ID          uuid.UUID
	AdmissionID uuid.UUID
	BedID       uuid.UUID
	AssignedAt  time.Time
	ReleasedAt  *time.Time
}

func (a BedAllocation) Open() bool {
	return a.ReleasedAt == nil
}

type BedOccupancy struct {
	Bed
	AdmissionID *uuid.UUID // set while the bed has an open allocation
}

func (b BedOccupancy) Occupied() bool {
	return b.AdmissionID != nil
}

type CreateInput struct {
	PatientID            string
	AdmittingDoctorID    string
	ChiefComplaint       string
	ProvisionalDiagnosis string
	InitialTherapyPlan   *string
	ReferralDoctor       *string
	BedID                *uuid.UUID
}

type Created struct {
	Admission  Admission
	Allocation *BedAllocation
}

type Detail struct {
	Admission
	CurrentBed *BedAllocation
}

type DischargeSummary struct {
	Admission     Admission
	PatientName   string
	ReleasedBeds  []uuid.UUID
	Clinical      clinical.Summary
	NotifiedStaff int
}
