package clinical

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	InsertVitals(ctx context.Context, v VitalSigns) error
	InsertDiagnosis(ctx context.Context, d Diagnosis) error
	InsertPrescription(ctx context.Context, p Prescription) error
	GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error)
	InsertMedication(ctx context.Context, m Medication) error
	GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error)
	InsertAdministration(ctx context.Context, a Administration) error

	ListVitals(ctx context.Context, admissionID uuid.UUID) ([]VitalSigns, error)
	ListDiagnoses(ctx context.Context, admissionID uuid.UUID) ([]Diagnosis, error)
	// ListPrescriptions returns prescriptions with medications and
	// administrations populated.
	ListPrescriptions(ctx context.Context, admissionID uuid.UUID) ([]Prescription, error)
}

// BuildSummary assembles the discharge summary. Called inside the discharge
// transaction so the record cannot change underneath it.
func BuildSummary(ctx context.Context, repo Repository, admissionID uuid.UUID) (*Summary, error) {
	vitals, err := repo.ListVitals(ctx, admissionID)
	if err != nil {
		return nil, err
	}
	diagnoses, err := repo.ListDiagnoses(ctx, admissionID)
	if err != nil {
		return nil, err
	}
	prescriptions, err := repo.ListPrescriptions(ctx, admissionID)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Vitals:        vitals,
		Diagnoses:     diagnoses,
		Prescriptions: prescriptions,
	}
	if len(vitals) > 0 {
		latest := vitals[0]
		s.LatestVitals = &latest
	}
	return s, nil
}
