package clinical

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinical-encounters/internal/apperr"
	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/db"
)

// AdmissionLookup resolves the patient of an ACTIVE admission. It returns
// apperr.ErrAdmissionNotActive for discharged admissions.
type AdmissionLookup interface {
	ActivePatient(ctx context.Context, admissionID uuid.UUID) (string, error)
}

var (
	charting    = []auth.Role{auth.RoleNurse, auth.RoleDoctor, auth.RoleAdmin}
	prescribing = []auth.Role{auth.RoleDoctor, auth.RoleAdmin}
)

type Service struct {
	repo       Repository
	admissions AdmissionLookup
	tx         db.TxRunner
	log        zerolog.Logger
	now        func() time.Time
}

func NewService(repo Repository, admissions AdmissionLookup, tx db.TxRunner, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		admissions: admissions,
		tx:         tx,
		log:        log.With().Str("component", "clinical").Logger(),
		now:        time.Now,
	}
}

func (s *Service) RecordVitalSigns(ctx context.Context, actor auth.Identity, in VitalsInput) (*VitalSigns, error) {
	if !actor.HasRole(charting...) {
		return nil, fmt.Errorf("%w: only clinical staff record vital signs", apperr.ErrForbidden)
	}
	if in.Systolic <= 0 || in.Diastolic <= 0 || in.HeartRate <= 0 || in.BodyTemperature <= 0 {
		return nil, fmt.Errorf("%w: temperature, blood pressure and heart rate are required", apperr.ErrInvalidInput)
	}

	var out *VitalSigns
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		patientID, err := s.admissions.ActivePatient(ctx, in.AdmissionID)
		if err != nil {
			return err
		}
		v := VitalSigns{
			ID:               uuid.New(),
			AdmissionID:      in.AdmissionID,
			PatientID:        patientID,
			BodyTemperature:  in.BodyTemperature,
			Systolic:         in.Systolic,
			Diastolic:        in.Diastolic,
			HeartRate:        in.HeartRate,
			RespiratoryRate:  in.RespiratoryRate,
			OxygenSaturation: in.OxygenSaturation,
			Weight:           in.Weight,
			Height:           in.Height,
			RecordedBy:       actor.UserID,
			CreatedAt:        s.now().UTC(),
		}
		if err := s.repo.InsertVitals(ctx, v); err != nil {
			return err
		}
		out = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) AddDiagnosis(ctx context.Context, actor auth.Identity, in DiagnosisInput) (*Diagnosis, error) {
	if !actor.HasRole(prescribing...) {
		return nil, fmt.Errorf("%w: only doctors record diagnoses", apperr.ErrForbidden)
	}
	if strings.TrimSpace(in.Symptoms) == "" || strings.TrimSpace(in.Diagnosis) == "" {
		return nil, fmt.Errorf("%w: symptoms and diagnosis are required", apperr.ErrInvalidInput)
	}

	var out *Diagnosis
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		patientID, err := s.admissions.ActivePatient(ctx, in.AdmissionID)
		if err != nil {
			return err
		}
		d := Diagnosis{
			ID:           uuid.New(),
			AdmissionID:  in.AdmissionID,
			PatientID:    patientID,
			DoctorID:     actor.UserID,
			Symptoms:     in.Symptoms,
			Diagnosis:    in.Diagnosis,
			Notes:        in.Notes,
			FollowUpPlan: in.FollowUpPlan,
			CreatedAt:    s.now().UTC(),
		}
		if err := s.repo.InsertDiagnosis(ctx, d); err != nil {
			return err
		}
		out = &d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) CreatePrescription(ctx context.Context, actor auth.Identity, in PrescriptionInput) (*Prescription, error) {
	if !actor.HasRole(prescribing...) {
		return nil, fmt.Errorf("%w: only doctors write prescriptions", apperr.ErrForbidden)
	}
	if strings.TrimSpace(in.Diagnosis) == "" {
		return nil, fmt.Errorf("%w: diagnosis is required", apperr.ErrInvalidInput)
	}

	var out *Prescription
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		patientID, err := s.admissions.ActivePatient(ctx, in.AdmissionID)
		if err != nil {
			return err
		}
		p := Prescription{
			ID:           uuid.New(),
			AdmissionID:  in.AdmissionID,
			PatientID:    patientID,
			DoctorID:     actor.UserID,
			Diagnosis:    in.Diagnosis,
			Instructions: in.Instructions,
			Status:       StatusActive,
			CreatedAt:    s.now().UTC(),
		}
		if err := s.repo.InsertPrescription(ctx, p); err != nil {
			return err
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddMedication appends a medication to an active prescription.
func (s *Service) AddMedication(ctx context.Context, actor auth.Identity, prescriptionID uuid.UUID, in MedicationInput) (*Medication, error) {
	if !actor.HasRole(prescribing...) {
		return nil, fmt.Errorf("%w: only doctors add medications", apperr.ErrForbidden)
	}
	if in.Name == "" || in.Dosage == "" || in.Frequency == "" || in.Duration == "" || in.Quantity == "" {
		return nil, fmt.Errorf("%w: name, dosage, frequency, duration and quantity are required", apperr.ErrInvalidInput)
	}

	var out *Medication
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetPrescription(ctx, prescriptionID)
		if err != nil {
			return err
		}
		if p.Status != StatusActive {
			return fmt.Errorf("%w: prescription is not active", apperr.ErrInvalidInput)
		}
		if _, err := s.admissions.ActivePatient(ctx, p.AdmissionID); err != nil {
			return err
		}

		m := Medication{
			ID:             uuid.New(),
			PrescriptionID: prescriptionID,
			Name:           in.Name,
			Dosage:         in.Dosage,
			Frequency:      in.Frequency,
			Duration:       in.Duration,
			Quantity:       in.Quantity,
			Instructions:   in.Instructions,
			Status:         StatusActive,
			CreatedAt:      s.now().UTC(),
		}
		if err := s.repo.InsertMedication(ctx, m); err != nil {
			return err
		}
		out = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) RecordAdministration(ctx context.Context, actor auth.Identity, medicationID uuid.UUID, in AdministrationInput) (*Administration, error) {
	if !actor.HasRole(charting...) {
		return nil, fmt.Errorf("%w: only clinical staff administer medication", apperr.ErrForbidden)
	}
	if strings.TrimSpace(in.DosageGiven) == "" {
		return nil, fmt.Errorf("%w: dosage given is required", apperr.ErrInvalidInput)
	}

	var out *Administration
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetMedication(ctx, medicationID)
		if err != nil {
			return err
		}
		if m.Status == StatusCompleted {
			return fmt.Errorf("%w: medication is not active", apperr.ErrInvalidInput)
		}
		p, err := s.repo.GetPrescription(ctx, m.PrescriptionID)
		if err != nil {
			return err
		}
		patientID, err := s.admissions.ActivePatient(ctx, p.AdmissionID)
		if err != nil {
			return err
		}

		a := Administration{
			ID:                 uuid.New(),
			MedicationID:       medicationID,
			PatientID:          patientID,
			AdministeredBy:     actor.UserID,
			AdministeredByRole: actor.Role,
			DosageGiven:        in.DosageGiven,
			Notes:              in.Notes,
			AdministeredAt:     s.now().UTC(),
		}
		if err := s.repo.InsertAdministration(ctx, a); err != nil {
			return err
		}
		out = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("medication_id", medicationID.String()).Str("by", actor.UserID).Msg("medication administered")
	return out, nil
}

// Summary reads the clinical record of an admission regardless of its status.
func (s *Service) Summary(ctx context.Context, admissionID uuid.UUID) (*Summary, error) {
	return BuildSummary(ctx, s.repo, admissionID)
}
