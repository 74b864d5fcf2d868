package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/hackgods/clinical-encounters/internal/apperr"
	"github.com/hackgods/clinical-encounters/internal/clinical"
)

// Clinical implements clinical.Repository.
type Clinical struct{ s *Store }

var _ clinical.Repository = (*Clinical)(nil)

func (r *Clinical) InsertVitals(ctx context.Context, v clinical.VitalSigns) error {
	return r.s.do(ctx, func(st *state) error {
		st.vitals = append(st.vitals, v)
		return nil
	})
}

func (r *Clinical) InsertDiagnosis(ctx context.Context, d clinical.Diagnosis) error {
	return r.s.do(ctx, func(st *state) error {
		st.diagnoses = append(st.diagnoses, d)
		return nil
	})
}

func (r *Clinical) InsertPrescription(ctx context.Context, p clinical.Prescription) error {
	return r.s.do(ctx, func(st *state) error {
		p.Medications = nil
		st.prescriptions = append(st.prescriptions, p)
		return nil
	})
}

func (r *Clinical) GetPrescription(ctx context.Context, id uuid.UUID) (*clinical.Prescription, error) {
	var out *clinical.Prescription
	err := r.s.do(ctx, func(st *state) error {
		for _, p := range st.prescriptions {
			if p.ID == id {
				out = &p
				return nil
			}
		}
		return fmt.Errorf("%w: prescription", apperr.ErrNotFound)
	})
	return out, err
}

func (r *Clinical) InsertMedication(ctx context.Context, m clinical.Medication) error {
	return r.s.do(ctx, func(st *state) error {
		m.Administrations = nil
		st.medications = append(st.medications, m)
		return nil
	})
}

func (r *Clinical) GetMedication(ctx context.Context, id uuid.UUID) (*clinical.Medication, error) {
	var out *clinical.Medication
	err := r.s.do(ctx, func(st *state) error {
		for _, m := range st.medications {
			if m.ID == id {
				out = &m
				return nil
			}
		}
		return fmt.Errorf("%w: medication", apperr.ErrNotFound)
	})
	return out, err
}

func (r *Clinical) InsertAdministration(ctx context.Context, a clinical.Administration) error {
	return r.s.do(ctx, func(st *state) error {
		st.administrations = append(st.administrations, a)
		return nil
	})
}

func (r *Clinical) ListVitals(ctx context.Context, admissionID uuid.UUID) ([]clinical.VitalSigns, error) {
	var out []clinical.VitalSigns
	err := r.s.do(ctx, func(st *state) error {
		for i := len(st.vitals) - 1; i >= 0; i-- {
			if st.vitals[i].AdmissionID == admissionID {
				out = append(out, st.vitals[i])
			}
		}
		return nil
	})
	sortNewestFirst(out, func(v clinical.VitalSigns) int64 { return v.CreatedAt.UnixNano() })
	return out, err
}

func (r *Clinical) ListDiagnoses(ctx context.Context, admissionID uuid.UUID) ([]clinical.Diagnosis, error) {
	var out []clinical.Diagnosis
	err := r.s.do(ctx, func(st *state) error {
		for _, d := range st.diagnoses {
			if d.AdmissionID == admissionID {
				out = append(out, d)
			}
		}
		return nil
	})
	return out, err
}

func (r *Clinical) ListPrescriptions(ctx context.Context, admissionID uuid.UUID) ([]clinical.Prescription, error) {
	var out []clinical.Prescription
	err := r.s.do(ctx, func(st *state) error {
		for _, p := range st.prescriptions {
			if p.AdmissionID != admissionID {
				continue
			}
			for _, m := range st.medications {
				if m.PrescriptionID != p.ID {
					continue
				}
				for _, a := range st.administrations {
					if a.MedicationID == m.ID {
						m.Administrations = append(m.Administrations, a)
					}
				}
				p.Medications = append(p.Medications, m)
			}
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

// sortNewestFirst orders rows by key descending, keeping the existing order
// for equal keys.
func sortNewestFirst[T any](rows []T, key func(T) int64) {
	sort.SliceStable(rows, func(i, j int) bool { return key(rows[i]) > key(rows[j]) })
}
