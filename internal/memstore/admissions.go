package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinical-encounters/internal/admission"
	"github.com/hackgods/clinical-encounters/internal/apperr"
)

// Admissions implements admission.Repository. The uniqueness checks stand in
// for the partial unique indexes of the Postgres schema.
type Admissions struct{ s *Store }

var _ admission.Repository = (*Admissions)(nil)

func (r *Admissions) FindActiveByPatient(ctx context.Context, patientID string) (*admission.Admission, error) {
	var out *admission.Admission
	err := r.s.do(ctx, func(st *state) error {
		for _, a := range st.admissions {
			if a.PatientID == patientID && a.Status == admission.StatusActive {
				out = &a
				return nil
			}
		}
		return fmt.Errorf("%w: admission", apperr.ErrNotFound)
	})
	return out, err
}

func (r *Admissions) Insert(ctx context.Context, a admission.Admission) error {
	return r.s.do(ctx, func(st *state) error {
		if a.Status == admission.StatusActive {
			for _, existing := range st.admissions {
				if existing.PatientID == a.PatientID && existing.Status == admission.StatusActive {
					return fmt.Errorf("%w: patient %s", apperr.ErrDuplicateActiveAdmission, a.PatientID)
				}
			}
		}
		st.admissions[a.ID] = a
		return nil
	})
}

func (r *Admissions) GetByID(ctx context.Context, id uuid.UUID) (*admission.Admission, error) {
	var out *admission.Admission
	err := r.s.do(ctx, func(st *state) error {
		a, ok := st.admissions[id]
		if !ok {
			return fmt.Errorf("%w: admission", apperr.ErrNotFound)
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *Admissions) MarkDischarged(ctx context.Context, id uuid.UUID, by string, notes *string, at time.Time) (*admission.Admission, error) {
	var out *admission.Admission
	err := r.s.do(ctx, func(st *state) error {
		a, ok := st.admissions[id]
		if !ok || a.Status != admission.StatusActive {
			return apperr.ErrNotAdmitted
		}
		a.Status = admission.StatusDischarged
		a.DischargedAt = &at
		a.DischargedBy = &by
		a.DischargeNotes = notes
		st.admissions[id] = a
		out = &a
		return nil
	})
	return out, err
}

func (r *Admissions) ListActive(ctx context.Context) ([]admission.Admission, error) {
	var out []admission.Admission
	err := r.s.do(ctx, func(st *state) error {
		for _, a := range st.admissions {
			if a.Status == admission.StatusActive {
				out = append(out, a)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].AdmittedAt.After(out[j].AdmittedAt) })
	return out, err
}

// CreateUnit and CreateBed ignore duplicates by name, matching ON CONFLICT DO NOTHING.
func (r *Admissions) CreateUnit(ctx context.Context, u admission.Unit) error {
	return r.s.do(ctx, func(st *state) error {
		for _, existing := range st.units {
			if existing.Name == u.Name {
				return nil
			}
		}
		st.units[u.ID] = u
		return nil
	})
}

func (r *Admissions) CreateBed(ctx context.Context, b admission.Bed) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.units[b.UnitID]; !ok {
			return fmt.Errorf("%w: unit %s", apperr.ErrNotFound, b.UnitID)
		}
		for _, existing := range st.beds {
			if existing.UnitID == b.UnitID && existing.BedNumber == b.BedNumber {
				return nil
			}
		}
		st.beds[b.ID] = b
		return nil
	})
}

func (r *Admissions) GetBed(ctx context.Context, id uuid.UUID) (*admission.Bed, error) {
	var out *admission.Bed
	err := r.s.do(ctx, func(st *state) error {
		b, ok := st.beds[id]
		if !ok {
			return fmt.Errorf("%w: bed", apperr.ErrNotFound)
		}
		out = &b
		return nil
	})
	return out, err
}

func (r *Admissions) ListBeds(ctx context.Context, unitID *uuid.UUID) ([]admission.BedOccupancy, error) {
	var out []admission.BedOccupancy
	err := r.s.do(ctx, func(st *state) error {
		for _, b := range st.beds {
			if unitID != nil && b.UnitID != *unitID {
				continue
			}
			occ := admission.BedOccupancy{Bed: b}
			if alloc, ok := openFor(st, func(a admission.BedAllocation) bool { return a.BedID == b.ID }); ok {
				occ.AdmissionID = &alloc.AdmissionID
			}
			out = append(out, occ)
		}
		sort.Slice(out, func(i, j int) bool {
			ui, uj := st.units[out[i].UnitID].Name, st.units[out[j].UnitID].Name
			if ui != uj {
				return ui < uj
			}
			return out[i].BedNumber < out[j].BedNumber
		})
		return nil
	})
	return out, err
}

func (r *Admissions) OpenAllocationForBed(ctx context.Context, bedID uuid.UUID) (*admission.BedAllocation, error) {
	return r.open(ctx, func(a admission.BedAllocation) bool { return a.BedID == bedID })
}

func (r *Admissions) OpenAllocationForAdmission(ctx context.Context, admissionID uuid.UUID) (*admission.BedAllocation, error) {
	return r.open(ctx, func(a admission.BedAllocation) bool { return a.AdmissionID == admissionID })
}

func (r *Admissions) ReleaseOpenAllocations(ctx context.Context, admissionID uuid.UUID, at time.Time) ([]admission.BedAllocation, error) {
	var released []admission.BedAllocation
	err := r.s.do(ctx, func(st *state) error {
		for i, a := range st.allocations {
			if a.AdmissionID == admissionID && a.Open() {
				a.ReleasedAt = &at
				st.allocations[i] = a
				released = append(released, a)
			}
		}
		return nil
	})
	return released, err
}

func (r *Admissions) InsertAllocation(ctx context.Context, a admission.BedAllocation) error {
	return r.s.do(ctx, func(st *state) error {
		if a.Open() {
			if _, taken := openFor(st, func(x admission.BedAllocation) bool { return x.BedID == a.BedID }); taken {
				return fmt.Errorf("%w: bed %s", apperr.ErrBedOccupied, a.BedID)
			}
			if _, held := openFor(st, func(x admission.BedAllocation) bool { return x.AdmissionID == a.AdmissionID }); held {
				return fmt.Errorf("%w: concurrent bed change for admission %s", apperr.ErrTransientStore, a.AdmissionID)
			}
		}
		st.allocations = append(st.allocations, a)
		return nil
	})
}

// Allocations returns every allocation row, released ones included.
func (r *Admissions) Allocations(ctx context.Context) []admission.BedAllocation {
	var out []admission.BedAllocation
	_ = r.s.do(ctx, func(st *state) error {
		out = append(out, st.allocations...)
		return nil
	})
	return out
}

func (r *Admissions) open(ctx context.Context, match func(admission.BedAllocation) bool) (*admission.BedAllocation, error) {
	var out *admission.BedAllocation
	err := r.s.do(ctx, func(st *state) error {
		a, ok := openFor(st, match)
		if !ok {
			return fmt.Errorf("%w: bed allocation", apperr.ErrNotFound)
		}
		out = &a
		return nil
	})
	return out, err
}

func openFor(st *state, match func(admission.BedAllocation) bool) (admission.BedAllocation, bool) {
	for _, a := range st.allocations {
		if a.Open() && match(a) {
			return a, true
		}
	}
	return admission.BedAllocation{}, false
}
