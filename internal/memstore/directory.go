package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/hackgods/clinical-encounters/internal/apperr"
	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/directory"
)

// Directory implements directory.Repository.
type Directory struct{ s *Store }

var _ directory.Repository = (*Directory)(nil)

func (r *Directory) GetPatient(ctx context.Context, id string) (*directory.Patient, error) {
	var out *directory.Patient
	err := r.s.do(ctx, func(st *state) error {
		p, ok := st.patients[id]
		if !ok {
			return fmt.Errorf("%w: patient %s", apperr.ErrNotFound, id)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *Directory) GetStaff(ctx context.Context, id string) (*directory.Staff, error) {
	var out *directory.Staff
	err := r.s.do(ctx, func(st *state) error {
		s, ok := st.staff[id]
		if !ok {
			return fmt.Errorf("%w: staff %s", apperr.ErrNotFound, id)
		}
		out = &s
		return nil
	})
	return out, err
}

func (r *Directory) ListActiveStaff(ctx context.Context, roles ...auth.Role) ([]directory.Staff, error) {
	var out []directory.Staff
	err := r.s.do(ctx, func(st *state) error {
		for _, s := range st.staff {
			if s.IsActive() && slices.Contains(roles, s.Role) {
				out = append(out, s)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *Directory) UpsertPatient(ctx context.Context, p directory.Patient) error {
	return r.s.do(ctx, func(st *state) error {
		st.patients[p.ID] = p
		return nil
	})
}

func (r *Directory) UpsertStaff(ctx context.Context, s directory.Staff) error {
	return r.s.do(ctx, func(st *state) error {
		st.staff[s.ID] = s
		return nil
	})
}
