package directory

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinical-encounters/internal/apperr"
	"github.com/hackgods/clinical-encounters/internal/auth"
)

type countingRepo struct {
	patients map[string]Patient
	staff    map[string]Staff
	reads    int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{patients: map[string]Patient{}, staff: map[string]Staff{}}
}

func (r *countingRepo) GetPatient(_ context.Context, id string) (*Patient, error) {
	r.reads++
	p, ok := r.patients[id]
	if !ok {
		return nil, fmt.Errorf("%w: patient", apperr.ErrNotFound)
	}
	return &p, nil
}

func (r *countingRepo) GetStaff(_ context.Context, id string) (*Staff, error) {
	r.reads++
	s, ok := r.staff[id]
	if !ok {
		return nil, fmt.Errorf("%w: staff member", apperr.ErrNotFound)
	}
	return &s, nil
}

func (r *countingRepo) ListActiveStaff(_ context.Context, roles ...auth.Role) ([]Staff, error) {
	r.reads++
	var out []Staff
	for _, s := range r.staff {
		if s.IsActive() && slices.Contains(roles, s.Role) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *countingRepo) UpsertPatient(_ context.Context, p Patient) error {
	r.patients[p.ID] = p
	return nil
}

func (r *countingRepo) UpsertStaff(_ context.Context, s Staff) error {
	r.staff[s.ID] = s
	return nil
}

func TestCachedRepository_ServesRepeatReadsFromCache(t *testing.T) {
	ctx := context.Background()
	backing := newCountingRepo()
	require.NoError(t, backing.UpsertPatient(ctx, Patient{ID: "p1", FirstName: "Ada", LastName: "Obi"}))

	cache, err := NewCachedRepository(backing, 8)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		p, err := cache.GetPatient(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Ada Obi", p.FullName())
	}
	assert.Equal(t, 1, backing.reads)
}

func TestCachedRepository_UpsertInvalidates(t *testing.T) {
	ctx := context.Background()
	backing := newCountingRepo()
	cache, err := NewCachedRepository(backing, 8)
	require.NoError(t, err)

	require.NoError(t, cache.UpsertStaff(ctx, Staff{ID: "d1", Name: "Dr. Lee", Role: auth.RoleDoctor, Status: StaffActive}))
	s, err := cache.GetStaff(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, s.IsActive())

	require.NoError(t, cache.UpsertStaff(ctx, Staff{ID: "d1", Name: "Dr. Lee", Role: auth.RoleDoctor, Status: StaffInactive}))
	s, err = cache.GetStaff(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, s.IsActive())
}

func TestCachedRepository_MissesAreNotCached(t *testing.T) {
	ctx := context.Background()
	backing := newCountingRepo()
	cache, err := NewCachedRepository(backing, 8)
	require.NoError(t, err)

	_, err = cache.GetPatient(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = cache.GetPatient(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 2, backing.reads)
}
