package directory

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hackgods/clinical-encounters/internal/auth"
)

// CachedRepository keeps recently read patients and staff in memory. Role
// listings always go to the backing store since discharge fan-out must see
// the current roster.
type CachedRepository struct {
	next     Repository
	patients *lru.Cache[string, Patient]
	staff    *lru.Cache[string, Staff]
}

func NewCachedRepository(next Repository, size int) (*CachedRepository, error) {
	patients, err := lru.New[string, Patient](size)
	if err != nil {
		return nil, err
	}
	staff, err := lru.New[string, Staff](size)
	if err != nil {
		return nil, err
	}
	return &CachedRepository{next: next, patients: patients, staff: staff}, nil
}

func (c *CachedRepository) GetPatient(ctx context.Context, id string) (*Patient, error) {
	if p, ok := c.patients.Get(id); ok {
		return &p, nil
	}
	p, err := c.next.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	c.patients.Add(id, *p)
	return p, nil
}

func (c *CachedRepository) GetStaff(ctx context.Context, id string) (*Staff, error) {
	if s, ok := c.staff.Get(id); ok {
		return &s, nil
	}
	s, err := c.next.GetStaff(ctx, id)
	if err != nil {
		return nil, err
	}
	c.staff.Add(id, *s)
	return s, nil
}

func (c *CachedRepository) ListActiveStaff(ctx context.Context, roles ...auth.Role) ([]Staff, error) {
	return c.next.ListActiveStaff(ctx, roles...)
}

func (c *CachedRepository) UpsertPatient(ctx context.Context, p Patient) error {
	c.patients.Remove(p.ID)
	return c.next.UpsertPatient(ctx, p)
}

func (c *CachedRepository) UpsertStaff(ctx context.Context, s Staff) error {
	c.staff.Remove(s.ID)
	return c.next.UpsertStaff(ctx, s)
}
