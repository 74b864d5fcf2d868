package directory

import (
	"context"

	"github.com/hackgods/clinical-encounters/internal/auth"
)

// Repository reads the patient and staff directory. Upserts exist for seeding
// and for the identity provider sync.
type Repository interface {
	GetPatient(ctx context.Context, id string) (*Patient, error)
	GetStaff(ctx context.Context, id string) (*Staff, error)
	ListActiveStaff(ctx context.Context, roles ...auth.Role) ([]Staff, error)
	UpsertPatient(ctx context.Context, p Patient) error
	UpsertStaff(ctx context.Context, s Staff) error
}
