// Package seed fills the directory and the bed inventory with fake but
// plausible data for local runs and load simulations.
package seed

import (
	"context"
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinical-encounters/internal/admission"
	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/directory"
)

// AdminID is the single administrator every seed run creates.
const AdminID = "admin-001"

var namespace = uuid.MustParse("0f4d6f3e-9a7b-4c1e-8d55-6f2b1c3a9e70")

type BedStore interface {
	CreateUnit(ctx context.Context, u admission.Unit) error
	CreateBed(ctx context.Context, b admission.Bed) error
}

type Options struct {
	Patients    int
	Doctors     int
	Nurses      int
	Units       int
	BedsPerUnit int
	// Seed makes the generated names reproducible. Zero picks a random seed.
	Seed uint64
}

func DefaultOptions() Options {
	return Options{Patients: 200, Doctors: 10, Nurses: 20, Units: 4, BedsPerUnit: 12}
}

type Result struct {
	Patients int
	Staff    int
	Units    int
	Beds     int
}

func PatientID(i int) string { return fmt.Sprintf("pat-%04d", i) }
func DoctorID(i int) string  { return fmt.Sprintf("doc-%03d", i) }
func NurseID(i int) string   { return fmt.Sprintf("nurse-%03d", i) }

// UnitID and BedID are derived from names so repeated runs hit the same rows.
func UnitID(name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte("unit:"+name))
}

func BedID(unitName, bedNumber string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte("bed:"+unitName+"/"+bedNumber))
}

// Run upserts everything described by opts. Identifiers are stable, so
// running it twice does not duplicate rows.
func Run(ctx context.Context, dir directory.Repository, beds BedStore, opts Options, log zerolog.Logger) (Result, error) {
	faker := gofakeit.New(opts.Seed)
	var res Result

	for i := 1; i <= opts.Patients; i++ {
		email := faker.Email()
		p := directory.Patient{
			ID:        PatientID(i),
			FirstName: faker.FirstName(),
			LastName:  faker.LastName(),
			Email:     &email,
		}
		if err := dir.UpsertPatient(ctx, p); err != nil {
			return res, fmt.Errorf("seed patient %s: %w", p.ID, err)
		}
		res.Patients++
	}
	log.Info().Int("count", res.Patients).Msg("patients seeded")

	staff := []directory.Staff{staffMember(faker, AdminID, auth.RoleAdmin)}
	for i := 1; i <= opts.Doctors; i++ {
		staff = append(staff, staffMember(faker, DoctorID(i), auth.RoleDoctor))
	}
	for i := 1; i <= opts.Nurses; i++ {
		staff = append(staff, staffMember(faker, NurseID(i), auth.RoleNurse))
	}
	for _, s := range staff {
		if err := dir.UpsertStaff(ctx, s); err != nil {
			return res, fmt.Errorf("seed staff %s: %w", s.ID, err)
		}
		res.Staff++
	}
	log.Info().Int("count", res.Staff).Msg("staff seeded")

	for u := 0; u < opts.Units; u++ {
		name := fmt.Sprintf("Ward %c", 'A'+u)
		unit := admission.Unit{ID: UnitID(name), Name: name}
		if err := beds.CreateUnit(ctx, unit); err != nil {
			return res, fmt.Errorf("seed unit %s: %w", name, err)
		}
		res.Units++

		for b := 1; b <= opts.BedsPerUnit; b++ {
			number := fmt.Sprintf("%c%02d", 'A'+u, b)
			bed := admission.Bed{ID: BedID(name, number), UnitID: unit.ID, BedNumber: number, IsActive: true}
			if err := beds.CreateBed(ctx, bed); err != nil {
				return res, fmt.Errorf("seed bed %s: %w", number, err)
			}
			res.Beds++
		}
	}
	log.Info().Int("units", res.Units).Int("beds", res.Beds).Msg("beds seeded")

	return res, nil
}

func staffMember(faker *gofakeit.Faker, id string, role auth.Role) directory.Staff {
	email := faker.Email()
	return directory.Staff{
		ID:     id,
		Name:   faker.LastName(),
		Email:  &email,
		Role:   role,
		Status: directory.StaffActive,
	}
}
