//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinical-encounters/internal/admission"
	"github.com/hackgods/clinical-encounters/internal/apperr"
	"github.com/hackgods/clinical-encounters/internal/appointment"
	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/clinical"
	"github.com/hackgods/clinical-encounters/internal/db"
	"github.com/hackgods/clinical-encounters/internal/directory"
	"github.com/hackgods/clinical-encounters/internal/email"
	"github.com/hackgods/clinical-encounters/internal/media"
	"github.com/hackgods/clinical-encounters/internal/notification"
)

var admin = auth.Identity{UserID: "admin-it", Role: auth.RoleAdmin}

type services struct {
	dir           *directory.PgRepository
	admissionRepo *admission.PgRepository
	appointments  *appointment.Service
	appointRepo   *appointment.PgRepository
	admissions    *admission.Service
	clinical      *clinical.Service
	notifications *notification.Service
}

func newServices(t *testing.T) *services {
	t.Helper()
	log := zerolog.Nop()
	tx := db.NewTxManager(testPool)

	s := &services{
		dir:           directory.NewPgRepository(testPool),
		admissionRepo: admission.NewPgRepository(testPool),
		appointRepo:   appointment.NewPgRepository(testPool),
	}
	mailer := email.NewMailer(email.NewLoggedRelay(email.NewLogRelay(log), email.NewPgLogStore(testPool), log), "http://localhost")
	s.notifications = notification.NewService(notification.NewPgRepository(testPool), log)
	s.appointments = appointment.NewService(s.appointRepo, s.dir, s.notifications, media.NewStatic(""), mailer, tx, log)
	clinicalRepo := clinical.NewPgRepository(testPool)
	s.admissions = admission.NewService(s.admissionRepo, clinicalRepo, s.dir, s.notifications, mailer, tx, log)
	s.clinical = clinical.NewService(clinicalRepo, s.admissions, tx, log)
	return s
}

// people upserts a patient and a doctor with ids unique to the calling test.
func (s *services) people(t *testing.T) (patient, doctor auth.Identity) {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]
	patient = auth.Identity{UserID: "pat-" + suffix, Role: auth.RolePatient}
	doctor = auth.Identity{UserID: "doc-" + suffix, Role: auth.RoleDoctor}

	email := patient.UserID + "@example.com"
	require.NoError(t, s.dir.UpsertPatient(ctx, directory.Patient{ID: patient.UserID, FirstName: "Ada", LastName: "Obi", Email: &email}))
	require.NoError(t, s.dir.UpsertStaff(ctx, directory.Staff{ID: doctor.UserID, Name: "Lee", Role: auth.RoleDoctor, Status: directory.StaffActive}))
	return patient, doctor
}

func (s *services) ward(t *testing.T, beds int) []admission.Bed {
	t.Helper()
	ctx := context.Background()
	unit := admission.Unit{ID: uuid.New(), Name: "Ward " + uuid.NewString()[:8]}
	require.NoError(t, s.admissionRepo.CreateUnit(ctx, unit))

	var out []admission.Bed
	for i := 0; i < beds; i++ {
		b := admission.Bed{ID: uuid.New(), UnitID: unit.ID, BedNumber: string(rune('A' + i)), IsActive: true}
		require.NoError(t, s.admissionRepo.CreateBed(ctx, b))
		out = append(out, b)
	}
	return out
}

func TestMigrationsAreIdempotent(t *testing.T) {
	n, err := db.NewMigrator(testPool).Up(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, db.DefaultPoolConfig().MaxConns, db.Stats(testPool).MaxConns)
}

func TestAppointmentLifecycleOnPostgres(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	patient, doctor := s.people(t)

	appt, err := s.appointments.Book(ctx, admin, appointment.BookInput{
		PatientID: patient.UserID, DoctorID: doctor.UserID,
		ScheduledAt: time.Now().Add(time.Hour), Mode: appointment.ModeVideo,
	})
	require.NoError(t, err)
	require.NotNil(t, appt.RoomID)

	started, err := s.appointments.Transition(ctx, doctor, appt.ID, appointment.StatusInProgress, "")
	require.NoError(t, err)
	require.NotNil(t, started.RoomToken)

	_, err = s.appointments.Transition(ctx, doctor, appt.ID, appointment.StatusInProgress, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	done, err := s.appointments.Transition(ctx, doctor, appt.ID, appointment.StatusCompleted, "all good")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCompleted, done.Status)
	require.NotNil(t, done.Reason)
	assert.Equal(t, "all good", *done.Reason)

	inbox, err := s.notifications.Inbox(ctx, patient.UserID, auth.RolePatient, notification.InboxOptions{})
	require.NoError(t, err)
	assert.Len(t, inbox, 3)

	unread, err := s.notifications.UnreadCount(ctx, doctor.UserID, auth.RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, 3, unread)
}

func TestSweepOnPostgres(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	patient, doctor := s.people(t)

	appt, err := s.appointments.Book(ctx, admin, appointment.BookInput{
		PatientID: patient.UserID, DoctorID: doctor.UserID,
		ScheduledAt: time.Now().Add(-10 * time.Minute), Mode: appointment.ModeVideo,
	})
	require.NoError(t, err)

	sweeper := appointment.NewSweeper(s.appointments, s.appointRepo, nil, appointment.SweepConfig{}, zerolog.Nop())
	res, err := sweeper.Run(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.DoctorMissed, 1)

	missed, err := s.appointments.Get(ctx, admin, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusMissed, missed.Status)

	seen, err := s.notifications.Exists(ctx, notification.IdempotencyKey{
		RelatedID: appt.ID.String(), Type: notification.TypeAppointment, Title: appointment.MissedTitle,
	})
	require.NoError(t, err)
	assert.True(t, seen)

	again, err := sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.DoctorMissed)
}

func TestBedInvariantsOnPostgres(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	beds := s.ward(t, 2)

	admit := func(bed *uuid.UUID) *admission.Created {
		patient, doctor := s.people(t)
		created, err := s.admissions.CreateAdmission(ctx, doctor, admission.CreateInput{
			PatientID: patient.UserID, ChiefComplaint: "pain", ProvisionalDiagnosis: "tbd", BedID: bed,
		})
		require.NoError(t, err)
		return created
	}

	holder := admit(&beds[0].ID)
	other := admit(nil)

	_, err := s.admissions.AssignBed(ctx, admin, other.Admission.ID, beds[0].ID)
	require.ErrorIs(t, err, apperr.ErrBedOccupied)

	detail, err := s.admissions.Get(ctx, admin, holder.Admission.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.CurrentBed)
	assert.Equal(t, beds[0].ID, detail.CurrentBed.BedID)

	_, err = s.admissions.CreateAdmission(ctx, admin, admission.CreateInput{
		PatientID: holder.Admission.PatientID, AdmittingDoctorID: holder.Admission.AdmittingDoctorID,
		ChiefComplaint: "again", ProvisionalDiagnosis: "again",
	})
	assert.ErrorIs(t, err, apperr.ErrDuplicateActiveAdmission)

	racers := []*admission.Created{admit(nil), admit(nil), admit(nil)}
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		errs []error
	)
	for _, r := range racers {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := s.admissions.AssignBed(ctx, admin, id, beds[1].ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			errs = append(errs, err)
		}(r.Admission.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	for _, err := range errs {
		assert.ErrorIs(t, err, apperr.ErrBedOccupied)
	}

	occupancy, err := s.admissions.ListBeds(ctx, admin, &beds[0].UnitID)
	require.NoError(t, err)
	require.Len(t, occupancy, 2)
	assert.True(t, occupancy[0].Occupied())
	assert.True(t, occupancy[1].Occupied())
}

func TestDischargeOnPostgres(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	beds := s.ward(t, 1)
	patient, doctor := s.people(t)

	created, err := s.admissions.CreateAdmission(ctx, doctor, admission.CreateInput{
		PatientID: patient.UserID, ChiefComplaint: "cough", ProvisionalDiagnosis: "pneumonia", BedID: &beds[0].ID,
	})
	require.NoError(t, err)

	_, err = s.clinical.RecordVitalSigns(ctx, doctor, clinical.VitalsInput{
		AdmissionID: created.Admission.ID, BodyTemperature: 38.2, Systolic: 118, Diastolic: 76,
		HeartRate: 88, Weight: 64, Height: 170,
	})
	require.NoError(t, err)
	rx, err := s.clinical.CreatePrescription(ctx, doctor, clinical.PrescriptionInput{
		AdmissionID: created.Admission.ID, Diagnosis: "Pneumonia",
	})
	require.NoError(t, err)
	med, err := s.clinical.AddMedication(ctx, doctor, rx.ID, clinical.MedicationInput{
		Name: "Amoxicillin", Dosage: "500mg", Frequency: "TID", Duration: "7 days", Quantity: "21",
	})
	require.NoError(t, err)
	_, err = s.clinical.RecordAdministration(ctx, doctor, med.ID, clinical.AdministrationInput{DosageGiven: "500mg"})
	require.NoError(t, err)

	summary, err := s.admissions.Discharge(ctx, doctor, created.Admission.ID, "home")
	require.NoError(t, err)
	assert.Equal(t, admission.StatusDischarged, summary.Admission.Status)
	assert.Equal(t, []uuid.UUID{beds[0].ID}, summary.ReleasedBeds)
	require.Len(t, summary.Clinical.Prescriptions, 1)
	require.Len(t, summary.Clinical.Prescriptions[0].Medications, 1)
	assert.Len(t, summary.Clinical.Prescriptions[0].Medications[0].Administrations, 1)

	_, err = s.admissions.Discharge(ctx, doctor, created.Admission.ID, "again")
	assert.ErrorIs(t, err, apperr.ErrNotAdmitted)

	occupancy, err := s.admissions.ListBeds(ctx, admin, &beds[0].UnitID)
	require.NoError(t, err)
	require.Len(t, occupancy, 1)
	assert.False(t, occupancy[0].Occupied())

	var logged int
	require.NoError(t, testPool.QueryRow(ctx,
		`SELECT count(*) FROM email_logs WHERE recipient = $1`, patient.UserID+"@example.com").Scan(&logged))
	assert.Equal(t, 1, logged)
}
