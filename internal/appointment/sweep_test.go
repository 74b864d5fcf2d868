package appointment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinical-encounters/internal/appointment"
	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/email"
	"github.com/hackgods/clinical-encounters/internal/notification"
	redisclient "github.com/hackgods/clinical-encounters/internal/redis"
)

var sweepCfg = appointment.SweepConfig{
	PatientMissedAfter: 5 * time.Minute,
	DoctorMissedAfter:  5 * time.Minute,
}

func (f *fixture) sweeper(locker redisclient.Locker) *appointment.Sweeper {
	return appointment.NewSweeper(f.svc, f.store.Appointments(), locker, sweepCfg, zerolog.Nop())
}

func (f *fixture) status(t *testing.T, a *appointment.Appointment) appointment.Status {
	t.Helper()
	got, err := f.svc.Get(context.Background(), admin, a.ID)
	require.NoError(t, err)
	return got.Status
}

func TestSweepDoctorMissed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	overdue := f.book(t, appointment.ModeVideo, now.Add(-10*time.Minute))
	upcoming := f.book(t, appointment.ModeVideo, now.Add(-2*time.Minute))
	physical := f.book(t, appointment.ModePhysical, now.Add(-time.Hour))

	res, err := f.sweeper(nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, appointment.SweepResult{DoctorMissed: 1}, res)

	assert.Equal(t, appointment.StatusMissed, f.status(t, overdue))
	assert.Equal(t, appointment.StatusScheduled, f.status(t, upcoming))
	assert.Equal(t, appointment.StatusScheduled, f.status(t, physical))

	var doctorNote, patientNote *notification.Notification
	for _, n := range f.notifications() {
		if n.RelatedID == nil || *n.RelatedID != overdue.ID.String() {
			continue
		}
		switch n.Title {
		case appointment.MissedTitle:
			doctorNote = &n
		case "Doctor Missed Consultation":
			patientNote = &n
		}
	}
	require.NotNil(t, doctorNote)
	require.NotNil(t, patientNote)
	assert.Equal(t, doctor.UserID, doctorNote.UserID)
	assert.Equal(t, notification.PriorityHigh, doctorNote.Priority)
	assert.Equal(t, patient.UserID, patientNote.UserID)
	assert.Equal(t, "/meeting/"+*overdue.RoomID, *patientNote.ActionURL)

	f.mailer.AssertNumberOfCalls(t, "SendMissedCall", 2)
	f.mailer.AssertCalled(t, "SendMissedCall", mock.Anything, mock.MatchedBy(func(mc email.MissedCall) bool {
		return mc.Role == auth.RoleDoctor && mc.To == "lee@example.com" && mc.CounterpartName == "Ada Lovelace"
	}))
}

func TestSweepPatientMissed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := f.clock.Now()

	a := f.book(t, appointment.ModeVideo, start.Add(time.Minute))
	f.media.On("CreateOrGetRoom", mock.Anything, mock.Anything, mock.Anything).Return("tok", nil)
	_, err := f.svc.Transition(ctx, doctor, a.ID, appointment.StatusInProgress, "")
	require.NoError(t, err)

	f.clock.Set(start.Add(3 * time.Minute))
	res, err := f.sweeper(nil).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.PatientMissed, "still within the grace period")

	f.clock.Set(start.Add(6 * time.Minute))
	res, err = f.sweeper(nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, appointment.SweepResult{PatientMissed: 1}, res)
	assert.Equal(t, appointment.StatusMissed, f.status(t, a))

	assert.Contains(t, f.titlesFor(patient.UserID), appointment.MissedTitle)
	assert.Contains(t, f.titlesFor(doctor.UserID), "Patient Missed Consultation")
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, appointment.ModeVideo, f.clock.Now().Add(-time.Hour))

	first, err := f.sweeper(nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.DoctorMissed)
	count := len(f.notifications())

	second, err := f.sweeper(nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, appointment.SweepResult{}, second)
	assert.Len(t, f.notifications(), count)
}

func TestSweepSkipsAppointmentAlreadyNotified(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, appointment.ModeVideo, f.clock.Now().Add(-time.Hour))

	related := a.ID.String()
	_, err := f.notifier.Notify(ctx, notification.Notification{
		UserID:    doctor.UserID,
		UserRole:  auth.RoleDoctor,
		Title:     appointment.MissedTitle,
		Message:   "already told",
		Type:      notification.TypeAppointment,
		RelatedID: &related,
	})
	require.NoError(t, err)

	res, err := f.sweeper(nil).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.DoctorMissed)
	assert.Equal(t, appointment.StatusScheduled, f.status(t, a))
}

func TestConcurrentSweepsTransitionOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.book(t, appointment.ModeVideo, f.clock.Now().Add(-time.Duration(10+i)*time.Minute))
	}

	const runs = 4
	results := make([]appointment.SweepResult, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.sweeper(nil).Run(ctx)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	total := 0
	for _, r := range results {
		total += r.DoctorMissed
	}
	assert.Equal(t, 5, total)

	missedTitles := 0
	for _, n := range f.notifications() {
		if n.Title == appointment.MissedTitle {
			missedTitles++
		}
	}
	assert.Equal(t, 5, missedTitles)
}

type busyLocker struct{}

func (busyLocker) WithLock(context.Context, string, func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

func TestSweepSkippedWhileAnotherRunHoldsTheLock(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, appointment.ModeVideo, f.clock.Now().Add(-time.Hour))

	res, err := f.sweeper(busyLocker{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, appointment.SweepResult{Skipped: true}, res)
	assert.Equal(t, appointment.StatusScheduled, f.status(t, a))
}

func TestSweepWithLocalLocker(t *testing.T) {
	f := newFixture(t)
	f.book(t, appointment.ModeVideo, f.clock.Now().Add(-time.Hour))

	res, err := f.sweeper(redisclient.NewLocalLocker()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.DoctorMissed)
}
