package appointment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinical-encounters/internal/appointment"
	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/directory"
	"github.com/hackgods/clinical-encounters/internal/email"
	"github.com/hackgods/clinical-encounters/internal/memstore"
	"github.com/hackgods/clinical-encounters/internal/notification"
)

var (
	patient     = auth.Identity{UserID: "pat-1", Role: auth.RolePatient}
	doctor      = auth.Identity{UserID: "doc-1", Role: auth.RoleDoctor}
	otherDoctor = auth.Identity{UserID: "doc-2", Role: auth.RoleDoctor}
	admin       = auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}
)

type mockMedia struct {
	mock.Mock
}

func (m *mockMedia) CreateOrGetRoom(ctx context.Context, roomID, creatorUserID string) (string, error) {
	args := m.Called(ctx, roomID, creatorUserID)
	return args.String(0), args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendConsultationStarted(ctx context.Context, cs email.ConsultationStarted) error {
	return m.Called(ctx, cs).Error(0)
}

func (m *mockMailer) SendMissedCall(ctx context.Context, mc email.MissedCall) error {
	return m.Called(ctx, mc).Error(0)
}

// clock is a settable time source shared by the service and the sweep.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fixture struct {
	store    *memstore.Store
	svc      *appointment.Service
	notifier *notification.Service
	media    *mockMedia
	mailer   *mockMailer
	clock    *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memstore.New()
	dir := store.Directory()
	require.NoError(t, dir.UpsertPatient(ctx, directory.Patient{
		ID: patient.UserID, FirstName: "Ada", LastName: "Lovelace", Email: strPtr("ada@example.com"),
	}))
	require.NoError(t, dir.UpsertStaff(ctx, directory.Staff{
		ID: doctor.UserID, Name: "Lee", Email: strPtr("lee@example.com"), Role: auth.RoleDoctor, Status: directory.StaffActive,
	}))
	require.NoError(t, dir.UpsertStaff(ctx, directory.Staff{
		ID: otherDoctor.UserID, Name: "Okafor", Role: auth.RoleDoctor, Status: directory.StaffActive,
	}))
	require.NoError(t, dir.UpsertStaff(ctx, directory.Staff{
		ID: "doc-retired", Name: "Grey", Role: auth.RoleDoctor, Status: directory.StaffInactive,
	}))

	media := &mockMedia{}
	mailer := &mockMailer{}
	mailer.On("SendConsultationStarted", mock.Anything, mock.Anything).Return(nil).Maybe()
	mailer.On("SendMissedCall", mock.Anything, mock.Anything).Return(nil).Maybe()

	clk := &clock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	notifier := notification.NewService(store.Notifications(), zerolog.Nop())
	svc := appointment.NewService(store.Appointments(), dir, notifier, media, mailer, store, zerolog.Nop()).
		WithClock(clk.Now)

	return &fixture{store: store, svc: svc, notifier: notifier, media: media, mailer: mailer, clock: clk}
}

func (f *fixture) book(t *testing.T, mode appointment.Mode, at time.Time) *appointment.Appointment {
	t.Helper()
	a, err := f.svc.Book(context.Background(), admin, appointment.BookInput{
		PatientID:   patient.UserID,
		DoctorID:    doctor.UserID,
		ScheduledAt: at,
		Mode:        mode,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) notifications() []notification.Notification {
	return f.store.Notifications().All(context.Background())
}

func (f *fixture) titlesFor(userID string) []string {
	var titles []string
	for _, n := range f.notifications() {
		if n.UserID == userID {
			titles = append(titles, n.Title)
		}
	}
	return titles
}

func strPtr(s string) *string { return &s }
