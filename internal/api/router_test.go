package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinical-encounters/internal/admission"
	"github.com/hackgods/clinical-encounters/internal/appointment"
	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/clinical"
	"github.com/hackgods/clinical-encounters/internal/directory"
	"github.com/hackgods/clinical-encounters/internal/email"
	"github.com/hackgods/clinical-encounters/internal/media"
	"github.com/hackgods/clinical-encounters/internal/memstore"
	"github.com/hackgods/clinical-encounters/internal/notification"
	redisclient "github.com/hackgods/clinical-encounters/internal/redis"
)

var (
	patientID = auth.Identity{UserID: "pat-1", Role: auth.RolePatient}
	doctorID  = auth.Identity{UserID: "doc-1", Role: auth.RoleDoctor}
	nurseID   = auth.Identity{UserID: "nurse-1", Role: auth.RoleNurse}
	adminID   = auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}
)

const testSigningKey = "test-signing-key"

type testServer struct {
	handler http.Handler
	beds    []admission.Bed
}

func newTestServer(t *testing.T, devAuth bool) *testServer {
	t.Helper()
	ctx := context.Background()
	log := zerolog.Nop()

	store := memstore.New()
	dir := store.Directory()
	for _, p := range []directory.Patient{
		{ID: "pat-1", FirstName: "Ada", LastName: "Lovelace"},
		{ID: "pat-2", FirstName: "Alan", LastName: "Turing"},
	} {
		require.NoError(t, dir.UpsertPatient(ctx, p))
	}
	for _, s := range []directory.Staff{
		{ID: doctorID.UserID, Name: "Lee", Role: auth.RoleDoctor, Status: directory.StaffActive},
		{ID: nurseID.UserID, Name: "Nia", Role: auth.RoleNurse, Status: directory.StaffActive},
		{ID: adminID.UserID, Name: "Ana", Role: auth.RoleAdmin, Status: directory.StaffActive},
	} {
		require.NoError(t, dir.UpsertStaff(ctx, s))
	}

	ts := &testServer{}
	unit := admission.Unit{ID: uuid.New(), Name: "Ward A"}
	require.NoError(t, store.Admissions().CreateUnit(ctx, unit))
	for _, number := range []string{"A1", "A2"} {
		b := admission.Bed{ID: uuid.New(), UnitID: unit.ID, BedNumber: number, IsActive: true}
		require.NoError(t, store.Admissions().CreateBed(ctx, b))
		ts.beds = append(ts.beds, b)
	}

	mailer := email.NewMailer(email.NewLoggedRelay(email.NewLogRelay(log), store.EmailLogs(), log), "https://clinic.example")
	notifier := notification.NewService(store.Notifications(), log)
	appointments := appointment.NewService(store.Appointments(), dir, notifier, media.NewStatic(""), mailer, store, log)
	admissions := admission.NewService(store.Admissions(), store.Clinical(), dir, notifier, mailer, store, log)

	ts.handler = NewRouter(RouterConfig{
		Appointments:  appointments,
		Sweeper:       appointment.NewSweeper(appointments, store.Appointments(), redisclient.NewLocalLocker(), appointment.SweepConfig{}, log),
		Admissions:    admissions,
		Clinical:      clinical.NewService(store.Clinical(), admissions, store, log),
		Notifications: notifier,
		Log:           log,
		Auth:          auth.JWTConfig{SigningKey: []byte(testSigningKey)},
		DevAuth:       devAuth,
		Env:           "test",
		Version:       "v-test",
	})
	return ts
}

func (ts *testServer) do(t *testing.T, as auth.Identity, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as.UserID != "" {
		req.Header.Set("X-User-ID", as.UserID)
		req.Header.Set("X-User-Role", string(as.Role))
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) book(t *testing.T, mode string, at time.Time) AppointmentResponse {
	t.Helper()
	rec := ts.do(t, adminID, http.MethodPost, "/appointments", BookAppointmentRequest{
		PatientID: patientID.UserID, DoctorID: doctorID.UserID, ScheduledAt: at, Mode: mode,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[AppointmentResponse](t, rec)
}

func TestHealthWithMemoryStore(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, auth.Identity{}, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v-test", decode[LivenessResponse](t, rec).Version)

	rec = ts.do(t, auth.Identity{}, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ready := decode[ReadinessResponse](t, rec)
	assert.Equal(t, "ok", ready.Status)
	assert.Equal(t, "memory", ready.Dependencies["store"])

	rec = ts.do(t, auth.Identity{}, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

	rec = ts.do(t, auth.Identity{}, http.MethodGet, "/health/live", nil)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestVideoConsultationOverHTTP(t *testing.T) {
	ts := newTestServer(t, true)
	appt := ts.book(t, "VIDEO", time.Now().Add(time.Hour))
	assert.Equal(t, "SCHEDULED", appt.Status)
	require.NotNil(t, appt.RoomID)

	path := "/appointments/" + appt.ID.String()
	rec := ts.do(t, doctorID, http.MethodPost, path+"/transition", TransitionRequest{Status: "IN_PROGRESS"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	started := decode[AppointmentResponse](t, rec)
	assert.Equal(t, "IN_PROGRESS", started.Status)
	assert.NotNil(t, started.RoomToken)

	rec = ts.do(t, patientID, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "IN_PROGRESS", decode[AppointmentResponse](t, rec).Status)

	rec = ts.do(t, patientID, http.MethodGet, "/appointments?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]AppointmentResponse](t, rec), 1)
}

func TestAppointmentErrorMapping(t *testing.T) {
	ts := newTestServer(t, true)
	video := ts.book(t, "VIDEO", time.Now().Add(time.Hour))
	physical := ts.book(t, "PHYSICAL", time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		as     auth.Identity
		path   string
		body   any
		status int
		code   string
	}{
		{"patient cannot transition", patientID, "/appointments/" + video.ID.String() + "/transition",
			TransitionRequest{Status: "CANCELLED"}, http.StatusForbidden, "forbidden"},
		{"unknown status", doctorID, "/appointments/" + video.ID.String() + "/transition",
			TransitionRequest{Status: "PAUSED"}, http.StatusBadRequest, "invalid_status"},
		{"illegal edge", doctorID, "/appointments/" + video.ID.String() + "/transition",
			TransitionRequest{Status: "COMPLETED"}, http.StatusConflict, "invalid_transition"},
		{"physical cannot start", doctorID, "/appointments/" + physical.ID.String() + "/transition",
			TransitionRequest{Status: "IN_PROGRESS"}, http.StatusBadRequest, "invalid_appointment_mode"},
		{"unknown appointment", doctorID, "/appointments/" + uuid.NewString() + "/transition",
			TransitionRequest{Status: "CANCELLED"}, http.StatusNotFound, "not_found"},
		{"bad id", doctorID, "/appointments/nope/transition",
			TransitionRequest{Status: "CANCELLED"}, http.StatusBadRequest, "invalid_id"},
		{"unknown field", doctorID, "/appointments/" + video.ID.String() + "/transition",
			map[string]string{"state": "CANCELLED"}, http.StatusBadRequest, "invalid_request_body"},
		{"nurse cannot book", nurseID, "/appointments",
			BookAppointmentRequest{PatientID: "pat-1", DoctorID: "doc-1", ScheduledAt: time.Now(), Mode: "VIDEO"},
			http.StatusForbidden, "forbidden"},
		{"bad mode", adminID, "/appointments",
			BookAppointmentRequest{PatientID: "pat-1", DoctorID: "doc-1", ScheduledAt: time.Now(), Mode: "PHONE"},
			http.StatusBadRequest, "invalid_mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.as, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestAssignOccupiedBedReturnsConflict(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, doctorID, http.MethodPost, "/admissions", CreateAdmissionRequest{
		PatientID: "pat-1", ChiefComplaint: "cough", ProvisionalDiagnosis: "bronchitis", BedID: &ts.beds[0].ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[AdmissionResponse](t, rec)
	require.NotNil(t, first.CurrentBed)

	rec = ts.do(t, doctorID, http.MethodPost, "/admissions", CreateAdmissionRequest{
		PatientID: "pat-2", ChiefComplaint: "fever", ProvisionalDiagnosis: "flu",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	second := decode[AdmissionResponse](t, rec)

	rec = ts.do(t, nurseID, http.MethodPost, "/admissions/"+second.ID.String()+"/bed", AssignBedRequest{BedID: ts.beds[0].ID})
	require.Equal(t, http.StatusConflict, rec.Code)
	errResp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "bed_occupied", errResp.Error)
	assert.Contains(t, errResp.Details, "selected bed is already occupied")

	rec = ts.do(t, nurseID, http.MethodPost, "/admissions/"+second.ID.String()+"/bed", AssignBedRequest{BedID: ts.beds[1].ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, nurseID, http.MethodGet, "/beds", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	beds := decode[[]BedResponse](t, rec)
	require.Len(t, beds, 2)
	assert.True(t, beds[0].Occupied)
	assert.True(t, beds[1].Occupied)

	rec = ts.do(t, patientID, http.MethodGet, "/beds", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDischargeOverHTTP(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, doctorID, http.MethodPost, "/admissions", CreateAdmissionRequest{
		PatientID: "pat-1", ChiefComplaint: "cough", ProvisionalDiagnosis: "pneumonia", BedID: &ts.beds[0].ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	adm := decode[AdmissionResponse](t, rec)
	base := "/admissions/" + adm.ID.String()

	rec = ts.do(t, nurseID, http.MethodPost, base+"/vitals", VitalsRequest{
		BodyTemperature: 38.1, Systolic: 120, Diastolic: 80, HeartRate: 90, Weight: 70, Height: 175,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, doctorID, http.MethodPost, base+"/diagnoses", DiagnosisRequest{Symptoms: "cough", Diagnosis: "Pneumonia"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, doctorID, http.MethodPost, base+"/discharge", DischargeRequest{Notes: "rest"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[DischargeResponse](t, rec)
	assert.Equal(t, "DISCHARGED", summary.Admission.Status)
	assert.Equal(t, []uuid.UUID{ts.beds[0].ID}, summary.ReleasedBeds)
	require.Len(t, summary.Clinical.Diagnoses, 1)

	rec = ts.do(t, doctorID, http.MethodPost, base+"/discharge", DischargeRequest{Notes: "again"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not_admitted", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, nurseID, http.MethodPost, base+"/vitals", VitalsRequest{
		BodyTemperature: 37, Systolic: 110, Diastolic: 70, HeartRate: 70, Weight: 70, Height: 175,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "admission_not_active", decode[ErrorResponse](t, rec).Error)
}

func TestNotificationsOverHTTP(t *testing.T) {
	ts := newTestServer(t, true)
	ts.book(t, "PHYSICAL", time.Now().Add(time.Hour))

	rec := ts.do(t, patientID, http.MethodGet, "/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[UnreadCountResponse](t, rec).Count)

	rec = ts.do(t, patientID, http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inbox := decode[[]NotificationResponse](t, rec)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Appointment Scheduled", inbox[0].Title)

	path := "/notifications/" + inbox[0].ID.String()
	rec = ts.do(t, doctorID, http.MethodPost, path+"/read", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, patientID, http.MethodPost, path+"/read", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, patientID, http.MethodGet, "/notifications/unread-count", nil)
	assert.Equal(t, 0, decode[UnreadCountResponse](t, rec).Count)

	rec = ts.do(t, patientID, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, patientID, http.MethodGet, "/notifications", nil)
	assert.Empty(t, decode[[]NotificationResponse](t, rec))
}

func TestSweepEndpoint(t *testing.T) {
	ts := newTestServer(t, true)
	ts.book(t, "VIDEO", time.Now().Add(-10*time.Minute))

	rec := ts.do(t, nurseID, http.MethodPost, "/sweeps/missed-consultations", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, auth.System, http.MethodPost, "/sweeps/missed-consultations", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[appointment.SweepResult](t, rec)
	assert.Equal(t, 1, res.DoctorMissed)
	assert.Equal(t, 0, res.PatientMissed)

	rec = ts.do(t, adminID, http.MethodPost, "/sweeps/missed-consultations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[appointment.SweepResult](t, rec).DoctorMissed)
}

func TestJWTAuthentication(t *testing.T) {
	ts := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Dev headers are ignored outside dev mode.
	rec = ts.do(t, adminID, http.MethodGet, "/notifications", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "pat-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Role:             "PATIENT",
	}).SignedString([]byte(testSigningKey))
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, decode[UnreadCountResponse](t, rec).Count)
}
