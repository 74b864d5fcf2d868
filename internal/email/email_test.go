package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/clinical"
)

type mockRelay struct {
	mock.Mock
}

func (m *mockRelay) Send(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type memLogStore struct {
	logs []Log
}

func (s *memLogStore) InsertEmailLog(_ context.Context, l Log) error {
	s.logs = append(s.logs, l)
	return nil
}

func TestMailer_MissedCallPerRole(t *testing.T) {
	relay := &mockRelay{}
	var sent []Message
	relay.On("Send", mock.Anything, mock.AnythingOfType("email.Message")).
		Run(func(args mock.Arguments) { sent = append(sent, args.Get(1).(Message)) }).
		Return(nil)

	m := NewMailer(relay, "https://clinic.example")
	id := uuid.MustParse("7a4c54f1-4f9a-4f55-9a4e-2f4c7f3bde10")
	at := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	require.NoError(t, m.SendMissedCall(context.Background(), MissedCall{
		To: "pat@example.com", RecipientName: "Ada", CounterpartName: "Lee",
		Role: auth.RolePatient, AppointmentID: id, AppointmentTime: at,
	}))
	require.NoError(t, m.SendMissedCall(context.Background(), MissedCall{
		To: "doc@example.com", RecipientName: "Lee", CounterpartName: "Ada",
		Role: auth.RoleDoctor, AppointmentID: id, AppointmentTime: at,
	}))

	require.Len(t, sent, 2)
	assert.Equal(t, "You Missed Your Video Consultation", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "Dr. Lee")
	assert.Contains(t, sent[0].HTML, "https://clinic.example/appointments/reschedule/"+id.String())
	assert.Equal(t, "Missed Video Consultation", sent[1].Subject)
	assert.Contains(t, sent[1].HTML, "Dear Dr. Lee")
	relay.AssertNumberOfCalls(t, "Send", 2)
}

func TestMailer_EscapesUserContent(t *testing.T) {
	relay := &mockRelay{}
	relay.On("Send", mock.Anything, mock.Anything).Return(nil)

	m := NewMailer(relay, "https://clinic.example")
	require.NoError(t, m.SendConsultationStarted(context.Background(), ConsultationStarted{
		To: "p@example.com", PatientName: "<script>x</script>", DoctorName: "Lee", RoomID: "ROOM-ABC123DEF456",
	}))

	msg := relay.Calls[0].Arguments.Get(1).(Message)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "https://clinic.example/meeting/ROOM-ABC123DEF456")
}

func TestMailer_DischargeSummary(t *testing.T) {
	relay := &mockRelay{}
	relay.On("Send", mock.Anything, mock.Anything).Return(nil)

	rr := 18
	note := "stable"
	summary := clinical.Summary{
		Vitals: []clinical.VitalSigns{
			{BodyTemperature: 37.2, Systolic: 120, Diastolic: 80, HeartRate: 72, RespiratoryRate: &rr, Weight: 70, Height: 175},
		},
		Diagnoses: []clinical.Diagnosis{{Diagnosis: "Pneumonia", Notes: &note}},
		Prescriptions: []clinical.Prescription{{
			Diagnosis: "Pneumonia",
			Medications: []clinical.Medication{{
				Name: "Amoxicillin", Dosage: "500mg", Frequency: "TID",
				Administrations: []clinical.Administration{{}, {}},
			}},
		}},
	}

	m := NewMailer(relay, "https://clinic.example")
	require.NoError(t, m.SendDischargeSummary(context.Background(), Discharge{
		To: "p@example.com", PatientName: "Ada Obi", Notes: "Rest for a week", Summary: summary,
	}))

	msg := relay.Calls[0].Arguments.Get(1).(Message)
	assert.Equal(t, "Your Discharge Summary", msg.Subject)
	assert.Contains(t, msg.HTML, "Pneumonia - stable")
	assert.Contains(t, msg.HTML, "Amoxicillin - 500mg (TID) - Administered: 2 times")
	assert.Contains(t, msg.HTML, "<td>18</td>")
	assert.Contains(t, msg.HTML, "Rest for a week")
}

func TestLoggedRelay_RecordsOutcome(t *testing.T) {
	relay := &mockRelay{}
	relay.On("Send", mock.Anything, Message{To: "ok@example.com"}).Return(nil).Once()
	relay.On("Send", mock.Anything, Message{To: "bad@example.com"}).Return(errors.New("smtp down")).Once()

	store := &memLogStore{}
	logged := NewLoggedRelay(relay, store, zerolog.Nop())

	require.NoError(t, logged.Send(context.Background(), Message{To: "ok@example.com"}))
	err := logged.Send(context.Background(), Message{To: "bad@example.com"})
	require.EqualError(t, err, "smtp down")

	require.Len(t, store.logs, 2)
	assert.Equal(t, StatusSent, store.logs[0].Status)
	assert.Nil(t, store.logs[0].Error)
	assert.Equal(t, StatusFailed, store.logs[1].Status)
	require.NotNil(t, store.logs[1].Error)
	assert.Equal(t, "smtp down", *store.logs[1].Error)
	relay.AssertExpectations(t)
}
