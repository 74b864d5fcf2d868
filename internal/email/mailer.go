package email

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/clinical"
)

const timeLayout = "Mon, 02 Jan 2006 15:04 MST"

// Mailer renders the clinical emails and hands them to a Relay.
type Mailer struct {
	relay  Relay
	appURL string
}

func NewMailer(relay Relay, appURL string) *Mailer {
	return &Mailer{relay: relay, appURL: appURL}
}

type MissedCall struct {
	To              string
	RecipientName   string
	CounterpartName string
	Role            auth.Role // role of the recipient
	AppointmentID   uuid.UUID
	AppointmentTime time.Time
}

type ConsultationStarted struct {
	To          string
	PatientName string
	DoctorName  string
	RoomID      string
}

type Discharge struct {
	To          string
	PatientName string
	Notes       string
	Summary     clinical.Summary
}

func (m *Mailer) RescheduleURL(appointmentID uuid.UUID) string {
	return fmt.Sprintf("%s/appointments/reschedule/%s", m.appURL, appointmentID)
}

func (m *Mailer) MeetingURL(roomID string) string {
	return fmt.Sprintf("%s/meeting/%s", m.appURL, roomID)
}

func (m *Mailer) SendMissedCall(ctx context.Context, mc MissedCall) error {
	name, subject := "missed_doctor", "Missed Video Consultation"
	if mc.Role == auth.RolePatient {
		name, subject = "missed_patient", "You Missed Your Video Consultation"
	}

	html, err := render(name, map[string]any{
		"RecipientName":   mc.RecipientName,
		"CounterpartName": mc.CounterpartName,
		"When":            mc.AppointmentTime.UTC().Format(timeLayout),
		"RescheduleURL":   m.RescheduleURL(mc.AppointmentID),
	})
	if err != nil {
		return err
	}
	return m.relay.Send(ctx, Message{To: mc.To, Subject: subject, HTML: html})
}

func (m *Mailer) SendConsultationStarted(ctx context.Context, cs ConsultationStarted) error {
	html, err := render("consultation_started", map[string]any{
		"PatientName": cs.PatientName,
		"DoctorName":  cs.DoctorName,
		"MeetingURL":  m.MeetingURL(cs.RoomID),
	})
	if err != nil {
		return err
	}
	return m.relay.Send(ctx, Message{To: cs.To, Subject: "Your Video Consultation Has Started", HTML: html})
}

func (m *Mailer) SendDischargeSummary(ctx context.Context, d Discharge) error {
	html, err := render("discharge", d)
	if err != nil {
		return err
	}
	return m.relay.Send(ctx, Message{To: d.To, Subject: "Your Discharge Summary", HTML: html})
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", name, err)
	}
	return buf.String(), nil
}
