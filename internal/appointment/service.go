package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinical-encounters/internal/apperr"
	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/db"
	"github.com/hackgods/clinical-encounters/internal/directory"
	"github.com/hackgods/clinical-encounters/internal/email"
	"github.com/hackgods/clinical-encounters/internal/media"
	"github.com/hackgods/clinical-encounters/internal/metrics"
	"github.com/hackgods/clinical-encounters/internal/notification"
)

type Notifier interface {
	Notify(ctx context.Context, n notification.Notification) (*notification.Notification, error)
	Exists(ctx context.Context, key notification.IdempotencyKey) (bool, error)
}

type Mailer interface {
	SendConsultationStarted(ctx context.Context, cs email.ConsultationStarted) error
	SendMissedCall(ctx context.Context, mc email.MissedCall) error
}

type Service struct {
	repo      Repository
	directory directory.Repository
	notifier  Notifier
	media     media.Provider
	mailer    Mailer
	tx        db.TxRunner
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(
	repo Repository,
	dir directory.Repository,
	notifier Notifier,
	provider media.Provider,
	mailer Mailer,
	tx db.TxRunner,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		directory: dir,
		notifier:  notifier,
		media:     provider,
		mailer:    mailer,
		tx:        tx,
		log:       log.With().Str("component", "appointment").Logger(),
		now:       time.Now,
	}
}

// Book creates a SCHEDULED appointment and tells both parties in the same
// transaction.
func (s *Service) Book(ctx context.Context, actor auth.Identity, in BookInput) (*Appointment, error) {
	switch actor.Role {
	case auth.RoleAdmin:
	case auth.RolePatient:
		if in.PatientID == "" {
			in.PatientID = actor.UserID
		}
		if in.PatientID != actor.UserID {
			return nil, fmt.Errorf("%w: patients can only book for themselves", apperr.ErrForbidden)
		}
	case auth.RoleDoctor:
		if in.DoctorID == "" {
			in.DoctorID = actor.UserID
		}
		if in.DoctorID != actor.UserID {
			return nil, fmt.Errorf("%w: doctors can only book into their own schedule", apperr.ErrForbidden)
		}
	default:
		return nil, fmt.Errorf("%w: role %s cannot book appointments", apperr.ErrForbidden, actor.Role)
	}

	if in.PatientID == "" || in.DoctorID == "" {
		return nil, fmt.Errorf("%w: patient and doctor are required", apperr.ErrInvalidInput)
	}
	if in.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("%w: scheduled time is required", apperr.ErrInvalidInput)
	}
	if _, ok := ParseMode(string(in.Mode)); !ok {
		return nil, fmt.Errorf("%w: mode must be VIDEO or PHYSICAL", apperr.ErrInvalidInput)
	}
	if in.DurationMinutes == 0 {
		in.DurationMinutes = DefaultDurationMinutes
	}
	if in.DurationMinutes < 0 {
		return nil, fmt.Errorf("%w: duration must be positive", apperr.ErrInvalidInput)
	}

	var booked Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		patient, err := s.directory.GetPatient(ctx, in.PatientID)
		if err != nil {
			return err
		}
		doctor, err := s.directory.GetStaff(ctx, in.DoctorID)
		if err != nil {
			return err
		}
		if doctor.Role != auth.RoleDoctor || !doctor.IsActive() {
			return fmt.Errorf("%w: no active doctor %s", apperr.ErrNotFound, in.DoctorID)
		}

		now := s.now().UTC()
		a := Appointment{
			ID:              uuid.New(),
			PatientID:       in.PatientID,
			DoctorID:        in.DoctorID,
			ScheduledAt:     in.ScheduledAt.UTC(),
			DurationMinutes: in.DurationMinutes,
			Mode:            in.Mode,
			Status:          StatusScheduled,
			Note:            in.Note,
			CreatedAt:       now,
			LastUpdated:     now,
		}
		if a.Mode == ModeVideo {
			roomID, err := newRoomID()
			if err != nil {
				return fmt.Errorf("generate room id: %w", err)
			}
			a.RoomID = &roomID
		}

		if err := s.repo.Insert(ctx, a); err != nil {
			return err
		}

		when := a.ScheduledAt.Format(time.RFC1123)
		if err := s.notifyBoth(ctx, a,
			"Appointment Scheduled", fmt.Sprintf("Your appointment with Dr. %s is scheduled for %s.", doctor.Name, when),
			"Appointment Scheduled", fmt.Sprintf("New appointment with %s on %s.", patient.FullName(), when),
		); err != nil {
			return err
		}

		booked = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", booked.ID.String()).
		Str("mode", string(booked.Mode)).
		Time("scheduled_at", booked.ScheduledAt).
		Msg("appointment booked")
	return &booked, nil
}

// Transition moves an appointment along the user-initiated graph. Only the
// assigned doctor or an administrator may do so.
func (s *Service) Transition(ctx context.Context, actor auth.Identity, id uuid.UUID, target Status, reason string) (*Appointment, error) {
	var (
		updated     *Appointment
		from        Status
		patientName string
		doctorName  string
		patientMail *string
	)

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		from = a.Status

		if !actor.IsAdmin() && !(actor.Role == auth.RoleDoctor && actor.UserID == a.DoctorID) {
			return fmt.Errorf("%w: only the assigned doctor or an administrator can change this appointment", apperr.ErrForbidden)
		}
		if !CanTransition(a.Status, target) {
			return invalidTransition(a.Status, target)
		}
		if a.Status == StatusScheduled && target == StatusInProgress && a.Mode != ModeVideo {
			return apperr.ErrInvalidAppointmentMode
		}

		u := StatusUpdate{ID: a.ID, From: a.Status, To: target, At: s.now().UTC()}
		if reason != "" {
			u.Reason = &reason
		}

		if target == StatusInProgress && a.Mode == ModeVideo {
			if a.RoomID == nil {
				roomID, err := newRoomID()
				if err != nil {
					return fmt.Errorf("generate room id: %w", err)
				}
				a.RoomID = &roomID
			}
			// Providers key rooms by id, so a commit lost after this call leaves a room that the retry reuses.
			token, err := s.media.CreateOrGetRoom(ctx, *a.RoomID, actor.UserID)
			if err != nil {
				return fmt.Errorf("create consultation room: %w", err)
			}
			u.RoomID = a.RoomID
			u.RoomToken = &token
		}

		updated, err = s.repo.UpdateStatus(ctx, u)
		if err != nil {
			return err
		}

		patientName, doctorName = a.PatientID, a.DoctorID
		if p, err := s.directory.GetPatient(ctx, a.PatientID); err == nil {
			patientName = p.FirstName
			patientMail = p.Email
		}
		if d, err := s.directory.GetStaff(ctx, a.DoctorID); err == nil {
			doctorName = d.Name
		}

		return s.notifyBoth(ctx, *updated,
			"Appointment Update", fmt.Sprintf("Your appointment status is now %s", target),
			"Appointment Status Updated", fmt.Sprintf("Appointment with %s is now %s", patientName, target),
		)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(string(from), string(target))
	s.log.Info().
		Str("appointment_id", id.String()).
		Str("from", string(from)).
		Str("to", string(target)).
		Str("actor", actor.UserID).
		Msg("appointment transitioned")

	if target == StatusInProgress && updated.Mode == ModeVideo && updated.RoomID != nil && patientMail != nil && *patientMail != "" {
		err := s.mailer.SendConsultationStarted(ctx, email.ConsultationStarted{
			To:          *patientMail,
			PatientName: patientName,
			DoctorName:  doctorName,
			RoomID:      *updated.RoomID,
		})
		if err != nil {
			s.log.Error().Err(err).Str("appointment_id", id.String()).Msg("failed to send consultation started email")
		}
	}

	return updated, nil
}

// invalidTransition names the legal next states so callers can offer them.
func invalidTransition(from, to Status) error {
	if from.Terminal() {
		return fmt.Errorf("%w: %s is final", apperr.ErrInvalidTransition, from)
	}
	allowed := AllowedTargets(from)
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	return fmt.Errorf("%w: %s to %s, allowed: %s", apperr.ErrInvalidTransition, from, to, strings.Join(names, ", "))
}

// MarkMissed moves id from `from` to MISSED without an actor check. It is the
// sweep's path into the state machine and joins the caller's transaction.
func (s *Service) MarkMissed(ctx context.Context, id uuid.UUID, from Status) (*Appointment, error) {
	if !canSystemTransition(from, StatusMissed) {
		return nil, fmt.Errorf("%w: %s to %s", apperr.ErrInvalidTransition, from, StatusMissed)
	}

	var updated *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.repo.UpdateStatus(ctx, StatusUpdate{
			ID:   id,
			From: from,
			To:   StatusMissed,
			At:   s.now().UTC(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordTransition(string(from), string(StatusMissed))
	return updated, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Identity, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, a) {
		return nil, fmt.Errorf("%w: appointment belongs to someone else", apperr.ErrForbidden)
	}
	return a, nil
}

// ListForUser lists the actor's own appointments; administrators and nurses
// see all of them.
func (s *Service) ListForUser(ctx context.Context, actor auth.Identity, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	f := ListFilter{Limit: limit, Offset: offset}
	switch actor.Role {
	case auth.RolePatient:
		f.PatientID = actor.UserID
	case auth.RoleDoctor:
		f.DoctorID = actor.UserID
	case auth.RoleAdmin, auth.RoleNurse:
	default:
		return nil, fmt.Errorf("%w: role %s cannot list appointments", apperr.ErrForbidden, actor.Role)
	}

	appointments, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}

func canView(actor auth.Identity, a *Appointment) bool {
	switch actor.Role {
	case auth.RoleAdmin, auth.RoleNurse:
		return true
	case auth.RoleDoctor:
		return actor.UserID == a.DoctorID
	case auth.RolePatient:
		return actor.UserID == a.PatientID
	}
	return false
}

func (s *Service) notifyBoth(ctx context.Context, a Appointment, patientTitle, patientMsg, doctorTitle, doctorMsg string) error {
	related := a.ID.String()
	action := a.ActionURL()

	if _, err := s.notifier.Notify(ctx, notification.Notification{
		UserID:    a.PatientID,
		UserRole:  auth.RolePatient,
		Title:     patientTitle,
		Message:   patientMsg,
		Type:      notification.TypeAppointment,
		Priority:  notification.PriorityNormal,
		RelatedID: &related,
		ActionURL: &action,
	}); err != nil {
		return fmt.Errorf("notify patient: %w", err)
	}

	if _, err := s.notifier.Notify(ctx, notification.Notification{
		UserID:    a.DoctorID,
		UserRole:  auth.RoleDoctor,
		Title:     doctorTitle,
		Message:   doctorMsg,
		Type:      notification.TypeAppointment,
		Priority:  notification.PriorityNormal,
		RelatedID: &related,
		ActionURL: &action,
	}); err != nil {
		return fmt.Errorf("notify doctor: %w", err)
	}
	return nil
}

func isSkippable(err error) bool {
	return errors.Is(err, apperr.ErrInvalidTransition)
}

// WithClock replaces the time source. Used by the sweep tests and the
// simulator.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
