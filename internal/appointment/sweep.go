package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/email"
	"github.com/hackgods/clinical-encounters/internal/metrics"
	"github.com/hackgods/clinical-encounters/internal/notification"
	redisclient "github.com/hackgods/clinical-encounters/internal/redis"
)

const (
	sweepLockKey = "missed-consultation-sweep"

	// MissedTitle is the sentinel title that makes a missed transition
	// idempotent per appointment.
	MissedTitle = "Missed Video Consultation"
)

type SweepConfig struct {
	PatientMissedAfter time.Duration
	DoctorMissedAfter  time.Duration
}

type SweepResult struct {
	PatientMissed int  `json:"patient_missed"`
	DoctorMissed  int  `json:"doctor_missed"`
	Skipped       bool `json:"skipped,omitempty"`
}

type absentParty int

const (
	patientAbsent absentParty = iota
	doctorAbsent
)

func (p absentParty) String() string {
	if p == patientAbsent {
		return "patient"
	}
	return "doctor"
}

// Sweeper marks abandoned video consultations as MISSED. It is triggered from
// outside (HTTP or the missed-sweep command) and keeps no state between runs.
type Sweeper struct {
	svc    *Service
	repo   Repository
	locker redisclient.Locker
	cfg    SweepConfig
	log    zerolog.Logger
}

// NewSweeper builds a Sweeper. locker may be nil, in which case concurrent
// runs rely on the conditional status update alone.
func NewSweeper(svc *Service, repo Repository, locker redisclient.Locker, cfg SweepConfig, log zerolog.Logger) *Sweeper {
	if cfg.PatientMissedAfter <= 0 {
		cfg.PatientMissedAfter = 5 * time.Minute
	}
	if cfg.DoctorMissedAfter <= 0 {
		cfg.DoctorMissedAfter = 5 * time.Minute
	}
	return &Sweeper{
		svc:    svc,
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		log:    log.With().Str("component", "missed-sweep").Logger(),
	}
}

func (s *Sweeper) Run(ctx context.Context) (SweepResult, error) {
	start := time.Now()

	if s.locker == nil {
		res, err := s.run(ctx)
		s.finish(res, err, start)
		return res, err
	}

	var res SweepResult
	err := s.locker.WithLock(ctx, sweepLockKey, func(ctx context.Context) error {
		var err error
		res, err = s.run(ctx)
		return err
	})
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		s.log.Info().Msg("another sweep holds the run lock, skipping")
		metrics.RecordSweep("skipped", time.Since(start))
		return SweepResult{Skipped: true}, nil
	}
	s.finish(res, err, start)
	return res, err
}

func (s *Sweeper) finish(res SweepResult, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordSweep(outcome, time.Since(start))
	metrics.RecordMissed(patientAbsent.String(), res.PatientMissed)
	metrics.RecordMissed(doctorAbsent.String(), res.DoctorMissed)

	evt := s.log.Info()
	if err != nil {
		evt = s.log.Error().Err(err)
	}
	evt.Int("patient_missed", res.PatientMissed).
		Int("doctor_missed", res.DoctorMissed).
		Dur("took", time.Since(start)).
		Msg("missed consultation sweep finished")
}

func (s *Sweeper) run(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.svc.now().UTC()

	stale, err := s.repo.FindStaleInProgress(ctx, now.Add(-s.cfg.PatientMissedAfter))
	if err != nil {
		return res, fmt.Errorf("find stale consultations: %w", err)
	}
	overdue, err := s.repo.FindOverdueScheduled(ctx, now.Add(-s.cfg.DoctorMissedAfter))
	if err != nil {
		return res, fmt.Errorf("find overdue consultations: %w", err)
	}

	for _, a := range stale {
		if s.markOne(ctx, a, patientAbsent) {
			res.PatientMissed++
		}
	}
	for _, a := range overdue {
		if s.markOne(ctx, a, doctorAbsent) {
			res.DoctorMissed++
		}
	}
	return res, nil
}

// markOne reports whether this call moved a to MISSED. Failures are logged
// and do not stop the sweep.
func (s *Sweeper) markOne(ctx context.Context, a Appointment, absent absentParty) bool {
	logger := s.log.With().
		Str("appointment_id", a.ID.String()).
		Str("absent", absent.String()).
		Logger()

	var (
		marked  *Appointment
		patient string
		doctor  string
		pMail   *string
		dMail   *string
	)
	err := s.svc.tx.InTx(ctx, func(ctx context.Context) error {
		seen, err := s.svc.notifier.Exists(ctx, notification.IdempotencyKey{
			RelatedID: a.ID.String(),
			Type:      notification.TypeAppointment,
			Title:     MissedTitle,
		})
		if err != nil {
			return fmt.Errorf("check idempotency: %w", err)
		}
		if seen {
			return nil
		}

		marked, err = s.svc.MarkMissed(ctx, a.ID, a.Status)
		if err != nil {
			return err
		}

		patient, doctor = a.PatientID, a.DoctorID
		if p, err := s.svc.directory.GetPatient(ctx, a.PatientID); err == nil {
			patient = p.FullName()
			pMail = p.Email
		}
		if d, err := s.svc.directory.GetStaff(ctx, a.DoctorID); err == nil {
			doctor = d.Name
			dMail = d.Email
		}

		return s.notifyMissed(ctx, *marked, absent, patient, doctor)
	})
	switch {
	case isSkippable(err):
		logger.Debug().Msg("appointment moved on before the sweep reached it")
		return false
	case err != nil:
		logger.Error().Err(err).Msg("failed to mark consultation missed")
		return false
	case marked == nil:
		return false
	}

	logger.Info().Msg("consultation marked missed")

	s.sendMissedCall(ctx, logger, pMail, email.MissedCall{
		RecipientName:   patient,
		CounterpartName: doctor,
		Role:            auth.RolePatient,
		AppointmentID:   marked.ID,
		AppointmentTime: marked.ScheduledAt,
	})
	s.sendMissedCall(ctx, logger, dMail, email.MissedCall{
		RecipientName:   doctor,
		CounterpartName: patient,
		Role:            auth.RoleDoctor,
		AppointmentID:   marked.ID,
		AppointmentTime: marked.ScheduledAt,
	})
	return true
}

func (s *Sweeper) notifyMissed(ctx context.Context, a Appointment, absent absentParty, patientName, doctorName string) error {
	related := a.ID.String()
	action := a.ActionURL()
	when := a.ScheduledAt.Format(time.RFC1123)

	patientNote := notification.Notification{
		UserID:    a.PatientID,
		UserRole:  auth.RolePatient,
		Type:      notification.TypeAppointment,
		RelatedID: &related,
		ActionURL: &action,
	}
	doctorNote := notification.Notification{
		UserID:    a.DoctorID,
		UserRole:  auth.RoleDoctor,
		Type:      notification.TypeAppointment,
		RelatedID: &related,
		ActionURL: &action,
	}

	if absent == patientAbsent {
		patientNote.Title = MissedTitle
		patientNote.Message = fmt.Sprintf("You missed your video consultation with Dr. %s scheduled for %s. Please reschedule.", doctorName, when)
		patientNote.Priority = notification.PriorityHigh
		doctorNote.Title = "Patient Missed Consultation"
		doctorNote.Message = fmt.Sprintf("%s did not join the video consultation scheduled for %s.", patientName, when)
		doctorNote.Priority = notification.PriorityNormal
	} else {
		doctorNote.Title = MissedTitle
		doctorNote.Message = fmt.Sprintf("You missed the video consultation with %s scheduled for %s.", patientName, when)
		doctorNote.Priority = notification.PriorityHigh
		patientNote.Title = "Doctor Missed Consultation"
		patientNote.Message = fmt.Sprintf("Dr. %s could not join your video consultation scheduled for %s. Please reschedule.", doctorName, when)
		patientNote.Priority = notification.PriorityNormal
	}

	if _, err := s.svc.notifier.Notify(ctx, patientNote); err != nil {
		return fmt.Errorf("notify patient: %w", err)
	}
	if _, err := s.svc.notifier.Notify(ctx, doctorNote); err != nil {
		return fmt.Errorf("notify doctor: %w", err)
	}
	return nil
}

func (s *Sweeper) sendMissedCall(ctx context.Context, logger zerolog.Logger, to *string, mc email.MissedCall) {
	if to == nil || *to == "" {
		return
	}
	mc.To = *to
	if err := s.svc.mailer.SendMissedCall(ctx, mc); err != nil {
		logger.Warn().Err(err).Str("role", string(mc.Role)).Msg("missed call email failed")
	}
}
