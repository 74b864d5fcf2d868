package admission

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
	"github.com/hackgods/clinical-encounters/internal/clinical"
	"github.com/hackgods/clinical-encounters/internal/db"
	"github.com/hackgods/clinical-encounters/internal/directory"
	"github.com/hackgods/clinical-encounters/internal/email"
	"github.com/hackgods/clinical-encounters/internal/metrics"
	"github.com/hackgods/clinical-encounters/internal/notification"
)

type Notifier interface {
	Notify(ctx context.Context, n notification.Notification) (*notification.Notification, error)
}

type DischargeMailer interface {
	SendDischargeSummary(ctx context.Context, d email.Discharge) error
}

var (
	admitting   = []auth.Role{auth.RoleDoctor, auth.RoleAdmin}
	bedManaging = []auth.Role{auth.RoleNurse, auth.RoleDoctor, auth.RoleAdmin}
	viewing     = []auth.Role{auth.RoleNurse, auth.RoleDoctor, auth.RoleAdmin, auth.RoleLabTechnician}

	// Staff told about every discharge.
	dischargeAudience = []auth.Role{auth.RoleNurse, auth.RoleAdmin}
)

type Service struct {
	repo      Repository
	clinical  clinical.Repository
	directory directory.Repository
	notifier  Notifier
	mailer    DischargeMailer
	tx        db.TxRunner
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(
	repo Repository,
	clinicalRepo clinical.Repository,
	dir directory.Repository,
	notifier Notifier,
	mailer DischargeMailer,
	tx db.TxRunner,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		clinical:  clinicalRepo,
		directory: dir,
		notifier:  notifier,
		mailer:    mailer,
		tx:        tx,
		log:       log.With().Str("component", "admission").Logger(),
		now:       time.Now,
	}
}

// CreateAdmission admits a patient and, when a bed is requested, allocates it.
// The admission and the allocation commit together or not at all.
func (s *Service) CreateAdmission(ctx context.Context, actor auth.Identity, in CreateInput) (*Created, error) {
	if !actor.HasRole(admitting...) {
		return nil, fmt.Errorf("%w: only doctors and administrators admit patients", apperr.ErrForbidden)
	}
	if in.AdmittingDoctorID == "" && actor.Role == auth.RoleDoctor {
		in.AdmittingDoctorID = actor.UserID
	}
	if in.PatientID == "" || in.AdmittingDoctorID == "" {
		return nil, fmt.Errorf("%w: patient and admitting doctor are required", apperr.ErrInvalidInput)
	}
	if strings.TrimSpace(in.ChiefComplaint) == "" || strings.TrimSpace(in.ProvisionalDiagnosis) == "" {
		return nil, fmt.Errorf("%w: chief complaint and provisional diagnosis are required", apperr.ErrInvalidInput)
	}

	var created Created
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.directory.GetPatient(ctx, in.PatientID); err != nil {
			return err
		}

		existing, err := s.repo.FindActiveByPatient(ctx, in.PatientID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("check active admission: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("%w: admission %s", apperr.ErrDuplicateActiveAdmission, existing.ID)
		}

		a := Admission{
			ID:                   uuid.New(),
			PatientID:            in.PatientID,
			AdmittingDoctorID:    in.AdmittingDoctorID,
			ChiefComplaint:       in.ChiefComplaint,
			ProvisionalDiagnosis: in.ProvisionalDiagnosis,
			InitialTherapyPlan:   in.InitialTherapyPlan,
			ReferralDoctor:       in.ReferralDoctor,
			Status:               StatusActive,
			AdmittedAt:           s.now().UTC(),
		}
		if err := s.repo.Insert(ctx, a); err != nil {
			return err
		}
		created.Admission = a

		if in.BedID != nil {
			if err := s.checkBedFree(ctx, *in.BedID); err != nil {
				return err
			}
			alloc, err := s.allocate(ctx, a.ID, *in.BedID)
			if err != nil {
				return err
			}
			created.Allocation = alloc
		}

		_, err = s.notifier.Notify(ctx, notification.Notification{
			UserID:    a.PatientID,
			UserRole:  auth.RolePatient,
			Title:     "Admitted",
			Message:   fmt.Sprintf("You have been admitted: %s.", a.ChiefComplaint),
			Type:      notification.TypeAdmission,
			Priority:  notification.PriorityNormal,
			RelatedID: ptr(a.ID.String()),
			ActionURL: ptr("/admissions/" + a.ID.String()),
		})
		return err
	})
	if err != nil {
		err = s.explainConflict(ctx, err, in.PatientID, in.BedID)
		s.recordConflict(err)
		return nil, err
	}

	s.log.Info().
		Str("admission_id", created.Admission.ID.String()).
		Str("patient_id", created.Admission.PatientID).
		Bool("with_bed", created.Allocation != nil).
		Msg("patient admitted")
	return &created, nil
}

// AssignBed moves an admission to bedID. The target bed is checked before
// anything is released, so a rejected request leaves the current bed held.
func (s *Service) AssignBed(ctx context.Context, actor auth.Identity, admissionID, bedID uuid.UUID) (*BedAllocation, error) {
	if !actor.HasRole(bedManaging...) {
		return nil, fmt.Errorf("%w: only clinical staff assign beds", apperr.ErrForbidden)
	}

	var alloc *BedAllocation
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.checkBedFree(ctx, bedID); err != nil {
			return err
		}

		a, err := s.repo.GetByID(ctx, admissionID)
		if err != nil {
			return err
		}
		if a.Status != StatusActive {
			return fmt.Errorf("%w: admission %s is %s", apperr.ErrAdmissionNotActive, a.ID, a.Status)
		}

		if _, err := s.repo.ReleaseOpenAllocations(ctx, admissionID, s.now().UTC()); err != nil {
			return err
		}

		alloc, err = s.allocate(ctx, admissionID, bedID)
		return err
	})
	if err != nil {
		err = s.explainConflict(ctx, err, "", &bedID)
		s.recordConflict(err)
		return nil, err
	}

	s.log.Info().Str("admission_id", admissionID.String()).Str("bed_id", bedID.String()).Msg("bed assigned")
	return alloc, nil
}

// Discharge closes an ACTIVE admission, frees its beds and tells nursing and
// administrative staff. The patient email goes out after commit and its
// failure does not undo the discharge.
func (s *Service) Discharge(ctx context.Context, actor auth.Identity, admissionID uuid.UUID, notes string) (*DischargeSummary, error) {
	if !actor.HasRole(admitting...) {
		return nil, fmt.Errorf("%w: only doctors and administrators discharge patients", apperr.ErrForbidden)
	}

	var (
		summary      DischargeSummary
		patientEmail *string
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetByID(ctx, admissionID)
		if err != nil {
			return err
		}
		if a.Status != StatusActive {
			return fmt.Errorf("%w: admission %s is %s", apperr.ErrNotAdmitted, a.ID, a.Status)
		}

		now := s.now().UTC()
		var notesPtr *string
		if strings.TrimSpace(notes) != "" {
			notesPtr = &notes
		}
		discharged, err := s.repo.MarkDischarged(ctx, admissionID, actor.UserID, notesPtr, now)
		if err != nil {
			return err
		}
		summary.Admission = *discharged

		released, err := s.repo.ReleaseOpenAllocations(ctx, admissionID, now)
		if err != nil {
			return err
		}
		for _, r := range released {
			summary.ReleasedBeds = append(summary.ReleasedBeds, r.BedID)
		}

		record, err := clinical.BuildSummary(ctx, s.clinical, admissionID)
		if err != nil {
			return fmt.Errorf("build discharge summary: %w", err)
		}
		summary.Clinical = *record

		summary.PatientName = a.PatientID
		if p, err := s.directory.GetPatient(ctx, a.PatientID); err == nil {
			summary.PatientName = p.FullName()
			patientEmail = p.Email
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		staff, err := s.directory.ListActiveStaff(ctx, dischargeAudience...)
		if err != nil {
			return err
		}
		seen := make(map[string]bool, len(staff))
		for _, member := range staff {
			if seen[member.ID] {
				continue
			}
			seen[member.ID] = true
			_, err := s.notifier.Notify(ctx, notification.Notification{
				UserID:    member.ID,
				UserRole:  member.Role,
				Title:     "Patient Discharged",
				Message:   fmt.Sprintf("%s has been discharged.", summary.PatientName),
				Type:      notification.TypeAdmission,
				Priority:  notification.PriorityNormal,
				RelatedID: ptr(admissionID.String()),
				ActionURL: ptr("/admissions/" + admissionID.String()),
			})
			if err != nil {
				return err
			}
		}
		summary.NotifiedStaff = len(seen)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("admission_id", admissionID.String()).
		Int("released_beds", len(summary.ReleasedBeds)).
		Int("notified_staff", summary.NotifiedStaff).
		Msg("patient discharged")

	if patientEmail != nil && *patientEmail != "" {
		err := s.mailer.SendDischargeSummary(ctx, email.Discharge{
			To:          *patientEmail,
			PatientName: summary.PatientName,
			Notes:       notes,
			Summary:     summary.Clinical,
		})
		if err != nil {
			s.log.Error().Err(err).Str("admission_id", admissionID.String()).Msg("failed to send discharge email")
		}
	}

	return &summary, nil
}

// ActivePatient returns the patient of an ACTIVE admission.
func (s *Service) ActivePatient(ctx context.Context, admissionID uuid.UUID) (string, error) {
	a, err := s.repo.GetByID(ctx, admissionID)
	if err != nil {
		return "", err
	}
	if a.Status != StatusActive {
		return "", fmt.Errorf("%w: admission %s is %s", apperr.ErrAdmissionNotActive, a.ID, a.Status)
	}
	return a.PatientID, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Identity, id uuid.UUID) (*Detail, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.HasRole(viewing...) && !(actor.Role == auth.RolePatient && actor.UserID == a.PatientID) {
		return nil, fmt.Errorf("%w: admission belongs to another patient", apperr.ErrForbidden)
	}

	d := &Detail{Admission: *a}
	alloc, err := s.repo.OpenAllocationForAdmission(ctx, id)
	switch {
	case err == nil:
		d.CurrentBed = alloc
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}
	return d, nil
}

func (s *Service) ListActive(ctx context.Context, actor auth.Identity) ([]Admission, error) {
	if !actor.HasRole(viewing...) {
		return nil, fmt.Errorf("%w: staff only", apperr.ErrForbidden)
	}
	return s.repo.ListActive(ctx)
}

func (s *Service) ListBeds(ctx context.Context, actor auth.Identity, unitID *uuid.UUID) ([]BedOccupancy, error) {
	if !actor.HasRole(viewing...) {
		return nil, fmt.Errorf("%w: staff only", apperr.ErrForbidden)
	}
	return s.repo.ListBeds(ctx, unitID)
}

func (s *Service) checkBedFree(ctx context.Context, bedID uuid.UUID) error {
	bed, err := s.repo.GetBed(ctx, bedID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("%w: bed %s does not exist", apperr.ErrBedUnavailable, bedID)
		}
		return err
	}
	if !bed.IsActive {
		return fmt.Errorf("%w: bed %s is out of service", apperr.ErrBedUnavailable, bedID)
	}

	open, err := s.repo.OpenAllocationForBed(ctx, bedID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("check bed allocation: %w", err)
	}
	if open != nil {
		return apperr.ErrBedOccupied
	}
	return nil
}

func (s *Service) allocate(ctx context.Context, admissionID, bedID uuid.UUID) (*BedAllocation, error) {
	alloc := BedAllocation{
		ID:          uuid.New(),
		AdmissionID: admissionID,
		BedID:       bedID,
		AssignedAt:  s.now().UTC(),
	}
	if err := s.repo.InsertAllocation(ctx, alloc); err != nil {
		return nil, err
	}
	return &alloc, nil
}

// explainConflict turns a serialization failure into the domain error the
// committed winner caused. It only reads; when nothing conflicting is visible
// the transient error is returned unchanged.
func (s *Service) explainConflict(ctx context.Context, err error, patientID string, bedID *uuid.UUID) error {
	if !errors.Is(err, apperr.ErrTransientStore) {
		return err
	}
	if patientID != "" {
		if active, rerr := s.repo.FindActiveByPatient(ctx, patientID); rerr == nil && active != nil {
			return fmt.Errorf("%w: admission %s", apperr.ErrDuplicateActiveAdmission, active.ID)
		}
	}
	if bedID != nil {
		if open, rerr := s.repo.OpenAllocationForBed(ctx, *bedID); rerr == nil && open != nil {
			return fmt.Errorf("%w: bed %s", apperr.ErrBedOccupied, *bedID)
		}
	}
	return err
}

func (s *Service) recordConflict(err error) {
	for _, target := range []error{apperr.ErrDuplicateActiveAdmission, apperr.ErrBedOccupied, apperr.ErrBedUnavailable} {
		if errors.Is(err, target) {
			metrics.RecordAllocationConflict(apperr.Code(target))
			return
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
