// Package apperr holds the error taxonomy shared by the lifecycle engine, the
// allocation manager and the notification fan-out. Callers wrap these with
// fmt.Errorf("%w: ...") and match them with errors.Is.
package apperr

import "errors"

var (
	ErrInvalidTransition        = errors.New("invalid status transition")
	ErrForbidden                = errors.New("forbidden")
	ErrInvalidAppointmentMode   = errors.New("consultation can only be started for video appointments")
	ErrDuplicateActiveAdmission = errors.New("patient already has an active admission")
	ErrBedOccupied              = errors.New("selected bed is already occupied")
	ErrBedUnavailable           = errors.New("selected bed is not available")
	ErrAdmissionNotActive       = errors.New("admission is not active")
	ErrNotAdmitted              = errors.New("patient is not currently admitted")
	ErrNotFound                 = errors.New("not found")
	ErrTransientStore           = errors.New("temporary storage failure, please retry")
	ErrInvalidInput             = errors.New("invalid input")
	ErrUnauthenticated          = errors.New("unauthenticated")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidTransition, "invalid_transition"},
	{ErrForbidden, "forbidden"},
	{ErrInvalidAppointmentMode, "invalid_appointment_mode"},
	{ErrDuplicateActiveAdmission, "duplicate_active_admission"},
	{ErrBedOccupied, "bed_occupied"},
	{ErrBedUnavailable, "bed_unavailable"},
	{ErrAdmissionNotActive, "admission_not_active"},
	{ErrNotAdmitted, "not_admitted"},
	{ErrNotFound, "not_found"},
	{ErrTransientStore, "transient_store_error"},
	{ErrInvalidInput, "invalid_input"},
	{ErrUnauthenticated, "unauthenticated"},
}

// Code returns the stable machine-readable code for err, or "internal_error"
// when err is not part of the taxonomy.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal_error"
}
