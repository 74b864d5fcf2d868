package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending           Status = "PENDING"
	StatusScheduled         Status = "SCHEDULED"
	StatusInProgress        Status = "IN_PROGRESS"
	StatusReadyForAdmission Status = "READY_FOR_ADMISSION"
	StatusCompleted         Status = "COMPLETED"
	StatusCancelled         Status = "CANCELLED"
	StatusMissed            Status = "MISSED"
)

type Mode string

const (
	ModeVideo    Mode = "VIDEO"
	ModePhysical Mode = "PHYSICAL"
)

// transitions is the only place user-initiated status moves are defined.
var transitions = map[Status][]Status{
	StatusPending:           {StatusScheduled, StatusCancelled},
	StatusScheduled:         {StatusInProgress, StatusCancelled, StatusMissed},
	StatusInProgress:        {StatusCompleted, StatusReadyForAdmission},
	StatusReadyForAdmission: {StatusCompleted},
	StatusMissed:            {StatusReadyForAdmission},
}

// systemTransitions are taken only by the missed-consultation sweep.
var systemTransitions = map[Status][]Status{
	StatusScheduled:  {StatusMissed},
	StatusInProgress: {StatusMissed},
}

func CanTransition(from, to Status) bool {
	return contains(transitions[from], to)
}

func canSystemTransition(from, to Status) bool {
	return contains(systemTransitions[from], to)
}

// AllowedTargets returns a copy of the user-initiated targets for from.
func AllowedTargets(from Status) []Status {
	return append([]Status(nil), transitions[from]...)
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0 && len(systemTransitions[s]) == 0
}

func ParseStatus(raw string) (Status, bool) {
	s := Status(raw)
	switch s {
	case StatusPending, StatusScheduled, StatusInProgress, StatusReadyForAdmission,
		StatusCompleted, StatusCancelled, StatusMissed:
		return s, true
	}
	return "", false
}

func ParseMode(raw string) (Mode, bool) {
	m := Mode(raw)
	switch m {
	case ModeVideo, ModePhysical:
		return m, true
	}
	return "", false
}

func contains(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID              uuid.UUID
	PatientID       string
	DoctorID        string
	ScheduledAt     time.Time
	DurationMinutes int
	Mode            Mode
	Status          Status
	RoomID          *string
	RoomToken       *string
	Note            *string
	Reason          *string // reason given with the last transition
	CreatedAt       time.Time
	LastUpdated     time.Time
}

// ActionURL is where notifications about the appointment point the user.
func (a Appointment) ActionURL() string {
	if a.Mode == ModeVideo && a.RoomID != nil {
		return "/meeting/" + *a.RoomID
	}
	return "/appointments/" + a.ID.String()
}

const DefaultDurationMinutes = 30

type BookInput struct {
	PatientID       string
	DoctorID        string
	ScheduledAt     time.Time
	DurationMinutes int
	Mode            Mode
	Note            *string
}

type StatusUpdate struct {
	ID        uuid.UUID
	From      Status
	To        Status
	RoomID    *string
	RoomToken *string
	Reason    *string
	At        time.Time
}

type ListFilter struct {
	PatientID string
	DoctorID  string
	Limit     int
	Offset    int
}
