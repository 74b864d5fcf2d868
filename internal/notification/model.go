package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinical-encounters/internal/auth"
)

type Type string

const (
	TypeAppointment Type = "appointment"
	TypeAdmission   Type = "admission"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Notification struct {
	ID        uuid.UUID
	UserID    string
	UserRole  auth.Role
	Title     string
	Message   string
	Type      Type
	Priority  Priority
	RelatedID *string
	ActionURL *string
	IsRead    bool
	CreatedAt time.Time
}

// IdempotencyKey identifies a notification that must be emitted at most once
// for a related record.
type IdempotencyKey struct {
	RelatedID string
	Type      Type
	Title     string
}

type InboxOptions struct {
	Limit      int
	UnreadOnly bool
}

const DefaultInboxLimit = 50
