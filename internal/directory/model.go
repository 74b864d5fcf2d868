package directory

import (
	"strings"
	"time"

	"github.com/hackgods/clinical-encounters/internal/auth"
)

type StaffStatus string

const (
	StaffActive   StaffStatus = "ACTIVE"
	StaffInactive StaffStatus = "INACTIVE"
)

type Patient struct {
	ID        string
	FirstName string
	LastName  string
	Email     *string
	CreatedAt time.Time
}

func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Staff struct {
	ID        string
	Name      string
	Email     *string
	Role      auth.Role
	Status    StaffStatus
	CreatedAt time.Time
}

func (s Staff) IsActive() bool {
	return s.Status == StaffActive
}
