package domain

import (
	"strings"
	"time"
)

type ManagerID int64

type Role string

const (
	RoleNone    Role = ""
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
	RoleOwner   Role = "owner"
)

type Capability string

const (
	CapabilityIssue    Capability = "issue"
	CapabilityEvaluate Capability = "evaluate"
	CapabilityIngest   Capability = "ingest"
	CapabilityReport   Capability = "report"
	CapabilityImport   Capability = "import"
	CapabilitySweep    Capability = "sweep"
)

var roleCapabilities = map[Role][]Capability{
	RoleManager: {CapabilityIssue, CapabilityEvaluate},
	RoleAdmin:   {CapabilityIssue, CapabilityEvaluate, CapabilityIngest, CapabilityReport},
	RoleOwner:   {CapabilityIssue, CapabilityEvaluate, CapabilityIngest, CapabilityReport, CapabilityImport, CapabilitySweep},
}

func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := roleCapabilities[role]
	return role, ok
}

func (r Role) Can(capability Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == capability {
			return true
		}
	}
	return false
}

type Manager struct {
	ID        ManagerID
	Name      string
	Role      Role
	CreatedAt time.Time
}

// Actor is the resolved identity every engine call runs as.
type Actor struct {
	ID   ManagerID
	Role Role
}

func (a Actor) Require(capability Capability) error {
	if a.Role.Can(capability) {
		return nil
	}
	if a.Role == RoleNone {
		return Reject(ErrForbidden, "you are not registered as a manager")
	}
	return Reject(ErrForbidden, "%s role cannot %s", a.Role, capability)
}
