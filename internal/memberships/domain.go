package memberships

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a tenant membership. Only active members
// pass authorization checks.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is a known membership status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusInactive:
		return true
	}
	return false
}

// Membership binds a user to a tenant with exactly one role. At most one
// membership row exists per (tenant, user) pair.
type Membership struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	RoleID    uuid.UUID `json:"role_id"`
	Status    Status    `json:"status"`
	InvitedBy *string   `json:"invited_by,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
