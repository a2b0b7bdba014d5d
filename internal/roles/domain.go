package roles

import (
	"time"

	"github.com/google/uuid"
)

// RoleType distinguishes tenant-assignable roles from platform tooling roles.
type RoleType string

const (
	// RoleTypeTenant roles are what a tenant membership holds.
	RoleTypeTenant RoleType = "tenant"
	// RoleTypePlatform roles are usable only outside tenant scope.
	RoleTypePlatform RoleType = "platform"
)

// Role is a named, assignable group of policies. A nil TenantID marks a
// system-level role shared across tenants.
type Role struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Type        RoleType   `json:"type"`
	Description string     `json:"description"`
	TenantID    *uuid.UUID `json:"tenant_id"`
	IsSystem    bool       `json:"is_system"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
