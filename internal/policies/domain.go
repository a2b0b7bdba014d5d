package policies

import (
	"time"

	"github.com/google/uuid"
)

// Policy is a named, reusable group of permissions. A nil TenantID marks a
// system-level policy shared across tenants.
type Policy struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	TenantID    *uuid.UUID `json:"tenant_id"`
	IsSystem    bool       `json:"is_system"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
