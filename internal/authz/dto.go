package authz

import "github.com/google/uuid"

// AuthorizeRequest asks whether a user may perform an action inside a
// tenant. UserID defaults to the caller's own identity when omitted.
type AuthorizeRequest struct {
	TenantID uuid.UUID `json:"tenant_id" validate:"required"`
	UserID   string    `json:"user_id" validate:"omitempty,max=255"`
	Service  string    `json:"service" validate:"required,max=100,excludesall=0x3A"`
	Entity   string    `json:"entity" validate:"required,max=100,excludesall=0x3A"`
	Action   string    `json:"action" validate:"required,max=100,excludesall=0x3A"`
}

// AuthorizeResponse is the resolver's verdict.
type AuthorizeResponse struct {
	Authorized bool `json:"authorized"`
}
