package roles

import "github.com/google/uuid"

type CreateRoleRequest struct {
	Name        string     `json:"name" validate:"required,min=2,max=100"`
	Type        string     `json:"type" validate:"required,oneof=tenant platform"`
	Description string     `json:"description" validate:"omitempty,max=500"`
	TenantID    *uuid.UUID `json:"tenant_id"`
}

type UpdateRoleRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

type AssignPoliciesRequest struct {
	PolicyIDs []uuid.UUID `json:"policy_ids" validate:"required,min=1"`
}
