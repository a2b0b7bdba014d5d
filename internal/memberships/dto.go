package memberships

import "github.com/google/uuid"

type AddMemberRequest struct {
	UserID string    `json:"user_id" validate:"required,max=255"`
	RoleID uuid.UUID `json:"role_id" validate:"required"`
}

type UpdateMemberRequest struct {
	RoleID *uuid.UUID `json:"role_id,omitempty"`
	Status *Status    `json:"status,omitempty" validate:"omitempty,oneof=pending active inactive"`
}

type ListMembersRequest struct {
	TenantID uuid.UUID `json:"tenant_id" validate:"required"`
	Limit    int       `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int       `json:"offset" validate:"gte=0"`
}
