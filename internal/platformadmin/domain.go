package platformadmin

import (
	"time"

	"github.com/google/uuid"
)

// Admin marks a user identity as exempt from all tenant-scoped authorization
// checks. The set is flat and independent of any tenant.
type Admin struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateAdminRequest struct {
	UserID string `json:"user_id" validate:"required,max=255"`
}
