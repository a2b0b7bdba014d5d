package permissions

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// KeySeparator joins the three key components into the canonical
// service:entity:action form. None of the components may contain it.
const KeySeparator = ":"

// Permission is an atomic access right identified by the globally unique
// (service, entity, action) key.
type Permission struct {
	ID          uuid.UUID `json:"id"`
	Service     string    `json:"service"`
	Entity      string    `json:"entity"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Key returns the permission's canonical key.
func (p Permission) Key() Key {
	return Key{Service: p.Service, Entity: p.Entity, Action: p.Action}
}

// Key identifies a permission independent of its row identity.
type Key struct {
	Service string `json:"service"`
	Entity  string `json:"entity"`
	Action  string `json:"action"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s%s%s%s%s", k.Service, KeySeparator, k.Entity, KeySeparator, k.Action)
}
