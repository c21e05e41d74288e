package model

import (
	"fmt"
	"time"
)

// GuestStatus tracks whether a temporary guest record is still live.
type GuestStatus string

const (
	GuestActive  GuestStatus = "ACTIVE"
	GuestRetired GuestStatus = "RETIRED"
)

// TempGuest is an on-site, unauthenticated walk-in.  It is linked into a
// registered session only through migration and is retired, never
// deleted, so the conversion stays auditable.
type TempGuest struct {
	ID         string      `cbor:"id" json:"id"`
	Name       string      `cbor:"name" json:"name"`
	Gender     Gender      `cbor:"gender" json:"gender"`
	SingleRoom bool        `cbor:"single_room" json:"single_room"`
	RoomID     string      `cbor:"room_id,omitempty" json:"room_id,omitempty"`
	Status     GuestStatus `cbor:"status" json:"status"`
	MigratedTo string      `cbor:"migrated_to,omitempty" json:"migrated_to,omitempty"`
	CreatedBy  string      `cbor:"created_by" json:"created_by"`
	CreatedAt  time.Time   `cbor:"created_at" json:"created_at"`
	RetiredAt  *time.Time  `cbor:"retired_at,omitempty" json:"retired_at,omitempty"`
}

// Validate checks the record shape.
func (g *TempGuest) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("guest: id is required")
	}
	if g.Status != GuestActive && g.Status != GuestRetired {
		return fmt.Errorf("guest %s: unknown status %q", g.ID, g.Status)
	}
	if g.Gender != GenderMale && g.Gender != GenderFemale {
		return fmt.Errorf("guest %s: gender must be MALE or FEMALE", g.ID)
	}
	if g.Status == GuestRetired && g.MigratedTo == "" {
		return fmt.Errorf("guest %s: retired without migration target", g.ID)
	}
	return nil
}
