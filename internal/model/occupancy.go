package model

import (
	"errors"
	"fmt"
	"time"
)

// OccupantKind distinguishes registered sessions from walk-in guests.
type OccupantKind string

const (
	OccupantSession OccupantKind = "SESSION"
	OccupantGuest   OccupantKind = "GUEST"
)

// Occupant is one filled slot of a room.
type Occupant struct {
	ID       string       `cbor:"id" json:"id"`
	Kind     OccupantKind `cbor:"kind" json:"kind"`
	Gender   Gender       `cbor:"gender" json:"gender"`
	JoinedAt time.Time    `cbor:"joined_at" json:"joined_at"`
}

// Occupancy is the authoritative list of who currently fills each slot of
// a room.  Stored under room/<id>/occupancy.  A room that was never
// committed has no record, which reads as an empty Occupancy.
type Occupancy struct {
	RoomID    string     `cbor:"room_id" json:"room_id"`
	Occupants []Occupant `cbor:"occupants" json:"occupants"`
	UpdatedAt time.Time  `cbor:"updated_at" json:"updated_at"`
}

// Validate checks the record shape.  Capacity and gender invariants are
// checked by the service against the catalog, not here.
func (o *Occupancy) Validate() error {
	if o.RoomID == "" {
		return errors.New("occupancy: room_id is required")
	}
	seen := make(map[string]struct{}, len(o.Occupants))
	for _, oc := range o.Occupants {
		if oc.ID == "" {
			return fmt.Errorf("occupancy %s: occupant without id", o.RoomID)
		}
		if oc.Kind != OccupantSession && oc.Kind != OccupantGuest {
			return fmt.Errorf("occupancy %s: occupant %s has unknown kind %q", o.RoomID, oc.ID, oc.Kind)
		}
		if _, dup := seen[oc.ID]; dup {
			return fmt.Errorf("occupancy %s: occupant %s listed twice", o.RoomID, oc.ID)
		}
		seen[oc.ID] = struct{}{}
	}
	return nil
}

// Has reports whether id occupies the room.
func (o *Occupancy) Has(id string) bool {
	return o.IndexOf(id) >= 0
}

// IndexOf returns the slot index of id, or -1.
func (o *Occupancy) IndexOf(id string) int {
	for i, oc := range o.Occupants {
		if oc.ID == id {
			return i
		}
	}
	return -1
}

// Remove drops id and reports whether it was present.  Slot order of the
// remaining occupants is preserved.
func (o *Occupancy) Remove(id string) bool {
	i := o.IndexOf(id)
	if i < 0 {
		return false
	}
	o.Occupants = append(o.Occupants[:i], o.Occupants[i+1:]...)
	return true
}

// IDs lists occupant identities in slot order.
func (o *Occupancy) IDs() []string {
	out := make([]string, 0, len(o.Occupants))
	for _, oc := range o.Occupants {
		out = append(out, oc.ID)
	}
	return out
}
