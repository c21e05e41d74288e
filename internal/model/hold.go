package model

import (
	"errors"
	"fmt"
	"time"
)

// Hold is a short-lived exclusive claim on one free slot of a room.  It is
// a race-exclusion lease, not occupancy.  Holds expire at ExpiresAt and an
// expired hold is treated as absent on every read.
//
// Fields:
//  RoomID    – room whose slot is held.
//  HolderID  – identity the slot is held for.
//  Token     – opaque token returned to the holder.
//  RequestID – pending request this hold backs, if any.
//  ExpiresAt – when the hold lapses.
//  CreatedAt – when the hold was first granted.
type Hold struct {
	RoomID    string    `cbor:"room_id" json:"room_id"`
	HolderID  string    `cbor:"holder_id" json:"-"`
	Token     string    `cbor:"token" json:"token,omitempty"`
	RequestID string    `cbor:"request_id,omitempty" json:"request_id,omitempty"`
	ExpiresAt time.Time `cbor:"expires_at" json:"expires_at"`
	CreatedAt time.Time `cbor:"created_at" json:"created_at"`
}

// Active reports whether the hold is still in force at now.
func (h Hold) Active(now time.Time) bool {
	return now.Before(h.ExpiresAt)
}

// Remaining is max(0, ExpiresAt-now).
func (h Hold) Remaining(now time.Time) time.Duration {
	if d := h.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// HoldSet is the stored list of holds for one room, under room/<id>/holds.
type HoldSet struct {
	RoomID string `cbor:"room_id"`
	Holds  []Hold `cbor:"holds"`
}

// Validate checks the record shape.
func (s *HoldSet) Validate() error {
	if s.RoomID == "" {
		return errors.New("holds: room_id is required")
	}
	for _, h := range s.Holds {
		if h.HolderID == "" {
			return fmt.Errorf("holds %s: hold without holder", s.RoomID)
		}
		if h.ExpiresAt.IsZero() {
			return fmt.Errorf("holds %s: hold for %s without expiry", s.RoomID, h.HolderID)
		}
	}
	return nil
}

// Prune drops holds that have expired at now and reports whether anything
// was removed.
func (s *HoldSet) Prune(now time.Time) bool {
	kept := s.Holds[:0]
	for _, h := range s.Holds {
		if h.Active(now) {
			kept = append(kept, h)
		}
	}
	changed := len(kept) != len(s.Holds)
	s.Holds = kept
	return changed
}

// Find returns the active hold of holderID.
func (s *HoldSet) Find(holderID string, now time.Time) (Hold, bool) {
	for _, h := range s.Holds {
		if h.HolderID == holderID && h.Active(now) {
			return h, true
		}
	}
	return Hold{}, false
}

// Drop removes every hold of holderID and reports whether one was present.
func (s *HoldSet) Drop(holderID string) bool {
	kept := s.Holds[:0]
	for _, h := range s.Holds {
		if h.HolderID != holderID {
			kept = append(kept, h)
		}
	}
	changed := len(kept) != len(s.Holds)
	s.Holds = kept
	return changed
}

// Put replaces any hold of h.HolderID with h.
func (s *HoldSet) Put(h Hold) {
	s.Drop(h.HolderID)
	s.Holds = append(s.Holds, h)
}

// ActiveExcept counts active holds whose holder is not in skip.
func (s *HoldSet) ActiveExcept(now time.Time, skip map[string]bool) int {
	n := 0
	for _, h := range s.Holds {
		if h.Active(now) && !skip[h.HolderID] {
			n++
		}
	}
	return n
}

// NearestExpiryExcept returns the remaining time of the foreign hold that
// lapses first, or 0 when there is none.
func (s *HoldSet) NearestExpiryExcept(now time.Time, skip map[string]bool) time.Duration {
	var best time.Duration
	for _, h := range s.Holds {
		if !h.Active(now) || skip[h.HolderID] {
			continue
		}
		if r := h.Remaining(now); best == 0 || r < best {
			best = r
		}
	}
	return best
}
