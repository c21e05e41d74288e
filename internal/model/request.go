package model

import (
	"errors"
	"fmt"
	"time"
)

// RequestKind is the entry shape of the consensus handshake.
type RequestKind string

const (
	// RequestInvite: an occupant (or an admin on the occupant's behalf)
	// designates a roommate who has not chosen a room yet.
	RequestInvite RequestKind = "INVITE"
	// RequestJoin: a selector asks the current occupant to share the room.
	RequestJoin RequestKind = "JOIN"
)

// RequestStatus is the consensus state.  Transitions only go from PENDING
// to one of the terminal states.
type RequestStatus string

const (
	StatusPending   RequestStatus = "PENDING"
	StatusAccepted  RequestStatus = "ACCEPTED"
	StatusRejected  RequestStatus = "REJECTED"
	StatusCancelled RequestStatus = "CANCELLED"
	StatusExpired   RequestStatus = "EXPIRED"
)

// Terminal reports whether s is a final state.
func (s RequestStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusCancelled || s == StatusExpired
}

// Reasons recorded on terminal requests.
const (
	ReasonTimedOut        = "timed_out"
	ReasonRoomUnavailable = "room_unavailable"
	ReasonTargetLeft      = "target_left"
	ReasonRequesterLeft   = "requester_left"
)

// Request is a pending invitation or join-request, stored under
// request/<id>.
//
// Fields:
//  RequesterID – identity that initiated the handshake.
//  RequesterName – display name shown to the target; never a join key.
//  TargetID    – identity that must accept or reject.
//  JoinerID    – identity added to the room on accept (the requester for
//                JOIN, the target for INVITE).
//  CreatedBy   – admin that issued the invitation on the requester's
//                behalf, empty otherwise.
//  Warnings    – compatibility warnings computed against the target's
//                own attributes.
type Request struct {
	ID            string        `cbor:"id" json:"id"`
	Kind          RequestKind   `cbor:"kind" json:"kind"`
	RequesterID   string        `cbor:"requester_id" json:"requester_id"`
	RequesterName string        `cbor:"requester_name,omitempty" json:"requester_name,omitempty"`
	TargetID      string        `cbor:"target_id" json:"target_id"`
	RoomID        string        `cbor:"room_id" json:"room_id"`
	JoinerID      string        `cbor:"joiner_id" json:"joiner_id"`
	CreatedBy     string        `cbor:"created_by,omitempty" json:"created_by,omitempty"`
	Status        RequestStatus `cbor:"status" json:"status"`
	Reason        string        `cbor:"reason,omitempty" json:"reason,omitempty"`
	Warnings      []string      `cbor:"warnings" json:"warnings"`
	CreatedAt     time.Time     `cbor:"created_at" json:"created_at"`
	ExpiresAt     time.Time     `cbor:"expires_at" json:"expires_at"`
	ResolvedAt    *time.Time    `cbor:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}

// Validate checks the record shape.
func (r *Request) Validate() error {
	if r.ID == "" {
		return errors.New("request: id is required")
	}
	if r.Kind != RequestInvite && r.Kind != RequestJoin {
		return fmt.Errorf("request %s: unknown kind %q", r.ID, r.Kind)
	}
	if r.RequesterID == "" || r.TargetID == "" || r.RoomID == "" || r.JoinerID == "" {
		return fmt.Errorf("request %s: requester, target, room and joiner are required", r.ID)
	}
	switch r.Status {
	case StatusPending, StatusAccepted, StatusRejected, StatusCancelled, StatusExpired:
	default:
		return fmt.Errorf("request %s: unknown status %q", r.ID, r.Status)
	}
	if r.ExpiresAt.IsZero() {
		return fmt.Errorf("request %s: expires_at is required", r.ID)
	}
	return nil
}

// ExpiredAt reports whether a pending request has outlived its clock.
func (r *Request) ExpiredAt(now time.Time) bool {
	return r.Status == StatusPending && !now.Before(r.ExpiresAt)
}

// Resolve moves a pending request into a terminal state.  It refuses to
// leave a terminal state or to return to PENDING.
func (r *Request) Resolve(to RequestStatus, reason string, at time.Time) error {
	if r.Status.Terminal() {
		return fmt.Errorf("request %s already %s", r.ID, r.Status)
	}
	if !to.Terminal() {
		return fmt.Errorf("request %s: %s is not a terminal state", r.ID, to)
	}
	r.Status = to
	r.Reason = reason
	t := at
	r.ResolvedAt = &t
	return nil
}
