package model

import (
	"errors"
	"time"
)

// CancellationNotice records an administrative removal the participant has
// not acknowledged yet.  While present the participant's next action
// surfaces a recovery state instead of operating on stale local state.
type CancellationNotice struct {
	RoomID string    `cbor:"room_id" json:"room_id"`
	By     string    `cbor:"by" json:"-"`
	At     time.Time `cbor:"at" json:"at"`
}

// SessionState is the per-identity index kept beside the room records,
// under session/<sessionId>.  It prevents double assignment and lets a
// participant find their own hold and requests without scanning.
type SessionState struct {
	SessionID         string              `cbor:"session_id"`
	RoomID            string              `cbor:"room_id,omitempty"`
	HeldRoomID        string              `cbor:"held_room_id,omitempty"`
	OutgoingRequestID string              `cbor:"outgoing_request_id,omitempty"`
	Incoming          []string            `cbor:"incoming,omitempty"`
	Cancellation      *CancellationNotice `cbor:"cancellation,omitempty"`
	UpdatedAt         time.Time           `cbor:"updated_at"`
}

// Validate checks the record shape.
func (s *SessionState) Validate() error {
	if s.SessionID == "" {
		return errors.New("session: session_id is required")
	}
	return nil
}

// AddIncoming records an incoming request id once.
func (s *SessionState) AddIncoming(id string) {
	for _, x := range s.Incoming {
		if x == id {
			return
		}
	}
	s.Incoming = append(s.Incoming, id)
}

// DropIncoming forgets an incoming request id.
func (s *SessionState) DropIncoming(id string) {
	kept := s.Incoming[:0]
	for _, x := range s.Incoming {
		if x != id {
			kept = append(kept, x)
		}
	}
	s.Incoming = kept
}
