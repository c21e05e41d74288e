package model

import "time"

// EventKind names a notification emitted after a committed transition.
type EventKind string

const (
	EventInvitationCreated   EventKind = "invitation.created"
	EventRequestCreated      EventKind = "request.created"
	EventRequestAccepted     EventKind = "request.accepted"
	EventRequestRejected     EventKind = "request.rejected"
	EventAssignmentCommitted EventKind = "assignment.committed"
	EventAssignmentCancelled EventKind = "assignment.cancelled"
	EventGuestMigrated       EventKind = "guest.migrated"
)

// Event is the payload handed to the notification boundary.  Subscribers
// decide who to notify from Recipients; the coordinator does not render
// or push anything itself.
type Event struct {
	Kind       EventKind `json:"kind"`
	RoomID     string    `json:"room_id,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	Recipients []string  `json:"recipients,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
	At         time.Time `json:"at"`
}
