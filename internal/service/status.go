package service

import (
	"context"
	"time"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
)

// SessionState names where a session stands in the selection flow.
type SessionState string

const (
	StateNone            SessionState = "NONE"
	StateHolding         SessionState = "HOLDING"
	StateWaitingApproval SessionState = "WAITING_APPROVAL"
	StateAssigned        SessionState = "ASSIGNED"
	StateRecovery        SessionState = "RECOVERY"
)

// HoldView is the session's own hold with its countdown.
type HoldView struct {
	RoomID      string        `json:"room_id"`
	ExpiresAt   time.Time     `json:"expires_at"`
	Remaining   time.Duration `json:"-"`
	RemainingMS int64         `json:"remaining_ms"`
}

// SessionView is everything a client needs to render its own state.
type SessionView struct {
	SessionID    string                    `json:"session_id"`
	State        SessionState              `json:"state"`
	RoomID       string                    `json:"room_id,omitempty"`
	Occupants    int                       `json:"occupants,omitempty"`
	Capacity     int                       `json:"capacity,omitempty"`
	Hold         *HoldView                 `json:"hold,omitempty"`
	Outgoing     *model.Request            `json:"outgoing,omitempty"`
	Incoming     []model.Request           `json:"incoming"`
	Cancellation *model.CancellationNotice `json:"cancellation,omitempty"`
	Recovery     bool                      `json:"recovery"`
}

// Status reports the session's current state with lazy expiry applied.
// A session with an unacknowledged cancellation is in RECOVERY.
func (s *Service) Status(ctx context.Context, sessionID string) (SessionView, error) {
	var v SessionView
	err := s.view(ctx, func(u *unit) error {
		sv, err := u.status(sessionID)
		if err != nil {
			return err
		}
		v = sv
		return nil
	})
	return v, err
}

func (u *unit) status(sessionID string) (SessionView, error) {
	v := SessionView{SessionID: sessionID, State: StateNone, Incoming: []model.Request{}}
	st, err := u.session(sessionID)
	if err != nil {
		return v, err
	}

	out, err := u.pendingRequest(st.OutgoingRequestID)
	if err != nil {
		return v, err
	}
	if out != nil {
		o := *out
		v.Outgoing = &o
	}
	for _, id := range append([]string(nil), st.Incoming...) {
		r, err := u.pendingRequest(id)
		if err != nil {
			return v, err
		}
		if r != nil {
			v.Incoming = append(v.Incoming, *r)
		}
	}

	if st.RoomID != "" {
		v.RoomID = st.RoomID
		occ, err := u.occupancy(st.RoomID)
		if err != nil {
			return v, err
		}
		v.Occupants = len(occ.Occupants)
		if room, err := u.s.rooms.Get(st.RoomID); err == nil {
			v.Capacity = room.Capacity
		}
		v.State = StateAssigned
	} else if st.HeldRoomID != "" {
		set, err := u.holdSet(st.HeldRoomID)
		if err != nil {
			return v, err
		}
		if h, ok := set.Find(sessionID, u.now); ok {
			rem := h.Remaining(u.now)
			v.Hold = &HoldView{RoomID: h.RoomID, ExpiresAt: h.ExpiresAt, Remaining: rem, RemainingMS: rem.Milliseconds()}
			v.State = StateHolding
		}
	}
	if v.Outgoing != nil && v.RoomID == "" {
		v.State = StateWaitingApproval
	}
	if st.Cancellation != nil {
		n := *st.Cancellation
		v.Cancellation = &n
		v.Recovery = true
		v.State = StateRecovery
	}
	return v, nil
}
