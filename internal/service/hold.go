package service

import (
	"context"
	"time"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/apperr"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/repository"
)

// Acquire places or refreshes holderID's hold on a free slot of roomID.
// A hold on any other room is released in the same update.  ttl <= 0
// uses the configured HoldTTL; longer ttls are cut to MaxHoldTTL.
func (s *Service) Acquire(ctx context.Context, roomID, holderID string, ttl time.Duration) (model.Hold, error) {
	room, err := s.room(roomID)
	if err != nil {
		return model.Hold{}, err
	}
	me, err := s.participant(ctx, holderID)
	if err != nil {
		return model.Hold{}, err
	}
	if ok, why := room.Admits(me.Gender, me.SingleRoom); !ok {
		return model.Hold{}, apperr.New(apperr.ConstraintViolation, "%s", why)
	}
	if ttl <= 0 {
		ttl = s.cfg.HoldTTL
	}
	if ttl > s.cfg.MaxHoldTTL {
		ttl = s.cfg.MaxHoldTTL
	}

	var hold model.Hold
	err = s.update(ctx, func(u *unit) error {
		if err := u.guard(holderID); err != nil {
			return err
		}
		h, err := u.acquire(room, holderID, u.now.Add(ttl))
		if err != nil {
			return err
		}
		hold = h
		return nil
	})
	if err != nil {
		return model.Hold{}, err
	}
	s.log.Debug("hold granted", "room", roomID, "expires_at", hold.ExpiresAt)
	return hold, nil
}

// acquire is the session-level hold: it refuses assigned sessions and
// moves the session's single hold to room.
func (u *unit) acquire(room model.Room, holderID string, expires time.Time) (model.Hold, error) {
	st, err := u.session(holderID)
	if err != nil {
		return model.Hold{}, err
	}
	if st.RoomID != "" {
		return model.Hold{}, apperr.New(apperr.AlreadyAssigned, "you already occupy room %s", st.RoomID)
	}
	h, err := u.placeHold(room, holderID, "", expires)
	if err != nil {
		return model.Hold{}, err
	}
	if h.RequestID != "" && st.HeldRoomID != room.ID {
		// the slot is already reserved for an invitation to this session;
		// it stays the inviter's and the session keeps its own hold.
		return h, nil
	}
	if prev := st.HeldRoomID; prev != "" && prev != room.ID {
		if err := u.dropSessionHold(st, prev); err != nil {
			return model.Hold{}, err
		}
	}
	if st.HeldRoomID != room.ID {
		st.HeldRoomID = room.ID
		u.touchSession(st)
	}
	return h, nil
}

// dropSessionHold releases the session's hold on roomID and cancels the
// pending join request that hold was backing, if any.
func (u *unit) dropSessionHold(st *model.SessionState, roomID string) error {
	r, err := u.pendingRequest(st.OutgoingRequestID)
	if err != nil {
		return err
	}
	if r != nil && r.Kind == model.RequestJoin && r.RoomID == roomID {
		if err := u.finish(r, model.StatusCancelled, model.ReasonRequesterLeft); err != nil {
			return err
		}
	}
	set, err := u.holdSet(roomID)
	if err != nil {
		return err
	}
	if set.Drop(st.SessionID) {
		u.touchHolds(set)
	}
	if st.HeldRoomID == roomID {
		st.HeldRoomID = ""
		u.touchSession(st)
	}
	return nil
}

// placeHold writes a hold for holderID on room if a slot is free.  Holds
// tied to a request are only placed here, never refreshed by a plain
// acquire.
func (u *unit) placeHold(room model.Room, holderID, requestID string, expires time.Time) (model.Hold, error) {
	occ, err := u.occupancy(room.ID)
	if err != nil {
		return model.Hold{}, err
	}
	if occ.Has(holderID) {
		return model.Hold{}, apperr.New(apperr.AlreadyAssigned, "%s already occupies room %s", holderID, room.ID)
	}
	set, err := u.holdSet(room.ID)
	if err != nil {
		return model.Hold{}, err
	}

	if h, ok := set.Find(holderID, u.now); ok {
		if h.RequestID != "" && h.RequestID != requestID {
			return h, nil
		}
		h.ExpiresAt = expires
		h.RequestID = requestID
		set.Put(h)
		u.touchHolds(set)
		return h, nil
	}

	if len(occ.Occupants) >= room.Capacity {
		return model.Hold{}, apperr.New(apperr.CapacityFull, "room %s is full", room.ID)
	}
	self := map[string]bool{holderID: true}
	if len(occ.Occupants)+set.ActiveExcept(u.now, self) >= room.Capacity {
		return model.Hold{}, apperr.Held(set.NearestExpiryExcept(u.now, self))
	}

	h, err := repository.NewHold(room.ID, holderID, requestID, u.now, expires)
	if err != nil {
		return model.Hold{}, err
	}
	set.Put(h)
	u.touchHolds(set)
	return h, nil
}

// Release clears holderID's hold on roomID.  It is a no-op when there is
// nothing to release, including an unknown room or a hold that already
// lapsed.
func (s *Service) Release(ctx context.Context, roomID, holderID string) error {
	if _, err := s.rooms.Get(roomID); err != nil {
		return nil
	}
	return s.update(ctx, func(u *unit) error {
		set, err := u.holdSet(roomID)
		if err != nil {
			return err
		}
		st, err := u.session(holderID)
		if err != nil {
			return err
		}
		h, ok := set.Find(holderID, u.now)
		if !ok && st.HeldRoomID != roomID {
			return nil
		}
		if ok && h.RequestID != "" {
			// an invitation's hold belongs to the inviter; the target
			// rejects instead.
			r, err := u.pendingRequest(h.RequestID)
			if err != nil {
				return err
			}
			if r != nil && r.Kind == model.RequestInvite {
				return nil
			}
		}
		return u.dropSessionHold(st, roomID)
	})
}

// RoomView is what a participant may see of a room.  Holders are never
// identified; only the time until the nearest foreign hold lapses.
type RoomView struct {
	Room            model.Room    `json:"room"`
	Occupied        int           `json:"occupied"`
	FreeSlots       int           `json:"free_slots"`
	HeldByOthers    int           `json:"held_by_others"`
	Remaining       time.Duration `json:"-"`
	RemainingMS     int64         `json:"remaining_ms"`
	Full            bool          `json:"full"`
	ViewerHolds     bool          `json:"viewer_holds"`
	ViewerRemaining int64         `json:"viewer_remaining_ms,omitempty"`
	ViewerOccupies  bool          `json:"viewer_occupies"`
}

// RoomView reports the room as seen by viewerID.
func (s *Service) RoomView(ctx context.Context, roomID, viewerID string) (RoomView, error) {
	room, err := s.room(roomID)
	if err != nil {
		return RoomView{}, err
	}
	var v RoomView
	err = s.view(ctx, func(u *unit) error {
		occ, err := u.occupancy(roomID)
		if err != nil {
			return err
		}
		set, err := u.holdSet(roomID)
		if err != nil {
			return err
		}
		v = roomView(room, occ, set, viewerID, u.now)
		return nil
	})
	return v, err
}

func roomView(room model.Room, occ *model.Occupancy, set *model.HoldSet, viewerID string, now time.Time) RoomView {
	self := map[string]bool{viewerID: true}
	v := RoomView{
		Room:           room,
		Occupied:       len(occ.Occupants),
		HeldByOthers:   set.ActiveExcept(now, self),
		Remaining:      set.NearestExpiryExcept(now, self),
		ViewerOccupies: viewerID != "" && occ.Has(viewerID),
	}
	if h, ok := set.Find(viewerID, now); ok && viewerID != "" {
		v.ViewerHolds = true
		v.ViewerRemaining = h.Remaining(now).Milliseconds()
	}
	v.FreeSlots = room.Capacity - v.Occupied - v.HeldByOthers
	if v.ViewerHolds {
		v.FreeSlots--
	}
	if v.FreeSlots < 0 {
		v.FreeSlots = 0
	}
	v.Full = v.Occupied >= room.Capacity
	v.RemainingMS = v.Remaining.Milliseconds()
	return v
}
