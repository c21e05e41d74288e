package service

import (
	"context"
	"errors"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/apperr"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/profile"
)

// Commit adds identities to roomID in one atomic update.  Each identity is
// a session id with a registered profile or an active temporary guest id.
// Either every identity is added or nothing is written.
func (s *Service) Commit(ctx context.Context, roomID string, identities []string) (model.Occupancy, error) {
	room, err := s.room(roomID)
	if err != nil {
		return model.Occupancy{}, err
	}
	if len(identities) == 0 {
		return model.Occupancy{}, apperr.New(apperr.Invalid, "no identities to commit")
	}
	seen := map[string]bool{}
	var sessions []member
	for _, id := range identities {
		if seen[id] {
			return model.Occupancy{}, apperr.New(apperr.Invalid, "identity %s listed twice", id)
		}
		seen[id] = true
		p, err := s.profiles.Get(ctx, id)
		switch {
		case err == nil:
			sessions = append(sessions, sessionMember(p))
		case errors.Is(err, profile.ErrNotFound):
			sessions = append(sessions, member{ID: id})
		default:
			return model.Occupancy{}, apperr.Wrap(apperr.Unavailable, err, "profile lookup failed")
		}
	}

	var out model.Occupancy
	err = s.update(ctx, func(u *unit) error {
		members := make([]member, 0, len(sessions))
		for _, m := range sessions {
			if m.Kind == "" {
				g, err := u.guest(m.ID)
				if err != nil {
					return err
				}
				m = guestMember(*g)
			}
			members = append(members, m)
		}
		if err := u.checkCommit(room, members); err != nil {
			return err
		}
		occ, err := u.applyCommit(room, members, "")
		if err != nil {
			return err
		}
		out = *occ
		return nil
	})
	return out, err
}

// checkCommit re-validates adding members to room against the state read
// in this update.  Members already in the room are skipped.
func (u *unit) checkCommit(room model.Room, members []member) error {
	occ, err := u.occupancy(room.ID)
	if err != nil {
		return err
	}
	set, err := u.holdSet(room.ID)
	if err != nil {
		return err
	}

	committing := map[string]bool{}
	added := 0
	for _, m := range members {
		committing[m.ID] = true
		if occ.Has(m.ID) {
			continue
		}
		if ok, why := room.Admits(m.Gender, m.SingleRoom); !ok {
			return apperr.New(apperr.ConstraintViolation, "%s", why)
		}
		switch m.Kind {
		case model.OccupantSession:
			st, err := u.session(m.ID)
			if err != nil {
				return err
			}
			if st.RoomID != "" && st.RoomID != room.ID {
				return apperr.New(apperr.AlreadyAssigned, "%s already occupies room %s", m.ID, st.RoomID)
			}
		case model.OccupantGuest:
			g, err := u.guest(m.ID)
			if err != nil {
				return err
			}
			if g.Status != model.GuestActive {
				return apperr.New(apperr.Invalid, "temporary guest %s is retired", g.ID)
			}
			if g.RoomID != "" && g.RoomID != room.ID {
				return apperr.New(apperr.AlreadyAssigned, "%s already occupies room %s", g.ID, g.RoomID)
			}
		}
		added++
	}

	if len(occ.Occupants)+added > room.Capacity {
		return apperr.New(apperr.CapacityFull, "room %s has %d free slot(s), %d requested",
			room.ID, room.Capacity-len(occ.Occupants), added)
	}
	if len(occ.Occupants)+added+set.ActiveExcept(u.now, committing) > room.Capacity {
		return apperr.New(apperr.Conflict, "room %s is reserved by someone else", room.ID)
	}
	return nil
}

// applyCommit writes what checkCommit approved: occupants appended, the
// committers' holds on the room cleared and their records pointed at the
// room.  actorID is recorded on the event.
func (u *unit) applyCommit(room model.Room, members []member, actorID string) (*model.Occupancy, error) {
	occ, err := u.occupancy(room.ID)
	if err != nil {
		return nil, err
	}
	set, err := u.holdSet(room.ID)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, m := range members {
		if set.Drop(m.ID) {
			u.touchHolds(set)
		}
		if occ.Has(m.ID) {
			continue
		}
		occ.Occupants = append(occ.Occupants, model.Occupant{ID: m.ID, Kind: m.Kind, Gender: m.Gender, JoinedAt: u.now})
		ids = append(ids, m.ID)

		switch m.Kind {
		case model.OccupantSession:
			if err := u.settle(m.ID, room.ID); err != nil {
				return nil, err
			}
		case model.OccupantGuest:
			g, err := u.guest(m.ID)
			if err != nil {
				return nil, err
			}
			g.RoomID = room.ID
			u.touchGuest(g)
		}
	}
	u.touchOccupancy(occ)
	if len(ids) > 0 {
		u.emit(model.Event{Kind: model.EventAssignmentCommitted, RoomID: room.ID, ActorID: actorID, Recipients: ids})
	}
	return occ, nil
}

// settle points a session at roomID and drops whatever was still in
// flight around it.  Its outgoing request is cancelled, invitations it can
// no longer accept expire with target_left and a hold on another room is
// released.
func (u *unit) settle(sessionID, roomID string) error {
	st, err := u.session(sessionID)
	if err != nil {
		return err
	}
	r, err := u.pendingRequest(st.OutgoingRequestID)
	if err != nil {
		return err
	}
	if r != nil {
		if err := u.finish(r, model.StatusCancelled, model.ReasonRequesterLeft); err != nil {
			return err
		}
	}
	if err := u.expireIncoming(st); err != nil {
		return err
	}
	if prev := st.HeldRoomID; prev != "" && prev != roomID {
		if err := u.dropSessionHold(st, prev); err != nil {
			return err
		}
	}
	st.RoomID = roomID
	st.HeldRoomID = ""
	u.touchSession(st)
	return nil
}

// expireIncoming expires every pending request addressed to st with
// target_left.  finish releases the slots those requests were holding.
func (u *unit) expireIncoming(st *model.SessionState) error {
	for _, id := range append([]string(nil), st.Incoming...) {
		r, err := u.pendingRequest(id)
		if err != nil {
			return err
		}
		if r == nil || r.TargetID != st.SessionID {
			continue
		}
		if err := u.finish(r, model.StatusExpired, model.ReasonTargetLeft); err != nil {
			return err
		}
	}
	return nil
}
