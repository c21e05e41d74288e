package service

import (
	"context"
	"errors"
	"strings"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/apperr"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/profile"
)

// GuestInput describes a walk-in to be placed by an administrator.  ID is
// generated when empty.
type GuestInput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Gender     string `json:"gender"`
	SingleRoom bool   `json:"single_room"`
	RoomID     string `json:"room_id"`
}

// MigrateOptions tunes MigrateTempGuest.
type MigrateOptions struct {
	ActorID string `json:"-"`

	// AllowMoveExistingAssignment lets the target leave the room it
	// occupies for the guest's room.
	AllowMoveExistingAssignment bool `json:"allow_move_existing_assignment"`
}

// CancelAssignment removes identity from roomID.  A session is left with a
// cancellation notice that its next action surfaces, and requests it was
// sending or answering are closed; a guest simply loses its room.
func (s *Service) CancelAssignment(ctx context.Context, adminID, roomID, identity string) error {
	if _, err := s.room(roomID); err != nil {
		return err
	}
	err := s.update(ctx, func(u *unit) error {
		occ, err := u.occupancy(roomID)
		if err != nil {
			return err
		}
		i := occ.IndexOf(identity)
		if i < 0 {
			return errNotAssigned(identity, roomID)
		}
		kind := occ.Occupants[i].Kind
		occ.Remove(identity)
		u.touchOccupancy(occ)

		switch kind {
		case model.OccupantSession:
			st, err := u.session(identity)
			if err != nil {
				return err
			}
			if r, err := u.pendingRequest(st.OutgoingRequestID); err != nil {
				return err
			} else if r != nil {
				if err := u.finish(r, model.StatusCancelled, model.ReasonRequesterLeft); err != nil {
					return err
				}
			}
			// nobody is left to answer join requests for this room
			if err := u.expireIncoming(st); err != nil {
				return err
			}
			st.RoomID = ""
			st.Cancellation = &model.CancellationNotice{RoomID: roomID, By: adminID, At: u.now}
			u.touchSession(st)
		case model.OccupantGuest:
			g, err := u.guest(identity)
			if err != nil {
				return err
			}
			g.RoomID = ""
			u.touchGuest(g)
		}
		u.emit(model.Event{Kind: model.EventAssignmentCancelled, RoomID: roomID, ActorID: adminID, Recipients: []string{identity}})
		return nil
	})
	if err == nil {
		s.log.Info("assignment cancelled", "room", roomID, "identity", identity, "admin", adminID)
	}
	return err
}

// AssignTempGuest creates a temporary guest record and commits it into a
// room under the same checks as any other commit.
func (s *Service) AssignTempGuest(ctx context.Context, adminID string, in GuestInput) (model.TempGuest, error) {
	gender, err := model.ParseGender(in.Gender)
	if err != nil || gender == model.GenderAny {
		return model.TempGuest{}, apperr.New(apperr.Invalid, "guest gender must be MALE or FEMALE")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.TempGuest{}, apperr.New(apperr.Invalid, "guest name is required")
	}
	if strings.ContainsAny(in.ID, "/ ") {
		return model.TempGuest{}, apperr.New(apperr.Invalid, "guest id must not contain '/' or spaces")
	}
	room, err := s.room(in.RoomID)
	if err != nil {
		return model.TempGuest{}, err
	}
	id := in.ID
	if id == "" {
		id = s.guestRepo.NewID()
	}

	var out model.TempGuest
	err = s.update(ctx, func(u *unit) error {
		exists, err := s.guestRepo.ExistsTx(u.tx, id)
		if err != nil {
			return err
		}
		if exists {
			return apperr.New(apperr.Conflict, "temporary guest %s already exists", id)
		}
		g := &model.TempGuest{
			ID:         id,
			Name:       name,
			Gender:     gender,
			SingleRoom: in.SingleRoom,
			Status:     model.GuestActive,
			CreatedBy:  adminID,
			CreatedAt:  u.now,
		}
		u.touchGuest(g)
		m := guestMember(*g)
		if err := u.checkCommit(room, []member{m}); err != nil {
			return err
		}
		if _, err := u.applyCommit(room, []member{m}, adminID); err != nil {
			return err
		}
		out = *g
		return nil
	})
	return out, err
}

// MigrateTempGuest hands a walk-in's slot to a registered session.  The
// guest is found by id only.  The session takes the guest's place in the
// occupant list and the guest record is retired.
func (s *Service) MigrateTempGuest(ctx context.Context, tempGuestID, targetSessionID string, opts MigrateOptions) (model.TempGuest, error) {
	p, err := s.profiles.Get(ctx, targetSessionID)
	if errors.Is(err, profile.ErrNotFound) || (err == nil && targetSessionID == "") {
		return model.TempGuest{}, apperr.New(apperr.IdentityMismatch, "no registered session %q", targetSessionID)
	}
	if err != nil {
		return model.TempGuest{}, apperr.Wrap(apperr.Unavailable, err, "profile lookup failed")
	}
	target := sessionMember(p)

	var out model.TempGuest
	var roomID string
	err = s.update(ctx, func(u *unit) error {
		g, err := u.guest(tempGuestID)
		if err != nil {
			return err
		}
		if g.Status == model.GuestRetired {
			return apperr.New(apperr.Conflict, "temporary guest %s was already migrated to %s", g.ID, g.MigratedTo)
		}
		st, err := u.session(targetSessionID)
		if err != nil {
			return err
		}

		roomID = g.RoomID
		if g.RoomID != "" {
			if err := u.moveInto(g, st, target, opts.AllowMoveExistingAssignment); err != nil {
				return err
			}
		}

		retired := u.now
		g.Status = model.GuestRetired
		g.MigratedTo = targetSessionID
		g.RetiredAt = &retired
		g.RoomID = ""
		u.touchGuest(g)
		u.emit(model.Event{Kind: model.EventGuestMigrated, RoomID: roomID, ActorID: opts.ActorID, Recipients: []string{targetSessionID}})
		out = *g
		return nil
	})
	if err == nil {
		s.log.Info("temporary guest migrated", "guest", tempGuestID, "session", targetSessionID, "room", roomID)
	}
	return out, err
}

// moveInto puts target where guest g sits.  A target assigned elsewhere is
// moved only when allowMove is set.
func (u *unit) moveInto(g *model.TempGuest, st *model.SessionState, target member, allowMove bool) error {
	room, err := u.s.room(g.RoomID)
	if err != nil {
		return err
	}
	occ, err := u.occupancy(room.ID)
	if err != nil {
		return err
	}
	i := occ.IndexOf(g.ID)
	if i < 0 {
		return apperr.New(apperr.Conflict, "temporary guest %s is not listed in room %s", g.ID, room.ID)
	}
	if occ.Has(target.ID) || st.RoomID == room.ID {
		return apperr.New(apperr.AlreadyAssigned, "%s already occupies room %s", target.ID, room.ID)
	}
	if ok, why := room.Admits(target.Gender, target.SingleRoom); !ok {
		return apperr.New(apperr.ConstraintViolation, "%s", why)
	}

	if prev := st.RoomID; prev != "" {
		if !allowMove {
			return apperr.New(apperr.AlreadyAssigned, "%s already occupies room %s", target.ID, prev)
		}
		pocc, err := u.occupancy(prev)
		if err != nil {
			return err
		}
		pocc.Remove(target.ID)
		u.touchOccupancy(pocc)
		st.RoomID = ""
	}

	occ.Occupants[i] = model.Occupant{ID: target.ID, Kind: model.OccupantSession, Gender: target.Gender, JoinedAt: u.now}
	u.touchOccupancy(occ)
	set, err := u.holdSet(room.ID)
	if err != nil {
		return err
	}
	if set.Drop(target.ID) {
		u.touchHolds(set)
	}
	return u.settle(target.ID, room.ID)
}

// AcknowledgeCancellation clears the session's cancellation notice so it
// can act again.
func (s *Service) AcknowledgeCancellation(ctx context.Context, sessionID string) error {
	return s.update(ctx, func(u *unit) error {
		st, err := u.session(sessionID)
		if err != nil {
			return err
		}
		if st.Cancellation == nil {
			return nil
		}
		st.Cancellation = nil
		u.touchSession(st)
		return nil
	})
}
