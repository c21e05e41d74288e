package service

import (
	"context"
	"errors"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/apperr"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/profile"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/repository"
)

// Selection is the outcome of Select: either the caller now occupies the
// room, or a join request is waiting for the occupant's answer.  Warnings
// are phrased for the caller; the request carries the occupant's version.
type Selection struct {
	Assigned  bool             `json:"assigned"`
	Occupancy *model.Occupancy `json:"occupancy,omitempty"`
	Request   *model.Request   `json:"request,omitempty"`
	Hold      *model.Hold      `json:"hold,omitempty"`
	Warnings  []string         `json:"warnings"`
}

// InviteInput names who invites whom.  AdminID is set when an
// administrator issues the invitation on the inviter's behalf.
type InviteInput struct {
	InviterID string `json:"inviter_id"`
	TargetID  string `json:"target_id"`
	AdminID   string `json:"-"`
}

// Requests lists a session's live requests.
type Requests struct {
	Outgoing *model.Request  `json:"outgoing,omitempty"`
	Incoming []model.Request `json:"incoming"`
}

// occupantSnapshot is the room's session occupants as read before the
// update, with their profiles.  The update refuses to proceed if the
// occupant list moved in between, so warnings never go stale.
type occupantSnapshot struct {
	ids      []string
	sessions []model.Profile
}

func (s *Service) snapshot(ctx context.Context, roomID string) (occupantSnapshot, error) {
	occ, err := s.occRepo.Get(ctx, roomID)
	if err != nil {
		return occupantSnapshot{}, s.mapErr(err)
	}
	snap := occupantSnapshot{ids: occ.IDs()}
	for _, oc := range occ.Occupants {
		if oc.Kind != model.OccupantSession {
			continue
		}
		p, err := s.profiles.Get(ctx, oc.ID)
		if errors.Is(err, profile.ErrNotFound) {
			// attributes unknown; treat like a walk-in.
			continue
		}
		if err != nil {
			return occupantSnapshot{}, apperr.Wrap(apperr.Unavailable, err, "profile lookup failed")
		}
		snap.sessions = append(snap.sessions, p)
	}
	return snap, nil
}

func (u *unit) checkSnapshot(roomID string, snap occupantSnapshot) error {
	occ, err := u.occupancy(roomID)
	if err != nil {
		return err
	}
	if !sameIDs(occ.IDs(), snap.ids) {
		return apperr.New(apperr.Conflict, "room %s changed; re-fetch and try again", roomID)
	}
	return nil
}

// Select is the room-selection flow.  The caller's hold is acquired or
// refreshed; an empty room, or one whose occupants raise no warnings, is
// committed at once.  Otherwise a join request goes to the occupant.
func (s *Service) Select(ctx context.Context, sessionID, roomID string) (*Selection, error) {
	room, err := s.room(roomID)
	if err != nil {
		return nil, err
	}
	me, err := s.participant(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ok, why := room.Admits(me.Gender, me.SingleRoom); !ok {
		return nil, apperr.New(apperr.ConstraintViolation, "%s", why)
	}
	snap, err := s.snapshot(ctx, roomID)
	if err != nil {
		return nil, err
	}
	// warnings go on the request for the occupant; mine are the same
	// findings phrased for the caller.
	warnings, mine := []string{}, []string{}
	target := ""
	for _, p := range snap.sessions {
		warnings = append(warnings, s.eval.Evaluate(p, me.Profile)...)
		mine = append(mine, s.eval.Evaluate(me.Profile, p)...)
		if target == "" {
			target = p.SessionID
		}
	}

	var sel *Selection
	err = s.update(ctx, func(u *unit) error {
		if err := u.guard(sessionID); err != nil {
			return err
		}
		if err := u.checkSnapshot(roomID, snap); err != nil {
			return err
		}
		h, err := u.acquire(room, sessionID, u.now.Add(s.cfg.HoldTTL))
		if err != nil {
			return err
		}
		if len(warnings) == 0 {
			if err := u.checkCommit(room, []member{me}); err != nil {
				return err
			}
			occ, err := u.applyCommit(room, []member{me}, sessionID)
			if err != nil {
				return err
			}
			o := *occ
			sel = &Selection{Assigned: true, Occupancy: &o, Warnings: mine}
			return nil
		}
		r, err := u.createJoin(room, me, target, warnings)
		if err != nil {
			return err
		}
		set, err := u.holdSet(roomID)
		if err != nil {
			return err
		}
		if tied, ok := set.Find(sessionID, u.now); ok {
			h = tied
		}
		req := *r
		sel = &Selection{Request: &req, Hold: &h, Warnings: mine}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sel, nil
}

// RequestJoin asks the room's occupant to accept the caller as roommate.
// The caller must already hold a slot in the room.  The stored warnings
// are addressed to the occupant.
func (s *Service) RequestJoin(ctx context.Context, requesterID, roomID string) (model.Request, error) {
	room, err := s.room(roomID)
	if err != nil {
		return model.Request{}, err
	}
	me, err := s.participant(ctx, requesterID)
	if err != nil {
		return model.Request{}, err
	}
	if ok, why := room.Admits(me.Gender, me.SingleRoom); !ok {
		return model.Request{}, apperr.New(apperr.ConstraintViolation, "%s", why)
	}
	snap, err := s.snapshot(ctx, roomID)
	if err != nil {
		return model.Request{}, err
	}
	if len(snap.sessions) == 0 {
		return model.Request{}, apperr.New(apperr.Invalid, "room %s has no occupant to ask", roomID)
	}
	occupant := snap.sessions[0]
	warnings := append([]string{}, s.eval.Evaluate(occupant, me.Profile)...)

	var out model.Request
	err = s.update(ctx, func(u *unit) error {
		if err := u.guard(requesterID); err != nil {
			return err
		}
		if err := u.checkSnapshot(roomID, snap); err != nil {
			return err
		}
		st, err := u.session(requesterID)
		if err != nil {
			return err
		}
		if st.RoomID != "" {
			return apperr.New(apperr.AlreadyAssigned, "you already occupy room %s", st.RoomID)
		}
		r, err := u.createJoin(room, me, occupant.SessionID, warnings)
		if err != nil {
			return err
		}
		out = *r
		return nil
	})
	return out, err
}

// createJoin opens a JOIN request from requester to target and ties the
// requester's hold on room to it.
func (u *unit) createJoin(room model.Room, requester member, targetID string, warnings []string) (*model.Request, error) {
	set, err := u.holdSet(room.ID)
	if err != nil {
		return nil, err
	}
	h, ok := set.Find(requester.ID, u.now)
	if !ok {
		return nil, apperr.New(apperr.Conflict, "hold room %s before asking to join", room.ID)
	}
	r := &model.Request{
		ID:            u.s.reqRepo.NewID(),
		Kind:          model.RequestJoin,
		RequesterID:   requester.ID,
		RequesterName: requester.Profile.Name,
		TargetID:      targetID,
		RoomID:        room.ID,
		JoinerID:      requester.ID,
		Status:        model.StatusPending,
		Warnings:      warnings,
		CreatedAt:     u.now,
		ExpiresAt:     u.now.Add(u.s.cfg.RequestTTL),
	}
	if err := u.openRequest(r); err != nil {
		return nil, err
	}
	h.ExpiresAt = r.ExpiresAt
	h.RequestID = r.ID
	set.Put(h)
	u.touchHolds(set)
	u.emit(model.Event{Kind: model.EventRequestCreated, RoomID: room.ID, RequestID: r.ID,
		ActorID: requester.ID, Recipients: []string{targetID}, Warnings: warnings})
	return r, nil
}

// openRequest enforces one pending request per pair and one outgoing
// request per requester, then stores and indexes r.
func (u *unit) openRequest(r *model.Request) error {
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	pairID, err := u.s.reqRepo.PairTx(u.tx, r.RequesterID, r.TargetID)
	if err != nil {
		return err
	}
	existing, err := u.pendingRequest(pairID)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperr.New(apperr.Conflict, "a request between %s and %s is already pending", r.RequesterID, r.TargetID)
	}
	requester, err := u.session(r.RequesterID)
	if err != nil {
		return err
	}
	outgoing, err := u.pendingRequest(requester.OutgoingRequestID)
	if err != nil {
		return err
	}
	if outgoing != nil {
		return apperr.New(apperr.Conflict, "request %s is still pending; cancel it first", outgoing.ID)
	}
	target, err := u.session(r.TargetID)
	if err != nil {
		return err
	}

	u.touchRequest(r)
	if err := u.s.reqRepo.SetPairTx(u.tx, r); err != nil {
		return err
	}
	requester.OutgoingRequestID = r.ID
	u.touchSession(requester)
	target.AddIncoming(r.ID)
	u.touchSession(target)
	return nil
}

// Invite lets an occupant, or an administrator on the occupant's behalf,
// ask target to share the occupant's room.  A slot is held for the target
// until the invitation is answered or expires.
func (s *Service) Invite(ctx context.Context, in InviteInput) (model.Request, error) {
	if in.InviterID == "" || in.TargetID == "" {
		return model.Request{}, apperr.New(apperr.Invalid, "inviter and target are required")
	}
	if in.InviterID == in.TargetID {
		return model.Request{}, apperr.New(apperr.Invalid, "cannot invite yourself")
	}
	inviter, err := s.participant(ctx, in.InviterID)
	if err != nil {
		return model.Request{}, err
	}
	target, err := s.participant(ctx, in.TargetID)
	if apperr.CodeOf(err) == apperr.Forbidden {
		return model.Request{}, apperr.New(apperr.NotFound, "%s has no registered profile", in.TargetID)
	}
	if err != nil {
		return model.Request{}, err
	}
	warnings := append([]string{}, s.eval.Evaluate(target.Profile, inviter.Profile)...)

	var out model.Request
	err = s.update(ctx, func(u *unit) error {
		if in.AdminID == "" {
			if err := u.guard(in.InviterID); err != nil {
				return err
			}
		}
		ist, err := u.session(in.InviterID)
		if err != nil {
			return err
		}
		if ist.RoomID == "" {
			return apperr.New(apperr.Invalid, "%s does not occupy a room", in.InviterID)
		}
		room, err := s.room(ist.RoomID)
		if err != nil {
			return err
		}
		tst, err := u.session(in.TargetID)
		if err != nil {
			return err
		}
		if tst.RoomID != "" {
			return apperr.New(apperr.AlreadyAssigned, "%s already occupies room %s", in.TargetID, tst.RoomID)
		}
		if ok, why := room.Admits(target.Gender, target.SingleRoom); !ok {
			return apperr.New(apperr.ConstraintViolation, "%s", why)
		}

		r := &model.Request{
			ID:            s.reqRepo.NewID(),
			Kind:          model.RequestInvite,
			RequesterID:   in.InviterID,
			RequesterName: inviter.Profile.Name,
			TargetID:      in.TargetID,
			RoomID:        room.ID,
			JoinerID:      in.TargetID,
			CreatedBy:     in.AdminID,
			Status:        model.StatusPending,
			Warnings:      warnings,
			CreatedAt:     u.now,
			ExpiresAt:     u.now.Add(s.cfg.RequestTTL),
		}
		set, err := u.holdSet(room.ID)
		if err != nil {
			return err
		}
		if _, ok := set.Find(in.TargetID, u.now); ok {
			return apperr.New(apperr.Conflict, "%s already holds a slot in room %s; they can ask to join instead", in.TargetID, room.ID)
		}
		if err := u.openRequest(r); err != nil {
			return err
		}
		if _, err := u.placeHold(room, in.TargetID, r.ID, r.ExpiresAt); err != nil {
			return err
		}
		actor := in.InviterID
		if in.AdminID != "" {
			actor = in.AdminID
		}
		u.emit(model.Event{Kind: model.EventInvitationCreated, RoomID: room.ID, RequestID: r.ID,
			ActorID: actor, Recipients: []string{in.TargetID}, Warnings: warnings})
		out = *r
		return nil
	})
	return out, err
}

// Accept commits the joiner into the request's room.  When the room can no
// longer take the joiner the request expires with room_unavailable and the
// caller gets CONFLICT; the expiry is persisted either way.
func (s *Service) Accept(ctx context.Context, actorID, requestID string) (model.Request, error) {
	pre, err := s.reqRepo.Get(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Request{}, apperr.New(apperr.NotFound, "request %s not found", requestID)
	}
	if err != nil {
		return model.Request{}, s.mapErr(err)
	}
	if pre.TargetID != actorID {
		return model.Request{}, apperr.New(apperr.Forbidden, "only the invited party can accept")
	}
	joinerProfile, err := s.profiles.Get(ctx, pre.JoinerID)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		return model.Request{}, apperr.Wrap(apperr.Unavailable, err, "profile lookup failed")
	}
	joinerKnown := err == nil
	room, err := s.room(pre.RoomID)
	if err != nil {
		return model.Request{}, err
	}

	var out model.Request
	var outcome error
	err = s.update(ctx, func(u *unit) error {
		outcome = nil
		if err := u.guard(actorID); err != nil {
			return err
		}
		r, err := u.request(requestID)
		if err != nil {
			return err
		}
		out = *r
		if r.Status != model.StatusPending {
			outcome = apperr.New(apperr.Conflict, "request %s is %s", r.ID, r.Status)
			return nil
		}

		anchor, reason := r.RequesterID, model.ReasonRequesterLeft
		if r.Kind == model.RequestJoin {
			anchor, reason = r.TargetID, model.ReasonTargetLeft
		}
		ast, err := u.session(anchor)
		if err != nil {
			return err
		}
		occ, err := u.occupancy(r.RoomID)
		if err != nil {
			return err
		}
		if ast.RoomID != r.RoomID || !occ.Has(anchor) {
			return u.expireOnAccept(r, reason, &out, &outcome,
				apperr.New(apperr.Conflict, "%s no longer occupies room %s", anchor, r.RoomID))
		}

		set, err := u.holdSet(r.RoomID)
		if err != nil {
			return err
		}
		if h, ok := set.Find(r.JoinerID, u.now); !ok || h.RequestID != r.ID {
			return u.expireOnAccept(r, model.ReasonRoomUnavailable, &out, &outcome,
				apperr.New(apperr.Conflict, "the slot held for this request has lapsed; try another room"))
		}
		if !joinerKnown {
			return u.expireOnAccept(r, model.ReasonRequesterLeft, &out, &outcome,
				apperr.New(apperr.Conflict, "%s no longer has a registered profile", r.JoinerID))
		}
		joiner := sessionMember(joinerProfile)
		if err := u.checkCommit(room, []member{joiner}); err != nil {
			var ae *apperr.Error
			if !errors.As(err, &ae) {
				return err
			}
			return u.expireOnAccept(r, model.ReasonRoomUnavailable, &out, &outcome,
				apperr.Wrap(apperr.Conflict, err, "room can no longer take this roommate; try another room"))
		}

		if err := u.finish(r, model.StatusAccepted, ""); err != nil {
			return err
		}
		if _, err := u.applyCommit(room, []member{joiner}, actorID); err != nil {
			return err
		}
		u.emit(model.Event{Kind: model.EventRequestAccepted, RoomID: r.RoomID, RequestID: r.ID,
			ActorID: actorID, Recipients: []string{r.RequesterID}})
		out = *r
		return nil
	})
	if err != nil {
		return model.Request{}, err
	}
	return out, outcome
}

// expireOnAccept records a failed accept: the request is expired and
// persisted, and outcome carries the error for the caller.
func (u *unit) expireOnAccept(r *model.Request, reason string, out *model.Request, outcome *error, cause error) error {
	if err := u.finish(r, model.StatusExpired, reason); err != nil {
		return err
	}
	*out = *r
	*outcome = cause
	return nil
}

// Reject declines a request.  Only its target may reject; the requester
// is notified.
func (s *Service) Reject(ctx context.Context, actorID, requestID string) (model.Request, error) {
	var out model.Request
	var outcome error
	err := s.update(ctx, func(u *unit) error {
		outcome = nil
		r, err := u.request(requestID)
		if err != nil {
			return err
		}
		if r.TargetID != actorID {
			return apperr.New(apperr.Forbidden, "only the invited party can reject")
		}
		if err := u.guard(actorID); err != nil {
			return err
		}
		out = *r
		if r.Status != model.StatusPending {
			outcome = apperr.New(apperr.Conflict, "request %s is %s", r.ID, r.Status)
			return nil
		}
		if err := u.finish(r, model.StatusRejected, ""); err != nil {
			return err
		}
		u.emit(model.Event{Kind: model.EventRequestRejected, RoomID: r.RoomID, RequestID: r.ID,
			ActorID: actorID, Recipients: []string{r.RequesterID}})
		out = *r
		return nil
	})
	if err != nil {
		return model.Request{}, err
	}
	return out, outcome
}

// Cancel withdraws a request.  Unknown, expired and already-terminal
// requests are a no-op; the target is not notified.
func (s *Service) Cancel(ctx context.Context, actorID, requestID string) error {
	return s.update(ctx, func(u *unit) error {
		r, err := u.request(requestID)
		if apperr.CodeOf(err) == apperr.NotFound {
			return nil
		}
		if err != nil {
			return err
		}
		if r.Status.Terminal() {
			return nil
		}
		if actorID != r.RequesterID && (r.CreatedBy == "" || actorID != r.CreatedBy) {
			return apperr.New(apperr.Forbidden, "only the requester can cancel")
		}
		return u.finish(r, model.StatusCancelled, "")
	})
}

// Requests returns the session's pending outgoing and incoming requests.
func (s *Service) Requests(ctx context.Context, sessionID string) (Requests, error) {
	out := Requests{Incoming: []model.Request{}}
	err := s.view(ctx, func(u *unit) error {
		st, err := u.session(sessionID)
		if err != nil {
			return err
		}
		r, err := u.pendingRequest(st.OutgoingRequestID)
		if err != nil {
			return err
		}
		if r != nil {
			o := *r
			out.Outgoing = &o
		}
		for _, id := range append([]string(nil), st.Incoming...) {
			r, err := u.pendingRequest(id)
			if err != nil {
				return err
			}
			if r != nil {
				out.Incoming = append(out.Incoming, *r)
			}
		}
		return nil
	})
	return out, err
}
