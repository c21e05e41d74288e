package service

import (
	"errors"
	"time"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/apperr"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/repository"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/store"
)

// unit is the working set of one update attempt.  Each record is loaded
// at most once and shared by every helper, so two helpers touching the
// same session never overwrite each other's changes.  Records marked
// dirty are written by flush in first-touch order.
type unit struct {
	s   *Service
	tx  store.Tx
	now time.Time

	occ      map[string]*model.Occupancy
	holds    map[string]*model.HoldSet
	sessions map[string]*model.SessionState
	requests map[string]*model.Request
	guests   map[string]*model.TempGuest

	dirty  map[string]func() error
	order  []string
	events []model.Event
}

func (s *Service) newUnit(tx store.Tx) *unit {
	return &unit{
		s:        s,
		tx:       tx,
		now:      s.clock.Now(),
		occ:      map[string]*model.Occupancy{},
		holds:    map[string]*model.HoldSet{},
		sessions: map[string]*model.SessionState{},
		requests: map[string]*model.Request{},
		guests:   map[string]*model.TempGuest{},
		dirty:    map[string]func() error{},
	}
}

func (u *unit) mark(key string, save func() error) {
	if _, seen := u.dirty[key]; !seen {
		u.order = append(u.order, key)
	}
	u.dirty[key] = save
}

func (u *unit) flush() error {
	for _, k := range u.order {
		if err := u.dirty[k](); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) emit(ev model.Event) {
	ev.At = u.now
	u.events = append(u.events, ev)
}

func (u *unit) occupancy(roomID string) (*model.Occupancy, error) {
	if o, ok := u.occ[roomID]; ok {
		return o, nil
	}
	o, err := u.s.occRepo.LoadTx(u.tx, roomID)
	if err != nil {
		return nil, err
	}
	u.occ[roomID] = o
	return o, nil
}

func (u *unit) touchOccupancy(o *model.Occupancy) {
	u.mark(repository.OccupancyKey(o.RoomID), func() error { return u.s.occRepo.SaveTx(u.tx, o, u.now) })
}

func (u *unit) holdSet(roomID string) (*model.HoldSet, error) {
	if h, ok := u.holds[roomID]; ok {
		return h, nil
	}
	h, err := u.s.holdRepo.LoadTx(u.tx, roomID, u.now)
	if err != nil {
		return nil, err
	}
	u.holds[roomID] = h
	return h, nil
}

func (u *unit) touchHolds(h *model.HoldSet) {
	u.mark(repository.HoldsKey(h.RoomID), func() error { return u.s.holdRepo.SaveTx(u.tx, h) })
}

func (u *unit) session(id string) (*model.SessionState, error) {
	if st, ok := u.sessions[id]; ok {
		return st, nil
	}
	st, err := u.s.sessionRepo.LoadTx(u.tx, id)
	if err != nil {
		return nil, err
	}
	u.sessions[id] = st
	return st, nil
}

func (u *unit) touchSession(st *model.SessionState) {
	u.mark(repository.SessionKey(st.SessionID), func() error { return u.s.sessionRepo.SaveTx(u.tx, st, u.now) })
}

func (u *unit) guest(id string) (*model.TempGuest, error) {
	if g, ok := u.guests[id]; ok {
		return g, nil
	}
	g, err := u.s.guestRepo.LoadTx(u.tx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "temporary guest %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	u.guests[id] = g
	return g, nil
}

func (u *unit) touchGuest(g *model.TempGuest) {
	u.guests[g.ID] = g
	u.mark(repository.GuestKey(g.ID), func() error { return u.s.guestRepo.SaveTx(u.tx, g) })
}

// request loads a request and applies lazy expiry: a pending request past
// its ExpiresAt is moved to EXPIRED before anyone sees it.
func (u *unit) request(id string) (*model.Request, error) {
	if r, ok := u.requests[id]; ok {
		return r, nil
	}
	r, err := u.s.reqRepo.LoadTx(u.tx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "request %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	u.requests[id] = r
	if r.ExpiredAt(u.now) {
		if err := u.finish(r, model.StatusExpired, model.ReasonTimedOut); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (u *unit) touchRequest(r *model.Request) {
	u.requests[r.ID] = r
	u.mark(repository.RequestKey(r.ID), func() error { return u.s.reqRepo.SaveTx(u.tx, r) })
}

// pendingRequest returns the request only while it is still pending.
func (u *unit) pendingRequest(id string) (*model.Request, error) {
	if id == "" {
		return nil, nil
	}
	r, err := u.request(id)
	if apperr.CodeOf(err) == apperr.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if r.Status != model.StatusPending {
		return nil, nil
	}
	return r, nil
}

// finish moves r to a terminal state and unwinds everything that pointed
// at it: the pair index, both sessions' request pointers and the hold
// that backed it.
func (u *unit) finish(r *model.Request, to model.RequestStatus, reason string) error {
	if err := r.Resolve(to, reason, u.now); err != nil {
		return apperr.New(apperr.Conflict, "%v", err)
	}
	u.touchRequest(r)
	if err := u.s.reqRepo.ClearPairTx(u.tx, r); err != nil {
		return err
	}

	requester, err := u.session(r.RequesterID)
	if err != nil {
		return err
	}
	if requester.OutgoingRequestID == r.ID {
		requester.OutgoingRequestID = ""
		u.touchSession(requester)
	}
	target, err := u.session(r.TargetID)
	if err != nil {
		return err
	}
	if n := len(target.Incoming); n > 0 {
		target.DropIncoming(r.ID)
		if len(target.Incoming) != n {
			u.touchSession(target)
		}
	}

	set, err := u.holdSet(r.RoomID)
	if err != nil {
		return err
	}
	if h, ok := set.Find(r.JoinerID, u.now); ok && h.RequestID == r.ID {
		set.Drop(r.JoinerID)
		u.touchHolds(set)
	}
	joiner, err := u.session(r.JoinerID)
	if err != nil {
		return err
	}
	if _, held := set.Find(r.JoinerID, u.now); !held && joiner.HeldRoomID == r.RoomID {
		joiner.HeldRoomID = ""
		u.touchSession(joiner)
	}
	return nil
}

// guard refuses participant actions while an administrative cancellation
// is unacknowledged.
func (u *unit) guard(sessionID string) error {
	st, err := u.session(sessionID)
	if err != nil {
		return err
	}
	if c := st.Cancellation; c != nil {
		return apperr.New(apperr.AssignmentCancelled,
			"your assignment in room %s was cancelled by an administrator; acknowledge to continue", c.RoomID)
	}
	return nil
}
