package service

import (
	"context"
	"iter"
	"time"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/repository"
)

// SubscribeRoom yields the room as seen by viewerID: the current snapshot
// first, then a fresh one after every change to the room's occupancy or
// holds, and at least every PollInterval so countdowns advance.  The
// sequence ends when ctx is done or the consumer stops; ranging over it
// again starts a new subscription.
func (s *Service) SubscribeRoom(ctx context.Context, roomID, viewerID string) iter.Seq2[RoomView, error] {
	return func(yield func(RoomView, error) bool) {
		if _, err := s.room(roomID); err != nil {
			yield(RoomView{}, err)
			return
		}
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		changes, err := s.store.Watch(wctx, repository.OccupancyKey(roomID), repository.HoldsKey(roomID))
		if err != nil {
			yield(RoomView{}, s.mapErr(err))
			return
		}

		tick := time.NewTicker(s.cfg.PollInterval)
		defer tick.Stop()
		for {
			v, err := s.RoomView(ctx, roomID, viewerID)
			if ctx.Err() != nil || !yield(v, err) {
				return
			}
			if !wait(ctx, &changes, tick.C) {
				return
			}
		}
	}
}

// SubscribeSession yields the session's SessionView the same way
// SubscribeRoom does.  The watched keys follow the session: its own
// record, the room it occupies or holds, and its live requests.
func (s *Service) SubscribeSession(ctx context.Context, sessionID string) iter.Seq2[SessionView, error] {
	return func(yield func(SessionView, error) bool) {
		tick := time.NewTicker(s.cfg.PollInterval)
		defer tick.Stop()

		var (
			keys    []string
			changes <-chan struct{}
			stop    = func() {}
		)
		defer func() { stop() }()

		for {
			v, err := s.Status(ctx, sessionID)
			if ctx.Err() != nil || !yield(v, err) {
				return
			}
			if want := sessionKeys(sessionID, v); !sameIDs(want, keys) {
				stop()
				wctx, cancel := context.WithCancel(ctx)
				ch, err := s.store.Watch(wctx, want...)
				if err != nil {
					cancel()
					s.log.Warn("session watch failed, polling only", "error", err)
					ch, cancel = nil, func() {}
				}
				keys, changes, stop = want, ch, cancel
			}
			if !wait(ctx, &changes, tick.C) {
				return
			}
		}
	}
}

// wait blocks until a change signal, a poll tick or the end of ctx.  A
// closed change channel is dropped so the caller falls back to polling.
func wait(ctx context.Context, changes *<-chan struct{}, tick <-chan time.Time) bool {
	select {
	case <-ctx.Done():
		return false
	case _, ok := <-*changes:
		if !ok {
			*changes = nil
		}
	case <-tick:
	}
	return true
}

func sessionKeys(sessionID string, v SessionView) []string {
	keys := []string{repository.SessionKey(sessionID)}
	if v.RoomID != "" {
		keys = append(keys, repository.OccupancyKey(v.RoomID))
	}
	if v.Hold != nil {
		keys = append(keys, repository.HoldsKey(v.Hold.RoomID))
	}
	if v.Outgoing != nil {
		keys = append(keys, repository.RequestKey(v.Outgoing.ID))
	}
	for _, r := range v.Incoming {
		keys = append(keys, repository.RequestKey(r.ID))
	}
	return keys
}
