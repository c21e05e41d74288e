// Package service is the room reservation and roommate consensus
// coordinator.  Every state-changing operation runs as exactly one
// store.Update; all domain rules are re-checked against the state read
// inside that update, never against an earlier read.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/apperr"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/catalog"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/clock"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/logger"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/matching"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/profile"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/repository"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/store"
)

// Defaults applied by New when Config leaves a field zero.
const (
	DefaultHoldTTL      = 5 * time.Minute
	DefaultPollInterval = time.Second
)

// Config holds the coordinator's timing knobs.
type Config struct {
	// HoldTTL is the lifetime of a hold acquired without an explicit ttl.
	HoldTTL time.Duration
	// MaxHoldTTL caps an explicit ttl passed to Acquire.  Zero means
	// HoldTTL.
	MaxHoldTTL time.Duration
	// RequestTTL is how long a pending request (and the hold tied to it)
	// lives.  Zero means twice HoldTTL.
	RequestTTL time.Duration
	// PollInterval bounds how long a subscription waits between snapshots
	// when nothing changes, so countdowns keep moving.
	PollInterval time.Duration
}

// Deps are the collaborators of a Service.  Store, Catalog and Profiles
// are required.
type Deps struct {
	Store     store.Store
	Catalog   *catalog.Catalog
	Profiles  profile.Provider
	Clock     clock.Clock
	Publisher Publisher
	Logger    *logger.Logger
	Evaluator matching.Evaluator
}

// Service coordinates holds, consensus requests, commits and admin
// overrides.  Safe for concurrent use; it holds no mutable state of its
// own.
type Service struct {
	store    store.Store
	rooms    *catalog.Catalog
	profiles profile.Provider
	clock    clock.Clock
	pub      Publisher
	log      *logger.Logger
	eval     matching.Evaluator
	cfg      Config

	holdRepo    *repository.HoldRepo
	occRepo     *repository.OccupancyRepo
	sessionRepo *repository.SessionRepo
	reqRepo     *repository.RequestRepo
	guestRepo   *repository.GuestRepo
}

// New constructs a Service.  It panics when a required dependency is nil.
func New(d Deps, cfg Config) *Service {
	if d.Store == nil || d.Catalog == nil || d.Profiles == nil {
		panic("nil dependency passed to service.New")
	}
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Publisher == nil {
		d.Publisher = NopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Evaluator.AgeGapYears <= 0 {
		d.Evaluator = matching.Default
	}
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = DefaultHoldTTL
	}
	if cfg.MaxHoldTTL < cfg.HoldTTL {
		cfg.MaxHoldTTL = cfg.HoldTTL
	}
	if cfg.RequestTTL <= 0 {
		cfg.RequestTTL = 2 * cfg.HoldTTL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Service{
		store:       d.Store,
		rooms:       d.Catalog,
		profiles:    d.Profiles,
		clock:       d.Clock,
		pub:         d.Publisher,
		log:         d.Logger.With("component", "coordinator"),
		eval:        d.Evaluator,
		cfg:         cfg,
		holdRepo:    repository.NewHoldRepo(d.Store),
		occRepo:     repository.NewOccupancyRepo(d.Store),
		sessionRepo: repository.NewSessionRepo(d.Store),
		reqRepo:     repository.NewRequestRepo(d.Store),
		guestRepo:   repository.NewGuestRepo(d.Store),
	}
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// Rooms returns the catalog the service validates against.
func (s *Service) Rooms() *catalog.Catalog { return s.rooms }

func (s *Service) room(id string) (model.Room, error) {
	r, err := s.rooms.Get(id)
	if err != nil {
		return model.Room{}, apperr.New(apperr.NotFound, "room %s not found", id)
	}
	return r, nil
}

// participant resolves the caller's profile.  A session without a
// registered profile cannot take part.
func (s *Service) participant(ctx context.Context, sessionID string) (member, error) {
	if sessionID == "" {
		return member{}, apperr.New(apperr.Forbidden, "no session identity")
	}
	p, err := s.profiles.Get(ctx, sessionID)
	if errors.Is(err, profile.ErrNotFound) {
		return member{}, apperr.New(apperr.Forbidden, "session %s has no registered profile", sessionID)
	}
	if err != nil {
		return member{}, apperr.Wrap(apperr.Unavailable, err, "profile lookup failed")
	}
	return sessionMember(p), nil
}

// update runs fn as one atomic store update.  A fresh unit is built for
// every attempt, so a re-run after a concurrent modification starts from
// current state.  Events collected by the successful attempt are
// published after commit.
func (s *Service) update(ctx context.Context, fn func(u *unit) error) error {
	var events []model.Event
	err := s.store.Update(ctx, func(tx store.Tx) error {
		u := s.newUnit(tx)
		if err := fn(u); err != nil {
			return err
		}
		if err := u.flush(); err != nil {
			return err
		}
		events = u.events
		return nil
	})
	if err != nil {
		return s.mapErr(err)
	}
	s.publish(ctx, events)
	return nil
}

// view runs fn against a read-only snapshot.  Lazy expiry is applied in
// memory but not persisted; the next update touching the records does
// that.
func (s *Service) view(ctx context.Context, fn func(u *unit) error) error {
	u := s.newUnit(&readTx{ctx: ctx, s: s.store})
	if err := fn(u); err != nil {
		return s.mapErr(err)
	}
	return nil
}

func (s *Service) mapErr(err error) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return err
	case errors.Is(err, store.ErrConflict):
		return apperr.Wrap(apperr.Conflict, err, "state changed concurrently; re-fetch and try again")
	case errors.Is(err, repository.ErrMalformedRecord):
		s.log.Error("malformed record in store", "error", err)
		return apperr.Wrap(apperr.Unavailable, err, "stored data is unreadable")
	default:
		return apperr.Wrap(apperr.Unavailable, err, "store unavailable")
	}
}

func (s *Service) publish(ctx context.Context, events []model.Event) {
	for _, ev := range events {
		s.log.Info("transition committed", "event", ev.Kind, "room", ev.RoomID, "request", ev.RequestID)
		if err := s.pub.Publish(ctx, ev); err != nil {
			s.log.Warn("publish event failed", "event", ev.Kind, "error", err)
		}
	}
}

// readTx adapts plain store reads to the Tx interface for views.  Writes
// are discarded.
type readTx struct {
	ctx context.Context
	s   store.Store
}

func (t *readTx) Get(key string, dst any) (bool, error) { return t.s.Get(t.ctx, key, dst) }
func (t *readTx) Put(string, any) error                { return nil }
func (t *readTx) Delete(string) error                  { return nil }

// member is an identity about to occupy a slot, with the attributes the
// room constraints need.
type member struct {
	ID         string
	Kind       model.OccupantKind
	Gender     model.Gender
	SingleRoom bool
	Profile    model.Profile
}

func sessionMember(p model.Profile) member {
	return member{ID: p.SessionID, Kind: model.OccupantSession, Gender: p.Gender, SingleRoom: p.SingleRoom, Profile: p}
}

func guestMember(g model.TempGuest) member {
	return member{ID: g.ID, Kind: model.OccupantGuest, Gender: g.Gender, SingleRoom: g.SingleRoom, Profile: model.GuestProfile(g)}
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func errNotAssigned(id, roomID string) error {
	return apperr.New(apperr.NotFound, "%s does not occupy room %s", id, roomID)
}
