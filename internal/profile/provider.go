// Package profile supplies participant attributes (gender, single-room
// request, comfort preferences) keyed by session identity.  Profiles are
// owned by the registration system; the coordinator only reads them.
package profile

import (
	"context"
	"errors"
	"sync"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
)

// ErrNotFound is returned when no profile exists for a session id.
var ErrNotFound = errors.New("profile not found")

// Provider looks up a participant's attributes.
type Provider interface {
	Get(ctx context.Context, sessionID string) (model.Profile, error)
}

// Memory is an in-process Provider, used in tests and for the memory store
// backend.
type Memory struct {
	mu       sync.RWMutex
	profiles map[string]model.Profile
}

func NewMemory(profiles ...model.Profile) *Memory {
	m := &Memory{profiles: make(map[string]model.Profile, len(profiles))}
	for _, p := range profiles {
		m.profiles[p.SessionID] = p
	}
	return m
}

func (m *Memory) Get(ctx context.Context, sessionID string) (model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[sessionID]
	if !ok {
		return model.Profile{}, ErrNotFound
	}
	return p, nil
}

// Put adds or replaces a profile.
func (m *Memory) Put(p model.Profile) {
	m.mu.Lock()
	m.profiles[p.SessionID] = p
	m.mu.Unlock()
}
