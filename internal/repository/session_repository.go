package repository

import (
	"context"
	"time"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/store"
)

// SessionRepo provides access to per-identity session state.  An identity
// that never touched the coordinator has a blank state, not an error.
type SessionRepo struct {
	s store.Store
}

// NewSessionRepo returns a SessionRepo bound to the given store.
func NewSessionRepo(s store.Store) *SessionRepo { return &SessionRepo{s: s} }

func (r *SessionRepo) LoadTx(tx store.Tx, sessionID string) (*model.SessionState, error) {
	st := &model.SessionState{}
	ok, err := loadTx(tx, SessionKey(sessionID), st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &model.SessionState{SessionID: sessionID}, nil
	}
	return st, nil
}

// SaveTx writes the state; a blank state removes the key.
func (r *SessionRepo) SaveTx(tx store.Tx, st *model.SessionState, now time.Time) error {
	if blank(st) {
		return tx.Delete(SessionKey(st.SessionID))
	}
	st.UpdatedAt = now
	return saveTx(tx, SessionKey(st.SessionID), st)
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*model.SessionState, error) {
	st := &model.SessionState{}
	ok, err := get(ctx, r.s, SessionKey(sessionID), st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &model.SessionState{SessionID: sessionID}, nil
	}
	return st, nil
}

func blank(st *model.SessionState) bool {
	return st.RoomID == "" && st.HeldRoomID == "" && st.OutgoingRequestID == "" &&
		len(st.Incoming) == 0 && st.Cancellation == nil
}
