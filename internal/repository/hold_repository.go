package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/store"
)

// HoldRepo provides access to the per-room hold lists.  Expired holds are
// pruned on every load, so callers never see them; the pruned list is
// persisted the next time the caller saves the room's holds.
type HoldRepo struct {
	s store.Store
}

// NewHoldRepo returns a HoldRepo bound to the given store.
func NewHoldRepo(s store.Store) *HoldRepo { return &HoldRepo{s: s} }

// LoadTx returns the room's active holds at now.  A room without holds
// yields an empty set.
func (r *HoldRepo) LoadTx(tx store.Tx, roomID string, now time.Time) (*model.HoldSet, error) {
	set := &model.HoldSet{}
	ok, err := loadTx(tx, HoldsKey(roomID), set)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &model.HoldSet{RoomID: roomID}, nil
	}
	set.Prune(now)
	return set, nil
}

// SaveTx writes the hold list, deleting the key once it is empty.
func (r *HoldRepo) SaveTx(tx store.Tx, set *model.HoldSet) error {
	if len(set.Holds) == 0 {
		return tx.Delete(HoldsKey(set.RoomID))
	}
	return saveTx(tx, HoldsKey(set.RoomID), set)
}

// Get reads the room's active holds outside a transaction, for views.
func (r *HoldRepo) Get(ctx context.Context, roomID string, now time.Time) (*model.HoldSet, error) {
	set := &model.HoldSet{}
	ok, err := get(ctx, r.s, HoldsKey(roomID), set)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &model.HoldSet{RoomID: roomID}, nil
	}
	set.Prune(now)
	return set, nil
}

// randomToken generates a random hexadecimal string of length n*2.  It
// populates Hold.Token, which the client echoes back for correlation.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewHold builds a hold for holderID on roomID lasting until expiresAt.
// A fresh token is generated for every hold.
func NewHold(roomID, holderID, requestID string, now, expiresAt time.Time) (model.Hold, error) {
	token, err := randomToken(16)
	if err != nil {
		return model.Hold{}, err
	}
	return model.Hold{
		RoomID:    roomID,
		HolderID:  holderID,
		Token:     token,
		RequestID: requestID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}
