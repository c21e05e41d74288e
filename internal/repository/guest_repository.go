package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/store"
)

// GuestRepo provides access to temporary guest records.  Records are
// retired, never deleted.
type GuestRepo struct {
	s store.Store
}

func NewGuestRepo(s store.Store) *GuestRepo { return &GuestRepo{s: s} }

// NewID returns a fresh temporary guest id.
func (r *GuestRepo) NewID() string { return "tg-" + uuid.NewString() }

// LoadTx returns the guest or ErrNotFound.
func (r *GuestRepo) LoadTx(tx store.Tx, id string) (*model.TempGuest, error) {
	g := &model.TempGuest{}
	ok, err := loadTx(tx, GuestKey(id), g)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("guest %s: %w", id, ErrNotFound)
	}
	return g, nil
}

// ExistsTx reports whether a guest record exists under id.
func (r *GuestRepo) ExistsTx(tx store.Tx, id string) (bool, error) {
	return loadTx(tx, GuestKey(id), &model.TempGuest{})
}

func (r *GuestRepo) SaveTx(tx store.Tx, g *model.TempGuest) error {
	return saveTx(tx, GuestKey(g.ID), g)
}

func (r *GuestRepo) Get(ctx context.Context, id string) (*model.TempGuest, error) {
	g := &model.TempGuest{}
	ok, err := get(ctx, r.s, GuestKey(id), g)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("guest %s: %w", id, ErrNotFound)
	}
	return g, nil
}
