package repository

import (
	"context"
	"time"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/store"
)

// OccupancyRepo provides access to the authoritative occupant lists.
type OccupancyRepo struct {
	s store.Store
}

// NewOccupancyRepo returns an OccupancyRepo bound to the given store.
func NewOccupancyRepo(s store.Store) *OccupancyRepo { return &OccupancyRepo{s: s} }

// LoadTx reads a room's occupancy.  A room nobody committed to reads as
// empty.
func (r *OccupancyRepo) LoadTx(tx store.Tx, roomID string) (*model.Occupancy, error) {
	occ := &model.Occupancy{}
	ok, err := loadTx(tx, OccupancyKey(roomID), occ)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &model.Occupancy{RoomID: roomID}, nil
	}
	return occ, nil
}

// SaveTx writes the occupancy, stamping UpdatedAt.
func (r *OccupancyRepo) SaveTx(tx store.Tx, occ *model.Occupancy, now time.Time) error {
	occ.UpdatedAt = now
	if len(occ.Occupants) == 0 {
		return tx.Delete(OccupancyKey(occ.RoomID))
	}
	return saveTx(tx, OccupancyKey(occ.RoomID), occ)
}

// Get reads a room's occupancy outside a transaction.
func (r *OccupancyRepo) Get(ctx context.Context, roomID string) (*model.Occupancy, error) {
	occ := &model.Occupancy{}
	ok, err := get(ctx, r.s, OccupancyKey(roomID), occ)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &model.Occupancy{RoomID: roomID}, nil
	}
	return occ, nil
}
