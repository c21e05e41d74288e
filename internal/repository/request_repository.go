package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/store"
)

// RequestRepo provides access to consensus requests and the pair index
// that enforces at most one pending request per (requester, target).
type RequestRepo struct {
	s store.Store
}

// NewRequestRepo returns a RequestRepo bound to the given store.
func NewRequestRepo(s store.Store) *RequestRepo { return &RequestRepo{s: s} }

// NewID returns a fresh request id.
func (r *RequestRepo) NewID() string { return uuid.NewString() }

// pairEntry is the value stored under pair/<requester>/<target>.
type pairEntry struct {
	RequestID string `cbor:"request_id"`
}

func (p *pairEntry) Validate() error {
	if p.RequestID == "" {
		return errors.New("pair: request_id is required")
	}
	return nil
}

// LoadTx returns the request or ErrNotFound.
func (r *RequestRepo) LoadTx(tx store.Tx, id string) (*model.Request, error) {
	req := &model.Request{}
	ok, err := loadTx(tx, RequestKey(id), req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	return req, nil
}

func (r *RequestRepo) SaveTx(tx store.Tx, req *model.Request) error {
	return saveTx(tx, RequestKey(req.ID), req)
}

// PairTx returns the id recorded for the pair, or "" when none.
func (r *RequestRepo) PairTx(tx store.Tx, requesterID, targetID string) (string, error) {
	var p pairEntry
	ok, err := loadTx(tx, pairKey(requesterID, targetID), &p)
	if err != nil || !ok {
		return "", err
	}
	return p.RequestID, nil
}

func (r *RequestRepo) SetPairTx(tx store.Tx, req *model.Request) error {
	return saveTx(tx, pairKey(req.RequesterID, req.TargetID), &pairEntry{RequestID: req.ID})
}

// ClearPairTx drops the pair index entry, but only if it still points at
// req; a newer request for the same pair is left alone.
func (r *RequestRepo) ClearPairTx(tx store.Tx, req *model.Request) error {
	id, err := r.PairTx(tx, req.RequesterID, req.TargetID)
	if err != nil {
		return err
	}
	if id != req.ID {
		return nil
	}
	return tx.Delete(pairKey(req.RequesterID, req.TargetID))
}

// Get reads a request outside a transaction.
func (r *RequestRepo) Get(ctx context.Context, id string) (*model.Request, error) {
	req := &model.Request{}
	ok, err := get(ctx, r.s, RequestKey(id), req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	return req, nil
}
