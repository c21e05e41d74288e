// Package repository maps the coordinator's records onto store keys.  Each
// repository reads and writes one record family through a store.Tx, so a
// service operation can touch several families inside one atomic update.
// Records are validated on the way in; a value that fails to decode or
// validate never reaches business logic.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/store"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("not found")

// ErrMalformedRecord is returned when a stored value cannot be decoded or
// fails validation.  Handlers should translate this into a 503: the data
// is unusable until an operator repairs it.
var ErrMalformedRecord = errors.New("malformed record")

type record interface {
	Validate() error
}

// loadTx reads key into dst and validates it.  It reports false for an
// absent key.
func loadTx(tx store.Tx, key string, dst record) (bool, error) {
	ok, err := tx.Get(key, dst)
	if err != nil {
		if errors.Is(err, store.ErrDecode) {
			return false, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := dst.Validate(); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, key, err)
	}
	return true, nil
}

// saveTx validates v before buffering it, so a bug never persists a record
// readers would reject.
func saveTx(tx store.Tx, key string, v record) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("refusing to store %s: %w", key, err)
	}
	return tx.Put(key, v)
}

// get is loadTx for reads outside a transaction.
func get(ctx context.Context, s store.Store, key string, dst record) (bool, error) {
	ok, err := s.Get(ctx, key, dst)
	if err != nil {
		if errors.Is(err, store.ErrDecode) {
			return false, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := dst.Validate(); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, key, err)
	}
	return true, nil
}
