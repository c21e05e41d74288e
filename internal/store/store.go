// Package store is the shared mutable store the coordinator runs against.
// It offers primitive reads and one atomic conditional update; it knows
// nothing about rooms, holds or requests.
//
// Values are encoded with the deterministic CBOR codec.  Three backends
// are provided: an in-process Memory store, Redis (WATCH/MULTI/EXEC) and
// MySQL (SELECT ... FOR UPDATE).
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/codec"
)

var (
	// ErrConflict is returned by Update when a concurrent writer changed a
	// key read by fn twice in a row.
	ErrConflict = errors.New("store: concurrent modification")
	// ErrUnavailable wraps backend connectivity failures.
	ErrUnavailable = errors.New("store: unavailable")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store: closed")
	// ErrDecode marks a stored value that could not be decoded into the
	// requested shape.
	ErrDecode = errors.New("store: undecodable value")
)

// Tx is the view fn gets inside Update.  Reads observe the transaction's
// own buffered writes.  Writes become visible to others only if Update
// returns nil.
type Tx interface {
	// Get decodes key into dst.  It reports false when the key is absent.
	Get(key string, dst any) (bool, error)
	// Put buffers an encoded write of v.
	Put(key string, v any) error
	// Delete buffers removal of key.  Deleting an absent key is a no-op.
	Delete(key string) error
}

// Store is the shared store boundary.
type Store interface {
	// Get is a plain read outside any transaction.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Update runs fn against current state and applies its writes
	// atomically, only if nothing fn read changed concurrently.  On a
	// concurrent modification fn is re-run once against fresh state; a
	// second abort returns ErrConflict.  fn must not have side effects
	// outside tx.  An error returned by fn aborts without writing.
	Update(ctx context.Context, fn func(tx Tx) error) error
	// Watch delivers a signal whenever one of keys is written.  Signals
	// coalesce; the channel is closed when ctx ends.
	Watch(ctx context.Context, keys ...string) (<-chan struct{}, error)
	Close() error
}

// maxAttempts bounds how many times Update runs fn.
const maxAttempts = 2

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// buffer collects a transaction's writes in order.  A nil value marks a
// delete.
type buffer struct {
	writes map[string][]byte
	order  []string
}

func newBuffer() *buffer {
	return &buffer{writes: map[string][]byte{}}
}

func (b *buffer) put(key string, v any) error {
	data, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	b.set(key, data)
	return nil
}

func (b *buffer) del(key string) { b.set(key, nil) }

func (b *buffer) set(key string, data []byte) {
	if _, seen := b.writes[key]; !seen {
		b.order = append(b.order, key)
	}
	b.writes[key] = data
}

// lookup returns a buffered value.  ok is false when key was not written
// in this transaction.
func (b *buffer) lookup(key string) (data []byte, ok bool) {
	data, ok = b.writes[key]
	return data, ok
}

func (b *buffer) empty() bool { return len(b.order) == 0 }

func decode(key string, data []byte, dst any) error {
	if err := codec.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, key, err)
	}
	return nil
}

// readBuffered serves a Tx read from the write buffer when possible.
// handled is false when the caller must read from the backend.
func readBuffered(b *buffer, key string, dst any) (found, handled bool, err error) {
	data, ok := b.lookup(key)
	if !ok {
		return false, false, nil
	}
	if data == nil {
		return false, true, nil
	}
	return true, true, decode(key, data, dst)
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
