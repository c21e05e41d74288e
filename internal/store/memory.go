package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store.  Updates are serialized by a single
// lock held for the whole of fn, so they never conflict.  Values are
// copied in and out to prevent aliasing.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool

	subMu sync.Mutex
	subs  map[string]map[chan struct{}]struct{}
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string][]byte),
		subs: make(map[string]map[chan struct{}]struct{}),
	}
}

func (m *Memory) Get(ctx context.Context, key string, dst any) (bool, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return false, ErrClosed
	}
	data, ok := m.data[key]
	if ok {
		data = copyBytes(data)
	}
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, decode(key, data, dst)
}

type memoryTx struct {
	m   *Memory
	buf *buffer
}

func (t *memoryTx) Get(key string, dst any) (bool, error) {
	if found, handled, err := readBuffered(t.buf, key, dst); handled {
		return found, err
	}
	data, ok := t.m.data[key]
	if !ok {
		return false, nil
	}
	return true, decode(key, copyBytes(data), dst)
}

func (t *memoryTx) Put(key string, v any) error { return t.buf.put(key, v) }

func (t *memoryTx) Delete(key string) error {
	t.buf.del(key)
	return nil
}

func (m *Memory) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	tx := &memoryTx{m: m, buf: newBuffer()}
	if err := fn(tx); err != nil {
		m.mu.Unlock()
		return err
	}
	for _, k := range tx.buf.order {
		if v := tx.buf.writes[k]; v == nil {
			delete(m.data, k)
		} else {
			m.data[k] = copyBytes(v)
		}
	}
	m.mu.Unlock()

	m.notify(tx.buf.order)
	return nil
}

func (m *Memory) notify(keys []string) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, k := range keys {
		for ch := range m.subs[k] {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

func (m *Memory) Watch(ctx context.Context, keys ...string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	m.subMu.Lock()
	for _, k := range keys {
		if m.subs[k] == nil {
			m.subs[k] = make(map[chan struct{}]struct{})
		}
		m.subs[k][ch] = struct{}{}
	}
	m.subMu.Unlock()

	go func() {
		<-ctx.Done()
		m.subMu.Lock()
		for _, k := range keys {
			delete(m.subs[k], ch)
			if len(m.subs[k]) == 0 {
				delete(m.subs, k)
			}
		}
		close(ch)
		m.subMu.Unlock()
	}()
	return ch, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Len is the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
