package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	N int `cbor:"n"`
}

// exerciseStore runs the behavior every backend must share.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("missing key reads as absent", func(t *testing.T) {
		var c counter
		ok, err := s.Get(ctx, "missing", &c)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("update writes and get reads back", func(t *testing.T) {
		err := s.Update(ctx, func(tx Tx) error {
			return tx.Put("a", counter{N: 1})
		})
		require.NoError(t, err)

		var c counter
		ok, err := s.Get(ctx, "a", &c)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 1, c.N)
	})

	t.Run("reads observe own buffered writes", func(t *testing.T) {
		err := s.Update(ctx, func(tx Tx) error {
			if err := tx.Put("b", counter{N: 7}); err != nil {
				return err
			}
			var c counter
			ok, err := tx.Get("b", &c)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, 7, c.N)

			require.NoError(t, tx.Delete("b"))
			ok, err = tx.Get("b", &c)
			require.NoError(t, err)
			assert.False(t, ok)
			return nil
		})
		require.NoError(t, err)
		ok, err := s.Get(ctx, "b", &counter{})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("fn error writes nothing", func(t *testing.T) {
		boom := errors.New("boom")
		err := s.Update(ctx, func(tx Tx) error {
			if err := tx.Put("a", counter{N: 99}); err != nil {
				return err
			}
			if err := tx.Put("c", counter{N: 1}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		var c counter
		_, err = s.Get(ctx, "a", &c)
		require.NoError(t, err)
		assert.Equal(t, 1, c.N)
		ok, err := s.Get(ctx, "c", &c)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("watch signals writes to watched keys", func(t *testing.T) {
		wctx, cancel := context.WithCancel(ctx)
		ch, err := s.Watch(wctx, "w")
		require.NoError(t, err)

		require.NoError(t, s.Update(ctx, func(tx Tx) error { return tx.Put("other", counter{}) }))
		require.NoError(t, s.Update(ctx, func(tx Tx) error { return tx.Put("w", counter{N: 1}) }))

		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("no change signal for watched key")
		}

		cancel()
		require.Eventually(t, func() bool {
			select {
			case _, ok := <-ch:
				return !ok
			default:
				return false
			}
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryConcurrentUpdates(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(ctx, func(tx Tx) error {
				var c counter
				if _, err := tx.Get("n", &c); err != nil {
					return err
				}
				c.N++
				return tx.Put("n", c)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var c counter
	_, err := s.Get(ctx, "n", &c)
	require.NoError(t, err)
	assert.Equal(t, 50, c.N, "every increment must apply exactly once")
}

func TestMemoryClosed(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Close())
	_, err := s.Get(context.Background(), "a", &counter{})
	assert.ErrorIs(t, err, ErrClosed)
	err = s.Update(context.Background(), func(tx Tx) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryValuesAreCopied(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	v := &struct {
		IDs []string `cbor:"ids"`
	}{IDs: []string{"a"}}
	require.NoError(t, s.Update(ctx, func(tx Tx) error { return tx.Put("k", v) }))
	v.IDs[0] = "mutated"

	got := &struct {
		IDs []string `cbor:"ids"`
	}{}
	_, err := s.Get(ctx, "k", got)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.IDs)
	assert.Equal(t, 1, s.Len())
}
