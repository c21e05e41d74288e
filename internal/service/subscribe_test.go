package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/apperr"
)

func TestSubscribeRoomYieldsOnChange(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var seen []int
	for v, err := range f.svc.SubscribeRoom(ctx, "R2", sessE) {
		require.NoError(t, err)
		seen = append(seen, v.Occupied)
		if len(seen) == 1 {
			go func() {
				_, err := f.svc.Select(context.Background(), sessD, "R2")
				assert.NoError(t, err)
			}()
		}
		if v.Occupied == 1 {
			break
		}
	}
	require.NoError(t, ctx.Err(), "the change was never observed")
	assert.Equal(t, 0, seen[0])
	assert.Equal(t, 1, seen[len(seen)-1])
}

func TestSubscribeRoomUnknownRoom(t *testing.T) {
	f := newFixture(t)
	n := 0
	for _, err := range f.svc.SubscribeRoom(context.Background(), "nope", sessE) {
		assertCode(t, apperr.NotFound, err)
		n++
	}
	assert.Equal(t, 1, n)
}

func TestSubscribeRoomEndsWithContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan int)
	go func() {
		n := 0
		for range f.svc.SubscribeRoom(ctx, "R2", sessE) {
			n++
		}
		done <- n
	}()
	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case n := <-done:
		assert.GreaterOrEqual(t, n, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end after cancel")
	}
}

func TestSubscribeSessionFollowsState(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var states []SessionState
	for v, err := range f.svc.SubscribeSession(ctx, sessD) {
		require.NoError(t, err)
		states = append(states, v.State)
		switch {
		case len(states) == 1:
			go func() {
				_, err := f.svc.Acquire(context.Background(), "R2", sessD, 0)
				assert.NoError(t, err)
			}()
		case v.State == StateHolding:
			go func() {
				_, err := f.svc.Select(context.Background(), sessD, "R2")
				assert.NoError(t, err)
			}()
		}
		if v.State == StateAssigned {
			break
		}
	}
	require.NoError(t, ctx.Err(), "the session never reached ASSIGNED")
	assert.Equal(t, StateNone, states[0])
	assert.Contains(t, states, StateHolding)
}
