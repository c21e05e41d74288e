package codec

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID        string    `cbor:"id"`
	Members   []string  `cbor:"members"`
	ExpiresAt time.Time `cbor:"expires_at"`
}

func TestDeterministicEncoding(t *testing.T) {
	a := map[string]int{"b": 2, "a": 1, "c": 3}
	first, err := Marshal(a)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(a)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(first, again))
	}
}

func TestTimePrecisionSurvives(t *testing.T) {
	in := sample{
		ID:        "r1",
		Members:   []string{"s1"},
		ExpiresAt: time.Date(2026, 3, 1, 9, 0, 0, 123456789, time.UTC),
	}
	raw, err := Marshal(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, Unmarshal(raw, &out))
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Members, out.Members)
	assert.True(t, in.ExpiresAt.Equal(out.ExpiresAt))
}
