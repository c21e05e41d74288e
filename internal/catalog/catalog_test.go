package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
)

const sample = `
rooms:
  - id: B201
    name: B-201
    capacity: 2
    gender: FEMALE
  - id: A301
    capacity: 2
    gender: MALE
  - id: S101
    capacity: 1
    single_room: true
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	t.Run("list is ordered by id", func(t *testing.T) {
		var ids []string
		for _, r := range c.List() {
			ids = append(ids, r.ID)
		}
		assert.Equal(t, []string{"A301", "B201", "S101"}, ids)
	})

	t.Run("defaults", func(t *testing.T) {
		r, err := c.Get("S101")
		require.NoError(t, err)
		assert.Equal(t, model.GenderAny, r.Gender)
		assert.Equal(t, "S101", r.Name)
		assert.True(t, r.SingleRoomEligible)

		r, err = c.Get("B201")
		require.NoError(t, err)
		assert.Equal(t, "B-201", r.Name)
	})

	t.Run("unknown room", func(t *testing.T) {
		_, err := c.Get("Z999")
		assert.ErrorIs(t, err, ErrUnknownRoom)
	})
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", "rooms: []"},
		{"bad capacity", "rooms:\n  - id: A\n    capacity: 3\n"},
		{"zero capacity", "rooms:\n  - id: A\n"},
		{"missing id", "rooms:\n  - capacity: 1\n"},
		{"slash in id", "rooms:\n  - id: a/b\n    capacity: 1\n"},
		{"bad gender", "rooms:\n  - id: A\n    capacity: 1\n    gender: OTHER\n"},
		{"duplicate", "rooms:\n  - id: A\n    capacity: 1\n  - id: A\n    capacity: 2\n"},
		{"not yaml", "rooms: [:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
