package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomAdmits(t *testing.T) {
	male := Room{ID: "R", Capacity: 2, Gender: GenderMale}
	single := Room{ID: "S", Capacity: 1, Gender: GenderAny, SingleRoomEligible: true}

	tests := []struct {
		name   string
		room   Room
		gender Gender
		single bool
		want   bool
	}{
		{"male into male room", male, GenderMale, false, true},
		{"female into male room", male, GenderFemale, false, false},
		{"single requester into single room", single, GenderFemale, true, true},
		{"shared requester into single room", single, GenderMale, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, why := tt.room.Admits(tt.gender, tt.single)
			assert.Equal(t, tt.want, ok)
			if !ok {
				assert.NotEmpty(t, why)
			}
		})
	}
}

func TestParseGender(t *testing.T) {
	g, err := ParseGender(" f ")
	require.NoError(t, err)
	assert.Equal(t, GenderFemale, g)
	g, err = ParseGender("")
	require.NoError(t, err)
	assert.Equal(t, GenderAny, g)
	_, err = ParseGender("x")
	assert.Error(t, err)
}

func TestHoldSet(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := HoldSet{RoomID: "R", Holds: []Hold{
		{RoomID: "R", HolderID: "a", ExpiresAt: now.Add(time.Minute)},
		{RoomID: "R", HolderID: "b", ExpiresAt: now.Add(-time.Second)},
		{RoomID: "R", HolderID: "c", ExpiresAt: now.Add(30 * time.Second)},
	}}
	require.NoError(t, s.Validate())

	_, ok := s.Find("b", now)
	assert.False(t, ok, "expired hold must read as absent")
	assert.Equal(t, 2, s.ActiveExcept(now, nil))
	assert.Equal(t, 1, s.ActiveExcept(now, map[string]bool{"a": true}))
	assert.Equal(t, 30*time.Second, s.NearestExpiryExcept(now, nil))
	assert.Equal(t, time.Minute, s.NearestExpiryExcept(now, map[string]bool{"c": true}))

	assert.True(t, s.Prune(now))
	assert.Len(t, s.Holds, 2)
	assert.False(t, s.Prune(now))

	s.Put(Hold{RoomID: "R", HolderID: "a", ExpiresAt: now.Add(2 * time.Minute)})
	h, ok := s.Find("a", now)
	require.True(t, ok)
	assert.Equal(t, 2*time.Minute, h.Remaining(now))
	assert.Len(t, s.Holds, 2)

	assert.True(t, s.Drop("c"))
	assert.False(t, s.Drop("c"))
	assert.Equal(t, time.Duration(0), Hold{ExpiresAt: now}.Remaining(now.Add(time.Second)))
}

func TestRequestResolve(t *testing.T) {
	now := time.Now()
	r := Request{ID: "q", Kind: RequestJoin, RequesterID: "b", TargetID: "a", RoomID: "R",
		JoinerID: "b", Status: StatusPending, ExpiresAt: now.Add(time.Minute)}
	require.NoError(t, r.Validate())

	assert.False(t, r.ExpiredAt(now))
	assert.True(t, r.ExpiredAt(now.Add(time.Minute)))

	assert.Error(t, r.Resolve(StatusPending, "", now))
	require.NoError(t, r.Resolve(StatusAccepted, "", now))
	assert.Equal(t, StatusAccepted, r.Status)
	require.NotNil(t, r.ResolvedAt)

	// terminal states are final
	assert.Error(t, r.Resolve(StatusRejected, "", now))
	assert.Equal(t, StatusAccepted, r.Status)
	assert.False(t, r.ExpiredAt(now.Add(time.Hour)))
}

func TestValidateRejectsMalformed(t *testing.T) {
	assert.Error(t, (&Request{ID: "q", Kind: "MAYBE"}).Validate())
	assert.Error(t, (&Occupancy{}).Validate())
	assert.Error(t, (&Occupancy{RoomID: "R", Occupants: []Occupant{
		{ID: "a", Kind: OccupantSession}, {ID: "a", Kind: OccupantSession},
	}}).Validate())
	assert.Error(t, (&HoldSet{RoomID: "R", Holds: []Hold{{HolderID: "a"}}}).Validate())
	assert.Error(t, (&SessionState{}).Validate())
	assert.Error(t, (&TempGuest{ID: "t1", Status: GuestRetired, Gender: GenderMale}).Validate())
}

func TestOccupancyRemovePreservesOrder(t *testing.T) {
	o := Occupancy{RoomID: "R", Occupants: []Occupant{
		{ID: "a", Kind: OccupantSession}, {ID: "b", Kind: OccupantSession}, {ID: "c", Kind: OccupantGuest},
	}}
	assert.True(t, o.Remove("b"))
	assert.False(t, o.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, o.IDs())
	assert.True(t, o.Has("c"))
}
