package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomIndex_JoinIsIdempotent(t *testing.T) {
	ri := NewRoomIndex()

	assert.True(t, ri.Join("lobby", "c1"))
	assert.False(t, ri.Join("lobby", "c1"), "second join should be a no-op")

	assert.ElementsMatch(t, []string{"c1"}, ri.MembersOf("lobby"))
	assert.ElementsMatch(t, []string{"lobby"}, ri.RoomsOf("c1"))
}

func TestRoomIndex_LeaveIsIdempotent(t *testing.T) {
	ri := NewRoomIndex()

	ri.Join("lobby", "c1")
	assert.True(t, ri.Leave("lobby", "c1"))
	assert.False(t, ri.Leave("lobby", "c1"), "second leave should be a no-op")
	assert.False(t, ri.Leave("lobby", "never-joined"), "leaving a non-joined room is not an error")
}

func TestRoomIndex_BidirectionalConsistency(t *testing.T) {
	ri := NewRoomIndex()

	ri.Join("lobby", "c1")
	ri.Join("lobby", "c2")
	ri.Join("kitchen", "c1")

	assert.ElementsMatch(t, []string{"c1", "c2"}, ri.MembersOf("lobby"))
	assert.ElementsMatch(t, []string{"c1"}, ri.MembersOf("kitchen"))
	assert.ElementsMatch(t, []string{"lobby", "kitchen"}, ri.RoomsOf("c1"))
	assert.ElementsMatch(t, []string{"lobby"}, ri.RoomsOf("c2"))

	ri.Leave("lobby", "c1")

	assert.ElementsMatch(t, []string{"c2"}, ri.MembersOf("lobby"))
	assert.ElementsMatch(t, []string{"kitchen"}, ri.RoomsOf("c1"))
}

func TestRoomIndex_EmptyRoomIsDropped(t *testing.T) {
	ri := NewRoomIndex()

	ri.Join("lobby", "c1")
	assert.ElementsMatch(t, []string{"lobby"}, ri.Rooms())

	ri.Leave("lobby", "c1")
	assert.Empty(t, ri.Rooms(), "emptied room should be garbage-collected")
	assert.Empty(t, ri.MembersOf("lobby"), "unknown room yields an empty set, not an error")
}
