package gateway

import "sync"

// RoomIndex maps room names to member connections and back. Both
// directions are updated under one mutex so a concurrent reader observes
// either the pre- or post-mutation state, never half of a join. Rooms are
// created lazily on first join and dropped as soon as they empty.
type RoomIndex struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{} // room name -> connection ids
	joined  map[string]map[string]struct{} // connection id -> room names
}

func NewRoomIndex() *RoomIndex {
	return &RoomIndex{
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

// Join adds the connection to the room in both directions. Joining twice
// is a no-op; the return value reports whether membership changed.
func (ri *RoomIndex) Join(room, connID string) bool {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	if _, ok := ri.members[room][connID]; ok {
		return false
	}

	if ri.members[room] == nil {
		ri.members[room] = make(map[string]struct{})
	}
	ri.members[room][connID] = struct{}{}

	if ri.joined[connID] == nil {
		ri.joined[connID] = make(map[string]struct{})
	}
	ri.joined[connID][room] = struct{}{}

	return true
}

// Leave removes the connection from the room in both directions. Leaving a
// room the connection is not in is a no-op; the return value reports
// whether membership changed. An emptied room is dropped from the index.
func (ri *RoomIndex) Leave(room, connID string) bool {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	if _, ok := ri.members[room][connID]; !ok {
		return false
	}

	delete(ri.members[room], connID)
	if len(ri.members[room]) == 0 {
		delete(ri.members, room)
	}

	delete(ri.joined[connID], room)
	if len(ri.joined[connID]) == 0 {
		delete(ri.joined, connID)
	}

	return true
}

// MembersOf returns the ids of the room's current members. Unknown rooms
// yield an empty slice, not an error.
func (ri *RoomIndex) MembersOf(room string) []string {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	ids := make([]string, 0, len(ri.members[room]))
	for id := range ri.members[room] {
		ids = append(ids, id)
	}
	return ids
}

// RoomsOf returns the names of the rooms the connection has joined. Used
// by the disconnect cascade.
func (ri *RoomIndex) RoomsOf(connID string) []string {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	rooms := make([]string, 0, len(ri.joined[connID]))
	for room := range ri.joined[connID] {
		rooms = append(rooms, room)
	}
	return rooms
}

// Rooms returns the names of every room with at least one member.
func (ri *RoomIndex) Rooms() []string {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	rooms := make([]string, 0, len(ri.members))
	for room := range ri.members {
		rooms = append(rooms, room)
	}
	return rooms
}
