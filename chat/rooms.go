package chat

import (
	"sync"

	"github.com/google/uuid"
)

// RoomTable maps room ids to the set of currently joined connections.
// Membership is purely in-memory process state, reconstructed from
// join/leave events; a connection is a member iff its most recent action
// was a join and it has not disconnected since.
type RoomTable struct {
	mu      sync.RWMutex
	members map[int64]map[uuid.UUID]Session
	joined  map[uuid.UUID]map[int64]struct{}
}

func NewRoomTable() *RoomTable {
	return &RoomTable{
		members: make(map[int64]map[uuid.UUID]Session),
		joined:  make(map[uuid.UUID]map[int64]struct{}),
	}
}

// Join adds the session to the room's membership set. Idempotent.
func (t *RoomTable) Join(s Session, roomId int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	room := t.members[roomId]
	if room == nil {
		room = make(map[uuid.UUID]Session)
		t.members[roomId] = room
	}
	room[s.ID()] = s

	rooms := t.joined[s.ID()]
	if rooms == nil {
		rooms = make(map[int64]struct{})
		t.joined[s.ID()] = rooms
	}
	rooms[roomId] = struct{}{}
}

// Leave removes the session from the room's set. No error if absent.
func (t *RoomTable) Leave(s Session, roomId int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remove(s.ID(), roomId)
}

func (t *RoomTable) remove(id uuid.UUID, roomId int64) {
	if room, ok := t.members[roomId]; ok {
		delete(room, id)
		if len(room) == 0 {
			delete(t.members, roomId)
		}
	}
	if rooms, ok := t.joined[id]; ok {
		delete(rooms, roomId)
		if len(rooms) == 0 {
			delete(t.joined, id)
		}
	}
}

// Drop removes the session from every room it was a member of and returns
// the affected room ids. Mandatory part of disconnect cleanup.
func (t *RoomTable) Drop(s Session) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	rooms := make([]int64, 0, len(t.joined[s.ID()]))
	for roomId := range t.joined[s.ID()] {
		rooms = append(rooms, roomId)
	}
	for _, roomId := range rooms {
		t.remove(s.ID(), roomId)
	}
	return rooms
}

// IsMember reports whether the session is currently in the room's set.
func (t *RoomTable) IsMember(s Session, roomId int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.members[roomId][s.ID()]
	return ok
}

// Members returns the sessions currently joined to the room.
func (t *RoomTable) Members(roomId int64) []Session {
	t.mu.RLock()
	defer t.mu.RUnlock()

	members := make([]Session, 0, len(t.members[roomId]))
	for _, s := range t.members[roomId] {
		members = append(members, s)
	}
	return members
}

// Rooms returns the rooms the session is currently joined to.
func (t *RoomTable) Rooms(s Session) []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rooms := make([]int64, 0, len(t.joined[s.ID()]))
	for roomId := range t.joined[s.ID()] {
		rooms = append(rooms, roomId)
	}
	return rooms
}

// Broadcast delivers the event to every connection currently in the room's
// set, skipping recipients rejected by allow (which may be nil). Delivery
// is best-effort: connections failing mid-broadcast are skipped silently.
func (t *RoomTable) Broadcast(roomId int64, event string, data interface{}, allow func(Session) bool) {
	for _, s := range t.Members(roomId) {
		if allow != nil && !allow(s) {
			continue
		}
		_ = s.Send(event, data)
	}
}
