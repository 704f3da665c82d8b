package chat

import (
	"sort"
	"sync"
	"time"
)

// TypingTracker holds the ephemeral per-room set of users currently
// composing a message. Every entry carries an explicit deadline; entries
// past their deadline are treated as absent even if not yet physically
// removed, so the observable state never contains expired users. A renewing
// signal replaces the prior deadline (debounced, not accumulated).
type TypingTracker struct {
	mu      sync.Mutex
	timeout time.Duration
	now     func() time.Time
	rooms   map[int64]map[string]time.Time
}

func NewTypingTracker(timeout time.Duration) *TypingTracker {
	return &TypingTracker{
		timeout: timeout,
		now:     time.Now,
		rooms:   make(map[int64]map[string]time.Time),
	}
}

// SetTyping adds or refreshes the (room, user) entry with deadline
// now+timeout when typing is true, and removes it immediately when false.
func (t *TypingTracker) SetTyping(roomId int64, userId string, typing bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !typing {
		t.remove(roomId, userId)
		return
	}
	room := t.rooms[roomId]
	if room == nil {
		room = make(map[string]time.Time)
		t.rooms[roomId] = room
	}
	room[userId] = t.now().Add(t.timeout)
}

func (t *TypingTracker) remove(roomId int64, userId string) {
	if room, ok := t.rooms[roomId]; ok {
		delete(room, userId)
		if len(room) == 0 {
			delete(t.rooms, roomId)
		}
	}
}

// Typing returns the sorted set of users typing in the room, expired
// entries excluded (and lazily evicted).
func (t *TypingTracker) Typing(roomId int64) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	users := make([]string, 0, len(t.rooms[roomId]))
	for userId, deadline := range t.rooms[roomId] {
		if deadline.After(now) {
			users = append(users, userId)
		} else {
			t.remove(roomId, userId)
		}
	}
	sort.Strings(users)
	return users
}

// DropUser removes the user from every typing set as part of disconnect
// cleanup and returns the affected rooms, so the router can rebroadcast
// their typing state. No dangling typing indicator may survive a
// disconnect.
func (t *TypingTracker) DropUser(userId string) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	affected := make([]int64, 0)
	for roomId, room := range t.rooms {
		if _, ok := room[userId]; ok {
			affected = append(affected, roomId)
		}
	}
	for _, roomId := range affected {
		t.remove(roomId, userId)
	}
	return affected
}

// Sweep evicts every expired entry and returns the rooms that lost at least
// one, so their non-expired sets can be rebroadcast.
func (t *TypingTracker) Sweep() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	affected := make([]int64, 0)
	for roomId, room := range t.rooms {
		expired := false
		for userId, deadline := range room {
			if !deadline.After(now) {
				delete(room, userId)
				expired = true
			}
		}
		if len(room) == 0 {
			delete(t.rooms, roomId)
		}
		if expired {
			affected = append(affected, roomId)
		}
	}
	return affected
}
