package chat

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry maps a user identity to its live connections and derives
// presence from that. One member may be connected from several devices at
// once. All mutation goes through Register/Unregister.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]Session
	byUser   map[string]map[uuid.UUID]Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]Session),
		byUser:   make(map[string]map[uuid.UUID]Session),
	}
}

// Register binds the session to its user. It is idempotent per session and
// reports whether the user just came online (first live connection).
func (r *Registry) Register(s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID()]; ok {
		return false
	}
	r.sessions[s.ID()] = s
	userId := s.User().Id
	conns := r.byUser[userId]
	if conns == nil {
		conns = make(map[uuid.UUID]Session)
		r.byUser[userId] = conns
	}
	first := len(conns) == 0
	conns[s.ID()] = s
	return first
}

// Unregister removes the session. It reports whether the session was
// registered at all and whether its user just went offline (last live
// connection gone). Calling it twice is harmless.
func (r *Registry) Unregister(s Session) (registered, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID()]; !ok {
		return false, false
	}
	delete(r.sessions, s.ID())
	userId := s.User().Id
	if conns, ok := r.byUser[userId]; ok {
		delete(conns, s.ID())
		if len(conns) == 0 {
			delete(r.byUser, userId)
			last = true
		}
	}
	return true, last
}

// Registered reports whether the session is currently registered. Events
// from unregistered sessions are dropped by the router.
func (r *Registry) Registered(s Session) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[s.ID()]
	return ok
}

// IsOnline reports whether at least one live connection is bound to the
// user.
func (r *Registry) IsOnline(userId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userId]) > 0
}

// OnlineUsers returns the sorted set of user ids with at least one live
// connection.
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.byUser))
	for userId := range r.byUser {
		users = append(users, userId)
	}
	sort.Strings(users)
	return users
}

// Sessions returns all live sessions.
func (r *Registry) Sessions() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// SessionsFor returns the live sessions of one user.
func (r *Registry) SessionsFor(userId string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]Session, 0, len(r.byUser[userId]))
	for _, s := range r.byUser[userId] {
		sessions = append(sessions, s)
	}
	return sessions
}
