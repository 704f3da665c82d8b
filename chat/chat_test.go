package chat

import (
	"sync"

	"github.com/assocworks/member-chat/persistence"
	"github.com/assocworks/member-chat/types"
	"github.com/google/uuid"
)

// fakeSession records every event sent to it, standing in for a live
// websocket connection.
type fakeSession struct {
	id   uuid.UUID
	user *types.User

	mu     sync.Mutex
	events []fakeEvent
}

type fakeEvent struct {
	Event string
	Data  interface{}
}

func newFakeSession(userId string) *fakeSession {
	return &fakeSession{
		id:   uuid.New(),
		user: &types.User{Id: userId, Nick: userId},
	}
}

func (s *fakeSession) ID() uuid.UUID     { return s.id }
func (s *fakeSession) User() *types.User { return s.user }

func (s *fakeSession) Send(event string, data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, fakeEvent{Event: event, Data: data})
	return nil
}

func (s *fakeSession) received(event string) []fakeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := make([]fakeEvent, 0)
	for _, e := range s.events {
		if e.Event == event {
			events = append(events, e)
		}
	}
	return events
}

func (s *fakeSession) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// fakeStore is an in-memory persistence.Persister for router tests.
type fakeStore struct {
	mu     sync.Mutex
	nextId int64

	messages []types.Message
	dms      map[int64]*types.DirectMessage
	users    map[string]types.User
	rooms    map[int64]*types.Room

	failAppend bool
}

func newFakeStore(roomIds ...int64) *fakeStore {
	s := &fakeStore{
		dms:   make(map[int64]*types.DirectMessage),
		users: make(map[string]types.User),
		rooms: make(map[int64]*types.Room),
	}
	for _, id := range roomIds {
		s.rooms[id] = &types.Room{Id: id}
	}
	return s
}

func (s *fakeStore) AppendMessage(msg *types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend {
		return persistence.ErrNotFound
	}
	s.nextId++
	msg.Id = s.nextId
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *fakeStore) History(roomId int64, limit int) ([]types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := make([]types.Message, 0)
	for _, msg := range s.messages {
		if msg.RoomId == roomId {
			messages = append(messages, msg)
		}
	}
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func (s *fakeStore) AppendDirectMessage(dm *types.DirectMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend {
		return persistence.ErrNotFound
	}
	s.nextId++
	dm.Id = s.nextId
	stored := *dm
	s.dms[dm.Id] = &stored
	return nil
}

func (s *fakeStore) GetDirectMessage(id int64) (*types.DirectMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dm, ok := s.dms[id]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	cp := *dm
	return &cp, nil
}

func (s *fakeStore) MarkDirectMessageRead(id int64) (*types.DirectMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dm, ok := s.dms[id]
	if !ok {
		return nil, false, persistence.ErrNotFound
	}
	changed := !dm.Read
	dm.Read = true
	cp := *dm
	return &cp, changed, nil
}

func (s *fakeStore) StoreUser(user types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Id] = user
	return nil
}

func (s *fakeStore) GetUser(user *types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[user.Id]
	if !ok {
		return persistence.ErrNotFound
	}
	*user = stored
	return nil
}

func (s *fakeStore) GetUsers() ([]*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]*types.User, 0, len(s.users))
	for id := range s.users {
		u := s.users[id]
		users = append(users, &u)
	}
	return users, nil
}

func (s *fakeStore) DeleteUser(user *types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, user.Id)
	return nil
}

func (s *fakeStore) StoreRoom(room *types.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.Id == 0 {
		s.nextId++
		room.Id = s.nextId
	}
	cp := *room
	s.rooms[room.Id] = &cp
	return nil
}

func (s *fakeStore) GetRoom(room *types.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rooms[room.Id]
	if !ok {
		return persistence.ErrNotFound
	}
	*room = *stored
	return nil
}

func (s *fakeStore) GetRooms() ([]*types.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rooms := make([]*types.Room, 0, len(s.rooms))
	for id := range s.rooms {
		cp := *s.rooms[id]
		rooms = append(rooms, &cp)
	}
	return rooms, nil
}

func (s *fakeStore) DeleteRoom(room *types.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, room.Id)
	return nil
}

func (s *fakeStore) Close() error { return nil }

var _ persistence.Persister = (*fakeStore)(nil)
var _ Session = (*fakeSession)(nil)
