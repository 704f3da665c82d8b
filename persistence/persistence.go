package persistence

import (
	"errors"
	"fmt"

	"github.com/assocworks/member-chat/config"
	"github.com/assocworks/member-chat/types"
)

// ErrNotFound is returned when a referenced user, room or message does not
// exist. Both backends translate their native not-found errors into it.
var ErrNotFound = errors.New("not found")

// Persister is the append-only message store gateway of the chat core plus
// the user/room records the admin tooling operates on. Messages are
// immutable once appended; direct messages are mutable only in the read
// flag, which transitions false -> true exactly once.
type Persister interface {
	AppendMessage(msg *types.Message) error
	History(roomId int64, limit int) ([]types.Message, error)

	AppendDirectMessage(dm *types.DirectMessage) error
	GetDirectMessage(id int64) (*types.DirectMessage, error)
	// MarkDirectMessageRead sets the read flag and reports whether this call
	// performed the false -> true transition.
	MarkDirectMessageRead(id int64) (*types.DirectMessage, bool, error)

	StoreUser(user types.User) error
	GetUser(user *types.User) error
	GetUsers() ([]*types.User, error)
	DeleteUser(user *types.User) error

	StoreRoom(room *types.Room) error
	GetRoom(room *types.Room) error
	GetRooms() ([]*types.Room, error)
	DeleteRoom(room *types.Room) error

	Close() error
}

// NewPersister creates the persister selected by the configuration. It
// returns nil (and no error) when no persistence is configured, in which
// case the chat core runs with empty history and sends fail visibly.
func NewPersister(cfg *config.Config) (Persister, error) {
	switch cfg.PersistenceConfig.Type {
	case "":
		return nil, nil
	case "sqlite", "postgres":
		return NewGormPersister(cfg)
	case "buntdb":
		return NewBuntPersister(cfg)
	}
	return nil, fmt.Errorf("unknown persistence type %q", cfg.PersistenceConfig.Type)
}
