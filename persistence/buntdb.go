package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/assocworks/member-chat/config"
	"github.com/assocworks/member-chat/types"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/tidwall/buntdb"
)

// BuntDBPersist is the embedded single-file backend. Messages and direct
// messages have no database-generated sequence here, their ids are derived
// by hashing the row contents.
type BuntDBPersist struct {
	db *buntdb.DB
}

func NewBuntPersister(cfg *config.Config) (Persister, error) {
	db, err := setupBuntDB(cfg)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil // no or wrong configuration, ignore the persister
	}
	return &BuntDBPersist{db: db}, nil
}

func setupBuntDB(cfg *config.Config) (*buntdb.DB, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, nil
	}
	db, err := buntdb.Open(cfg.PersistenceConfig.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.CreateIndex("messagets", "message:*", buntdb.IndexJSON("createdAt")); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func buntNotFound(err error) error {
	if errors.Is(err, buntdb.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// hashId derives a stable positive int64 id from the row contents.
func hashId(v interface{}) (int64, error) {
	h, err := hashstructure.Hash(v, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, err
	}
	return int64(h & (1<<63 - 1)), nil
}

func (p *BuntDBPersist) AppendMessage(msg *types.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().In(time.UTC)
	}
	if msg.Id == 0 {
		id, err := hashId(msg)
		if err != nil {
			return err
		}
		msg.Id = id
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set("message:"+strconv.FormatInt(msg.Id, 10), string(raw), nil)
		return err
	})
}

func (p *BuntDBPersist) History(roomId int64, limit int) ([]types.Message, error) {
	messages := make([]types.Message, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.Descend("messagets", func(key, val string) bool {
			msg := types.Message{}
			if err := json.Unmarshal([]byte(val), &msg); err != nil {
				return true
			}
			if msg.RoomId != roomId {
				return true
			}
			messages = append(messages, msg)
			return limit <= 0 || len(messages) < limit
		})
	})
	if err != nil {
		return nil, err
	}
	// the index iterates most recent first, the gateway contract is most
	// recent last
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (p *BuntDBPersist) AppendDirectMessage(dm *types.DirectMessage) error {
	if dm.CreatedAt.IsZero() {
		dm.CreatedAt = time.Now().In(time.UTC)
	}
	if dm.Id == 0 {
		id, err := hashId(dm)
		if err != nil {
			return err
		}
		dm.Id = id
	}
	raw, err := json.Marshal(dm)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set("dm:"+strconv.FormatInt(dm.Id, 10), string(raw), nil)
		return err
	})
}

func (p *BuntDBPersist) GetDirectMessage(id int64) (*types.DirectMessage, error) {
	dm := types.DirectMessage{}
	err := p.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get("dm:" + strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(val), &dm)
	})
	if err != nil {
		return nil, buntNotFound(err)
	}
	return &dm, nil
}

func (p *BuntDBPersist) MarkDirectMessageRead(id int64) (*types.DirectMessage, bool, error) {
	dm := types.DirectMessage{}
	changed := false
	key := "dm:" + strconv.FormatInt(id, 10)
	err := p.db.Update(func(tx *buntdb.Tx) error {
		val, err := tx.Get(key)
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(val), &dm); err != nil {
			return err
		}
		if dm.Read {
			return nil
		}
		dm.Read = true
		raw, err := json.Marshal(&dm)
		if err != nil {
			return err
		}
		if _, _, err := tx.Set(key, string(raw), nil); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, buntNotFound(err)
	}
	return &dm, changed, nil
}

func (p *BuntDBPersist) StoreUser(user types.User) error {
	if user.Id == "" {
		return fmt.Errorf("no user id")
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set("user:"+user.Id, string(raw), nil)
		return err
	})
}

func (p *BuntDBPersist) GetUser(user *types.User) error {
	if user.Id == "" {
		return fmt.Errorf("no user id")
	}
	return p.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get("user:" + user.Id)
		if err != nil {
			return buntNotFound(err)
		}
		return json.Unmarshal([]byte(val), user)
	})
}

func (p *BuntDBPersist) GetUsers() ([]*types.User, error) {
	users := make([]*types.User, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("user:*", func(key, val string) bool {
			user := &types.User{}
			if err := json.Unmarshal([]byte(val), user); err == nil {
				users = append(users, user)
			}
			return true
		})
	})
	return users, err
}

func (p *BuntDBPersist) DeleteUser(user *types.User) error {
	if user.Id == "" {
		return fmt.Errorf("no user id")
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete("user:" + user.Id)
		return buntNotFound(err)
	})
}

func (p *BuntDBPersist) StoreRoom(room *types.Room) error {
	if room.Id == 0 {
		id, err := hashId(room)
		if err != nil {
			return err
		}
		room.Id = id
	}
	raw, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set("room:"+strconv.FormatInt(room.Id, 10), string(raw), nil)
		return err
	})
}

func (p *BuntDBPersist) GetRoom(room *types.Room) error {
	if room.Id == 0 {
		return fmt.Errorf("no room id")
	}
	return p.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get("room:" + strconv.FormatInt(room.Id, 10))
		if err != nil {
			return buntNotFound(err)
		}
		return json.Unmarshal([]byte(val), room)
	})
}

func (p *BuntDBPersist) GetRooms() ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("room:*", func(key, val string) bool {
			room := &types.Room{}
			if err := json.Unmarshal([]byte(val), room); err == nil {
				rooms = append(rooms, room)
			}
			return true
		})
	})
	return rooms, err
}

func (p *BuntDBPersist) DeleteRoom(room *types.Room) error {
	if room.Id == 0 {
		return fmt.Errorf("no room id")
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete("room:" + strconv.FormatInt(room.Id, 10))
		return buntNotFound(err)
	})
}

func (p *BuntDBPersist) Close() error {
	return p.db.Close()
}
