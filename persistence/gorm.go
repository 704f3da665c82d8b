package persistence

import (
	"errors"
	"fmt"

	"github.com/assocworks/member-chat/config"
	"github.com/assocworks/member-chat/types"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormPersist struct {
	db *gorm.DB
}

func NewGormPersister(cfg *config.Config) (Persister, error) {
	db, err := setupGormDB(cfg)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil // no or wrong configuration, ignore the persister
	}
	return &GormPersist{db: db}, nil
}

func setupGormDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, nil
	}
	var dial gorm.Dialector
	switch cfg.PersistenceConfig.Type {
	case "postgres":
		dial = postgres.Open(cfg.PersistenceConfig.DSN)

	case "sqlite":
		dial = sqlite.Open(cfg.PersistenceConfig.DSN)

	default:
		return nil, fmt.Errorf("invalid gorm configuration")
	}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.Migrator().AutoMigrate(&types.User{}, &types.Room{}, &types.Message{}, &types.DirectMessage{}); err != nil {
		return nil, err
	}
	return db, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (p *GormPersist) AppendMessage(msg *types.Message) error {
	return p.db.Create(msg).Error
}

func (p *GormPersist) History(roomId int64, limit int) ([]types.Message, error) {
	messages := make([]types.Message, 0)
	err := p.db.Where("room_id = ?", roomId).Order("id DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	// most recent last
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (p *GormPersist) AppendDirectMessage(dm *types.DirectMessage) error {
	return p.db.Create(dm).Error
}

func (p *GormPersist) GetDirectMessage(id int64) (*types.DirectMessage, error) {
	dm := types.DirectMessage{}
	if err := p.db.First(&dm, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &dm, nil
}

func (p *GormPersist) MarkDirectMessageRead(id int64) (*types.DirectMessage, bool, error) {
	dm := types.DirectMessage{}
	changed := false
	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&dm, id).Error; err != nil {
			return notFound(err)
		}
		if dm.Read {
			return nil
		}
		if err := tx.Model(&dm).Update("read", true).Error; err != nil {
			return err
		}
		dm.Read = true
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &dm, changed, nil
}

func (p *GormPersist) StoreUser(user types.User) error {
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&user).Error
}

func (p *GormPersist) GetUser(user *types.User) error {
	return notFound(p.db.First(user).Error)
}

func (p *GormPersist) GetUsers() ([]*types.User, error) {
	users := make([]*types.User, 0)
	err := p.db.Find(&users).Error
	return users, err
}

func (p *GormPersist) DeleteUser(user *types.User) error {
	return p.db.Delete(user).Error
}

func (p *GormPersist) StoreRoom(room *types.Room) error {
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(room).Error
}

func (p *GormPersist) GetRoom(room *types.Room) error {
	return notFound(p.db.First(room).Error)
}

func (p *GormPersist) GetRooms() ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	err := p.db.Find(&rooms).Error
	return rooms, err
}

func (p *GormPersist) DeleteRoom(room *types.Room) error {
	return p.db.Delete(room).Error
}

func (p *GormPersist) Close() error {
	return nil
}
