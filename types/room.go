package types

import "time"

// Room is a persisted chat room of the member portal. Membership of live
// connections is not part of this type, it is in-memory state reconstructed
// from join/leave events (see the chat package).
type Room struct {
	Id        int64         `json:"id" gorm:"primaryKey"`
	Name      string        `json:"name"`
	Tags      JSONStringMap `json:"tags"`
	CreatedAt time.Time     `json:"-"`
	UpdatedAt time.Time     `json:"-"`
}
