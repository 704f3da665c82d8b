package types

import "time"

// Message is a persisted room message. Messages are immutable once created,
// there is no edit or delete operation.
type Message struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	RoomId    int64     `json:"roomId" gorm:"index" mapstructure:"roomId"`
	UserId    string    `json:"userId" mapstructure:"-"`
	Content   string    `json:"content" mapstructure:"content"`
	CreatedAt time.Time `json:"createdAt" mapstructure:"-"`
}

// DirectMessage is a persisted one-to-one message. Only the Read flag is
// mutable, and only in the false -> true direction.
type DirectMessage struct {
	Id         int64         `json:"id" gorm:"primaryKey"`
	SenderId   string        `json:"senderId" gorm:"index"`
	ReceiverId string        `json:"receiverId" gorm:"index"`
	Content    string        `json:"content"`
	Type       string        `json:"type"`
	Metadata   JSONStringMap `json:"metadata"`
	Read       bool          `json:"read"`
	CreatedAt  time.Time     `json:"createdAt"`
}
