package types

import "time"

// User is a portal member as known to the chat subsystem. The id is the
// identity verified by the authentication collaborator (the e-mail claim of
// the ID token), it is unique across the member base.
type User struct {
	Id         string        `json:"id" gorm:"primaryKey"`
	Nick       string        `json:"nick"`
	Tags       JSONStringMap `json:"tags"`
	LastOnline time.Time     `json:"last_online"`
}
