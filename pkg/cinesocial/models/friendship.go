package models

import "time"

// FriendshipStatus is the state of one direction of a friendship
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

// Friendship is a directional row from UserID to FriendID. A pending request
// is a single row owned by the requester; an accepted friendship has one row
// in each direction.
type Friendship struct {
	ID        uint             `gorm:"primarykey" json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	UserID    uint             `gorm:"not null;uniqueIndex:idx_user_friend" json:"user_id"`
	FriendID  uint             `gorm:"not null;uniqueIndex:idx_user_friend;index" json:"friend_id"`
	Status    FriendshipStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`

	User   User `gorm:"foreignKey:UserID" json:"-"`
	Friend User `gorm:"foreignKey:FriendID" json:"-"`
}
