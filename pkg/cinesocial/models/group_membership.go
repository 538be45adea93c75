package models

import "time"

// MembershipStatus is the state of a user's membership in a group
type MembershipStatus string

const (
	MembershipPending MembershipStatus = "pending"
	MembershipMember  MembershipStatus = "member"
	MembershipRemoved MembershipStatus = "removed"
)

// Valid reports whether s is a known membership status
func (s MembershipStatus) Valid() bool {
	switch s {
	case MembershipPending, MembershipMember, MembershipRemoved:
		return true
	}
	return false
}

// GroupMembership links a user to a group. There is at most one row per
// (group, user).
type GroupMembership struct {
	ID        uint             `gorm:"primarykey" json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	GroupID   uint             `gorm:"not null;uniqueIndex:idx_group_user" json:"group_id"`
	UserID    uint             `gorm:"not null;uniqueIndex:idx_group_user" json:"user_id"`
	IsAdmin   bool             `gorm:"default:false" json:"is_admin"`
	Status    MembershipStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`

	// Relationships
	User  *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Group *Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

// InviteStatus is the state of a group invitation
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
)

// GroupInvite is an admin's invitation for a user to join a group
type GroupInvite struct {
	ID          uint         `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	GroupID     uint         `gorm:"not null;uniqueIndex:idx_invite_group_user" json:"group_id"`
	UserID      uint         `gorm:"not null;uniqueIndex:idx_invite_group_user" json:"user_id"`
	InvitedByID uint         `gorm:"not null" json:"invited_by"`
	Status      InviteStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`

	Group *Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}
