package models

import "time"

// Group is a discussion community. Its owner is always an admin member.
type Group struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"uniqueIndex;not null" json:"group_name"`
	OwnerID     uint      `gorm:"not null;index" json:"owner_id"`
	Description string    `json:"group_desc"`
	Rules       string    `json:"group_rules"`
	IsOpen      bool      `gorm:"default:false" json:"is_open"` // open groups skip join approval

	// Relationships
	Owner   User              `gorm:"foreignKey:OwnerID" json:"-"`
	Members []GroupMembership `gorm:"foreignKey:GroupID" json:"members,omitempty"`
}
