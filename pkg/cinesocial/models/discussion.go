package models

import "time"

// Discussion is a thread started inside a group
type Discussion struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	GroupID   uint      `gorm:"not null;index" json:"group_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"not null" json:"discussion_title"`
	Text      string    `gorm:"not null" json:"discussion_text"`
	Likes     int       `gorm:"not null;default:0" json:"likes"`
	Dislikes  int       `gorm:"not null;default:0" json:"dislikes"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Comment is a reply to a discussion
type Comment struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	DiscussionID uint      `gorm:"not null;index" json:"discussion_id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	Text         string    `gorm:"not null" json:"comment_text"`
	Likes        int       `gorm:"not null;default:0" json:"likes"`
	Dislikes     int       `gorm:"not null;default:0" json:"dislikes"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// ReactionType is either a like or a dislike
type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

// DiscussionReaction is one user's like or dislike of a discussion
type DiscussionReaction struct {
	ID           uint         `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time    `json:"created_at"`
	DiscussionID uint         `gorm:"not null;uniqueIndex:idx_discussion_reaction" json:"discussion_id"`
	UserID       uint         `gorm:"not null;uniqueIndex:idx_discussion_reaction" json:"user_id"`
	Reaction     ReactionType `gorm:"type:varchar(10);not null" json:"like_type"`
}

// CommentReaction is one user's like or dislike of a comment
type CommentReaction struct {
	ID        uint         `gorm:"primarykey" json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	CommentID uint         `gorm:"not null;uniqueIndex:idx_comment_reaction" json:"comment_id"`
	UserID    uint         `gorm:"not null;uniqueIndex:idx_comment_reaction" json:"user_id"`
	Reaction  ReactionType `gorm:"type:varchar(10);not null" json:"like_type"`
}
