package models

import "time"

// Rating bounds for a review
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a user's review of a movie. Movies live in an external catalogue
// and are referenced by id only.
type Review struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_movie_review" json:"user_id"`
	MovieID   uint      `gorm:"not null;uniqueIndex:idx_user_movie_review;index" json:"movie_id"`
	Title     string    `json:"review_title"`
	Text      string    `json:"review_text"`
	Rating    int       `gorm:"not null" json:"rating"`
}

// Favourite marks a movie as one of a user's favourites
type Favourite struct {
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	MovieID   uint      `gorm:"primaryKey;autoIncrement:false" json:"movie_id"`
}
