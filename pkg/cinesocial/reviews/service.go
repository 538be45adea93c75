// Package reviews implements movie reviews. A user reviews a movie at most once.
package reviews

import (
	"context"
	"errors"

	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/models"
	"github.com/mikepea/cinesocial/pkg/cinesocial/sanitize"
	"gorm.io/gorm"
)

var errReviewNotFound = apperr.NotFound("Review not found")

// Input is a new review or the fields of an edit. Nil fields are unchanged
// on edit.
type Input struct {
	MovieID uint
	Title   *string
	Text    *string
	Rating  *int
}

// Filter narrows a review listing
type Filter struct {
	UserID  uint
	MovieID uint
}

// Service implements review storage
type Service struct {
	db *gorm.DB
}

// NewService creates a reviews service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func validRating(rating int) error {
	if rating < models.MinRating || rating > models.MaxRating {
		return apperr.InvalidArgument("Rating must be between %d and %d", models.MinRating, models.MaxRating)
	}
	return nil
}

func text(v *string) string {
	if v == nil {
		return ""
	}
	return sanitize.Text(*v)
}

// List returns reviews matching f, newest first
func (s *Service) List(ctx context.Context, f Filter) ([]models.Review, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.MovieID != 0 {
		q = q.Where("movie_id = ?", f.MovieID)
	}

	reviews := []models.Review{}
	if err := q.Find(&reviews).Error; err != nil {
		return nil, apperr.FromDB(err, "Review not found", "")
	}
	return reviews, nil
}

// ForUserMovie returns userID's review of movieID
func (s *Service) ForUserMovie(ctx context.Context, userID, movieID uint) (*models.Review, error) {
	var review models.Review
	err := s.db.WithContext(ctx).Where("user_id = ? AND movie_id = ?", userID, movieID).First(&review).Error
	if err != nil {
		return nil, apperr.FromDB(err, "Review not found", "")
	}
	return &review, nil
}

// Create stores userID's review
func (s *Service) Create(ctx context.Context, userID uint, in Input) (*models.Review, error) {
	if in.MovieID == 0 || in.Rating == nil {
		return nil, apperr.InvalidArgument("User ID, movie ID and rating are required")
	}
	if err := validRating(*in.Rating); err != nil {
		return nil, err
	}

	review := models.Review{
		UserID:  userID,
		MovieID: in.MovieID,
		Title:   text(in.Title),
		Text:    text(in.Text),
		Rating:  *in.Rating,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperr.NotFound("User not found")
		}
		return tx.Create(&review).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "User not found", "You have already reviewed this movie")
	}
	return &review, nil
}

// Update edits a review (author only)
func (s *Service) Update(ctx context.Context, id, actorID uint, in Input) (*models.Review, error) {
	if in.Rating != nil {
		if err := validRating(*in.Rating); err != nil {
			return nil, err
		}
	}

	var review models.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&review, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errReviewNotFound
			}
			return err
		}
		if review.UserID != actorID {
			return apperr.Forbidden("You can only edit your own reviews")
		}
		if in.Title != nil {
			review.Title = text(in.Title)
		}
		if in.Text != nil {
			review.Text = text(in.Text)
		}
		if in.Rating != nil {
			review.Rating = *in.Rating
		}
		return tx.Save(&review).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "Review not found", "")
	}
	return &review, nil
}

// Delete removes a review (author only)
func (s *Service) Delete(ctx context.Context, id, actorID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review models.Review
		if err := tx.First(&review, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errReviewNotFound
			}
			return err
		}
		if review.UserID != actorID {
			return apperr.Forbidden("You can only delete your own reviews")
		}
		return tx.Delete(&review).Error
	})
	return apperr.FromDB(err, "Review not found", "")
}
