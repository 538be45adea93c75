// Package users serves account listings, profiles and account deletion.
// Registration and login live in package auth.
package users

import (
	"context"
	"errors"

	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/models"
	"github.com/mikepea/cinesocial/pkg/cinesocial/sanitize"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errUserNotFound = apperr.NotFound("User not found")

// ProfileInput carries the editable profile fields. Nil fields are unchanged.
type ProfileInput struct {
	Description *string
	Email       *string
}

// Service implements user queries and profile updates
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewService creates a users service
func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log}
}

// List returns every user ordered by id
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, apperr.FromDB(err, "User not found", "")
	}
	return users, nil
}

// ByUsername returns the user with the given username
func (s *Service) ByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, apperr.FromDB(err, "User not found", "")
	}
	return &user, nil
}

// Get returns the user with the given id
func (s *Service) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, apperr.FromDB(err, "User not found", "")
	}
	return &user, nil
}

// UpdateProfile changes a user's description or email
func (s *Service) UpdateProfile(ctx context.Context, id uint, in ProfileInput) (*models.User, error) {
	var email string
	if in.Email != nil {
		if email = sanitize.Email(*in.Email); email == "" {
			return nil, apperr.InvalidArgument("Email cannot be empty")
		}
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errUserNotFound
			}
			return err
		}
		if in.Description != nil {
			user.UserDesc = sanitize.Text(*in.Description)
		}
		if in.Email != nil {
			user.Email = email
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "User not found", "Email already registered")
	}
	return &user, nil
}

// Delete removes the account and everything it owns
func (s *Service) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := models.DeleteUser(tx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return errUserNotFound
		}
		return nil
	})
	if err != nil {
		return apperr.FromDB(err, "User not found", "")
	}
	s.log.Info("user deleted", zap.Uint("user_id", id))
	return nil
}
