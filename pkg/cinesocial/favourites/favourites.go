// Package favourites keeps each user's set of favourite movies.
package favourites

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/auth"
	"github.com/mikepea/cinesocial/pkg/cinesocial/models"
	"github.com/mikepea/cinesocial/pkg/cinesocial/params"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service stores favourites
type Service struct {
	db *gorm.DB
}

// NewService creates a favourites service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns userID's favourites, most recent first
func (s *Service) List(ctx context.Context, userID uint) ([]models.Favourite, error) {
	favourites := []models.Favourite{}
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, movie_id").Find(&favourites).Error
	if err != nil {
		return nil, apperr.FromDB(err, "Favourite not found", "")
	}
	return favourites, nil
}

// Add marks movieID as a favourite of userID. Adding twice is a no-op.
func (s *Service) Add(ctx context.Context, userID, movieID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperr.NotFound("User not found")
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Favourite{UserID: userID, MovieID: movieID}).Error
	})
	return apperr.FromDB(err, "User not found", "")
}

// Remove unmarks a favourite
func (s *Service) Remove(ctx context.Context, userID, movieID uint) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		Delete(&models.Favourite{})
	if result.Error != nil {
		return apperr.FromDB(result.Error, "Favourite not found", "")
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("Favourite not found")
	}
	return nil
}

// Handler handles favourite requests
type Handler struct {
	svc *Service
	log *zap.Logger
}

// NewHandler creates a new favourites handler
func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// pathIDs parses :userId and :movieId and checks the user is the caller
func pathIDs(c *gin.Context) (userID, movieID uint, err error) {
	if userID, err = params.ID(c, "userId"); err != nil {
		return 0, 0, err
	}
	if movieID, err = params.ID(c, "movieId"); err != nil {
		return 0, 0, err
	}
	if _, err = auth.MatchUser(c, &userID); err != nil {
		return 0, 0, err
	}
	return userID, movieID, nil
}

// List returns a user's favourites
// @Summary List favourites
// @Tags favourites
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {array} models.Favourite
// @Router /favourites/users/{userId}/favourites [get]
func (h *Handler) List(c *gin.Context) {
	userID, err := params.ID(c, "userId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	favourites, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, favourites)
}

// Add marks a movie as a favourite
// @Summary Add a favourite
// @Tags favourites
// @Param userId path int true "User ID"
// @Param movieId path int true "Movie ID"
// @Success 201 {object} map[string]interface{}
// @Security BearerAuth
// @Router /favourites/users/{userId}/favourites/{movieId} [post]
func (h *Handler) Add(c *gin.Context) {
	userID, movieID, err := pathIDs(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	if err := h.svc.Add(c.Request.Context(), userID, movieID); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Movie added to favourites"})
}

// Remove unmarks a favourite
// @Summary Remove a favourite
// @Tags favourites
// @Param userId path int true "User ID"
// @Param movieId path int true "Movie ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} apperr.ErrorResponse "Favourite not found"
// @Security BearerAuth
// @Router /favourites/users/{userId}/favourites/{movieId} [delete]
func (h *Handler) Remove(c *gin.Context) {
	userID, movieID, err := pathIDs(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	if err := h.svc.Remove(c.Request.Context(), userID, movieID); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Movie removed from favourites"})
}

// RegisterRoutes registers favourite routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("/users/:userId/favourites", h.List)
	rg.POST("/users/:userId/favourites/:movieId", requireAuth, h.Add)
	rg.DELETE("/users/:userId/favourites/:movieId", requireAuth, h.Remove)
}
