package reviews

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/auth"
	"github.com/mikepea/cinesocial/pkg/cinesocial/params"
	"go.uber.org/zap"
)

// Handler handles review requests
type Handler struct {
	svc *Service
	log *zap.Logger
}

// NewHandler creates a new reviews handler
func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// ReviewFields are the client-supplied fields of a review
type ReviewFields struct {
	UserID  *uint   `json:"user_id"`
	MovieID uint    `json:"movie_id"`
	Title   *string `json:"review_title"`
	Text    *string `json:"review_text"`
	Rating  *int    `json:"rating"`
}

// ReviewRequest is the body of POST /reviews and PUT /reviews/:id
type ReviewRequest struct {
	Review ReviewFields `json:"review"`
}

func (f ReviewFields) input() Input {
	return Input{MovieID: f.MovieID, Title: f.Title, Text: f.Text, Rating: f.Rating}
}

// List returns all reviews, optionally for one movie
// @Summary List reviews
// @Tags reviews
// @Produce json
// @Param movie_id query int false "Only reviews of this movie"
// @Success 200 {array} models.Review
// @Router /reviews [get]
func (h *Handler) List(c *gin.Context) {
	var filter Filter
	if raw := c.Query("movie_id"); raw != "" {
		movieID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || movieID == 0 {
			apperr.Abort(c, apperr.InvalidArgument("Invalid movie_id"))
			return
		}
		filter.MovieID = uint(movieID)
	}

	reviews, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// ListByUser returns a user's reviews
// @Summary List a user's reviews
// @Tags reviews
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {array} models.Review
// @Router /reviews/{userId} [get]
func (h *Handler) ListByUser(c *gin.Context) {
	userID, err := params.ID(c, "userId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	reviews, err := h.svc.List(c.Request.Context(), Filter{UserID: userID})
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// GetForUserMovie returns one user's review of one movie
// @Summary Get a user's review of a movie
// @Tags reviews
// @Produce json
// @Param userId path int true "User ID"
// @Param movieId path int true "Movie ID"
// @Success 200 {object} models.Review
// @Failure 404 {object} apperr.ErrorResponse "Review not found"
// @Router /reviews/{userId}/{movieId} [get]
func (h *Handler) GetForUserMovie(c *gin.Context) {
	userID, err := params.ID(c, "userId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	movieID, err := params.ID(c, "movieId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	review, err := h.svc.ForUserMovie(c.Request.Context(), userID, movieID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// Create stores a review by the caller
// @Summary Create a review
// @Tags reviews
// @Accept json
// @Produce json
// @Param request body ReviewRequest true "Review"
// @Success 201 {object} models.Review
// @Failure 400 {object} apperr.ErrorResponse "Missing fields or rating out of range"
// @Failure 409 {object} apperr.ErrorResponse "Movie already reviewed"
// @Security BearerAuth
// @Router /reviews [post]
func (h *Handler) Create(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.InvalidArgument("Invalid request body"))
		return
	}
	userID, err := auth.MatchUser(c, req.Review.UserID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	review, err := h.svc.Create(c.Request.Context(), userID, req.Review.input())
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	h.log.Info("review created", zap.Uint("review_id", review.ID), zap.Uint("movie_id", review.MovieID))
	c.JSON(http.StatusCreated, review)
}

// Update edits a review (author only)
// @Summary Update a review
// @Tags reviews
// @Accept json
// @Produce json
// @Param id path int true "Review ID"
// @Param request body ReviewRequest true "Changes"
// @Success 200 {object} models.Review
// @Failure 404 {object} apperr.ErrorResponse "Review not found"
// @Security BearerAuth
// @Router /reviews/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	id, err := params.ID(c, "id")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	userID, err := auth.CurrentUser(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.InvalidArgument("Invalid request body"))
		return
	}
	if req.Review.UserID != nil {
		if _, err := auth.MatchUser(c, req.Review.UserID); err != nil {
			apperr.Abort(c, err)
			return
		}
	}

	review, err := h.svc.Update(c.Request.Context(), id, userID, req.Review.input())
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// Delete removes a review (author only)
// @Summary Delete a review
// @Tags reviews
// @Produce json
// @Param id path int true "Review ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} apperr.ErrorResponse "Review not found"
// @Security BearerAuth
// @Router /reviews/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, err := params.ID(c, "id")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	userID, err := auth.CurrentUser(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, userID); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// RegisterRoutes registers review routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.GET("/:userId", h.ListByUser)
	rg.GET("/:userId/:movieId", h.GetForUserMovie)
	rg.POST("", requireAuth, h.Create)
	rg.PUT("/:id", requireAuth, h.Update)
	rg.DELETE("/:id", requireAuth, h.Delete)
}
