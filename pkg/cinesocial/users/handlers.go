package users

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/auth"
	"github.com/mikepea/cinesocial/pkg/cinesocial/params"
)

// Handler handles user and profile requests
type Handler struct {
	svc *Service
}

// NewHandler creates a new users handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ProfileRequest is the body of PUT /profile/:userId
type ProfileRequest struct {
	Description *string `json:"description"`
	Email       *string `json:"email"`
}

// List returns all users
// @Summary List users
// @Tags user
// @Produce json
// @Success 200 {array} models.User
// @Router /user [get]
func (h *Handler) List(c *gin.Context) {
	users, err := h.svc.List(c.Request.Context())
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetByUsername returns a user by username
// @Summary Get a user by username
// @Tags user
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.User
// @Failure 404 {object} apperr.ErrorResponse "User not found"
// @Router /user/{username} [get]
func (h *Handler) GetByUsername(c *gin.Context) {
	user, err := h.svc.ByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Delete removes the caller's own account
// @Summary Delete account
// @Description Delete the authenticated user's account and everything it owns
// @Tags user
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} apperr.ErrorResponse "Not your account"
// @Failure 404 {object} apperr.ErrorResponse "User not found"
// @Security BearerAuth
// @Router /user/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, err := params.ID(c, "id")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	if _, err := auth.MatchUser(c, &id); err != nil {
		apperr.Abort(c, err)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// GetProfile returns a user's profile
// @Summary Get profile
// @Tags profile
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} apperr.ErrorResponse "User not found"
// @Router /profile/{userId} [get]
func (h *Handler) GetProfile(c *gin.Context) {
	id, err := params.ID(c, "userId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	user, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile changes the caller's description or email
// @Summary Update profile
// @Tags profile
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param request body ProfileRequest true "Profile fields"
// @Success 200 {object} models.User
// @Failure 403 {object} apperr.ErrorResponse "Not your profile"
// @Failure 409 {object} apperr.ErrorResponse "Email already registered"
// @Security BearerAuth
// @Router /profile/{userId} [put]
func (h *Handler) UpdateProfile(c *gin.Context) {
	id, err := params.ID(c, "userId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	if _, err := auth.MatchUser(c, &id); err != nil {
		apperr.Abort(c, err)
		return
	}

	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.InvalidArgument("Invalid request body"))
		return
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), id, ProfileInput{Description: req.Description, Email: req.Email})
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// RegisterRoutes registers user routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.GET("/:username", h.GetByUsername)
	rg.DELETE("/:id", requireAuth, h.Delete)
}

// RegisterProfileRoutes registers profile routes on the given router group
func (h *Handler) RegisterProfileRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("/:userId", h.GetProfile)
	rg.PUT("/:userId", requireAuth, h.UpdateProfile)
}
