package groups

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/auth"
	"github.com/mikepea/cinesocial/pkg/cinesocial/params"
	"go.uber.org/zap"
)

// Handler handles group-related requests
type Handler struct {
	svc *Service
	log *zap.Logger
}

// NewHandler creates a new groups handler
func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// GroupRequest represents the body of a group create or update
type GroupRequest struct {
	Name        *string `json:"group_name"`
	Description *string `json:"group_desc"`
	Rules       *string `json:"group_rules"`
	IsOpen      *bool   `json:"is_open"`
	OwnerID     *uint   `json:"owner_id"`
}

func (r GroupRequest) input() GroupInput {
	return GroupInput{Name: r.Name, Description: r.Description, Rules: r.Rules, IsOpen: r.IsOpen}
}

// List returns all groups
// @Summary List groups
// @Description Get all groups with their member counts
// @Tags groups
// @Produce json
// @Success 200 {array} GroupDetail
// @Router /groups [get]
func (h *Handler) List(c *gin.Context) {
	groups, err := h.svc.List(c.Request.Context())
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// Create creates a new group and adds the creator as admin
// @Summary Create a group
// @Description Create a new group with the current user as owner and admin
// @Tags groups
// @Accept json
// @Produce json
// @Param request body GroupRequest true "Group details"
// @Success 201 {object} models.Group
// @Failure 400 {object} apperr.ErrorResponse "Validation error"
// @Failure 409 {object} apperr.ErrorResponse "Group name taken"
// @Security BearerAuth
// @Router /groups [post]
func (h *Handler) Create(c *gin.Context) {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.InvalidArgument("Invalid request body"))
		return
	}
	if req.OwnerID != nil {
		if _, err := auth.MatchUser(c, req.OwnerID); err != nil {
			apperr.Abort(c, err)
			return
		}
	}

	group, err := h.svc.Create(c.Request.Context(), userID, req.input())
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	h.log.Info("group created", zap.Uint("group_id", group.ID), zap.Uint("owner_id", userID))
	c.JSON(http.StatusCreated, group)
}

// Get returns a specific group
// @Summary Get a group
// @Description Get details of a specific group
// @Tags groups
// @Produce json
// @Param groupId path int true "Group ID"
// @Success 200 {object} GroupDetail
// @Failure 404 {object} apperr.ErrorResponse "Group not found"
// @Router /groups/{groupId} [get]
func (h *Handler) Get(c *gin.Context) {
	groupID, err := params.ID(c, "groupId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	group, err := h.svc.Get(c.Request.Context(), groupID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// Update updates a group (admin only)
// @Summary Update a group
// @Description Update a group (requires admin in group)
// @Tags groups
// @Accept json
// @Produce json
// @Param groupId path int true "Group ID"
// @Param request body GroupRequest true "Updated group details"
// @Success 200 {object} models.Group
// @Failure 403 {object} apperr.ErrorResponse "Admin access required"
// @Security BearerAuth
// @Router /groups/{groupId} [put]
func (h *Handler) Update(c *gin.Context) {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	groupID, err := params.ID(c, "groupId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.InvalidArgument("Invalid request body"))
		return
	}

	group, err := h.svc.Update(c.Request.Context(), groupID, userID, req.input())
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// Delete deletes a group (owner only)
// @Summary Delete a group
// @Description Delete a group with its memberships, invites and discussions
// @Tags groups
// @Produce json
// @Param groupId path int true "Group ID"
// @Success 200 {object} map[string]interface{} "Group deleted"
// @Failure 403 {object} apperr.ErrorResponse "Owner access required"
// @Security BearerAuth
// @Router /groups/{groupId} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	groupID, err := params.ID(c, "groupId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), groupID, userID); err != nil {
		apperr.Abort(c, err)
		return
	}

	h.log.Info("group deleted", zap.Uint("group_id", groupID))
	c.JSON(http.StatusOK, gin.H{"message": "Group deleted", "id": groupID})
}

// RegisterRoutes registers group routes. requireAuth guards every mutating
// route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.POST("", requireAuth, h.Create)
	rg.GET("/:groupId", h.Get)
	rg.PUT("/:groupId", requireAuth, h.Update)
	rg.DELETE("/:groupId", requireAuth, h.Delete)

	rg.GET("/:groupId/members", h.ListMembers)
	rg.POST("/:groupId/members", requireAuth, h.UpsertMember)
	rg.PUT("/:groupId/members/:userId/approve", requireAuth, h.ApproveMember)
	rg.PUT("/:groupId/members/:userId/reject", requireAuth, h.RejectMember)
	rg.PUT("/:groupId/members/:userId/admin", requireAuth, h.SetAdmin)
	rg.DELETE("/:groupId/members/:userId", requireAuth, h.RemoveMember)
	rg.PUT("/:groupId/owner", requireAuth, h.TransferOwnership)

	rg.GET("/:groupId/invites", requireAuth, h.ListInvites)
	rg.POST("/:groupId/invites", requireAuth, h.CreateInvite)
	rg.PUT("/:groupId/invites/accept", requireAuth, h.AcceptInvite)
	rg.PUT("/:groupId/invites/decline", requireAuth, h.DeclineInvite)
}

// RegisterInviteRoutes registers the caller's own invite inbox
func (h *Handler) RegisterInviteRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("", requireAuth, h.MyInvites)
}
