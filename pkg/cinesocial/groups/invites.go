package groups

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/auth"
	"github.com/mikepea/cinesocial/pkg/cinesocial/params"
)

// InviteRequest names the user being invited
type InviteRequest struct {
	UserID uint `json:"userId"`
}

// ListInvites returns the invites of a group (admin only)
func (h *Handler) ListInvites(c *gin.Context) {
	actorID, err := auth.CurrentUser(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	groupID, err := params.ID(c, "groupId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	invites, err := h.svc.GroupInvites(c.Request.Context(), groupID, actorID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, invites)
}

// CreateInvite invites a user, or re-invites one who declined (admin only)
func (h *Handler) CreateInvite(c *gin.Context) {
	actorID, err := auth.CurrentUser(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	groupID, err := params.ID(c, "groupId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.InvalidArgument("Invalid request body"))
		return
	}

	invite, err := h.svc.Invite(c.Request.Context(), groupID, actorID, req.UserID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, invite)
}

// AcceptInvite accepts the caller's pending invite to the group
func (h *Handler) AcceptInvite(c *gin.Context) {
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

	membership, err := h.svc.AcceptInvite(c.Request.Context(), groupID, userID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invite accepted", "membership": membership})
}

// DeclineInvite declines the caller's pending invite to the group
func (h *Handler) DeclineInvite(c *gin.Context) {
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

	if err := h.svc.DeclineInvite(c.Request.Context(), groupID, userID); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invite declined"})
}

// MyInvites lists the caller's pending invites
func (h *Handler) MyInvites(c *gin.Context) {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	invites, err := h.svc.PendingInvites(c.Request.Context(), userID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, invites)
}
