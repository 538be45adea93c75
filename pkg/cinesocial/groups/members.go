package groups

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/auth"
	"github.com/mikepea/cinesocial/pkg/cinesocial/models"
	"github.com/mikepea/cinesocial/pkg/cinesocial/params"
)

// UpsertMemberRequest represents a request to add or update a member
type UpsertMemberRequest struct {
	UserID  uint                     `json:"userId"`
	IsAdmin *bool                    `json:"isAdmin"`
	Status  *models.MembershipStatus `json:"status"`
}

// SetAdminRequest represents a request to change a member's admin flag
type SetAdminRequest struct {
	IsAdmin *bool `json:"isAdmin" binding:"required"`
}

// TransferOwnershipRequest names the new owner
type TransferOwnershipRequest struct {
	UserID uint `json:"userId" binding:"required"`
}

// groupAndUser parses the :groupId and :userId path parameters
func groupAndUser(c *gin.Context) (uint, uint, error) {
	groupID, err := params.ID(c, "groupId")
	if err != nil {
		return 0, 0, err
	}
	userID, err := params.ID(c, "userId")
	if err != nil {
		return 0, 0, err
	}
	return groupID, userID, nil
}

// ListMembers returns the membership rows of a group, optionally filtered
// by ?status=
func (h *Handler) ListMembers(c *gin.Context) {
	groupID, err := params.ID(c, "groupId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	members, err := h.svc.Members(c.Request.Context(), groupID, models.MembershipStatus(c.Query("status")))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// UpsertMember requests membership for the caller, or lets an admin add or
// update any user
func (h *Handler) UpsertMember(c *gin.Context) {
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

	var req UpsertMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.InvalidArgument("Invalid group or user ID"))
		return
	}

	membership, err := h.svc.Upsert(c.Request.Context(), groupID, actorID, MemberInput{
		UserID:  req.UserID,
		IsAdmin: req.IsAdmin,
		Status:  req.Status,
	})
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, membership)
}

// ApproveMember accepts a pending membership request (admin only)
func (h *Handler) ApproveMember(c *gin.Context) {
	actorID, err := auth.CurrentUser(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	groupID, userID, err := groupAndUser(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	membership, err := h.svc.Approve(c.Request.Context(), groupID, actorID, userID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Membership approved", "membership": membership})
}

// RejectMember drops a pending membership request (admin only)
func (h *Handler) RejectMember(c *gin.Context) {
	actorID, err := auth.CurrentUser(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	groupID, userID, err := groupAndUser(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	if err := h.svc.Reject(c.Request.Context(), groupID, actorID, userID); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Membership request rejected"})
}

// SetAdmin grants or revokes admin rights (owner only)
func (h *Handler) SetAdmin(c *gin.Context) {
	actorID, err := auth.CurrentUser(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	groupID, userID, err := groupAndUser(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	var req SetAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.InvalidArgument("isAdmin is required"))
		return
	}

	membership, err := h.svc.SetAdmin(c.Request.Context(), groupID, actorID, userID, *req.IsAdmin)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, membership)
}

// RemoveMember lets a user leave, or an admin remove someone else
func (h *Handler) RemoveMember(c *gin.Context) {
	actorID, err := auth.CurrentUser(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	groupID, userID, err := groupAndUser(c)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	if userID == actorID {
		if err := h.svc.Leave(c.Request.Context(), groupID, userID); err != nil {
			apperr.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Left group"})
		return
	}

	if err := h.svc.RemoveMember(c.Request.Context(), groupID, actorID, userID); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// TransferOwnership hands the group to another member (owner only)
func (h *Handler) TransferOwnership(c *gin.Context) {
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

	var req TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.InvalidArgument("User ID is required"))
		return
	}

	group, err := h.svc.TransferOwnership(c.Request.Context(), groupID, actorID, req.UserID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}
