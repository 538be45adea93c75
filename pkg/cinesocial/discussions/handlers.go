package discussions

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/auth"
	"github.com/mikepea/cinesocial/pkg/cinesocial/models"
	"github.com/mikepea/cinesocial/pkg/cinesocial/params"
	"go.uber.org/zap"
)

// Handler handles discussion and comment requests
type Handler struct {
	svc *Service
	log *zap.Logger
}

// NewHandler creates a new discussions handler
func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// CreateDiscussionRequest is the body of POST /discussions/discussion/create
type CreateDiscussionRequest struct {
	GroupID uint    `json:"group_id"`
	UserID  *uint   `json:"user_id"`
	Title   *string `json:"discussion_title"`
	Text    *string `json:"discussion_text"`
}

// UpdateDiscussionRequest is the body of PUT /discussions/discussion/:id
type UpdateDiscussionRequest struct {
	UserID *uint   `json:"userId"`
	Title  *string `json:"discussion_title"`
	Text   *string `json:"discussion_text"`
}

// CreateCommentRequest is the body of POST /discussions/comment/create
type CreateCommentRequest struct {
	DiscussionID uint    `json:"discussion_id"`
	UserID       *uint   `json:"userId"`
	Text         *string `json:"comment_text"`
}

// UpdateCommentRequest is the body of PUT /discussions/comment/:id
type UpdateCommentRequest struct {
	UserID *uint   `json:"userId"`
	Text   *string `json:"comment_text"`
}

// ActorRequest names the user liking, disliking or deleting
type ActorRequest struct {
	UserID *uint `json:"userId"`
}

// bindActor binds body and checks that the user ID it carries is the caller
func bindActor(c *gin.Context, body interface{}, claimed func() *uint) (uint, bool) {
	if err := c.ShouldBindJSON(body); err != nil {
		apperr.Abort(c, apperr.InvalidArgument("Invalid request body"))
		return 0, false
	}
	userID, err := auth.MatchUser(c, claimed())
	if err != nil {
		apperr.Abort(c, err)
		return 0, false
	}
	return userID, true
}

// ListByGroup returns the discussions of a group
// @Summary List discussions
// @Tags discussions
// @Produce json
// @Param groupId path int true "Group ID"
// @Success 200 {array} DiscussionView
// @Failure 404 {object} apperr.ErrorResponse "Group not found"
// @Router /discussions/{groupId} [get]
func (h *Handler) ListByGroup(c *gin.Context) {
	groupID, err := params.ID(c, "groupId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	discussions, err := h.svc.ListByGroup(c.Request.Context(), groupID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, discussions)
}

// Get returns a discussion
// @Summary Get a discussion
// @Tags discussions
// @Produce json
// @Param discussionId path int true "Discussion ID"
// @Success 200 {object} models.Discussion
// @Failure 404 {object} apperr.ErrorResponse "Discussion not found"
// @Router /discussions/discussion/{discussionId} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := params.ID(c, "discussionId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	d, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListComments returns the comments of a discussion
func (h *Handler) ListComments(c *gin.Context) {
	id, err := params.ID(c, "discussionId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	comments, err := h.svc.Comments(c.Request.Context(), id)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// GetComment returns a comment
func (h *Handler) GetComment(c *gin.Context) {
	id, err := params.ID(c, "commentId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	comment, err := h.svc.GetComment(c.Request.Context(), id)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// Create starts a discussion in a group
// @Summary Create a discussion
// @Description Start a discussion; the author must be a member of the group
// @Tags discussions
// @Accept json
// @Produce json
// @Param request body CreateDiscussionRequest true "Discussion"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} apperr.ErrorResponse "Missing fields"
// @Failure 403 {object} apperr.ErrorResponse "Not a member"
// @Failure 404 {object} apperr.ErrorResponse "Group not found"
// @Security BearerAuth
// @Router /discussions/discussion/create [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateDiscussionRequest
	userID, ok := bindActor(c, &req, func() *uint { return req.UserID })
	if !ok {
		return
	}

	d, err := h.svc.Create(c.Request.Context(), userID, DiscussionInput{GroupID: req.GroupID, Title: req.Title, Text: req.Text})
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	h.log.Info("discussion created", zap.Uint("discussion_id", d.ID), zap.Uint("group_id", d.GroupID))
	c.JSON(http.StatusCreated, gin.H{"message": "Discussion created successfully", "discussion": d})
}

// Update edits a discussion (author only)
// @Summary Update a discussion
// @Tags discussions
// @Accept json
// @Produce json
// @Param discussionId path int true "Discussion ID"
// @Param request body UpdateDiscussionRequest true "Changes"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} apperr.ErrorResponse "Not the author"
// @Failure 404 {object} apperr.ErrorResponse "Discussion not found"
// @Security BearerAuth
// @Router /discussions/discussion/{discussionId} [put]
func (h *Handler) Update(c *gin.Context) {
	id, err := params.ID(c, "discussionId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	var req UpdateDiscussionRequest
	userID, ok := bindActor(c, &req, func() *uint { return req.UserID })
	if !ok {
		return
	}

	d, err := h.svc.Update(c.Request.Context(), id, userID, DiscussionInput{Title: req.Title, Text: req.Text})
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Discussion updated successfully", "discussion": d})
}

// Delete removes a discussion and its comments (author or group admin)
// @Summary Delete a discussion
// @Tags discussions
// @Produce json
// @Param discussionId path int true "Discussion ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} apperr.ErrorResponse "Not the author or a group admin"
// @Failure 404 {object} apperr.ErrorResponse "Discussion not found"
// @Security BearerAuth
// @Router /discussions/discussion/{discussionId} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, err := params.ID(c, "discussionId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	var req ActorRequest
	userID, ok := bindActor(c, &req, func() *uint { return req.UserID })
	if !ok {
		return
	}

	d, comments, err := h.svc.Delete(c.Request.Context(), id, userID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	h.log.Info("discussion deleted", zap.Uint("discussion_id", id), zap.Uint("by", userID), zap.Int64("comments", comments))
	c.JSON(http.StatusOK, gin.H{
		"message":              "Discussion and all associated comments deleted successfully",
		"deletedDiscussion":    d,
		"deletedCommentsCount": comments,
	})
}

// CreateComment adds a comment to a discussion
func (h *Handler) CreateComment(c *gin.Context) {
	var req CreateCommentRequest
	userID, ok := bindActor(c, &req, func() *uint { return req.UserID })
	if !ok {
		return
	}

	comment, err := h.svc.CreateComment(c.Request.Context(), userID, req.DiscussionID, req.Text)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Comment added successfully", "comment": comment})
}

// UpdateComment edits a comment (author only)
func (h *Handler) UpdateComment(c *gin.Context) {
	id, err := params.ID(c, "commentId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	var req UpdateCommentRequest
	userID, ok := bindActor(c, &req, func() *uint { return req.UserID })
	if !ok {
		return
	}

	comment, err := h.svc.UpdateComment(c.Request.Context(), id, userID, req.Text)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment updated successfully", "comment": comment})
}

// DeleteComment removes a comment (author or group admin)
func (h *Handler) DeleteComment(c *gin.Context) {
	id, err := params.ID(c, "commentId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	var req ActorRequest
	userID, ok := bindActor(c, &req, func() *uint { return req.UserID })
	if !ok {
		return
	}

	comment, err := h.svc.DeleteComment(c.Request.Context(), id, userID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Comment deleted successfully",
		"deletedComment": comment,
		"discussionId":   comment.DiscussionID,
	})
}

// react returns a handler toggling reaction r on the target named by param
func (h *Handler) react(param string, r models.ReactionType, toggle func(*gin.Context, uint, uint, models.ReactionType) (*ReactionResult, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := params.ID(c, param)
		if err != nil {
			apperr.Abort(c, err)
			return
		}
		var req ActorRequest
		userID, ok := bindActor(c, &req, func() *uint { return req.UserID })
		if !ok {
			return
		}

		result, err := toggle(c, id, userID, r)
		if err != nil {
			apperr.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) reactToDiscussion(c *gin.Context, id, userID uint, r models.ReactionType) (*ReactionResult, error) {
	return h.svc.ReactToDiscussion(c.Request.Context(), id, userID, r)
}

func (h *Handler) reactToComment(c *gin.Context, id, userID uint, r models.ReactionType) (*ReactionResult, error) {
	return h.svc.ReactToComment(c.Request.Context(), id, userID, r)
}

// RegisterRoutes registers discussion routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("/:groupId", h.ListByGroup)

	rg.POST("/discussion/create", requireAuth, h.Create)
	rg.GET("/discussion/:discussionId", h.Get)
	rg.PUT("/discussion/:discussionId", requireAuth, h.Update)
	rg.DELETE("/discussion/:discussionId", requireAuth, h.Delete)
	rg.GET("/discussion/:discussionId/comments", h.ListComments)
	rg.PUT("/discussion/:discussionId/like", requireAuth, h.react("discussionId", models.ReactionLike, h.reactToDiscussion))
	rg.PUT("/discussion/:discussionId/dislike", requireAuth, h.react("discussionId", models.ReactionDislike, h.reactToDiscussion))

	rg.POST("/comment/create", requireAuth, h.CreateComment)
	rg.GET("/comment/:commentId", h.GetComment)
	rg.PUT("/comment/:commentId", requireAuth, h.UpdateComment)
	rg.DELETE("/comment/:commentId", requireAuth, h.DeleteComment)
	rg.PUT("/comment/:commentId/like", requireAuth, h.react("commentId", models.ReactionLike, h.reactToComment))
	rg.PUT("/comment/:commentId/dislike", requireAuth, h.react("commentId", models.ReactionDislike, h.reactToComment))
}
