package friends

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/auth"
	"github.com/mikepea/cinesocial/pkg/cinesocial/params"
	"go.uber.org/zap"
)

// Handler handles friendship requests
type Handler struct {
	svc *Service
	log *zap.Logger
}

// NewHandler creates a new friends handler
func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// FriendRequestBody is the body of POST /friends/request
type FriendRequestBody struct {
	UserID   *uint `json:"userId"`
	FriendID uint  `json:"friendId"`
}

// ActorBody names the user acting on a request or friendship
type ActorBody struct {
	UserID *uint `json:"userId"`
}

// StatusResponse is the relationship as seen by the asking user
type StatusResponse struct {
	Status     string     `json:"status"`
	Message    string     `json:"message"`
	Since      *time.Time `json:"since,omitempty"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
}

// viewOf projects a pair Status onto the viewer
func viewOf(st Status, viewer uint) StatusResponse {
	switch st.State {
	case StateFriends:
		return StatusResponse{Status: "friends", Message: "You are friends", Since: st.Since}
	case StatePending:
		if st.RequesterID == viewer {
			return StatusResponse{Status: "pending", Message: "Friend request sent", SentAt: st.Since}
		}
		return StatusResponse{Status: "awaiting", Message: "Friend request received", ReceivedAt: st.Since}
	default:
		return StatusResponse{Status: "not_friends", Message: "You are not friends"}
	}
}

// actor binds an ActorBody and checks it names the caller
func actor(c *gin.Context) (uint, bool) {
	var body ActorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apperr.Abort(c, apperr.InvalidArgument("Invalid request body"))
		return 0, false
	}
	userID, err := auth.MatchUser(c, body.UserID)
	if err != nil {
		apperr.Abort(c, err)
		return 0, false
	}
	return userID, true
}

// SendRequest sends a friend request
// @Summary Send a friend request
// @Tags friends
// @Accept json
// @Produce json
// @Param request body FriendRequestBody true "Requester and addressee"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} apperr.ErrorResponse "Missing IDs or self request"
// @Failure 404 {object} apperr.ErrorResponse "User not found"
// @Failure 409 {object} apperr.ErrorResponse "Already friends or request pending"
// @Security BearerAuth
// @Router /friends/request [post]
func (h *Handler) SendRequest(c *gin.Context) {
	var body FriendRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		apperr.Abort(c, apperr.InvalidArgument("Invalid request body"))
		return
	}
	userID, err := auth.MatchUser(c, body.UserID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	request, err := h.svc.Request(c.Request.Context(), userID, body.FriendID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	h.log.Info("friend request sent", zap.Uint("user_id", userID), zap.Uint("friend_id", body.FriendID))
	c.JSON(http.StatusCreated, gin.H{"message": "Friend request sent", "request": request})
}

// Accept accepts a pending request from :friendId
// @Summary Accept a friend request
// @Tags friends
// @Param friendId path int true "Requester ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} apperr.ErrorResponse "Friend request not found"
// @Security BearerAuth
// @Router /friends/accept/{friendId} [put]
func (h *Handler) Accept(c *gin.Context) {
	h.transition(c, h.svc.Accept, "Friend request accepted")
}

// Reject rejects a pending request from :friendId
// @Summary Reject a friend request
// @Tags friends
// @Param friendId path int true "Requester ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} apperr.ErrorResponse "Friend request not found"
// @Security BearerAuth
// @Router /friends/reject/{friendId} [put]
func (h *Handler) Reject(c *gin.Context) {
	h.transition(c, h.svc.Reject, "Friend request rejected")
}

// Cancel withdraws a request the caller sent to :friendId
// @Summary Cancel a friend request
// @Tags friends
// @Param friendId path int true "Addressee ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} apperr.ErrorResponse "Friend request not found"
// @Security BearerAuth
// @Router /friends/cancel/{friendId} [delete]
func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, h.svc.Cancel, "Friend request cancelled")
}

// Remove ends a friendship
// @Summary Remove a friend
// @Tags friends
// @Param friendId path int true "Friend ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} apperr.ErrorResponse "Friendship not found"
// @Security BearerAuth
// @Router /friends/remove/{friendId} [delete]
func (h *Handler) Remove(c *gin.Context) {
	h.transition(c, h.svc.Remove, "Friend removed")
}

func (h *Handler) transition(c *gin.Context, apply func(ctx context.Context, self, other uint) error, message string) {
	friendID, err := params.ID(c, "friendId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	userID, ok := actor(c)
	if !ok {
		return
	}

	if err := apply(c.Request.Context(), userID, friendID); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "userId": userID, "friendId": friendID})
}

// ListFriends returns the accepted friends of ?userId
// @Summary List friends
// @Tags friends
// @Param userId query int true "User ID"
// @Success 200 {object} map[string]interface{}
// @Router /friends [get]
func (h *Handler) ListFriends(c *gin.Context) {
	userID, err := params.QueryID(c, "userId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	friends, err := h.svc.Friends(c.Request.Context(), userID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// ListIncoming returns requests waiting on ?userId
func (h *Handler) ListIncoming(c *gin.Context) {
	h.listRequests(c, h.svc.Incoming)
}

// ListOutgoing returns requests ?userId has sent
func (h *Handler) ListOutgoing(c *gin.Context) {
	h.listRequests(c, h.svc.Outgoing)
}

func (h *Handler) listRequests(c *gin.Context, list func(ctx context.Context, userID uint) ([]Request, error)) {
	userID, err := params.QueryID(c, "userId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	requests, err := list(c.Request.Context(), userID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// GetStatus reports the relationship between ?userId and :friendId
// @Summary Friendship status
// @Tags friends
// @Param friendId path int true "Other user ID"
// @Param userId query int true "Viewer ID"
// @Success 200 {object} StatusResponse
// @Router /friends/status/{friendId} [get]
func (h *Handler) GetStatus(c *gin.Context) {
	friendID, err := params.ID(c, "friendId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	userID, err := params.QueryID(c, "userId")
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	st, err := h.svc.Status(c.Request.Context(), userID, friendID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(st, userID))
}

// RegisterRoutes registers friendship routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("", h.ListFriends)
	rg.GET("/requests", h.ListIncoming)
	rg.GET("/sent", h.ListOutgoing)
	rg.GET("/status/:friendId", h.GetStatus)

	rg.POST("/request", requireAuth, h.SendRequest)
	rg.PUT("/accept/:friendId", requireAuth, h.Accept)
	rg.PUT("/reject/:friendId", requireAuth, h.Reject)
	rg.DELETE("/cancel/:friendId", requireAuth, h.Cancel)
	rg.DELETE("/remove/:friendId", requireAuth, h.Remove)
}
