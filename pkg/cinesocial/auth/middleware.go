package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
)

const (
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
	// ContextKeyUsername is the key for username in gin context
	ContextKeyUsername = "username"
)

// AuthMiddleware validates JWT tokens and sets user info in context
func AuthMiddleware(issuer *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			apperr.Abort(c, apperr.Unauthorized("Authorization header required"))
			return
		}

		// Expect "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			apperr.Abort(c, apperr.Unauthorized("Invalid authorization header format"))
			return
		}

		claims, err := issuer.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			apperr.Abort(c, err)
			return
		}

		// Set user info in context
		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUsername, claims.Username)

		c.Next()
	}
}

// GetUserID returns the user ID from the gin context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// CurrentUser returns the authenticated user ID or an Unauthorized error
func CurrentUser(c *gin.Context) (uint, error) {
	userID, ok := GetUserID(c)
	if !ok {
		return 0, apperr.Unauthorized("Authentication required")
	}
	return userID, nil
}

// MatchUser checks a user ID supplied in the request body against the token.
// The ID must be present and must name the authenticated user.
func MatchUser(c *gin.Context, claimed *uint) (uint, error) {
	userID, err := CurrentUser(c)
	if err != nil {
		return 0, err
	}
	if claimed == nil || *claimed == 0 {
		return 0, apperr.InvalidArgument("User ID is required")
	}
	if *claimed != userID {
		return 0, apperr.Forbidden("You can only act on your own behalf")
	}
	return userID, nil
}
