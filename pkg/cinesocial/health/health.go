// Package health reports whether the service and its store are reachable
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// pingTimeout bounds the store check so a hung connection cannot hang probes
const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves the health endpoint
type Handler struct {
	store Pinger
	log   *zap.Logger
}

// NewHandler creates a new health handler
func NewHandler(store Pinger, log *zap.Logger) *Handler {
	return &Handler{store: store, log: log}
}

// Check reports service and store status
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *Handler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	if err := h.store.PingContext(ctx); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unavailable",
			"database": "unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "cinesocial",
		"database": "ok",
	})
}

// RegisterRoutes registers the health route
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.Check)
}
