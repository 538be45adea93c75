// Package server assembles the HTTP application: middleware, health and
// metrics endpoints, and every resource's routes.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/auth"
	"github.com/mikepea/cinesocial/pkg/cinesocial/config"
	"github.com/mikepea/cinesocial/pkg/cinesocial/discussions"
	"github.com/mikepea/cinesocial/pkg/cinesocial/favourites"
	"github.com/mikepea/cinesocial/pkg/cinesocial/friends"
	"github.com/mikepea/cinesocial/pkg/cinesocial/groups"
	"github.com/mikepea/cinesocial/pkg/cinesocial/health"
	"github.com/mikepea/cinesocial/pkg/cinesocial/metrics"
	"github.com/mikepea/cinesocial/pkg/cinesocial/middleware"
	"github.com/mikepea/cinesocial/pkg/cinesocial/reviews"
	"github.com/mikepea/cinesocial/pkg/cinesocial/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// limiterCleanupInterval is how often idle login limiters are dropped
const limiterCleanupInterval = 10 * time.Minute

// Deps are the collaborators the server is built from
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

// Server is the assembled HTTP application
type Server struct {
	engine    *gin.Engine
	stop      chan struct{}
	closeOnce sync.Once
}

// New builds the router. A nil Metrics gets a fresh registry.
func New(d Deps) (*Server, error) {
	if d.Config == nil || d.DB == nil {
		return nil, errors.New("server: config and database are required")
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, err
	}

	s := &Server{engine: gin.New(), stop: make(chan struct{})}
	r := s.engine
	// ClientIP keys the login limiter, so forwarded headers count only from
	// configured proxies
	if err := r.SetTrustedProxies(d.Config.TrustedProxies); err != nil {
		return nil, fmt.Errorf("server: trusted proxies: %w", err)
	}
	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Log),
		middleware.Recovery(d.Log),
		d.Metrics.Middleware(),
	)

	health.NewHandler(sqlDB, d.Log).RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	issuer := auth.NewIssuer(d.Config.JWTSecret, d.Config.TokenTTL)
	requireAuth := auth.AuthMiddleware(issuer)

	loginLimiter := middleware.NewRateLimiter(d.Config.LoginRatePerSecond, d.Config.LoginBurst, d.Log)
	loginLimiter.StartCleanup(limiterCleanupInterval, s.stop)

	userGroup := r.Group("/user")
	auth.NewHandler(d.DB, issuer, d.Log).RegisterRoutes(userGroup, loginLimiter.Handler())

	usersHandler := users.NewHandler(users.NewService(d.DB, d.Log))
	usersHandler.RegisterRoutes(userGroup, requireAuth)
	usersHandler.RegisterProfileRoutes(r.Group("/profile"), requireAuth)

	groupsHandler := groups.NewHandler(groups.NewService(d.DB, d.Metrics), d.Log)
	groupsHandler.RegisterRoutes(r.Group("/groups"), requireAuth)
	groupsHandler.RegisterInviteRoutes(r.Group("/invites"), requireAuth)

	friends.NewHandler(friends.NewService(d.DB, d.Metrics), d.Log).
		RegisterRoutes(r.Group("/friends"), requireAuth)

	discussions.NewHandler(discussions.NewService(d.DB, d.Metrics), d.Log).
		RegisterRoutes(r.Group("/discussions"), requireAuth)

	reviews.NewHandler(reviews.NewService(d.DB), d.Log).
		RegisterRoutes(r.Group("/reviews"), requireAuth)

	favourites.NewHandler(favourites.NewService(d.DB), d.Log).
		RegisterRoutes(r.Group("/favourites"), requireAuth)

	return s, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Close stops background work started by New
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.stop) })
}
