package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/reviews/:userId", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/reviews/1", "/reviews/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	count := testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/reviews/:userId", "200"))
	assert.Equal(t, float64(2), count)
}

func TestDomainCounters(t *testing.T) {
	m := New()
	m.RecordReaction("discussion", "liked")
	m.RecordReaction("discussion", "liked")
	m.RecordFriendship("accept")
	m.RecordMembership("join")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.reactions.WithLabelValues("discussion", "liked")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.friendships.WithLabelValues("accept")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.memberships.WithLabelValues("join")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordReaction("comment", "disliked")
	m.RecordFriendship("remove")
	m.RecordMembership("leave")

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.RecordFriendship("request")

	resp := httptest.NewRecorder()
	m.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "cinesocial_social_friendship_transitions_total")
}
