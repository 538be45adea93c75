package health

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(db, zap.NewNop()).RegisterRoutes(r)
	return r, mock
}

func TestHealthOK(t *testing.T) {
	r, mock := setupRouter(t)
	mock.ExpectPing()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok","service":"cinesocial","database":"ok"}`, resp.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthStoreDown(t *testing.T) {
	r, mock := setupRouter(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
