package favourites

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/auth"
	"github.com/mikepea/cinesocial/pkg/cinesocial/database"
	"github.com/mikepea/cinesocial/pkg/cinesocial/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testIssuer = auth.NewIssuer("test-secret", time.Hour)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.ConnectMemory()
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) models.User {
	user := models.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func doRequest(router *gin.Engine, method, path string, user *models.User) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	if user != nil {
		token, _ := testIssuer.GenerateToken(user.ID, user.Username)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestAddIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, user.ID, 550))
	require.NoError(t, svc.Add(ctx, user.ID, 550))
	require.NoError(t, svc.Add(ctx, user.ID, 680))

	favourites, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, favourites, 2)

	require.NoError(t, svc.Remove(ctx, user.ID, 550))
	err = svc.Remove(ctx, user.ID, 550)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	favourites, err = svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, favourites, 1)
	assert.Equal(t, uint(680), favourites[0].MovieID)
}

func TestAddForDeletedUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "ghost")
	require.NoError(t, db.Delete(&models.User{}, user.ID).Error)

	err := svc.Add(context.Background(), user.ID, 550)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	var count int64
	db.Model(&models.Favourite{}).Count(&count)
	assert.Zero(t, count)
}

func TestFavouriteRoutes(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(NewService(db), zap.NewNop()).RegisterRoutes(router.Group("/favourites"), auth.AuthMiddleware(testIssuer))

	path := "/favourites/users/" + itoa(alice.ID) + "/favourites/550"

	resp := doRequest(router, "POST", path, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = doRequest(router, "POST", path, &bob)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = doRequest(router, "POST", path, &alice)
	assert.Equal(t, http.StatusCreated, resp.Code)
	resp = doRequest(router, "POST", path, &alice)
	assert.Equal(t, http.StatusCreated, resp.Code)

	resp = doRequest(router, "GET", "/favourites/users/"+itoa(alice.ID)+"/favourites", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list []models.Favourite
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	resp = doRequest(router, "DELETE", path, &alice)
	assert.Equal(t, http.StatusOK, resp.Code)
	resp = doRequest(router, "DELETE", path, &alice)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = doRequest(router, "DELETE", "/favourites/users/"+itoa(alice.ID)+"/favourites/abc", &alice)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
