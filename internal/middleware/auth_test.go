package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarazen/backend/internal/models"
	"github.com/clarazen/backend/internal/utils"
)

func setupProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	protected := router.Group("/", AuthMiddleware())
	protected.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id"), "role": c.GetString("role")})
	})
	protected.GET("/admin", AdminMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	return router
}

func doGet(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	router := setupProtectedRouter()

	token, err := utils.GenerateToken(uuid.New(), "ana@example.com", models.RoleUser, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, doGet(router, "/me", token).Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(router, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(router, "/me", "not-a-token").Code)
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	router := setupProtectedRouter()

	token, err := utils.GenerateToken(uuid.New(), "ana@example.com", models.RoleUser, -time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, doGet(router, "/me", token).Code)
}

func TestAdminMiddleware(t *testing.T) {
	router := setupProtectedRouter()

	userToken, err := utils.GenerateToken(uuid.New(), "ana@example.com", models.RoleUser, time.Hour)
	require.NoError(t, err)
	adminToken, err := utils.GenerateToken(uuid.New(), "admin@example.com", models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, doGet(router, "/admin", userToken).Code)
	assert.Equal(t, http.StatusOK, doGet(router, "/admin", adminToken).Code)
}
