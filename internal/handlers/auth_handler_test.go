package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clarazen/backend/internal/config"
	"github.com/clarazen/backend/internal/models"
	affiliatesvc "github.com/clarazen/backend/internal/services/affiliate"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, *gorm.DB, *affiliatesvc.AffiliateService) {
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)
	affCfg := config.AffiliateConfig{MinWithdrawal: 50, DefaultRate: 50, SubAffiliateRate: 10, HoldDays: 7}
	affSvc := affiliatesvc.NewAffiliateService(db, affCfg, nil)
	handler := NewAuthHandler(db, affSvc, 24)

	router := gin.New()
	router.POST("/api/auth/register", handler.Register)
	router.POST("/api/auth/login", handler.Login)
	return router, db, affSvc
}

func postJSON(router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterAndLogin(t *testing.T) {
	router, db, _ := setupAuthRouter(t)

	w := postJSON(router, "/api/auth/register", map[string]string{
		"name":     "Ana",
		"email":    "ana@example.com",
		"password": "super-secret-1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var registered struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))
	assert.NotEmpty(t, registered.Token)

	var user models.User
	require.NoError(t, db.Where("email = ?", "ana@example.com").First(&user).Error)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Nil(t, user.ReferredByID)

	w = postJSON(router, "/api/auth/login", map[string]string{
		"email":    "ana@example.com",
		"password": "super-secret-1",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(router, "/api/auth/login", map[string]string{
		"email":    "ana@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	router, _, _ := setupAuthRouter(t)

	payload := map[string]string{
		"name":     "Ana",
		"email":    "ana@example.com",
		"password": "super-secret-1",
	}
	require.Equal(t, http.StatusCreated, postJSON(router, "/api/auth/register", payload).Code)
	assert.Equal(t, http.StatusConflict, postJSON(router, "/api/auth/register", payload).Code)
}

func TestRegisterWithReferralCode(t *testing.T) {
	router, db, affSvc := setupAuthRouter(t)

	owner := models.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&owner).Error)
	aff, err := affSvc.CreateAffiliate(owner.ID, affiliatesvc.CreateAffiliateInput{DocumentNumber: "doc-1"})
	require.NoError(t, err)

	w := postJSON(router, "/api/auth/register?ref="+aff.Code, map[string]string{
		"name":     "Ana",
		"email":    "ana@example.com",
		"password": "super-secret-1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// The new user is attributed to the affiliate's owner
	var user models.User
	require.NoError(t, db.Where("email = ?", "ana@example.com").First(&user).Error)
	require.NotNil(t, user.ReferredByID)
	assert.Equal(t, owner.ID, *user.ReferredByID)

	// And the visit counts as a click
	var reloaded models.Affiliate
	require.NoError(t, db.First(&reloaded, "id = ?", aff.ID).Error)
	assert.Equal(t, int64(1), reloaded.TotalClicks)
}

func TestRegisterWithUnknownReferralCode(t *testing.T) {
	router, db, _ := setupAuthRouter(t)

	// An unknown code never blocks registration
	w := postJSON(router, "/api/auth/register?ref=NOSUCH00", map[string]string{
		"name":     "Ana",
		"email":    "ana@example.com",
		"password": "super-secret-1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var user models.User
	require.NoError(t, db.Where("email = ?", "ana@example.com").First(&user).Error)
	assert.Nil(t, user.ReferredByID)
}
