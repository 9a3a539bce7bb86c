package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/clarazen/backend/internal/logger"
	"github.com/clarazen/backend/internal/models"
	affiliatesvc "github.com/clarazen/backend/internal/services/affiliate"
	"github.com/clarazen/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthHandler handles the thin registration/login surface. Credential policy
// and session management beyond token issuance belong to the auth
// collaborator.
type AuthHandler struct {
	db           *gorm.DB
	affiliateSvc *affiliatesvc.AffiliateService
	tokenTTL     time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, affiliateSvc *affiliatesvc.AffiliateService, tokenTTLHours int) *AuthHandler {
	return &AuthHandler{
		db:           db,
		affiliateSvc: affiliateSvc,
		tokenTTL:     time.Duration(tokenTTLHours) * time.Hour,
	}
}

// Register creates a user account. When a referral code is present
// (register?ref=<code>), the new user is attributed to the affiliate's owner
// and the visit is recorded as a click.
func (h *AuthHandler) Register(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.User
	err := h.db.Where("email = ?", input.Email).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Log.Error("error checking existing user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		logger.Log.Error("error hashing password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	user := models.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}

	// Referral attribution: ?ref=<code> resolves to the affiliate's owning
	// user. An unknown code does not block registration.
	refCode := c.Query("ref")
	if refCode != "" {
		if click, err := h.affiliateSvc.TrackClick(affiliatesvc.TrackClickInput{
			Code:      refCode,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Referrer:  c.Request.Referer(),
		}); err == nil {
			var aff models.Affiliate
			if err := h.db.First(&aff, "id = ?", click.AffiliateID).Error; err == nil {
				user.ReferredByID = &aff.UserID
			}
		} else if !errors.Is(err, affiliatesvc.ErrUnknownAffiliateCode) {
			logger.Log.Warn("error tracking referral click", zap.Error(err))
		}
	}

	if err := h.db.Create(&user).Error; err != nil {
		logger.Log.Error("error creating user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.Role, h.tokenTTL)
	if err != nil {
		logger.Log.Error("error generating token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// Login authenticates a user and returns a token
func (h *AuthHandler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", input.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if !utils.CheckPasswordHash(input.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := h.db.Save(&user).Error; err != nil {
		logger.Log.Warn("error updating last login", zap.Error(err))
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.Role, h.tokenTTL)
	if err != nil {
		logger.Log.Error("error generating token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}
