package handlers

import (
	"errors"
	"net/http"

	"github.com/clarazen/backend/internal/logger"
	"github.com/clarazen/backend/internal/services/billing"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BillingHandler handles plan and subscription requests
type BillingHandler struct {
	db         *gorm.DB
	billingSvc *billing.BillingService
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(db *gorm.DB, billingSvc *billing.BillingService) *BillingHandler {
	return &BillingHandler{db: db, billingSvc: billingSvc}
}

// ListPlans returns the active subscription plans
func (h *BillingHandler) ListPlans(c *gin.Context) {
	plans, err := h.billingSvc.ListPlans()
	if err != nil {
		logger.Log.Error("error listing plans", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// Subscribe subscribes the authenticated user to a plan
func (h *BillingHandler) Subscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		PlanSlug string `json:"plan_slug" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.billingSvc.Subscribe(userID, input.PlanSlug)
	if err != nil {
		if errors.Is(err, billing.ErrPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.Log.Error("error creating subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"subscription": sub})
}
