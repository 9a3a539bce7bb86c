package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/clarazen/backend/internal/logger"
	"github.com/clarazen/backend/internal/services/billing"
	"github.com/clarazen/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WebhookHandler receives events from the billing collaborator
type WebhookHandler struct {
	db            *gorm.DB
	billingSvc    *billing.BillingService
	webhookSecret string
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(db *gorm.DB, billingSvc *billing.BillingService, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{db: db, billingSvc: billingSvc, webhookSecret: webhookSecret}
}

// paymentEvent is the payload the billing provider posts after a successful
// subscription payment
type paymentEvent struct {
	UserID         uuid.UUID `json:"user_id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	Amount         float64   `json:"amount"`
	Reference      string    `json:"reference"`
}

// PaymentWebhook handles a payment-succeeded event. The signature is checked
// over the raw body before anything is parsed.
func (h *WebhookHandler) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}

	signature := c.GetHeader("X-Signature")
	if !utils.VerifyWebhookSignature(string(body), signature, h.webhookSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var event paymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if event.UserID == uuid.Nil || event.SubscriptionID == uuid.Nil || event.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	if err := h.billingSvc.RecordPayment(event.UserID, event.SubscriptionID, event.Amount, event.Reference); err != nil {
		logger.Log.Error("payment webhook failed",
			zap.String("reference", event.Reference),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
