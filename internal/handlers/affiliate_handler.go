package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/clarazen/backend/internal/logger"
	affiliatesvc "github.com/clarazen/backend/internal/services/affiliate"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AffiliateHandler handles affiliate-facing requests
type AffiliateHandler struct {
	db           *gorm.DB
	affiliateSvc *affiliatesvc.AffiliateService
}

// NewAffiliateHandler creates a new affiliate handler
func NewAffiliateHandler(db *gorm.DB, affiliateSvc *affiliatesvc.AffiliateService) *AffiliateHandler {
	return &AffiliateHandler{db: db, affiliateSvc: affiliateSvc}
}

// affiliateStatus maps service errors to HTTP status codes
func affiliateStatus(err error) int {
	switch {
	case errors.Is(err, affiliatesvc.ErrAlreadyAffiliate),
		errors.Is(err, affiliatesvc.ErrDuplicateDocument):
		return http.StatusConflict
	case errors.Is(err, affiliatesvc.ErrInvalidParentCode),
		errors.Is(err, affiliatesvc.ErrBelowMinimum):
		return http.StatusBadRequest
	case errors.Is(err, affiliatesvc.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, affiliatesvc.ErrUnknownAffiliateCode),
		errors.Is(err, affiliatesvc.ErrAffiliateNotFound),
		errors.Is(err, affiliatesvc.ErrWithdrawalNotFound):
		return http.StatusNotFound
	case errors.Is(err, affiliatesvc.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondAffiliateError(c *gin.Context, err error) {
	status := affiliateStatus(err)
	if status == http.StatusInternalServerError {
		logger.Log.Error("affiliate request failed", zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}
	return userID, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// CreateAffiliate enrolls the authenticated user into the affiliate program
func (h *AffiliateHandler) CreateAffiliate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		DocumentType        string   `json:"document_type" binding:"required,oneof=cpf cnpj"`
		DocumentNumber      string   `json:"document_number" binding:"required"`
		CommissionType      string   `json:"commission_type" binding:"omitempty,oneof=cpa recurring"`
		CommissionRate      float64  `json:"commission_rate"`
		CommissionValue     *float64 `json:"commission_value"`
		ParentAffiliateCode string   `json:"parent_affiliate_code"`
		PixKeyType          string   `json:"pix_key_type"`
		PixKey              string   `json:"pix_key"`
		PixAccountName      string   `json:"pix_account_name"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	aff, err := h.affiliateSvc.CreateAffiliate(userID, affiliatesvc.CreateAffiliateInput{
		DocumentType:        input.DocumentType,
		DocumentNumber:      input.DocumentNumber,
		CommissionType:      input.CommissionType,
		CommissionRate:      input.CommissionRate,
		CommissionValue:     input.CommissionValue,
		ParentAffiliateCode: input.ParentAffiliateCode,
		PixKeyType:          input.PixKeyType,
		PixKey:              input.PixKey,
		PixAccountName:      input.PixAccountName,
	})
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"affiliate": aff})
}

// TrackClick records an attributed visit. Public endpoint.
func (h *AffiliateHandler) TrackClick(c *gin.Context) {
	var input struct {
		Code        string `json:"code" binding:"required"`
		Referrer    string `json:"referrer"`
		UTMSource   string `json:"utm_source"`
		UTMMedium   string `json:"utm_medium"`
		UTMCampaign string `json:"utm_campaign"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	click, err := h.affiliateSvc.TrackClick(affiliatesvc.TrackClickInput{
		Code:        input.Code,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
		Referrer:    input.Referrer,
		UTMSource:   input.UTMSource,
		UTMMedium:   input.UTMMedium,
		UTMCampaign: input.UTMCampaign,
	})
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"click": click})
}

// GetStats returns the authenticated affiliate's dashboard summary
func (h *AffiliateHandler) GetStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.affiliateSvc.GetStats(c.Request.Context(), userID)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetCommissions returns the authenticated affiliate's commission history
func (h *AffiliateHandler) GetCommissions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	aff, err := h.affiliateSvc.GetByUserID(userID)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	page, pageSize := pageParams(c)
	commissions, total, err := h.affiliateSvc.GetCommissionHistory(aff.ID, page, pageSize)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"commissions": commissions,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
	})
}

// GetWithdrawals returns the authenticated affiliate's withdrawal history
func (h *AffiliateHandler) GetWithdrawals(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	aff, err := h.affiliateSvc.GetByUserID(userID)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	page, pageSize := pageParams(c)
	withdrawals, total, err := h.affiliateSvc.GetWithdrawalHistory(aff.ID, page, pageSize)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"withdrawals": withdrawals,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
	})
}

// RequestWithdrawal creates a withdrawal request for the authenticated
// affiliate
func (h *AffiliateHandler) RequestWithdrawal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Amount         float64 `json:"amount" binding:"required,gt=0"`
		PixKeyType     string  `json:"pix_key_type" binding:"required,oneof=phone email cpf cnpj random"`
		PixKey         string  `json:"pix_key" binding:"required"`
		PixAccountName string  `json:"pix_account_name"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	aff, err := h.affiliateSvc.GetByUserID(userID)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	withdrawal, err := h.affiliateSvc.RequestWithdrawal(aff.ID, affiliatesvc.WithdrawalInput{
		Amount:         input.Amount,
		PixKeyType:     input.PixKeyType,
		PixKey:         input.PixKey,
		PixAccountName: input.PixAccountName,
	})
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"withdrawal": withdrawal})
}
