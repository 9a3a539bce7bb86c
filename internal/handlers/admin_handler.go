package handlers

import (
	"net/http"
	"strconv"

	affiliatesvc "github.com/clarazen/backend/internal/services/affiliate"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminHandler handles admin management of the affiliate program
type AdminHandler struct {
	db           *gorm.DB
	affiliateSvc *affiliatesvc.AffiliateService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *gorm.DB, affiliateSvc *affiliatesvc.AffiliateService) *AdminHandler {
	return &AdminHandler{db: db, affiliateSvc: affiliateSvc}
}

// ListAffiliates returns all affiliates, paginated
func (h *AdminHandler) ListAffiliates(c *gin.Context) {
	page, pageSize := pageParams(c)
	affiliates, total, err := h.affiliateSvc.ListAffiliates(page, pageSize)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"affiliates": affiliates,
		"total":      total,
		"page":       page,
		"page_size":  pageSize,
	})
}

// TopAffiliates returns the highest-earning affiliates
func (h *AdminHandler) TopAffiliates(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	affiliates, err := h.affiliateSvc.TopAffiliates(limit)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"affiliates": affiliates})
}

// ListWithdrawals returns withdrawals across all affiliates
func (h *AdminHandler) ListWithdrawals(c *gin.Context) {
	page, pageSize := pageParams(c)
	withdrawals, total, err := h.affiliateSvc.ListWithdrawals(c.Query("status"), page, pageSize)
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

// ApproveWithdrawal approves a requested withdrawal
func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	withdrawalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal ID"})
		return
	}

	withdrawal, err := h.affiliateSvc.ApproveWithdrawal(withdrawalID, adminID)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawal": withdrawal})
}

// RejectWithdrawal rejects a requested withdrawal and refunds the amount
func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	withdrawalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal ID"})
		return
	}

	var input struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	withdrawal, err := h.affiliateSvc.RejectWithdrawal(withdrawalID, adminID, input.Notes)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawal": withdrawal})
}
