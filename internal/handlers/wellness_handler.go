package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/clarazen/backend/internal/logger"
	"github.com/clarazen/backend/internal/services/wellness"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WellnessHandler handles diary, finance and routine requests
type WellnessHandler struct {
	db          *gorm.DB
	wellnessSvc *wellness.WellnessService
}

// NewWellnessHandler creates a new wellness handler
func NewWellnessHandler(db *gorm.DB, wellnessSvc *wellness.WellnessService) *WellnessHandler {
	return &WellnessHandler{db: db, wellnessSvc: wellnessSvc}
}

func respondWellnessError(c *gin.Context, err error) {
	if errors.Is(err, wellness.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	logger.Log.Error("wellness request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// CreateDiaryEntry stores a journal entry
func (h *WellnessHandler) CreateDiaryEntry(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Content string `json:"content" binding:"required"`
		Mood    string `json:"mood"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.wellnessSvc.CreateDiaryEntry(userID, input.Content, input.Mood)
	if err != nil {
		respondWellnessError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// ListDiaryEntries returns the user's journal entries
func (h *WellnessHandler) ListDiaryEntries(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, pageSize := pageParams(c)
	entries, total, err := h.wellnessSvc.ListDiaryEntries(userID, page, pageSize)
	if err != nil {
		respondWellnessError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": total, "page": page, "page_size": pageSize})
}

// CreateFinanceEntry stores a finance record
func (h *WellnessHandler) CreateFinanceEntry(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Description string  `json:"description" binding:"required"`
		Amount      float64 `json:"amount" binding:"required,gt=0"`
		Category    string  `json:"category"`
		Kind        string  `json:"kind" binding:"omitempty,oneof=income expense"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.wellnessSvc.CreateFinanceEntry(userID, input.Description, input.Amount, input.Category, input.Kind)
	if err != nil {
		respondWellnessError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// ListFinanceEntries returns the user's finance records
func (h *WellnessHandler) ListFinanceEntries(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, pageSize := pageParams(c)
	entries, total, err := h.wellnessSvc.ListFinanceEntries(userID, page, pageSize)
	if err != nil {
		respondWellnessError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": total, "page": page, "page_size": pageSize})
}

// CreateRoutineTask stores a routine item
func (h *WellnessHandler) CreateRoutineTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Title string     `json:"title" binding:"required"`
		DueAt *time.Time `json:"due_at"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.wellnessSvc.CreateRoutineTask(userID, input.Title, input.DueAt)
	if err != nil {
		respondWellnessError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"task": task})
}

// ListRoutineTasks returns the user's routine items
func (h *WellnessHandler) ListRoutineTasks(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	tasks, err := h.wellnessSvc.ListRoutineTasks(userID)
	if err != nil {
		respondWellnessError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// CompleteRoutineTask marks a routine item as done
func (h *WellnessHandler) CompleteRoutineTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task ID"})
		return
	}

	task, err := h.wellnessSvc.CompleteRoutineTask(userID, taskID)
	if err != nil {
		respondWellnessError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": task})
}

// GetWeeklyReport returns the user's last seven days of activity
func (h *WellnessHandler) GetWeeklyReport(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	report, err := h.wellnessSvc.GetWeeklyReport(userID, time.Now())
	if err != nil {
		respondWellnessError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}
