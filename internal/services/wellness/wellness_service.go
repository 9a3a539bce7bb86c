package wellness

import (
	"errors"
	"fmt"
	"time"

	"github.com/clarazen/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when an entry does not exist or belongs to another user
var ErrNotFound = errors.New("entry not found")

// reportWindow is how far back weekly reports look
const reportWindow = 7 * 24 * time.Hour

// WellnessService handles diary, finance and routine entries
type WellnessService struct {
	db *gorm.DB
}

// NewWellnessService creates a new wellness service
func NewWellnessService(db *gorm.DB) *WellnessService {
	return &WellnessService{db: db}
}

// CreateDiaryEntry stores a journal entry
func (s *WellnessService) CreateDiaryEntry(userID uuid.UUID, content, mood string) (*models.DiaryEntry, error) {
	entry := models.DiaryEntry{UserID: userID, Content: content, Mood: mood}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("error creating diary entry: %w", err)
	}
	return &entry, nil
}

// ListDiaryEntries returns a user's entries, newest first
func (s *WellnessService) ListDiaryEntries(userID uuid.UUID, page, pageSize int) ([]models.DiaryEntry, int64, error) {
	var entries []models.DiaryEntry
	var total int64

	if err := s.db.Model(&models.DiaryEntry{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting diary entries: %w", err)
	}
	offset := (page - 1) * pageSize
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").
		Offset(offset).Limit(pageSize).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("error finding diary entries: %w", err)
	}
	return entries, total, nil
}

// CreateFinanceEntry stores a finance record
func (s *WellnessService) CreateFinanceEntry(userID uuid.UUID, description string, amount float64, category, kind string) (*models.FinanceEntry, error) {
	if kind == "" {
		kind = models.FinanceKindExpense
	}
	entry := models.FinanceEntry{
		UserID:      userID,
		Description: description,
		Amount:      amount,
		Category:    category,
		Kind:        kind,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("error creating finance entry: %w", err)
	}
	return &entry, nil
}

// ListFinanceEntries returns a user's finance records, newest first
func (s *WellnessService) ListFinanceEntries(userID uuid.UUID, page, pageSize int) ([]models.FinanceEntry, int64, error) {
	var entries []models.FinanceEntry
	var total int64

	if err := s.db.Model(&models.FinanceEntry{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting finance entries: %w", err)
	}
	offset := (page - 1) * pageSize
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").
		Offset(offset).Limit(pageSize).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("error finding finance entries: %w", err)
	}
	return entries, total, nil
}

// CreateRoutineTask stores a routine item
func (s *WellnessService) CreateRoutineTask(userID uuid.UUID, title string, dueAt *time.Time) (*models.RoutineTask, error) {
	task := models.RoutineTask{UserID: userID, Title: title, DueAt: dueAt}
	if err := s.db.Create(&task).Error; err != nil {
		return nil, fmt.Errorf("error creating routine task: %w", err)
	}
	return &task, nil
}

// ListRoutineTasks returns a user's routine items, oldest first
func (s *WellnessService) ListRoutineTasks(userID uuid.UUID) ([]models.RoutineTask, error) {
	var tasks []models.RoutineTask
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("error finding routine tasks: %w", err)
	}
	return tasks, nil
}

// CompleteRoutineTask marks a task as completed
func (s *WellnessService) CompleteRoutineTask(userID, taskID uuid.UUID) (*models.RoutineTask, error) {
	var task models.RoutineTask
	if err := s.db.Where("id = ? AND user_id = ?", taskID, userID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding routine task: %w", err)
	}
	task.Completed = true
	if err := s.db.Save(&task).Error; err != nil {
		return nil, fmt.Errorf("error completing routine task: %w", err)
	}
	return &task, nil
}

// WeeklyReport summarizes the last seven days of activity
type WeeklyReport struct {
	DiaryEntries   int64              `json:"diary_entries"`
	FinanceByKind  map[string]float64 `json:"finance_by_kind"`
	TasksTotal     int64              `json:"tasks_total"`
	TasksCompleted int64              `json:"tasks_completed"`
}

// GetWeeklyReport aggregates the user's last week of diary, finance and
// routine activity
func (s *WellnessService) GetWeeklyReport(userID uuid.UUID, now time.Time) (*WeeklyReport, error) {
	since := now.Add(-reportWindow)
	report := WeeklyReport{FinanceByKind: make(map[string]float64)}

	if err := s.db.Model(&models.DiaryEntry{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&report.DiaryEntries).Error; err != nil {
		return nil, fmt.Errorf("error counting diary entries: %w", err)
	}

	type kindSum struct {
		Kind  string
		Total float64
	}
	var sums []kindSum
	if err := s.db.Model(&models.FinanceEntry{}).
		Select("kind, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Group("kind").Scan(&sums).Error; err != nil {
		return nil, fmt.Errorf("error summing finance entries: %w", err)
	}
	for _, s := range sums {
		report.FinanceByKind[s.Kind] = s.Total
	}

	if err := s.db.Model(&models.RoutineTask{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&report.TasksTotal).Error; err != nil {
		return nil, fmt.Errorf("error counting routine tasks: %w", err)
	}
	if err := s.db.Model(&models.RoutineTask{}).
		Where("user_id = ? AND completed = ? AND created_at >= ?", userID, true, since).
		Count(&report.TasksCompleted).Error; err != nil {
		return nil, fmt.Errorf("error counting completed tasks: %w", err)
	}

	return &report, nil
}
