package models

import (
	"time"

	"github.com/google/uuid"
)

// Finance entry kinds
const (
	FinanceKindIncome  = "income"
	FinanceKindExpense = "expense"
)

// DiaryEntry is one journal/vent entry
type DiaryEntry struct {
	Base
	UserID  uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	User    User      `gorm:"foreignKey:UserID" json:"-"`
	Content string    `gorm:"type:text;not null" json:"content"`
	Mood    string    `gorm:"type:varchar(30)" json:"mood"`
}

// FinanceEntry is one micro-finance record
type FinanceEntry struct {
	Base
	UserID      uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID" json:"-"`
	Description string    `gorm:"type:varchar(255);not null" json:"description"`
	Amount      float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Category    string    `gorm:"type:varchar(50);index" json:"category"`
	Kind        string    `gorm:"type:varchar(10);not null;default:'expense'" json:"kind"`
}

// RoutineTask is one planned routine item
type RoutineTask struct {
	Base
	UserID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
	Title     string     `gorm:"type:varchar(255);not null" json:"title"`
	Completed bool       `gorm:"default:false" json:"completed"`
	DueAt     *time.Time `json:"due_at,omitempty"`
}
