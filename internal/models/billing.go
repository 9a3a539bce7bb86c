package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription status values
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusPastDue  = "past_due"
)

// SubscriptionPlan is a purchasable plan
type SubscriptionPlan struct {
	Base
	Name     string  `gorm:"type:varchar(100);not null" json:"name"`
	Slug     string  `gorm:"type:varchar(120);uniqueIndex;not null" json:"slug"`
	Price    float64 `gorm:"type:decimal(10,2);not null" json:"price"`
	Interval string  `gorm:"type:varchar(20);not null;default:'month'" json:"interval"` // month, year
	Active   bool    `gorm:"default:true" json:"active"`
}

// Subscription ties a user to a plan
type Subscription struct {
	Base
	UserID           uuid.UUID        `gorm:"type:uuid;index;not null" json:"user_id"`
	User             User             `gorm:"foreignKey:UserID" json:"-"`
	PlanID           uuid.UUID        `gorm:"type:uuid;not null" json:"plan_id"`
	Plan             SubscriptionPlan `gorm:"foreignKey:PlanID" json:"-"`
	Status           string           `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CurrentPeriodEnd time.Time        `json:"current_period_end"`
}

// SubscriptionPayment records one successful payment reported by the billing
// provider. Each payment may trigger affiliate commissions.
type SubscriptionPayment struct {
	Base
	SubscriptionID    uuid.UUID    `gorm:"type:uuid;index;not null" json:"subscription_id"`
	Subscription      Subscription `gorm:"foreignKey:SubscriptionID" json:"-"`
	Amount            float64      `gorm:"type:decimal(10,2);not null" json:"amount"`
	ProviderReference string       `gorm:"type:varchar(100);uniqueIndex" json:"provider_reference"`
	PaidAt            time.Time    `json:"paid_at"`
}
