package models

import (
	"time"

	"github.com/google/uuid"
)

// Commission status lifecycle. Status only moves forward.
const (
	CommissionStatusPending   = "pending"
	CommissionStatusAvailable = "available"
	CommissionStatusPaid      = "paid"
)

// CommissionTypeSubAffiliate tags second-level grants paid to the affiliate
// who recruited the selling affiliate.
const CommissionTypeSubAffiliate = "sub_affiliate"

// Commission is one money grant tied to a conversion event. Funds are held
// until AvailableAt, then the release sweep flips the row to available.
type Commission struct {
	Base
	AffiliateID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"affiliate_id"`
	Affiliate         Affiliate  `gorm:"foreignKey:AffiliateID" json:"-"`
	SourceAffiliateID *uuid.UUID `gorm:"type:uuid" json:"source_affiliate_id,omitempty"` // the level-1 affiliate whose sale produced a level-2 grant
	SubscriptionID    uuid.UUID  `gorm:"type:uuid;index" json:"subscription_id"`
	UserID            uuid.UUID  `gorm:"type:uuid;index" json:"user_id"` // the converting user
	Type              string     `gorm:"type:varchar(20);not null" json:"type"`
	Level             int        `gorm:"not null" json:"level"` // 1 = direct referrer, 2 = referrer's referrer
	Amount            float64    `gorm:"type:decimal(10,2);not null" json:"amount"`
	Rate              float64    `gorm:"type:decimal(5,2)" json:"rate"`
	Status            string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AvailableAt       time.Time  `gorm:"index" json:"available_at"`
}
