package models

import (
	"time"

	"github.com/google/uuid"
)

// Withdrawal status values
const (
	WithdrawalStatusRequested = "requested"
	WithdrawalStatusApproved  = "approved"
	WithdrawalStatusRejected  = "rejected"
)

// Withdrawal is a request to convert available earnings into a pix payout.
// The amount is debited from the affiliate at request time; rejection credits
// it back.
type Withdrawal struct {
	Base
	AffiliateID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"affiliate_id"`
	Affiliate      Affiliate  `gorm:"foreignKey:AffiliateID" json:"-"`
	Amount         float64    `gorm:"type:decimal(10,2);not null" json:"amount"`
	PixKeyType     string     `gorm:"type:varchar(10);not null" json:"pix_key_type"`
	PixKey         string     `gorm:"type:varchar(255);not null" json:"pix_key"`
	PixAccountName string     `gorm:"type:varchar(255)" json:"pix_account_name"`
	Status         string     `gorm:"type:varchar(20);not null;default:'requested';index" json:"status"`
	ProcessedByID  *uuid.UUID `gorm:"type:uuid" json:"processed_by_id,omitempty"`
	ProcessedBy    *User      `gorm:"foreignKey:ProcessedByID" json:"-"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	AdminNotes     string     `gorm:"type:text" json:"admin_notes"`
}
