package models

import (
	"github.com/google/uuid"
)

// Affiliate status values
const (
	AffiliateStatusActive    = "active"
	AffiliateStatusInactive  = "inactive"
	AffiliateStatusSuspended = "suspended"
)

// Commission models
const (
	CommissionTypeCPA       = "cpa"
	CommissionTypeRecurring = "recurring"
)

// Affiliate links a user to a referral identity. The parent pointer forms a
// referral chain capped at two levels: an affiliate and, optionally, the
// affiliate who recruited them.
type Affiliate struct {
	Base
	UserID            uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User              User       `gorm:"foreignKey:UserID" json:"-"`
	ParentAffiliateID *uuid.UUID `gorm:"type:uuid;index" json:"parent_affiliate_id,omitempty"`
	ParentAffiliate   *Affiliate `gorm:"foreignKey:ParentAffiliateID" json:"-"`
	Code              string     `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"`
	DocumentType      string     `gorm:"type:varchar(10);not null" json:"document_type"` // cpf, cnpj
	DocumentNumber    string     `gorm:"type:varchar(18);uniqueIndex;not null" json:"document_number"`
	CommissionType    string     `gorm:"type:varchar(20);not null;default:'recurring'" json:"commission_type"`
	CommissionRate    float64    `gorm:"type:decimal(5,2);default:50.00" json:"commission_rate"`
	CommissionValue   *float64   `gorm:"type:decimal(10,2)" json:"commission_value,omitempty"`
	PixKeyType        string     `gorm:"type:varchar(10)" json:"pix_key_type"` // phone, email, cpf, cnpj, random
	PixKey            string     `gorm:"type:varchar(255)" json:"pix_key"`
	PixAccountName    string     `gorm:"type:varchar(255)" json:"pix_account_name"`
	TotalClicks       int64      `gorm:"default:0" json:"total_clicks"`
	TotalConversions  int64      `gorm:"default:0" json:"total_conversions"`
	TotalEarnings     float64    `gorm:"type:decimal(10,2);default:0" json:"total_earnings"`
	PendingEarnings   float64    `gorm:"type:decimal(10,2);default:0" json:"pending_earnings"`
	AvailableEarnings float64    `gorm:"type:decimal(10,2);default:0" json:"available_earnings"`
	Status            string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
}

// AffiliateClick is one attributed visit. Clicks from the same IP within the
// dedup window count as a single click.
type AffiliateClick struct {
	Base
	AffiliateID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"affiliate_id"`
	Affiliate       Affiliate  `gorm:"foreignKey:AffiliateID" json:"-"`
	IPAddress       string     `gorm:"type:varchar(45);index" json:"ip_address"`
	UserAgent       string     `gorm:"type:text" json:"user_agent"`
	Referrer        string     `gorm:"type:text" json:"referrer"`
	UTMSource       string     `gorm:"type:varchar(100)" json:"utm_source"`
	UTMMedium       string     `gorm:"type:varchar(100)" json:"utm_medium"`
	UTMCampaign     string     `gorm:"type:varchar(100)" json:"utm_campaign"`
	Converted       bool       `gorm:"default:false;index" json:"converted"`
	ConvertedUserID *uuid.UUID `gorm:"type:uuid" json:"converted_user_id,omitempty"`
}
