package affiliate

import (
	"time"

	"github.com/clarazen/backend/internal/models"
	"github.com/google/uuid"
)

// cpaFallbackShare is the share of the payment granted when a CPA affiliate
// has no fixed commission value configured.
const cpaFallbackShare = 0.5

// CalculateCommissions computes the commission rows for a completed payment.
// The chain is the direct referrer (level 1) and, when the referrer was
// recruited by another affiliate, that parent (level 2, fixed rate).
// A nil aff means the converting user has no upstream affiliate and the
// result is empty; that is a valid no-op, not an error.
func CalculateCommissions(
	amount float64,
	aff *models.Affiliate,
	parent *models.Affiliate,
	subAffiliateRate float64,
	holdDays int,
	subscriptionID, userID uuid.UUID,
	now time.Time,
) []models.Commission {
	if aff == nil {
		return nil
	}

	availableAt := now.AddDate(0, 0, holdDays)

	var level1 float64
	rate := aff.CommissionRate
	if aff.CommissionType == models.CommissionTypeCPA {
		if aff.CommissionValue != nil {
			level1 = *aff.CommissionValue
		} else {
			level1 = amount * cpaFallbackShare
		}
	} else {
		level1 = amount * aff.CommissionRate / 100
	}

	commissions := []models.Commission{
		{
			AffiliateID:    aff.ID,
			SubscriptionID: subscriptionID,
			UserID:         userID,
			Type:           aff.CommissionType,
			Level:          1,
			Amount:         level1,
			Rate:           rate,
			Status:         models.CommissionStatusPending,
			AvailableAt:    availableAt,
		},
	}

	if parent != nil {
		commissions = append(commissions, models.Commission{
			AffiliateID:       parent.ID,
			SourceAffiliateID: &aff.ID,
			SubscriptionID:    subscriptionID,
			UserID:            userID,
			Type:              models.CommissionTypeSubAffiliate,
			Level:             2,
			Amount:            amount * subAffiliateRate / 100,
			Rate:              subAffiliateRate,
			Status:            models.CommissionStatusPending,
			AvailableAt:       availableAt,
		})
	}

	return commissions
}
