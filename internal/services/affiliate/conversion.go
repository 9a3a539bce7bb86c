package affiliate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clarazen/backend/internal/logger"
	"github.com/clarazen/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProcessConversion credits the referral chain after a referred user completes
// a paid conversion. A user without a referrer, or a referrer without an
// active affiliate record, is a valid no-op.
//
// The click flip, the conversion counter, the commission rows and the earnings
// credits commit as one transaction: no partial commission can exist without
// the matching counter update.
func (s *AffiliateService) ProcessConversion(userID, subscriptionID uuid.UUID, amount float64) error {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return fmt.Errorf("error finding converted user: %w", err)
	}
	if user.ReferredByID == nil {
		return nil
	}

	var aff models.Affiliate
	err := s.db.Where("user_id = ? AND status = ?", *user.ReferredByID, models.AffiliateStatusActive).
		First(&aff).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("error finding referring affiliate: %w", err)
	}

	var parent *models.Affiliate
	if aff.ParentAffiliateID != nil {
		var p models.Affiliate
		if err := s.db.First(&p, "id = ?", *aff.ParentAffiliateID).Error; err != nil {
			return fmt.Errorf("error finding parent affiliate: %w", err)
		}
		parent = &p
	}

	now := time.Now()
	commissions := CalculateCommissions(amount, &aff, parent, s.cfg.SubAffiliateRate, s.cfg.HoldDays, subscriptionID, userID, now)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Flip the earliest unconverted click, if one exists. Attribution
		// without a stored click is tolerated.
		var click models.AffiliateClick
		err := lockForUpdate(tx).
			Where("affiliate_id = ? AND converted = ?", aff.ID, false).
			Order("created_at ASC").First(&click).Error
		if err == nil {
			click.Converted = true
			click.ConvertedUserID = &userID
			if err := tx.Save(&click).Error; err != nil {
				return fmt.Errorf("error marking click converted: %w", err)
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("error finding unconverted click: %w", err)
		}

		if err := tx.Model(&models.Affiliate{}).Where("id = ?", aff.ID).
			UpdateColumn("total_conversions", gorm.Expr("total_conversions + ?", 1)).Error; err != nil {
			return fmt.Errorf("error incrementing conversion counter: %w", err)
		}

		for i := range commissions {
			if err := tx.Create(&commissions[i]).Error; err != nil {
				return fmt.Errorf("error creating level %d commission: %w", commissions[i].Level, err)
			}
			if err := tx.Model(&models.Affiliate{}).Where("id = ?", commissions[i].AffiliateID).
				UpdateColumns(map[string]interface{}{
					"total_earnings":   gorm.Expr("total_earnings + ?", commissions[i].Amount),
					"pending_earnings": gorm.Expr("pending_earnings + ?", commissions[i].Amount),
				}).Error; err != nil {
				return fmt.Errorf("error crediting pending earnings: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.statsCache.Invalidate(context.Background(), aff.UserID)
	if parent != nil {
		s.statsCache.Invalidate(context.Background(), parent.UserID)
	}

	logger.Log.Info("conversion processed",
		zap.String("affiliate_code", aff.Code),
		zap.String("user_id", userID.String()),
		zap.Float64("amount", amount),
		zap.Int("commissions", len(commissions)))

	return nil
}
