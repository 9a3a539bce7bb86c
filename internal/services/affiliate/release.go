package affiliate

import (
	"context"
	"fmt"
	"time"

	"github.com/clarazen/backend/internal/logger"
	"github.com/clarazen/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReleaseCommissions moves every pending commission whose hold expired to
// available, and shifts the matching amounts from pending to available
// earnings on each affected affiliate. Status flip and balance move share one
// transaction, so the books stay consistent at every commit point. Returns
// the number of commissions released; a second immediate run releases zero.
func (s *AffiliateService) ReleaseCommissions(now time.Time) (int, error) {
	var released int
	var affectedUsers []uuid.UUID

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var due []models.Commission
		if err := lockForUpdate(tx).
			Where("status = ? AND available_at <= ?", models.CommissionStatusPending, now).
			Find(&due).Error; err != nil {
			return fmt.Errorf("error finding due commissions: %w", err)
		}
		if len(due) == 0 {
			return nil
		}

		byAffiliate := make(map[uuid.UUID]float64)
		ids := make([]uuid.UUID, 0, len(due))
		for _, c := range due {
			byAffiliate[c.AffiliateID] += c.Amount
			ids = append(ids, c.ID)
		}

		if err := tx.Model(&models.Commission{}).Where("id IN ?", ids).
			Update("status", models.CommissionStatusAvailable).Error; err != nil {
			return fmt.Errorf("error releasing commissions: %w", err)
		}

		affiliateIDs := make([]uuid.UUID, 0, len(byAffiliate))
		for affiliateID, amount := range byAffiliate {
			if err := tx.Model(&models.Affiliate{}).Where("id = ?", affiliateID).
				UpdateColumns(map[string]interface{}{
					"pending_earnings":   gorm.Expr("pending_earnings - ?", amount),
					"available_earnings": gorm.Expr("available_earnings + ?", amount),
				}).Error; err != nil {
				return fmt.Errorf("error moving earnings for affiliate %s: %w", affiliateID, err)
			}
			affiliateIDs = append(affiliateIDs, affiliateID)
		}

		if err := tx.Model(&models.Affiliate{}).Where("id IN ?", affiliateIDs).
			Pluck("user_id", &affectedUsers).Error; err != nil {
			return fmt.Errorf("error resolving affected users: %w", err)
		}

		released = len(due)
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, userID := range affectedUsers {
		s.statsCache.Invalidate(context.Background(), userID)
	}

	if released > 0 {
		logger.Log.Info("released commissions", zap.Int("count", released))
	}
	return released, nil
}
