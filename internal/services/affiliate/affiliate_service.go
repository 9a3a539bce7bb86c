package affiliate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clarazen/backend/internal/cache"
	"github.com/clarazen/backend/internal/config"
	"github.com/clarazen/backend/internal/models"
	"github.com/clarazen/backend/internal/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClickDedupWindow is how long repeat clicks from the same IP count as one
const ClickDedupWindow = time.Hour

// AffiliateService handles affiliate accounts, clicks, commissions and
// withdrawals
type AffiliateService struct {
	db         *gorm.DB
	cfg        config.AffiliateConfig
	statsCache *cache.StatsCache
}

// NewAffiliateService creates a new affiliate service
func NewAffiliateService(db *gorm.DB, cfg config.AffiliateConfig, statsCache *cache.StatsCache) *AffiliateService {
	return &AffiliateService{db: db, cfg: cfg, statsCache: statsCache}
}

// lockForUpdate adds a row lock on dialects that support it. SQLite has no
// FOR UPDATE; its writes serialize on the database lock instead.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// CreateAffiliateInput is the payload for enrolling a user as an affiliate
type CreateAffiliateInput struct {
	DocumentType        string
	DocumentNumber      string
	CommissionType      string
	CommissionRate      float64
	CommissionValue     *float64
	ParentAffiliateCode string
	PixKeyType          string
	PixKey              string
	PixAccountName      string
}

// CreateAffiliate enrolls a user into the affiliate program. The affiliate
// row and the owning user's role change commit together.
func (s *AffiliateService) CreateAffiliate(userID uuid.UUID, input CreateAffiliateInput) (*models.Affiliate, error) {
	var existing models.Affiliate
	err := s.db.Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyAffiliate
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error checking existing affiliate: %w", err)
	}

	err = s.db.Where("document_number = ?", input.DocumentNumber).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateDocument
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error checking document number: %w", err)
	}

	var parentID *uuid.UUID
	if input.ParentAffiliateCode != "" {
		var parent models.Affiliate
		if err := s.db.Where("code = ?", input.ParentAffiliateCode).First(&parent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidParentCode
			}
			return nil, fmt.Errorf("error resolving parent affiliate: %w", err)
		}
		parentID = &parent.ID
	}

	code, err := s.generateUniqueCode()
	if err != nil {
		return nil, fmt.Errorf("error generating affiliate code: %w", err)
	}

	commissionType := input.CommissionType
	if commissionType == "" {
		commissionType = models.CommissionTypeRecurring
	}
	rate := input.CommissionRate
	if rate == 0 {
		rate = s.cfg.DefaultRate
	}

	aff := models.Affiliate{
		UserID:            userID,
		ParentAffiliateID: parentID,
		Code:              code,
		DocumentType:      input.DocumentType,
		DocumentNumber:    input.DocumentNumber,
		CommissionType:    commissionType,
		CommissionRate:    rate,
		CommissionValue:   input.CommissionValue,
		PixKeyType:        input.PixKeyType,
		PixKey:            input.PixKey,
		PixAccountName:    input.PixAccountName,
		Status:            models.AffiliateStatusActive,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&aff).Error; err != nil {
			return fmt.Errorf("error creating affiliate: %w", err)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("role", models.RoleAffiliate).Error; err != nil {
			return fmt.Errorf("error updating user role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &aff, nil
}

// generateUniqueCode produces a collision-checked affiliate code. The short
// form gets a bounded number of attempts before falling back to a longer
// code, so a crowded namespace cannot turn this into an unbounded loop.
func (s *AffiliateService) generateUniqueCode() (string, error) {
	for attempt := 0; attempt < utils.CodeMaxAttempts; attempt++ {
		code, err := utils.GenerateCode(utils.CodeLength)
		if err != nil {
			return "", err
		}
		taken, err := s.codeTaken(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}

	code, err := utils.GenerateCode(utils.FallbackCodeLength)
	if err != nil {
		return "", err
	}
	taken, err := s.codeTaken(code)
	if err != nil {
		return "", err
	}
	if taken {
		return "", errors.New("could not generate a unique affiliate code")
	}
	return code, nil
}

func (s *AffiliateService) codeTaken(code string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.Affiliate{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, fmt.Errorf("error checking code: %w", err)
	}
	return count > 0, nil
}

// TrackClickInput carries the origin metadata of an attributed visit
type TrackClickInput struct {
	Code        string
	IPAddress   string
	UserAgent   string
	Referrer    string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
}

// TrackClick records an attributed visit. A repeat visit from the same IP
// inside the dedup window returns the stored click unchanged and does not
// touch the counter.
func (s *AffiliateService) TrackClick(input TrackClickInput) (*models.AffiliateClick, error) {
	var aff models.Affiliate
	err := s.db.Where("code = ? AND status = ?", input.Code, models.AffiliateStatusActive).First(&aff).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownAffiliateCode
		}
		return nil, fmt.Errorf("error resolving affiliate code: %w", err)
	}

	var recent models.AffiliateClick
	err = s.db.Where("affiliate_id = ? AND ip_address = ?", aff.ID, input.IPAddress).
		Order("created_at DESC").First(&recent).Error
	if err == nil && time.Since(recent.CreatedAt) < ClickDedupWindow {
		return &recent, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error looking up recent click: %w", err)
	}

	click := models.AffiliateClick{
		AffiliateID: aff.ID,
		IPAddress:   input.IPAddress,
		UserAgent:   input.UserAgent,
		Referrer:    input.Referrer,
		UTMSource:   input.UTMSource,
		UTMMedium:   input.UTMMedium,
		UTMCampaign: input.UTMCampaign,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&click).Error; err != nil {
			return fmt.Errorf("error creating click: %w", err)
		}
		if err := tx.Model(&models.Affiliate{}).Where("id = ?", aff.ID).
			UpdateColumn("total_clicks", gorm.Expr("total_clicks + ?", 1)).Error; err != nil {
			return fmt.Errorf("error incrementing click counter: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &click, nil
}

// WithdrawalInput carries payout destination details
type WithdrawalInput struct {
	Amount         float64
	PixKeyType     string
	PixKey         string
	PixAccountName string
}

// RequestWithdrawal creates a withdrawal in requested state and debits the
// affiliate's available balance immediately. The debit is optimistic: funds
// leave the balance before an admin decides, and rejection credits them back.
func (s *AffiliateService) RequestWithdrawal(affiliateID uuid.UUID, input WithdrawalInput) (*models.Withdrawal, error) {
	if input.Amount < s.cfg.MinWithdrawal {
		return nil, ErrBelowMinimum
	}

	var withdrawal models.Withdrawal
	var aff models.Affiliate

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&aff, "id = ?", affiliateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAffiliateNotFound
			}
			return fmt.Errorf("error finding affiliate: %w", err)
		}

		if input.Amount > aff.AvailableEarnings {
			return ErrInsufficientBalance
		}

		withdrawal = models.Withdrawal{
			AffiliateID:    aff.ID,
			Amount:         input.Amount,
			PixKeyType:     input.PixKeyType,
			PixKey:         input.PixKey,
			PixAccountName: input.PixAccountName,
			Status:         models.WithdrawalStatusRequested,
		}
		if err := tx.Create(&withdrawal).Error; err != nil {
			return fmt.Errorf("error creating withdrawal: %w", err)
		}

		if err := tx.Model(&models.Affiliate{}).Where("id = ?", aff.ID).
			UpdateColumn("available_earnings", gorm.Expr("available_earnings - ?", input.Amount)).Error; err != nil {
			return fmt.Errorf("error debiting available balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.statsCache.Invalidate(context.Background(), aff.UserID)

	return &withdrawal, nil
}

// ApproveWithdrawal marks a requested withdrawal as approved. The balance was
// already debited at request time, so approval only stamps the decision. The
// status check runs under the row lock so two admins deciding the same
// withdrawal cannot both succeed.
func (s *AffiliateService) ApproveWithdrawal(withdrawalID, adminID uuid.UUID) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&withdrawal, "id = ?", withdrawalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWithdrawalNotFound
			}
			return fmt.Errorf("error finding withdrawal: %w", err)
		}

		if withdrawal.Status != models.WithdrawalStatusRequested {
			return ErrInvalidState
		}

		now := time.Now()
		withdrawal.Status = models.WithdrawalStatusApproved
		withdrawal.ProcessedByID = &adminID
		withdrawal.ProcessedAt = &now

		if err := tx.Save(&withdrawal).Error; err != nil {
			return fmt.Errorf("error approving withdrawal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &withdrawal, nil
}

// RejectWithdrawal marks a requested withdrawal as rejected and credits the
// amount back to the affiliate's available balance. Status check, status
// change and refund share one transaction under the row lock; a decision that
// lost the race sees the updated status and refunds nothing.
func (s *AffiliateService) RejectWithdrawal(withdrawalID, adminID uuid.UUID, notes string) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	var aff models.Affiliate

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&withdrawal, "id = ?", withdrawalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWithdrawalNotFound
			}
			return fmt.Errorf("error finding withdrawal: %w", err)
		}

		if withdrawal.Status != models.WithdrawalStatusRequested {
			return ErrInvalidState
		}

		if err := lockForUpdate(tx).First(&aff, "id = ?", withdrawal.AffiliateID).Error; err != nil {
			return fmt.Errorf("error finding affiliate: %w", err)
		}

		if err := tx.Model(&models.Affiliate{}).Where("id = ?", aff.ID).
			UpdateColumn("available_earnings", gorm.Expr("available_earnings + ?", withdrawal.Amount)).Error; err != nil {
			return fmt.Errorf("error refunding balance: %w", err)
		}

		now := time.Now()
		withdrawal.Status = models.WithdrawalStatusRejected
		withdrawal.ProcessedByID = &adminID
		withdrawal.ProcessedAt = &now
		withdrawal.AdminNotes = notes

		if err := tx.Save(&withdrawal).Error; err != nil {
			return fmt.Errorf("error rejecting withdrawal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.statsCache.Invalidate(context.Background(), aff.UserID)

	return &withdrawal, nil
}

// GetByUserID resolves the affiliate record owned by a user
func (s *AffiliateService) GetByUserID(userID uuid.UUID) (*models.Affiliate, error) {
	var aff models.Affiliate
	if err := s.db.Where("user_id = ?", userID).First(&aff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAffiliateNotFound
		}
		return nil, fmt.Errorf("error finding affiliate: %w", err)
	}
	return &aff, nil
}

// Stats is the affiliate dashboard summary
type Stats struct {
	Affiliate            *models.Affiliate `json:"affiliate"`
	ClicksThisMonth      int64             `json:"clicks_this_month"`
	ConversionsThisMonth int64             `json:"conversions_this_month"`
	PendingCommissions   float64           `json:"pending_commissions"`
	AvailableCommissions float64           `json:"available_commissions"`
	ConversionRate       float64           `json:"conversion_rate"`
}

// GetStats assembles the dashboard summary for a user's affiliate account.
// Results are served from the cache when fresh.
func (s *AffiliateService) GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	var cached Stats
	if s.statsCache.Get(ctx, userID, &cached) {
		return &cached, nil
	}

	aff, err := s.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	startOfMonth := time.Now().UTC()
	startOfMonth = time.Date(startOfMonth.Year(), startOfMonth.Month(), 1, 0, 0, 0, 0, time.UTC)

	stats := Stats{Affiliate: aff}

	if err := s.db.Model(&models.AffiliateClick{}).
		Where("affiliate_id = ? AND created_at >= ?", aff.ID, startOfMonth).
		Count(&stats.ClicksThisMonth).Error; err != nil {
		return nil, fmt.Errorf("error counting clicks: %w", err)
	}

	if err := s.db.Model(&models.AffiliateClick{}).
		Where("affiliate_id = ? AND converted = ? AND created_at >= ?", aff.ID, true, startOfMonth).
		Count(&stats.ConversionsThisMonth).Error; err != nil {
		return nil, fmt.Errorf("error counting conversions: %w", err)
	}

	if err := s.sumCommissions(aff.ID, models.CommissionStatusPending, &stats.PendingCommissions); err != nil {
		return nil, err
	}
	if err := s.sumCommissions(aff.ID, models.CommissionStatusAvailable, &stats.AvailableCommissions); err != nil {
		return nil, err
	}

	if aff.TotalClicks > 0 {
		stats.ConversionRate = float64(aff.TotalConversions) / float64(aff.TotalClicks) * 100
	}

	s.statsCache.Set(ctx, userID, &stats)
	return &stats, nil
}

func (s *AffiliateService) sumCommissions(affiliateID uuid.UUID, status string, dest *float64) error {
	err := s.db.Model(&models.Commission{}).
		Where("affiliate_id = ? AND status = ?", affiliateID, status).
		Select("COALESCE(SUM(amount), 0)").Scan(dest).Error
	if err != nil {
		return fmt.Errorf("error summing %s commissions: %w", status, err)
	}
	return nil
}

// GetCommissionHistory returns the affiliate's commissions, newest first
func (s *AffiliateService) GetCommissionHistory(affiliateID uuid.UUID, page, pageSize int) ([]models.Commission, int64, error) {
	var commissions []models.Commission
	var total int64

	if err := s.db.Model(&models.Commission{}).Where("affiliate_id = ?", affiliateID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting commissions: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := s.db.Where("affiliate_id = ?", affiliateID).
		Order("created_at DESC").Offset(offset).Limit(pageSize).
		Find(&commissions).Error; err != nil {
		return nil, 0, fmt.Errorf("error finding commissions: %w", err)
	}

	return commissions, total, nil
}

// GetWithdrawalHistory returns the affiliate's withdrawals, newest first
func (s *AffiliateService) GetWithdrawalHistory(affiliateID uuid.UUID, page, pageSize int) ([]models.Withdrawal, int64, error) {
	var withdrawals []models.Withdrawal
	var total int64

	if err := s.db.Model(&models.Withdrawal{}).Where("affiliate_id = ?", affiliateID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting withdrawals: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := s.db.Where("affiliate_id = ?", affiliateID).
		Order("created_at DESC").Offset(offset).Limit(pageSize).
		Find(&withdrawals).Error; err != nil {
		return nil, 0, fmt.Errorf("error finding withdrawals: %w", err)
	}

	return withdrawals, total, nil
}

// ListAffiliates returns all affiliates for the admin view, newest first
func (s *AffiliateService) ListAffiliates(page, pageSize int) ([]models.Affiliate, int64, error) {
	var affiliates []models.Affiliate
	var total int64

	if err := s.db.Model(&models.Affiliate{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting affiliates: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := s.db.Preload("User").Order("created_at DESC").
		Offset(offset).Limit(pageSize).Find(&affiliates).Error; err != nil {
		return nil, 0, fmt.Errorf("error finding affiliates: %w", err)
	}

	return affiliates, total, nil
}

// ListWithdrawals returns withdrawals across all affiliates, optionally
// filtered by status
func (s *AffiliateService) ListWithdrawals(status string, page, pageSize int) ([]models.Withdrawal, int64, error) {
	query := s.db.Model(&models.Withdrawal{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting withdrawals: %w", err)
	}

	var withdrawals []models.Withdrawal
	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).
		Find(&withdrawals).Error; err != nil {
		return nil, 0, fmt.Errorf("error finding withdrawals: %w", err)
	}

	return withdrawals, total, nil
}

// TopAffiliates returns the highest-earning active affiliates
func (s *AffiliateService) TopAffiliates(limit int) ([]models.Affiliate, error) {
	var affiliates []models.Affiliate
	if err := s.db.Preload("User").
		Where("status = ?", models.AffiliateStatusActive).
		Order("total_earnings DESC").Limit(limit).
		Find(&affiliates).Error; err != nil {
		return nil, fmt.Errorf("error finding top affiliates: %w", err)
	}
	return affiliates, nil
}
