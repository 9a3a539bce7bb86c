package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/clarazen/backend/internal/logger"
	"github.com/clarazen/backend/internal/models"
	affiliatesvc "github.com/clarazen/backend/internal/services/affiliate"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sentinel errors surfaced by the billing service
var (
	ErrPlanNotFound         = errors.New("subscription plan not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// BillingService is the boundary to the payment collaborator. It records
// plans, subscriptions and reported payments; the provider integration itself
// lives outside this service.
type BillingService struct {
	db           *gorm.DB
	affiliateSvc *affiliatesvc.AffiliateService
}

// NewBillingService creates a new billing service
func NewBillingService(db *gorm.DB, affiliateSvc *affiliatesvc.AffiliateService) *BillingService {
	return &BillingService{db: db, affiliateSvc: affiliateSvc}
}

// ListPlans returns all active plans
func (s *BillingService) ListPlans() ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	if err := s.db.Where("active = ?", true).Order("price ASC").Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("error finding plans: %w", err)
	}
	return plans, nil
}

// CreatePlan registers a plan; the slug is derived from the name
func (s *BillingService) CreatePlan(name string, price float64, interval string) (*models.SubscriptionPlan, error) {
	plan := models.SubscriptionPlan{
		Name:     name,
		Slug:     slug.Make(name),
		Price:    price,
		Interval: interval,
		Active:   true,
	}
	if err := s.db.Create(&plan).Error; err != nil {
		return nil, fmt.Errorf("error creating plan: %w", err)
	}
	return &plan, nil
}

// Subscribe creates an active subscription for a user on the given plan
func (s *BillingService) Subscribe(userID uuid.UUID, planSlug string) (*models.Subscription, error) {
	var plan models.SubscriptionPlan
	if err := s.db.Where("slug = ? AND active = ?", planSlug, true).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("error finding plan: %w", err)
	}

	periodEnd := time.Now().AddDate(0, 1, 0)
	if plan.Interval == "year" {
		periodEnd = time.Now().AddDate(1, 0, 0)
	}

	sub := models.Subscription{
		UserID:           userID,
		PlanID:           plan.ID,
		Status:           models.SubscriptionStatusActive,
		CurrentPeriodEnd: periodEnd,
	}
	if err := s.db.Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("error creating subscription: %w", err)
	}
	return &sub, nil
}

// RecordPayment persists a successful payment reported by the provider and
// runs conversion processing for the paying user. The provider reference
// makes redelivered webhooks idempotent: a payment seen before is skipped
// without generating another commission.
func (s *BillingService) RecordPayment(userID, subscriptionID uuid.UUID, amount float64, providerRef string) error {
	var sub models.Subscription
	if err := s.db.First(&sub, "id = ?", subscriptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubscriptionNotFound
		}
		return fmt.Errorf("error finding subscription: %w", err)
	}

	if providerRef != "" {
		var count int64
		if err := s.db.Model(&models.SubscriptionPayment{}).
			Where("provider_reference = ?", providerRef).Count(&count).Error; err != nil {
			return fmt.Errorf("error checking payment reference: %w", err)
		}
		if count > 0 {
			logger.Log.Info("duplicate payment webhook ignored", zap.String("reference", providerRef))
			return nil
		}
	}

	payment := models.SubscriptionPayment{
		SubscriptionID:    subscriptionID,
		Amount:            amount,
		ProviderReference: providerRef,
		PaidAt:            time.Now(),
	}
	if err := s.db.Create(&payment).Error; err != nil {
		return fmt.Errorf("error recording payment: %w", err)
	}

	if err := s.affiliateSvc.ProcessConversion(userID, subscriptionID, amount); err != nil {
		return fmt.Errorf("error processing conversion: %w", err)
	}
	return nil
}
