package jobs

import (
	"fmt"
	"time"

	"github.com/clarazen/backend/internal/config"
	"github.com/clarazen/backend/internal/logger"
	affiliatesvc "github.com/clarazen/backend/internal/services/affiliate"
	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Scheduler runs the recurring background jobs
type Scheduler struct {
	scheduler    *gocron.Scheduler
	affiliateSvc *affiliatesvc.AffiliateService
	cfg          config.AffiliateConfig
}

// NewScheduler creates a new scheduler
func NewScheduler(affiliateSvc *affiliatesvc.AffiliateService, cfg config.AffiliateConfig) *Scheduler {
	return &Scheduler{
		scheduler:    gocron.NewScheduler(time.UTC),
		affiliateSvc: affiliateSvc,
		cfg:          cfg,
	}
}

// Start registers the recurring jobs and runs the scheduler in the background
func (s *Scheduler) Start() error {
	interval := s.cfg.ReleaseIntervalMin
	if interval <= 0 {
		interval = 5
	}

	_, err := s.scheduler.Every(interval).Minutes().Do(s.runCommissionRelease)
	if err != nil {
		return fmt.Errorf("failed to schedule commission release: %w", err)
	}

	s.scheduler.StartAsync()
	logger.Log.Info("scheduler started", zap.Int("release_interval_min", interval))
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// runCommissionRelease is the periodic sweep moving held commissions to
// available once their hold expires
func (s *Scheduler) runCommissionRelease() {
	count, err := s.affiliateSvc.ReleaseCommissions(time.Now())
	if err != nil {
		logger.Log.Error("commission release failed", zap.Error(err))
		return
	}
	if count > 0 {
		logger.Log.Info("commission release completed", zap.Int("released", count))
	}
}
