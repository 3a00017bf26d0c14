package scheduler

import (
	"context"
	"fmt"
	"time"

	"BTCWatch/internal/usecase"
	xlogger "BTCWatch/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the periodic prewarm tasks: force-refreshing currency
// metadata and keeping the USD spot price warm. Task failures are logged,
// never fatal; the request path has its own fallbacks.
type Scheduler struct {
	cron   *cron.Cron
	market *usecase.MarketData
	logger *xlogger.Logger
	ctx    context.Context
}

// New creates a new Scheduler.
func New(ctx context.Context, market *usecase.MarketData, logger *xlogger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		market: market,
		logger: logger,
		ctx:    ctx,
	}
}

// RegisterAll registers the refresh tasks from cron specs.
func (s *Scheduler) RegisterAll(metadataSpec, spotSpec string) error {
	if metadataSpec != "" {
		if _, err := s.cron.AddFunc(metadataSpec, s.refreshMetadata); err != nil {
			return fmt.Errorf("register metadata refresh: %w", err)
		}
	}
	if spotSpec != "" {
		if _, err := s.cron.AddFunc(spotSpec, s.prewarmSpot); err != nil {
			return fmt.Errorf("register spot prewarm: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) refreshMetadata() {
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	list, err := s.market.Currencies(ctx, true)
	if err != nil {
		s.logger.Error("metadata refresh failed", xlogger.Error(err))
		return
	}
	s.logger.Info("currency metadata refreshed", xlogger.Int("count", len(list)))
}

func (s *Scheduler) prewarmSpot() {
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	price, err := s.market.Spot(ctx, "USD")
	if err != nil {
		s.logger.Warn("spot prewarm failed", xlogger.Error(err))
		return
	}
	s.logger.Debug("spot prewarmed", xlogger.Float64("amount", price.Amount))
}
