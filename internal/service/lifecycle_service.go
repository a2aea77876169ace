package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type lifecycleListingStore interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	ClearLapsedFeatured(ctx context.Context, now time.Time) (int64, error)
}

// LifecycleService runs the periodic listing sweep: active listings past
// their expiry become expired, lapsed featured placements are cleared.
// Unpaid pending drafts are deliberately left alone.
type LifecycleService struct {
	repo    lifecycleListingStore
	logger  *zap.Logger
	metrics *MetricsService
}

// NewLifecycleService constructs the lifecycle service.
func NewLifecycleService(repo lifecycleListingStore, logger *zap.Logger, metrics *MetricsService) *LifecycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{repo: repo, logger: logger, metrics: metrics}
}

// Sweep performs one pass. Suitable as a jobs.Task.
func (s *LifecycleService) Sweep(ctx context.Context) error {
	now := time.Now().UTC()

	expired, err := s.repo.ExpireOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("expire overdue listings: %w", err)
	}
	s.metrics.ListingsExpired(expired)

	cleared, err := s.repo.ClearLapsedFeatured(ctx, now)
	if err != nil {
		return fmt.Errorf("clear lapsed featured: %w", err)
	}

	s.logger.Info("listing sweep complete",
		zap.Int64("expired", expired),
		zap.Int64("featured_cleared", cleared))
	return nil
}
