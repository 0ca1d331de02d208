// Package jobs runs background tasks on a cron schedule
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"celokudos/internal/kudos"
	"celokudos/internal/metrics"
	"celokudos/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// DefaultSnapshotSchedule is used when no schedule is configured
const DefaultSnapshotSchedule = "@every 15m"

// StatsSource reads the live platform aggregates
type StatsSource interface {
	GetPlatformStats(ctx context.Context) (*models.PlatformStats, error)
}

// BlockSource reports the chain head
type BlockSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// SnapshotStore persists snapshots
type SnapshotStore interface {
	SaveStatsSnapshot(ctx context.Context, snapshot *models.StatsSnapshot) error
}

// Scheduler snapshots platform stats periodically. store may be nil, in
// which case snapshots only update the gauges.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	stats    StatsSource
	blocks   BlockSource
	store    SnapshotStore
	now      func() time.Time
}

// NewScheduler creates a scheduler running in UTC
func NewScheduler(schedule string, stats StatsSource, blocks BlockSource, store SnapshotStore) *Scheduler {
	if schedule == "" {
		schedule = DefaultSnapshotSchedule
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		schedule: schedule,
		stats:    stats,
		blocks:   blocks,
		store:    store,
		now:      time.Now,
	}
}

// Start registers the snapshot job and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		slog.Debug("Taking stats snapshot")
		if _, err := s.Snapshot(ctx); err != nil {
			metrics.ErrorsTotal.WithLabelValues("jobs").Inc()
			slog.Error("Stats snapshot failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	slog.Info("Scheduler started", "snapshot_schedule", s.schedule)
	return nil
}

// Stop stops the cron loop and waits for a running job
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("Scheduler stopped")
}

// Snapshot reads the platform stats once, updates the gauges and stores
// the snapshot
func (s *Scheduler) Snapshot(ctx context.Context) (*models.StatsSnapshot, error) {
	stats, err := s.stats.GetPlatformStats(ctx)
	if err != nil {
		return nil, err
	}

	var block uint64
	if s.blocks != nil {
		if block, err = s.blocks.BlockNumber(ctx); err != nil {
			return nil, err
		}
	}

	snapshot := &models.StatsSnapshot{
		TakenAt:     s.now().UTC(),
		BlockNumber: block,
		Stats:       *stats,
	}

	metrics.PlatformTotalKudos.Set(float64(stats.TotalKudos.Int64()))
	metrics.PlatformUserCount.Set(float64(stats.UserCount.Int64()))
	total, _ := decimal.NewFromBigInt(stats.TotalAmount, -kudos.Decimals).Float64()
	metrics.PlatformTotalAmount.Set(total)

	if s.store != nil {
		if err := s.store.SaveStatsSnapshot(ctx, snapshot); err != nil {
			return nil, err
		}
	}

	slog.Info("Stats snapshot taken",
		"total_kudos", stats.TotalKudos.String(),
		"user_count", stats.UserCount.String(),
		"block", block,
	)
	return snapshot, nil
}
