package storage

import (
	"context"

	"celokudos/internal/models"
)

// Repository defines the interface for all storage operations
type Repository interface {
	// Event journal
	SaveKudosEvent(ctx context.Context, event *models.KudosEvent) error
	SaveKudosEvents(ctx context.Context, events []*models.KudosEvent) error
	ListKudosEvents(ctx context.Context, limit, offset int) ([]*models.KudosEvent, error)

	// Platform stats snapshots
	SaveStatsSnapshot(ctx context.Context, snapshot *models.StatsSnapshot) error
	ListStatsSnapshots(ctx context.Context, limit int) ([]*models.StatsSnapshot, error)

	// Health & Maintenance
	Ping(ctx context.Context) error
	Close() error
}
