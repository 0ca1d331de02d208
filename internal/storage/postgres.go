package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"

	"celokudos/internal/models"
	"celokudos/internal/storage/migrations"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

// gooseUpContext is a seam for testing goose.UpContext
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema migrations
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Database migrations applied")
	return nil
}

const insertKudosEvent = `
	INSERT INTO kudos_events (
		event_type, kudos_id, sender, recipient, amount, message,
		is_public, tx_hash, block_number, log_index, removed, observed_at
	) VALUES ($1, $2::numeric, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (tx_hash, log_index, removed) DO NOTHING
`

func kudosEventArgs(event *models.KudosEvent) []interface{} {
	return []interface{}{
		event.EventType,
		numeric(event.KudosID),
		event.Sender.Hex(),
		event.Recipient.Hex(),
		numeric(event.Amount),
		event.Message,
		event.IsPublic,
		event.TxHash.Hex(),
		int64(event.BlockNumber),
		int32(event.LogIndex),
		event.Removed,
		event.ObservedAt,
	}
}

// SaveKudosEvent saves a single observed event
func (r *PostgresRepository) SaveKudosEvent(ctx context.Context, event *models.KudosEvent) error {
	_, err := r.pool.Exec(ctx, insertKudosEvent, kudosEventArgs(event)...)
	if err != nil {
		return fmt.Errorf("failed to save kudos event: %w", err)
	}

	return nil
}

// SaveKudosEvents saves multiple events in a transaction
func (r *PostgresRepository) SaveKudosEvents(ctx context.Context, events []*models.KudosEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, event := range events {
		if _, err := tx.Exec(ctx, insertKudosEvent, kudosEventArgs(event)...); err != nil {
			return fmt.Errorf("failed to save event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListKudosEvents lists journaled events, newest block first
func (r *PostgresRepository) ListKudosEvents(ctx context.Context, limit, offset int) ([]*models.KudosEvent, error) {
	query := `
		SELECT
			event_type, kudos_id::text, sender, recipient, amount::text, message,
			is_public, tx_hash, block_number, log_index, removed, observed_at
		FROM kudos_events
		ORDER BY block_number DESC, log_index ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list kudos events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.KudosEvent, 0)

	for rows.Next() {
		var (
			event                     models.KudosEvent
			kudosID, amount           string
			sender, recipient, txHash string
			blockNumber               int64
			logIndex                  int32
		)

		err := rows.Scan(
			&event.EventType,
			&kudosID,
			&sender,
			&recipient,
			&amount,
			&event.Message,
			&event.IsPublic,
			&txHash,
			&blockNumber,
			&logIndex,
			&event.Removed,
			&event.ObservedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		if event.KudosID, err = parseNumeric(kudosID); err != nil {
			return nil, err
		}
		if event.Amount, err = parseNumeric(amount); err != nil {
			return nil, err
		}
		event.Sender = common.HexToAddress(sender)
		event.Recipient = common.HexToAddress(recipient)
		event.TxHash = common.HexToHash(txHash)
		event.BlockNumber = uint64(blockNumber)
		event.LogIndex = uint(logIndex)

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// SaveStatsSnapshot saves a platform stats snapshot and sets its ID
func (r *PostgresRepository) SaveStatsSnapshot(ctx context.Context, snapshot *models.StatsSnapshot) error {
	query := `
		INSERT INTO stats_snapshots (
			taken_at, block_number, total_kudos, total_amount, user_count
		) VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		snapshot.TakenAt,
		int64(snapshot.BlockNumber),
		numeric(snapshot.Stats.TotalKudos),
		numeric(snapshot.Stats.TotalAmount),
		numeric(snapshot.Stats.UserCount),
	).Scan(&snapshot.ID)

	if err != nil {
		return fmt.Errorf("failed to save stats snapshot: %w", err)
	}

	return nil
}

// ListStatsSnapshots lists the latest snapshots, newest first
func (r *PostgresRepository) ListStatsSnapshots(ctx context.Context, limit int) ([]*models.StatsSnapshot, error) {
	query := `
		SELECT id, taken_at, block_number, total_kudos::text, total_amount::text, user_count::text
		FROM stats_snapshots
		ORDER BY taken_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stats snapshots: %w", err)
	}

	snapshots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.StatsSnapshot, error) {
		var (
			snapshot                     models.StatsSnapshot
			blockNumber                  int64
			totalKudos, total, userCount string
		)
		if err := row.Scan(&snapshot.ID, &snapshot.TakenAt, &blockNumber, &totalKudos, &total, &userCount); err != nil {
			return nil, err
		}

		snapshot.BlockNumber = uint64(blockNumber)
		var err error
		if snapshot.Stats.TotalKudos, err = parseNumeric(totalKudos); err != nil {
			return nil, err
		}
		if snapshot.Stats.TotalAmount, err = parseNumeric(total); err != nil {
			return nil, err
		}
		if snapshot.Stats.UserCount, err = parseNumeric(userCount); err != nil {
			return nil, err
		}
		return &snapshot, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan stats snapshots: %w", err)
	}

	return snapshots, nil
}

// Ping checks the database connection
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// numeric renders a base-unit integer for a NUMERIC parameter
func numeric(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseNumeric(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric value %q", s)
	}
	return v, nil
}
