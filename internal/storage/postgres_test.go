package storage

import (
	"context"
	"io/fs"
	"math/big"
	"os"
	"strings"
	"testing"
	"time"

	"celokudos/internal/models"
	"celokudos/internal/storage/migrations"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.Migrations, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	raw, err := fs.ReadFile(migrations.Migrations, files[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), "-- +goose Up")
	assert.Contains(t, string(raw), "-- +goose Down")
}

func TestNumeric(t *testing.T) {
	assert.Equal(t, "0", numeric(nil))

	huge, ok := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	require.True(t, ok)
	got, err := parseNumeric(numeric(huge))
	require.NoError(t, err)
	assert.Equal(t, 0, huge.Cmp(got))

	_, err = parseNumeric("1.5")
	assert.Error(t, err)
}

func newTestRepository(t *testing.T) *PostgresRepository {
	t.Helper()
	url := os.Getenv("KUDOS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("KUDOS_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	repo, err := NewPostgresRepository(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.Migrate(ctx))
	_, err = repo.pool.Exec(ctx, "TRUNCATE kudos_events, stats_snapshots")
	require.NoError(t, err)
	return repo
}

func TestPostgresRepository_KudosEvents(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	sent := &models.KudosEvent{
		EventType:   models.EventTypeKudosSent,
		KudosID:     big.NewInt(1),
		Sender:      common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Recipient:   common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Amount:      new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18)),
		Message:     "thanks",
		IsPublic:    true,
		TxHash:      common.HexToHash("0xabc"),
		BlockNumber: 10,
		LogIndex:    0,
		ObservedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	received := *sent
	received.EventType = models.EventTypeKudosReceived
	received.Message = ""
	received.IsPublic = false
	received.LogIndex = 1

	require.NoError(t, repo.SaveKudosEvent(ctx, sent))
	require.NoError(t, repo.SaveKudosEvents(ctx, []*models.KudosEvent{&received, sent}))

	events, err := repo.ListKudosEvents(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 2, "duplicate log must be ignored")

	assert.Equal(t, models.EventTypeKudosSent, events[0].EventType)
	assert.Equal(t, 0, sent.Amount.Cmp(events[0].Amount))
	assert.Equal(t, sent.Sender, events[0].Sender)
	assert.Equal(t, sent.TxHash, events[0].TxHash)
	assert.True(t, sent.ObservedAt.Equal(events[0].ObservedAt))
	assert.Equal(t, uint(1), events[1].LogIndex)

	page, err := repo.ListKudosEvents(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, models.EventTypeKudosReceived, page[0].EventType)
}

func TestPostgresRepository_StatsSnapshots(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := int64(1); i <= 3; i++ {
		snapshot := &models.StatsSnapshot{
			TakenAt:     base.Add(time.Duration(i) * time.Minute),
			BlockNumber: uint64(100 + i),
			Stats: models.PlatformStats{
				TotalKudos:  big.NewInt(i),
				TotalAmount: new(big.Int).Mul(big.NewInt(i), big.NewInt(1e18)),
				UserCount:   big.NewInt(2),
			},
		}
		require.NoError(t, repo.SaveStatsSnapshot(ctx, snapshot))
		assert.NotZero(t, snapshot.ID)
	}

	snapshots, err := repo.ListStatsSnapshots(ctx, 2)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, int64(3), snapshots[0].Stats.TotalKudos.Int64())
	assert.Equal(t, uint64(103), snapshots[0].BlockNumber)
	assert.True(t, strings.HasPrefix(snapshots[0].Stats.TotalAmount.String(), "3"))
}
