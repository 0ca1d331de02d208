package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"celokudos/internal/chain"
	"celokudos/internal/models"
	"celokudos/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

type fakeQueries struct {
	lastOffset, lastLimit uint64
	lastUser              common.Address
	err                   error
	totalErr              error
}

func record(id int64) *models.Kudos {
	return &models.Kudos{
		ID:        big.NewInt(id),
		Sender:    alice,
		Recipient: bob,
		Amount:    new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18)),
		Message:   "great work",
		Timestamp: time.Unix(1_700_000_000, 0).UTC(),
		IsPublic:  true,
	}
}

func (f *fakeQueries) GetByID(ctx context.Context, id *big.Int) (*models.Kudos, error) {
	if f.err != nil {
		return nil, f.err
	}
	if id.Int64() > 100 {
		return nil, fmt.Errorf("failed to call getKudosById: %w", chain.ErrReverted)
	}
	return record(id.Int64()), nil
}

func (f *fakeQueries) page(user common.Address, offset, limit uint64) ([]*models.Kudos, error) {
	f.lastUser, f.lastOffset, f.lastLimit = user, offset, limit
	if f.err != nil {
		return nil, f.err
	}
	return []*models.Kudos{record(1), record(2)}, nil
}

func (f *fakeQueries) GetSent(ctx context.Context, user common.Address, offset, limit uint64) ([]*models.Kudos, error) {
	return f.page(user, offset, limit)
}

func (f *fakeQueries) GetReceived(ctx context.Context, user common.Address, offset, limit uint64) ([]*models.Kudos, error) {
	return f.page(user, offset, limit)
}

func (f *fakeQueries) GetPublicFeed(ctx context.Context, offset, limit uint64) ([]*models.Kudos, error) {
	return f.page(common.Address{}, offset, limit)
}

func (f *fakeQueries) GetPlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.PlatformStats{
		TotalKudos:  big.NewInt(3),
		TotalAmount: new(big.Int).Mul(big.NewInt(15), big.NewInt(1e18)),
		UserCount:   big.NewInt(2),
	}, nil
}

func (f *fakeQueries) GetTotalKudos(ctx context.Context) (*big.Int, error) {
	if f.totalErr != nil {
		return nil, f.totalErr
	}
	return big.NewInt(4), nil
}

func (f *fakeQueries) GetUserStats(ctx context.Context, session *wallet.Session) (*models.UserStats, error) {
	f.lastUser = session.Address()
	return &models.UserStats{
		ReceivedCount: big.NewInt(1),
		SentCount:     big.NewInt(2),
		TotalReceived: big.NewInt(1e18),
		TotalSent:     new(big.Int).Mul(big.NewInt(2), big.NewInt(1e18)),
	}, nil
}

type fakeRepository struct {
	events    []*models.KudosEvent
	snapshots []*models.StatsSnapshot
	pingErr   error
}

func (r *fakeRepository) SaveKudosEvent(ctx context.Context, event *models.KudosEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *fakeRepository) SaveKudosEvents(ctx context.Context, events []*models.KudosEvent) error {
	r.events = append(r.events, events...)
	return nil
}

func (r *fakeRepository) ListKudosEvents(ctx context.Context, limit, offset int) ([]*models.KudosEvent, error) {
	return r.events, nil
}

func (r *fakeRepository) SaveStatsSnapshot(ctx context.Context, snapshot *models.StatsSnapshot) error {
	r.snapshots = append(r.snapshots, snapshot)
	return nil
}

func (r *fakeRepository) ListStatsSnapshots(ctx context.Context, limit int) ([]*models.StatsSnapshot, error) {
	return r.snapshots, nil
}

func (r *fakeRepository) Ping(ctx context.Context) error { return r.pingErr }

func (r *fakeRepository) Close() error { return nil }

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestGetKudos(t *testing.T) {
	s := NewServer(0, &fakeQueries{}, nil)

	rec := do(t, s, http.MethodGet, "/kudos/7")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.KudosResponse
	decode(t, rec, &got)
	assert.Equal(t, "7", got.ID)
	assert.Equal(t, alice.Hex(), got.Sender)
	assert.Equal(t, "5000000000000000000", got.AmountWei)
	assert.Equal(t, "5", got.Amount)
	assert.True(t, got.IsPublic)
}

func TestGetKudos_Errors(t *testing.T) {
	s := NewServer(0, &fakeQueries{}, nil)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/kudos/abc").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/kudos/999").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/kudos/1/extra").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, http.MethodPost, "/kudos/1").Code)

	failing := NewServer(0, &fakeQueries{err: errors.New("dial tcp: connection refused")}, nil)
	assert.Equal(t, http.StatusInternalServerError, do(t, failing, http.MethodGet, "/kudos/7").Code)

	var errResp models.ErrorResponse
	decode(t, do(t, s, http.MethodGet, "/kudos/abc"), &errResp)
	assert.Equal(t, http.StatusBadRequest, errResp.Code)
	assert.Equal(t, "Invalid kudos id", errResp.Message)
}

func TestPublicFeed_Pagination(t *testing.T) {
	q := &fakeQueries{}
	s := NewServer(0, q, nil)

	rec := do(t, s, http.MethodGet, "/kudos/public")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(DefaultLimit), q.lastLimit)
	assert.Equal(t, uint64(0), q.lastOffset)

	var list models.KudosListResponse
	decode(t, rec, &list)
	assert.Len(t, list.Kudos, 2)

	do(t, s, http.MethodGet, "/kudos/public?limit=5&offset=20")
	assert.Equal(t, uint64(5), q.lastLimit)
	assert.Equal(t, uint64(20), q.lastOffset)

	// out of range values fall back to defaults
	do(t, s, http.MethodGet, "/kudos/public?limit=1000&offset=-1")
	assert.Equal(t, uint64(DefaultLimit), q.lastLimit)
	assert.Equal(t, uint64(0), q.lastOffset)
}

func TestUserRoutes(t *testing.T) {
	q := &fakeQueries{}
	s := NewServer(0, q, nil)

	rec := do(t, s, http.MethodGet, "/users/"+bob.Hex()+"/received?limit=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bob, q.lastUser)
	assert.Equal(t, uint64(3), q.lastLimit)

	rec = do(t, s, http.MethodGet, "/users/"+alice.Hex()+"/sent")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, alice, q.lastUser)

	rec = do(t, s, http.MethodGet, "/users/"+alice.Hex()+"/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.UserStatsResponse
	decode(t, rec, &stats)
	assert.Equal(t, alice.Hex(), stats.Address)
	assert.Equal(t, "2", stats.TotalSent)
	assert.Equal(t, "1", stats.ReceivedCount)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/users/not-an-address/sent").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/users/"+alice.Hex()+"/unknown").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/users/"+alice.Hex()).Code)
}

func TestStats(t *testing.T) {
	s := NewServer(0, &fakeQueries{}, nil)

	rec := do(t, s, http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.PlatformStatsResponse
	decode(t, rec, &stats)
	assert.Equal(t, "3", stats.TotalKudos)
	assert.Equal(t, "15", stats.TotalAmount)
	assert.Equal(t, "4", stats.KudosCount)
	assert.Nil(t, stats.TakenAt)

	noCounter := NewServer(0, &fakeQueries{totalErr: errors.New("rpc down")}, nil)
	rec = do(t, noCounter, http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	stats = models.PlatformStatsResponse{}
	decode(t, rec, &stats)
	assert.Equal(t, "3", stats.TotalKudos)
	assert.Empty(t, stats.KudosCount)

	failing := NewServer(0, &fakeQueries{err: errors.New("rpc down")}, nil)
	assert.Equal(t, http.StatusInternalServerError, do(t, failing, http.MethodGet, "/stats").Code)
}

func TestJournalEndpoints(t *testing.T) {
	withoutDB := NewServer(0, &fakeQueries{}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, withoutDB, http.MethodGet, "/events").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, withoutDB, http.MethodGet, "/stats/history").Code)

	takenAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepository{
		events: []*models.KudosEvent{{
			EventType: models.EventTypeKudosSent,
			KudosID:   big.NewInt(1),
			Sender:    alice,
			Recipient: bob,
			Amount:    big.NewInt(1e18),
		}},
		snapshots: []*models.StatsSnapshot{{
			ID:      1,
			TakenAt: takenAt,
			Stats: models.PlatformStats{
				TotalKudos: big.NewInt(1), TotalAmount: big.NewInt(1e18), UserCount: big.NewInt(2),
			},
		}},
	}
	s := NewServer(0, &fakeQueries{}, repo)

	rec := do(t, s, http.MethodGet, "/events?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var events models.EventsResponse
	decode(t, rec, &events)
	require.Len(t, events.Events, 1)
	assert.Equal(t, models.EventTypeKudosSent, events.Events[0].EventType)
	assert.Equal(t, 5, events.Limit)

	rec = do(t, s, http.MethodGet, "/stats/history")
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Snapshots []models.PlatformStatsResponse `json:"snapshots"`
		Total     int                            `json:"total"`
	}
	decode(t, rec, &history)
	require.Equal(t, 1, history.Total)
	require.NotNil(t, history.Snapshots[0].TakenAt)
	assert.True(t, takenAt.Equal(*history.Snapshots[0].TakenAt))
}

func TestHealth(t *testing.T) {
	assert.Equal(t, http.StatusOK, do(t, NewServer(0, &fakeQueries{}, nil), http.MethodGet, "/health").Code)

	repo := &fakeRepository{}
	assert.Equal(t, http.StatusOK, do(t, NewServer(0, &fakeQueries{}, repo), http.MethodGet, "/health").Code)

	repo.pingErr = errors.New("connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, do(t, NewServer(0, &fakeQueries{}, repo), http.MethodGet, "/health").Code)
}

func TestIndexAndMetrics(t *testing.T) {
	s := NewServer(0, &fakeQueries{}, nil)

	rec := do(t, s, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	var info map[string]interface{}
	decode(t, rec, &info)
	assert.Equal(t, "CeloKudos", info["service"])

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/nope").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/metrics").Code)
}
