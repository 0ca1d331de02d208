// Package query is the read side of the kudos client: typed accessors over
// the contract's view functions with batch record fetching.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"celokudos/internal/models"
	"celokudos/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// DefaultLimit is the page size used when a caller passes limit 0
const DefaultLimit = 10

// DefaultRecentLimit is the page size of GetRecent
const DefaultRecentLimit = 5

// fetchConcurrency bounds parallel record reads in a batch
const fetchConcurrency = 8

// ErrQueryDisabled is returned by session-bound queries without a connected address
var ErrQueryDisabled = errors.New("query disabled: no connected address")

// Reader is the chain surface the service reads from
type Reader interface {
	KudosByID(ctx context.Context, id *big.Int) (*models.Kudos, error)
	KudosSent(ctx context.Context, user common.Address, offset, limit uint64) ([]*big.Int, error)
	KudosReceived(ctx context.Context, user common.Address, offset, limit uint64) ([]*big.Int, error)
	PublicKudos(ctx context.Context, offset, limit uint64) ([]*big.Int, error)
	UserStats(ctx context.Context, user common.Address) (*models.UserStats, error)
	PlatformStats(ctx context.Context) (*models.PlatformStats, error)
	TotalKudos(ctx context.Context) (*big.Int, error)
}

// RecordCache stores immutable kudos records by id
type RecordCache interface {
	Get(ctx context.Context, id *big.Int) (*models.Kudos, bool, error)
	Put(ctx context.Context, record *models.Kudos) error
}

// Service answers read queries
type Service struct {
	reader Reader
	cache  RecordCache
}

// NewService creates a query service. cache may be nil.
func NewService(reader Reader, cache RecordCache) *Service {
	return &Service{reader: reader, cache: cache}
}

// Page converts a zero-based page number into an offset
func Page(page, limit uint64) (offset, size uint64) {
	if limit == 0 {
		limit = DefaultLimit
	}
	return page * limit, limit
}

// GetByID returns a single record
func (s *Service) GetByID(ctx context.Context, id *big.Int) (*models.Kudos, error) {
	if id == nil {
		return nil, fmt.Errorf("kudos id is required")
	}

	if s.cache != nil {
		record, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			slog.Warn("Record cache lookup failed", "kudos_id", id.String(), "error", err)
		} else if ok {
			return record, nil
		}
	}

	record, err := s.reader.KudosByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get kudos %s: %w", id, err)
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, record); err != nil {
			slog.Warn("Record cache store failed", "kudos_id", id.String(), "error", err)
		}
	}

	return record, nil
}

// GetSent returns a page of records sent by user
func (s *Service) GetSent(ctx context.Context, user common.Address, offset, limit uint64) ([]*models.Kudos, error) {
	ids, err := s.reader.KudosSent(ctx, user, offset, normalize(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get sent kudos of %s: %w", user.Hex(), err)
	}
	return s.fetch(ctx, ids)
}

// GetReceived returns a page of records received by user
func (s *Service) GetReceived(ctx context.Context, user common.Address, offset, limit uint64) ([]*models.Kudos, error) {
	ids, err := s.reader.KudosReceived(ctx, user, offset, normalize(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get received kudos of %s: %w", user.Hex(), err)
	}
	return s.fetch(ctx, ids)
}

// GetPublicFeed returns a page of public records
func (s *Service) GetPublicFeed(ctx context.Context, offset, limit uint64) ([]*models.Kudos, error) {
	ids, err := s.reader.PublicKudos(ctx, offset, normalize(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get public kudos: %w", err)
	}
	return s.fetch(ctx, ids)
}

// GetPlatformStats returns the global aggregates
func (s *Service) GetPlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	stats, err := s.reader.PlatformStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get platform stats: %w", err)
	}
	return stats, nil
}

// GetUserStats returns the aggregates of the session's address
func (s *Service) GetUserStats(ctx context.Context, session *wallet.Session) (*models.UserStats, error) {
	user, err := connected(session)
	if err != nil {
		return nil, err
	}
	stats, err := s.reader.UserStats(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats of %s: %w", user.Hex(), err)
	}
	return stats, nil
}

// GetTotalKudos returns the number of kudos ever sent
func (s *Service) GetTotalKudos(ctx context.Context) (*big.Int, error) {
	total, err := s.reader.TotalKudos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get total kudos: %w", err)
	}
	return total, nil
}

// GetSentByCurrentUser is GetSent for the session's address
func (s *Service) GetSentByCurrentUser(ctx context.Context, session *wallet.Session, offset, limit uint64) ([]*models.Kudos, error) {
	user, err := connected(session)
	if err != nil {
		return nil, err
	}
	return s.GetSent(ctx, user, offset, limit)
}

// GetReceivedForCurrentUser is GetReceived for the session's address
func (s *Service) GetReceivedForCurrentUser(ctx context.Context, session *wallet.Session, offset, limit uint64) ([]*models.Kudos, error) {
	user, err := connected(session)
	if err != nil {
		return nil, err
	}
	return s.GetReceived(ctx, user, offset, limit)
}

// Recent is the latest activity of one address
type Recent struct {
	Sent     []*models.Kudos
	Received []*models.Kudos
}

// GetRecent returns the first page of sent and received records of user
func (s *Service) GetRecent(ctx context.Context, user common.Address, limit uint64) (*Recent, error) {
	if limit == 0 {
		limit = DefaultRecentLimit
	}

	var recent Recent
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sent, err := s.GetSent(gctx, user, 0, limit)
		recent.Sent = sent
		return err
	})
	g.Go(func() error {
		received, err := s.GetReceived(gctx, user, 0, limit)
		recent.Received = received
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &recent, nil
}

// fetch reads the record of every id, keeping the order of ids
func (s *Service) fetch(ctx context.Context, ids []*big.Int) ([]*models.Kudos, error) {
	records := make([]*models.Kudos, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			record, err := s.GetByID(gctx, id)
			if err != nil {
				return err
			}
			records[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func normalize(limit uint64) uint64 {
	if limit == 0 {
		return DefaultLimit
	}
	return limit
}

func connected(session *wallet.Session) (common.Address, error) {
	if !session.Connected() {
		return common.Address{}, ErrQueryDisabled
	}
	return session.Address(), nil
}
