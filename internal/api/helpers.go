package api

import (
	"math/big"
	"net/url"
	"strconv"

	"celokudos/internal/kudos"
	"celokudos/internal/models"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// DefaultLimit is the page size when ?limit= is absent or invalid
	DefaultLimit = 10
	// MaxLimit caps ?limit=
	MaxLimit = 100
)

// parsePagination reads ?limit= and ?offset=, falling back to defaults on
// missing or out of range values
func parsePagination(query url.Values) (limit, offset int) {
	limit = DefaultLimit
	if limitStr := query.Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= MaxLimit {
			limit = parsed
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}

// parseAddress accepts a 0x-prefixed hex address in any case
func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

// parseID accepts a non-negative decimal kudos id
func parseID(s string) (*big.Int, bool) {
	id, ok := new(big.Int).SetString(s, 10)
	if !ok || id.Sign() < 0 {
		return nil, false
	}
	return id, true
}

// BuildKudosResponse renders a record for the API
func BuildKudosResponse(record *models.Kudos) models.KudosResponse {
	return models.KudosResponse{
		ID:        record.ID.String(),
		Sender:    record.Sender.Hex(),
		Recipient: record.Recipient.Hex(),
		AmountWei: baseUnits(record.Amount),
		Amount:    kudos.FormatAmount(record.Amount),
		Message:   record.Message,
		Timestamp: record.Timestamp,
		IsPublic:  record.IsPublic,
	}
}

// BuildKudosList renders a page of records
func BuildKudosList(records []*models.Kudos, offset, limit int) models.KudosListResponse {
	list := make([]models.KudosResponse, len(records))
	for i, record := range records {
		list[i] = BuildKudosResponse(record)
	}
	return models.KudosListResponse{
		Kudos:  list,
		Offset: uint64(offset),
		Limit:  uint64(limit),
	}
}

// BuildUserStatsResponse renders the aggregates of one address
func BuildUserStatsResponse(user common.Address, stats *models.UserStats) models.UserStatsResponse {
	return models.UserStatsResponse{
		Address:          user.Hex(),
		ReceivedCount:    baseUnits(stats.ReceivedCount),
		SentCount:        baseUnits(stats.SentCount),
		TotalReceivedWei: baseUnits(stats.TotalReceived),
		TotalReceived:    kudos.FormatAmount(stats.TotalReceived),
		TotalSentWei:     baseUnits(stats.TotalSent),
		TotalSent:        kudos.FormatAmount(stats.TotalSent),
	}
}

// BuildPlatformStatsResponse renders the global aggregates
func BuildPlatformStatsResponse(stats *models.PlatformStats) models.PlatformStatsResponse {
	return models.PlatformStatsResponse{
		TotalKudos:     baseUnits(stats.TotalKudos),
		TotalAmountWei: baseUnits(stats.TotalAmount),
		TotalAmount:    kudos.FormatAmount(stats.TotalAmount),
		UserCount:      baseUnits(stats.UserCount),
	}
}

// BuildSnapshotResponse renders a stored snapshot
func BuildSnapshotResponse(snapshot *models.StatsSnapshot) models.PlatformStatsResponse {
	response := BuildPlatformStatsResponse(&snapshot.Stats)
	takenAt := snapshot.TakenAt
	response.TakenAt = &takenAt
	return response
}

func baseUnits(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
