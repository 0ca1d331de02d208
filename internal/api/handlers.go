package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"celokudos/internal/chain"
	"celokudos/internal/models"
	"celokudos/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// handleIndex returns basic service information
// GET / - Returns service info and available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	info := map[string]interface{}{
		"service":     "CeloKudos",
		"version":     "1.0.0",
		"description": "Read-only API over the CeloKudos contract",
		"endpoints": map[string]string{
			"GET /":                         "This page - Service information",
			"GET /health":                   "Health check endpoint",
			"GET /metrics":                  "Prometheus metrics for monitoring",
			"GET /kudos/{id}":               "Get a kudos record",
			"GET /kudos/public":             "Public kudos feed (supports ?limit=, ?offset=)",
			"GET /users/{address}/sent":     "Kudos sent by an address (supports ?limit=, ?offset=)",
			"GET /users/{address}/received": "Kudos received by an address (supports ?limit=, ?offset=)",
			"GET /users/{address}/stats":    "Aggregates of an address",
			"GET /stats":                    "Live platform aggregates",
			"GET /stats/history":            "Stored platform snapshots (supports ?limit=)",
			"GET /events":                   "Journaled contract events (supports ?limit=, ?offset=)",
		},
	}

	s.sendJSON(w, info)
}

// handleHealth returns health status
// GET /health - Health check for monitoring systems
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "celokudos",
	}

	if s.repository != nil {
		if err := s.repository.Ping(r.Context()); err != nil {
			slog.Error("Database health check failed", "error", err)
			s.sendError(w, "Database unhealthy", http.StatusServiceUnavailable)
			return
		}
		health["database"] = "ok"
	}

	s.sendJSON(w, health)
}

// handleMetrics returns Prometheus metrics
// GET /metrics - Prometheus scraping endpoint
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// =============================================================================
// KUDOS ENDPOINTS
// =============================================================================

// handleGetKudos returns a single record
// GET /kudos/{id}
func (s *Server) handleGetKudos(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(rawID)
	if !ok {
		s.sendError(w, "Invalid kudos id", http.StatusBadRequest)
		return
	}

	record, err := s.queries.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, chain.ErrReverted) {
			s.sendError(w, "Kudos not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get kudos", "kudos_id", rawID, "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, BuildKudosResponse(record))
}

// handlePublicFeed returns a page of public kudos
// GET /kudos/public?limit=10&offset=0
func (s *Server) handlePublicFeed(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r.URL.Query())

	records, err := s.queries.GetPublicFeed(r.Context(), uint64(offset), uint64(limit))
	if err != nil {
		slog.Error("Failed to get public feed", "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, BuildKudosList(records, offset, limit))
}

type userPage func(ctx context.Context, user common.Address, offset, limit uint64) ([]*models.Kudos, error)

// handleUserKudos returns a page of kudos sent or received by user
// GET /users/{address}/sent, GET /users/{address}/received
func (s *Server) handleUserKudos(w http.ResponseWriter, r *http.Request, user common.Address, fetch userPage) {
	limit, offset := parsePagination(r.URL.Query())

	records, err := fetch(r.Context(), user, uint64(offset), uint64(limit))
	if err != nil {
		slog.Error("Failed to get user kudos", "address", user.Hex(), "path", r.URL.Path, "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, BuildKudosList(records, offset, limit))
}

// handleUserStats returns the aggregates of an address
// GET /users/{address}/stats
func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request, user common.Address) {
	stats, err := s.queries.GetUserStats(r.Context(), wallet.NewWatchSession(user))
	if err != nil {
		slog.Error("Failed to get user stats", "address", user.Hex(), "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, BuildUserStatsResponse(user, stats))
}

// =============================================================================
// STATS & JOURNAL ENDPOINTS
// =============================================================================

// handleStats returns the live platform aggregates
// GET /stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queries.GetPlatformStats(r.Context())
	if err != nil {
		slog.Error("Failed to get platform stats", "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := BuildPlatformStatsResponse(stats)
	// kudos_count is omitted when the counter read fails
	if total, err := s.queries.GetTotalKudos(r.Context()); err != nil {
		slog.Warn("Failed to get total kudos", "error", err)
	} else {
		response.KudosCount = total.String()
	}
	s.sendJSON(w, response)
}

// handleStatsHistory returns stored snapshots, newest first
// GET /stats/history?limit=10
func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if s.repository == nil {
		s.sendError(w, "Stats history requires a database", http.StatusServiceUnavailable)
		return
	}

	limit, _ := parsePagination(r.URL.Query())

	snapshots, err := s.repository.ListStatsSnapshots(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list stats snapshots", "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	history := make([]models.PlatformStatsResponse, len(snapshots))
	for i, snapshot := range snapshots {
		history[i] = BuildSnapshotResponse(snapshot)
	}

	s.sendJSON(w, map[string]interface{}{
		"snapshots": history,
		"total":     len(history),
	})
}

// handleEvents returns journaled events
// GET /events?limit=10&offset=0
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.repository == nil {
		s.sendError(w, "Event journal requires a database", http.StatusServiceUnavailable)
		return
	}

	limit, offset := parsePagination(r.URL.Query())

	events, err := s.repository.ListKudosEvents(r.Context(), limit, offset)
	if err != nil {
		slog.Error("Failed to list events", "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := models.EventsResponse{
		Events: make([]models.KudosEvent, len(events)),
		Offset: offset,
		Limit:  limit,
	}
	for i, event := range events {
		response.Events[i] = *event
	}

	s.sendJSON(w, response)
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// sendError sends a JSON error response
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}
