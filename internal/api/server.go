package api

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"celokudos/internal/models"
	"celokudos/internal/storage"
	"celokudos/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
)

// Queries is the read surface the API serves. *query.Service satisfies it.
type Queries interface {
	GetByID(ctx context.Context, id *big.Int) (*models.Kudos, error)
	GetSent(ctx context.Context, user common.Address, offset, limit uint64) ([]*models.Kudos, error)
	GetReceived(ctx context.Context, user common.Address, offset, limit uint64) ([]*models.Kudos, error)
	GetPublicFeed(ctx context.Context, offset, limit uint64) ([]*models.Kudos, error)
	GetPlatformStats(ctx context.Context) (*models.PlatformStats, error)
	GetTotalKudos(ctx context.Context) (*big.Int, error)
	GetUserStats(ctx context.Context, session *wallet.Session) (*models.UserStats, error)
}

// Server represents the HTTP API server
// Provides endpoints for Prometheus metrics, health checks and read-only kudos queries
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	queries    Queries
	repository storage.Repository // nil when no database is configured
	port       int
}

// NewServer creates a new API server instance
// repository backs /events and /stats/history and may be nil
func NewServer(port int, queries Queries, repository storage.Repository) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:        mux,
		queries:    queries,
		repository: repository,
		port:       port,
	}

	// Register all HTTP routes
	s.registerRoutes()

	return s
}

// Handler returns the root handler (for testing)
func (s *Server) Handler() http.Handler {
	return s.mux
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	// Core endpoints
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", s.handleMetrics())

	// Kudos endpoints
	s.mux.HandleFunc("/kudos/", s.handleKudosRoutes)
	s.mux.HandleFunc("/users/", s.handleUserRoutes)

	// Stats and journal endpoints
	s.mux.HandleFunc("/stats", s.getOnly(s.handleStats))
	s.mux.HandleFunc("/stats/history", s.getOnly(s.handleStatsHistory))
	s.mux.HandleFunc("/events", s.getOnly(s.handleEvents))
}

// getOnly rejects every method but GET
func (s *Server) getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// handleKudosRoutes routes kudos sub-endpoints
func (s *Server) handleKudosRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/kudos/"), "/")

	// GET /kudos/public
	if path == "public" {
		s.handlePublicFeed(w, r)
		return
	}

	// GET /kudos/{id}
	if path != "" && !strings.Contains(path, "/") {
		s.handleGetKudos(w, r, path)
		return
	}

	s.sendError(w, "Endpoint not found", http.StatusNotFound)
}

// handleUserRoutes routes user sub-endpoints
func (s *Server) handleUserRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/users/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 {
		s.sendError(w, "Endpoint not found", http.StatusNotFound)
		return
	}

	user, ok := parseAddress(parts[0])
	if !ok {
		s.sendError(w, "Invalid address", http.StatusBadRequest)
		return
	}

	switch parts[1] {
	case "sent":
		s.handleUserKudos(w, r, user, s.queries.GetSent)
	case "received":
		s.handleUserKudos(w, r, user, s.queries.GetReceived)
	case "stats":
		s.handleUserStats(w, r, user)
	default:
		s.sendError(w, "Endpoint not found", http.StatusNotFound)
	}
}

// Start starts the HTTP server in a goroutine
// Returns immediately after starting the server
func (s *Server) Start() error {
	go func() {
		slog.Info("API server starting",
			"port", s.port,
			"endpoints", []string{"/", "/health", "/metrics", "/kudos/", "/users/", "/stats", "/events"},
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	// Give the server a moment to start
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Shutdown gracefully shuts down the HTTP server
// Waits for active connections to close or context to timeout
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}
