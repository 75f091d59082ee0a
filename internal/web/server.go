// Package web exposes read-only JSON endpoints over the car store:
// /stats for aggregate figures and /cars for a recent-listings browse.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"autoriascout/internal/scraper"
	"autoriascout/internal/storage"
	"autoriascout/logger"
)

// CarReader is the slice of the store the server needs.
type CarReader interface {
	Stats(ctx context.Context) (storage.Stats, error)
	Recent(ctx context.Context, limit int) ([]scraper.Listing, error)
}

// Server serves the stats and browse endpoints.
type Server struct {
	store CarReader
	http  *http.Server
	log   *logger.Logger
}

// NewServer creates a Server listening on addr.
func NewServer(addr string, store CarReader) *Server {
	s := &Server{
		store: store,
		log:   logger.ForWeb(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /cars", s.handleCars)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called. Blocks.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("Stats server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the route mux.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Stats query failed")
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCars(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 500 {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 500")
			return
		}
		limit = parsed
	}

	cars, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Recent query failed")
		writeError(w, http.StatusInternalServerError, "failed to load cars")
		return
	}
	if cars == nil {
		cars = []scraper.Listing{}
	}
	writeJSON(w, http.StatusOK, cars)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
