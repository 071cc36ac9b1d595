// Package api exposes a small HTTP status surface: health, cache
// diagnostics, and read/delete access to persisted signal definitions.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/signalforge-lab/signalforge/internal/bundle"
	"github.com/signalforge-lab/signalforge/internal/logger"
	"github.com/signalforge-lab/signalforge/internal/signal/store"
	"github.com/signalforge-lab/signalforge/internal/types"
	"github.com/signalforge-lab/signalforge/pkg/errors"
)

// Server serves the status API. It never mutates scheduler or streaming
// state beyond signal deletion.
type Server struct {
	cache  *bundle.Cache
	store  store.Storage
	logger *logger.Logger

	httpServer *http.Server
	listener   net.Listener
}

// NewServer wires the status API over the cache and signal store.
func NewServer(cache *bundle.Cache, st store.Storage, log *logger.Logger) *Server {
	return &Server{cache: cache, store: st, logger: log}
}

// Start begins serving on the address. An empty address picks a free port.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeUnknown, err, "failed to listen on %s", address)
	}

	s.listener = listener

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	router.HandleFunc("/cache/stats", s.handleCacheStats).Methods("GET")
	router.HandleFunc("/cache/invalidate", s.handleCacheInvalidate).Methods("POST")
	router.HandleFunc("/signals", s.handleListSignals).Methods("GET")
	router.HandleFunc("/signals/{id}", s.handleGetSignal).Methods("GET")
	router.HandleFunc("/signals/{id}", s.handleDeleteSignal).Methods("DELETE")

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("api server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("api server listening", zap.String("address", s.Address()))

	return nil
}

// Address returns the bound address, useful when started with ":0".
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cache.Stats())
}

// handleCacheInvalidate clears cache entries scoped by the optional
// category, symbol, and interval query parameters. No parameters clears
// everything.
func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	category := optional.None[string]()
	if v := r.URL.Query().Get("category"); v != "" {
		category = optional.Some(v)
	}

	symbol := optional.None[string]()
	if v := r.URL.Query().Get("symbol"); v != "" {
		symbol = optional.Some(v)
	}

	interval := optional.None[types.Interval]()

	if v := r.URL.Query().Get("interval"); v != "" {
		parsed, err := types.ParseInterval(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)

			return
		}

		interval = optional.Some(parsed)
	}

	removed := s.cache.Invalidate(category, symbol, interval)

	s.writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	defs, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)

		return
	}

	s.writeJSON(w, http.StatusOK, defs)
}

func (s *Server) handleGetSignal(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	def, err := s.store.Get(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.HasCode(err, errors.ErrCodeSignalNotFound) {
			status = http.StatusNotFound
		}

		s.writeError(w, status, err)

		return
	}

	s.writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleDeleteSignal(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.store.Delete(r.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.HasCode(err, errors.ErrCodeSignalNotFound) {
			status = http.StatusNotFound
		}

		s.writeError(w, status, err)

		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
