// Package api exposes a paper-trading session over HTTP and a websocket
// snapshot stream.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rustyeddy/papertrader/feed"
	"github.com/rustyeddy/papertrader/sim"
	"github.com/sirupsen/logrus"
)

type Server struct {
	session    *sim.Session
	commentary feed.Commentary
	logger     *logrus.Logger
	addr       string

	// StreamInterval is how often /ws pushes a snapshot.
	StreamInterval time.Duration
}

func NewServer(session *sim.Session, commentary feed.Commentary, logger *logrus.Logger, addr string) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		session:        session,
		commentary:     feed.Fallback{Source: commentary, Log: logger},
		logger:         logger,
		addr:           addr,
		StreamInterval: time.Second,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/summary", s.handleSummary)

	mux.HandleFunc("GET /api/instruments", s.handleInstruments)
	mux.HandleFunc("POST /api/instruments", s.handleAddInstrument)

	mux.HandleFunc("GET /api/orders", s.handleOrders)
	mux.HandleFunc("POST /api/orders", s.handlePlaceOrder)
	mux.HandleFunc("DELETE /api/orders", s.handleClearOrders)

	mux.HandleFunc("GET /api/positions", s.handlePositions)
	mux.HandleFunc("POST /api/positions/{id}/exit", s.handleExitPosition)
	mux.HandleFunc("POST /api/squareoff", s.handleSquareOff)
	mux.HandleFunc("POST /api/reset", s.handleReset)

	mux.HandleFunc("GET /api/insight/{symbol}", s.handleInsight)
	mux.HandleFunc("GET /api/news", s.handleNews)

	mux.HandleFunc("GET /ws", s.handleStream)

	return corsMiddleware(s.requestID(mux))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.addr).Info("Starting API server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestID tags every request with an X-Request-Id, reusing the caller's
// when it sent one, and logs it.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)

		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
			"elapsed":    time.Since(start),
		}).Debug("api request")
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// persist saves the session after a change. A failed save is logged; the
// change itself already happened.
func (s *Server) persist() {
	if err := s.session.Save(); err != nil {
		s.logger.WithError(err).Error("save session")
	}
}
