// Package server exposes a runner as an HTTP endpoint, making the whole
// workflow callable as a remote capability: the invoke endpoint accepts
// input plus seed state, and the capability card is served at the well-known
// path so remote.Node peers can discover it.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/remote"
	"github.com/hupe1980/taskmesh/runner"
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// PublicURL is the externally reachable base URL used in the capability
	// card. Empty means peers resolve the invoke path relative to the card's
	// origin.
	PublicURL string

	// RateLimit caps requests per second across all endpoints. Zero disables
	// limiting.
	RateLimit rate.Limit

	// RateBurst is the limiter's burst size (defaults to 1 when limiting is
	// enabled).
	RateBurst int

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// Logger receives structured server events.
	Logger logging.Logger
}

// runRequest is the invoke payload.
type runRequest struct {
	Input string         `json:"input"`
	State map[string]any `json:"state,omitempty"`
}

// runResponse reports the run outcome plus the final state.
type runResponse struct {
	RunID  string         `json:"run_id"`
	Status core.Status    `json:"status"`
	Output string         `json:"output"`
	State  map[string]any `json:"state,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Server serves a runner over HTTP.
type Server struct {
	runner  *runner.Runner
	opts    Options
	limiter *rate.Limiter
	httpSrv *http.Server
	logger  logging.Logger
}

// New creates a server around the given runner.
func New(r *runner.Runner, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	s := &Server{
		runner: r,
		opts:   opts,
		logger: opts.Logger,
	}

	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(opts.RateLimit, burst)
	}

	s.httpSrv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the server's HTTP handler, exported for tests and for
// embedding into a larger mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("GET "+remote.CardWellKnownPath, s.handleCard)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.limit(mux)
}

// ListenAndServe starts serving until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("server listening", "addr", s.opts.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	s.logger.Info("server shutting down")

	return s.httpSrv.Shutdown(shutdownCtx)
}

// limit wraps a handler with the request rate limiter.
func (s *Server) limit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %s", err), http.StatusBadRequest)
		return
	}

	res, state, err := s.runner.Run(r.Context(), req.Input, req.State)
	if err != nil {
		s.logger.Error("run rejected", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, runResponse{
		RunID:  res.ID,
		Status: res.Status,
		Output: res.Output,
		State:  state.Delta(),
		Error:  res.Error,
	})
}

func (s *Server) handleCard(w http.ResponseWriter, _ *http.Request) {
	root := s.runner.Root()

	invokeURL := "/run"
	if s.opts.PublicURL != "" {
		invokeURL = s.opts.PublicURL + "/run"
	}

	writeJSON(w, http.StatusOK, remote.Card{
		Name:        root.Name(),
		Description: root.Description(),
		URL:         invokeURL,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
