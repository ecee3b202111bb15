// Package server exposes a replay.Player over HTTP and a websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rustyeddy/tradesim/internal/logging"
	"github.com/rustyeddy/tradesim/replay"
	"github.com/rustyeddy/tradesim/sim"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds listener and rate limit settings.
type Config struct {
	Addr              string
	CommandsPerSecond float64
	Burst             int
}

type Server struct {
	player   *replay.Player
	logger   *zap.Logger
	cfg      Config
	limiter  *rate.Limiter
	upgrader websocket.Upgrader
}

func New(p *replay.Player, cfg Config, logger *zap.Logger) *Server {
	if cfg.CommandsPerSecond <= 0 {
		cfg.CommandsPerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	return &Server{
		player:  p,
		logger:  logging.OrNop(logger),
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.CommandsPerSecond), cfg.Burst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/commands", s.handleCommand)
	mux.HandleFunc("/ws", s.handleWS)
	return corsMiddleware(mux)
}

// ListenAndServe serves until ctx is done, then shuts down. Websocket
// connections are closed along with ctx.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st, err := s.player.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow() {
		s.writeJSON(w, http.StatusTooManyRequests, ErrorBody{Error: "too many commands"})
		return
	}

	var cmd replay.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "bad command: " + err.Error()})
		return
	}

	res, err := s.player.Apply(r.Context(), cmd)
	if err != nil {
		s.logger.Info("command rejected", zap.String("kind", string(cmd.Kind)), zap.Error(err))
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// ErrorBody is the JSON shape of a failed request. Fields is set for
// order validation failures.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func errorBody(err error) (int, ErrorBody) {
	body := ErrorBody{Error: err.Error()}

	var verrs sim.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		body.Fields = verrs
		return http.StatusBadRequest, body
	case errors.Is(err, replay.ErrBadSpeed):
		return http.StatusBadRequest, body
	case errors.Is(err, sim.ErrNoSeries),
		errors.Is(err, sim.ErrPositionOpen),
		errors.Is(err, sim.ErrNoPosition):
		return http.StatusConflict, body
	case errors.Is(err, replay.ErrStopped):
		return http.StatusServiceUnavailable, body
	}
	return http.StatusBadRequest, body
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, body := errorBody(err)
	s.writeJSON(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}
