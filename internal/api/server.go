package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"log/slog"

	"vodmill/internal/config"
	"vodmill/internal/jobstate"
	"vodmill/internal/logging"
)

// StatusPayload is the wire shape of GET /status. Nullable fields use
// pointers so an idle daemon reports explicit JSON nulls.
type StatusPayload struct {
	JobID        *string `json:"jobId"`
	FileName     *string `json:"fileName"`
	Stage        string  `json:"stage"`
	Percent      int     `json:"percent"`
	Timestamp    string  `json:"timestamp"`
	ErrorMessage *string `json:"errorMessage"`
}

// Server exposes the daemon's job state over HTTP.
type Server struct {
	bind   string
	store  *jobstate.Store
	logger *slog.Logger

	listener net.Listener
	server   *http.Server

	now func() time.Time
}

// NewServer builds the status server. It does not listen until Start.
func NewServer(cfg *config.Config, store *jobstate.Store, logger *slog.Logger) *Server {
	srv := &Server{
		bind:   cfg.Paths.StatusBind,
		store:  store,
		logger: logging.NewComponentLogger(logger, "api-server"),
		now:    time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", srv.handleStatus)
	mux.HandleFunc("/", srv.handleNotFound)

	srv.server = &http.Server{
		Handler:           srv.recoverPanics(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Start binds the listener and serves in the background. The caller decides
// whether a bind failure is fatal; the daemon treats it as degraded, not
// dead, since processing works without the status endpoint.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("status listen on %s: %w", s.bind, err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("status server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, letting in-flight requests finish.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound address, or empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	s.writeError(w, http.StatusNotFound, "not found")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.statusPayload())
}

// statusPayload renders the job-state slot for display. A daemon that is
// between jobs reports Idle regardless of what the last job left behind,
// with one exception: a failure stays visible until the next job starts,
// so an operator who missed the event still sees what went wrong.
func (s *Server) statusPayload() StatusPayload {
	snap := s.store.Snapshot()

	if !snap.IsRunning && snap.Stage != jobstate.StageFailed {
		return StatusPayload{
			Stage:     jobstate.StageIdle,
			Percent:   0,
			Timestamp: s.now().UTC().Format(time.RFC3339),
		}
	}

	payload := StatusPayload{
		Stage:     snap.Stage,
		Percent:   snap.Percent,
		Timestamp: snap.LastUpdatedAt.UTC().Format(time.RFC3339),
	}
	if snap.JobID != "" {
		payload.JobID = &snap.JobID
	}
	if snap.FileName != "" {
		payload.FileName = &snap.FileName
	}
	if snap.ErrorMessage != "" {
		payload.ErrorMessage = &snap.ErrorMessage
	}
	return payload
}

// recoverPanics keeps a handler bug from killing the daemon; the request
// gets a 500 and the panic is logged with its stack.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("status handler panic",
					logging.String("path", r.URL.Path),
					logging.Any("panic", rec),
				)
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode status response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
