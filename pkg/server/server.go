package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/levenlabs/go-lflag"
	"github.com/sunnyrelay/sunnyrelay/pkg/log"
	"github.com/sunnyrelay/sunnyrelay/pkg/relay"
	"github.com/sunnyrelay/sunnyrelay/pkg/storage"
	"github.com/sunnyrelay/sunnyrelay/pkg/types"
)

// StatusProvider is what the server reads from the relay.
type StatusProvider interface {
	Status() relay.Status
	Namespace() string
}

// Server exposes the relay's status and the published states over HTTP.
type Server struct {
	relay   StatusProvider
	storage storage.Database

	listenAddr string
	httpServer *http.Server
	serverName string
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(r StatusProvider, s storage.Database) *Server {
	srv := &Server{
		relay:      r,
		storage:    s,
		serverName: "sunnyrelay",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP status server listen address (empty disables the server)")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/states", s.handleStates)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	if s.listenAddr == "" {
		log.Ctx(ctx).InfoContext(ctx, "http server disabled")
		<-ctx.Done()
		return nil
	}

	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.relay.Status())
}

// listStates returns every state published under the relay's namespace.
func (s *Server) listStates(ctx context.Context) ([]types.StateEntry, error) {
	prefix := s.relay.Namespace()
	if prefix != "" {
		prefix += "."
	}
	return s.storage.ListStates(ctx, prefix)
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.listStates(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list states", slog.Any("error", err))
		writeJSONError(w, "failed to list states", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []types.StateEntry{}
	}
	writeJSON(w, entries)
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}
