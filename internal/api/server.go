// Package api implements the HTTP surface: the Telegram webhook
// endpoint and a health check.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/herdworks/yakbot/internal/buildinfo"
	"github.com/herdworks/yakbot/internal/telegram"
)

// UpdateHandler processes a webhook update. The real implementation is
// *telegram.Bridge.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd *telegram.Update)
}

// secretHeader is the header Telegram echoes back when the webhook was
// registered with a secret_token.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// writeJSON encodes v as JSON to w, logging any errors at debug level.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP server for webhook delivery and health checks.
type Server struct {
	listen  string
	secret  string
	handler UpdateHandler
	logger  *slog.Logger
	server  *http.Server

	// baseCtx outlives individual webhook requests so update handling
	// can continue past the ack.
	baseCtx context.Context
	wg      sync.WaitGroup
}

// NewServer creates the HTTP server. secret is the webhook secret
// token; when empty the header check is skipped.
func NewServer(listen, secret string, handler UpdateHandler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		listen:  listen,
		secret:  secret,
		handler: handler,
		logger:  logger,
	}
}

// Start begins serving HTTP requests and blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = ctx

	mux := http.NewServeMux()
	mux.HandleFunc("POST /telegram/webhook", s.handleWebhook)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.server = &http.Server{
		Addr:         s.listen,
		Handler:      s.withLogging(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("starting HTTP server", "listen", s.listen)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the listener and waits for in-flight update handling
// to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("shutdown deadline reached with updates still in flight")
	}
	return err
}

// handleWebhook accepts a Telegram update. Every request is
// acknowledged with 200 regardless of validity so probers learn
// nothing and Telegram never retries a poisoned update; only
// well-formed, authenticated updates reach the bridge.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusOK)
	if s.secret != "" && r.Header.Get(secretHeader) != s.secret {
		s.logger.Warn("webhook secret mismatch", "remote", r.RemoteAddr)
		return
	}

	var upd telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.logger.Warn("webhook malformed update", "error", err)
		return
	}

	// Ack immediately; the agent loop can take minutes and Telegram
	// redelivers updates that are not answered quickly.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.handler.HandleUpdate(s.baseCtx, &upd)
	}()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
		"uptime":  buildinfo.Uptime().Round(time.Second).String(),
	}, s.logger)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// Addr returns the configured listen address, for log messages.
func (s *Server) Addr() string {
	return fmt.Sprintf("http://%s", s.listen)
}
