// Package server exposes the bot's HTTP surface: the Telegram webhook, the
// health probe, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"donation_bot/internal/logging"
)

const (
	mongoPingTimeout  = 2 * time.Second
	readHeaderTimeout = 2 * time.Second
	listenPrefix      = ":"

	// WebhookPath receives Telegram updates.
	WebhookPath = "/telegram/webhook"
)

// MongoChecker defines the subset of MongoDB client behavior required for health.
type MongoChecker interface {
	Ping(ctx context.Context) error
}

// Server hosts the HTTP endpoints and owns the underlying HTTP server.
type Server struct {
	server       *http.Server
	logger       *logrus.Entry
	mongoChecker MongoChecker
	webhook      *webhook
	metrics      http.Handler
	now          func() time.Time
}

// Option customizes the Server.
type Option func(*Server)

// WithMetrics serves h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

type response struct {
	Status string `json:"status"`
	Mongo  string `json:"mongo,omitempty"`
}

// NewServer constructs a server on the provided port. GET /healthz and
// GET /api/test are always served.
func NewServer(port int, mongoChecker MongoChecker, logger *logrus.Entry, opts ...Option) *Server {
	if logger == nil {
		logger = logging.Logger()
	}

	srv := &Server{
		logger:       logger,
		mongoChecker: mongoChecker,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(srv)
		}
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf("%s%d", listenPrefix, port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return srv
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, middleware.RealIP, middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/test", s.handleTest)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.webhook != nil {
		r.Post(WebhookPath, s.webhook.ServeHTTP)
	}

	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe starts the server and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.WithFields(logging.Fields{
		"event":   "http_listen",
		"addr":    s.server.Addr,
		"webhook": s.webhook != nil,
	}).Info("starting http server")

	if err := s.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			s.logger.WithField("event", "http_stopped").Info("http server stopped")
			return nil
		}

		return fmt.Errorf("http server listen: %w", err)
	}

	s.logger.WithField("event", "http_stopped").Info("http server stopped")
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := response{Status: "ok"}
	mongoStatus := "ok"

	if s.mongoChecker == nil {
		mongoStatus = "error"
		s.logger.WithField("event", "health_mongo_missing").Warn("mongo checker is not configured for health endpoint")
	} else {
		pingCtx, cancel := context.WithTimeout(r.Context(), mongoPingTimeout)
		err := s.mongoChecker.Ping(pingCtx)
		cancel()

		if err != nil {
			mongoStatus = "error"
			s.logger.WithFields(logging.Fields{
				"event":      "health_mongo_error",
				"request_id": requestIDFrom(r.Context()),
			}).WithError(err).Warn("mongo ping failed during health check")
		}
	}

	if mongoStatus != "ok" {
		resp.Status = "degraded"
		resp.Mongo = "error"
	}

	s.writeJSON(w, resp)
}

func (s *Server) handleTest(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"ok":   true,
		"time": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithField("event", "http_write_error").WithError(err).Error("failed to encode response")
	}
}

// UpdateProcessor dispatches one decoded update.
type UpdateProcessor interface {
	ProcessUpdate(ctx context.Context, update *models.Update)
}

// UpdateDecoder turns a webhook body into an update.
type UpdateDecoder interface {
	Decode(raw []byte) (*models.Update, error)
}

// WebhookObserver counts webhook outcomes.
type WebhookObserver interface {
	ObserveWebhook(result string)
}
