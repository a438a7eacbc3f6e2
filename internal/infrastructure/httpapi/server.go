// Package httpapi exposes the recall handler over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/ports"
)

const (
	headerHeldTTY     = "held-tty"
	headerHeldSession = "X-Held-Session"

	allowHeaders = "authorization, content-type, held-tty"
	allowMethods = "POST,DELETE,OPTIONS"

	bodyLimit = "1M"
)

// RecallService is the use case behind the chat endpoint.
type RecallService interface {
	Ask(ctx context.Context, caller domain.Caller, req domain.QueryRequest, tty string) (domain.Answer, error)
	Purge(ctx context.Context, caller domain.Caller, req domain.PurgeRequest) (string, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Addr          string
	AllowedOrigin string
}

// Server provides the recall HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	recall  RecallService
	auth    ports.Authenticator
	metrics *Metrics
	logger  *zap.Logger
	config  Config
}

// NewServer wires middleware and routes.
func NewServer(recall RecallService, auth ports.Authenticator, metrics *Metrics, logger *zap.Logger, cfg Config) (*Server, error) {
	if recall == nil || auth == nil {
		return nil, fmt.Errorf("recall service and authenticator are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		recall:  recall,
		auth:    auth,
		metrics: metrics,
		logger:  logger,
		config:  cfg,
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})
	e.Use(metrics.Middleware())
	e.Use(s.cors)
	e.Use(middleware.BodyLimit(bodyLimit))

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", s.metrics.Handler())

	for _, path := range []string{"/", "/held-chat"} {
		s.echo.Any(path, s.handleChat)
	}
}

// Echo exposes the router.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PurgeResponse is the response body of a successful DELETE.
type PurgeResponse struct {
	OK     bool   `json:"ok"`
	Purged string `json:"purged"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) cors(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderAccessControlAllowOrigin, s.config.AllowedOrigin)
		return next(c)
	}
}

// handleChat serves OPTIONS (preflight), POST (ask) and DELETE (purge).
// Authentication runs before method dispatch.
func (s *Server) handleChat(c echo.Context) error {
	req := c.Request()
	if req.Method == http.MethodOptions {
		h := c.Response().Header()
		h.Set(echo.HeaderAccessControlAllowHeaders, allowHeaders)
		h.Set(echo.HeaderAccessControlAllowMethods, allowMethods)
		return c.NoContent(http.StatusOK)
	}

	caller, err := s.auth.Authenticate(req.Context(), req.Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return err
	}

	switch req.Method {
	case http.MethodDelete:
		return s.handlePurge(c, caller)
	case http.MethodPost:
		return s.handleAsk(c, caller)
	default:
		return echo.NewHTTPError(http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleAsk(c echo.Context, caller domain.Caller) error {
	var body domain.QueryRequest
	if err := decodeStrict(c.Request().Body, &body); err != nil {
		return err
	}

	ans, err := s.recall.Ask(c.Request().Context(), caller, body, c.Request().Header.Get(headerHeldTTY))
	if err != nil {
		return err
	}

	c.Response().Header().Set(headerHeldSession, ans.SessionID)
	return c.String(http.StatusOK, ans.Text)
}

func (s *Server) handlePurge(c echo.Context, caller domain.Caller) error {
	var body domain.PurgeRequest
	if err := decodeStrict(c.Request().Body, &body); err != nil {
		return err
	}

	purged, err := s.recall.Purge(c.Request().Context(), caller, body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PurgeResponse{OK: true, Purged: purged})
}

// decodeStrict reads a JSON object and rejects unknown fields. An empty body
// decodes to the zero value.
func decodeStrict(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	return nil
}

// handleError renders every failure as {"error": "..."} with the matching status.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, message := s.classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.Error(err),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, ErrorResponse{Error: message})
	}
	if writeErr != nil {
		s.logger.Warn("write error response", zap.Error(writeErr))
	}
}

func (s *Server) classify(err error) (int, string) {
	var violation *domain.QuotaViolation
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &violation):
		s.metrics.QuotaRejections.WithLabelValues(string(violation.Dimension)).Inc()
		if violation.Dimension == domain.QuotaLookup {
			return http.StatusServiceUnavailable, violation.Message
		}
		return http.StatusTooManyRequests, violation.Message
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrEmptyQuery), errors.Is(err, domain.ErrSessionRequired):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &httpErr):
		return httpErr.Code, fmt.Sprint(httpErr.Message)
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// Start listens on the configured address and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.config.Addr))
	if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Run serves until ctx is cancelled, then shuts down within grace.
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
