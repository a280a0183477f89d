// Package server exposes the prediction service over HTTP
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RyanBlaney/sonido-vox/classifier"
	"github.com/RyanBlaney/sonido-vox/logging"
)

// Config holds the HTTP server settings
type Config struct {
	Listen string `json:"listen"`

	// Deadline for one prediction from upload to response, 0 means none
	RequestTimeout time.Duration `json:"request_timeout"`

	MaxUploadBytes int64 `json:"max_upload_bytes"`

	// Grace period for in-flight requests on shutdown
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Listen:          ":5000",
		RequestTimeout:  60 * time.Second,
		MaxUploadBytes:  16 << 20,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive: %d", c.MaxUploadBytes)
	}
	if c.RequestTimeout < 0 || c.ShutdownTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// Server routes HTTP requests to the prediction service. Each request runs
// on its own goroutine; the service and model are shared read-only.
type Server struct {
	Echo *echo.Echo

	config   *Config
	service  *classifier.Service
	registry *prometheus.Registry
	metrics  *Metrics
	logger   logging.Logger
}

// New creates the server and registers its routes. Metrics go to a
// private registry served on /metrics.
func New(config *Config, service *classifier.Service) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	if service == nil {
		return nil, fmt.Errorf("service is required")
	}

	registry := prometheus.NewRegistry()
	metrics, err := NewMetrics(registry)
	if err != nil {
		return nil, err
	}

	s := &Server{
		Echo:     echo.New(),
		config:   config,
		service:  service,
		registry: registry,
		metrics:  metrics,
		logger: logging.WithFields(logging.Fields{
			"component": "http_server",
		}),
	}
	s.Echo.HideBanner = true
	s.Echo.HidePort = true

	s.configureMiddleware()
	s.initRoutes()
	return s, nil
}

func (s *Server) initRoutes() {
	s.Echo.POST("/predict", s.handlePredict)
	s.Echo.POST("/extract", s.handleExtract)
	s.Echo.GET("/health", s.handleHealth)
	s.Echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Echo.Start(s.config.Listen)
	}()

	s.logger.Info("HTTP server started", logging.Fields{
		"listen":          s.config.Listen,
		"model_loaded":    s.service.Health().ModelLoaded,
		"max_upload":      s.config.MaxUploadBytes,
		"request_timeout": s.config.RequestTimeout.String(),
	})

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-errChan; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
