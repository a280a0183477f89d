package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/RyanBlaney/sonido-vox/logging"
)

// configureMiddleware sets up middleware for the server
func (s *Server) configureMiddleware() {
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return uuid.New().String()[:8]
		},
		RequestIDHandler: func(c echo.Context, requestID string) {
			req := c.Request()
			ctx := logging.ContextWithFields(req.Context(), logging.Fields{
				"request_id": requestID,
				"client_ip":  c.RealIP(),
				"method":     req.Method,
				"path":       req.URL.Path,
			})
			c.SetRequest(req.WithContext(ctx))
		},
	}))
	s.Echo.Use(s.metricsMiddleware)
	s.Echo.Use(s.accessLogMiddleware)
}

// statusOf returns the status the error handler will send for err
func statusOf(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func (s *Server) metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		s.metrics.RecordRequest(c.Request().Method, path, statusOf(c, err), time.Since(start).Seconds())
		return err
	}
}

func (s *Server) accessLogMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		fields := logging.Fields{
			"status":      statusOf(c, err),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		logger := s.logger.WithContext(c.Request().Context())
		if err != nil {
			fields["error"] = err.Error()
			logger.Warn("Request failed", fields)
		} else {
			logger.Debug("Request served", fields)
		}
		return err
	}
}
