package httpcontroller

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/surveygen/internal/logger"
)

const maxBodySize = "16M"

// configureMiddleware sets up middleware for the server.
func (s *Server) configureMiddleware() {
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String()[:8] },
	}))
	s.Echo.Use(s.MetricsMiddleware())
	s.Echo.Use(s.RequestLoggerMiddleware())
	// exported survey documents post from wherever they are hosted
	s.Echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))
	s.Echo.Use(middleware.BodyLimit(maxBodySize))
}

// MetricsMiddleware records request count and latency per route
func (s *Server) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			if s.Metrics != nil {
				s.Metrics.HTTP.RecordRequest(c.Request().Method, path, c.Response().Status, time.Since(start).Seconds())
			}
			return nil
		}
	}
}

// RequestLoggerMiddleware logs every request with its request id
func (s *Server) RequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("request_id", v.RequestID),
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.Duration("latency", v.Latency),
				logger.String("remote_ip", v.RemoteIP),
			}
			if v.Status >= http.StatusInternalServerError {
				s.Logger.Warn("request failed", fields...)
				return nil
			}
			s.Logger.Debug("request", fields...)
			return nil
		},
	})
}
