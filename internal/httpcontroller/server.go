// Package httpcontroller serves result ingestion, survey pages and metrics over HTTP.
package httpcontroller

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/export"
	"github.com/tphakala/surveygen/internal/logger"
	"github.com/tphakala/surveygen/internal/notification"
	"github.com/tphakala/surveygen/internal/observability"
	"github.com/tphakala/surveygen/internal/observability/metrics"
	"github.com/tphakala/surveygen/internal/results"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	readHeaderTimeout      = 10 * time.Second
)

// Server encapsulates the Echo instance and the services behind the routes
type Server struct {
	Echo     *echo.Echo
	DS       datastore.Store
	Settings *conf.Settings
	Metrics  *observability.Metrics
	Ingester *results.Ingester
	Notifier *notification.Notifier
	Logger   logger.Logger

	documents export.DocumentOptions
	listener  net.Listener
}

// New creates a server with routes and middleware configured
func New(settings *conf.Settings, store datastore.Store, m *observability.Metrics, notifier *notification.Notifier) *Server {
	s := &Server{
		Echo:      echo.New(),
		DS:        store,
		Settings:  settings,
		Metrics:   m,
		Notifier:  notifier,
		Logger:    GetLogger(),
		documents: export.OptionsFromSettings(settings).Document,
	}
	var resultsMetrics *metrics.ResultsMetrics
	if m != nil {
		resultsMetrics = m.Results
	}
	s.Ingester = results.NewIngester(store, resultsMetrics, nil)

	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.Logger.SetOutput(&echoLogAdapter{logger: s.Logger})
	s.Echo.HTTPErrorHandler = s.errorHandler

	s.configureMiddleware()
	s.initRoutes()
	return s
}

// Listen binds the configured address. An address with port 0 picks a free port.
func (s *Server) Listen() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.Settings.Server.Listen)
	if err != nil {
		return nil, errors.New(err).
			Component("httpcontroller").
			Category(errors.CategoryNetwork).
			Context("listen", s.Settings.Server.Listen).
			Build()
	}
	s.listener = ln
	return ln.Addr(), nil
}

// Serve handles requests until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if _, err := s.Listen(); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Handler:           s.Echo,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.Echo.Server = srv

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(s.listener)
	}()
	s.Logger.Info("HTTP server started", logger.String("address", s.listener.Addr().String()))

	select {
	case err := <-serveErr:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.New(err).
			Component("httpcontroller").
			Category(errors.CategoryNetwork).
			Build()
	case <-ctx.Done():
	}

	timeout := s.Settings.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.Logger.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.New(err).
			Component("httpcontroller").
			Category(errors.CategoryNetwork).
			Context("operation", "shutdown").
			Build()
	}
	<-serveErr
	return nil
}

// echoLogAdapter adapts our Logger to implement io.Writer for Echo
type echoLogAdapter struct {
	logger logger.Logger
}

// Write implements io.Writer for echoLogAdapter
func (a *echoLogAdapter) Write(p []byte) (n int, err error) {
	if msg := strings.TrimSpace(string(p)); msg != "" {
		a.logger.Info(msg)
	}
	return len(p), nil
}

var packageLogger logger.Logger

// GetLogger returns the http module logger
func GetLogger() logger.Logger {
	if packageLogger == nil {
		return logger.Global().Module("http")
	}
	return packageLogger
}

// SetLogger replaces the http module logger
func SetLogger(l logger.Logger) {
	packageLogger = l
}
