// Package telemetry reports categorized errors to Sentry when enabled in configuration.
package telemetry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/logger"
)

const flushTimeout = 2 * time.Second

var initialized atomic.Bool

// Init configures the Sentry SDK and routes enhanced errors to it.
// It does nothing when Sentry is disabled. transport may be nil to use the SDK default.
func Init(settings *conf.Settings, transport sentry.Transport) error {
	if !settings.Sentry.Enabled {
		errors.SetTelemetryReporter(nil)
		return nil
	}

	environment := settings.Sentry.Environment
	if environment == "" {
		environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		Transport:        transport,
		Debug:            settings.Sentry.Debug,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "",
		Release:          fmt.Sprintf("surveygen@%s", settings.Version),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized.Store(true)
	GetLogger().Info("error telemetry enabled", logger.String("environment", environment))
	return nil
}

// Flush waits for queued events to be delivered
func Flush() {
	if initialized.Load() {
		sentry.Flush(flushTimeout)
	}
}

// applyPrivacyFilters removes host and user identifying data from an event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	if event.Request != nil {
		event.Request.Cookies = ""
		event.Request.Headers = nil
		event.Request.QueryString = ""
	}
	return event
}

var packageLogger logger.Logger

// GetLogger returns the telemetry module logger
func GetLogger() logger.Logger {
	if packageLogger == nil {
		return logger.Global().Module("telemetry")
	}
	return packageLogger
}

// SetLogger replaces the telemetry module logger
func SetLogger(l logger.Logger) {
	packageLogger = l
}
