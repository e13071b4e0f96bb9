// Package app wires logging, telemetry, metrics, notifications and the record
// store for the command line tools.
package app

import (
	stderrors "errors"
	"fmt"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/logger"
	"github.com/tphakala/surveygen/internal/notification"
	"github.com/tphakala/surveygen/internal/observability"
	"github.com/tphakala/surveygen/internal/telemetry"
)

// Runtime holds the services shared by commands
type Runtime struct {
	Settings *conf.Settings
	Metrics  *observability.Metrics
	Notifier *notification.Notifier
	Logger   logger.Logger

	central *logger.CentralLogger
	store   datastore.Interface
}

// Setup creates the central logger and the services that do not touch the database
func Setup(settings *conf.Settings) (rt *Runtime, err error) {
	central, err := logger.NewCentralLogger(logger.Config{
		Level:    settings.Logging.Level,
		File:     settings.Logging.File,
		Console:  settings.Logging.Console,
		Timezone: settings.Logging.Timezone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() {
		if err != nil {
			_ = central.Close()
		}
	}()
	logger.SetGlobal(central.Logger())

	rt = &Runtime{
		Settings: settings,
		Logger:   central.Module("app"),
		central:  central,
	}

	if terr := telemetry.Init(settings, nil); terr != nil {
		rt.Logger.Warn("error telemetry disabled", logger.Error(terr))
	}

	rt.Metrics, err = observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if err = rt.Metrics.RegisterRuntimeCollectors(); err != nil {
		return nil, fmt.Errorf("failed to register runtime metrics: %w", err)
	}

	rt.Notifier, err = notification.New(settings.Notification.URLs, 0, nil)
	if err != nil {
		return nil, err
	}

	return rt, nil
}

// Store opens the configured record store on first use
func (rt *Runtime) Store() (datastore.Interface, error) {
	if rt.store != nil {
		return rt.store, nil
	}
	store := datastore.New(rt.Settings)
	if err := store.Open(); err != nil {
		return nil, err
	}
	rt.store = store
	return store, nil
}

// Close releases the store, writes the metrics text file when configured and
// flushes logs and telemetry.
func (rt *Runtime) Close() error {
	var errs []error

	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			errs = append(errs, err)
		}
		rt.store = nil
	}

	if path := rt.Settings.Metrics.TextFile; path != "" {
		if err := rt.Metrics.WriteTextFile(path); err != nil {
			errs = append(errs, err)
		} else {
			rt.Logger.Debug("metrics written", logger.String("path", path))
		}
	}

	telemetry.Flush()
	if err := rt.central.Close(); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}
