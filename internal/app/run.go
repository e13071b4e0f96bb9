package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/logger"
	"github.com/tphakala/surveygen/internal/render"
)

// SkipConfig is the cobra annotation of commands that run without loading the configuration
const SkipConfig = "skip-config"

// Run sets up the runtime, calls fn with a context cancelled on SIGINT or SIGTERM
// and closes the runtime afterwards.
func Run(settings *conf.Settings, fn func(ctx context.Context, rt *Runtime) error) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := Setup(settings)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			if err == nil {
				err = cerr
			} else {
				rt.Logger.Error("shutdown failed", logger.Error(cerr))
			}
		}
	}()

	return fn(ctx, rt)
}

// Renderer returns a factory building survey renderers from configuration
func Renderer(settings *conf.Settings) func([]datastore.Disease) (*render.Renderer, error) {
	opts := render.OptionsFromSettings(settings)
	return func(diseases []datastore.Disease) (*render.Renderer, error) {
		return render.New(opts, diseases)
	}
}
