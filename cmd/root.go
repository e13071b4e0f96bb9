// Package cmd assembles the surveygen command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/surveygen/cmd/export"
	"github.com/tphakala/surveygen/cmd/generate"
	"github.com/tphakala/surveygen/cmd/initialize"
	"github.com/tphakala/surveygen/cmd/load"
	"github.com/tphakala/surveygen/cmd/serve"
	"github.com/tphakala/surveygen/cmd/show"
	"github.com/tphakala/surveygen/cmd/version"
	"github.com/tphakala/surveygen/internal/app"
	"github.com/tphakala/surveygen/internal/buildinfo"
	"github.com/tphakala/surveygen/internal/conf"
)

// RootCommand creates and returns the root command. Sub-commands share settings,
// which are loaded before any of them runs.
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "surveygen",
		Short:         "Generate, export and evaluate retinal image surveys",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("error binding debug flag: %v", err))
	}

	rootCmd.AddCommand(
		initialize.Command(settings),
		load.Command(settings),
		generate.Command(settings),
		export.Command(settings),
		show.Command(settings),
		serve.Command(settings),
		version.Command(build),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if cmd.Annotations[app.SkipConfig] != "" {
			return nil
		}
		return loadSettings(configFile, settings, build)
	}

	return rootCmd
}

// loadSettings reads configuration into the shared settings instance
func loadSettings(configFile string, settings *conf.Settings, build *buildinfo.Context) error {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	*settings = *loaded
	settings.Version = build.GetVersion()

	if settings.Debug {
		settings.Logging.Level = "debug"
	}
	return nil
}
