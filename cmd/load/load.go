// Package load provides commands that read images, image metadata and survey results into the database
package load

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/surveygen/internal/app"
	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/imageload"
	"github.com/tphakala/surveygen/internal/notification"
	"github.com/tphakala/surveygen/internal/results"
)

// Command creates the load command group
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load images, image metadata or survey results",
	}
	cmd.AddCommand(imagesCommand(settings), metadataCommand(settings), resultsCommand(settings))
	return cmd
}

func imagesCommand(settings *conf.Settings) *cobra.Command {
	var (
		extension    string
		metadataFile string
	)

	cmd := &cobra.Command{
		Use:   "images <directory>",
		Short: "Register image files found under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("ext") {
				extension = settings.Images.Extension
			}

			var metadata []imageload.Metadata
			if metadataFile != "" {
				var err error
				if metadata, err = imageload.ReadMetadata(metadataFile); err != nil {
					return err
				}
			}

			return app.Run(settings, func(ctx context.Context, rt *app.Runtime) error {
				store, err := rt.Store()
				if err != nil {
					return err
				}
				report, err := imageload.New(store, nil).LoadDirectory(ctx, args[0], extension, metadata)
				if err != nil {
					return err
				}
				printImageReport(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&extension, "ext", ".png", "Image file extension")
	cmd.Flags().StringVarP(&metadataFile, "metadata", "m", "", "YAML or JSON file with group, type and disease metadata")
	return cmd
}

func metadataCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <file>",
		Short: "Apply group, type and disease metadata to loaded images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := imageload.ReadMetadata(args[0])
			if err != nil {
				return err
			}
			return app.Run(settings, func(ctx context.Context, rt *app.Runtime) error {
				store, err := rt.Store()
				if err != nil {
					return err
				}
				report, err := imageload.New(store, nil).ApplyMetadata(ctx, metadata)
				if err != nil {
					return err
				}
				printImageReport(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}
}

func printImageReport(w io.Writer, r imageload.Report) {
	fmt.Fprintf(w, "Found %d, added %d, skipped %d, updated %d\n", r.Found, r.Added, r.Skipped, r.Updated)
	if len(r.Missing) > 0 {
		fmt.Fprintf(w, "No image for metadata entries: %s\n", strings.Join(r.Missing, ", "))
	}
}

func resultsCommand(settings *conf.Settings) *cobra.Command {
	var url, token string

	cmd := &cobra.Command{
		Use:   "results [file]",
		Short: "Ingest survey results from a file or the configured results URL",
		Long:  `Reads a payload of the form {"Data": [...]} and stores one answer per question and respondent. Records that cannot be stored are reported and skipped.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("url") {
				settings.Results.URL = url
			}
			if cmd.Flags().Changed("token") {
				settings.Results.Token = token
			}
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			source, err := results.SourceFromSettings(settings, path)
			if err != nil {
				return err
			}

			return app.Run(settings, func(ctx context.Context, rt *app.Runtime) error {
				store, err := rt.Store()
				if err != nil {
					return err
				}
				report, err := results.NewIngester(store, rt.Metrics.Results, nil).Load(ctx, source)
				if report.Records > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Records %d, rejected %d, answers %d\n",
						report.Records, report.Failed, report.Answers)
					rt.Notifier.Notify(ctx, "results", notification.ResultsSummary(report.Records, report.Failed, report.Answers))
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Results endpoint, overrides results.url")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token for the results endpoint")
	return cmd
}
