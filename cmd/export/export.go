// Package export provides the survey export command
package export

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/surveygen/internal/app"
	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/export"
)

// Command creates the export command
func Command(settings *conf.Settings) *cobra.Command {
	var (
		directory  string
		format     string
		surveyType string
		resultsURL string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write surveys to JSON or stand-alone HTML files",
		Long: `Writes one file per survey of the selected type. JSON files hold the survey
definition; HTML files embed it in a page that loads SurveyJS, zooms images
on click and, when a results URL is set, posts the answers there.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("dir") {
				settings.Export.Directory = directory
			}
			if flags.Changed("format") {
				settings.Export.Type = format
			}
			if flags.Changed("type") {
				settings.Generation.SurveyType = surveyType
			}
			if flags.Changed("results-url") {
				settings.Export.ResultsURL = resultsURL
			}

			return app.Run(settings, func(ctx context.Context, rt *app.Runtime) error {
				store, err := rt.Store()
				if err != nil {
					return err
				}
				exporter, err := export.New(store, export.OptionsFromSettings(settings), rt.Metrics.Export, nil)
				if err != nil {
					return err
				}
				report, err := exporter.Export(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d surveys (%d bytes) to %s\n",
					len(report.Files), report.Bytes, settings.Export.Directory)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&directory, "dir", "o", "", "Output directory")
	cmd.Flags().StringVarP(&format, "format", "f", conf.ExportJSON, "Output format, json or html")
	cmd.Flags().StringVar(&surveyType, "type", string(datastore.SurveyRegular), "Survey type, regular or control")
	cmd.Flags().StringVar(&resultsURL, "results-url", "", "Endpoint HTML surveys post answers to")
	return cmd
}
