// Package show provides commands that print surveys and store statistics
package show

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/surveygen/internal/app"
	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/export"
)

// Command creates the show command group
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print surveys and database statistics",
	}
	cmd.AddCommand(surveyCommand(settings), surveysCommand(settings), statsCommand(settings))
	return cmd
}

func surveyCommand(settings *conf.Settings) *cobra.Command {
	var text bool

	cmd := &cobra.Command{
		Use:   "survey <id>",
		Short: "Print the survey definition, or a plain text rendition with --text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 0)
			if err != nil {
				return fmt.Errorf("invalid survey id %q", args[0])
			}
			return app.Run(settings, func(ctx context.Context, rt *app.Runtime) error {
				store, err := rt.Store()
				if err != nil {
					return err
				}
				survey, err := store.GetSurvey(ctx, uint(id))
				if err != nil {
					return err
				}
				content := survey.Content
				if text {
					if content, err = export.PlainText(survey); err != nil {
						return err
					}
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), content)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&text, "text", false, "Print questions and choices as plain text")
	return cmd
}

func surveysCommand(settings *conf.Settings) *cobra.Command {
	var surveyType string

	cmd := &cobra.Command{
		Use:   "surveys",
		Short: "List surveys with their question and response counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(settings, func(ctx context.Context, rt *app.Runtime) error {
				store, err := rt.Store()
				if err != nil {
					return err
				}
				surveys, err := store.ListSurveys(ctx, datastore.SurveyKind(surveyType))
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTYPE\tQUESTIONS\tANSWERS\tCREATED")
				for i := range surveys {
					s := &surveys[i]
					questions, err := store.SurveyQuestions(ctx, s)
					if err != nil {
						return err
					}
					answers, err := store.ListAnswers(ctx, s.ID)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", s.ID, s.Kind, len(questions), len(answers),
						s.CreatedAt.Format("2006-01-02 15:04"))
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&surveyType, "type", "", "Only list regular or control surveys")
	return cmd
}

func statsCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(settings, func(ctx context.Context, rt *app.Runtime) error {
				store, err := rt.Store()
				if err != nil {
					return err
				}
				c, err := store.Counts(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "Images\t%d\n", c.Images)
				fmt.Fprintf(w, "Diseases\t%d\n", c.Diseases)
				fmt.Fprintf(w, "Questions\t%d\n", c.Questions)
				fmt.Fprintf(w, "Without regular survey\t%d\n", c.UnassignedRegular)
				fmt.Fprintf(w, "Regular surveys\t%d\n", c.RegularSurveys)
				fmt.Fprintf(w, "Control surveys\t%d\n", c.ControlSurveys)
				fmt.Fprintf(w, "Respondents\t%d\n", c.Users)
				fmt.Fprintf(w, "Answers\t%d\n", c.Answers)
				return w.Flush()
			})
		},
	}
}
