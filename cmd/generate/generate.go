// Package generate provides the question and survey generation commands
package generate

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tphakala/surveygen/internal/app"
	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/notification"
	"github.com/tphakala/surveygen/internal/questions"
	"github.com/tphakala/surveygen/internal/surveygen"
)

// Command creates the generate command group
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate questions from loaded images or surveys from generated questions",
	}
	cmd.AddCommand(questionsCommand(settings), surveysCommand(settings))
	return cmd
}

func questionsCommand(settings *conf.Settings) *cobra.Command {
	var (
		types      []int
		redundancy float64
		multiplier int
	)

	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Generate diagnosis and comparison questions",
		Long: `Generates one diagnosis question (type 1) per original image and, per image group,
one comparison question (type 2) for every pair of segmentation masks. A share of the
pairs given by --redundancy is repeated --multiplier more times to measure consistency.
Running the command again generates a second set of questions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("types") {
				settings.Generation.QuestionTypes = types
			}
			if flags.Changed("redundancy") {
				settings.Generation.RedundancyPercent = redundancy
			}
			if flags.Changed("multiplier") {
				settings.Generation.Multiplier = multiplier
			}
			opts, err := questions.OptionsFromSettings(settings)
			if err != nil {
				return err
			}

			return app.Run(settings, func(ctx context.Context, rt *app.Runtime) error {
				store, err := rt.Store()
				if err != nil {
					return err
				}
				generator := questions.NewGenerator(store, app.Renderer(settings), rt.Metrics.Generation, nil)
				report, err := generator.Generate(ctx, opts)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				kinds := make([]datastore.QuestionKind, 0, len(report.ByKind))
				for kind := range report.ByKind {
					kinds = append(kinds, kind)
				}
				slices.Sort(kinds)
				for _, kind := range kinds {
					fmt.Fprintf(out, "Type %d: %d questions\n", kind, report.ByKind[kind])
				}
				if len(report.EmptyGroups) > 0 {
					fmt.Fprintf(out, "Groups without comparable masks: %v\n", report.EmptyGroups)
				}
				fmt.Fprintf(out, "Total: %d questions\n", report.Total())
				return nil
			})
		},
	}

	cmd.Flags().IntSliceVarP(&types, "types", "t", nil, "Question types to generate, e.g. 1,2")
	cmd.Flags().Float64VarP(&redundancy, "redundancy", "r", 0, "Percentage of comparison pairs to repeat, 0 to 100")
	cmd.Flags().IntVarP(&multiplier, "multiplier", "m", 0, "Additional copies of each repeated pair")
	return cmd
}

func surveysCommand(settings *conf.Settings) *cobra.Command {
	var (
		surveyType string
		types      []int
		quota      int
		maxSurveys int
		noAuthPage bool
	)

	cmd := &cobra.Command{
		Use:   "surveys",
		Short: "Assign unassigned questions to new surveys",
		Long: `Creates surveys of --quota questions each until no unassigned questions of the
selected types remain. Regular surveys take questions that have no regular survey;
control surveys take questions that have a regular survey but no control survey.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("type") {
				settings.Generation.SurveyType = surveyType
			}
			if flags.Changed("types") {
				settings.Generation.QuestionTypes = types
			}
			if flags.Changed("quota") {
				settings.Generation.QuestionsPerSurvey = quota
			}
			if flags.Changed("max") {
				settings.Generation.MaxSurveys = maxSurveys
			}
			if noAuthPage {
				settings.Generation.AuthPage = false
			}

			return app.Run(settings, func(ctx context.Context, rt *app.Runtime) error {
				store, err := rt.Store()
				if err != nil {
					return err
				}
				engine, err := surveygen.New(store, app.Renderer(settings), surveygen.ConfigFromSettings(settings), rt.Metrics.Generation, nil)
				if err != nil {
					return err
				}
				report, err := engine.Run(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, s := range report.Surveys {
					line := fmt.Sprintf("Survey %d: %d questions", s.ID, s.Size)
					if s.Underfilled {
						line += " (fewer than requested)"
					}
					fmt.Fprintln(out, line)
				}
				fmt.Fprintf(out, "Created %d %s surveys\n", len(report.Surveys), settings.Generation.SurveyType)

				if len(report.Surveys) > 0 {
					rt.Notifier.Notify(ctx, "surveys", notification.SurveysSummary(settings.Generation.SurveyType, report.Sizes()))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&surveyType, "type", conf.SurveyTypeRegular, "Survey type, regular or control")
	cmd.Flags().IntSliceVarP(&types, "types", "t", nil, "Question types to assign, e.g. 1,2")
	cmd.Flags().IntVarP(&quota, "quota", "q", 0, "Questions per survey")
	cmd.Flags().IntVar(&maxSurveys, "max", 0, "Maximum number of surveys to create, 0 for no limit")
	cmd.Flags().BoolVar(&noAuthPage, "no-auth-page", false, "Omit the respondent identification page")
	return cmd
}
