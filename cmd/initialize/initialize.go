// Package initialize provides commands that prepare configuration, the database and respondents
package initialize

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/surveygen/internal/app"
	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/users"
)

// Command creates the init command group
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file, database tables and respondents",
	}
	cmd.AddCommand(configCommand(), dbCommand(settings), usersCommand(settings))
	return cmd
}

func configCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "config [path]",
		Short:       "Write the default configuration file",
		Long:        "Writes the default configuration to path, or to the user configuration directory. An existing file is never overwritten.",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{app.SkipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				var err error
				if path, err = conf.UserConfigPath(); err != nil {
					return err
				}
			}
			if err := conf.WriteDefaultConfig(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}
}

func dbCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "db",
		Short: "Create database tables and seed the configured diseases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(settings, func(ctx context.Context, rt *app.Runtime) error {
				store, err := rt.Store()
				if err != nil {
					return err
				}
				if err := datastore.SeedDiseases(ctx, store, settings.Diseases); err != nil {
					return err
				}
				counts, err := store.Counts(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Database ready, %d diseases\n", counts.Diseases)
				return nil
			})
		},
	}
}

func usersCommand(settings *conf.Settings) *cobra.Command {
	var (
		file  string
		extra []string
	)

	cmd := &cobra.Command{
		Use:   "users [name...]",
		Short: "Create respondents with random access tokens",
		Long:  "Creates one respondent per name and prints the access tokens. Names are read from arguments or from a file with one name per line.",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := append(append([]string{}, args...), extra...)
			if file != "" {
				fromFile, err := users.ReadNames(file)
				if err != nil {
					return err
				}
				names = append(names, fromFile...)
			}

			return app.Run(settings, func(ctx context.Context, rt *app.Runtime) error {
				store, err := rt.Store()
				if err != nil {
					return err
				}
				created, err := users.Create(ctx, store, names)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tTOKEN")
				for _, u := range created {
					fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Name, u.AccessToken)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "File with one respondent name per line")
	cmd.Flags().StringArrayVarP(&extra, "name", "n", nil, "Respondent name, may be repeated")
	return cmd
}
