package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/madxpgo/internal/app"
	"github.com/specialistvlad/madxpgo/internal/script"
)

// newApp builds the App for cmd from a validated configuration.
func newApp(cmd *cobra.Command, cfg *app.Config) (*app.App, error) {
	a, err := app.NewApp(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg)
	if err != nil {
		return nil, failure(err)
	}
	return a, nil
}

func newRunCommand(global *globalOptions) *cobra.Command {
	var (
		profilePath     string
		commandLog      string
		duplicates      string
		resolveEach     bool
		healthcheckPort int
	)
	cmd := &cobra.Command{
		Use:   "run SCRIPT",
		Short: "Execute a script section by section and record its profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.config(cmd, app.Config{
				ScriptPath:         args[0],
				ProfilePath:        profilePath,
				CommandLogPath:     commandLog,
				DuplicateTitles:    script.DuplicatePolicy(duplicates),
				ResolveEachSection: resolveEach,
				HealthcheckPort:    healthcheckPort,
			})
			if err != nil {
				return err
			}
			a, err := newApp(cmd, cfg)
			if err != nil {
				return err
			}
			if err := a.Run(cmd.Context()); err != nil {
				return failure(err)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&profilePath, "profile", "p", "", "Write the profile here (.jsonl, .msgpack, .msgpack.zst or .db).")
	f.StringVar(&commandLog, "command-log", "", "Mirror every engine submission to this file.")
	f.StringVar(&duplicates, "duplicate-titles", "", "Duplicate section titles: 'reject' or 'last_wins'.")
	f.BoolVar(&resolveEach, "resolve-each-section", false, "Record the knobs of every dependent variable after each section.")
	f.IntVar(&healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and progress server. 0 is disabled.")
	return cmd
}

func newRenderCommand(global *globalOptions) *cobra.Command {
	ro := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render PATH",
		Short: "Render a script, or every script under a directory, as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.config(cmd, ro.apply(app.Config{ScriptPath: args[0]}))
			if err != nil {
				return err
			}
			a, err := newApp(cmd, cfg)
			if err != nil {
				return err
			}
			if err := a.Render(cmd.Context()); err != nil {
				return failure(err)
			}
			return nil
		},
	}
	ro.bind(cmd)
	return cmd
}

func newFormatCommand(global *globalOptions) *cobra.Command {
	var duplicates string
	cmd := &cobra.Command{
		Use:   "format SCRIPT",
		Short: "Print a script in canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.config(cmd, app.Config{
				ScriptPath:      args[0],
				DuplicateTitles: script.DuplicatePolicy(duplicates),
			})
			if err != nil {
				return err
			}
			a, err := newApp(cmd, cfg)
			if err != nil {
				return err
			}
			if err := a.Format(cmd.Context()); err != nil {
				return failure(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&duplicates, "duplicate-titles", "", "Duplicate section titles: 'reject' or 'last_wins'.")
	return cmd
}

func newInspectCommand(global *globalOptions) *cobra.Command {
	ro := &renderOptions{}
	var (
		scriptPath string
		q          app.Query
	)
	subjects := make([]string, len(app.Subjects))
	for i, s := range app.Subjects {
		subjects[i] = string(s)
	}

	cmd := &cobra.Command{
		Use:       "inspect SUBJECT",
		Short:     "Report variables, sequences, beams, elements, knobs or tables",
		Long:      "Inspect opens an engine session, runs --script on it when given, then reports SUBJECT, one of: " + strings.Join(subjects, ", ") + ".",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: subjects,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.config(cmd, ro.apply(app.Config{ScriptPath: scriptPath}))
			if err != nil {
				return err
			}
			q.Subject = app.Subject(args[0])
			if q.Subject == app.InspectInterpolate && len(q.Positions) == 0 {
				return usageError(fmt.Errorf("interpolate needs at least one --at position"))
			}
			a, err := newApp(cmd, cfg)
			if err != nil {
				return err
			}
			if err := a.Inspect(cmd.Context(), q); err != nil {
				return failure(err)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&scriptPath, "script", "s", "", "Run this script before reporting.")
	f.StringVar(&q.Sequence, "sequence", "", "Sequence for elements, show and knobs.")
	f.StringVar(&q.Knob, "knob", "", "Keep only the rows driven by this knob.")
	f.StringVar(&q.Element, "element", "", "Element for show.")
	f.StringVar(&q.Table, "table", "", "Table for table and interpolate.")
	f.Float64SliceVar(&q.Positions, "at", nil, "Positions for interpolate (repeatable or comma separated).")
	ro.bind(cmd)
	return cmd
}
