package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timvw/judge-patrol/internal/report"
	"github.com/timvw/judge-patrol/internal/suite"
)

var (
	flagSuiteParallel int
	flagSuiteJSON     bool
	flagSuiteTheme    string
)

var suiteCmd = &cobra.Command{
	Use:   "suite <file.yaml>",
	Short: "Review every case in a suite file",
	Long: `Run all review cases from a YAML suite file and print a report.

  parallel: 4
  cases:
    - name: welcome tone
      criteria: Message uses a warm, conversational tone
      artifact: "Welcome to Arcology Builder!"
    - name: dashboard hierarchy
      criteria: Layout demonstrates clear visual hierarchy
      artifact: screenshots/dashboard.png
      intelligence: smart

Relative screenshot paths are resolved against the suite file's
directory. Cases run concurrently (--parallel, then the file's
parallel, then the config's parallel).

Exit codes: 0 when every case passes, 1 when any case fails and none
errored, 2 when any case errored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := suite.Load(args[0])
		if err != nil {
			return err
		}

		ctx, rt, closeFn, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		parallel := rt.cfg.Parallel
		if file.Parallel > 0 {
			parallel = file.Parallel
		}
		if cmd.Flags().Changed("parallel") {
			parallel = flagSuiteParallel
		}

		// Groups every review of this run in traces.
		sessionID := "js-" + uuid.NewString()
		logger := rt.logger.With(zap.String("session_id", sessionID))
		logger.Debug("suite started",
			zap.String("suite", file.Path),
			zap.Int("cases", len(file.Cases)),
			zap.Int("parallel", parallel))

		runner := &suite.Runner{
			Reviewer: rt.engine,
			Parallel: parallel,
			Logger:   logger,
		}

		start := time.Now()
		outcomes := runner.Run(ctx, file.Cases)
		rep := report.New(sessionID, file.Path, start, time.Since(start), outcomes)

		out := cmd.OutOrStdout()
		if flagSuiteJSON {
			err = report.WriteJSON(out, rep)
		} else {
			err = report.WriteText(out, rep, report.ThemeByName(flagSuiteTheme))
		}
		if err != nil {
			return err
		}

		for _, o := range outcomes {
			if o.Err != nil {
				logger.Warn("case errored", zap.String("case", o.Case.Name), zap.Error(o.Err))
			}
		}

		switch s := rep.Summary; {
		case s.Errors > 0:
			return fmt.Errorf("%d of %d cases errored", s.Errors, s.Total)
		case !s.OK():
			return errVerdictFailed
		}
		return nil
	},
}

func init() {
	suiteCmd.Flags().IntVarP(&flagSuiteParallel, "parallel", "p", 0, "number of cases to review concurrently")
	suiteCmd.Flags().BoolVar(&flagSuiteJSON, "json", false, "print the report as JSON")
	suiteCmd.Flags().StringVar(&flagSuiteTheme, "theme", "dark", "color theme: dark, light")
	rootCmd.AddCommand(suiteCmd)
}
