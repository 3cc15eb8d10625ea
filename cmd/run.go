package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/petstore-e2e/internal/browser/manager"
	"github.com/xkilldash9x/petstore-e2e/internal/config"
	"github.com/xkilldash9x/petstore-e2e/internal/observability"
	"github.com/xkilldash9x/petstore-e2e/internal/petstore"
	"github.com/xkilldash9x/petstore-e2e/internal/reporting"
	"github.com/xkilldash9x/petstore-e2e/internal/scenario"
)

// Seams for tests.
var (
	launchers = manager.Launchers{}
	specsFor  = petstore.Specs
)

// ErrSpecsFailed is returned when at least one spec failed.
var ErrSpecsFailed = errors.New("specs failed")

// runFlags maps run flags onto configuration keys.
var runFlags = map[string]string{
	"browserName":      "browser.name",
	"headless":         "browser.headless",
	"base-url":         "runner.base_url",
	"selenium-address": "runner.selenium_address",
	"direct-connect":   "runner.direct_connect",
	"specs":            "runner.specs",
	"fail-fast":        "runner.fail_fast",
	"format":           "report.format",
	"output":           "report.output",
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the selected scenarios against the configured browser",
		Long: `Opens one browser session per scenario, runs its steps in order and
prints a summary. With --output a JUnit XML or JSON report is written as well.
The command exits non-zero when any scenario fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			mgr := manager.New(cfg, logger, launchers)
			// An unknown browser fails the run once, before any session opens.
			if _, err := mgr.Capability(); err != nil {
				return err
			}
			defer func() {
				if err := mgr.Shutdown(context.WithoutCancel(cmd.Context())); err != nil {
					logger.Warn("Error during browser shutdown.", zap.Error(err))
				}
			}()

			return runSuite(cmd.Context(), cmd.OutOrStdout(), cfg, mgr.Open, specsFor(cfg.Runner.BaseURL), logger)
		},
	}

	flags := runCmd.Flags()
	flags.String("browserName", "", "Browser to run: chrome, firefox or edge (default chrome)")
	flags.Bool("headless", false, "Run the browser headless")
	flags.String("base-url", "", "Storefront entry page")
	flags.String("selenium-address", "", "WebDriver hub address")
	flags.Bool("direct-connect", false, "Drive a local browser instead of a hub")
	flags.StringSlice("specs", nil, "Scenario name patterns to run, e.g. 'store.*'")
	flags.Bool("fail-fast", true, "Skip the remaining steps of a scenario after a failure")
	flags.StringP("format", "f", "", "Report format: junit or json")
	flags.StringP("output", "o", "", "Report file path, or 'stdout'")

	for name, key := range runFlags {
		// Lookup cannot fail for flags declared above.
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
	return runCmd
}

// runSuite runs specs, writes the configured report and prints a summary.
func runSuite(ctx context.Context, out io.Writer, cfg *config.Config, open scenario.Opener, specs []scenario.Spec, logger *zap.Logger) error {
	runner := scenario.NewRunner(scenario.Options{
		FailFast:    cfg.Runner.FailFast,
		StepTimeout: cfg.Runner.StepTimeout,
		Patterns:    cfg.Runner.Specs,
		Logger:      logger,
	})

	logger.Info("Starting run.", zap.String("browser", cfg.Browser.Name), zap.String("base_url", cfg.Runner.BaseURL), zap.Strings("specs", cfg.Runner.Specs))
	run, err := runner.Run(ctx, open, specs)
	if err != nil {
		return err
	}

	if cfg.Report.Output != "" {
		r, err := reporting.New(cfg.Report.Format, cfg.Report.Output)
		if err != nil {
			return err
		}
		if err := reporting.WriteAll(r, run); err != nil {
			return err
		}
		logger.Info("Report written.", zap.String("format", cfg.Report.Format), zap.String("output", cfg.Report.Output))
	}

	failed := printSummary(out, run)
	if failed > 0 {
		return fmt.Errorf("%d of %d %w", failed, len(run.Specs), ErrSpecsFailed)
	}
	return nil
}

// printSummary writes one line per spec and step and returns the number of failed specs.
func printSummary(out io.Writer, run scenario.RunResult) int {
	failed := 0
	for _, spec := range run.Specs {
		status := scenario.Passed
		if spec.Failed() {
			status = scenario.Failed
			failed++
		}
		fmt.Fprintf(out, "%-7s %s [%s] (%s)\n", status, spec.Name, spec.Browser, spec.Duration.Round(time.Millisecond))
		for _, step := range spec.Steps {
			fmt.Fprintf(out, "  %-7s %s\n", step.Status, step.Name)
			if step.Failure != "" {
				fmt.Fprintf(out, "          %s\n", step.Failure)
			}
		}
		if spec.Error != "" {
			fmt.Fprintf(out, "  error: %s\n", spec.Error)
		}
	}
	fmt.Fprintf(out, "\n%d specs, %d failed (run %s)\n", len(run.Specs), failed, run.ID)
	return failed
}
