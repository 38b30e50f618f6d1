package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/polzovatel/flightcheck/internal/browser"
	"github.com/polzovatel/flightcheck/internal/config"
	"github.com/polzovatel/flightcheck/internal/diag"
	"github.com/polzovatel/flightcheck/internal/logging"
	"github.com/polzovatel/flightcheck/internal/pages"
	"github.com/polzovatel/flightcheck/internal/scenario"
	"github.com/polzovatel/flightcheck/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run <scenario>",
	Short: "Run one scenario in a fresh browser",
	Long:  "Launches the browser, runs the named scenario and prints what it checked. See `flightcheck scenarios` for names.",
	Args:  cobra.ExactArgs(1),
	RunE:  runScenario,
}

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List the available scenarios",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, s := range scenario.All() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", s.Name, s.Description)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd, scenariosCmd)
	runCmd.Flags().Bool("headed", false, "Show the browser window")
	runCmd.Flags().Bool("page-summaries", false, "Write a JSON page summary next to every screenshot")
	runCmd.Flags().Bool("no-db", false, "Skip the Postgres save even when a DSN is configured")
}

type checkView struct {
	Name     string `json:"name" yaml:"name"`
	Passed   bool   `json:"passed" yaml:"passed"`
	Required bool   `json:"required" yaml:"required"`
	Detail   string `json:"detail" yaml:"detail"`
}

type runView struct {
	Run      string      `json:"run" yaml:"run"`
	Scenario string      `json:"scenario" yaml:"scenario"`
	Elapsed  string      `json:"elapsed" yaml:"elapsed"`
	Query    pages.Query `json:"query" yaml:"query"`
	Flights  int         `json:"flights" yaml:"flights"`
	Checks   []checkView `json:"checks,omitempty" yaml:"checks,omitempty"`
	Records  int         `json:"records,omitempty" yaml:"records,omitempty"`
	CSV      string      `json:"csv,omitempty" yaml:"csv,omitempty"`
	Charts   []string    `json:"charts,omitempty" yaml:"charts,omitempty"`
	Saved    int         `json:"saved,omitempty" yaml:"saved,omitempty"`
	Error    string      `json:"error,omitempty" yaml:"error,omitempty"`
}

func newRunView(out scenario.Outcome, err error) runView {
	v := runView{
		Run:      out.RunID.String(),
		Scenario: out.Scenario,
		Elapsed:  out.Elapsed.Round(time.Millisecond).String(),
		Query:    out.Query,
		Flights:  out.Flights,
		Records:  len(out.Records),
		CSV:      out.CSVPath,
		Charts:   out.Charts,
		Saved:    out.Saved,
	}
	for _, c := range out.Checks {
		v.Checks = append(v.Checks, checkView(c))
	}
	if err != nil {
		v.Error = err.Error()
	}
	return v
}

// browserOptions maps the loaded config to launcher options. --headed wins
// over both the file and FLIGHTCHECK_HEADLESS.
func browserOptions(cfg config.Config, headed bool) browser.Options {
	b := cfg.Browser
	return browser.Options{
		Browser:        b.Name,
		Headless:       b.Headless && !headed,
		Width:          b.Width,
		Height:         b.Height,
		ActionTimeout:  b.ActionTimeout,
		NavTimeout:     b.NavTimeout,
		IgnoreHTTPSErr: b.IgnoreHTTPSErr,
	}
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	headed, _ := cmd.Flags().GetBool("headed")

	logger, closeLog, err := logging.New(logging.Options{Level: cfg.Logging.Level, Dir: cfg.Paths.Logs, File: cfg.Logging.File})
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	launcher, err := browser.NewLauncher(ctx, browserOptions(cfg, headed))
	if err != nil {
		logger.Error().Err(err).Msg("browser init")
		return err
	}
	defer launcher.Close()

	var db scenario.RunSaver
	if noDB, _ := cmd.Flags().GetBool("no-db"); !noDB && cfg.Storage.PostgresDSN != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			logger.Warn().Err(err).Msg("postgres unavailable, runs will not be saved")
		} else {
			defer pg.Close()
			db = pg
		}
	}

	capture := diag.NewRecorder(cfg.Paths.Screenshots, logger)
	capture.Summaries, _ = cmd.Flags().GetBool("page-summaries")
	open := func(ctx context.Context) (scenario.Session, error) {
		return launcher.NewSession(ctx)
	}
	runner := scenario.NewRunner(cfg, open, capture, storage.NewCSVStore(cfg.Paths.Reports, logger), db, logger)

	out, runErr := runner.Run(ctx, args[0])
	if err := printReport(cmd.OutOrStdout(), newRunView(out, runErr)); err != nil {
		return err
	}
	return runErr
}
