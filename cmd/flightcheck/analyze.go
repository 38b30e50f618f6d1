package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/polzovatel/flightcheck/internal/flight"
	"github.com/polzovatel/flightcheck/internal/logging"
	"github.com/polzovatel/flightcheck/internal/scenario"
	"github.com/polzovatel/flightcheck/internal/storage"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [csv]",
	Short: "Analyse saved flights and render charts",
	Long:  "Reads flights from a CSV written by the analysis scenario, or from Postgres with --run, prints per-airline statistics and cost-effective flights, and renders the price charts.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().String("charts", "", "Directory for chart PNGs (default from config)")
	analyzeCmd.Flags().String("run", "", "Analyse the run with this ID from Postgres instead of a CSV")
}

// runRecords reads stored runs.
type runRecords interface {
	Records(ctx context.Context, id uuid.UUID) ([]flight.Record, error)
}

func readRun(ctx context.Context, db runRecords, id string) ([]flight.Record, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("run id %q: %w", id, err)
	}
	recs, err := db.Records(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return recs, nil
}

func readCSV(path string) ([]flight.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := storage.ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	runID, _ := cmd.Flags().GetString("run")
	if (runID == "") == (len(args) == 0) {
		return errors.New("give either a CSV path or --run <id>")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.New(logging.Options{Level: cfg.Logging.Level, Dir: cfg.Paths.Logs, File: cfg.Logging.File})
	if err != nil {
		return err
	}
	defer closeLog()

	var (
		recs   []flight.Record
		source string
	)
	if runID != "" {
		if cfg.Storage.PostgresDSN == "" {
			return errors.New("--run needs storage.postgres_dsn or FLIGHTCHECK_POSTGRES_DSN")
		}
		pg, err := storage.NewPostgresStore(cmd.Context(), cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		recs, err = readRun(cmd.Context(), pg, runID)
		if err != nil {
			return err
		}
		source = "run " + runID
	} else {
		if recs, err = readCSV(args[0]); err != nil {
			return err
		}
		source = args[0]
	}
	if len(recs) == 0 {
		return fmt.Errorf("%s: no flights", source)
	}

	dir, _ := cmd.Flags().GetString("charts")
	if dir == "" {
		dir = cfg.Paths.Charts
	}
	a := scenario.Analyze(recs, dir, logger)
	return printReport(cmd.OutOrStdout(), a)
}
