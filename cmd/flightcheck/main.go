package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/polzovatel/flightcheck/internal/config"
)

var rootCmd = &cobra.Command{
	Use:          "flightcheck",
	Short:        "Drive flight searches in a real browser and check the results",
	Long:         "Runs scripted round-trip searches against the flight site, verifies filters and prices, and analyses extracted flights.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "config/config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().String("format", "yaml", "Report format: yaml or json")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	path, _ := rootCmd.PersistentFlags().GetString("config")
	return config.Load(path)
}

// printReport writes v in the --format the user chose.
func printReport(w io.Writer, v any) error {
	format, _ := rootCmd.PersistentFlags().GetString("format")
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
