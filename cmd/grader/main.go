// Command grader computes NYC restaurant letter grades from the DOHMH
// inspection dataset and publishes them to the configured sinks.
package main

import (
	"log/slog"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/restaurant-grades-etl/internal/config"
	"github.com/couchcryptid/restaurant-grades-etl/internal/observability"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "grader",
	Short:         "NYC restaurant inspection grading pipeline",
	Long:          "Fetches DOHMH inspection results, infers each establishment's official letter grade and publishes restaurant and violation tables.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c
		logger = observability.NewLogger(cfg)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("grader failed", "error", err)
		os.Exit(1)
	}
}
