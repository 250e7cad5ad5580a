package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/restaurant-grades-etl/internal/observability"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single grading pass and publish it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		p, out, err := buildPipeline(ctx, cfg, observability.NewMetrics(), logger)
		if err != nil {
			return err
		}
		defer out.close(logger)

		if _, err := p.RunOnce(ctx); err != nil {
			return eris.Wrap(err, "grading run")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
