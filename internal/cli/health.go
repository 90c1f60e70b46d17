/*
PURPOSE:
  Defines the 'health' subcommand.
  Helps debug connectivity and model discovery before a full run.

REQUIREMENTS:
  User-specified:
  - List available models.

  Implementation-discovered:
  - Uses the same health check as `run`, so a green result here means the
    engine will not be skipped.
  - Model discovery is best effort; llama.cpp builds without /v1/models still pass.

ARCHITECTURE INTEGRATION:
  - Calls: engine.HealthCheck, engine.ListModels

ERROR HANDLING:
  - Prints per-engine status; returns an error if any engine is unavailable.

USAGE:
  llamabench health --engines ollama,vllm

RELATED FILES:
  - internal/engine/client.go
*/

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daryltucker/llamabench/internal/engine"
)

var (
	healthEngines []string
	healthBaseURL string
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that target engines are reachable and list their models",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("engines") {
			if err := cfg.SelectEngines(healthEngines); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("base-url") {
			if len(cfg.Engines) != 1 {
				return fmt.Errorf("--base-url needs exactly one engine, got %d (use --engines)", len(cfg.Engines))
			}
			cfg.Engines[0].BaseURL = healthBaseURL
		}

		targets, err := cfg.Targets()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		client := engine.NewHTTPClient(1)
		unavailable := 0

		for _, t := range targets {
			adapter, err := engine.AdapterFor(t.Kind)
			if err != nil {
				return err
			}
			if err := engine.HealthCheck(cmd.Context(), client, adapter, t.BaseURL, cfg.HealthTimeout); err != nil {
				fmt.Fprintf(out, "%-10s %-28s UNAVAILABLE  %v\n", t.Kind, t.BaseURL, err)
				unavailable++
				continue
			}

			models, err := engine.ListModels(cmd.Context(), client, t.Kind, t.BaseURL)
			switch {
			case err != nil:
				fmt.Fprintf(out, "%-10s %-28s OK\n", t.Kind, t.BaseURL)
			case len(models) == 0:
				fmt.Fprintf(out, "%-10s %-28s OK           (no models reported)\n", t.Kind, t.BaseURL)
			default:
				fmt.Fprintf(out, "%-10s %-28s OK           models: %s\n", t.Kind, t.BaseURL, strings.Join(models, ", "))
			}
		}

		if unavailable > 0 {
			return fmt.Errorf("%d of %d engines unavailable", unavailable, len(targets))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().StringSliceVarP(&healthEngines, "engines", "e", nil, "Comma-separated engines to check")
	healthCmd.Flags().StringVar(&healthBaseURL, "base-url", "", "Engine base URL (requires a single engine)")
}
