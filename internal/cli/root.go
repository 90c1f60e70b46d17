/*
PURPOSE:
  Defines the root Cobra command for the llamabench CLI.
  Handles global flags and logger initialization.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go; the context carries
    signal cancellation into long runs.
  - The logger must be configured before any subcommand logs, so it happens
    in PersistentPreRunE.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/llamabench/main.go
  - Calls: Child commands (run, health, list-engines, list-presets, list-models, mock-server)

ERROR HANDLING:
  - Returns error to main.go for exit code handling.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Keep Run logic in subcommands.

USAGE:
  Called by main.go.

SELF-HEALING INSTRUCTIONS:
  - If adding new global flags, add them to init().

RELATED FILES:
  - cmd/llamabench/main.go
*/

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/daryltucker/llamabench/internal/config"
	"github.com/daryltucker/llamabench/internal/output"
)

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile   string
	logLevel  string
	logFormat string

	rootCmd = &cobra.Command{
		Use:   "llamabench",
		Short: "Latency and throughput benchmarks for local LLM inference engines",
		Long: `llamabench drives concurrent load against llama.cpp, ollama and vLLM servers
and reports time-to-first-token percentiles, throughput and error rates.
Use 'run --help' for benchmark options.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return output.Configure(logLevel, logFormat, cmd.ErrOrStderr())
		},
	}
)

// Execute executes the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig loads the --config file (or the default search path).
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./llamabench.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
}
