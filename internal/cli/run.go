/*
PURPOSE:
  Defines the 'run' subcommand.
  Executes the benchmark suite: every engine at every concurrency level.

REQUIREMENTS:
  User-specified:
  - Run the benchmarks.
  - Specific flags for overrides.

  Implementation-discovered:
  - Order: defaults -> config file -> --preset -> explicit flags.
  - Records go to stdout, logs and the progress display to stderr.
  - Ctrl-C finishes the current trial as partial and stops.
  - Host details are collected once and stamped on every record.
  - A model outside the supported list is warned about, not rejected.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Run()
  - Uses: internal/config, internal/output, internal/sysinfo

ERROR HANDLING:
  - Returns error if config load/validation fails.
  - Returns error if no engine was available at all.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Only flags the user actually set override the config (Changed()).

USAGE:
  llamabench run --engines ollama --concurrency 1,4,8 --duration 30s

RELATED FILES:
  - internal/cli/root.go
  - internal/cli/progress.go
*/

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/daryltucker/llamabench/internal/config"
	"github.com/daryltucker/llamabench/internal/engine"
	"github.com/daryltucker/llamabench/internal/model"
	"github.com/daryltucker/llamabench/internal/output"
	"github.com/daryltucker/llamabench/internal/sysinfo"
)

var (
	runEngines        []string
	runConcurrency    []int
	runDuration       time.Duration
	runPreset         string
	runPrompts        []string
	runPromptFile     string
	runPromptStyle    string
	runModel          string
	runBaseURL        string
	runFormat         string
	runRequestTimeout time.Duration
	runNoProgress     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark suite",
	Long: `Executes the benchmark suite against one or more inference engines.
For every engine and every concurrency level:
1. Health Check: the engine's health endpoint must answer 200, otherwise the engine is skipped.
2. Load: N workers send requests back-to-back for the configured duration.
3. Aggregation: TTFT percentiles, tokens/sec and error rate are computed.

One record per trial is written to stdout (JSON Lines by default).`,
	Example: `  # Benchmark a local ollama with the chatbot preset
  llamabench run --engines ollama --preset chatbot

  # llama.cpp on another host, three concurrency levels
  llamabench run --engines llama.cpp --base-url http://gpu-box:8080 --concurrency 1,4,16

  # Against the bundled mock server
  llamabench mock-server &
  llamabench run --engines vllm --base-url http://localhost:8080 --duration 10s --format yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applyRunFlags(cmd, cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		for _, name := range cfg.UnsupportedModels() {
			output.Logger.Warn("Model is not a supported model id, sending it unchanged",
				"model", name, "supported", strings.Join(config.ModelIDs(), ", "))
		}

		targets, err := cfg.Targets()
		if err != nil {
			return err
		}
		prompts, err := cfg.ResolvedPrompts()
		if err != nil {
			return err
		}

		writer, err := output.NewRecordWriter(cfg.Format, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer writer.Close()

		info := sysinfo.Collect(cmd.Context())
		suite := engine.Suite{
			Preset:            cfg.Preset,
			SystemInfo:        &info,
			Targets:           targets,
			ConcurrencyLevels: cfg.ConcurrencyLevels,
			Duration:          cfg.Duration,
			Prompts:           prompts,
			Options: engine.Options{
				RequestTimeout: cfg.RequestTimeout,
				HealthTimeout:  cfg.HealthTimeout,
			},
			Emit: writer.Write,
		}
		if !runNoProgress {
			suite.OnTrialStart = newProgress(cmd.ErrOrStderr(), cfg.Duration)
		}

		output.Logger.Info("Starting benchmark",
			"engines", len(targets),
			"levels", cfg.ConcurrencyLevels,
			"duration", cfg.Duration,
			"prompts", len(prompts),
			"preset", cfg.Preset,
			"cpus", info.CPUCount,
			"memory_gb", info.MemoryGB,
			"gpu", info.GPUAvailable,
		)

		trials, err := engine.Run(cmd.Context(), suite)
		if err != nil {
			return err
		}
		return checkTrials(trials)
	},
}

// applyRunFlags overlays explicitly set flags on cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("preset") {
		if err := cfg.ApplyPreset(runPreset); err != nil {
			return err
		}
	}
	if flags.Changed("engines") {
		if err := cfg.SelectEngines(runEngines); err != nil {
			return err
		}
	}
	if flags.Changed("base-url") {
		if len(cfg.Engines) != 1 {
			return fmt.Errorf("--base-url needs exactly one engine, got %d (use --engines)", len(cfg.Engines))
		}
		cfg.Engines[0].BaseURL = runBaseURL
	}
	if flags.Changed("model") {
		for i := range cfg.Engines {
			cfg.Engines[i].Model = runModel
		}
	}
	if flags.Changed("concurrency") {
		cfg.ConcurrencyLevels = runConcurrency
	}
	if flags.Changed("duration") {
		cfg.Duration = runDuration
	}
	if flags.Changed("request-timeout") {
		cfg.RequestTimeout = runRequestTimeout
	}
	if flags.Changed("prompt-style") {
		cfg.PromptStyle = runPromptStyle
		cfg.Prompts = nil
	}
	if flags.Changed("prompt") {
		cfg.Prompts = runPrompts
	}
	if runPromptFile != "" {
		data, err := os.ReadFile(runPromptFile)
		if err != nil {
			return fmt.Errorf("failed to read prompt file: %w", err)
		}
		prompt := strings.TrimSpace(string(data))
		if prompt == "" {
			return fmt.Errorf("prompt file %s is empty", runPromptFile)
		}
		cfg.Prompts = []string{prompt}
	}
	if flags.Changed("format") {
		cfg.Format = runFormat
	}
	return nil
}

// checkTrials fails the command when every engine was unavailable.
func checkTrials(trials []model.Trial) error {
	if len(trials) == 0 {
		return nil
	}
	for _, t := range trials {
		if t.Error == "" {
			return nil
		}
	}
	return errors.New("no engine was available")
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringSliceVarP(&runEngines, "engines", "e", nil, "Comma-separated engines to benchmark (llama.cpp, ollama, vllm)")
	f.IntSliceVarP(&runConcurrency, "concurrency", "c", nil, "Comma-separated concurrency levels")
	f.DurationVarP(&runDuration, "duration", "d", 0, "Duration of each trial (e.g. 60s)")
	f.StringVar(&runPreset, "preset", "", "Workload preset: "+strings.Join(config.PresetNames(), ", "))
	f.StringArrayVar(&runPrompts, "prompt", nil, "Prompt to send (repeatable; overrides prompt style)")
	f.StringVarP(&runPromptFile, "prompt-file", "p", "", "Path to a text file containing the prompt (overrides config)")
	f.StringVar(&runPromptStyle, "prompt-style", "", "Built-in prompt set: "+strings.Join(config.PromptStyles(), ", "))
	f.StringVarP(&runModel, "model", "m", "", "Model id ("+strings.Join(config.ModelIDs(), ", ")+") or an engine-specific name")
	f.StringVar(&runBaseURL, "base-url", "", "Engine base URL (requires a single engine)")
	f.StringVarP(&runFormat, "format", "f", "", "Record format: "+strings.Join(output.Formats, ", "))
	f.DurationVar(&runRequestTimeout, "request-timeout", 0, "Per-request timeout (default 30s)")
	f.BoolVar(&runNoProgress, "no-progress", false, "Disable the progress display")
}
