/*
PURPOSE:
  High-level runner that orchestrates benchmarking.
  RunBenchmark measures one (engine, concurrency, duration) trial;
  Run loops engines -> concurrency levels and emits one record per trial.

REQUIREMENTS:
  User-specified:
  - Health check before every trial; unavailable targets are reported, not run.
  - Samples reduce to a RunResult returned to the caller.

  Implementation-discovered:
  - An unavailable engine is logged and skipped; other engines still run.
  - An interrupt yields a partial result for the trial in progress and stops
    the suite. An interrupt during the health check yields an empty partial
    trial, never an unavailable one.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/engine (adapter, prober, loadgen, client), internal/metrics,
    internal/output, internal/model

ERROR HANDLING:
  - RunBenchmark returns ErrUnavailable (wrapped) when the health check fails.
  - Run logs an unavailable engine and moves on to the next one (resilience).

USAGE:
  res, err := engine.RunBenchmark(ctx, engine.KindOllama, url, "llama3.1", prompts, 4, time.Minute)
  if errors.Is(err, engine.ErrUnavailable) { ... }

RELATED FILES:
  - internal/engine/loadgen.go
  - internal/metrics/aggregate.go
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/daryltucker/llamabench/internal/metrics"
	"github.com/daryltucker/llamabench/internal/model"
	"github.com/daryltucker/llamabench/internal/output"
)

// Options tunes a trial. The zero value uses the defaults.
type Options struct {
	RequestTimeout time.Duration
	HealthTimeout  time.Duration
	Observer       SampleObserver
}

// RunBenchmark health-checks the target, runs the load generator, and
// aggregates the samples. If ctx is cancelled mid-run the result covers the
// samples collected so far.
func RunBenchmark(ctx context.Context, kind Kind, baseURL, modelName string, prompts []string, concurrency int, duration time.Duration) (model.RunResult, error) {
	trial, err := runTrial(ctx, kind, baseURL, modelName, prompts, concurrency, duration, Options{})
	return trial.Result, err
}

func runTrial(ctx context.Context, kind Kind, baseURL, modelName string, prompts []string, concurrency int, duration time.Duration, opts Options) (model.Trial, error) {
	trial := model.Trial{
		RunID:       uuid.NewString(),
		Engine:      string(kind),
		BaseURL:     baseURL,
		Model:       modelName,
		Concurrency: concurrency,
		Duration:    duration.Seconds(),
		StartedAt:   time.Now(),
	}

	adapter, err := AdapterFor(kind)
	if err != nil {
		return trial, err
	}

	client := NewHTTPClient(concurrency)
	defer client.CloseIdleConnections()

	if err := HealthCheck(ctx, client, adapter, baseURL, opts.HealthTimeout); err != nil {
		// Interrupted while waiting on /health says nothing about the target.
		if ctx.Err() != nil {
			trial.Partial = true
			return trial, nil
		}
		return trial, err
	}

	prober := NewHTTPProber(client, adapter, baseURL, modelName, opts.RequestTimeout)
	start := time.Now()
	samples, err := Generate(ctx, prober, prompts, concurrency, duration, opts.Observer)
	if err != nil {
		return trial, err
	}

	trial.Elapsed = metrics.Round(time.Since(start).Seconds(), 3)
	trial.Partial = ctx.Err() != nil
	trial.Result = metrics.Aggregate(samples, duration)
	return trial, nil
}

// Target is one engine endpoint to benchmark.
type Target struct {
	Kind    Kind
	BaseURL string
	Model   string
}

// Suite describes a full benchmark run.
type Suite struct {
	Targets           []Target
	ConcurrencyLevels []int
	Duration          time.Duration
	Prompts           []string
	Options           Options

	// Preset and SystemInfo are stamped on every emitted trial.
	Preset     string
	SystemInfo *model.SystemInfo

	// Emit receives every finished trial, including unavailable ones.
	Emit func(model.Trial) error

	// OnTrialStart, when set, returns the observer for that trial (progress display).
	OnTrialStart func(t Target, concurrency int) (SampleObserver, func())
}

// Run executes the suite and returns the finished trials.
func Run(ctx context.Context, s Suite) ([]model.Trial, error) {
	var trials []model.Trial

	emit := func(t model.Trial) error {
		trials = append(trials, t)
		if s.Emit == nil {
			return nil
		}
		return s.Emit(t)
	}

	for _, target := range s.Targets {
	levels:
		for _, concurrency := range s.ConcurrencyLevels {
			if ctx.Err() != nil {
				output.Logger.Warn("Interrupted, skipping remaining trials")
				return trials, nil
			}

			output.Logger.Info("Starting trial",
				"engine", target.Kind,
				"url", target.BaseURL,
				"concurrency", concurrency,
				"duration", s.Duration,
			)

			opts := s.Options
			var done func()
			if s.OnTrialStart != nil {
				opts.Observer, done = s.OnTrialStart(target, concurrency)
			}
			trial, err := runTrial(ctx, target.Kind, target.BaseURL, target.Model, s.Prompts, concurrency, s.Duration, opts)
			if done != nil {
				done()
			}
			trial.Preset = s.Preset
			trial.SystemInfo = s.SystemInfo

			switch {
			case errors.Is(err, ErrUnavailable):
				output.Logger.Error("Target is not responding, skipping engine", "engine", target.Kind, "url", target.BaseURL, "error", err)
				trial.Error = err.Error()
				if err := emit(trial); err != nil {
					return trials, fmt.Errorf("failed to write trial: %w", err)
				}
				break levels
			case err != nil:
				return trials, fmt.Errorf("%s at concurrency %d: %w", target.Kind, concurrency, err)
			}

			r := trial.Result
			output.Logger.Info("Trial finished",
				"run_id", trial.RunID,
				"engine", target.Kind,
				"concurrency", concurrency,
				"ttft_p50", r.TTFTP50,
				"tokens_per_sec", r.TokensPerSec,
				"successful", r.SuccessfulCount,
				"failed", r.FailedCount,
				"partial", trial.Partial,
			)
			if err := emit(trial); err != nil {
				return trials, fmt.Errorf("failed to write trial: %w", err)
			}
		}
	}

	return trials, nil
}
