/*
PURPOSE:
  Drives a fixed number of concurrent workers against a target for a fixed
  wall-clock window and collects every Sample they produce.

REQUIREMENTS:
  User-specified:
  - `concurrency` workers, each issuing requests back-to-back.
  - Each worker cycles the prompt list with its own counter.
  - The deadline is checked at loop top only; in-flight requests finish.
  - Request failures never abort the run.

  Implementation-discovered:
  - Overrun bound: wall time <= duration + one request timeout.
  - Caller cancellation stops new requests; the Samples collected so far are
    returned so the caller can build a partial result.
  - In-flight requests are detached from caller cancellation so an interrupt
    does not turn them into spurious protocol errors.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go
  - Uses: Prober (HTTPProber in production, fakes in tests)

ERROR HANDLING:
  - Generate only errors on invalid arguments.

IMPLEMENTATION RULES:
  - The only shared mutable state is the sample sink (mutex-guarded slice).
  - The start time is fixed before any worker launches.

USAGE:
  samples, err := engine.Generate(ctx, prober, prompts, 4, 60*time.Second, nil)

RELATED FILES:
  - internal/engine/prober.go
  - internal/metrics/aggregate.go
*/

package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/daryltucker/llamabench/internal/model"
)

// SampleObserver is notified after each Sample is recorded. It is called
// concurrently from worker goroutines.
type SampleObserver func(workerID int, s model.Sample)

// sampleSink is an append-only, concurrency-safe Sample collection.
type sampleSink struct {
	mu      sync.Mutex
	samples []model.Sample
}

func (s *sampleSink) add(sample model.Sample) {
	s.mu.Lock()
	s.samples = append(s.samples, sample)
	s.mu.Unlock()
}

func (s *sampleSink) snapshot() []model.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Generate runs concurrency workers until duration has elapsed (or ctx is
// cancelled) and returns every Sample produced. Sample order is unspecified.
func Generate(ctx context.Context, prober Prober, prompts []string, concurrency int, duration time.Duration, observe SampleObserver) ([]model.Sample, error) {
	if len(prompts) == 0 {
		return nil, errors.New("at least one prompt is required")
	}
	if concurrency < 1 {
		return nil, errors.New("concurrency must be >= 1")
	}
	if duration <= 0 {
		return nil, errors.New("duration must be positive")
	}

	sink := &sampleSink{}
	deadline := time.Now().Add(duration)
	requestCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		cfg := model.WorkerConfig{WorkerID: i, Prompts: prompts, Deadline: deadline}
		wg.Add(1)
		go func() {
			defer wg.Done()
			runWorker(ctx, requestCtx, cfg, prober, sink, observe)
		}()
	}
	wg.Wait()

	return sink.snapshot(), nil
}

// runWorker is the loop of a single worker. Requests from one worker never overlap.
func runWorker(ctx, requestCtx context.Context, cfg model.WorkerConfig, prober Prober, sink *sampleSink, observe SampleObserver) {
	for idx := 0; ; idx++ {
		// Stop before starting a new request; never interrupt one in flight.
		if ctx.Err() != nil || !time.Now().Before(cfg.Deadline) {
			return
		}

		sample := prober.Probe(requestCtx, cfg.Prompts[idx%len(cfg.Prompts)])
		sink.add(sample)
		if observe != nil {
			observe(cfg.WorkerID, sample)
		}
	}
}
