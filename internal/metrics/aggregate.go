/*
PURPOSE:
  Reduces the raw Samples of one trial into a RunResult.
  Pure functions only: no I/O, inputs are never mutated.

REQUIREMENTS:
  User-specified:
  - p50/p95/p99 TTFT by linear interpolation between order statistics.
  - Throughput normalized by the configured duration, not elapsed time.
  - Error rate = failed / total, with 0/0 defined as 0.

  Implementation-discovered:
  - A trial with no successes must produce zeros, never NaN.
  - Error distribution by outcome label is useful for diagnosing targets.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (RunBenchmark)
  - Uses: internal/model

ERROR HANDLING:
  - None. Degenerate input maps to zero values.

USAGE:
  res := metrics.Aggregate(samples, 60*time.Second)

RELATED FILES:
  - internal/model/types.go
*/

package metrics

import (
	"math"
	"slices"
	"time"

	"github.com/daryltucker/llamabench/internal/model"
)

// Aggregate computes the RunResult for samples collected over duration.
func Aggregate(samples []model.Sample, duration time.Duration) model.RunResult {
	var res model.RunResult
	ttfts := make([]float64, 0, len(samples))

	for _, s := range samples {
		if !s.Outcome.OK() {
			res.FailedCount++
			if res.ErrorsByType == nil {
				res.ErrorsByType = make(map[string]int)
			}
			res.ErrorsByType[s.Outcome.Label()]++
			continue
		}
		res.SuccessfulCount++
		res.TotalTokens += s.TokenCount
		if s.TTFT != nil {
			ttfts = append(ttfts, s.TTFT.Seconds())
		} else {
			ttfts = append(ttfts, s.TotalTime.Seconds())
		}
	}

	res.ErrorRate = ErrorRate(res.SuccessfulCount, res.FailedCount)
	if res.SuccessfulCount == 0 {
		return res
	}

	slices.Sort(ttfts)
	res.TTFTP50 = Round(Percentile(ttfts, 50), 3)
	res.TTFTP95 = Round(Percentile(ttfts, 95), 3)
	res.TTFTP99 = Round(Percentile(ttfts, 99), 3)
	res.TokensPerSec = Round(TokensPerSec(res.TotalTokens, duration), 1)

	return res
}

// Percentile returns the p-th percentile (0..100) of an ascending slice,
// interpolating linearly between the two nearest order statistics.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	k := float64(n-1) * p / 100
	f := int(math.Floor(k))
	if f < 0 {
		return sorted[0]
	}
	if f >= n-1 {
		return sorted[n-1]
	}
	c := min(f+1, n-1)
	return sorted[f] + (k-float64(f))*(sorted[c]-sorted[f])
}

// TokensPerSec normalizes a token total by the configured run duration.
func TokensPerSec(totalTokens int, duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}
	return float64(totalTokens) / duration.Seconds()
}

// ErrorRate is failed/(successful+failed), 0 when there were no samples.
func ErrorRate(successful, failed int) float64 {
	total := successful + failed
	if total == 0 {
		return 0
	}
	return float64(failed) / float64(total)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
