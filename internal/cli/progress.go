package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/daryltucker/llamabench/internal/engine"
	"github.com/daryltucker/llamabench/internal/model"
)

// newProgress returns an engine.Suite.OnTrialStart hook that shows a spinner
// counting generated tokens for the trial in progress.
func newProgress(w io.Writer, duration time.Duration) func(engine.Target, int) (engine.SampleObserver, func()) {
	return func(t engine.Target, concurrency int) (engine.SampleObserver, func()) {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(fmt.Sprintf("%s c=%d (%s)", t.Kind, concurrency, duration)),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("tokens"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionClearOnFinish(),
		)

		observe := func(_ int, s model.Sample) {
			if s.Outcome.OK() {
				_ = bar.Add(s.TokenCount)
			}
		}
		done := func() {
			_ = bar.Finish()
		}
		return observe, done
	}
}
