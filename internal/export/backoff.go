package export

import (
	"fmt"
	"time"

	"github.com/careops/payledger/internal/store"
)

// Defaults mirror the throttling constants the production exporter runs
// with: a short doubling retry for individual store writes, a long
// whole-batch pause when the export call itself is throttled, and a
// fixed courtesy pause between entities.
const (
	DefaultBackoffStart = time.Second
	DefaultMaxAttempts  = 5
	DefaultBatchPause   = 3 * time.Minute
	DefaultEntityPause  = 2500 * time.Millisecond
	DefaultResumeDelay  = time.Minute
)

// Backoff retries rate-limited operations with exponentially growing
// delays. Any non-throttling error propagates immediately; exhausting
// the attempt ceiling is fatal for the run.
type Backoff struct {
	Start       time.Duration
	MaxAttempts int
	Sleep       func(time.Duration)
}

// NewBackoff returns the production policy.
func NewBackoff() Backoff {
	return Backoff{Start: DefaultBackoffStart, MaxAttempts: DefaultMaxAttempts, Sleep: time.Sleep}
}

// Do runs fn, sleeping and retrying on rate-limit signals.
func (b Backoff) Do(fn func() error) error {
	delay := b.Start
	var err error
	for attempt := 0; attempt < b.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !store.IsRateLimited(err) {
			return err
		}
		b.Sleep(delay)
		delay *= 2
	}
	return fmt.Errorf("repeated rate limits after %d attempts: %w", b.MaxAttempts, err)
}
