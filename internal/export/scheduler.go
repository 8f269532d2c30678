package export

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/careops/payledger/internal/model"
)

// Scheduler re-invokes a suspended run after its resume delay, playing
// the role the platform's time-based triggers had in the original
// system. It is the only component allowed to restart a run.
type Scheduler struct {
	Log   zerolog.Logger
	Sleep func(time.Duration)
}

func NewScheduler(log zerolog.Logger) *Scheduler {
	return &Scheduler{Log: log, Sleep: time.Sleep}
}

// Drive runs the export to completion, re-invoking the runner every
// time it suspends. Summaries from all segments are merged.
func (s *Scheduler) Drive(ctx context.Context, r *Runner, runID, bucket string, kind model.Kind) (model.ExportSummary, error) {
	total := model.ExportSummary{RunID: runID, Bucket: bucket, Kind: kind}
	for {
		res, err := r.Run(ctx, runID, bucket, kind)
		if err != nil {
			return total, err
		}
		total.Created += res.Summary.Created
		total.Skipped += res.Summary.Skipped
		total.Failed += res.Summary.Failed
		total.Duration += res.Summary.Duration
		if res.Suspension == nil {
			return total, nil
		}
		s.Log.Info().
			Int("next_index", res.Suspension.NextIndex).
			Dur("resume_after", res.Suspension.ResumeAfter).
			Msg("run suspended, scheduling continuation")
		s.Sleep(res.Suspension.ResumeAfter)
	}
}
