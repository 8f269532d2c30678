// Package export generates one document per ledger entity and persists
// it to the Document Store, resiliently: completed work is skipped,
// rate limits back off, and a per-run quota suspends the batch with a
// durable cursor instead of abandoning it.
package export

import (
	"context"
	"path"
	"time"

	"github.com/rs/zerolog"

	"github.com/careops/payledger/internal/config"
	"github.com/careops/payledger/internal/ledger"
	"github.com/careops/payledger/internal/model"
	"github.com/careops/payledger/internal/store"
)

// Runner drives one export run over a single bucket's ledger. All
// collaborators are injected; the runner holds no ambient state.
type Runner struct {
	Tab   store.Tabular
	Docs  store.Documents
	State *store.RunState
	Log   zerolog.Logger
	Admin *config.Admin

	// Quota bounds entities processed per invocation; 0 means no bound.
	Quota int

	Pause      time.Duration
	BatchPause time.Duration
	Backoff    Backoff
	Sleep      func(time.Duration)
	Now        func() time.Time
}

// NewRunner wires a runner with production pacing.
func NewRunner(tab store.Tabular, docs store.Documents, state *store.RunState,
	log zerolog.Logger, admin *config.Admin) *Runner {
	return &Runner{
		Tab:        tab,
		Docs:       docs,
		State:      state,
		Log:        log,
		Admin:      admin,
		Pause:      DefaultEntityPause,
		BatchPause: DefaultBatchPause,
		Backoff:    NewBackoff(),
		Sleep:      time.Sleep,
		Now:        time.Now,
	}
}

// Suspension is the explicit suspend-return value: the runner persisted
// its cursor and expects an external scheduler to re-invoke it after
// ResumeAfter. The runner never self-schedules.
type Suspension struct {
	RunID       string
	Bucket      string
	Kind        model.Kind
	NextIndex   int
	ResumeAfter time.Duration
}

// Result reports one invocation segment. Suspension is nil when the
// entity list was exhausted.
type Result struct {
	Summary    model.ExportSummary
	Suspension *Suspension
}

// Run processes the bucket's entity list from the persisted cursor.
// The cursor advances by exactly one after every entity, success or
// logged failure, and is cleared when the list is exhausted.
func (r *Runner) Run(ctx context.Context, runID, bucket string, kind model.Kind) (*Result, error) {
	start := r.Now()
	kindName := kind.String()

	groups, err := ledger.ReadGroups(ctx, r.Tab, bucket, kind)
	if err != nil {
		return nil, err
	}

	cursor, _, err := r.State.Cursor(ctx, runID, bucket, kindName)
	if err != nil {
		return nil, err
	}
	r.Log.Info().
		Str("run_id", runID).
		Str("bucket", bucket).
		Str("kind", kindName).
		Int("cursor", cursor).
		Int("entities", len(groups)).
		Msg("export resume point")

	folder := path.Join(r.Admin.OutputRoot, r.Admin.PeriodFolder(), bucket, kind.DocFolder())
	period := r.Admin.PeriodLabel()

	summary := model.ExportSummary{RunID: runID, Bucket: bucket, Kind: kind}
	processed := 0

	for i := cursor; i < len(groups); i++ {
		g := groups[i]
		outcome, notes, err := r.exportEntity(ctx, folder, period, kind, g)

		if auditErr := recordOutcome(ctx, r.Tab, runID, r.Now(),
			g.Name, bucket, DocName(g.Name), outcome, notes); auditErr != nil {
			return nil, auditErr
		}
		if err != nil {
			// Fatal for the run: cursor and completed documents stay
			// intact, a fresh invocation resumes at this entity.
			return nil, err
		}

		switch outcome {
		case model.OutcomeCreated:
			summary.Created++
		case model.OutcomeSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}

		if err := r.State.SetCursor(ctx, runID, bucket, kindName, i+1); err != nil {
			return nil, err
		}
		processed++
		r.Sleep(r.Pause)

		if r.Quota > 0 && processed >= r.Quota && i+1 < len(groups) {
			summary.Suspended = true
			summary.NextIndex = i + 1
			summary.Duration = r.Now().Sub(start)
			r.Log.Info().
				Int("next_index", i+1).
				Int("processed", processed).
				Msg("quota reached, suspending export run")
			return &Result{
				Summary: summary,
				Suspension: &Suspension{
					RunID:       runID,
					Bucket:      bucket,
					Kind:        kind,
					NextIndex:   i + 1,
					ResumeAfter: DefaultResumeDelay,
				},
			}, nil
		}
	}

	if err := r.State.ClearCursor(ctx, runID, bucket, kindName); err != nil {
		return nil, err
	}
	summary.Duration = r.Now().Sub(start)
	r.Log.Info().
		Int("created", summary.Created).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("export run complete")
	return &Result{Summary: summary}, nil
}

// exportEntity generates and persists one entity's document.
// Idempotency: an existing non-discarded document of the same name
// short-circuits to SKIPPED before anything is rendered.
func (r *Runner) exportEntity(ctx context.Context, folder, period string,
	kind model.Kind, g model.EntityGroup) (model.Outcome, string, error) {

	name := DocName(g.Name)

	exists, err := r.Docs.Exists(ctx, folder, name)
	if err != nil {
		if store.IsRateLimited(err) {
			// The export surface itself is throttled: pause the whole
			// batch, then propagate rather than retry.
			r.Log.Warn().Str("entity", g.Name).Msg("export rate limited, pausing batch")
			r.Sleep(r.BatchPause)
			return model.OutcomeFailed, err.Error(), err
		}
		r.Log.Error().Err(err).Str("entity", g.Name).Msg("entity export failed")
		return model.OutcomeFailed, err.Error(), nil
	}
	if exists {
		return model.OutcomeSkipped, "document already existed", nil
	}

	doc := BuildDocument(kind, period, g)
	payload := Render(kind, doc)

	writeErr := r.Backoff.Do(func() error {
		return r.Docs.Write(ctx, folder, name, payload)
	})
	if writeErr != nil {
		if store.IsRateLimited(writeErr) {
			// Backoff ceiling exhausted: fatal for this run.
			return model.OutcomeFailed, writeErr.Error(), writeErr
		}
		r.Log.Error().Err(writeErr).Str("entity", g.Name).Msg("entity export failed")
		return model.OutcomeFailed, writeErr.Error(), nil
	}

	return model.OutcomeCreated, "", nil
}
