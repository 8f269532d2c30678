package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/careops/payledger/internal/config"
	"github.com/careops/payledger/internal/export"
	"github.com/careops/payledger/internal/ledger"
	"github.com/careops/payledger/internal/model"
	"github.com/careops/payledger/internal/normalize"
	"github.com/careops/payledger/internal/reconcile"
	"github.com/careops/payledger/internal/store"
)

// DraftSummary reports one drafting run, including the completion
// reconciliation of expected entities against audited attempts.
type DraftSummary struct {
	RunID   string
	Bucket  string
	Kind    model.Kind
	Created int
	Skipped int
	Failed  int
	Report  reconcile.CompletionReport
}

// Drafter builds one draft per exported entity of a run.
type Drafter struct {
	Tab   store.Tabular
	Mail  Mailer
	Log   zerolog.Logger
	Admin *config.Admin
	Now   func() time.Time
}

func NewDrafter(tab store.Tabular, mail Mailer, log zerolog.Logger, admin *config.Admin) *Drafter {
	return &Drafter{Tab: tab, Mail: mail, Log: log, Admin: admin, Now: time.Now}
}

// Run drafts mail for every ledger entity whose document export
// completed in the given run, then reconciles the full ledger entity
// set against the audited attempts. An entity whose document was never
// exported gets no draft and no audit row, so it surfaces in the
// completion report's missing list instead of silently vanishing.
// Entities without a directory entry are audited as failures rather
// than aborting the batch.
func (d *Drafter) Run(ctx context.Context, runID, bucket string, kind model.Kind) (*DraftSummary, error) {
	groups, err := ledger.ReadGroups(ctx, d.Tab, bucket, kind)
	if err != nil {
		return nil, err
	}
	expected := make([]string, len(groups))
	for i, g := range groups {
		expected[i] = g.Name
	}

	attempts, err := export.ReadAttempts(ctx, d.Tab, runID, bucket)
	if err != nil {
		return nil, err
	}
	exported := make(map[string]bool, len(attempts))
	for _, a := range attempts {
		if a.Completed {
			exported[a.Entity] = true
		}
	}

	dir, err := LoadDirectory(ctx, d.Tab, kind)
	if err != nil {
		return nil, err
	}

	subjectTmpl, bodyTmpl, replyTo, cc := d.templates(kind)
	summary := &DraftSummary{RunID: runID, Bucket: bucket, Kind: kind}

	for _, entity := range expected {
		if !exported[entity] {
			d.Log.Warn().Str("entity", entity).Msg("no exported document for entity, draft withheld")
			continue
		}
		outcome, notes, err := d.draftEntity(ctx, dir, bucket, entity,
			subjectTmpl, bodyTmpl, replyTo, cc)
		if auditErr := d.recordOutcome(ctx, runID, entity, bucket, kind, outcome, notes); auditErr != nil {
			return nil, auditErr
		}
		if err != nil {
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
	}

	mailAttempts, err := d.readAttempts(ctx, runID, bucket, kind)
	if err != nil {
		return nil, err
	}
	summary.Report = reconcile.Completion(expected, mailAttempts)
	if err := d.recordSummary(ctx, runID, bucket, kind, summary.Report); err != nil {
		return nil, err
	}
	d.Log.Info().
		Int("created", summary.Created).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("expected", summary.Report.Expected).
		Int("completed", summary.Report.Completed).
		Strs("missing", summary.Report.Missing).
		Msg("draft run complete")
	return summary, nil
}

func (d *Drafter) draftEntity(ctx context.Context, dir *Directory, bucket, entity,
	subjectTmpl, bodyTmpl, replyTo, cc string) (model.Outcome, string, error) {

	contact, ok := dir.Lookup(entity)
	if !ok {
		d.Log.Warn().Str("entity", entity).Msg("no directory entry for entity")
		return model.OutcomeFailed, "no directory entry", nil
	}

	subject := fmt.Sprintf("[%s] %s", bucket, d.expand(subjectTmpl, bucket, entity))
	body := d.expand(bodyTmpl, bucket, entity)

	exists, err := d.Mail.Exists(ctx, contact.Email, subject)
	if err != nil {
		if store.IsRateLimited(err) {
			return model.OutcomeFailed, err.Error(), err
		}
		d.Log.Error().Err(err).Str("entity", entity).Msg("draft lookup failed")
		return model.OutcomeFailed, err.Error(), nil
	}
	if exists {
		return model.OutcomeSkipped, "draft already existed", nil
	}

	draftCC := contact.CC
	if draftCC == "" {
		draftCC = cc
	}
	createErr := d.Mail.CreateDraft(ctx, Draft{
		To:      contact.Email,
		CC:      draftCC,
		ReplyTo: replyTo,
		Subject: subject,
		Body:    body,
	})
	if createErr != nil {
		if store.IsRateLimited(createErr) {
			return model.OutcomeFailed, createErr.Error(), createErr
		}
		d.Log.Error().Err(createErr).Str("entity", entity).Msg("draft creation failed")
		return model.OutcomeFailed, createErr.Error(), nil
	}
	return model.OutcomeCreated, "", nil
}

// expand substitutes the template placeholders. {AGENCY} carries the
// entity name for both kinds so one template set serves both.
func (d *Drafter) expand(tmpl, bucket, entity string) string {
	r := strings.NewReplacer(
		"{START}", normalize.FormatDate(d.Admin.PayPeriodStart),
		"{END}", normalize.FormatDate(d.Admin.PayPeriodEnd),
		"{AGENCY}", entity,
		"{BUCKET}", bucket,
	)
	return r.Replace(tmpl)
}

func (d *Drafter) templates(kind model.Kind) (subject, body, replyTo, cc string) {
	m := d.Admin.Mail
	if kind == model.Invoice {
		return m.InvoiceSubject, m.InvoiceBody, m.InvoiceReplyTo, m.InvoiceCC
	}
	return m.PayrollSubject, m.PayrollBody, m.PayrollReplyTo, m.PayrollCC
}

func mailAuditHeader() []string {
	return []string{"Run ID", "Timestamp", "Entity", "Bucket", "Kind", "Status", "Notes"}
}

// recordOutcome upserts one mail audit row keyed by (entity, bucket,
// kind), mirroring the export audit's replace-by-key behavior.
func (d *Drafter) recordOutcome(ctx context.Context, runID, entity, bucket string,
	kind model.Kind, outcome model.Outcome, notes string) error {

	t, err := d.Tab.ReadAll(ctx, store.MailAuditTable)
	if err != nil {
		return fmt.Errorf("read mail audit: %w", err)
	}
	out := store.Table{Header: mailAuditHeader()}
	for _, row := range t.Rows {
		if len(row) >= 5 && row[2] == entity && row[3] == bucket && row[4] == kind.String() {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	out.Rows = append(out.Rows, []string{
		runID, d.Now().UTC().Format(time.RFC3339), entity, bucket, kind.String(),
		string(outcome), notes,
	})
	if err := d.Tab.WriteAll(ctx, store.MailAuditTable, out); err != nil {
		return fmt.Errorf("write mail audit: %w", err)
	}
	return nil
}

// summaryEntity marks the completion row appended after each run; it is
// never a draftable entity.
const summaryEntity = "SUMMARY"

// recordSummary appends the run's completion reconciliation to the mail
// audit, replacing any prior summary for the same bucket and kind.
func (d *Drafter) recordSummary(ctx context.Context, runID, bucket string, kind model.Kind, r reconcile.CompletionReport) error {
	notes := fmt.Sprintf("expected=%d attempted=%d drafted=%d missing=%s",
		r.Expected, r.Attempted, r.Completed, strings.Join(r.Missing, ";"))
	return d.recordOutcome(ctx, runID, summaryEntity, bucket, kind, "", notes)
}

func (d *Drafter) readAttempts(ctx context.Context, runID, bucket string, kind model.Kind) ([]reconcile.Attempt, error) {
	t, err := d.Tab.ReadAll(ctx, store.MailAuditTable)
	if err != nil {
		return nil, fmt.Errorf("read mail audit: %w", err)
	}
	var attempts []reconcile.Attempt
	for _, row := range t.Rows {
		if len(row) < 6 || row[0] != runID || row[3] != bucket || row[4] != kind.String() {
			continue
		}
		if row[2] == summaryEntity {
			continue
		}
		attempts = append(attempts, reconcile.Attempt{
			Key:       row[2],
			Completed: row[5] == string(model.OutcomeCreated) || row[5] == string(model.OutcomeSkipped),
		})
	}
	return attempts, nil
}
