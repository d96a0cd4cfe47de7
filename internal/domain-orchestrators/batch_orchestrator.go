// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ochairo/triagedl/internal/domain/entities"
	"github.com/ochairo/triagedl/internal/domain/interfaces"
	"github.com/ochairo/triagedl/internal/domain/interfaces/gateways"
	"github.com/ochairo/triagedl/internal/domain/interfaces/repositories"
	"github.com/ochairo/triagedl/internal/domain/services"
)

// ResultParser extracts sample identifiers from a search result page
type ResultParser interface {
	Parse(document string) []entities.SampleIdentifier
}

// Throttle paces item dispatch
type Throttle interface {
	Wait(ctx context.Context) error
}

// OutcomeFunc observes each outcome as it is recorded. index is the position
// of the identifier in the search results. Calls are serialized.
type OutcomeFunc func(index, total int, outcome entities.DownloadOutcome)

// BatchOrchestratorConfig holds configuration for the orchestrator
type BatchOrchestratorConfig struct {
	Domain       string
	DownloadRoot string
	Limit        int
	Workers      int
	Logger       interfaces.Logger
	OnOutcome    OutcomeFunc
}

// BatchOrchestrator runs one search and downloads every identifier it yields
type BatchOrchestrator struct {
	store        repositories.CredentialStore
	opener       gateways.SessionOpener
	parser       ResultParser
	throttle     Throttle
	domain       string
	downloadRoot string
	limit        int
	workers      int
	logger       interfaces.Logger
	onOutcome    OutcomeFunc
}

// NewBatchOrchestrator creates a new batch orchestrator
func NewBatchOrchestrator(
	store repositories.CredentialStore,
	opener gateways.SessionOpener,
	parser ResultParser,
	throttle Throttle,
	config BatchOrchestratorConfig,
) *BatchOrchestrator {
	downloadRoot := config.DownloadRoot
	if downloadRoot == "" {
		downloadRoot = "downloads"
	}
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	logger := config.Logger
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	return &BatchOrchestrator{
		store:        store,
		opener:       opener,
		parser:       parser,
		throttle:     throttle,
		domain:       config.Domain,
		downloadRoot: downloadRoot,
		limit:        config.Limit,
		workers:      workers,
		logger:       logger,
		onOutcome:    config.OnOutcome,
	}
}

// RunReport is the structured result of one run
type RunReport struct {
	RunID       string                      `json:"run_id"`
	State       entities.RunState           `json:"state"`
	Query       entities.SearchQuery        `json:"query"`
	Directory   string                      `json:"directory,omitempty"`
	Identifiers []entities.SampleIdentifier `json:"identifiers"`
	Outcomes    []entities.DownloadOutcome  `json:"outcomes"`
	Summary     entities.RunSummary         `json:"summary"`
	Warnings    []string                    `json:"warnings,omitempty"`
	StartedAt   time.Time                   `json:"started_at"`
	Duration    time.Duration               `json:"duration_ns"`
	Canceled    bool                        `json:"canceled"`
	Pending     []entities.SampleIdentifier `json:"pending,omitempty"`
	Error       string                      `json:"error,omitempty"`
}

// SummaryText renders the human-readable summary of the run
func (r *RunReport) SummaryText() string {
	return services.FormatSummary(services.SummaryInput{
		Family:   r.Query.Family,
		Summary:  r.Summary,
		Warnings: r.Warnings,
		Canceled: r.Canceled,
		Pending:  len(r.Pending),
	})
}

// Run executes the workflow for one family term:
// load credentials, open a session, search, then download every identifier.
// Only credential, query and search failures abort the run; per-item
// failures are captured in the report. On cancellation the partial report is
// returned together with ctx.Err().
func (o *BatchOrchestrator) Run(ctx context.Context, family string) (*RunReport, error) {
	startTime := time.Now()
	report := &RunReport{
		RunID:     newRunID(),
		State:     entities.RunStateInit,
		Query:     entities.SearchQuery{Family: family},
		StartedAt: startTime,
	}

	fail := func(err error) (*RunReport, error) {
		report.advance(entities.RunStateFailed)
		report.Error = err.Error()
		report.Duration = time.Since(startTime)
		o.logger.Error("run.failed",
			interfaces.F("run_id", report.RunID),
			interfaces.F("error", err.Error()))
		return report, err
	}

	// Step 1: Load credentials and open the session
	bundle, err := o.store.Load(ctx, o.domain)
	if err != nil {
		return fail(fmt.Errorf("failed to load credentials: %w", err))
	}
	session, err := o.opener.Open(bundle)
	if err != nil {
		return fail(fmt.Errorf("failed to open session: %w", err))
	}
	report.advance(entities.RunStateAuthenticated)

	// Step 2: Search and parse
	query, err := entities.NewSearchQuery(family, o.limit)
	if err != nil {
		return fail(err)
	}
	report.Query = query

	destDir := filepath.Join(o.downloadRoot, query.DirName())
	if err := os.MkdirAll(destDir, 0750); err != nil {
		return fail(fmt.Errorf("failed to create download directory: %w", err))
	}
	report.Directory = destDir

	o.logger.Info("search.start",
		interfaces.F("run_id", report.RunID),
		interfaces.F("family", query.Family),
		interfaces.F("limit", query.Limit))

	page, err := session.Search(ctx, query)
	if err != nil {
		return fail(fmt.Errorf("search failed: %w", err))
	}
	ids := o.parser.Parse(page)
	report.Identifiers = ids
	report.advance(entities.RunStateSearched)

	o.logger.Info("search.done",
		interfaces.F("run_id", report.RunID),
		interfaces.F("count", len(ids)))

	if len(ids) == 0 {
		return o.finish(ctx, report, startTime)
	}

	// Step 3: Download
	report.advance(entities.RunStateDownloading)

	o.dispatch(ctx, session, report, destDir)

	return o.finish(ctx, report, startTime)
}

// dispatch feeds identifiers to the worker pool and collects outcomes by
// index. Items not started before cancellation are listed as pending.
func (o *BatchOrchestrator) dispatch(ctx context.Context, session gateways.SampleSession, report *RunReport, destDir string) {
	ids := report.Identifiers
	outcomes := make([]entities.DownloadOutcome, len(ids))
	recorded := make([]bool, len(ids))

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(o.workers)

	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := o.throttle.Wait(ctx); err != nil || ctx.Err() != nil {
				return nil
			}

			outcome := session.Download(ctx, id, destDir)

			mu.Lock()
			defer mu.Unlock()
			outcomes[i] = outcome
			recorded[i] = true
			o.record(report, i, outcome)
			return nil
		})
	}
	//nolint:errcheck // workers never return errors; outcomes carry failures
	g.Wait()

	for i, id := range ids {
		if !recorded[i] {
			report.Pending = append(report.Pending, id)
			continue
		}
		report.Outcomes = append(report.Outcomes, outcomes[i])
		report.Summary.Add(outcomes[i])
	}
}

// record logs one outcome and notifies the observer. Callers hold the lock.
func (o *BatchOrchestrator) record(report *RunReport, index int, outcome entities.DownloadOutcome) {
	fields := []interfaces.Field{
		interfaces.F("run_id", report.RunID),
		interfaces.F("id", outcome.Identifier.String()),
		interfaces.F("kind", string(outcome.Kind)),
		interfaces.F("attempts", outcome.Attempts),
	}
	switch outcome.Kind {
	case entities.OutcomeSuccess, entities.OutcomeSkippedInvalidSize:
		fields = append(fields, interfaces.F("bytes", outcome.BytesWritten))
	case entities.OutcomeFailed:
		fields = append(fields, interfaces.F("reason", outcome.Reason))
	}
	o.logger.Info("download.outcome", fields...)

	if outcome.Failure == entities.FailureRateLimited {
		warning := fmt.Sprintf("%s: rate limited by upstream, item abandoned", outcome.Identifier)
		report.Warnings = append(report.Warnings, warning)
		o.logger.Warn("run.warning",
			interfaces.F("run_id", report.RunID),
			interfaces.F("id", outcome.Identifier.String()),
			interfaces.F("warning", warning))
	}

	if o.onOutcome != nil {
		o.onOutcome(index, len(report.Identifiers), outcome)
	}
}

func (o *BatchOrchestrator) finish(ctx context.Context, report *RunReport, startTime time.Time) (*RunReport, error) {
	report.advance(entities.RunStateDone)
	report.Duration = time.Since(startTime)
	report.Canceled = ctx.Err() != nil

	o.logger.Info("run.done",
		interfaces.F("run_id", report.RunID),
		interfaces.F("success", report.Summary.Success),
		interfaces.F("skipped_invalid_size", report.Summary.SkippedInvalidSize),
		interfaces.F("skipped_not_found", report.Summary.SkippedNotFound),
		interfaces.F("failed", report.Summary.Failed),
		interfaces.F("pending", len(report.Pending)),
		interfaces.F("canceled", report.Canceled),
		interfaces.F("duration", report.Duration.String()))

	if report.Canceled {
		return report, ctx.Err()
	}
	return report, nil
}

// advance moves the report to next unless the run already ended
func (r *RunReport) advance(next entities.RunState) {
	if r.State.IsTerminal() {
		return
	}
	r.State = next
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
