package collect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vodhub/backend/internal/merge"
	"github.com/vodhub/backend/internal/normalize"
	"github.com/vodhub/backend/internal/queue"
	"github.com/vodhub/backend/internal/repo"
	"github.com/vodhub/backend/internal/source"
	"github.com/vodhub/backend/pkg/logger"
	"github.com/vodhub/backend/pkg/status"
)

var (
	// ErrScopeBusy is returned when a run for the same scope is already active.
	ErrScopeBusy = errors.New("a collection run for this scope is already active")

	// ErrTaskAbort marks a run where no configured source produced anything.
	ErrTaskAbort = errors.New("all sources unavailable")

	// ErrNoSources is returned synchronously when nothing is enabled for the scope.
	ErrNoSources = errors.New("no enabled sources for scope")
)

type sourceLister interface {
	FindEnabled(ctx context.Context) ([]repo.SourceSite, error)
}

type taskStore interface {
	Create(ctx context.Context, task *repo.CollectionTask) error
	MarkRunning(ctx context.Context, id string) error
	RecordPage(ctx context.Context, id string, page, collected, updated, errs int) error
	Finish(ctx context.Context, id string, to status.Task, lastError string, outcomes []repo.SourceOutcome) error
	IsCancelRequested(ctx context.Context, id string) (bool, error)
}

type leaseStore interface {
	Acquire(ctx context.Context, scope, taskID string) error
	ReleaseByTaskID(ctx context.Context, taskID string) error
}

type clientFactory interface {
	ForSite(site repo.SourceSite) source.Client
}

type reconciler interface {
	Reconcile(ctx context.Context, rec *normalize.NormalizedRecord, site repo.SourceSite) (merge.Result, error)
}

type progressPublisher interface {
	PublishProgress(ctx context.Context, snapshot queue.ProgressSnapshot) error
}

// Options are the run tunables, split from config so tests can zero the delays.
type Options struct {
	IncrementalPages  int
	FullPagesCeiling  int
	SourceConcurrency int
	RequestDelay      time.Duration
}

// Orchestrator drives collection runs: per-scope lease, task row lifecycle,
// weight-ordered source iteration with bounded concurrency, page-by-page
// fetch → normalize → reconcile, and best-effort completion semantics.
type Orchestrator struct {
	sources   sourceLister
	tasks     taskStore
	leases    leaseStore
	clients   clientFactory
	engine    reconciler
	publisher progressPublisher
	opts      Options

	// runCtx governs background page loops; cancelling it stops all runs.
	runCtx context.Context
}

func NewOrchestrator(runCtx context.Context, sources sourceLister, tasks taskStore, leases leaseStore, clients clientFactory, engine reconciler, publisher progressPublisher, opts Options) *Orchestrator {
	if opts.IncrementalPages <= 0 {
		opts.IncrementalPages = 20
	}
	if opts.FullPagesCeiling <= 0 {
		opts.FullPagesCeiling = 500
	}
	if opts.SourceConcurrency <= 0 {
		opts.SourceConcurrency = 3
	}

	return &Orchestrator{
		sources:   sources,
		tasks:     tasks,
		leases:    leases,
		clients:   clients,
		engine:    engine,
		publisher: publisher,
		opts:      opts,
		runCtx:    runCtx,
	}
}

func (o *Orchestrator) RunIncremental(ctx context.Context, maxPages int) (string, error) {
	if maxPages <= 0 || maxPages > o.opts.IncrementalPages {
		maxPages = o.opts.IncrementalPages
	}
	return o.start(ctx, status.TypeIncremental, "", maxPages)
}

func (o *Orchestrator) RunFull(ctx context.Context) (string, error) {
	return o.start(ctx, status.TypeFull, "", o.opts.FullPagesCeiling)
}

func (o *Orchestrator) RunCategory(ctx context.Context, category string, maxPages int) (string, error) {
	if category == "" {
		return "", fmt.Errorf("category run requires a category")
	}
	if maxPages <= 0 || maxPages > o.opts.FullPagesCeiling {
		maxPages = o.opts.IncrementalPages
	}
	return o.start(ctx, status.TypeCategory, category, maxPages)
}

// Scope builds the lease key for a run. Category runs are scoped per category
// so different categories can collect concurrently.
func Scope(taskType status.TaskType, category string) string {
	if taskType == status.TypeCategory {
		return string(taskType) + ":" + category
	}
	return string(taskType)
}

// start registers the task synchronously and launches the run in the
// background. The returned task ID is immediately queryable.
func (o *Orchestrator) start(ctx context.Context, taskType status.TaskType, category string, maxPages int) (string, error) {
	sites, err := o.sources.FindEnabled(ctx)
	if err != nil {
		return "", fmt.Errorf("list sources: %w", err)
	}
	if category != "" {
		sites = filterByCategory(sites, category)
	}
	if len(sites) == 0 {
		return "", ErrNoSources
	}

	scope := Scope(taskType, category)
	taskID := primitive.NewObjectID()

	if err := o.leases.Acquire(ctx, scope, taskID.Hex()); err != nil {
		if errors.Is(err, repo.ErrLeaseHeld) {
			return "", fmt.Errorf("%w: %s", ErrScopeBusy, scope)
		}
		return "", fmt.Errorf("acquire lease %s: %w", scope, err)
	}

	task := &repo.CollectionTask{
		ID:             taskID,
		Type:           taskType,
		Scope:          scope,
		TargetCategory: category,
	}
	if err := o.tasks.Create(ctx, task); err != nil {
		o.leases.ReleaseByTaskID(ctx, taskID.Hex())
		return "", fmt.Errorf("create task: %w", err)
	}

	if err := o.tasks.MarkRunning(ctx, taskID.Hex()); err != nil {
		o.leases.ReleaseByTaskID(ctx, taskID.Hex())
		return "", fmt.Errorf("mark running: %w", err)
	}

	logger.Log.Info().
		Str("task", taskID.Hex()).
		Str("scope", scope).
		Int("sources", len(sites)).
		Int("max_pages", maxPages).
		Msg("collection run started")

	go o.drive(o.runCtx, taskID.Hex(), sites, category, maxPages)

	return taskID.Hex(), nil
}

// drive runs the whole collection pass and always releases the scope lease on
// the way out.
func (o *Orchestrator) drive(ctx context.Context, taskID string, sites []repo.SourceSite, category string, maxPages int) {
	log := logger.Log

	outcomes := make([]repo.SourceOutcome, len(sites))

	var wg sync.WaitGroup
	sem := make(chan struct{}, o.opts.SourceConcurrency)

	for i := range sites {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[idx] = o.collectSource(ctx, taskID, sites[idx], category, maxPages)
		}(i)
	}
	wg.Wait()

	finalStatus, lastError := DecideOutcome(outcomes)

	if cancelled, _ := o.tasks.IsCancelRequested(ctx, taskID); cancelled {
		finalStatus = status.TaskCancelled
		lastError = ""
	}

	if err := o.tasks.Finish(ctx, taskID, finalStatus, lastError, outcomes); err != nil {
		log.Error().Err(err).Str("task", taskID).Msg("failed to finish task")
	}
	if err := o.leases.ReleaseByTaskID(ctx, taskID); err != nil {
		log.Error().Err(err).Str("task", taskID).Msg("failed to release lease")
	}

	log.Info().
		Str("task", taskID).
		Str("status", string(finalStatus)).
		Msg("collection run finished")
}

// collectSource walks one source page by page. Pages are sequential within a
// source; page N+1 is not fetched until page N's records are reconciled.
func (o *Orchestrator) collectSource(ctx context.Context, taskID string, site repo.SourceSite, category string, maxPages int) repo.SourceOutcome {
	log := logger.Log
	outcome := repo.SourceOutcome{SourceName: site.Name}
	client := o.clients.ForSite(site)

	for page := 1; page <= maxPages; page++ {
		if cancelled, err := o.tasks.IsCancelRequested(ctx, taskID); err == nil && cancelled {
			log.Info().Str("task", taskID).Str("source", site.Name).Int("page", page).Msg("cancellation observed, stopping source")
			return outcome
		}
		select {
		case <-ctx.Done():
			return outcome
		default:
		}

		records, hasMore, err := client.FetchListPage(ctx, site, category, page)
		if err != nil {
			outcome.Errors++
			outcome.Error = err.Error()
			// A source that never produced a page failed outright; one that
			// already contributed keeps its partial results.
			if outcome.Pages == 0 {
				outcome.Failed = true
			}
			// The failed fetch still counts against the task row.
			if rerr := o.tasks.RecordPage(ctx, taskID, page, 0, 0, 1); rerr != nil {
				log.Warn().Err(rerr).Str("task", taskID).Msg("failed to record fetch error")
			}
			log.Warn().Err(err).Str("source", site.Name).Int("page", page).Msg("page fetch failed, stopping source")
			return outcome
		}

		created, updated, errs := o.reconcilePage(ctx, records, site)
		outcome.Pages++
		outcome.Collected += created
		outcome.Updated += updated
		outcome.Errors += errs

		if err := o.tasks.RecordPage(ctx, taskID, page, created, updated, errs); err != nil {
			log.Warn().Err(err).Str("task", taskID).Msg("failed to record page progress")
		}
		o.publishProgress(ctx, taskID, site.Name, page, outcome)

		if !hasMore {
			break
		}
		if o.opts.RequestDelay > 0 {
			select {
			case <-ctx.Done():
				return outcome
			case <-time.After(o.opts.RequestDelay):
			}
		}
	}

	return outcome
}

func (o *Orchestrator) reconcilePage(ctx context.Context, records []source.RawRecord, site repo.SourceSite) (created, updated, errs int) {
	log := logger.Log

	for _, raw := range records {
		rec, err := normalize.Normalize(raw, site)
		if err != nil {
			errs++
			continue
		}

		result, err := o.engine.Reconcile(ctx, rec, site)
		if err != nil {
			errs++
			log.Warn().Err(err).Str("source", site.Name).Str("title", rec.Title).Msg("reconcile failed")
			continue
		}
		if result.Created {
			created++
		} else {
			updated++
		}
	}
	return created, updated, errs
}

func (o *Orchestrator) publishProgress(ctx context.Context, taskID, sourceName string, page int, outcome repo.SourceOutcome) {
	if o.publisher == nil {
		return
	}
	snapshot := queue.ProgressSnapshot{
		TaskID:    taskID,
		Source:    sourceName,
		Page:      page,
		Collected: outcome.Collected,
		Updated:   outcome.Updated,
		Errors:    outcome.Errors,
		Timestamp: time.Now(),
	}
	if err := o.publisher.PublishProgress(ctx, snapshot); err != nil {
		logger.Log.Debug().Err(err).Str("task", taskID).Msg("progress publish failed")
	}
}

// DecideOutcome derives the terminal status from per-source outcomes: a run is
// best-effort, so it completes unless every source failed.
func DecideOutcome(outcomes []repo.SourceOutcome) (status.Task, string) {
	if len(outcomes) == 0 {
		return status.TaskFailed, ErrNoSources.Error()
	}

	failed := 0
	for _, oc := range outcomes {
		if oc.Failed {
			failed++
		}
	}
	if failed == len(outcomes) {
		return status.TaskFailed, ErrTaskAbort.Error()
	}
	return status.TaskCompleted, ""
}

func filterByCategory(sites []repo.SourceSite, category string) []repo.SourceSite {
	out := sites[:0]
	for _, s := range sites {
		if s.ServesCategory(category) {
			out = append(out, s)
		}
	}
	return out
}
