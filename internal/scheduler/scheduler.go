package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/vodhub/backend/internal/collect"
	"github.com/vodhub/backend/internal/merge"
	"github.com/vodhub/backend/internal/normalize"
	"github.com/vodhub/backend/internal/repo"
	"github.com/vodhub/backend/internal/source"
	"github.com/vodhub/backend/internal/validate"
	"github.com/vodhub/backend/pkg/logger"
	"github.com/vodhub/backend/pkg/status"
)

const (
	incrementalInterval = 6 * time.Hour
	validateInterval    = 30 * time.Minute
	recoveryInterval    = 5 * time.Minute
	repairInterval      = 12 * time.Hour

	staleTaskTimeout = 2 * time.Hour

	repairScoreThreshold = 60
	repairBatchSize      = 20
)

// Scheduler owns the periodic work: scheduled incremental runs, validator
// batches, stale-task recovery and low-quality detail repair.
type Scheduler struct {
	orchestrator *collect.Orchestrator
	validator    *validate.Validator
	engine       *merge.Engine
	clients      *source.Factory
	sourceRepo   *repo.SourceRepo
	taskRepo     *repo.TaskRepo
	leaseRepo    *repo.LeaseRepo
	videoRepo    *repo.VideoRepo
	batchSize    int64
	scheduler    gocron.Scheduler
}

func New(orchestrator *collect.Orchestrator, validator *validate.Validator, engine *merge.Engine, clients *source.Factory, sourceRepo *repo.SourceRepo, taskRepo *repo.TaskRepo, leaseRepo *repo.LeaseRepo, videoRepo *repo.VideoRepo, batchSize int64) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		orchestrator: orchestrator,
		validator:    validator,
		engine:       engine,
		clients:      clients,
		sourceRepo:   sourceRepo,
		taskRepo:     taskRepo,
		leaseRepo:    leaseRepo,
		videoRepo:    videoRepo,
		batchSize:    batchSize,
		scheduler:    s,
	}, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	log := logger.Log

	jobs := []struct {
		interval time.Duration
		run      func()
	}{
		{incrementalInterval, func() { s.runIncremental(ctx) }},
		{validateInterval, func() { s.runValidation(ctx) }},
		{recoveryInterval, func() { s.recoverStaleTasks(ctx) }},
		{repairInterval, func() { s.repairLowQuality(ctx) }},
	}

	for _, job := range jobs {
		if _, err := s.scheduler.NewJob(gocron.DurationJob(job.interval), gocron.NewTask(job.run)); err != nil {
			return err
		}
	}

	s.scheduler.Start()
	log.Info().Msg("scheduler started")

	go s.recoverStaleTasks(ctx)

	return nil
}

func (s *Scheduler) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		logger.Log.Error().Err(err).Msg("scheduler shutdown error")
	}
}

func (s *Scheduler) runIncremental(ctx context.Context) {
	log := logger.Log

	taskID, err := s.orchestrator.RunIncremental(ctx, 0)
	if err != nil {
		if errors.Is(err, collect.ErrScopeBusy) {
			log.Info().Msg("incremental run still active, skipping scheduled trigger")
			return
		}
		if errors.Is(err, collect.ErrNoSources) {
			log.Debug().Msg("no enabled sources, skipping scheduled run")
			return
		}
		log.Error().Err(err).Msg("failed to start scheduled incremental run")
		return
	}

	log.Info().Str("task", taskID).Msg("scheduled incremental run started")
}

func (s *Scheduler) runValidation(ctx context.Context) {
	log := logger.Log

	stats, err := s.validator.ValidateBatch(ctx, s.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("scheduled validation batch failed")
		return
	}
	if stats.Invalidated > 0 {
		log.Info().Int("invalidated", stats.Invalidated).Msg("scheduled validation retired dead links")
	}
}

// recoverStaleTasks marks runs left behind by a crashed process as failed and
// frees their scope leases so new triggers are not locked out forever.
func (s *Scheduler) recoverStaleTasks(ctx context.Context) {
	log := logger.Log

	staleTasks, err := s.taskRepo.FindStaleRunning(ctx, staleTaskTimeout)
	if err != nil {
		log.Error().Err(err).Msg("failed to find stale tasks")
		return
	}

	for _, task := range staleTasks {
		id := task.ID.Hex()
		if err := s.taskRepo.Finish(ctx, id, status.TaskFailed, "task stuck in "+string(task.Status)+" state (possible process crash)", nil); err != nil {
			log.Warn().Err(err).Str("task", id).Msg("failed to mark stale task as failed")
			continue
		}
		if err := s.leaseRepo.ReleaseByTaskID(ctx, id); err != nil {
			log.Warn().Err(err).Str("task", id).Msg("failed to release stale lease")
		}
		log.Info().Str("task", id).Str("scope", task.Scope).Msg("stale task marked as failed")
	}
}

// repairLowQuality re-fetches item details for low-scoring records; detail
// payloads usually carry the synopsis and cast that list pages omit.
func (s *Scheduler) repairLowQuality(ctx context.Context) {
	log := logger.Log

	videos, err := s.videoRepo.FindLowQuality(ctx, repairScoreThreshold, repairBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to find low-quality videos")
		return
	}
	if len(videos) == 0 {
		return
	}

	repaired := 0
	for _, video := range videos {
		for sourceName, externalID := range video.SourceRefs {
			site, err := s.sourceRepo.FindByName(ctx, sourceName)
			if err != nil || site == nil || !site.Enabled {
				continue
			}

			raw, err := s.clients.ForSite(*site).FetchDetail(ctx, *site, externalID)
			if err != nil {
				log.Debug().Err(err).Str("source", sourceName).Str("video", video.ID.Hex()).Msg("detail refetch failed")
				continue
			}

			rec, err := normalize.Normalize(*raw, *site)
			if err != nil {
				continue
			}
			if _, err := s.engine.Reconcile(ctx, rec, *site); err != nil {
				log.Warn().Err(err).Str("video", video.ID.Hex()).Msg("repair reconcile failed")
				continue
			}
			repaired++
		}
	}

	if repaired > 0 {
		log.Info().Int("count", repaired).Msg("low-quality records repaired from detail fetch")
	}
}
