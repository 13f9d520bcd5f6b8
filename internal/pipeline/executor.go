package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"contractiq/internal/cache"
	"contractiq/internal/config"
	"contractiq/internal/database"
	"contractiq/internal/model"
	"contractiq/internal/queue"
	"contractiq/internal/scoring"
	"contractiq/internal/storage"
)

// TextExtractor pulls plain text out of raw document bytes.
type TextExtractor interface {
	ExtractText(ctx context.Context, doc []byte) (string, error)
}

// StructuredExtractor turns extracted text into typed contract data.
type StructuredExtractor interface {
	ExtractStructured(ctx context.Context, text string) (*model.ContractData, error)
}

// Executor runs the processing pipeline for admitted jobs. A pool of
// workers consumes job ids from the queue, claims each job via the record
// store's compare-and-swap, and walks it through extraction, structured
// extraction and scoring with a progress checkpoint after each stage.
type Executor struct {
	db         database.JobDatabase
	store      storage.DocumentStore
	jobs       queue.JobQueue
	cache      cache.Cache
	extractor  TextExtractor
	structured StructuredExtractor
	policy     Policy
	cfg        config.ProcessingConfig
	owner      string
}

func NewExecutor(
	db database.JobDatabase,
	store storage.DocumentStore,
	jobs queue.JobQueue,
	statusCache cache.Cache,
	extractor TextExtractor,
	structured StructuredExtractor,
	cfg config.ProcessingConfig,
) *Executor {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "worker"
	}

	return &Executor{
		db:         db,
		store:      store,
		jobs:       jobs,
		cache:      statusCache,
		extractor:  extractor,
		structured: structured,
		policy: Policy{
			MaxAttempts: cfg.MaxAttempts,
			Base:        cfg.RetryBase(),
			Cap:         cfg.RetryCap(),
		},
		cfg:   cfg,
		owner: fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8]),
	}
}

// Run consumes jobs until ctx is cancelled. It blocks.
func (e *Executor) Run(ctx context.Context) error {
	deliveries, err := e.jobs.Consume(e.owner)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	log.Info().
		Str("owner", e.owner).
		Int("workers", e.cfg.Workers).
		Msg("Executor started")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.reclaimLoop(ctx)
	}()

	for i := 0; i < e.cfg.Workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			e.workerLoop(ctx, n, deliveries)
		}(i)
	}

	wg.Wait()
	log.Info().Str("owner", e.owner).Msg("Executor stopped")
	return nil
}

func (e *Executor) workerLoop(ctx context.Context, n int, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			jobID, ok := queue.JobIDFromDelivery(d)
			if !ok {
				log.Warn().Int("worker", n).Msg("Dropping message without a job id")
				_ = d.Nack(false, false)
				continue
			}
			e.handle(ctx, jobID)
			_ = d.Ack(false)
		}
	}
}

// handle claims the job and runs one attempt. Losing the claim is the
// normal outcome for duplicate deliveries and is not an error.
func (e *Executor) handle(ctx context.Context, jobID string) {
	job, err := e.db.ClaimJob(ctx, jobID, e.owner, e.cfg.Lease())
	if err != nil {
		if errors.Is(err, database.ErrClaimLost) {
			log.Debug().Str("jobID", jobID).Msg("Job not claimable, skipping delivery")
			return
		}
		log.Error().Err(err).Str("jobID", jobID).Msg("Claim failed")
		return
	}

	start := time.Now()

	if job.CancelRequested {
		e.finalize(ctx, job.ID, model.JobError{
			Kind:    model.KindCancelled,
			Message: "cancelled before processing started",
		}, time.Since(start))
		return
	}

	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.AttemptTimeout())
	err = e.runAttempt(attemptCtx, job, start)
	cancel()

	if err == nil {
		e.invalidate(ctx, job.ID)
		return
	}
	if errors.Is(err, database.ErrClaimLost) {
		log.Warn().Str("jobID", job.ID).Msg("Lost job ownership mid-attempt, abandoning")
		return
	}

	pe := model.ClassifyError(err)
	if attemptCtx.Err() != nil && ctx.Err() == nil {
		pe = model.NewProcessingError(model.KindTransient, "attempt timed out", attemptCtx.Err())
	}

	if pe.Kind == model.KindCancelled {
		e.finalize(ctx, job.ID, model.JobError{Kind: pe.Kind, Message: pe.Message}, time.Since(start))
		return
	}

	decision := e.policy.Decide(pe.Kind, job.AttemptCount)
	if decision.Retry {
		log.Warn().
			Str("jobID", job.ID).
			Int("attempt", job.AttemptCount).
			Dur("delay", decision.Delay).
			Str("cause", pe.Message).
			Msg("Attempt failed, retry scheduled")

		if err := e.db.ScheduleRetry(ctx, job.ID, e.owner, time.Now().Add(decision.Delay)); err != nil {
			log.Error().Err(err).Str("jobID", job.ID).Msg("Failed to schedule retry")
			return
		}
		if err := e.jobs.EnqueueRetry(job.ID, decision.Delay); err != nil {
			log.Error().Err(err).Str("jobID", job.ID).Msg("Failed to enqueue retry, lease reclaim will re-deliver")
		}
		e.invalidate(ctx, job.ID)
		return
	}

	e.finalize(ctx, job.ID, model.JobError{Kind: decision.FailKind, Message: pe.Message}, time.Since(start))
}

// runAttempt walks one claimed job through the pipeline stages. Any error
// it returns is classified by the caller.
func (e *Executor) runAttempt(ctx context.Context, job *model.JobRecord, start time.Time) error {
	doc, err := e.store.Get(ctx, job.RawDocumentRef)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			return model.NewProcessingError(model.KindPermanent, "uploaded document missing from store", err)
		}
		return model.NewProcessingError(model.KindTransient, "fetch document", err)
	}

	text, err := e.extractor.ExtractText(ctx, doc)
	if err != nil {
		return err
	}

	job, err = e.checkpoint(ctx, job.ID, ProgressExtracted, storedText(text, e.cfg.StoredTextLimitChars))
	if err != nil {
		return err
	}

	data, err := e.structured.ExtractStructured(ctx, text)
	if err != nil {
		return err
	}

	job, err = e.checkpoint(ctx, job.ID, ProgressStructured, "")
	if err != nil {
		return err
	}

	result := scoring.Score(data)

	if err := e.db.CompleteJob(ctx, job.ID, e.owner, data, result.Total, &result.Breakdown, result.MissingFields, time.Since(start)); err != nil {
		return err
	}

	log.Info().
		Str("jobID", job.ID).
		Float64("score", result.Total).
		Int("missingFields", len(result.MissingFields)).
		Msg("Contract processed")
	return nil
}

// checkpoint records progress and honors a cancellation flag observed on
// the refreshed record.
func (e *Executor) checkpoint(ctx context.Context, jobID string, progress int, extractedText string) (*model.JobRecord, error) {
	job, err := e.db.CheckpointProgress(ctx, jobID, e.owner, progress, extractedText, e.cfg.Lease())
	if err != nil {
		return nil, err
	}
	e.invalidate(ctx, jobID)

	if job.CancelRequested {
		return nil, model.Errorf(model.KindCancelled, "cancelled at %d%% progress", progress)
	}
	return job, nil
}

// finalize records a terminal failure and drops the cached status.
func (e *Executor) finalize(ctx context.Context, jobID string, jobErr model.JobError, elapsed time.Duration) {
	if err := e.db.FailJob(ctx, jobID, e.owner, jobErr, elapsed); err != nil {
		if errors.Is(err, database.ErrClaimLost) {
			log.Warn().Str("jobID", jobID).Msg("Lost job ownership before failure could be recorded")
			return
		}
		log.Error().Err(err).Str("jobID", jobID).Msg("Failed to record job failure")
		return
	}
	e.invalidate(ctx, jobID)
}

func (e *Executor) invalidate(ctx context.Context, jobID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.InvalidateStatus(ctx, jobID); err != nil {
		log.Debug().Err(err).Str("jobID", jobID).Msg("Status cache invalidation failed")
	}
}

// reclaimLoop periodically sweeps expired leases and re-enqueues the
// affected jobs so another worker picks them up.
func (e *Executor) reclaimLoop(ctx context.Context) {
	interval := e.cfg.ReclaimInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids, err := e.db.ReclaimExpiredLeases(ctx, time.Now())
			if err != nil {
				log.Error().Err(err).Msg("Lease reclaim sweep failed")
				continue
			}
			for _, id := range ids {
				if err := e.jobs.EnqueueJob(id); err != nil {
					log.Error().Err(err).Str("jobID", id).Msg("Failed to re-enqueue reclaimed job")
				}
			}
		}
	}
}

// storedText caps the text persisted on the record. The full text still
// flows through the pipeline in memory.
func storedText(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return text[:limit]
}
