package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"contractiq/internal/cache"
	"contractiq/internal/config"
	"contractiq/internal/database"
	"contractiq/internal/model"
	"contractiq/internal/queue"
	"contractiq/internal/storage"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the size limit
	ErrFileTooLarge = errors.New("file exceeds the maximum upload size")

	// ErrUnsupportedType is returned when an upload is not a PDF
	ErrUnsupportedType = errors.New("only PDF documents are supported")

	// ErrEmptyFile is returned when an upload has no content
	ErrEmptyFile = errors.New("uploaded file is empty")
)

// ContractController handles contract upload and lifecycle operations
type ContractController interface {
	// Upload admits a contract document: stores the bytes, creates the
	// pending job record and enqueues it for processing
	Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*model.JobRecord, error)

	// Status returns the lightweight status snapshot for polling clients
	Status(ctx context.Context, id string) (*cache.StatusSnapshot, error)

	// Get returns the full job record
	Get(ctx context.Context, id string) (*model.JobRecord, error)

	// List returns a filtered page of job records plus the total count
	List(ctx context.Context, filter database.JobFilter) ([]*model.JobRecord, int64, error)

	// Cancel flags a non-terminal job for cancellation
	Cancel(ctx context.Context, id string) error

	// Download returns the original uploaded bytes and filename
	Download(ctx context.Context, id string) ([]byte, string, error)

	// Stats returns job counts per status
	Stats(ctx context.Context) (map[string]int64, error)
}

type contractController struct {
	db    database.JobDatabase
	store storage.DocumentStore
	jobs  queue.JobQueue
	cache cache.Cache
	cfg   config.ProcessingConfig
}

// NewContractController creates a new contract controller
func NewContractController(db database.JobDatabase, store storage.DocumentStore,
	jobs queue.JobQueue, statusCache cache.Cache, cfg config.ProcessingConfig) ContractController {
	return &contractController{
		db:    db,
		store: store,
		jobs:  jobs,
		cache: statusCache,
		cfg:   cfg,
	}
}

func (cc *contractController) Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*model.JobRecord, error) {
	if size <= 0 {
		return nil, ErrEmptyFile
	}
	if size > int64(cc.cfg.MaxUploadSizeBytes) {
		return nil, ErrFileTooLarge
	}
	if !isPDF(filename, contentType) {
		return nil, ErrUnsupportedType
	}

	id := uuid.NewString()

	ref, err := cc.store.Put(ctx, id+".pdf", io.LimitReader(body, int64(cc.cfg.MaxUploadSizeBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	job := &model.JobRecord{
		ID:             id,
		Filename:       filename,
		FileSize:       size,
		ContentType:    contentType,
		RawDocumentRef: ref,
	}
	if err := cc.db.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := cc.jobs.EnqueueJob(id); err != nil {
		// The record exists but the queue rejected the id. The lease
		// reclaimer cannot help a job that was never claimed, so surface
		// the failure to the uploader.
		log.Error().Err(err).Str("jobID", id).Msg("Failed to enqueue admitted job")
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	log.Info().
		Str("jobID", id).
		Str("filename", filename).
		Int64("size", size).
		Msg("Contract admitted for processing")

	return job, nil
}

// Status serves polling traffic from the snapshot cache, falling back to the
// record store on a miss and repopulating the cache.
func (cc *contractController) Status(ctx context.Context, id string) (*cache.StatusSnapshot, error) {
	if snap, err := cc.cache.GetStatus(ctx, id); err == nil {
		return snap, nil
	}

	job, err := cc.db.GetJobByID(ctx, id)
	if err != nil {
		return nil, err
	}

	snap := cache.StatusSnapshot{
		Status:   job.Status,
		Progress: job.Progress,
		Error:    job.Error,
	}
	if err := cc.cache.SetStatus(ctx, id, snap); err != nil {
		log.Debug().Err(err).Str("jobID", id).Msg("Failed to cache status snapshot")
	}
	return &snap, nil
}

func (cc *contractController) Get(ctx context.Context, id string) (*model.JobRecord, error) {
	return cc.db.GetJobByID(ctx, id)
}

func (cc *contractController) List(ctx context.Context, filter database.JobFilter) ([]*model.JobRecord, int64, error) {
	return cc.db.ListJobs(ctx, filter)
}

func (cc *contractController) Cancel(ctx context.Context, id string) error {
	if err := cc.db.RequestCancel(ctx, id); err != nil {
		return err
	}
	if err := cc.cache.InvalidateStatus(ctx, id); err != nil {
		log.Debug().Err(err).Str("jobID", id).Msg("Status cache invalidation failed")
	}
	return nil
}

func (cc *contractController) Download(ctx context.Context, id string) ([]byte, string, error) {
	job, err := cc.db.GetJobByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	doc, err := cc.store.Get(ctx, job.RawDocumentRef)
	if err != nil {
		return nil, "", err
	}
	return doc, job.Filename, nil
}

func (cc *contractController) Stats(ctx context.Context) (map[string]int64, error) {
	statuses := []model.JobStatus{
		model.StatusPending,
		model.StatusProcessing,
		model.StatusCompleted,
		model.StatusFailed,
	}

	stats := make(map[string]int64, len(statuses))
	for _, status := range statuses {
		count, err := cc.db.CountJobsByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		stats[string(status)] = count
	}
	return stats, nil
}

func isPDF(filename, contentType string) bool {
	if contentType == "application/pdf" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
