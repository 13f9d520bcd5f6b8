package database

import (
	"context"
	"errors"
	"time"

	"contractiq/internal/model"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrJobNotFound is returned when no record exists for the given id
	ErrJobNotFound = errors.New("job not found")

	// ErrClaimLost is returned when a compare-and-swap claim or an
	// owner-guarded write matched no document: another worker owns the job
	// or the record moved on.
	ErrClaimLost = errors.New("job claim lost")
)

// JobFilter narrows and pages ListJobs results
type JobFilter struct {
	Status   model.JobStatus
	Search   string
	MinScore *float64
	MaxScore *float64
	Page     int
	PageSize int
	SortBy   string
	SortDesc bool
}

// JobDatabase defines the record store operations for contract jobs.
// ClaimJob and the owner-guarded writes provide the CAS semantics the
// executor's lease discipline relies on.
type JobDatabase interface {
	// CreateJob persists a new record in pending state
	CreateJob(ctx context.Context, job *model.JobRecord) error

	// GetJobByID returns a consistent snapshot of a record
	GetJobByID(ctx context.Context, id string) (*model.JobRecord, error)

	// ClaimJob atomically takes ownership of a claimable job: pending, or
	// processing with a due retry, or processing with an expired lease.
	// Entry to processing increments attempt_count and resets progress.
	// Returns ErrClaimLost when another worker won the race.
	ClaimJob(ctx context.Context, id, owner string, lease time.Duration) (*model.JobRecord, error)

	// CheckpointProgress records a progress checkpoint, extends the lease and
	// returns the refreshed record so the caller can observe the cancellation
	// flag. Pass extractedText at the first checkpoint only; empty leaves it.
	CheckpointProgress(ctx context.Context, id, owner string, progress int, extractedText string, lease time.Duration) (*model.JobRecord, error)

	// CompleteJob finalizes a job with its extraction result and score
	CompleteJob(ctx context.Context, id, owner string, data *model.ContractData, score float64, breakdown *model.ScoreBreakdown, missing []string, elapsed time.Duration) error

	// FailJob finalizes a job with a classified error
	FailJob(ctx context.Context, id, owner string, jobErr model.JobError, elapsed time.Duration) error

	// ScheduleRetry releases ownership but keeps the job in processing,
	// claimable again once retryAt passes
	ScheduleRetry(ctx context.Context, id, owner string, retryAt time.Time) error

	// RequestCancel flags the job for cancellation; the executor honors the
	// flag at its next checkpoint
	RequestCancel(ctx context.Context, id string) error

	// ReclaimExpiredLeases clears leases that outlived their timeout and
	// returns the affected job ids so they can be re-enqueued
	ReclaimExpiredLeases(ctx context.Context, now time.Time) ([]string, error)

	// ListJobs returns a filtered, paginated page of records plus the total count
	ListJobs(ctx context.Context, filter JobFilter) ([]*model.JobRecord, int64, error)

	// CountJobsByStatus counts records with a specific status
	CountJobsByStatus(ctx context.Context, status model.JobStatus) (int64, error)
}

// CreateJob creates a new job record in the database
func (m *mongoDB) CreateJob(ctx context.Context, job *model.JobRecord) error {
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	job.Status = model.StatusPending
	job.Progress = 0
	job.AttemptCount = 0

	if job.MissingFields == nil {
		job.MissingFields = []string{}
	}

	_, err := m.contractsCol.InsertOne(ctx, job)
	if err != nil {
		log.Error().Err(err).Str("jobID", job.ID).Msg("Failed to create job")
		return err
	}

	log.Debug().Str("jobID", job.ID).Str("filename", job.Filename).Msg("Created new job")
	return nil
}

// GetJobByID retrieves a job record by its ID
func (m *mongoDB) GetJobByID(ctx context.Context, id string) (*model.JobRecord, error) {
	var job model.JobRecord
	err := m.contractsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrJobNotFound
		}
		log.Error().Err(err).Str("jobID", id).Msg("Failed to get job")
		return nil, err
	}

	return &job, nil
}

// claimableFilter matches jobs open to a new ownership claim
func claimableFilter(id string, now time.Time) bson.M {
	return bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"status": model.StatusPending},
			bson.M{
				"status":      model.StatusProcessing,
				"lease_owner": "",
				"retry_at":    bson.M{"$lte": now},
			},
			bson.M{
				"status":           model.StatusProcessing,
				"lease_expires_at": bson.M{"$lte": now},
			},
		},
	}
}

// ClaimJob implements the single-claim-wins compare-and-swap
func (m *mongoDB) ClaimJob(ctx context.Context, id, owner string, lease time.Duration) (*model.JobRecord, error) {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"status":           model.StatusProcessing,
			"progress":         0,
			"lease_owner":      owner,
			"lease_expires_at": now.Add(lease),
			"updated_at":       now,
		},
		"$inc":   bson.M{"attempt_count": 1},
		"$unset": bson.M{"retry_at": ""},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var job model.JobRecord
	err := m.contractsCol.FindOneAndUpdate(ctx, claimableFilter(id, now), update, opts).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrClaimLost
		}
		log.Error().Err(err).Str("jobID", id).Str("owner", owner).Msg("Failed to claim job")
		return nil, err
	}

	log.Debug().
		Str("jobID", id).
		Str("owner", owner).
		Int("attempt", job.AttemptCount).
		Msg("Claimed job")

	return &job, nil
}

// CheckpointProgress bumps progress under the owner guard and returns the
// refreshed record
func (m *mongoDB) CheckpointProgress(ctx context.Context, id, owner string, progress int, extractedText string, lease time.Duration) (*model.JobRecord, error) {
	now := time.Now()
	set := bson.M{
		"progress":         progress,
		"lease_expires_at": now.Add(lease),
		"updated_at":       now,
	}
	if extractedText != "" {
		set["extracted_text"] = extractedText
	}

	filter := bson.M{
		"_id":         id,
		"status":      model.StatusProcessing,
		"lease_owner": owner,
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var job model.JobRecord
	err := m.contractsCol.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrClaimLost
		}
		log.Error().Err(err).Str("jobID", id).Int("progress", progress).Msg("Failed to update job progress")
		return nil, err
	}

	log.Debug().Str("jobID", id).Int("progress", progress).Msg("Updated job progress")
	return &job, nil
}

// CompleteJob finalizes a successful job
func (m *mongoDB) CompleteJob(ctx context.Context, id, owner string, data *model.ContractData, score float64, breakdown *model.ScoreBreakdown, missing []string, elapsed time.Duration) error {
	now := time.Now()
	if missing == nil {
		missing = []string{}
	}

	filter := bson.M{
		"_id":         id,
		"status":      model.StatusProcessing,
		"lease_owner": owner,
	}
	update := bson.M{
		"$set": bson.M{
			"status":                  model.StatusCompleted,
			"progress":                100,
			"contract_data":           data,
			"score":                   score,
			"score_breakdown":         breakdown,
			"missing_fields":          missing,
			"lease_owner":             "",
			"completed_at":            now,
			"updated_at":              now,
			"processing_time_seconds": elapsed.Seconds(),
		},
		"$unset": bson.M{"lease_expires_at": "", "retry_at": ""},
	}

	result, err := m.contractsCol.UpdateOne(ctx, filter, update)
	if err != nil {
		log.Error().Err(err).Str("jobID", id).Msg("Failed to complete job")
		return err
	}
	if result.MatchedCount == 0 {
		return ErrClaimLost
	}

	log.Info().Str("jobID", id).Float64("score", score).Msg("Job completed")
	return nil
}

// FailJob finalizes a failed job with its classified error
func (m *mongoDB) FailJob(ctx context.Context, id, owner string, jobErr model.JobError, elapsed time.Duration) error {
	now := time.Now()
	filter := bson.M{
		"_id":         id,
		"status":      model.StatusProcessing,
		"lease_owner": owner,
	}
	update := bson.M{
		"$set": bson.M{
			"status":                  model.StatusFailed,
			"error":                   jobErr,
			"lease_owner":             "",
			"completed_at":            now,
			"updated_at":              now,
			"processing_time_seconds": elapsed.Seconds(),
		},
		"$unset": bson.M{"lease_expires_at": "", "retry_at": ""},
	}

	result, err := m.contractsCol.UpdateOne(ctx, filter, update)
	if err != nil {
		log.Error().Err(err).Str("jobID", id).Str("kind", string(jobErr.Kind)).Msg("Failed to mark job failed")
		return err
	}
	if result.MatchedCount == 0 {
		return ErrClaimLost
	}

	log.Info().Str("jobID", id).Str("kind", string(jobErr.Kind)).Msg("Job failed")
	return nil
}

// ScheduleRetry releases the lease and arms the retry window
func (m *mongoDB) ScheduleRetry(ctx context.Context, id, owner string, retryAt time.Time) error {
	filter := bson.M{
		"_id":         id,
		"status":      model.StatusProcessing,
		"lease_owner": owner,
	}
	update := bson.M{
		"$set": bson.M{
			"lease_owner": "",
			"retry_at":    retryAt,
			"updated_at":  time.Now(),
		},
		"$unset": bson.M{"lease_expires_at": ""},
	}

	result, err := m.contractsCol.UpdateOne(ctx, filter, update)
	if err != nil {
		log.Error().Err(err).Str("jobID", id).Msg("Failed to schedule retry")
		return err
	}
	if result.MatchedCount == 0 {
		return ErrClaimLost
	}

	log.Debug().Str("jobID", id).Time("retryAt", retryAt).Msg("Scheduled retry")
	return nil
}

// RequestCancel flags a non-terminal job for cancellation
func (m *mongoDB) RequestCancel(ctx context.Context, id string) error {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": bson.A{model.StatusPending, model.StatusProcessing}},
	}
	update := bson.M{
		"$set": bson.M{
			"cancel_requested": true,
			"updated_at":       time.Now(),
		},
	}

	result, err := m.contractsCol.UpdateOne(ctx, filter, update)
	if err != nil {
		log.Error().Err(err).Str("jobID", id).Msg("Failed to request cancellation")
		return err
	}
	if result.MatchedCount == 0 {
		return ErrJobNotFound
	}

	log.Info().Str("jobID", id).Msg("Cancellation requested")
	return nil
}

// ReclaimExpiredLeases clears dead workers' leases so their jobs become
// claimable again
func (m *mongoDB) ReclaimExpiredLeases(ctx context.Context, now time.Time) ([]string, error) {
	filter := bson.M{
		"status":           model.StatusProcessing,
		"lease_owner":      bson.M{"$ne": ""},
		"lease_expires_at": bson.M{"$lte": now},
	}

	cursor, err := m.contractsCol.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		log.Error().Err(err).Msg("Failed to scan for expired leases")
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		ids = append(ids, doc.ID)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	update := bson.M{
		"$set": bson.M{
			"lease_owner": "",
			"retry_at":    now,
			"updated_at":  now,
		},
		"$unset": bson.M{"lease_expires_at": ""},
	}

	_, err = m.contractsCol.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}, "lease_expires_at": bson.M{"$lte": now}}, update)
	if err != nil {
		log.Error().Err(err).Int("count", len(ids)).Msg("Failed to reclaim expired leases")
		return nil, err
	}

	log.Warn().Int("count", len(ids)).Msg("Reclaimed expired job leases")
	return ids, nil
}

// ListJobs retrieves a filtered page of job records
func (m *mongoDB) ListJobs(ctx context.Context, filter JobFilter) ([]*model.JobRecord, int64, error) {
	query := bson.M{}

	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.MinScore != nil || filter.MaxScore != nil {
		scoreRange := bson.M{}
		if filter.MinScore != nil {
			scoreRange["$gte"] = *filter.MinScore
		}
		if filter.MaxScore != nil {
			scoreRange["$lte"] = *filter.MaxScore
		}
		query["score"] = scoreRange
	}
	if filter.Search != "" {
		query["$or"] = bson.A{
			bson.M{"filename": bson.M{"$regex": filter.Search, "$options": "i"}},
			bson.M{"contract_data.customer.name": bson.M{"$regex": filter.Search, "$options": "i"}},
			bson.M{"contract_data.vendor.name": bson.M{"$regex": filter.Search, "$options": "i"}},
		}
	}

	total, err := m.contractsCol.CountDocuments(ctx, query)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count jobs")
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	sortDir := 1
	if filter.SortDesc {
		sortDir = -1
	}

	opts := options.Find().
		SetLimit(int64(pageSize)).
		SetSkip(int64((page - 1) * pageSize)).
		SetSort(bson.D{{Key: sortBy, Value: sortDir}})

	cursor, err := m.contractsCol.Find(ctx, query, opts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list jobs")
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var jobs []*model.JobRecord
	if err := cursor.All(ctx, &jobs); err != nil {
		log.Error().Err(err).Msg("Failed to decode jobs")
		return nil, 0, err
	}

	return jobs, total, nil
}

// CountJobsByStatus counts jobs with a specific status
func (m *mongoDB) CountJobsByStatus(ctx context.Context, status model.JobStatus) (int64, error) {
	count, err := m.contractsCol.CountDocuments(ctx, bson.M{"status": status})
	if err != nil {
		log.Error().Err(err).Str("status", string(status)).Msg("Failed to count jobs by status")
		return 0, err
	}

	return count, nil
}
