package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractiq/internal/cache"
	"contractiq/internal/config"
	"contractiq/internal/database"
	"contractiq/internal/model"
	"contractiq/internal/storage"
)

// fakeJobDB mirrors the record store's claim and owner-guard semantics
// in memory.
type fakeJobDB struct {
	mu   sync.Mutex
	jobs map[string]*model.JobRecord
}

func newFakeJobDB() *fakeJobDB {
	return &fakeJobDB{jobs: make(map[string]*model.JobRecord)}
}

func (f *fakeJobDB) get(id string) *model.JobRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[id]
	if job == nil {
		return nil
	}
	copied := *job
	return &copied
}

func (f *fakeJobDB) CreateJob(_ context.Context, job *model.JobRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.Status = model.StatusPending
	job.CreatedAt = time.Now()
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeJobDB) GetJobByID(_ context.Context, id string) (*model.JobRecord, error) {
	job := f.get(id)
	if job == nil {
		return nil, database.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeJobDB) ClaimJob(_ context.Context, id, owner string, lease time.Duration) (*model.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return nil, database.ErrClaimLost
	}

	now := time.Now()
	claimable := job.Status == model.StatusPending ||
		(job.Status == model.StatusProcessing && job.LeaseOwner == "" && job.RetryAt != nil && !job.RetryAt.After(now)) ||
		(job.Status == model.StatusProcessing && job.LeaseExpiresAt != nil && !job.LeaseExpiresAt.After(now))
	if !claimable {
		return nil, database.ErrClaimLost
	}

	expires := now.Add(lease)
	job.Status = model.StatusProcessing
	job.Progress = 0
	job.LeaseOwner = owner
	job.LeaseExpiresAt = &expires
	job.RetryAt = nil
	job.AttemptCount++

	copied := *job
	return &copied, nil
}

func (f *fakeJobDB) CheckpointProgress(_ context.Context, id, owner string, progress int, extractedText string, lease time.Duration) (*model.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok || job.Status != model.StatusProcessing || job.LeaseOwner != owner {
		return nil, database.ErrClaimLost
	}

	expires := time.Now().Add(lease)
	job.Progress = progress
	job.LeaseExpiresAt = &expires
	if extractedText != "" {
		job.ExtractedText = extractedText
	}

	copied := *job
	return &copied, nil
}

func (f *fakeJobDB) CompleteJob(_ context.Context, id, owner string, data *model.ContractData, score float64, breakdown *model.ScoreBreakdown, missing []string, elapsed time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok || job.Status != model.StatusProcessing || job.LeaseOwner != owner {
		return database.ErrClaimLost
	}

	job.Status = model.StatusCompleted
	job.Progress = 100
	job.ContractData = data
	job.Score = score
	job.ScoreBreakdown = breakdown
	job.MissingFields = missing
	job.LeaseOwner = ""
	job.LeaseExpiresAt = nil
	job.ProcessingTimeSeconds = elapsed.Seconds()
	return nil
}

func (f *fakeJobDB) FailJob(_ context.Context, id, owner string, jobErr model.JobError, elapsed time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok || job.Status != model.StatusProcessing || job.LeaseOwner != owner {
		return database.ErrClaimLost
	}

	job.Status = model.StatusFailed
	job.Error = &jobErr
	job.LeaseOwner = ""
	job.LeaseExpiresAt = nil
	job.ProcessingTimeSeconds = elapsed.Seconds()
	return nil
}

func (f *fakeJobDB) ScheduleRetry(_ context.Context, id, owner string, retryAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok || job.Status != model.StatusProcessing || job.LeaseOwner != owner {
		return database.ErrClaimLost
	}

	job.LeaseOwner = ""
	job.LeaseExpiresAt = nil
	job.RetryAt = &retryAt
	return nil
}

func (f *fakeJobDB) RequestCancel(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok || job.Status.Terminal() {
		return database.ErrJobNotFound
	}
	job.CancelRequested = true
	return nil
}

func (f *fakeJobDB) ReclaimExpiredLeases(_ context.Context, now time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string
	for id, job := range f.jobs {
		if job.Status == model.StatusProcessing && job.LeaseOwner != "" &&
			job.LeaseExpiresAt != nil && !job.LeaseExpiresAt.After(now) {
			job.LeaseOwner = ""
			job.LeaseExpiresAt = nil
			retryAt := now
			job.RetryAt = &retryAt
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeJobDB) ListJobs(_ context.Context, _ database.JobFilter) ([]*model.JobRecord, int64, error) {
	return nil, 0, nil
}

func (f *fakeJobDB) CountJobsByStatus(_ context.Context, status model.JobStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for _, job := range f.jobs {
		if job.Status == status {
			n++
		}
	}
	return n, nil
}

type fakeStore struct {
	docs map[string][]byte
}

func (f *fakeStore) Put(_ context.Context, key string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.docs[key] = data
	return key, nil
}

func (f *fakeStore) Get(_ context.Context, ref string) ([]byte, error) {
	doc, ok := f.docs[ref]
	if !ok {
		return nil, storage.ErrDocumentNotFound
	}
	return doc, nil
}

func (f *fakeStore) Delete(_ context.Context, ref string) error {
	delete(f.docs, ref)
	return nil
}

func (f *fakeStore) TestConnection(_ context.Context) error { return nil }

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []string
	retries  []time.Duration
}

func (f *fakeQueue) EnqueueJob(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, id)
	return nil
}

func (f *fakeQueue) EnqueueRetry(id string, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, id)
	f.retries = append(f.retries, delay)
	return nil
}

func (f *fakeQueue) Consume(string) (<-chan amqp.Delivery, error) {
	ch := make(chan amqp.Delivery)
	close(ch)
	return ch, nil
}

type fakeCache struct {
	mu           sync.Mutex
	invalidation int
}

func (f *fakeCache) GetStatus(context.Context, string) (*cache.StatusSnapshot, error) {
	return nil, cache.ErrCacheMiss
}
func (f *fakeCache) SetStatus(context.Context, string, cache.StatusSnapshot) error { return nil }
func (f *fakeCache) InvalidateStatus(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidation++
	return nil
}
func (f *fakeCache) Ping(context.Context) error { return nil }
func (f *fakeCache) Close() error               { return nil }

type fakeTextExtractor struct {
	text string
	err  error
}

func (f *fakeTextExtractor) ExtractText(context.Context, []byte) (string, error) {
	return f.text, f.err
}

type fakeStructured struct {
	fn func(ctx context.Context) (*model.ContractData, error)
}

func (f *fakeStructured) ExtractStructured(ctx context.Context, _ string) (*model.ContractData, error) {
	return f.fn(ctx)
}

func testProcessingConfig() config.ProcessingConfig {
	return config.ProcessingConfig{
		Workers:              1,
		MaxAttempts:          3,
		RetryBaseSeconds:     10,
		RetryCapSeconds:      300,
		AttemptTimeoutSecs:   30,
		LeaseSeconds:         60,
		ReclaimIntervalSecs:  60,
		ChunkTokenThreshold:  12000,
		MaxUploadSizeBytes:   50 << 20,
		StoredTextLimitChars: 5000,
	}
}

func seedJob(t *testing.T, db *fakeJobDB, store *fakeStore, id string) {
	t.Helper()
	store.docs[id] = []byte("%PDF-1.7 test document")
	require.NoError(t, db.CreateJob(context.Background(), &model.JobRecord{
		ID:             id,
		Filename:       "contract.pdf",
		RawDocumentRef: id,
	}))
}

func newTestExecutor(db *fakeJobDB, store *fakeStore, q *fakeQueue, structured *fakeStructured) *Executor {
	return NewExecutor(db, store, q, &fakeCache{},
		&fakeTextExtractor{text: "--- Page 1 ---\nSome contract text"},
		structured, testProcessingConfig())
}

func TestHandleCompletesJob(t *testing.T) {
	db := newFakeJobDB()
	store := &fakeStore{docs: make(map[string][]byte)}
	q := &fakeQueue{}
	seedJob(t, db, store, "job-1")

	structured := &fakeStructured{fn: func(context.Context) (*model.ContractData, error) {
		return &model.ContractData{
			Customer: &model.PartyInfo{Name: "Acme"},
			Vendor:   &model.PartyInfo{Name: "Globex"},
		}, nil
	}}

	e := newTestExecutor(db, store, q, structured)
	e.handle(context.Background(), "job-1")

	job := db.get("job-1")
	require.NotNil(t, job)
	assert.Equal(t, model.StatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, 1, job.AttemptCount)
	assert.Equal(t, 8.0, job.Score)
	assert.NotEmpty(t, job.ExtractedText)
	assert.Empty(t, job.LeaseOwner)
	assert.Nil(t, job.Error)
}

func TestHandleFailsImmediatelyOnNonRetryableError(t *testing.T) {
	db := newFakeJobDB()
	store := &fakeStore{docs: make(map[string][]byte)}
	q := &fakeQueue{}
	seedJob(t, db, store, "job-1")

	structured := &fakeStructured{fn: func(context.Context) (*model.ContractData, error) {
		return nil, model.Errorf(model.KindMalformedResponse, "response violates schema")
	}}

	e := newTestExecutor(db, store, q, structured)
	e.handle(context.Background(), "job-1")

	job := db.get("job-1")
	assert.Equal(t, model.StatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, model.KindMalformedResponse, job.Error.Kind)
	assert.Equal(t, 1, job.AttemptCount)
	assert.Empty(t, q.retries)
}

func TestHandleRetriesTransientFailuresUntilExhausted(t *testing.T) {
	db := newFakeJobDB()
	store := &fakeStore{docs: make(map[string][]byte)}
	q := &fakeQueue{}
	seedJob(t, db, store, "job-1")

	structured := &fakeStructured{fn: func(context.Context) (*model.ContractData, error) {
		return nil, model.Errorf(model.KindTransient, "upstream unavailable")
	}}

	e := newTestExecutor(db, store, q, structured)

	// First attempt: retry scheduled with the base delay
	e.handle(context.Background(), "job-1")
	job := db.get("job-1")
	assert.Equal(t, model.StatusProcessing, job.Status)
	assert.Empty(t, job.LeaseOwner)
	require.NotNil(t, job.RetryAt)
	require.Len(t, q.retries, 1)
	assert.Equal(t, 10*time.Second, q.retries[0])

	// Second attempt: doubled delay
	past := time.Now().Add(-time.Second)
	db.mu.Lock()
	db.jobs["job-1"].RetryAt = &past
	db.mu.Unlock()
	e.handle(context.Background(), "job-1")
	require.Len(t, q.retries, 2)
	assert.Equal(t, 20*time.Second, q.retries[1])

	// Third attempt hits the ceiling and fails terminally
	db.mu.Lock()
	db.jobs["job-1"].RetryAt = &past
	db.mu.Unlock()
	e.handle(context.Background(), "job-1")

	job = db.get("job-1")
	assert.Equal(t, model.StatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, model.KindRetriesExhausted, job.Error.Kind)
	assert.Equal(t, 3, job.AttemptCount)
	assert.Len(t, q.retries, 2)
}

func TestHandleRecoversAfterTransientFailure(t *testing.T) {
	db := newFakeJobDB()
	store := &fakeStore{docs: make(map[string][]byte)}
	q := &fakeQueue{}
	seedJob(t, db, store, "job-1")

	var calls int
	structured := &fakeStructured{fn: func(context.Context) (*model.ContractData, error) {
		calls++
		if calls < 3 {
			return nil, model.Errorf(model.KindTransient, "upstream unavailable")
		}
		return &model.ContractData{Customer: &model.PartyInfo{Name: "Acme"}}, nil
	}}

	e := newTestExecutor(db, store, q, structured)
	past := time.Now().Add(-time.Second)
	for i := 0; i < 3; i++ {
		e.handle(context.Background(), "job-1")
		db.mu.Lock()
		db.jobs["job-1"].RetryAt = &past
		db.mu.Unlock()
	}

	job := db.get("job-1")
	assert.Equal(t, model.StatusCompleted, job.Status)
	assert.Equal(t, 3, job.AttemptCount)
	assert.Nil(t, job.Error)
	assert.Len(t, q.retries, 2)
}

func TestHandleFailsOnUnreadableDocument(t *testing.T) {
	db := newFakeJobDB()
	store := &fakeStore{docs: make(map[string][]byte)}
	q := &fakeQueue{}
	seedJob(t, db, store, "job-1")

	structured := &fakeStructured{fn: func(context.Context) (*model.ContractData, error) {
		t.Fatal("structured extraction should not run for unreadable documents")
		return nil, nil
	}}

	e := NewExecutor(db, store, q, &fakeCache{},
		&fakeTextExtractor{err: model.Errorf(model.KindUnreadable, "no strategy produced text")},
		structured, testProcessingConfig())
	e.handle(context.Background(), "job-1")

	job := db.get("job-1")
	assert.Equal(t, model.StatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, model.KindUnreadable, job.Error.Kind)
	assert.Equal(t, 1, job.AttemptCount)
	assert.Empty(t, q.retries)
}

func TestHandleHonorsCancellationBeforeStart(t *testing.T) {
	db := newFakeJobDB()
	store := &fakeStore{docs: make(map[string][]byte)}
	q := &fakeQueue{}
	seedJob(t, db, store, "job-1")
	require.NoError(t, db.RequestCancel(context.Background(), "job-1"))

	called := false
	structured := &fakeStructured{fn: func(context.Context) (*model.ContractData, error) {
		called = true
		return &model.ContractData{}, nil
	}}

	e := newTestExecutor(db, store, q, structured)
	e.handle(context.Background(), "job-1")

	job := db.get("job-1")
	assert.Equal(t, model.StatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, model.KindCancelled, job.Error.Kind)
	assert.False(t, called)
}

func TestHandleHonorsCancellationAtCheckpoint(t *testing.T) {
	db := newFakeJobDB()
	store := &fakeStore{docs: make(map[string][]byte)}
	q := &fakeQueue{}
	seedJob(t, db, store, "job-1")

	// The cancel arrives while structured extraction runs, so the next
	// checkpoint observes it.
	structured := &fakeStructured{fn: func(ctx context.Context) (*model.ContractData, error) {
		require.NoError(t, db.RequestCancel(ctx, "job-1"))
		return &model.ContractData{}, nil
	}}

	e := newTestExecutor(db, store, q, structured)
	e.handle(context.Background(), "job-1")

	job := db.get("job-1")
	assert.Equal(t, model.StatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, model.KindCancelled, job.Error.Kind)
}

func TestClaimJobSingleWinnerUnderContention(t *testing.T) {
	db := newFakeJobDB()
	store := &fakeStore{docs: make(map[string][]byte)}
	seedJob(t, db, store, "job-1")

	const workers = 8
	start := make(chan struct{})
	winners := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			owner := fmt.Sprintf("worker-%d", n)
			<-start
			if _, err := db.ClaimJob(context.Background(), "job-1", owner, time.Minute); err == nil {
				winners <- owner
			}
		}(i)
	}
	close(start)
	wg.Wait()
	close(winners)

	var claimed []string
	for owner := range winners {
		claimed = append(claimed, owner)
	}
	require.Len(t, claimed, 1)

	job := db.get("job-1")
	assert.Equal(t, model.StatusProcessing, job.Status)
	assert.Equal(t, claimed[0], job.LeaseOwner)
	assert.Equal(t, 1, job.AttemptCount)
}

func TestHandleSkipsUnclaimableJob(t *testing.T) {
	db := newFakeJobDB()
	store := &fakeStore{docs: make(map[string][]byte)}
	q := &fakeQueue{}
	seedJob(t, db, store, "job-1")

	// Another worker holds a live lease
	future := time.Now().Add(time.Hour)
	db.mu.Lock()
	db.jobs["job-1"].Status = model.StatusProcessing
	db.jobs["job-1"].LeaseOwner = "other-worker"
	db.jobs["job-1"].LeaseExpiresAt = &future
	db.jobs["job-1"].AttemptCount = 1
	db.mu.Unlock()

	structured := &fakeStructured{fn: func(context.Context) (*model.ContractData, error) {
		t.Fatal("should not process a job claimed by another worker")
		return nil, nil
	}}

	e := newTestExecutor(db, store, q, structured)
	e.handle(context.Background(), "job-1")

	job := db.get("job-1")
	assert.Equal(t, "other-worker", job.LeaseOwner)
	assert.Equal(t, 1, job.AttemptCount)
}

func TestHandleIgnoresDuplicateDeliveryAfterCompletion(t *testing.T) {
	db := newFakeJobDB()
	store := &fakeStore{docs: make(map[string][]byte)}
	q := &fakeQueue{}
	seedJob(t, db, store, "job-1")

	structured := &fakeStructured{fn: func(context.Context) (*model.ContractData, error) {
		return &model.ContractData{}, nil
	}}

	e := newTestExecutor(db, store, q, structured)
	e.handle(context.Background(), "job-1")
	e.handle(context.Background(), "job-1")

	job := db.get("job-1")
	assert.Equal(t, model.StatusCompleted, job.Status)
	assert.Equal(t, 1, job.AttemptCount)
}

func TestHandleFailsPermanentlyWhenDocumentMissing(t *testing.T) {
	db := newFakeJobDB()
	store := &fakeStore{docs: make(map[string][]byte)}
	q := &fakeQueue{}
	require.NoError(t, db.CreateJob(context.Background(), &model.JobRecord{
		ID:             "job-1",
		RawDocumentRef: "gone",
	}))

	structured := &fakeStructured{fn: func(context.Context) (*model.ContractData, error) {
		return &model.ContractData{}, nil
	}}

	e := newTestExecutor(db, store, q, structured)
	e.handle(context.Background(), "job-1")

	job := db.get("job-1")
	assert.Equal(t, model.StatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, model.KindPermanent, job.Error.Kind)
}
