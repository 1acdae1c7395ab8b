package jobqueue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefixes
	JobKeyPrefix      = "job:"
	JobQueueKey       = "job_queue"
	JobProcessingKey  = "job_processing"
	JobDedupKeyPrefix = "job_dedup:"

	// Job settings
	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour // Jobs (and dedup markers) expire after 24 hours
)

// ProcessorFunc handles one job of a registered type.
type ProcessorFunc func(ctx context.Context, job *Job) error

// Queue manages background jobs using Redis. The client is injected; the
// queue owns no global connection state.
type Queue struct {
	client     *redis.Client
	workers    int
	processors map[JobType]ProcessorFunc
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

// NewQueue creates a new job queue on top of an existing Redis client
func NewQueue(client *redis.Client, workers int) *Queue {
	if workers <= 0 {
		workers = 3 // Default number of workers
	}

	return &Queue{
		client:     client,
		workers:    workers,
		processors: make(map[JobType]ProcessorFunc),
		stopCh:     make(chan struct{}),
	}
}

// RegisterProcessor attaches a handler for a job type. Must be called before
// Start.
func (q *Queue) RegisterProcessor(jobType JobType, fn ProcessorFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processors[jobType] = fn
}

// Start starts the job queue workers
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.running = true
	log.Infof("[JobQueue] Starting %d workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop stops the job queue workers and waits for in-flight jobs to finish.
// The mutex is released before waiting: workers take it to look up their
// processor, so holding it across the wait would deadlock a busy worker.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	q.mu.Unlock()

	log.Info("[JobQueue] Stopping workers...")
	q.wg.Wait()
	log.Info("[JobQueue] All workers stopped")
}

// Enqueue adds a job to the queue. Jobs are deduplicated by id: a second
// enqueue with the same id within the dedup window is dropped silently.
func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.MaxRetries <= 0 {
		job.MaxRetries = DefaultMaxRetries
	}

	fresh, err := q.client.SetNX(ctx, JobDedupKeyPrefix+job.ID, 1, JobTTL).Result()
	if err != nil {
		return err
	}
	if !fresh {
		log.Infof("[JobQueue] Job %s already enqueued, skipping", job.ID)
		return nil
	}

	now := time.Now()
	job.Status = JobStatusPending
	job.CreatedAt = now
	job.UpdatedAt = now

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err(); err != nil {
		return err
	}
	return q.client.LPush(ctx, JobQueueKey, job.ID).Err()
}

// EnqueuePriceCorrection emits a price-correction job keyed by scope. The
// correlation id doubles as the job id, which is what the queue dedupes on.
func (q *Queue) EnqueuePriceCorrection(ctx context.Context, scope, correlationID string) error {
	payload := PriceCorrectionJobPayload{Scope: scope, CorrelationID: correlationID}
	return q.Enqueue(ctx, &Job{
		ID:      correlationID,
		Type:    JobTypePriceCorrection,
		Payload: payload.ToMap(),
	})
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	log.Infof("[JobQueue] Worker %d started", id)
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			log.Infof("[JobQueue] Worker %d stopping", id)
			return
		default:
			jobID, err := q.client.BLMove(ctx, JobQueueKey, JobProcessingKey, "RIGHT", "LEFT", 2*time.Second).Result()
			if err != nil {
				if err != redis.Nil {
					log.Errorf("[JobQueue] Worker %d pop error: %v", id, err)
					time.Sleep(time.Second)
				}
				continue
			}
			q.process(ctx, jobID)
		}
	}
}

func (q *Queue) process(ctx context.Context, jobID string) {
	defer func() {
		_ = q.client.LRem(ctx, JobProcessingKey, 1, jobID).Err()
	}()

	data, err := q.client.Get(ctx, JobKeyPrefix+jobID).Result()
	if err != nil {
		log.Errorf("[JobQueue] Job data missing for %s: %v", jobID, err)
		return
	}
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		log.Errorf("[JobQueue] Unmarshal error for %s: %v", jobID, err)
		return
	}

	q.mu.Lock()
	fn, ok := q.processors[job.Type]
	q.mu.Unlock()
	if !ok {
		log.Errorf("[JobQueue] No processor registered for job type %s", job.Type)
		q.saveJob(ctx, &job, JobStatusFailed, "no processor registered")
		return
	}

	now := time.Now()
	job.ProcessedAt = &now
	q.saveJob(ctx, &job, JobStatusProcessing, "")

	if err := fn(ctx, &job); err != nil {
		job.RetryCount++
		if job.RetryCount < job.MaxRetries {
			log.Errorf("[JobQueue] Job %s failed (attempt %d/%d), retrying: %v", job.ID, job.RetryCount, job.MaxRetries, err)
			q.saveJob(ctx, &job, JobStatusRetrying, err.Error())
			_ = q.client.LPush(ctx, JobQueueKey, job.ID).Err()
			return
		}
		log.Errorf("[JobQueue] Job %s failed permanently: %v", job.ID, err)
		q.saveJob(ctx, &job, JobStatusFailed, err.Error())
		return
	}

	done := time.Now()
	job.CompletedAt = &done
	q.saveJob(ctx, &job, JobStatusCompleted, "")
}

func (q *Queue) saveJob(ctx context.Context, job *Job, status JobStatus, errMsg string) {
	job.Status = status
	job.ErrorMsg = errMsg
	job.UpdatedAt = time.Now()
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Marshal error for %s: %v", job.ID, err)
		return
	}
	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err(); err != nil {
		log.Errorf("[JobQueue] Save error for %s: %v", job.ID, err)
	}
}
