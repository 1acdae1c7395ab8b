package jobqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueue_Defaults(t *testing.T) {
	q := NewQueue(nil, 0)
	assert.Equal(t, 3, q.workers, "worker count should default to 3")
	assert.NotNil(t, q.processors)

	q = NewQueue(nil, 8)
	assert.Equal(t, 8, q.workers)
}

func TestRegisterProcessor(t *testing.T) {
	q := NewQueue(nil, 1)
	q.RegisterProcessor(JobTypePriceCorrection, func(ctx context.Context, job *Job) error {
		return nil
	})
	assert.Contains(t, q.processors, JobTypePriceCorrection)
}

func TestPriceCorrectionJobPayload_RoundTrip(t *testing.T) {
	payload := PriceCorrectionJobPayload{
		Scope:         "pricing:subscription:sub_100",
		CorrelationID: "corr-1",
	}

	m := payload.ToMap()
	assert.Equal(t, "pricing:subscription:sub_100", m["scope"])
	assert.Equal(t, "corr-1", m["correlation_id"])

	got, err := PriceCorrectionJobPayloadFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, payload, *got)
}

func TestJobConstants(t *testing.T) {
	assert.Equal(t, "job:", JobKeyPrefix)
	assert.Equal(t, "job_queue", JobQueueKey)
	assert.Equal(t, "job_dedup:", JobDedupKeyPrefix)
	assert.Equal(t, 3, DefaultMaxRetries)
	assert.Equal(t, 24*time.Hour, JobTTL)
}

func TestEnqueue_DeduplicatesByJobID(t *testing.T) {
	client := newTestRedisClient(t)
	q := NewQueue(client, 1)
	ctx := context.Background()

	require.NoError(t, q.EnqueuePriceCorrection(ctx, "pricing:subscription:sub_1", "corr-1"))
	require.NoError(t, q.EnqueuePriceCorrection(ctx, "pricing:subscription:sub_1", "corr-1"))

	length, err := client.LLen(ctx, JobQueueKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), length, "re-enqueue with the same id must not push a second job")

	// A distinct correlation id is a distinct job.
	require.NoError(t, q.EnqueuePriceCorrection(ctx, "pricing:subscription:sub_1", "corr-2"))
	length, err = client.LLen(ctx, JobQueueKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), length)

	// The dedup marker and the job record both exist for the first id.
	exists, err := client.Exists(ctx, JobDedupKeyPrefix+"corr-1", JobKeyPrefix+"corr-1").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), exists)
}

func TestStop_ReturnsWhileWorkerIsBusy(t *testing.T) {
	client := newTestRedisClient(t)
	q := NewQueue(client, 1)

	gate := make(chan struct{})
	entered := make(chan struct{})
	q.RegisterProcessor(JobTypePriceCorrection, func(ctx context.Context, job *Job) error {
		close(entered)
		<-gate
		return nil
	})

	require.NoError(t, q.EnqueuePriceCorrection(context.Background(), "pricing:subscription:sub_1", "corr-stop"))
	q.Start()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never picked up the job")
	}

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()
	time.Sleep(100 * time.Millisecond)

	// Stop is now waiting on the busy worker. The queue mutex must stay
	// available: a worker between queue pop and processor lookup takes it,
	// and a Stop that held it through the wait would never finish.
	running := make(chan bool, 1)
	go func() {
		q.mu.Lock()
		r := q.running
		q.mu.Unlock()
		running <- r
	}()
	select {
	case r := <-running:
		assert.False(t, r, "Stop must flip running before waiting")
	case <-time.After(2 * time.Second):
		t.Fatal("Stop holds the queue mutex while waiting for workers")
	}

	close(gate)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the worker finished")
	}
}
