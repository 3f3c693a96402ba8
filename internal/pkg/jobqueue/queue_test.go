package jobqueue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewQueue tests the queue constructor
func TestNewQueue(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, 3},
		{"Negative workers", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueueWithClient(redis.NewClient(&redis.Options{}), tt.workers)

			assert.NotNil(t, queue)
			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.Equal(t, tt.expectedWorkers, cap(queue.workerPool))
			assert.NotNil(t, queue.stopCh)
			assert.False(t, queue.running)
			assert.Equal(t, time.Minute, queue.retryDelay)
		})
	}
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "job:", JobKeyPrefix)
	assert.Equal(t, "job_queue", JobQueueKey)
	assert.Equal(t, "job_processing", JobProcessingKey)
	assert.Equal(t, "job_stats", JobStatsKey)
	assert.Equal(t, 3, DefaultMaxRetries)
	assert.Equal(t, 24*time.Hour, JobTTL)
}

func TestRegisterHandlerReplaces(t *testing.T) {
	q := NewQueueWithClient(redis.NewClient(&redis.Options{}), 1)
	_, ok := q.handler(JobTypeReceiptDelivery)
	assert.False(t, ok)

	var which string
	q.RegisterHandler(JobTypeReceiptDelivery, func(context.Context, *Job) error { which = "first"; return nil })
	q.RegisterHandler(JobTypeReceiptDelivery, func(context.Context, *Job) error { which = "second"; return nil })

	h, ok := q.handler(JobTypeReceiptDelivery)
	require.True(t, ok)
	require.NoError(t, h(context.Background(), &Job{}))
	assert.Equal(t, "second", which)
}

func TestQueueProcessesRegisteredJob(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	q := NewQueueWithClient(client, 2)

	got := make(chan uint, 1)
	q.RegisterHandler(JobTypeReceiptDelivery, func(_ context.Context, job *Job) error {
		p, err := ReceiptDeliveryPayloadFromMap(job.Payload)
		if err != nil {
			return err
		}
		got <- p.ReceiptID
		return nil
	})

	q.Start()
	defer q.Stop()

	job, err := q.EnqueueJob(JobTypeReceiptDelivery, ReceiptDeliveryPayload{ReceiptID: 12, PaymentID: 34}.ToMap())
	require.NoError(t, err)

	select {
	case id := <-got:
		assert.EqualValues(t, 12, id)
	case <-time.After(5 * time.Second):
		t.Fatal("job was not processed")
	}

	assert.Eventually(t, func() bool {
		stats, err := q.GetJobStats(context.Background())
		return err == nil && stats[JobStatusCompleted] == 1
	}, 3*time.Second, 20*time.Millisecond)

	_, err = q.GetJob(context.Background(), job.ID)
	assert.ErrorIs(t, err, redis.Nil, "completed jobs are removed")
}

func TestQueueRetriesFailedJob(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	q := NewQueueWithClient(client, 1)
	q.retryDelay = 10 * time.Millisecond

	var attempts atomic.Int32
	q.RegisterHandler(JobTypeReceiptDelivery, func(context.Context, *Job) error {
		if attempts.Add(1) < 2 {
			return errors.New("smtp unavailable")
		}
		return nil
	})

	q.Start()
	defer q.Stop()

	_, err := q.EnqueueJob(JobTypeReceiptDelivery, ReceiptDeliveryPayload{ReceiptID: 1}.ToMap())
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return attempts.Load() == 2 }, 5*time.Second, 20*time.Millisecond)
}

func TestRecoverStuckJobs(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	q := NewQueueWithClient(client, 1)
	ctx := context.Background()

	job, err := q.EnqueueJob(JobTypeReceiptDelivery, ReceiptDeliveryPayload{ReceiptID: 1}.ToMap())
	require.NoError(t, err)
	dequeued, err := q.dequeueJob(ctx)
	require.NoError(t, err)
	dequeued.MarkAsProcessing()
	q.updateJob(ctx, dequeued)

	assert.Equal(t, 0, q.recoverStuck(ctx, time.Hour, time.Now()))
	assert.Equal(t, 1, q.recoverStuck(ctx, time.Hour, time.Now().Add(2*time.Hour)))

	size, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, size)
	processing, err := q.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, processing)

	recovered, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, recovered.Status)
}
