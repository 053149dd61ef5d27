package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sizemo/ocreceipt/internal/models"
)

type orderRecorder struct {
	mu    sync.Mutex
	order []uuid.UUID
}

func (r *orderRecorder) processed() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uuid.UUID(nil), r.order...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestQueueProcessesInSubmissionOrder(t *testing.T) {
	store := newFakeStore()
	blobs := newFakeBlobs()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		name := "uploads/" + uuid.NewString() + ".jpg"
		id := store.addJob(models.JobQueued, name)
		blobs.objects[name] = []byte("bytes")
		ids = append(ids, id)
	}

	rec := &orderRecorder{}
	worker := NewWorker(recordingStore{fakeStore: store, rec: rec}, blobs, okRun(sampleFields()), nil)
	q := New(worker, models.QueueConfig{PollInterval: 10 * time.Millisecond, ShutdownTimeout: 2 * time.Second}, nil)

	// Start with nothing incomplete yet recorded: jobs exist in the store,
	// so Start re-enqueues them in creation order.
	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown()

	waitFor(t, func() bool { return len(rec.processed()) == len(ids) })
	require.Equal(t, ids, rec.processed())
}

// recordingStore notes the order jobs are marked processing.
type recordingStore struct {
	*fakeStore
	rec *orderRecorder
}

func (s recordingStore) MarkJobProcessing(ctx context.Context, id uuid.UUID) error {
	s.rec.mu.Lock()
	s.rec.order = append(s.rec.order, id)
	s.rec.mu.Unlock()
	return s.fakeStore.MarkJobProcessing(ctx, id)
}

func TestQueueEnqueueAfterStart(t *testing.T) {
	store := newFakeStore()
	blobs := newFakeBlobs()

	worker := NewWorker(store, blobs, okRun(sampleFields()), nil)
	q := New(worker, models.QueueConfig{PollInterval: 10 * time.Millisecond, ShutdownTimeout: 2 * time.Second}, nil)
	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown()

	name := "uploads/late.jpg"
	blobs.objects[name] = []byte("bytes")
	id := store.addJob(models.JobQueued, name)
	q.Enqueue(id)

	waitFor(t, func() bool { return store.job(id).Status == models.JobCompleted })
}

func TestQueueRecoversInterruptedJobsOnStart(t *testing.T) {
	store := newFakeStore()
	blobs := newFakeBlobs()

	// Simulates a crash mid-job: one job stuck in processing, one queued.
	stuck := store.addJob(models.JobProcessing, "uploads/stuck.jpg")
	waiting := store.addJob(models.JobQueued, "uploads/waiting.jpg")
	blobs.objects["uploads/stuck.jpg"] = []byte("bytes")
	blobs.objects["uploads/waiting.jpg"] = []byte("bytes")

	worker := NewWorker(store, blobs, okRun(sampleFields()), nil)
	q := New(worker, models.QueueConfig{PollInterval: 10 * time.Millisecond, ShutdownTimeout: 2 * time.Second}, nil)
	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown()

	waitFor(t, func() bool {
		return store.job(stuck).Status == models.JobCompleted &&
			store.job(waiting).Status == models.JobCompleted
	})
}

func TestQueueContinuesAfterJobFailure(t *testing.T) {
	store := newFakeStore()
	blobs := newFakeBlobs()

	bad := store.addJob(models.JobQueued, "uploads/bad.jpg")
	good := store.addJob(models.JobQueued, "uploads/good.jpg")
	// No blob for the bad job: it must fail without stalling the good one.
	blobs.objects["uploads/good.jpg"] = []byte("bytes")

	worker := NewWorker(store, blobs, okRun(sampleFields()), nil)
	q := New(worker, models.QueueConfig{PollInterval: 10 * time.Millisecond, ShutdownTimeout: 2 * time.Second}, nil)
	require.NoError(t, q.Start(context.Background()))
	defer q.Shutdown()

	waitFor(t, func() bool {
		return store.job(bad).Status == models.JobFailed &&
			store.job(good).Status == models.JobCompleted
	})
}

func TestQueueShutdownStopsWorker(t *testing.T) {
	store := newFakeStore()
	blobs := newFakeBlobs()

	worker := NewWorker(store, blobs, okRun(sampleFields()), nil)
	q := New(worker, models.QueueConfig{PollInterval: 10 * time.Millisecond, ShutdownTimeout: 2 * time.Second}, nil)
	require.NoError(t, q.Start(context.Background()))

	q.Shutdown()

	select {
	case <-q.done:
	case <-time.After(time.Second):
		t.Fatal("worker goroutine did not exit")
	}
}
