package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/rx-resolver/internal/common"
	"github.com/joseph-ayodele/rx-resolver/internal/entity"
	"github.com/joseph-ayodele/rx-resolver/internal/pipeline"
)

type fakeProcessor struct {
	mu      sync.Mutex
	seen    []uuid.UUID
	reqIDs  []string
	release chan struct{}
	err     error
}

func (f *fakeProcessor) ProcessQueued(ctx context.Context, id uuid.UUID, doc entity.Document) (pipeline.Outcome, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	f.seen = append(f.seen, id)
	f.reqIDs = append(f.reqIDs, common.RequestIDFromContext(ctx))
	f.mu.Unlock()
	return pipeline.Outcome{PrescriptionID: id, Source: doc.Name()}, f.err
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestProcessorQueue_ProcessesAndDrains(t *testing.T) {
	proc := &fakeProcessor{}
	var (
		mu   sync.Mutex
		done []Job
	)
	q := NewProcessorQueue(proc, quietLogger(),
		WithWorkers(3),
		WithQueueSize(8),
		WithResultHook(func(j Job, _ pipeline.Outcome, err error) {
			assert.NoError(t, err)
			mu.Lock()
			done = append(done, j)
			mu.Unlock()
		}),
	)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{PrescriptionID: uuid.New(), Doc: entity.Document{Path: "rx.png"}, TraceID: "trace-1"}))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.Len(t, proc.seen, 5)
	assert.Len(t, done, 5)
	for _, id := range proc.reqIDs {
		assert.Equal(t, "trace-1", id)
	}
	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{}), ErrQueueClosed)
}

func TestProcessorQueue_FullBuffer(t *testing.T) {
	proc := &fakeProcessor{release: make(chan struct{})}
	q := NewProcessorQueue(proc, quietLogger(), WithWorkers(1), WithQueueSize(1))

	// the single worker holds the first job; the second fills the buffer
	require.NoError(t, q.Enqueue(context.Background(), Job{PrescriptionID: uuid.New()}))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{PrescriptionID: uuid.New()}))
	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{PrescriptionID: uuid.New()}), ErrQueueFull)

	close(proc.release)
	q.Shutdown(context.Background())
	assert.Len(t, proc.seen, 2)
}

func TestProcessorQueue_FailureReachesHook(t *testing.T) {
	boom := errors.New("ocr failed")
	proc := &fakeProcessor{err: boom}
	errs := make(chan error, 1)
	q := NewProcessorQueue(proc, quietLogger(), WithResultHook(func(_ Job, _ pipeline.Outcome, err error) { errs <- err }))

	require.NoError(t, q.Enqueue(context.Background(), Job{PrescriptionID: uuid.New()}))
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("job never finished")
	}
	q.Shutdown(context.Background())
}

func TestProcessorQueue_ShutdownTimeout(t *testing.T) {
	proc := &fakeProcessor{release: make(chan struct{})}
	q := NewProcessorQueue(proc, quietLogger(), WithWorkers(1))
	require.NoError(t, q.Enqueue(context.Background(), Job{PrescriptionID: uuid.New()}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	q.Shutdown(ctx)
	assert.Less(t, time.Since(start), time.Second)

	close(proc.release)
	q.Shutdown(context.Background()) // second call is a no-op
}
