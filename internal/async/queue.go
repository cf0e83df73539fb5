package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/rx-resolver/internal/entity"
)

var (
	ErrQueueFull   = errors.New("queue full")
	ErrQueueClosed = errors.New("queue is shutting down")
)

// Job is one queued document. PrescriptionID refers to a row already created in QUEUED state.
type Job struct {
	PrescriptionID uuid.UUID
	Doc            entity.Document
	SubmittedAt    time.Time
	TraceID        string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
