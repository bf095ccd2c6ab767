package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/postpilotapp/postpilot/internal/queue"
	"github.com/postpilotapp/postpilot/internal/repository"
)

// DispatcherJob polls for due queue entries and hands each claimed entry to
// the worker pool. The claim is a guarded update, so two overlapping ticks
// never process the same entry twice.
type DispatcherJob struct {
	qr        repository.QueueRepository
	client    *asynq.Client
	batchSize int
}

func NewDispatcherJob(qr repository.QueueRepository, client *asynq.Client, batchSize int) *DispatcherJob {
	return &DispatcherJob{
		qr:        qr,
		client:    client,
		batchSize: batchSize,
	}
}

func (j *DispatcherJob) Dispatch() {
	ctx := context.Background()
	now := time.Now()

	entries, err := j.qr.ListDue(ctx, now, j.batchSize)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, entry := range entries {
		claimed, err := j.qr.Claim(ctx, entry.ID, now)
		if err != nil {
			slog.Info(err.Error())
			continue
		}
		if !claimed {
			continue
		}

		if err := queue.EnqueueEntry(j.client, queue.PublishEntryPayload{EntryID: entry.ID}); err != nil {
			slog.Info(err.Error())
		}
	}
}
