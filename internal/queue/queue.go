package queue

import (
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const TaskTypePublishEntry = "publish:entry"

// PublishEntryPayload carries exactly one queue entry, so every (post,
// platform) pair is processed and retried on its own.
type PublishEntryPayload struct {
	EntryID int64 `json:"entry_id"`
}

// EnqueueEntry hands a claimed queue entry to the worker pool. Retries are
// driven by rescheduling the database row, not by asynq, so the task itself
// never retries.
func EnqueueEntry(client *asynq.Client, payload PublishEntryPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishEntry, taskPayload)

	if _, err := client.Enqueue(task, asynq.MaxRetry(0)); err != nil {
		return err
	}

	slog.Info("queue entry enqueued", "entry_id", payload.EntryID)
	return nil
}
