package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Worker consumes queued notification tasks and delivers them. Delivery
// currently writes structured logs; a push or SMS gateway slots in
// behind deliver without touching the queueing side.
type Worker struct {
	server *asynq.Server
	logger *slog.Logger
}

// NewWorker creates a notification worker reading from the Redis
// instance at the given URL.
func NewWorker(redisURL string, logger *slog.Logger) (*Worker, error) {
	opts, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	server := asynq.NewServer(opts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDisputes: 10,
			QueueEvents:   5,
		},
	})
	return &Worker{server: server, logger: logger}, nil
}

// Run blocks processing tasks until Shutdown is called.
func (w *Worker) Run() error {
	mux := asynq.NewServeMux()
	for _, taskType := range []string{
		TaskQuoteSubmitted, TaskQuoteAccepted, TaskQuoteRejected,
		TaskJobFunded, TaskWorkerOnWay, TaskWorkerArrived, TaskJobCompleted,
		TaskJobApproved, TaskJobCancelled, TaskJobExpired,
		TaskDisputeRaised, TaskDisputeResolved,
		TaskWorkRequested, TaskWorkApproved,
	} {
		mux.HandleFunc(taskType, w.deliver)
	}
	return w.server.Run(mux)
}

// Shutdown stops the worker, waiting for in-flight tasks.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) deliver(ctx context.Context, t *asynq.Task) error {
	var event Event
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return fmt.Errorf("decoding %s payload: %w", t.Type(), err)
	}

	w.logger.InfoContext(ctx, "notification delivered",
		"task_type", t.Type(),
		"job_id", event.JobID,
		"recipient_id", event.RecipientID,
		"title", event.Title,
	)
	return nil
}
