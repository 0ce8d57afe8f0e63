package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
)

// Notifier publishes job events to the parties involved. Delivery is
// best effort; callers log failures and move on.
type Notifier interface {
	Publish(ctx context.Context, taskType string, event Event) error
	Close() error
}

// AsynqNotifier enqueues events onto Redis via asynq for the
// notification worker to deliver.
type AsynqNotifier struct {
	client *asynq.Client
}

// NewAsynqNotifier creates a notifier backed by the Redis instance at
// the given URL.
func NewAsynqNotifier(redisURL string) (*AsynqNotifier, error) {
	opts, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &AsynqNotifier{client: asynq.NewClient(opts)}, nil
}

func (n *AsynqNotifier) Publish(ctx context.Context, taskType string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	queue := QueueEvents
	if taskType == TaskDisputeRaised || taskType == TaskDisputeResolved {
		queue = QueueDisputes
	}

	task := asynq.NewTask(taskType, payload)
	if _, err := n.client.EnqueueContext(ctx, task, asynq.Queue(queue)); err != nil {
		return fmt.Errorf("enqueueing %s: %w", taskType, err)
	}
	return nil
}

func (n *AsynqNotifier) Close() error {
	return n.client.Close()
}

// NopNotifier discards all events. It records them for tests.
type NopNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	TaskType string
	Event    Event
}

// NewNopNotifier creates an empty NopNotifier.
func NewNopNotifier() *NopNotifier {
	return &NopNotifier{}
}

func (n *NopNotifier) Publish(ctx context.Context, taskType string, event Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{TaskType: taskType, Event: event})
	return nil
}

func (n *NopNotifier) Close() error { return nil }

// Count returns how many events of the given task type were published.
func (n *NopNotifier) Count(taskType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, e := range n.events {
		if e.TaskType == taskType {
			count++
		}
	}
	return count
}

// Recipients returns the recipient IDs of all published events of the
// given task type, in publish order.
func (n *NopNotifier) Recipients(taskType string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		if e.TaskType == taskType {
			out = append(out, e.Event.RecipientID)
		}
	}
	return out
}
