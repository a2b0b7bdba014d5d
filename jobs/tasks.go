package jobs

import (
	"context"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGrantsWarmup rebuilds the cached permission set of every role.
	TaskGrantsWarmup = "authz:cache:warmup"
	// TaskGraphIntegrity scans the role/policy/permission graph for rows
	// that violate its semantic constraints.
	TaskGraphIntegrity = "rbac:integrity"
)

// NewGrantsWarmupTask constructs an Asynq task. The task carries no payload:
// a warmup always covers every role.
func NewGrantsWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskGrantsWarmup, nil)
}

// NewGraphIntegrityTask constructs an Asynq task.
func NewGraphIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskGraphIntegrity, nil)
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueGrantsWarmup schedules a full cache warmup.
func (c *Client) EnqueueGrantsWarmup(ctx context.Context) (*asynq.TaskInfo, error) {
	return c.client.EnqueueContext(ctx, NewGrantsWarmupTask(), asynq.Queue(QueueDefault))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
