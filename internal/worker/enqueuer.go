package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// AsynqEnqueuer submits import tasks from the web process.
type AsynqEnqueuer struct {
	client *asynq.Client
}

func NewAsynqEnqueuer(client *asynq.Client) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: client}
}

func (e *AsynqEnqueuer) EnqueueImport(ctx context.Context, jobID string) error {
	task, err := NewImportTask(jobID)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeImportProcess, err)
	}
	return nil
}
