package temporal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
)

// ExecuteAsk starts AskWorkflow on taskQueue and waits for its result.
func ExecuteAsk(ctx context.Context, c client.Client, taskQueue string, in AskInput) (*AskOutput, error) {
	opts := client.StartWorkflowOptions{
		ID:        "sportsqa-ask-" + uuid.NewString(),
		TaskQueue: taskQueue,
	}
	run, err := c.ExecuteWorkflow(ctx, opts, AskWorkflow, in)
	if err != nil {
		return nil, fmt.Errorf("starting ask workflow: %w", err)
	}

	var out AskOutput
	if err := run.Get(ctx, &out); err != nil {
		return nil, fmt.Errorf("ask workflow %s: %w", run.GetID(), err)
	}
	return &out, nil
}
