package temporal

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/efebarandurmaz/sportsqa/internal/docstore"
	"github.com/efebarandurmaz/sportsqa/internal/guard"
	"github.com/efebarandurmaz/sportsqa/internal/qa"
)

// maxAttempts bounds retrieval retries. Generation runs once; the provider
// layer retries its own calls.
const maxAttempts = 3

// AskInput holds the workflow parameters. Nil TopK and Threshold select the
// defaults; a set value is used as is, zero included.
type AskInput struct {
	Question  string
	TopK      *int
	Threshold *float64
}

// Options returns the retrieval options the input resolves to.
func (in AskInput) Options() qa.Options {
	opts := qa.DefaultOptions()
	if in.TopK != nil {
		opts.TopK = *in.TopK
	}
	if in.Threshold != nil {
		opts.Threshold = *in.Threshold
	}
	return opts
}

// AskOutput holds the workflow result.
type AskOutput struct {
	Outcome   string
	Answer    string
	Sources   []string
	Distances []float64
}

// AskWorkflow answers one question durably: retrieval and generation run as
// separate activities, and the relevance guard runs in between.
func AskWorkflow(ctx workflow.Context, input AskInput) (*AskOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return &AskOutput{Outcome: string(qa.OutcomeEmptyQuestion), Answer: qa.EmptyQuestion}, nil
	}

	opts := input.Options()

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    maxAttempts,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	genOpts := ao
	genOpts.RetryPolicy = &temporal.RetryPolicy{MaximumAttempts: 1}
	genCtx := workflow.WithActivityOptions(ctx, genOpts)

	var a *Activities

	// Step 1: retrieval
	var res docstore.QueryResult
	if err := workflow.ExecuteActivity(ctx, a.RetrieveActivity, RetrieveInput{Question: question, TopK: opts.TopK}).Get(ctx, &res); err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	out := &AskOutput{Sources: res.IDs, Distances: res.Distances}

	// Step 2: guard
	if !guard.IsRelevant(res.Distances, opts.Threshold) {
		logger.Info("No relevant context", "closest", guard.Min(res.Distances))
		out.Outcome = string(qa.OutcomeNoContext)
		out.Answer = guard.Refusal
		return out, nil
	}

	// Step 3: generation
	var text string
	if err := workflow.ExecuteActivity(genCtx, a.GenerateActivity, GenerateInput{Question: question, Documents: res.Documents}).Get(ctx, &text); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	out.Outcome = string(qa.OutcomeAnswered)
	out.Answer = text
	return out, nil
}
