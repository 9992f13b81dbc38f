package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/efebarandurmaz/sportsqa/internal/docstore"
	"github.com/efebarandurmaz/sportsqa/internal/qa"
)

// RetrieveInput is the argument of RetrieveActivity.
type RetrieveInput struct {
	Question string
	TopK     int
}

// GenerateInput is the argument of GenerateActivity.
type GenerateInput struct {
	Question  string
	Documents []string
}

// Activities holds the shared resources the activities run against.
// Register a single value with the worker.
type Activities struct {
	Collection qa.Searcher
	Answerer   qa.Answerer
}

// RetrieveActivity returns the nearest documents to the question.
func (a *Activities) RetrieveActivity(ctx context.Context, in RetrieveInput) (docstore.QueryResult, error) {
	activity.GetLogger(ctx).Info("Searching documents", "top_k", in.TopK)

	res, err := a.Collection.Search(ctx, in.Question, in.TopK)
	if err != nil {
		return docstore.QueryResult{}, fmt.Errorf("%w: %w", qa.ErrRetrieval, err)
	}
	return res, nil
}

// GenerateActivity answers the question from the given documents.
func (a *Activities) GenerateActivity(ctx context.Context, in GenerateInput) (string, error) {
	activity.GetLogger(ctx).Info("Generating answer", "documents", len(in.Documents))

	text, err := a.Answerer.Answer(ctx, in.Question, in.Documents)
	if err != nil {
		return "", fmt.Errorf("%w: %w", qa.ErrGeneration, err)
	}
	return text, nil
}
