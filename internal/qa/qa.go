// Package qa answers a question from the document store: empty check,
// retrieval, relevance guard, then grounded generation.
package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/efebarandurmaz/sportsqa/internal/docstore"
	"github.com/efebarandurmaz/sportsqa/internal/guard"
	"github.com/efebarandurmaz/sportsqa/internal/observability"
)

// Outcome says how a question was resolved.
type Outcome string

const (
	OutcomeAnswered      Outcome = observability.OutcomeAnswered
	OutcomeNoContext     Outcome = observability.OutcomeNoContext
	OutcomeEmptyQuestion Outcome = observability.OutcomeEmpty
)

// EmptyQuestion is shown when the question is blank.
const EmptyQuestion = "Please enter a question!"

// Unavailable is shown when retrieval or generation fails. It is never equal
// to guard.Refusal.
const Unavailable = "The answering service is temporarily unavailable. Please try again later."

var (
	// ErrRetrieval wraps failures of the vector search.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrGeneration wraps failures of the generation call.
	ErrGeneration = errors.New("generation failed")
)

// Searcher finds the nearest documents to a question.
type Searcher interface {
	Search(ctx context.Context, question string, k int) (docstore.QueryResult, error)
}

// Answerer produces a grounded answer from retrieved documents.
type Answerer interface {
	Answer(ctx context.Context, question string, docs []string) (string, error)
}

// Timings records how long each stage took.
type Timings struct {
	Retrieval  time.Duration
	Generation time.Duration
}

// Answer is the result of one question.
type Answer struct {
	Outcome   Outcome
	Text      string
	Sources   []string
	Distances []float64
	Timings   Timings
}

// Options tunes the service. TopK <= 0 retrieves nothing, so every question
// is refused.
type Options struct {
	TopK      int
	Threshold float64
	// GenerationTimeout bounds the generation call when positive.
	GenerationTimeout time.Duration
	Metrics           *observability.QAMetrics
}

// DefaultOptions returns k=3 and the default guard threshold.
func DefaultOptions() Options {
	return Options{TopK: 3, Threshold: guard.DefaultThreshold}
}

// Service is safe for concurrent use if its Searcher and Answerer are.
type Service struct {
	searcher Searcher
	answerer Answerer
	opts     Options
	log      *slog.Logger
}

// New creates a Service. A nil logger uses slog.Default.
func New(searcher Searcher, answerer Answerer, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{searcher: searcher, answerer: answerer, opts: opts, log: logger}
}

// Options returns the service options.
func (s *Service) Options() Options { return s.opts }

// Ask answers question. A blank question and a question without relevant
// context are not errors; they return the reminder and the refusal. Any
// returned error wraps ErrRetrieval or ErrGeneration.
func (s *Service) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	ctx, span := observability.StartAskSpan(ctx, len(question))
	defer span.End()

	if s.opts.Metrics != nil {
		s.opts.Metrics.InFlight.Inc()
		defer s.opts.Metrics.InFlight.Dec()
	}

	ans, err := s.ask(ctx, question)
	if err != nil {
		observability.RecordError(span, err)
		observability.RecordOutcome(span, observability.OutcomeError, nil)
		s.record(observability.OutcomeError)
		s.log.Error("question failed", "error", err)
		return ans, err
	}

	observability.RecordOutcome(span, string(ans.Outcome), ans.Sources)
	s.record(string(ans.Outcome))
	s.log.Info("question resolved",
		"outcome", ans.Outcome,
		"sources", ans.Sources,
		"retrieval", ans.Timings.Retrieval,
		"generation", ans.Timings.Generation,
	)
	return ans, nil
}

func (s *Service) ask(ctx context.Context, question string) (Answer, error) {
	if question == "" {
		return Answer{Outcome: OutcomeEmptyQuestion, Text: EmptyQuestion}, nil
	}

	start := time.Now()
	res, err := s.searcher.Search(ctx, question, s.opts.TopK)
	elapsed := time.Since(start)
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordRetrieval(elapsed, res.Distances, err)
	}
	if err != nil {
		return Answer{Timings: Timings{Retrieval: elapsed}}, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	ans := Answer{
		Sources:   res.IDs,
		Distances: res.Distances,
		Timings:   Timings{Retrieval: elapsed},
	}
	s.log.Debug("retrieved context", "ids", res.IDs, "distances", res.Distances)

	if !guard.IsRelevant(res.Distances, s.opts.Threshold) {
		ans.Outcome = OutcomeNoContext
		ans.Text = guard.Refusal
		return ans, nil
	}

	genCtx := ctx
	if s.opts.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.opts.GenerationTimeout)
		defer cancel()
	}

	start = time.Now()
	text, err := s.answerer.Answer(genCtx, question, res.Documents)
	ans.Timings.Generation = time.Since(start)
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordGeneration(ans.Timings.Generation, err)
	}
	if err != nil {
		return ans, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	ans.Outcome = OutcomeAnswered
	ans.Text = strings.TrimSpace(text)
	return ans, nil
}

func (s *Service) record(outcome string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordQuestion(outcome)
	}
}

// UserMessage returns the text to show for a failed Ask.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return Unavailable
}
