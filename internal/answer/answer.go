// Package answer builds the grounded prompt and turns a generation call into
// a clean answer string.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/efebarandurmaz/sportsqa/internal/llm"
	"github.com/efebarandurmaz/sportsqa/internal/observability"
)

// DefaultMaxTokens caps generated output when the caller sets no limit.
const DefaultMaxTokens = 150

const promptTemplate = `Context information:
%s

Question: %s

Instructions: Answer ONLY using the information provided above. If the answer is not in the context, respond with "I don't know." Do not add information from outside the context.

Answer:`

// BuildContext labels each document "Document N: " in the order received and
// separates them with a blank line.
func BuildContext(docs []string) string {
	var b strings.Builder
	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Document %d: %s", i+1, d)
	}
	return b.String()
}

// BuildPrompt renders the grounded question prompt.
func BuildPrompt(question string, docs []string) string {
	return fmt.Sprintf(promptTemplate, BuildContext(docs), question)
}

// ErrNoProvider is returned when no generation provider is configured.
var ErrNoProvider = errors.New("no generation provider configured")

// Generator produces text for a prompt, emitting at most maxTokens tokens.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// ProviderGenerator adapts an llm.Provider to Generator.
type ProviderGenerator struct {
	Provider    llm.Provider
	Model       string
	Temperature *float64
}

// NewProviderGenerator returns a Generator backed by p.
func NewProviderGenerator(p llm.Provider, model string) *ProviderGenerator {
	return &ProviderGenerator{Provider: p, Model: model}
}

func (g *ProviderGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if g.Provider == nil {
		return "", ErrNoProvider
	}
	ctx, span := observability.StartLLMSpan(ctx, g.Provider.Name(), g.Model)
	defer span.End()

	opts := llm.WithMaxTokens(maxTokens)
	opts.Temperature = g.Temperature

	start := time.Now()
	resp, err := g.Provider.Complete(ctx, llm.UserPrompt(prompt), opts)
	if err != nil {
		observability.RecordError(span, err)
		return "", err
	}
	observability.RecordLLMMetrics(span, resp.InputTokens, resp.OutputTokens, time.Since(start))
	return resp.Content, nil
}

// Answerer renders the prompt and makes a single generation call.
type Answerer struct {
	gen       Generator
	maxTokens int
}

// New creates an Answerer. maxTokens <= 0 selects DefaultMaxTokens.
func New(gen Generator, maxTokens int) *Answerer {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Answerer{gen: gen, maxTokens: maxTokens}
}

// Answer asks the generator once and returns its output with reasoning tags
// and surrounding whitespace removed. Errors are returned unchanged.
func (a *Answerer) Answer(ctx context.Context, question string, docs []string) (string, error) {
	out, err := a.gen.Generate(ctx, BuildPrompt(question, docs), a.maxTokens)
	if err != nil {
		return "", err
	}
	return clean(out), nil
}

// clean drops <think> blocks some instruction-tuned models emit before the
// answer. An unclosed block runs to the end of the output.
func clean(out string) string {
	var b strings.Builder
	for {
		before, rest, found := strings.Cut(out, "<think>")
		b.WriteString(before)
		if !found {
			break
		}
		_, after, closed := strings.Cut(rest, "</think>")
		if !closed {
			break
		}
		out = after
	}
	return strings.TrimSpace(b.String())
}
