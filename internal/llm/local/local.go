// Package local provides an offline embedding provider based on feature
// hashing. It needs no network or model weights, which makes it suitable for
// air-gapped demos and tests; its vectors capture word overlap only.
package local

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/efebarandurmaz/sportsqa/internal/llm"
)

// DefaultDimensions is the embedding width used when none is configured.
const DefaultDimensions = 384

// Embedder hashes word unigrams and bigrams into a fixed-width, L2-normalized
// vector.
type Embedder struct {
	dims int
}

// New creates a hashing embedder. dims <= 0 selects DefaultDimensions.
func New(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

func (e *Embedder) Name() string { return "local" }

// Dimensions returns the vector width.
func (e *Embedder) Dimensions() int { return e.dims }

// Complete is unsupported; pair this provider with a generation provider.
func (e *Embedder) Complete(_ context.Context, _ *llm.Prompt, _ *llm.RequestOptions) (*llm.Response, error) {
	return nil, fmt.Errorf("local complete: %w", llm.ErrUnsupported)
}

// Embed returns one vector per text. It never fails unless ctx is done.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *Embedder) vector(text string) []float32 {
	vec := make([]float64, e.dims)
	tokens := Tokenize(text)

	add := func(feature string, weight float64) {
		h := xxhash.Sum64String(feature)
		idx := int(h % uint64(e.dims))
		// The top bit picks the sign so collisions tend to cancel.
		if h>>63 == 1 {
			weight = -weight
		}
		vec[idx] += weight
	}

	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	for tok, n := range counts {
		add(tok, 1+math.Log(float64(n)))
	}
	for i := 0; i+1 < len(tokens); i++ {
		add(tokens[i]+" "+tokens[i+1], 0.5)
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, e.dims)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

// Tokenize lowercases text, splits on non-alphanumerics, drops stop words
// and folds simple plural and gerund suffixes.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 || stopWords[f] {
			continue
		}
		out = append(out, stem(f))
	}
	return out
}

func stem(w string) string {
	switch {
	case len(w) > 5 && strings.HasSuffix(w, "ing"):
		return w[:len(w)-3]
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return w[:len(w)-1]
	}
	return w
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "can": true, "do": true, "does": true, "for": true,
	"from": true, "has": true, "have": true, "how": true, "in": true, "is": true,
	"it": true, "its": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "their": true, "this": true, "to": true, "was": true, "what": true,
	"when": true, "which": true, "who": true, "why": true, "will": true, "with": true,
}
