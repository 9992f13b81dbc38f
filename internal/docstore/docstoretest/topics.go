// Package docstoretest provides a deterministic embedder for tests that need
// realistic retrieval over the built-in corpus without a model.
package docstoretest

import (
	"context"
	"strings"
)

// Topics maps each embedding dimension to the keywords that activate it.
var Topics = [][]string{
	{"wearable", "training"},
	{"national identity", "nationalism"},
	{"youth", "child"},
	{"economic", "olympic", "hosting"},
	{"digital", "social media", "esports"},
}

// TopicEmbedder sets one dimension per topic whose keywords occur in the
// text. Text matching no topic embeds to the zero vector, which sits at l2
// distance 1 from every normalized document.
type TopicEmbedder struct {
	Calls int
	Err   error
}

func (e *TopicEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.Calls++
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		v := make([]float32, len(Topics))
		for d, keywords := range Topics {
			for _, k := range keywords {
				if strings.Contains(lower, k) {
					v[d] = 1
					break
				}
			}
		}
		out[i] = v
	}
	return out, nil
}
