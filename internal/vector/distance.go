package vector

import (
	"fmt"
	"math"
	"sort"
)

// Space is the distance function of a collection.
type Space string

const (
	// SpaceL2 is squared Euclidean distance.
	SpaceL2 Space = "l2"
	// SpaceCosine is 1 - cosine similarity.
	SpaceCosine Space = "cosine"
	// SpaceIP is 1 - dot product.
	SpaceIP Space = "ip"
)

// ParseSpace validates a configured space name. Empty selects SpaceL2.
func ParseSpace(s string) (Space, error) {
	switch Space(s) {
	case "":
		return SpaceL2, nil
	case SpaceL2, SpaceCosine, SpaceIP:
		return Space(s), nil
	}
	return "", fmt.Errorf("unknown vector space %q", s)
}

// Distance computes the distance between a and b in the given space.
func (s Space) Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	switch s {
	case SpaceCosine:
		var dot, na, nb float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
			na += float64(a[i]) * float64(a[i])
			nb += float64(b[i]) * float64(b[i])
		}
		if na == 0 || nb == 0 {
			return 1, nil
		}
		return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
	case SpaceIP:
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		return 1 - dot, nil
	default:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return sum, nil
	}
}

// Normalize scales v to unit length in place and returns it. Zero vectors
// are left unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	n := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / n)
	}
	return v
}

// rank scores every document against query and keeps the topK closest.
func rank(space Space, query []float32, docs []Document, topK int) ([]Match, error) {
	if topK <= 0 || len(docs) == 0 {
		return []Match{}, nil
	}
	matches := make([]Match, 0, len(docs))
	for _, d := range docs {
		dist, err := space.Distance(query, d.Vector)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{ID: d.ID, Content: d.Content, Distance: dist, Metadata: d.Metadata})
	}
	return TopK(matches, topK), nil
}

// TopK sorts matches by increasing distance, breaking ties by ID so results
// are stable across backends, and truncates to k.
func TopK(matches []Match, k int) []Match {
	if k <= 0 || len(matches) == 0 {
		return []Match{}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches
}
