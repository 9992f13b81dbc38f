// Package guard decides whether retrieved context is close enough to a
// question to be worth answering from.
package guard

// DefaultThreshold is the largest nearest-neighbour distance still treated as
// relevant.
const DefaultThreshold = 0.8

// Refusal is returned instead of a generated answer when no document is
// close enough.
const Refusal = "I don't have information about that topic in my documents."

// IsRelevant reports whether the closest distance is within threshold. An
// empty result is never relevant. A distance equal to the threshold passes.
func IsRelevant(distances []float64, threshold float64) bool {
	if len(distances) == 0 {
		return false
	}
	return Min(distances) <= threshold
}

// Min returns the smallest distance, or 0 for an empty slice.
func Min(distances []float64) float64 {
	if len(distances) == 0 {
		return 0
	}
	m := distances[0]
	for _, d := range distances[1:] {
		if d < m {
			m = d
		}
	}
	return m
}
