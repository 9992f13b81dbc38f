package local

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/efebarandurmaz/sportsqa/internal/llm"
)

func TestEmbed_DeterministicAndNormalized(t *testing.T) {
	e := New(0)
	if e.Dimensions() != DefaultDimensions {
		t.Fatalf("expected %d dims, got %d", DefaultDimensions, e.Dimensions())
	}

	a, err := e.Embed(context.Background(), []string{"Olympic host cities", "Olympic host cities"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var norm float64
	for i := range a[0] {
		if a[0][i] != a[1][i] {
			t.Fatal("embedding is not deterministic")
		}
		norm += float64(a[0][i]) * float64(a[0][i])
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("expected unit norm, got %f", norm)
	}
}

func TestEmbed_EmptyTextIsZeroVector(t *testing.T) {
	vecs, _ := New(16).Embed(context.Background(), []string{"the of and"})
	for _, v := range vecs[0] {
		if v != 0 {
			t.Fatalf("expected zero vector for stop words only, got %v", vecs[0])
		}
	}
}

func TestEmbed_OverlapIsCloser(t *testing.T) {
	vecs, _ := New(0).Embed(context.Background(), []string{
		"economic impact of hosting major sporting events",
		"hosting sporting events has an economic impact on cities",
		"pizza topping preferences",
	})
	dot := func(a, b []float32) float64 {
		var s float64
		for i := range a {
			s += float64(a[i]) * float64(b[i])
		}
		return s
	}
	if dot(vecs[0], vecs[1]) <= dot(vecs[0], vecs[2]) {
		t.Error("expected overlapping texts to be more similar")
	}
}

func TestComplete_Unsupported(t *testing.T) {
	_, err := New(0).Complete(context.Background(), llm.UserPrompt("q"), nil)
	if !errors.Is(err, llm.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("What is the Economic impact of hosting the Olympics?")
	want := []string{"economic", "impact", "host", "olympic"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tokenize = %v, want %v", got, want)
		}
	}
}
