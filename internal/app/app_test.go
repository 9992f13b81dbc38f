package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/efebarandurmaz/sportsqa/internal/answer"
	"github.com/efebarandurmaz/sportsqa/internal/config"
	"github.com/efebarandurmaz/sportsqa/internal/qa"
	"github.com/efebarandurmaz/sportsqa/internal/vector"
)

func offlineConfig() *config.Config {
	cfg := config.Default()
	cfg.LLM.Provider = "none"
	cfg.Embed.Provider = "local"
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestBuild_Offline(t *testing.T) {
	a, err := Build(context.Background(), offlineConfig(), quietLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	n, err := a.Collection.Count(context.Background())
	if err != nil || n != 5 {
		t.Fatalf("expected 5 indexed documents, got %d (%v)", n, err)
	}
	if a.ProviderName() != "none" {
		t.Errorf("expected provider none, got %s", a.ProviderName())
	}
	if opts := a.Service.Options(); opts.TopK != 3 || opts.Threshold != 0.8 {
		t.Errorf("unexpected service options %+v", opts)
	}

	ans, err := a.Service.Ask(context.Background(), "")
	if err != nil || ans.Outcome != qa.OutcomeEmptyQuestion {
		t.Errorf("expected empty-question outcome, got %+v (%v)", ans, err)
	}
}

func TestBuild_NoGeneratorFailsRelevantQuestions(t *testing.T) {
	cfg := offlineConfig()
	cfg.Retrieval.Threshold = 10 // every document is relevant
	a, err := Build(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	_, err = a.Service.Ask(context.Background(), "Are major sporting events economically beneficial?")
	if !errors.Is(err, qa.ErrGeneration) || !errors.Is(err, answer.ErrNoProvider) {
		t.Fatalf("expected generation failure without provider, got %v", err)
	}
	if qa.UserMessage(err) != qa.Unavailable {
		t.Errorf("unexpected user message %q", qa.UserMessage(err))
	}
}

func TestBuild_SQLiteBackend(t *testing.T) {
	cfg := offlineConfig()
	cfg.Vector.Backend = "sqlite"
	cfg.Vector.Path = filepath.Join(t.TempDir(), "docs.db")

	for i := 0; i < 2; i++ {
		a, err := Build(context.Background(), cfg, quietLogger())
		if err != nil {
			t.Fatalf("build %d: %v", i, err)
		}
		n, _ := a.Collection.Count(context.Background())
		if n != 5 {
			t.Errorf("build %d: expected 5 documents after re-initialization, got %d", i, n)
		}
		if err := a.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
}

func TestBuild_CustomCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	data := []byte("documents:\n  - id: a\n    title: A\n    text: Cricket is popular in India.\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	cfg := offlineConfig()
	cfg.Corpus.Path = path

	a, err := Build(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()
	if docs := a.Collection.Documents(); len(docs) != 1 || docs[0].ID != "a" {
		t.Errorf("unexpected documents %+v", docs)
	}
}

func TestBuild_Errors(t *testing.T) {
	cfg := offlineConfig()
	cfg.Vector.Backend = "cassandra"
	if _, err := Build(context.Background(), cfg, quietLogger()); err == nil {
		t.Error("expected unknown backend error")
	}

	cfg = offlineConfig()
	cfg.Corpus.Path = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := Build(context.Background(), cfg, quietLogger()); err == nil {
		t.Error("expected missing corpus error")
	}
}

func TestBuild_InitializeFailureClosesStore(t *testing.T) {
	cfg := offlineConfig()
	cfg.Vector.Backend = "sqlite"
	cfg.Vector.Path = filepath.Join(t.TempDir(), "docs.db")
	cfg.Embed.Dimensions = 64

	a, err := Build(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	cfg.Embed.Dimensions = 128
	if _, err := Build(context.Background(), cfg, quietLogger()); !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}

	// The failed build released the file; the original width still opens.
	cfg.Embed.Dimensions = 64
	a, err = Build(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	a.Close()
}

func TestActivities(t *testing.T) {
	a, err := Build(context.Background(), offlineConfig(), quietLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()
	acts := a.Activities()
	if acts.Collection == nil || acts.Answerer == nil {
		t.Fatal("activities should be wired to the app")
	}
}
