// Package app assembles the question-answering service from configuration.
// cmd/sportsqa and cmd/worker both build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/efebarandurmaz/sportsqa/internal/answer"
	"github.com/efebarandurmaz/sportsqa/internal/config"
	"github.com/efebarandurmaz/sportsqa/internal/docstore"
	"github.com/efebarandurmaz/sportsqa/internal/llmutil"
	"github.com/efebarandurmaz/sportsqa/internal/observability"
	"github.com/efebarandurmaz/sportsqa/internal/qa"
	"github.com/efebarandurmaz/sportsqa/internal/secrets"
	"github.com/efebarandurmaz/sportsqa/internal/temporal"
)

// App holds the wired components.
type App struct {
	Config     *config.Config
	Log        *slog.Logger
	Providers  *llmutil.Providers
	Collection *docstore.Collection
	Answerer   *answer.Answerer
	Metrics    *observability.QAMetrics
	Service    *qa.Service
}

// Build resolves secrets and providers, opens the vector store and indexes
// the corpus. The caller must Close the returned App.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	keys, err := secrets.NewManager(secrets.Config{File: cfg.Secrets.File, EnvPrefix: "SPORTSQA_"})
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}

	providers, err := llmutil.NewProviders(ctx, cfg, keys)
	if err != nil {
		return nil, err
	}
	if providers.Generator == nil {
		logger.Warn("No generation provider configured; relevant questions will fail", "provider", cfg.LLM.Provider)
	}

	docs, err := docstore.LoadCorpus(cfg.Corpus.Path)
	if err != nil {
		return nil, err
	}

	repo, err := docstore.OpenRepository(cfg.Vector)
	if err != nil {
		return nil, fmt.Errorf("opening %s vector store: %w", cfg.Vector.Backend, err)
	}

	col, err := docstore.Initialize(ctx, docstore.Options{
		Name:     cfg.Vector.Collection,
		Repo:     repo,
		Embedder: providers.Embedder,
		Docs:     docs,
	})
	if err != nil {
		return nil, errors.Join(err, repo.Close())
	}
	logger.Info("Document store ready",
		"collection", col.Name(),
		"backend", cfg.Vector.Backend,
		"documents", len(docs),
		"embedder", providers.Embedder.Name())

	gen := answer.NewProviderGenerator(providers.Generator, cfg.LLM.Model)
	if cfg.LLM.Temperature > 0 {
		temp := cfg.LLM.Temperature
		gen.Temperature = &temp
	}
	answerer := answer.New(gen, cfg.Generation.MaxTokens)

	metrics := observability.NewQAMetrics()
	svc := qa.New(col, answerer, qa.Options{
		TopK:              cfg.Retrieval.TopK,
		Threshold:         cfg.Retrieval.Threshold,
		GenerationTimeout: cfg.Generation.Timeout,
		Metrics:           metrics,
	}, logger)

	return &App{
		Config:     cfg,
		Log:        logger,
		Providers:  providers,
		Collection: col,
		Answerer:   answerer,
		Metrics:    metrics,
		Service:    svc,
	}, nil
}

// Activities returns the Temporal activities backed by this app.
func (a *App) Activities() *temporal.Activities {
	return &temporal.Activities{Collection: a.Collection, Answerer: a.Answerer}
}

// ProviderName names the generation provider for reports and health checks.
func (a *App) ProviderName() string {
	if a.Providers.Generator == nil {
		return "none"
	}
	return a.Providers.Generator.Name()
}

// Close releases the vector store.
func (a *App) Close() error {
	return a.Collection.Close()
}
