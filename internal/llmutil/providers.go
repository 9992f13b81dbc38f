package llmutil

import (
	"context"
	"fmt"

	"github.com/efebarandurmaz/sportsqa/internal/config"
	"github.com/efebarandurmaz/sportsqa/internal/llm"
	"github.com/efebarandurmaz/sportsqa/internal/llm/local"
	"github.com/efebarandurmaz/sportsqa/internal/secrets"
)

// Providers holds the generation and embedding backends built from config.
type Providers struct {
	// Generator answers prompts. Nil when llm.provider is "none".
	Generator llm.Provider
	// Embedder turns documents and questions into vectors.
	Embedder llm.Provider
}

// KeyResolver looks up provider credentials. *secrets.Manager implements it.
type KeyResolver interface {
	APIKeyFor(ctx context.Context, provider string) (string, error)
}

var _ KeyResolver = (*secrets.Manager)(nil)

// NewProviders builds the configured providers. Keys missing from cfg are
// resolved through keys. The generator is wrapped with retries and rate
// limiting; the embedder with retries only.
func NewProviders(ctx context.Context, cfg *config.Config, keys KeyResolver) (*Providers, error) {
	factory := llm.NewFactory()
	RegisterDefaultProviders(factory)

	embedProvider := cfg.Embed.Provider
	if embedProvider == "" {
		embedProvider = cfg.LLM.Provider
	}
	if p, ok := llm.LookupPreset(cfg.LLM.Provider); ok && !p.Generates {
		return nil, fmt.Errorf("provider %q cannot generate answers; set llm.provider to a generating provider or none", p.Name)
	}
	if p, ok := llm.LookupPreset(embedProvider); ok && !p.Embeds {
		return nil, fmt.Errorf("provider %q offers no embeddings; set embed.provider", p.Name)
	}

	genKey, err := resolveKey(ctx, keys, cfg.LLM.Provider, cfg.LLM.APIKey)
	if err != nil {
		return nil, err
	}

	gen, err := factory.Create(llm.ProviderConfig{
		Provider:   cfg.LLM.Provider,
		APIKey:     genKey,
		Model:      cfg.LLM.Model,
		BaseURL:    cfg.LLM.BaseURL,
		EmbedModel: cfg.Embed.Model,
		Timeout:    cfg.LLM.Timeout,
		MaxRetries: cfg.LLM.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	if gen != nil {
		rl := llm.DefaultRateLimitConfig()
		if cfg.LLM.RequestsPerMinute > 0 {
			rl.RequestsPerMinute = cfg.LLM.RequestsPerMinute
		}
		gen = llm.WithRateLimit(gen, rl)
	}

	var emb llm.Provider
	if embedProvider == "local" {
		emb = local.New(cfg.Embed.Dimensions)
	} else {
		embKey := cfg.Embed.APIKey
		if embKey == "" && embedProvider == cfg.LLM.Provider {
			embKey = genKey
		}
		embKey, err = resolveKey(ctx, keys, embedProvider, embKey)
		if err != nil {
			return nil, err
		}
		emb, err = factory.Create(llm.ProviderConfig{
			Provider:   embedProvider,
			APIKey:     embKey,
			BaseURL:    cfg.Embed.BaseURL,
			EmbedModel: cfg.Embed.Model,
			Timeout:    cfg.LLM.Timeout,
			MaxRetries: cfg.LLM.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedding provider: %w", err)
		}
	}
	if emb == nil {
		return nil, fmt.Errorf("an embedding provider is required (embed.provider=%q)", embedProvider)
	}

	return &Providers{Generator: gen, Embedder: emb}, nil
}

func resolveKey(ctx context.Context, keys KeyResolver, provider, configured string) (string, error) {
	if configured != "" || keys == nil || provider == "" || provider == "none" || provider == "local" {
		return configured, nil
	}
	key, err := keys.APIKeyFor(ctx, provider)
	if err != nil {
		return "", fmt.Errorf("resolving %s API key: %w", provider, err)
	}
	return key, nil
}
