// Package llmutil wires configured LLM providers for the binaries.
package llmutil

import (
	"github.com/efebarandurmaz/sportsqa/internal/llm"
	"github.com/efebarandurmaz/sportsqa/internal/llm/anthropic"
	"github.com/efebarandurmaz/sportsqa/internal/llm/huggingface"
	"github.com/efebarandurmaz/sportsqa/internal/llm/local"
	"github.com/efebarandurmaz/sportsqa/internal/llm/openai"
)

// RegisterDefaultProviders registers a constructor for every llm.Preset.
// Presets without a dedicated client speak the OpenAI wire format.
func RegisterDefaultProviders(factory *llm.ProviderFactory) {
	factory.Register("huggingface", func(c llm.ProviderConfig) (llm.Provider, error) {
		return huggingface.New(c.APIKey, c.Model, c.BaseURL, c.EmbedModel), nil
	})
	factory.Register("local", func(llm.ProviderConfig) (llm.Provider, error) {
		return local.New(0), nil
	})
	factory.Register("anthropic", func(c llm.ProviderConfig) (llm.Provider, error) {
		return anthropic.New(c.APIKey, c.Model, c.BaseURL), nil
	})
	for _, p := range llm.Presets {
		switch p.Name {
		case "huggingface", "anthropic", "local":
			continue
		}
		name, url := p.Name, p.BaseURL
		factory.Register(name, func(c llm.ProviderConfig) (llm.Provider, error) {
			base := c.BaseURL
			if base == "" {
				base = url
			}
			return openai.New(name, c.APIKey, c.Model, base, c.EmbedModel), nil
		})
	}
}
