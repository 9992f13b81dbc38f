package llm

import (
	"fmt"
	"sort"
	"time"
)

// ProviderConfig holds everything needed to build any provider.
type ProviderConfig struct {
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string // overrides the preset endpoint
	EmbedModel string

	Timeout    time.Duration // per attempt
	MaxRetries int
	RetryDelay time.Duration // first backoff interval
}

// Preset describes a built-in provider.
type Preset struct {
	Name      string
	BaseURL   string
	Generates bool
	Embeds    bool
	NeedsKey  bool
}

// Presets lists the built-in providers. Any other OpenAI-compatible API
// (vLLM, LM Studio) works through "custom" with an explicit base_url.
var Presets = []Preset{
	{Name: "huggingface", BaseURL: "https://api-inference.huggingface.co", Generates: true, Embeds: true, NeedsKey: true},
	{Name: "openai", BaseURL: "https://api.openai.com/v1", Generates: true, Embeds: true, NeedsKey: true},
	{Name: "anthropic", BaseURL: "https://api.anthropic.com/v1", Generates: true, NeedsKey: true},
	{Name: "groq", BaseURL: "https://api.groq.com/openai/v1", Generates: true, NeedsKey: true},
	{Name: "together", BaseURL: "https://api.together.xyz/v1", Generates: true, Embeds: true, NeedsKey: true},
	{Name: "deepseek", BaseURL: "https://api.deepseek.com/v1", Generates: true, NeedsKey: true},
	{Name: "ollama", BaseURL: "http://localhost:11434/v1", Generates: true, Embeds: true},
	{Name: "custom", Generates: true, Embeds: true},
	{Name: "local", Embeds: true},
}

// LookupPreset finds a built-in provider by name.
func LookupPreset(name string) (Preset, bool) {
	for _, p := range Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// ProviderConstructor builds a Provider from config.
type ProviderConstructor func(cfg ProviderConfig) (Provider, error)

// ProviderFactory maps provider names to constructors.
type ProviderFactory struct {
	constructors map[string]ProviderConstructor
}

func NewFactory() *ProviderFactory {
	return &ProviderFactory{constructors: make(map[string]ProviderConstructor)}
}

func (f *ProviderFactory) Register(name string, ctor ProviderConstructor) {
	f.constructors[name] = ctor
}

// Create builds the named provider, wrapped with retries when a timeout or
// retry count is set. An empty name or "none" yields a nil provider and no
// error so the service can run without generation.
func (f *ProviderFactory) Create(cfg ProviderConfig) (Provider, error) {
	if cfg.Provider == "" || cfg.Provider == "none" {
		return nil, nil
	}

	ctor, ok := f.constructors[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider %q (registered: %v)", cfg.Provider, f.Names())
	}
	provider, err := ctor(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 || cfg.MaxRetries > 0 {
		return WrapWithRetry(provider, cfg), nil
	}
	return provider, nil
}

// Names returns the registered provider names, sorted.
func (f *ProviderFactory) Names() []string {
	out := make([]string, 0, len(f.constructors))
	for k := range f.constructors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
