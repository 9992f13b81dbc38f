// Package secrets resolves provider credentials that are left out of the
// config file, from the environment or a local JSON secrets file.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrNotFound is returned when no backend holds the requested secret.
var ErrNotFound = errors.New("secret not found")

// Provider is the interface for secret backends.
type Provider interface {
	// Get retrieves a secret by key.
	Get(ctx context.Context, key string) (string, error)
	// Name returns the provider name.
	Name() string
}

// Config configures the secrets manager.
type Config struct {
	// File is an optional JSON secrets file consulted before the environment.
	File string
	// EnvPrefix for environment variable names (default: "SPORTSQA_")
	EnvPrefix string
}

// Manager looks a key up in each provider in order and caches hits.
type Manager struct {
	providers []Provider

	mu    sync.RWMutex
	cache map[string]string
}

// NewManager creates a secrets manager. The environment is always consulted
// last.
func NewManager(cfg Config) (*Manager, error) {
	var providers []Provider
	if cfg.File != "" {
		fp, err := NewFileProvider(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("create file provider: %w", err)
		}
		providers = append(providers, fp)
	}
	providers = append(providers, NewEnvProvider(cfg.EnvPrefix))

	return &Manager{
		providers: providers,
		cache:     make(map[string]string),
	}, nil
}

// Get retrieves a secret from the first provider that has it.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	val, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return val, nil
	}

	for _, p := range m.providers {
		val, err := p.Get(ctx, key)
		if err == nil && val != "" {
			m.mu.Lock()
			m.cache[key] = val
			m.mu.Unlock()
			return val, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

// GetOrDefault retrieves a secret or returns a default value.
func (m *Manager) GetOrDefault(ctx context.Context, key, defaultVal string) string {
	val, err := m.Get(ctx, key)
	if err != nil {
		return defaultVal
	}
	return val
}

// APIKeyFor resolves the credential for an LLM provider. It tries the
// provider-scoped key (e.g. "openai_api_key") and then the names the vendor
// SDKs conventionally read. A missing key is not an error: public Hugging
// Face models and local servers work without one.
func (m *Manager) APIKeyFor(ctx context.Context, provider string) (string, error) {
	keys := []string{provider + "_api_key"}
	keys = append(keys, vendorKeys[provider]...)
	for _, k := range keys {
		val, err := m.Get(ctx, k)
		if err == nil {
			return val, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", nil
}

var vendorKeys = map[string][]string{
	"huggingface": {"hf_token", "huggingfacehub_api_token"},
	"openai":      {"openai_api_key"},
	"anthropic":   {"anthropic_api_key"},
	"groq":        {"groq_api_key"},
	"together":    {"together_api_key"},
	"deepseek":    {"deepseek_api_key"},
}

// EnvProvider reads secrets from environment variables.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an environment-based secrets provider.
func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = "SPORTSQA_"
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(_ context.Context, key string) (string, error) {
	envKey := strings.ToUpper(key)
	if val := os.Getenv(p.prefix + envKey); val != "" {
		return val, nil
	}
	if val := os.Getenv(envKey); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("%w: env %s", ErrNotFound, p.prefix+envKey)
}
