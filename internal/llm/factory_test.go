package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubProvider struct{ name string }

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Complete(context.Context, *Prompt, *RequestOptions) (*Response, error) {
	return &Response{Content: "Hosting rarely pays off."}, nil
}

func (s *stubProvider) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }

func stubFactory() *ProviderFactory {
	f := NewFactory()
	f.Register("stub", func(c ProviderConfig) (Provider, error) { return &stubProvider{name: "stub"}, nil })
	f.Register("broken", func(ProviderConfig) (Provider, error) { return nil, errors.New("missing base_url") })
	return f
}

func TestFactoryCreate_NoGeneration(t *testing.T) {
	for _, name := range []string{"", "none"} {
		p, err := stubFactory().Create(ProviderConfig{Provider: name})
		if err != nil || p != nil {
			t.Errorf("Create(%q) = %v, %v; want nil, nil", name, p, err)
		}
	}
}

func TestFactoryCreate_Unknown(t *testing.T) {
	_, err := stubFactory().Create(ProviderConfig{Provider: "cohere"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), `"cohere"`) || !strings.Contains(err.Error(), "broken stub") {
		t.Errorf("error should name the provider and the registered ones: %v", err)
	}
}

func TestFactoryCreate_ConstructorError(t *testing.T) {
	if _, err := stubFactory().Create(ProviderConfig{Provider: "broken"}); err == nil || !strings.Contains(err.Error(), "base_url") {
		t.Errorf("expected constructor error, got %v", err)
	}
}

func TestFactoryCreate_RetryWrapping(t *testing.T) {
	f := stubFactory()

	p, err := f.Create(ProviderConfig{Provider: "stub"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*stubProvider); !ok {
		t.Errorf("without timeout or retries the provider should be bare, got %T", p)
	}

	p, err = f.Create(ProviderConfig{Provider: "stub", Timeout: time.Second, MaxRetries: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*RetryProvider); !ok {
		t.Fatalf("expected retry wrapper, got %T", p)
	}
	if p.Name() != "stub" {
		t.Errorf("wrapper should keep the provider name, got %s", p.Name())
	}
	resp, err := p.Complete(context.Background(), UserPrompt("q"), nil)
	if err != nil || resp.Content == "" {
		t.Errorf("wrapped completion failed: %v", err)
	}
}

func TestFactoryNames(t *testing.T) {
	if got := strings.Join(stubFactory().Names(), ","); got != "broken,stub" {
		t.Errorf("Names() = %s", got)
	}
}

func TestPresets(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range Presets {
		if seen[p.Name] {
			t.Errorf("duplicate preset %s", p.Name)
		}
		seen[p.Name] = true
		if !p.Generates && !p.Embeds {
			t.Errorf("preset %s does nothing", p.Name)
		}
	}

	hf, ok := LookupPreset("huggingface")
	if !ok || !hf.Generates || !hf.Embeds || hf.BaseURL != "https://api-inference.huggingface.co" {
		t.Errorf("unexpected huggingface preset %+v", hf)
	}
	if a, _ := LookupPreset("anthropic"); a.Embeds {
		t.Error("anthropic has no embeddings endpoint")
	}
	if l, _ := LookupPreset("local"); l.Generates {
		t.Error("local only embeds")
	}
	if _, ok := LookupPreset("cohere"); ok {
		t.Error("unexpected preset")
	}
}
