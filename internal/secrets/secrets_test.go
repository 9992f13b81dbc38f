package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProvider_DefaultPrefix(t *testing.T) {
	t.Setenv("SPORTSQA_HF_TOKEN", "hf_prefixed")

	p := NewEnvProvider("")
	val, err := p.Get(context.Background(), "hf_token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "hf_prefixed" {
		t.Fatalf("expected 'hf_prefixed', got %s", val)
	}
}

func TestEnvProvider_Get_WithoutPrefix(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-direct")

	p := NewEnvProvider("SPORTSQA_")
	val, err := p.Get(context.Background(), "openai_api_key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "sk-direct" {
		t.Fatalf("expected 'sk-direct', got %s", val)
	}
}

func TestEnvProvider_Get_NotFound(t *testing.T) {
	p := NewEnvProvider("SPORTSQA_")
	_, err := p.Get(context.Background(), "nonexistent_secret_xyz")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func writeSecrets(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileProvider_Get(t *testing.T) {
	p, err := NewFileProvider(writeSecrets(t, `{"anthropic_api_key": "sk-ant"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "file" {
		t.Fatalf("expected 'file', got %s", p.Name())
	}

	val, err := p.Get(context.Background(), "anthropic_api_key")
	if err != nil || val != "sk-ant" {
		t.Fatalf("expected sk-ant, got %q (%v)", val, err)
	}
	if _, err := p.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileProvider_MissingFileIsEmpty(t *testing.T) {
	p, err := NewFileProvider(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if _, err := p.Get(context.Background(), "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileProvider_Malformed(t *testing.T) {
	if _, err := NewFileProvider(writeSecrets(t, `{not json`)); err == nil {
		t.Fatal("expected error for malformed file")
	}
}

func TestFileProvider_MissingPath(t *testing.T) {
	if _, err := NewFileProvider(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestFileProvider_Reload(t *testing.T) {
	path := writeSecrets(t, `{"k": "v1"}`)
	p, _ := NewFileProvider(path)

	os.WriteFile(path, []byte(`{"k": "v2"}`), 0600)
	if err := p.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if val, _ := p.Get(context.Background(), "k"); val != "v2" {
		t.Fatalf("expected v2 after reload, got %s", val)
	}
}

func TestManager_FileBeforeEnv(t *testing.T) {
	t.Setenv("SPORTSQA_OPENAI_API_KEY", "from-env")

	m, err := NewManager(Config{File: writeSecrets(t, `{"openai_api_key": "from-file"}`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	val, err := m.Get(context.Background(), "openai_api_key")
	if err != nil || val != "from-file" {
		t.Fatalf("expected file to win, got %q (%v)", val, err)
	}
}

func TestManager_FallsBackToEnv(t *testing.T) {
	t.Setenv("SPORTSQA_GROQ_API_KEY", "gsk-env")

	m, _ := NewManager(Config{File: writeSecrets(t, `{}`)})
	val, err := m.Get(context.Background(), "groq_api_key")
	if err != nil || val != "gsk-env" {
		t.Fatalf("expected env fallback, got %q (%v)", val, err)
	}
}

func TestManager_CachesHits(t *testing.T) {
	t.Setenv("SPORTSQA_CACHED", "first")

	m, _ := NewManager(Config{})
	m.Get(context.Background(), "cached")
	os.Setenv("SPORTSQA_CACHED", "second")

	val, _ := m.Get(context.Background(), "cached")
	if val != "first" {
		t.Fatalf("expected cached value, got %s", val)
	}
}

func TestManager_GetOrDefault(t *testing.T) {
	m, _ := NewManager(Config{})
	if got := m.GetOrDefault(context.Background(), "nope_never_set", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestManager_APIKeyFor(t *testing.T) {
	t.Setenv("HF_TOKEN", "hf_vendor")

	m, _ := NewManager(Config{})
	key, err := m.APIKeyFor(context.Background(), "huggingface")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "hf_vendor" {
		t.Fatalf("expected vendor token, got %q", key)
	}

	key, err = m.APIKeyFor(context.Background(), "ollama")
	if err != nil || key != "" {
		t.Fatalf("expected empty key without error, got %q (%v)", key, err)
	}
}
