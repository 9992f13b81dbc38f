package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm"`
	Embed      EmbedConfig      `mapstructure:"embed"`
	Vector     VectorConfig     `mapstructure:"vector"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Generation GenerationConfig `mapstructure:"generation"`
	Corpus     CorpusConfig     `mapstructure:"corpus"`
	Server     ServerConfig     `mapstructure:"server"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
}

// LLMConfig selects the text generation provider.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`

	MaxRetries        int           `mapstructure:"max_retries"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// EmbedConfig selects the embedding provider. Provider "local" needs no
// network access.
type EmbedConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
}

// VectorConfig selects the vector store backend.
type VectorConfig struct {
	Backend    string `mapstructure:"backend"` // memory, sqlite, qdrant, neo4j
	Collection string `mapstructure:"collection"`
	Space      string `mapstructure:"space"` // l2, cosine, ip
	Path       string `mapstructure:"path"`  // sqlite file; empty = in-memory
	Host       string `mapstructure:"host"`  // qdrant
	Port       int    `mapstructure:"port"`
	URI        string `mapstructure:"uri"` // neo4j
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
}

type RetrievalConfig struct {
	TopK      int     `mapstructure:"top_k"`
	Threshold float64 `mapstructure:"threshold"`
}

type GenerationConfig struct {
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// CorpusConfig optionally replaces the built-in documents with a YAML file.
type CorpusConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

type SecretsConfig struct {
	File string `mapstructure:"file"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:   "huggingface",
			Model:      "google/flan-t5-small",
			MaxRetries: 3,
			Timeout:    2 * time.Minute,
		},
		Embed: EmbedConfig{
			Provider: "huggingface",
			Model:    "sentence-transformers/all-MiniLM-L6-v2",
		},
		Vector: VectorConfig{
			Backend:    "memory",
			Collection: "docs",
			Space:      "l2",
			Host:       "localhost",
			Port:       6334,
			URI:        "bolt://localhost:7687",
			Username:   "neo4j",
		},
		Retrieval: RetrievalConfig{
			TopK:      3,
			Threshold: 0.8,
		},
		Generation: GenerationConfig{
			MaxTokens: 150,
			Timeout:   60 * time.Second,
		},
		Server: ServerConfig{Addr: ":8501"},
		Temporal: TemporalConfig{
			Host:      "localhost:7233",
			Namespace: "default",
			TaskQueue: "sportsqa",
		},
		Tracing: TracingConfig{SampleRate: 1.0},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("embed.provider", d.Embed.Provider)
	v.SetDefault("embed.model", d.Embed.Model)
	v.SetDefault("vector.backend", d.Vector.Backend)
	v.SetDefault("vector.collection", d.Vector.Collection)
	v.SetDefault("vector.space", d.Vector.Space)
	v.SetDefault("vector.host", d.Vector.Host)
	v.SetDefault("vector.port", d.Vector.Port)
	v.SetDefault("vector.uri", d.Vector.URI)
	v.SetDefault("vector.username", d.Vector.Username)
	v.SetDefault("retrieval.top_k", d.Retrieval.TopK)
	v.SetDefault("retrieval.threshold", d.Retrieval.Threshold)
	v.SetDefault("generation.max_tokens", d.Generation.MaxTokens)
	v.SetDefault("generation.timeout", d.Generation.Timeout)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("temporal.host", d.Temporal.Host)
	v.SetDefault("temporal.namespace", d.Temporal.Namespace)
	v.SetDefault("temporal.task_queue", d.Temporal.TaskQueue)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	// Keys without defaults still need registering so AutomaticEnv can
	// populate them during Unmarshal.
	for k, zero := range map[string]any{
		"llm.api_key": "", "llm.base_url": "", "llm.temperature": 0.0, "llm.requests_per_minute": 0,
		"embed.api_key": "", "embed.base_url": "", "embed.dimensions": 0,
		"vector.path": "", "vector.password": "", "corpus.path": "", "tracing.otlp_endpoint": "", "secrets.file": "",
	} {
		v.SetDefault(k, zero)
	}
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	switch c.Vector.Backend {
	case "memory", "sqlite", "qdrant":
	case "neo4j":
		if c.Vector.Password == "" {
			warnings = append(warnings, "neo4j vector backend has no password; set vector.password or SPORTSQA_VECTOR_PASSWORD")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown vector backend %q, expected memory, sqlite, qdrant or neo4j", c.Vector.Backend))
	}

	switch c.Vector.Space {
	case "l2", "cosine", "ip":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown vector space %q, expected l2, cosine or ip", c.Vector.Space))
	}

	if c.Retrieval.TopK <= 0 {
		warnings = append(warnings, fmt.Sprintf("retrieval top_k %d retrieves nothing; every question will be refused", c.Retrieval.TopK))
	}

	if c.Retrieval.Threshold < 0 {
		warnings = append(warnings, fmt.Sprintf("retrieval threshold %.2f is negative; every question will be refused", c.Retrieval.Threshold))
	}

	if c.Generation.MaxTokens <= 0 {
		warnings = append(warnings, fmt.Sprintf("generation max_tokens %d is not positive", c.Generation.MaxTokens))
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("LLM temperature %.2f is outside recommended range [0.0, 2.0]", c.LLM.Temperature))
	}

	if c.LLM.Provider == "" || c.LLM.Provider == "none" || c.LLM.Provider == "local" {
		warnings = append(warnings, fmt.Sprintf("LLM provider %q cannot generate answers; questions within the threshold will fail", c.LLM.Provider))
	}

	if c.Embed.Provider == "local" && c.Vector.Space == "l2" && c.Retrieval.Threshold <= 0.8 {
		warnings = append(warnings, "local hashing embeddings produce large distances; consider raising retrieval.threshold")
	}

	return warnings
}

// Load reads configuration from file and environment. An empty path or a
// missing file yields the defaults overlaid with SPORTSQA_* variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SPORTSQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Warning: config file %s not found, using defaults\n", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return cfg, nil
}
