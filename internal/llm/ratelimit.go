package llm

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures rate limiting for LLM providers.
type RateLimitConfig struct {
	// RequestsPerMinute limits the number of API calls per minute (0 = unlimited)
	RequestsPerMinute int
	// TokensPerMinute limits total tokens per minute (0 = unlimited)
	TokensPerMinute int
	// BurstSize allows temporary burst above the rate limit
	BurstSize int
}

// DefaultRateLimitConfig returns defaults suited to the free hosted
// inference tiers.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerMinute: 25,
		TokensPerMinute:   25000,
		BurstSize:         3,
	}
}

// RateLimitProvider wraps a provider with token-bucket rate limiting.
// Token usage reported by completions is charged after the fact, so a large
// response delays the calls that follow it.
type RateLimitProvider struct {
	inner  Provider
	config *RateLimitConfig

	requests *rate.Limiter
	tokens   *rate.Limiter

	requestCount atomic.Int64
	tokenCount   atomic.Int64
}

// NewRateLimitProvider creates a rate-limited provider wrapper.
func NewRateLimitProvider(inner Provider, config *RateLimitConfig) *RateLimitProvider {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	burst := config.BurstSize
	if burst <= 0 {
		burst = 1
	}

	r := &RateLimitProvider{
		inner:    inner,
		config:   config,
		requests: rate.NewLimiter(rate.Inf, burst),
		tokens:   rate.NewLimiter(rate.Inf, 1),
	}
	if config.RequestsPerMinute > 0 {
		r.requests = rate.NewLimiter(perMinute(config.RequestsPerMinute), burst)
	}
	if config.TokensPerMinute > 0 {
		r.tokens = rate.NewLimiter(perMinute(config.TokensPerMinute), config.TokensPerMinute)
	}
	return r
}

func perMinute(n int) rate.Limit {
	return rate.Every(time.Minute / time.Duration(n))
}

// Name returns the underlying provider name.
func (r *RateLimitProvider) Name() string {
	return r.inner.Name()
}

// Complete rate-limits and delegates to the inner provider.
func (r *RateLimitProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	if err := r.waitForCapacity(ctx); err != nil {
		return nil, err
	}

	resp, err := r.inner.Complete(ctx, prompt, opts)
	if err == nil && resp != nil {
		r.trackTokenUsage(resp.InputTokens + resp.OutputTokens)
	}
	return resp, err
}

// Embed rate-limits and delegates to the inner provider.
func (r *RateLimitProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.waitForCapacity(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, texts)
}

func (r *RateLimitProvider) waitForCapacity(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.requests.Wait(ctx); err != nil {
		return ctxErrOr(ctx, err)
	}
	if err := r.tokens.Wait(ctx); err != nil {
		return ctxErrOr(ctx, err)
	}
	r.requestCount.Add(1)
	return nil
}

// rate.Limiter reports a would-exceed-deadline condition with its own error.
func ctxErrOr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (r *RateLimitProvider) trackTokenUsage(tokens int) {
	if tokens <= 0 {
		return
	}
	r.tokenCount.Add(int64(tokens))
	if r.config.TokensPerMinute <= 0 {
		return
	}
	if tokens > r.config.TokensPerMinute {
		tokens = r.config.TokensPerMinute
	}
	r.tokens.ReserveN(time.Now(), tokens)
}

// Stats returns cumulative usage counters.
func (r *RateLimitProvider) Stats() RateLimitStats {
	return RateLimitStats{
		Requests: r.requestCount.Load(),
		Tokens:   r.tokenCount.Load(),
	}
}

// RateLimitStats contains rate limiting statistics.
type RateLimitStats struct {
	Requests int64
	Tokens   int64
}

// WithRateLimit wraps a provider with rate limiting.
func WithRateLimit(p Provider, config *RateLimitConfig) Provider {
	if p == nil {
		return nil
	}
	return NewRateLimitProvider(p, config)
}
