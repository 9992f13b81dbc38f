package llm

// RequestOptions tunes a single completion call. Nil fields use the
// provider's default.
type RequestOptions struct {
	MaxTokens   *int
	Temperature *float64
	TopP        *float64
	StopSeqs    []string
}

// WithMaxTokens returns options capping the generated output length.
func WithMaxTokens(n int) *RequestOptions {
	return &RequestOptions{MaxTokens: &n}
}

// MaxTokensOr returns the configured max tokens or def.
func (o *RequestOptions) MaxTokensOr(def int) int {
	if o == nil || o.MaxTokens == nil || *o.MaxTokens <= 0 {
		return def
	}
	return *o.MaxTokens
}
