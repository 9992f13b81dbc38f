// Package llm abstracts the hosted and local model backends used for answer
// generation and document embeddings.
package llm

import "context"

// Provider is implemented by every backend.
type Provider interface {
	Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// Embedder is the subset of Provider used by the vector layer.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is the input to one completion call.
type Prompt struct {
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`
}

// UserPrompt wraps text as a single user turn. The grounded question prompt
// carries its own instructions, so no system prompt is set.
func UserPrompt(text string) *Prompt {
	return &Prompt{Messages: []Message{{Role: RoleUser, Content: text}}}
}

// Text joins the turns for backends that take a single input string.
func (p *Prompt) Text() string {
	out := p.SystemPrompt
	for _, m := range p.Messages {
		if out != "" {
			out += "\n\n"
		}
		out += m.Content
	}
	return out
}

// Response is one completion result. Token counts are zero when the backend
// does not report them.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	StopReason   string `json:"stop_reason,omitempty"`
}
