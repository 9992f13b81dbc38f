package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/efebarandurmaz/sportsqa/internal/llm"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultEmbedModel = "text-embedding-3-small"
)

// Client implements llm.Provider for OpenAI-compatible APIs (OpenAI, Groq,
// Ollama, Together, vLLM).
type Client struct {
	name       string
	model      string
	baseURL    string
	embedModel string
	sdk        sdk.Client
}

// New creates an OpenAI-compatible provider. name is reported by Name and in
// errors, so presets like "groq" stay distinguishable.
func New(name, apiKey, model, baseURL, embedModel string) *Client {
	if name == "" {
		name = "openai"
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}
	if apiKey == "" {
		// Local servers such as Ollama ignore the key but the SDK requires one.
		apiKey = "unused"
	}
	return &Client{
		name:       name,
		model:      model,
		baseURL:    baseURL,
		embedModel: embedModel,
		sdk: sdk.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
			option.WithHTTPClient(&http.Client{Timeout: 300 * time.Second}),
			// llm.RetryProvider owns retries.
			option.WithMaxRetries(0),
		),
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	var msgs []sdk.ChatCompletionMessageParamUnion
	if prompt.SystemPrompt != "" {
		msgs = append(msgs, sdk.SystemMessage(prompt.SystemPrompt))
	}
	for _, m := range prompt.Messages {
		switch m.Role {
		case llm.RoleSystem:
			msgs = append(msgs, sdk.SystemMessage(m.Content))
		case llm.RoleAssistant:
			msgs = append(msgs, sdk.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, sdk.UserMessage(m.Content))
		}
	}

	params := sdk.ChatCompletionNewParams{
		Model:     sdk.ChatModel(c.model),
		Messages:  msgs,
		MaxTokens: sdk.Int(int64(opts.MaxTokensOr(1024))),
	}
	if opts != nil {
		if opts.Temperature != nil {
			params.Temperature = sdk.Float(*opts.Temperature)
		}
		if opts.TopP != nil {
			params.TopP = sdk.Float(*opts.TopP)
		}
		if len(opts.StopSeqs) > 0 {
			params.Stop = sdk.ChatCompletionNewParamsStopUnion{OfStringArray: opts.StopSeqs}
		}
	}

	completion, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.wrapErr(err)
	}

	var text, stop string
	if len(completion.Choices) > 0 {
		text = completion.Choices[0].Message.Content
		stop = string(completion.Choices[0].FinishReason)
	}

	return &llm.Response{
		Content:      text,
		Model:        completion.Model,
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
		StopReason:   stop,
	}, nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.sdk.Embeddings.New(ctx, sdk.EmbeddingNewParams{
		Model: sdk.EmbeddingModel(c.embedModel),
		Input: sdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, c.wrapErr(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%s embed: got %d vectors for %d inputs", c.name, len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, fmt.Errorf("%s embed: index %d out of range", c.name, d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		embeddings[d.Index] = vec
	}
	return embeddings, nil
}

// wrapErr converts SDK status errors into llm.APIError so the retry layer
// can classify them.
func (c *Client) wrapErr(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return &llm.APIError{Provider: c.name, StatusCode: apiErr.StatusCode, Body: apiErr.Message}
	}
	return fmt.Errorf("%s: %w", c.name, err)
}
