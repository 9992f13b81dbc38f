package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/efebarandurmaz/sportsqa/internal/llm"
)

const (
	defaultBaseURL    = "https://api-inference.huggingface.co"
	DefaultModel      = "google/flan-t5-small"
	DefaultEmbedModel = "sentence-transformers/all-MiniLM-L6-v2"
)

// Client implements llm.Provider for the Hugging Face Inference API:
// text generation through the model endpoint and embeddings through the
// feature-extraction pipeline.
type Client struct {
	token      string
	model      string
	embedModel string
	baseURL    string
	http       *http.Client
}

// New creates a Hugging Face provider. An empty token works for public models
// at a lower rate limit.
func New(token, model, baseURL, embedModel string) *Client {
	if model == "" {
		model = DefaultModel
	}
	if embedModel == "" {
		embedModel = DefaultEmbedModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		token:      token,
		model:      model,
		embedModel: embedModel,
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) Name() string { return "huggingface" }

type generateRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters generateParams `json:"parameters"`
	Options    requestOptions `json:"options"`
}

type generateParams struct {
	MaxNewTokens   int      `json:"max_new_tokens"`
	Temperature    *float64 `json:"temperature,omitempty"`
	TopP           *float64 `json:"top_p,omitempty"`
	Stop           []string `json:"stop,omitempty"`
	ReturnFullText bool     `json:"return_full_text"`
}

type requestOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// Complete flattens the prompt into a single input string, since seq2seq
// models such as flan-t5 take no chat structure.
func (c *Client) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	req := generateRequest{
		Inputs: prompt.Text(),
		Parameters: generateParams{
			MaxNewTokens: opts.MaxTokensOr(150),
		},
		Options: requestOptions{WaitForModel: true},
	}
	if opts != nil {
		req.Parameters.Temperature = opts.Temperature
		req.Parameters.TopP = opts.TopP
		req.Parameters.Stop = opts.StopSeqs
	}

	var out []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := c.post(ctx, "/models/"+c.model, req, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("huggingface: empty generation response from %s", c.model)
	}

	return &llm.Response{
		Content: out[0].GeneratedText,
		Model:   c.model,
	}, nil
}

// Embed returns one sentence embedding per input text.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body := map[string]any{
		"inputs":  texts,
		"options": requestOptions{WaitForModel: true},
	}

	var out [][]float32
	if err := c.post(ctx, "/pipeline/feature-extraction/"+c.embedModel, body, &out); err != nil {
		return nil, err
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("huggingface embed: got %d vectors for %d inputs", len(out), len(texts))
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &llm.APIError{Provider: "huggingface", StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("huggingface: decode %s: %w", path, err)
	}
	return nil
}
