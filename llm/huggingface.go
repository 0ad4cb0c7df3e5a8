// Package llm provides the Hugging Face inference API client used for text
// embeddings and chat response generation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Hugging Face inference API root.
const DefaultBaseURL = "https://api-inference.huggingface.co/models/"

// DefaultTimeout bounds each outbound HTTP call.
const DefaultTimeout = 30 * time.Second

// DefaultRequestsPerSecond throttles outbound calls so bulk re-indexing does
// not trip the provider's rate limits in the first place.
const DefaultRequestsPerSecond = 2

// ErrEmptyResponse is returned when generation succeeds at the HTTP level but
// yields no usable text.
var ErrEmptyResponse = errors.New("empty generation response")

// Config configures a Client.
type Config struct {
	APIKey            string  // required
	BaseURL           string  // default: DefaultBaseURL
	EmbeddingModel    string  // model id for Embed
	GenerationModel   string  // model id for Generate
	Dimension         int     // embedding dimension of EmbeddingModel
	MaxRetries        int     // retry budget for throttled embedding calls
	MaxTokens         int     // generation length bound
	Temperature       float64 // generation sampling temperature
	RequestsPerSecond float64 // proactive throttle, default DefaultRequestsPerSecond
}

// Client calls the Hugging Face inference API.
type Client struct {
	apiKey      string
	baseURL     string
	embedModel  string
	genModel    string
	dimension   int
	maxRetries  int
	maxTokens   int
	temperature float64
	client      *http.Client
	limiter     *rate.Limiter

	// sleep is swapped out in tests so retry backoff doesn't stall them.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client. The API key is required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		embedModel:  cfg.EmbeddingModel,
		genModel:    cfg.GenerationModel,
		dimension:   cfg.Dimension,
		maxRetries:  cfg.MaxRetries,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		sleep:       sleepCtx,
	}, nil
}

// Dimension reports the embedding dimension of the configured model.
func (c *Client) Dimension() int {
	return c.dimension
}

// Embed generates an embedding for a single text. HTTP 429 responses are
// retried with linearly increasing backoff (attempt*2 seconds) up to the
// retry budget; any other non-200 fails immediately.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, errors.New("llm: empty embed input")
	}

	body, err := json.Marshal(map[string]any{"inputs": text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	retries := 0
	for {
		raw, status, err := c.post(ctx, c.embedModel, body)
		if err != nil {
			return nil, err
		}

		switch {
		case status == http.StatusOK:
			embedding, err := parseEmbedding(raw)
			if err != nil {
				return nil, err
			}
			return embedding, nil
		case status == http.StatusTooManyRequests && retries < c.maxRetries:
			retries++
			log.Printf("[llm] Embedding API throttled, retry %d/%d", retries, c.maxRetries)
			if err := c.sleep(ctx, time.Duration(retries)*2*time.Second); err != nil {
				return nil, err
			}
		default:
			log.Printf("[llm] Embedding API error: status %d", status)
			return nil, fmt.Errorf("embedding API error (status %d): %s", status, truncateBody(raw))
		}
	}
}

// Generate produces a chat response for the prompt. The caller treats any
// error or empty result as a signal to fall back, not as fatal.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"inputs": prompt,
		"parameters": map[string]any{
			"max_length":       c.maxTokens,
			"temperature":      c.temperature,
			"do_sample":        true,
			"return_full_text": false,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	raw, status, err := c.post(ctx, c.genModel, body)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		log.Printf("[llm] Generation API error: status %d", status)
		return "", fmt.Errorf("generation API error (status %d): %s", status, truncateBody(raw))
	}

	text, err := parseGeneration(raw)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *Client) post(ctx context.Context, model string, body []byte) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+model, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

// parseEmbedding handles the response shapes the feature-extraction endpoint
// produces for different models.
func parseEmbedding(raw []byte) ([]float64, error) {
	var nested [][]float64
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 {
		return nested[0], nil
	}

	var flat []float64
	if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}

	var wrapped struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Embeddings) > 0 {
		return wrapped.Embeddings[0], nil
	}

	return nil, fmt.Errorf("unexpected embedding response format: %s", truncateBody(raw))
}

// parseGeneration handles the response shapes the text-generation endpoint
// produces for different models.
func parseGeneration(raw []byte) (string, error) {
	var list []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && list[0].GeneratedText != "" {
		return list[0].GeneratedText, nil
	}

	var single struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &single); err == nil && single.GeneratedText != "" {
		return single.GeneratedText, nil
	}

	var strs []string
	if err := json.Unmarshal(raw, &strs); err == nil && len(strs) > 0 && strs[0] != "" {
		return strs[0], nil
	}

	return "", ErrEmptyResponse
}

func truncateBody(raw []byte) string {
	const max = 100
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
