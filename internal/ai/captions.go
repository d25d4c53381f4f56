// Package ai wraps the caption-generation provider. Prompt design
// lives server-side at the provider; we only ship context and read
// candidates back.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"clipcast/api/internal/config"
)

type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewClient(cfg config.AIConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type CaptionInput struct {
	Title    string   `json:"title"`
	Tone     string   `json:"tone,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

type captionRequest struct {
	Model string       `json:"model"`
	Input CaptionInput `json:"input"`
}

type captionResponse struct {
	Candidates []string `json:"candidates"`
}

// GenerateCaptions returns caption candidates for a video.
func (c *Client) GenerateCaptions(ctx context.Context, input CaptionInput) ([]string, error) {
	body, err := json.Marshal(captionRequest{Model: c.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/captions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("caption request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("caption provider: status %d", resp.StatusCode)
	}

	var out captionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Candidates, nil
}
