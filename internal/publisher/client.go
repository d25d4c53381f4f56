// Package publisher wraps the external social-publishing provider.
// Platform protocol details (OAuth dances, per-network formats) are
// entirely the provider's concern; this client only creates handles
// and submits posts.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"clipcast/api/internal/config"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg config.PublisherConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type CreatePostInput struct {
	HandleID    string    `json:"handleId"`
	Caption     string    `json:"caption"`
	Platforms   []string  `json:"platforms"`
	VideoURL    string    `json:"videoUrl,omitempty"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

type CreatePostResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreatePost submits a post for publication and returns the
// provider-side id used for later status lookups.
func (c *Client) CreatePost(ctx context.Context, input CreatePostInput) (CreatePostResult, error) {
	var result CreatePostResult
	if err := c.post(ctx, "/v1/posts", input, &result); err != nil {
		return CreatePostResult{}, err
	}
	return result, nil
}

type handleRequest struct {
	ExternalRef string `json:"externalRef"`
	DisplayName string `json:"displayName"`
}

type handleResponse struct {
	ID string `json:"id"`
}

// EnsureHandle creates the provider-side publishing handle for a user
// on first use. The call is idempotent on externalRef.
func (c *Client) EnsureHandle(ctx context.Context, userID string, displayName string) (string, error) {
	var result handleResponse
	if err := c.post(ctx, "/v1/handles", handleRequest{ExternalRef: userID, DisplayName: displayName}, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("publisher request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("publisher %s: status %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
