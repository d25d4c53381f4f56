// Package trends proxies the trend-data provider with a short Redis
// cache in front, so dashboard polling does not hammer the upstream.
package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/redis/go-redis/v9"

	"clipcast/api/internal/config"
)

type Topic struct {
	Title    string `json:"title"`
	Source   string `json:"source"`
	Score    int    `json:"score"`
	Category string `json:"category,omitempty"`
}

type Client struct {
	cfg   config.TrendsConfig
	cache *redis.Client
	http  *http.Client
}

func NewClient(cfg config.TrendsConfig, cache *redis.Client) *Client {
	return &Client{
		cfg:   cfg,
		cache: cache,
		http:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Fetch returns trending topics for a category, serving from cache
// when fresh. Cache failures degrade to a direct upstream call.
func (c *Client) Fetch(ctx context.Context, category string) ([]Topic, error) {
	cacheKey := fmt.Sprintf("trends:%s", category)

	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var topics []Topic
			if json.Unmarshal(cached, &topics) == nil {
				return topics, nil
			}
		}
	}

	endpoint := c.cfg.BaseURL + "/v1/trending"
	if category != "" {
		endpoint += "?category=" + url.QueryEscape(category)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trends request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trends provider: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var topics []Topic
	if err := json.Unmarshal(body, &topics); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, cacheKey, body, c.cfg.CacheTTL).Err()
	}

	return topics, nil
}
