package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

type SearchConfig struct {
	URL       string
	APIKey    string
	Limit     int
	Timeout   time.Duration
	RateLimit float64
}

// SerperClient calls a Serper-compatible search endpoint.
type SerperClient struct {
	url        string
	apiKey     string
	limit      int
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

func NewSerperClient(cfg SearchConfig, logger logrus.FieldLogger) *SerperClient {
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &SerperClient{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		limit:      cfg.Limit,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    newLimiter(cfg.RateLimit),
		breaker:    newBreaker("search", logger),
	}
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []SearchResult `json:"organic"`
}

func (c *SerperClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	results, err := guarded(ctx, c.limiter, c.breaker, func() ([]SearchResult, error) {
		return c.search(ctx, query)
	})
	if err != nil {
		return nil, &UpstreamError{Service: "search", Err: err}
	}
	return results, nil
}

func (c *SerperClient) search(ctx context.Context, query string) ([]SearchResult, error) {
	body, err := json.Marshal(serperRequest{Q: query, Num: c.limit})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, snippet)
	}

	var out serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if len(out.Organic) > c.limit {
		out.Organic = out.Organic[:c.limit]
	}
	if out.Organic == nil {
		out.Organic = []SearchResult{}
	}
	return out.Organic, nil
}
