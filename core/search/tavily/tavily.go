// Package tavily queries the Tavily search API.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/koscakluka/ema-relay/core/providers"
	"github.com/koscakluka/ema-relay/core/search"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	scopeName    = "github.com/koscakluka/ema-relay/core/search/tavily"
	providerName = "tavily"

	defaultBaseURL = "https://api.tavily.com"
)

var tracer = otel.Tracer(scopeName)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = providers.NewHTTPClient(providers.DefaultTimeout)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) Search(ctx context.Context, apiKey, query string, maxResults int) ([]search.Result, error) {
	ctx, span := tracer.Start(ctx, "tavily search")
	defer span.End()

	results, err := c.search(ctx, apiKey, query, maxResults)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("search.results", len(results)))
	return results, nil
}

func (c *Client) search(ctx context.Context, apiKey, query string, maxResults int) ([]search.Result, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, providers.Wrap(providerName, "search", fmt.Errorf("api key is empty"))
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if maxResults <= 0 {
		maxResults = search.DefaultMaxResults
	}

	body, err := json.Marshal(map[string]any{
		"query":        query,
		"search_depth": "basic",
		"max_results":  maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providers.Wrap(providerName, "search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providers.StatusError(providerName, "search", resp)
	}

	var decoded struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, providers.Wrap(providerName, "decode response", err)
	}

	results := make([]search.Result, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		if len(results) == maxResults {
			break
		}
		results = append(results, search.Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
		})
	}
	return results, nil
}
