// Package serpapi queries Google through SerpAPI.
package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/koscakluka/ema-relay/core/providers"
	"github.com/koscakluka/ema-relay/core/search"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	scopeName    = "github.com/koscakluka/ema-relay/core/search/serpapi"
	providerName = "serpapi"

	defaultBaseURL = "https://serpapi.com"
)

var tracer = otel.Tracer(scopeName)

type Client struct {
	baseURL    string
	engine     string
	httpClient *http.Client
}

type Option func(*Client)

func NewClient(opts ...Option) *Client {
	client := &Client{baseURL: defaultBaseURL, engine: "google"}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = providers.NewHTTPClient(providers.DefaultTimeout)
	}
	return client
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

type searchResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
	} `json:"organic_results"`
}

// Search returns the top organic results. A query with no organic results
// yields an empty slice and no error.
func (c *Client) Search(ctx context.Context, apiKey, query string, maxResults int) ([]search.Result, error) {
	ctx, span := tracer.Start(ctx, "serpapi search")
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

	params := url.Values{}
	params.Set("engine", c.engine)
	params.Set("q", query)
	params.Set("api_key", apiKey)
	params.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The request URL carries the key, so only the cause is kept.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, providers.Wrap(providerName, "search", err)
	}
	defer resp.Body.Close()

	if !providers.IsSuccess(resp.StatusCode) {
		return nil, providers.StatusError(providerName, "search", resp)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, providers.Wrap(providerName, "decode response", err)
	}
	if decoded.Error != "" && len(decoded.OrganicResults) == 0 {
		if strings.Contains(strings.ToLower(decoded.Error), "hasn't returned any results") {
			return []search.Result{}, nil
		}
		return nil, providers.Wrap(providerName, "search", fmt.Errorf("%s", decoded.Error))
	}

	results := make([]search.Result, 0, min(maxResults, len(decoded.OrganicResults)))
	for _, organic := range decoded.OrganicResults {
		if len(results) == maxResults {
			break
		}
		results = append(results, search.Result{
			Title:   organic.Title,
			URL:     organic.Link,
			Snippet: organic.Snippet,
		})
	}
	return results, nil
}
