// Package gemini generates replies with the Gemini API through the
// google.golang.org/genai SDK.
package gemini

import (
	"net/http"

	"github.com/koscakluka/ema-relay/core/providers"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
)

const (
	scopeName    = "github.com/koscakluka/ema-relay/core/llms/gemini"
	providerName = "gemini"

	DefaultModel = "gemini-2.5-flash"
)

var (
	tracer = otel.Tracer(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

// Client holds no credential. A genai client is built per call with the
// caller's key, sharing one instrumented HTTP client.
type Client struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func NewClient(opts ...Option) *Client {
	client := &Client{model: DefaultModel}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = providers.NewHTTPClient(providers.DefaultTimeout)
	}
	return client
}

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the SDK at another endpoint, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}
