// Package openai generates replies with the OpenAI chat completions API.
package openai

import (
	"net/http"

	"github.com/koscakluka/ema-relay/core/providers"
	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
)

const (
	scopeName    = "github.com/koscakluka/ema-relay/core/llms/openai"
	providerName = "openai"

	DefaultModel = "gpt-4o-mini"
)

var (
	tracer = otel.Tracer(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

type Client struct {
	client openaisdk.Client
	model  string
}

type Option func(*clientConfig)

type clientConfig struct {
	baseURL    string
	model      string
	maxRetries int
	httpClient *http.Client
}

// NewClient builds a client without a default credential; the key is
// attached to every request.
func NewClient(opts ...Option) *Client {
	config := clientConfig{model: DefaultModel, maxRetries: 1}
	for _, opt := range opts {
		opt(&config)
	}
	if config.httpClient == nil {
		config.httpClient = providers.NewHTTPClient(providers.DefaultTimeout)
	}

	requestOptions := []option.RequestOption{
		option.WithHTTPClient(config.httpClient),
		option.WithMaxRetries(config.maxRetries),
	}
	if config.baseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(config.baseURL))
	}

	return &Client{
		client: openaisdk.NewClient(requestOptions...),
		model:  config.model,
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *clientConfig) { c.baseURL = baseURL }
}

func WithModel(model string) Option {
	return func(c *clientConfig) {
		if model != "" {
			c.model = model
		}
	}
}

func WithMaxRetries(retries int) Option {
	return func(c *clientConfig) {
		if retries >= 0 {
			c.maxRetries = retries
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *clientConfig) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}
