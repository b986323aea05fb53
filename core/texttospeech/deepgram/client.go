package deepgram

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/koscakluka/ema-relay/core/providers"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
)

const (
	scopeName    = "github.com/koscakluka/ema-relay/core/texttospeech/deepgram"
	providerName = "deepgram"

	defaultBaseURL = "https://api.deepgram.com"
)

var (
	tracer = otel.Tracer(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

type TextToSpeechClient struct {
	baseURL    string
	voice      deepgramVoice
	encoding   string
	httpClient *http.Client
}

type TextToSpeechClientOption func(*TextToSpeechClient)

func NewTextToSpeechClient(voice deepgramVoice, opts ...TextToSpeechClientOption) (*TextToSpeechClient, error) {
	if voice == "" {
		voice = defaultVoice
	}
	if !slices.Contains(GetAvailableVoices(), voice) {
		return nil, fmt.Errorf("invalid voice %q", voice)
	}

	client := &TextToSpeechClient{
		baseURL:  defaultBaseURL,
		voice:    voice,
		encoding: "mp3",
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = providers.NewHTTPClient(providers.DefaultTimeout)
	}
	return client, nil
}

func WithBaseURL(baseURL string) TextToSpeechClientOption {
	return func(c *TextToSpeechClient) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithHTTPClient(httpClient *http.Client) TextToSpeechClientOption {
	return func(c *TextToSpeechClient) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func (c *TextToSpeechClient) Voice() string {
	return string(c.voice)
}
