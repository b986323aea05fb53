// Package murf synthesizes speech with the Murf streaming TTS endpoint.
package murf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/koscakluka/ema-relay/core/providers"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	scopeName    = "github.com/koscakluka/ema-relay/core/texttospeech/murf"
	providerName = "murf"

	defaultBaseURL = "https://api.murf.ai"
	DefaultVoice   = "en-US-ken"
	DefaultStyle   = "Conversational"
	DefaultFormat  = "MP3"
)

var (
	tracer = otel.Tracer(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

type Client struct {
	baseURL    string
	voice      string
	style      string
	format     string
	sampleRate int
	httpClient *http.Client
}

type Option func(*Client)

func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL: defaultBaseURL,
		voice:   DefaultVoice,
		style:   DefaultStyle,
		format:  DefaultFormat,
	}
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

func WithVoice(voice string) Option {
	return func(c *Client) {
		if voice != "" {
			c.voice = voice
		}
	}
}

func WithStyle(style string) Option {
	return func(c *Client) {
		if style != "" {
			c.style = style
		}
	}
}

// WithFormat selects the container, e.g. MP3 or WAV.
func WithFormat(format string) Option {
	return func(c *Client) {
		if format != "" {
			c.format = strings.ToUpper(format)
		}
	}
}

func WithSampleRate(sampleRate int) Option {
	return func(c *Client) {
		if sampleRate > 0 {
			c.sampleRate = sampleRate
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

type streamRequest struct {
	Text       string `json:"text"`
	VoiceID    string `json:"voiceId"`
	Style      string `json:"style,omitempty"`
	Format     string `json:"format,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`
}

// Synthesize streams the speech for text and returns the concatenated
// audio chunks.
func (c *Client) Synthesize(ctx context.Context, apiKey, text string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "murf synthesize")
	defer span.End()
	span.SetAttributes(attribute.String("tts.voice", c.voice))

	audio, err := c.synthesize(ctx, apiKey, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("audio.bytes", len(audio)))
	return audio, nil
}

func (c *Client) synthesize(ctx context.Context, apiKey, text string) ([]byte, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, providers.Wrap(providerName, "synthesize", fmt.Errorf("api key is empty"))
	}

	body, err := json.Marshal(streamRequest{
		Text:       text,
		VoiceID:    c.voice,
		Style:      c.style,
		Format:     c.format,
		SampleRate: c.sampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal murf request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/speech/stream", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create murf request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providers.Wrap(providerName, "synthesize", err)
	}
	defer resp.Body.Close()

	if !providers.IsSuccess(resp.StatusCode) {
		return nil, providers.StatusError(providerName, "synthesize", resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.Wrap(providerName, "read audio stream", err)
	}
	logger.Debug("murf synthesis complete", "bytes", len(audio))
	return audio, nil
}
