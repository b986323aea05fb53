package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/koscakluka/ema-relay/core/providers"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Synthesize renders text with the REST speak endpoint.
func (c *TextToSpeechClient) Synthesize(ctx context.Context, apiKey, text string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "deepgram synthesize")
	defer span.End()
	span.SetAttributes(attribute.String("tts.voice", string(c.voice)))

	audio, err := c.speak(ctx, apiKey, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return audio, nil
}

func (c *TextToSpeechClient) speak(ctx context.Context, apiKey, text string) ([]byte, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, providers.Wrap(providerName, "synthesize", fmt.Errorf("api key is empty"))
	}

	query := url.Values{}
	query.Set("model", string(c.voice))
	query.Set("encoding", c.encoding)

	body, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal speak request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/speak?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create speak request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+apiKey)

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
		return nil, providers.Wrap(providerName, "read audio", err)
	}
	logger.Debug("deepgram synthesis complete", "bytes", len(audio), "request_id", resp.Header.Get("dg-request-id"))
	return audio, nil
}
