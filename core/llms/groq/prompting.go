package groq

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/koscakluka/ema-relay/core/llms"
	"github.com/koscakluka/ema-relay/core/providers"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	endMessage  = "[DONE]"
	chunkPrefix = "data:"
)

// Generate streams a chat completion and returns the concatenated reply.
func (c *Client) Generate(ctx context.Context, apiKey, prompt string, opts ...llms.PromptOption) (string, error) {
	options := llms.NewPromptOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	ctx, span := tracer.Start(ctx, "groq generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", model),
		attribute.Int("llm.turns", len(options.Turns)),
	)

	reply, err := c.generate(ctx, apiKey, model, prompt, options)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return reply, nil
}

func (c *Client) generate(ctx context.Context, apiKey, model, prompt string, options llms.PromptOptions) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", providers.Wrap(providerName, "generate", fmt.Errorf("api key is empty"))
	}

	messages := toMessages(options.Instructions, options.Turns)
	messages = append(messages, message{
		Role:    messageRoleUser,
		Content: prompt,
	})

	requestBodyBytes, err := json.Marshal(requestBody{
		Model:       model,
		Messages:    messages,
		Stream:      true,
		Temperature: options.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(requestBodyBytes))
	if err != nil {
		return "", fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", providers.Wrap(providerName, "generate", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", providers.StatusError(providerName, "generate", resp)
	}

	var response strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		chunk := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), chunkPrefix))
		if len(chunk) == 0 {
			continue
		}
		if chunk == endMessage {
			break
		}

		var responseBody streamingResponseBody
		if err := json.Unmarshal([]byte(chunk), &responseBody); err != nil {
			logger.Warn("error unmarshalling groq chunk", "error", err)
			continue
		}
		if responseBody.Error != nil {
			return "", providers.Wrap(providerName, "generate", fmt.Errorf("%s", responseBody.Error.Message))
		}
		if len(responseBody.Choices) == 0 {
			continue
		}
		response.WriteString(responseBody.Choices[0].Delta.Content)
	}
	if err := scanner.Err(); err != nil {
		return "", providers.Wrap(providerName, "read stream", err)
	}

	return response.String(), nil
}

type requestBody struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type streamingResponseBody struct {
	Choices []struct {
		Delta struct {
			Role         string  `json:"role,omitempty"`
			Content      string  `json:"content,omitempty"`
			FinishReason *string `json:"finish_reason,omitempty"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
