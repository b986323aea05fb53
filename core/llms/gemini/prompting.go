package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/koscakluka/ema-relay/core/llms"
	"github.com/koscakluka/ema-relay/core/providers"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"
)

func (c *Client) Generate(ctx context.Context, apiKey, prompt string, opts ...llms.PromptOption) (string, error) {
	options := llms.NewPromptOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	ctx, span := tracer.Start(ctx, "gemini generate")
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

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  c.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.baseURL},
	})
	if err != nil {
		return "", providers.Wrap(providerName, "create client", err)
	}

	var config *genai.GenerateContentConfig
	if options.Instructions != "" || options.Temperature != nil {
		config = &genai.GenerateContentConfig{}
		if options.Instructions != "" {
			config.SystemInstruction = genai.NewContentFromText(options.Instructions, genai.RoleUser)
		}
		if options.Temperature != nil {
			config.Temperature = genai.Ptr(float32(*options.Temperature))
		}
	}

	resp, err := client.Models.GenerateContent(ctx, model, toContents(options.Turns, prompt), config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &providers.Error{Provider: providerName, Op: "generate", StatusCode: apiErr.Code, Body: apiErr.Message}
		}
		return "", providers.Wrap(providerName, "generate", err)
	}

	text := resp.Text()
	if text == "" {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", providers.Wrap(providerName, "generate", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason))
		}
		logger.Warn("gemini returned an empty reply", "model", model)
	}
	return text, nil
}

// toContents maps history onto Gemini roles; the assistant speaks as
// "model".
func toContents(turns []llms.Turn, prompt string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns)+1)
	for _, turn := range turns {
		if turn.Content == "" {
			continue
		}
		switch turn.Role {
		case llms.TurnRoleUser:
			contents = append(contents, genai.NewContentFromText(turn.Content, genai.RoleUser))
		case llms.TurnRoleAssistant:
			contents = append(contents, genai.NewContentFromText(turn.Content, genai.RoleModel))
		}
	}
	return append(contents, genai.NewContentFromText(prompt, genai.RoleUser))
}
