package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/koscakluka/ema-relay/core/llms"
	"github.com/koscakluka/ema-relay/core/providers"
	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func (c *Client) Generate(ctx context.Context, apiKey, prompt string, opts ...llms.PromptOption) (string, error) {
	options := llms.NewPromptOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	ctx, span := tracer.Start(ctx, "openai generate")
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

	params := openaisdk.ChatCompletionNewParams{
		Model:    model,
		Messages: toMessages(options.Instructions, options.Turns, prompt),
	}
	if options.Temperature != nil {
		params.Temperature = openaisdk.Float(*options.Temperature)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params, option.WithAPIKey(apiKey))
	if err != nil {
		var apiErr *openaisdk.Error
		if errors.As(err, &apiErr) {
			return "", &providers.Error{Provider: providerName, Op: "generate", StatusCode: apiErr.StatusCode, Err: err}
		}
		return "", providers.Wrap(providerName, "generate", err)
	}
	if len(completion.Choices) == 0 {
		return "", providers.Wrap(providerName, "generate", errors.New("no choices returned"))
	}

	logger.Debug("openai completion finished",
		"model", completion.Model,
		"finish_reason", completion.Choices[0].FinishReason,
		"total_tokens", completion.Usage.TotalTokens)
	return completion.Choices[0].Message.Content, nil
}

func toMessages(instructions string, turns []llms.Turn, prompt string) []openaisdk.ChatCompletionMessageParamUnion {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(turns)+2)
	if instructions != "" {
		messages = append(messages, openaisdk.SystemMessage(instructions))
	}
	for _, turn := range turns {
		if turn.Content == "" {
			continue
		}
		switch turn.Role {
		case llms.TurnRoleUser:
			messages = append(messages, openaisdk.UserMessage(turn.Content))
		case llms.TurnRoleAssistant:
			messages = append(messages, openaisdk.AssistantMessage(turn.Content))
		}
	}
	return append(messages, openaisdk.UserMessage(prompt))
}
