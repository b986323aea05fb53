// Package dialogue turns a user utterance into an assistant reply. It decides
// whether the reply needs fresh web results, optionally runs the search, and
// keeps the conversation history the next turn is generated against.
//
// Provider failures never escape the engine: Decide fails closed and Respond
// falls back to a spoken apology with the history left untouched.
package dialogue

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-relay/core/credentials"
	"github.com/koscakluka/ema-relay/core/llms"
	"github.com/koscakluka/ema-relay/core/search"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	GenerationFailedReply = "I'm sorry, I encountered an error while processing your request."
	SearchFailedReply     = "I'm sorry, I encountered an error while searching the web."
	NoSearchResultsReply  = "I couldn't find any relevant information on the web for that query."
)

type Engine struct {
	generator llms.Generator
	options   EngineOptions
	persona   string
}

func NewEngine(generator llms.Generator, opts ...EngineOption) *Engine {
	options := EngineOptions{
		MaxHistoryTurns: DefaultMaxHistoryTurns,
		MaxReplyChars:   DefaultMaxReplyChars,
		MaxResults:      search.DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(&options)
	}

	persona := options.Persona
	if persona == "" {
		persona = renderPersona(options.MaxReplyChars)
	}
	return &Engine{generator: generator, options: options, persona: persona}
}

// Decide asks the generator whether utterance needs live information. Only
// an exact "yes" (ignoring case and surrounding space) counts.
func (e *Engine) Decide(ctx context.Context, utterance, generationKey string) bool {
	ctx, span := tracer.Start(ctx, "decide web search")
	defer span.End()

	if e == nil || e.generator == nil || strings.TrimSpace(utterance) == "" {
		return false
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	var opts []llms.PromptOption
	if e.options.DecisionModel != "" {
		opts = append(opts, llms.WithModel(e.options.DecisionModel))
	}
	answer, err := e.generator.Generate(ctx, generationKey, renderDecide(utterance), opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("search decision failed, answering without search", "error", err)
		return false
	}

	decision := strings.ToLower(strings.TrimSpace(answer)) == "yes"
	span.SetAttributes(attribute.Bool("dialogue.search", decision))
	logger.Debug("search decision", "decision", decision)
	return decision
}

// Respond generates the reply to utterance. On success the returned history
// is a copy of history followed by the prompt actually sent and the reply.
// On failure the reply is a fixed apology and the history is an unmodified
// copy of the input.
func (e *Engine) Respond(ctx context.Context, utterance string, history []llms.Turn, creds credentials.Set, opts ...RespondOption) (string, []llms.Turn) {
	options := respondOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, span := tracer.Start(ctx, "respond")
	defer span.End()

	previous := cloneHistory(history)
	if e == nil || e.generator == nil {
		return GenerationFailedReply, previous
	}

	prompt := utterance
	if options.webSearch && creds.CanSearch() && e.options.Searcher != nil {
		span.SetAttributes(attribute.Bool("dialogue.search", true))

		snippets, err := e.search(ctx, creds.Search, utterance)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("web search failed", "error", err)
			return SearchFailedReply, previous
		}
		if len(snippets) == 0 {
			return NoSearchResultsReply, previous
		}
		prompt = renderSearch(utterance, snippets)
	}

	reply, err := e.generate(ctx, creds.Generation, prompt, previous)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("reply generation failed", "error", err)
		return GenerationFailedReply, previous
	}

	reply = truncateReply(reply, e.options.MaxReplyChars)
	updated := append(cloneHistory(previous), llms.UserTurn(prompt), llms.AssistantTurn(reply))
	updated = trimHistory(updated, e.options.MaxHistoryTurns)

	span.SetAttributes(
		attribute.Int("dialogue.reply_chars", utf8.RuneCountInString(reply)),
		attribute.Int("dialogue.history_turns", len(updated)),
	)
	return reply, updated
}

func (e *Engine) search(ctx context.Context, apiKey, query string) ([]string, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	results, err := e.options.Searcher.Search(ctx, apiKey, query, e.options.MaxResults)
	if err != nil {
		return nil, err
	}
	if len(results) > e.options.MaxResults {
		results = results[:e.options.MaxResults]
	}
	return search.Snippets(results), nil
}

func (e *Engine) generate(ctx context.Context, apiKey, prompt string, history []llms.Turn) (string, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	reply, err := e.generator.Generate(ctx, apiKey, prompt,
		llms.WithSystemPrompt(e.persona),
		llms.WithTurns(history...),
	)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errEmptyReply
	}
	return reply, nil
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.options.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.options.Timeout)
}

func cloneHistory(history []llms.Turn) []llms.Turn {
	cloned := make([]llms.Turn, 0, len(history)+2)
	if len(history) == 0 {
		return cloned
	}
	if err := copier.CopyWithOption(&cloned, history, copier.Option{DeepCopy: true}); err != nil {
		// Turns are plain values; fall back to a shallow copy.
		cloned = append(cloned[:0], history...)
	}
	return cloned
}

// trimHistory keeps the newest maxPairs user/assistant pairs and makes sure
// the result starts with a user turn.
func trimHistory(turns []llms.Turn, maxPairs int) []llms.Turn {
	if maxPairs <= 0 || len(turns) <= maxPairs*2 {
		return turns
	}
	trimmed := turns[len(turns)-maxPairs*2:]
	for len(trimmed) > 0 && trimmed[0].Role != llms.TurnRoleUser {
		trimmed = trimmed[1:]
	}
	return trimmed
}

// truncateReply shortens reply to at most maxChars runes, preferring to cut
// after the last complete sentence.
func truncateReply(reply string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(reply) <= maxChars {
		return reply
	}

	cut := string([]rune(reply)[:maxChars])
	if idx := strings.LastIndexAny(cut, ".?!"); idx > 0 {
		return cut[:idx+1]
	}
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		return strings.TrimSpace(cut[:idx])
	}
	return cut
}

