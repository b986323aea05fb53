package dialogue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/koscakluka/ema-relay/core/credentials"
	"github.com/koscakluka/ema-relay/core/llms"
	"github.com/koscakluka/ema-relay/core/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generateCall struct {
	apiKey  string
	prompt  string
	options llms.PromptOptions
}

type stubGenerator struct {
	mu    sync.Mutex
	calls []generateCall
	reply func(prompt string) (string, error)
}

func (g *stubGenerator) Generate(_ context.Context, apiKey, prompt string, opts ...llms.PromptOption) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, generateCall{apiKey: apiKey, prompt: prompt, options: llms.NewPromptOptions(opts...)})
	g.mu.Unlock()
	if g.reply == nil {
		return "ok", nil
	}
	return g.reply(prompt)
}

func (g *stubGenerator) Calls() []generateCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]generateCall(nil), g.calls...)
}

type stubSearcher struct {
	calls   atomic.Int32
	results []search.Result
	err     error
	gotKey  string
}

func (s *stubSearcher) Search(_ context.Context, apiKey, _ string, _ int) ([]search.Result, error) {
	s.calls.Add(1)
	s.gotKey = apiKey
	return s.results, s.err
}

var fullCreds = credentials.Set{
	Transcription: "stt",
	Generation:    "llm",
	Synthesis:     "tts",
	Search:        "serp",
}

func replying(reply string) func(string) (string, error) {
	return func(string) (string, error) { return reply, nil }
}

func TestDecideOnlyExactYes(t *testing.T) {
	tests := []struct {
		answer string
		err    error
		want   bool
	}{
		{answer: "yes", want: true},
		{answer: "  YES\n", want: true},
		{answer: "Yes.", want: false},
		{answer: "yes, definitely", want: false},
		{answer: "no", want: false},
		{answer: "", want: false},
		{err: errors.New("quota exceeded"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			generator := &stubGenerator{reply: func(string) (string, error) { return tt.answer, tt.err }}
			engine := NewEngine(generator)

			assert.Equal(t, tt.want, engine.Decide(context.Background(), "What's the weather in Paris today?", "llm"))
			calls := generator.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, "llm", calls[0].apiKey)
			assert.Contains(t, calls[0].prompt, "Query: 'What's the weather in Paris today?'")
		})
	}
}

func TestDecideUsesDecisionModel(t *testing.T) {
	generator := &stubGenerator{reply: replying("no")}
	engine := NewEngine(generator, WithDecisionModel("small-model"))

	engine.Decide(context.Background(), "hi", "llm")
	assert.Equal(t, "small-model", generator.Calls()[0].options.Model)
}

func TestRespondDirectAppendsTurns(t *testing.T) {
	generator := &stubGenerator{reply: replying("  Hello there. How are you?  ")}
	engine := NewEngine(generator)
	history := []llms.Turn{llms.UserTurn("hi"), llms.AssistantTurn("hello")}

	reply, updated := engine.Respond(context.Background(), "how are things", history, fullCreds)

	assert.Equal(t, "Hello there. How are you?", reply)
	assert.Equal(t, []llms.Turn{
		llms.UserTurn("hi"),
		llms.AssistantTurn("hello"),
		llms.UserTurn("how are things"),
		llms.AssistantTurn("Hello there. How are you?"),
	}, updated)

	calls := generator.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, history, calls[0].options.Turns)
	assert.Contains(t, calls[0].options.Instructions, "MARVIS")
	assert.Contains(t, calls[0].options.Instructions, "1500 characters")

	updated[0].Content = "mutated"
	assert.Equal(t, "hi", history[0].Content, "returned history must not alias the input")
}

func TestRespondSearchWithoutKeyFallsThrough(t *testing.T) {
	searcher := &stubSearcher{results: []search.Result{{Snippet: "x"}}}
	generator := &stubGenerator{reply: replying("It is sunny.")}
	engine := NewEngine(generator, WithSearcher(searcher))

	creds := fullCreds
	creds.Search = ""
	reply, updated := engine.Respond(context.Background(), "weather?", nil, creds, WithWebSearch(true))

	assert.Equal(t, "It is sunny.", reply)
	assert.Zero(t, searcher.calls.Load())
	assert.Equal(t, "weather?", generator.Calls()[0].prompt)
	assert.Equal(t, llms.UserTurn("weather?"), updated[0])
}

func TestRespondSearchScenario(t *testing.T) {
	searcher := &stubSearcher{results: []search.Result{
		{Title: "a", Snippet: "Paris: sunny, 24C"},
		{Title: "b"},
		{Title: "c", Snippet: "Light breeze from the west"},
	}}
	long := strings.Repeat("The sun is out in Paris. ", 100)
	generator := &stubGenerator{reply: replying(long)}
	engine := NewEngine(generator, WithSearcher(searcher))

	reply, updated := engine.Respond(context.Background(), "What's the weather in Paris today?", nil, fullCreds, WithWebSearch(true))

	assert.Equal(t, int32(1), searcher.calls.Load())
	assert.Equal(t, "serp", searcher.gotKey)

	calls := generator.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t,
		"Based on these search results, answer the user's query.\n\nQuery: 'What's the weather in Paris today?'\n\nResults:\nParis: sunny, 24C\nLight breeze from the west",
		calls[0].prompt)

	assert.LessOrEqual(t, utf8.RuneCountInString(reply), DefaultMaxReplyChars)
	assert.True(t, strings.HasSuffix(reply, "."))
	require.Len(t, updated, 2)
	assert.Equal(t, calls[0].prompt, updated[0].Content)
}

func TestRespondSearchFailures(t *testing.T) {
	history := []llms.Turn{llms.UserTurn("hi"), llms.AssistantTurn("hello")}

	tests := []struct {
		name     string
		searcher *stubSearcher
		want     string
	}{
		{name: "search error", searcher: &stubSearcher{err: errors.New("401")}, want: SearchFailedReply},
		{name: "no snippets", searcher: &stubSearcher{results: []search.Result{{Title: "empty"}}}, want: NoSearchResultsReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator := &stubGenerator{}
			engine := NewEngine(generator, WithSearcher(tt.searcher))

			reply, updated := engine.Respond(context.Background(), "news?", history, fullCreds, WithWebSearch(true))
			assert.Equal(t, tt.want, reply)
			assert.Equal(t, history, updated)
			assert.Empty(t, generator.Calls())
		})
	}
}

func TestRespondGenerationFailureKeepsHistory(t *testing.T) {
	history := []llms.Turn{llms.UserTurn("hi"), llms.AssistantTurn("hello")}

	for name, reply := range map[string]func(string) (string, error){
		"error": func(string) (string, error) { return "", errors.New("503") },
		"empty": replying("   "),
	} {
		t.Run(name, func(t *testing.T) {
			engine := NewEngine(&stubGenerator{reply: reply})
			got, updated := engine.Respond(context.Background(), "again", history, fullCreds)
			assert.Equal(t, GenerationFailedReply, got)
			assert.Equal(t, history, updated)
		})
	}
}

func TestRespondHistoryRoundTrip(t *testing.T) {
	counter := 0
	generator := &stubGenerator{reply: func(string) (string, error) {
		counter++
		return "reply " + strings.Repeat("!", counter), nil
	}}
	engine := NewEngine(generator)

	var history []llms.Turn
	for i := 0; i < 5; i++ {
		var reply string
		utterance := "utterance " + string(rune('a'+i))
		reply, history = engine.Respond(context.Background(), utterance, history, fullCreds)

		require.Len(t, history, (i+1)*2)
		assert.Equal(t, llms.UserTurn(utterance), history[i*2])
		assert.Equal(t, llms.AssistantTurn(reply), history[i*2+1])
	}

	calls := generator.Calls()
	assert.Len(t, calls[4].options.Turns, 8)
}

func TestRespondTrimsToNewestPairs(t *testing.T) {
	engine := NewEngine(&stubGenerator{reply: replying("fine")}, WithMaxHistoryTurns(2))

	var history []llms.Turn
	for _, utterance := range []string{"one", "two", "three"} {
		_, history = engine.Respond(context.Background(), utterance, history, fullCreds)
	}

	require.Len(t, history, 4)
	assert.Equal(t, llms.UserTurn("two"), history[0])
	assert.Equal(t, llms.UserTurn("three"), history[2])
}

func TestTrimHistoryStartsWithUser(t *testing.T) {
	turns := []llms.Turn{
		llms.UserTurn("a"), llms.AssistantTurn("b"), llms.AssistantTurn("c"),
		llms.UserTurn("d"), llms.AssistantTurn("e"),
	}
	assert.Equal(t, []llms.Turn{llms.UserTurn("d"), llms.AssistantTurn("e")}, trimHistory(turns, 2)[0:2])
	assert.Equal(t, turns, trimHistory(turns, 0))
}

func TestTruncateReply(t *testing.T) {
	assert.Equal(t, "Short.", truncateReply("Short.", 10))
	assert.Equal(t, "One. Two!", truncateReply("One. Two! Three four five", 14))
	assert.Equal(t, "alpha beta", truncateReply("alpha beta gamma", 12))
	assert.Equal(t, "abcde", truncateReply("abcdefghij", 5))
}
