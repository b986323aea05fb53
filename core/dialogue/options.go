package dialogue

import (
	"time"

	"github.com/koscakluka/ema-relay/core/search"
)

const (
	DefaultMaxHistoryTurns = 20
	DefaultMaxReplyChars   = 1500
)

type EngineOptions struct {
	Searcher search.Searcher
	// MaxHistoryTurns is the number of user/assistant pairs kept. Zero keeps
	// everything.
	MaxHistoryTurns int
	MaxReplyChars   int
	MaxResults      int
	// Timeout bounds every generation and search call.
	Timeout time.Duration
	// DecisionModel optionally routes the search decision to a cheaper
	// model.
	DecisionModel string
	Persona       string
}

type EngineOption func(*EngineOptions)

func WithSearcher(searcher search.Searcher) EngineOption {
	return func(o *EngineOptions) { o.Searcher = searcher }
}

func WithMaxHistoryTurns(turns int) EngineOption {
	return func(o *EngineOptions) {
		if turns >= 0 {
			o.MaxHistoryTurns = turns
		}
	}
}

func WithMaxReplyChars(chars int) EngineOption {
	return func(o *EngineOptions) {
		if chars > 0 {
			o.MaxReplyChars = chars
		}
	}
}

func WithMaxSearchResults(results int) EngineOption {
	return func(o *EngineOptions) {
		if results > 0 {
			o.MaxResults = results
		}
	}
}

func WithProviderTimeout(timeout time.Duration) EngineOption {
	return func(o *EngineOptions) {
		if timeout >= 0 {
			o.Timeout = timeout
		}
	}
}

func WithDecisionModel(model string) EngineOption {
	return func(o *EngineOptions) { o.DecisionModel = model }
}

// WithPersona replaces the default spoken-assistant instruction.
func WithPersona(persona string) EngineOption {
	return func(o *EngineOptions) {
		if persona != "" {
			o.Persona = persona
		}
	}
}

type respondOptions struct {
	webSearch bool
}

type RespondOption func(*respondOptions)

// WithWebSearch asks Respond to ground the reply in search results when a
// search credential and searcher are available.
func WithWebSearch(enabled bool) RespondOption {
	return func(o *respondOptions) { o.webSearch = enabled }
}
