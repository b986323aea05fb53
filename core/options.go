package orchestration

import (
	"context"
	"time"

	"github.com/koscakluka/ema-relay/core/credentials"
	"github.com/koscakluka/ema-relay/core/dialogue"
	"github.com/koscakluka/ema-relay/core/llms"
	"github.com/koscakluka/ema-relay/core/speechtotext"
	"github.com/koscakluka/ema-relay/core/texttospeech"
)

type OrchestratorOption func(*Orchestrator)

// DialogueEngine produces replies. *dialogue.Engine satisfies it.
type DialogueEngine interface {
	Decide(ctx context.Context, utterance, generationKey string) bool
	Respond(ctx context.Context, utterance string, history []llms.Turn, creds credentials.Set, opts ...dialogue.RespondOption) (string, []llms.Turn)
}

// SentenceSplitter cuts a reply into the units that are synthesized one at
// a time.
type SentenceSplitter func(text string) []string

func WithSpeechToTextClient(client speechtotext.Provider) OrchestratorOption {
	return func(o *Orchestrator) {
		o.speechToText = client
	}
}

func WithTextToSpeechClient(client texttospeech.Provider) OrchestratorOption {
	return func(o *Orchestrator) {
		o.textToSpeech = client
	}
}

func WithDialogueEngine(engine DialogueEngine) OrchestratorOption {
	return func(o *Orchestrator) {
		o.dialogue = engine
	}
}

// WithFallbackCredentials sets the keys used for every slot the caller
// leaves empty.
func WithFallbackCredentials(fallback credentials.Set) OrchestratorOption {
	return func(o *Orchestrator) {
		o.fallback = fallback
	}
}

func WithSentenceSplitter(splitter SentenceSplitter) OrchestratorOption {
	return func(o *Orchestrator) {
		if splitter != nil {
			o.splitter = splitter
		}
	}
}

// WithProviderTimeout bounds each synthesis call.
func WithProviderTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.providerTimeout = timeout
		}
	}
}

func WithSampleRate(sampleRate int) OrchestratorOption {
	return func(o *Orchestrator) {
		if sampleRate > 0 {
			o.sampleRate = sampleRate
		}
	}
}

func WithSessionID(id string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sessionID = id
	}
}

func WithObserver(observer Observer) OrchestratorOption {
	return func(o *Orchestrator) {
		if observer != nil {
			o.observer = observer
		}
	}
}
