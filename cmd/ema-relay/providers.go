package main

import (
	"fmt"

	orchestration "github.com/koscakluka/ema-relay/core"
	"github.com/koscakluka/ema-relay/core/dialogue"
	"github.com/koscakluka/ema-relay/core/llms"
	"github.com/koscakluka/ema-relay/core/llms/gemini"
	"github.com/koscakluka/ema-relay/core/llms/groq"
	"github.com/koscakluka/ema-relay/core/llms/openai"
	"github.com/koscakluka/ema-relay/core/providers"
	"github.com/koscakluka/ema-relay/core/search"
	"github.com/koscakluka/ema-relay/core/search/serpapi"
	"github.com/koscakluka/ema-relay/core/search/tavily"
	"github.com/koscakluka/ema-relay/core/speechtotext"
	"github.com/koscakluka/ema-relay/core/speechtotext/assemblyai"
	sttdeepgram "github.com/koscakluka/ema-relay/core/speechtotext/deepgram"
	"github.com/koscakluka/ema-relay/core/texttospeech"
	ttsdeepgram "github.com/koscakluka/ema-relay/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-relay/core/texttospeech/murf"
	"github.com/koscakluka/ema-relay/internal/config"
)

// stack holds the process-wide provider clients. They keep no per-session
// state and take credentials per call.
type stack struct {
	speechToText speechtotext.Provider
	textToSpeech texttospeech.Provider
	engine       *dialogue.Engine
	stages       map[orchestration.Stage]string
}

func buildStack(cfg config.Config) (*stack, error) {
	httpClient := providers.NewHTTPClient(cfg.ProviderTimeout)

	var speechToText speechtotext.Provider
	switch cfg.SpeechToTextProvider {
	case config.ProviderAssemblyAI:
		speechToText = assemblyai.NewTranscriptionClient()
	case config.ProviderDeepgram:
		speechToText = sttdeepgram.NewTranscriptionClient()
	default:
		return nil, fmt.Errorf("unknown speech-to-text provider %q", cfg.SpeechToTextProvider)
	}

	var generator llms.Generator
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		generator = gemini.NewClient(gemini.WithModel(cfg.LLMModel), gemini.WithHTTPClient(httpClient))
	case config.ProviderGroq:
		generator = groq.NewClient(groq.WithModel(cfg.LLMModel), groq.WithHTTPClient(httpClient))
	case config.ProviderOpenAI:
		generator = openai.NewClient(openai.WithModel(cfg.LLMModel), openai.WithHTTPClient(httpClient))
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}

	var textToSpeech texttospeech.Provider
	switch cfg.TextToSpeechProvider {
	case config.ProviderMurf:
		textToSpeech = murf.NewClient(murf.WithVoice(cfg.TTSVoice), murf.WithHTTPClient(httpClient))
	case config.ProviderDeepgram:
		voice, ok := ttsdeepgram.ParseVoice(cfg.TTSVoice)
		if !ok {
			return nil, fmt.Errorf("unknown deepgram voice %q", cfg.TTSVoice)
		}
		client, err := ttsdeepgram.NewTextToSpeechClient(voice, ttsdeepgram.WithHTTPClient(httpClient))
		if err != nil {
			return nil, fmt.Errorf("failed to create deepgram text-to-speech client: %w", err)
		}
		textToSpeech = client
	default:
		return nil, fmt.Errorf("unknown text-to-speech provider %q", cfg.TextToSpeechProvider)
	}

	var searcher search.Searcher
	switch cfg.SearchProvider {
	case config.ProviderSerpAPI:
		searcher = serpapi.NewClient(serpapi.WithHTTPClient(httpClient))
	case config.ProviderTavily:
		searcher = tavily.NewClient("", httpClient)
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.SearchProvider)
	}

	engine := dialogue.NewEngine(generator,
		dialogue.WithSearcher(searcher),
		dialogue.WithMaxHistoryTurns(cfg.MaxHistoryTurns),
		dialogue.WithMaxReplyChars(cfg.MaxReplyChars),
		dialogue.WithMaxSearchResults(cfg.SearchMaxResults),
		dialogue.WithProviderTimeout(cfg.ProviderTimeout),
	)

	return &stack{
		speechToText: speechToText,
		textToSpeech: textToSpeech,
		engine:       engine,
		stages: map[orchestration.Stage]string{
			orchestration.StageTranscription: cfg.SpeechToTextProvider,
			orchestration.StageDecision:      cfg.LLMProvider,
			orchestration.StageResponse:      cfg.LLMProvider,
			orchestration.StageSynthesis:     cfg.TextToSpeechProvider,
		},
	}, nil
}

func (s *stack) newSession(cfg config.Config, observer orchestration.Observer) func(string) *orchestration.Orchestrator {
	fallback := cfg.Fallback()
	return func(sessionID string) *orchestration.Orchestrator {
		return orchestration.NewOrchestrator(
			orchestration.WithSessionID(sessionID),
			orchestration.WithSpeechToTextClient(s.speechToText),
			orchestration.WithTextToSpeechClient(s.textToSpeech),
			orchestration.WithDialogueEngine(s.engine),
			orchestration.WithFallbackCredentials(fallback),
			orchestration.WithProviderTimeout(cfg.ProviderTimeout),
			orchestration.WithSampleRate(cfg.SampleRate),
			orchestration.WithObserver(observer),
		)
	}
}
