package main

import (
	"testing"

	orchestration "github.com/koscakluka/ema-relay/core"
	"github.com/koscakluka/ema-relay/core/credentials"
	"github.com/koscakluka/ema-relay/core/speechtotext/assemblyai"
	sttdeepgram "github.com/koscakluka/ema-relay/core/speechtotext/deepgram"
	ttsdeepgram "github.com/koscakluka/ema-relay/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-relay/core/texttospeech/murf"
	"github.com/koscakluka/ema-relay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() config.Config {
	return config.Config{
		Port:                 8000,
		SpeechToTextProvider: config.ProviderAssemblyAI,
		LLMProvider:          config.ProviderGemini,
		TextToSpeechProvider: config.ProviderMurf,
		SearchProvider:       config.ProviderSerpAPI,
		SampleRate:           16000,
		MaxHistoryTurns:      20,
		MaxReplyChars:        1500,
		SearchMaxResults:     5,
	}
}

func TestBuildStackDefaults(t *testing.T) {
	s, err := buildStack(defaultConfig())
	require.NoError(t, err)

	assert.IsType(t, &assemblyai.TranscriptionClient{}, s.speechToText)
	assert.IsType(t, &murf.Client{}, s.textToSpeech)
	assert.NotNil(t, s.engine)
	assert.Equal(t, "gemini", s.stages[orchestration.StageResponse])
}

func TestBuildStackAlternativeProviders(t *testing.T) {
	cfg := defaultConfig()
	cfg.SpeechToTextProvider = config.ProviderDeepgram
	cfg.LLMProvider = config.ProviderOpenAI
	cfg.TextToSpeechProvider = config.ProviderDeepgram
	cfg.SearchProvider = config.ProviderTavily
	cfg.TTSVoice = "aura-2-apollo-en"

	s, err := buildStack(cfg)
	require.NoError(t, err)

	assert.IsType(t, &sttdeepgram.TranscriptionClient{}, s.speechToText)
	assert.IsType(t, &ttsdeepgram.TextToSpeechClient{}, s.textToSpeech)
	assert.Equal(t, "openai", s.stages[orchestration.StageDecision])
}

func TestBuildStackRejectsUnknownVoice(t *testing.T) {
	cfg := defaultConfig()
	cfg.TextToSpeechProvider = config.ProviderDeepgram
	cfg.TTSVoice = "not-a-voice"

	_, err := buildStack(cfg)
	require.Error(t, err)
}

func TestNewSessionUsesConfiguredFallback(t *testing.T) {
	cfg := defaultConfig()
	cfg.Keys = config.APIKeys{AssemblyAI: "a", Gemini: "g", Murf: "m"}

	s, err := buildStack(cfg)
	require.NoError(t, err)

	session := s.newSession(cfg, nil)("session-1")
	assert.Equal(t, "session-1", session.SessionID())
	assert.Equal(t, credentials.Set{Transcription: "a", Generation: "g", Synthesis: "m"}, cfg.Fallback())
}
