// Package config loads the relay configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/koscakluka/ema-relay/core/credentials"
)

const (
	ProviderAssemblyAI = "assemblyai"
	ProviderDeepgram   = "deepgram"
	ProviderGemini     = "gemini"
	ProviderGroq       = "groq"
	ProviderOpenAI     = "openai"
	ProviderMurf       = "murf"
	ProviderSerpAPI    = "serpapi"
	ProviderTavily     = "tavily"
)

var (
	speechToTextProviders = []string{ProviderAssemblyAI, ProviderDeepgram}
	llmProviders          = []string{ProviderGemini, ProviderGroq, ProviderOpenAI}
	textToSpeechProviders = []string{ProviderMurf, ProviderDeepgram}
	searchProviders       = []string{ProviderSerpAPI, ProviderTavily}
)

// APIKeys are the process-wide fallback keys, one per vendor.
type APIKeys struct {
	AssemblyAI string
	Deepgram   string
	Gemini     string
	Groq       string
	OpenAI     string
	Murf       string
	SerpAPI    string
	Tavily     string
}

type Config struct {
	Host        string
	Port        int
	LogLevel    string
	TraceStdout bool

	SpeechToTextProvider string
	LLMProvider          string
	TextToSpeechProvider string
	SearchProvider       string

	LLMModel string
	TTSVoice string

	SampleRate       int
	ProviderTimeout  time.Duration
	MaxHistoryTurns  int
	MaxReplyChars    int
	SearchMaxResults int

	Keys APIKeys
}

// LoadDotEnv reads an optional .env file into the environment. Variables
// already set take precedence.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	var existing []string
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load %s: %w", strings.Join(existing, ", "), err)
	}
	return nil
}

func Load() Config {
	return Config{
		Host:        envStr("EMA_RELAY_HOST", "0.0.0.0"),
		Port:        envInt("EMA_RELAY_PORT", 8000),
		LogLevel:    strings.ToLower(envStr("LOG_LEVEL", "info")),
		TraceStdout: envBool("TRACE_STDOUT", false),

		SpeechToTextProvider: strings.ToLower(envStr("STT_PROVIDER", ProviderAssemblyAI)),
		LLMProvider:          strings.ToLower(envStr("LLM_PROVIDER", ProviderGemini)),
		TextToSpeechProvider: strings.ToLower(envStr("TTS_PROVIDER", ProviderMurf)),
		SearchProvider:       strings.ToLower(envStr("SEARCH_PROVIDER", ProviderSerpAPI)),

		LLMModel: envStr("LLM_MODEL", ""),
		TTSVoice: envStr("TTS_VOICE", ""),

		SampleRate:       envInt("SAMPLE_RATE", 16000),
		ProviderTimeout:  time.Duration(envInt("PROVIDER_TIMEOUT_MS", 20000)) * time.Millisecond,
		MaxHistoryTurns:  envInt("MAX_HISTORY_TURNS", 20),
		MaxReplyChars:    envInt("MAX_REPLY_CHARS", 1500),
		SearchMaxResults: envInt("SEARCH_MAX_RESULTS", 5),

		Keys: APIKeys{
			AssemblyAI: envStr("ASSEMBLYAI_API_KEY", ""),
			Deepgram:   envStr("DEEPGRAM_API_KEY", ""),
			Gemini:     envStr("GEMINI_API_KEY", ""),
			Groq:       envStr("GROQ_API_KEY", ""),
			OpenAI:     envStr("OPENAI_API_KEY", ""),
			Murf:       envStr("MURF_API_KEY", ""),
			SerpAPI:    envStr("SERPAPI_API_KEY", ""),
			Tavily:     envStr("TAVILY_API_KEY", ""),
		},
	}
}

func (c Config) Validate() error {
	var errs []error
	check := func(name, value string, allowed []string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%s must be one of %s, got %q", name, strings.Join(allowed, "|"), value))
		}
	}
	check("STT_PROVIDER", c.SpeechToTextProvider, speechToTextProviders)
	check("LLM_PROVIDER", c.LLMProvider, llmProviders)
	check("TTS_PROVIDER", c.TextToSpeechProvider, textToSpeechProviders)
	check("SEARCH_PROVIDER", c.SearchProvider, searchProviders)

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("EMA_RELAY_PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PROVIDER_TIMEOUT_MS must be positive, got %s", c.ProviderTimeout))
	}
	if c.MaxHistoryTurns < 0 {
		errs = append(errs, fmt.Errorf("MAX_HISTORY_TURNS must not be negative, got %d", c.MaxHistoryTurns))
	}
	if c.MaxReplyChars < 0 {
		errs = append(errs, fmt.Errorf("MAX_REPLY_CHARS must not be negative, got %d", c.MaxReplyChars))
	}
	if c.SearchMaxResults <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_MAX_RESULTS must be positive, got %d", c.SearchMaxResults))
	}

	return errors.Join(errs...)
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Fallback returns the fallback credentials of the selected providers.
func (c Config) Fallback() credentials.Set {
	return credentials.Set{
		Transcription: c.keyFor(c.SpeechToTextProvider),
		Generation:    c.keyFor(c.LLMProvider),
		Synthesis:     c.keyFor(c.TextToSpeechProvider),
		Search:        c.keyFor(c.SearchProvider),
	}
}

// MissingFallbacks names the environment variables of selected providers
// that have no key configured.
func (c Config) MissingFallbacks() []string {
	var missing []string
	for _, provider := range []string{c.SpeechToTextProvider, c.LLMProvider, c.TextToSpeechProvider, c.SearchProvider} {
		if c.keyFor(provider) != "" {
			continue
		}
		name := KeyEnvVar(provider)
		if name != "" && !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func (c Config) keyFor(provider string) string {
	switch provider {
	case ProviderAssemblyAI:
		return c.Keys.AssemblyAI
	case ProviderDeepgram:
		return c.Keys.Deepgram
	case ProviderGemini:
		return c.Keys.Gemini
	case ProviderGroq:
		return c.Keys.Groq
	case ProviderOpenAI:
		return c.Keys.OpenAI
	case ProviderMurf:
		return c.Keys.Murf
	case ProviderSerpAPI:
		return c.Keys.SerpAPI
	case ProviderTavily:
		return c.Keys.Tavily
	default:
		return ""
	}
}

// KeyEnvVar returns the environment variable holding provider's key.
func KeyEnvVar(provider string) string {
	switch provider {
	case ProviderAssemblyAI, ProviderDeepgram, ProviderGemini, ProviderGroq,
		ProviderOpenAI, ProviderMurf, ProviderSerpAPI, ProviderTavily:
		return strings.ToUpper(provider) + "_API_KEY"
	default:
		return ""
	}
}

func envStr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}
