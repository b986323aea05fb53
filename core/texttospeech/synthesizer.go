package texttospeech

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrMissingKey = errors.New("synthesis api key is empty")
	ErrEmptyAudio = errors.New("synthesis returned no audio")
	ErrNoProvider = errors.New("no synthesis provider configured")
)

// Synthesizer wraps a Provider so that synthesis never fails the caller:
// every failure is logged and reported as empty audio.
type Synthesizer struct {
	provider Provider
	options  SynthesizerOptions
}

func NewSynthesizer(provider Provider, opts ...SynthesizerOption) *Synthesizer {
	options := SynthesizerOptions{ErrorCallback: func(error) {}}
	for _, opt := range opts {
		opt(&options)
	}
	return &Synthesizer{provider: provider, options: options}
}

// Speak returns the audio for text, or nil when text is blank or
// synthesis failed.
func (s *Synthesizer) Speak(ctx context.Context, text, apiKey string) []byte {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "speak")
	defer span.End()
	span.SetAttributes(attribute.Int("text.length", len(text)))

	audio, err := s.synthesize(ctx, text, apiKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("speech synthesis failed", "error", err)
		if s != nil {
			s.options.ErrorCallback(err)
		}
		return nil
	}
	span.SetAttributes(attribute.Int("audio.bytes", len(audio)))
	return audio
}

func (s *Synthesizer) synthesize(ctx context.Context, text, apiKey string) ([]byte, error) {
	if s == nil || s.provider == nil {
		return nil, ErrNoProvider
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingKey
	}

	if s.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.Timeout)
		defer cancel()
	}

	audio, err := s.provider.Synthesize(ctx, apiKey, text)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	return audio, nil
}
