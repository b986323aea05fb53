package texttospeech

import (
	"context"
	"time"
)

// Provider turns one piece of text into audio. The API key is passed per
// call so a single provider can serve many sessions.
type Provider interface {
	Synthesize(ctx context.Context, apiKey, text string) ([]byte, error)
}

type SynthesizerOptions struct {
	// Timeout bounds each provider call. Zero means no limit beyond the
	// caller's context.
	Timeout time.Duration
	// ErrorCallback is called with every swallowed synthesis failure.
	ErrorCallback func(error)
}

type SynthesizerOption func(*SynthesizerOptions)

func WithTimeout(timeout time.Duration) SynthesizerOption {
	return func(o *SynthesizerOptions) {
		if timeout >= 0 {
			o.Timeout = timeout
		}
	}
}

func WithErrorCallback(callback func(error)) SynthesizerOption {
	return func(o *SynthesizerOptions) {
		if callback != nil {
			o.ErrorCallback = callback
		}
	}
}
