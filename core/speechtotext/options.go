package speechtotext

import (
	"context"

	"github.com/koscakluka/ema-relay/core/audio"
)

// Provider opens streaming transcription connections. The API key is
// passed per connection so that concurrent sessions never share
// credentials.
type Provider interface {
	Connect(ctx context.Context, apiKey string, opts ...TranscriptionOption) (Stream, error)
}

// Stream is one open provider connection.
type Stream interface {
	SendAudio(audio []byte) error
	Close(ctx context.Context) error
}

type TranscriptionOptions struct {
	// PartialTranscriptionCallback receives finalized segments of an
	// utterance that has not ended yet.
	PartialTranscriptionCallback func(transcript string)
	// TranscriptionCallback receives the full transcript once per detected
	// end of turn.
	TranscriptionCallback func(transcript string)
	// ErrorCallback receives asynchronous provider errors, e.g. a dropped
	// connection.
	ErrorCallback func(err error)

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

// NewTranscriptionOptions applies opts over no-op callbacks and the
// default encoding, so providers can invoke callbacks unconditionally.
func NewTranscriptionOptions(opts ...TranscriptionOption) TranscriptionOptions {
	options := TranscriptionOptions{
		PartialTranscriptionCallback: func(string) {},
		TranscriptionCallback:        func(string) {},
		ErrorCallback:                func(error) {},
		EncodingInfo:                 audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func WithTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if callback != nil {
			o.TranscriptionCallback = callback
		}
	}
}

func WithPartialTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if callback != nil {
			o.PartialTranscriptionCallback = callback
		}
	}
}

func WithErrorCallback(callback func(err error)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if callback != nil {
			o.ErrorCallback = callback
		}
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}
