// Package assemblyai streams audio to the AssemblyAI v3 real-time
// transcription API.
package assemblyai

import (
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
)

const (
	scopeName = "github.com/koscakluka/ema-relay/core/speechtotext/assemblyai"

	defaultStreamingURL = "wss://streaming.assemblyai.com/v3/ws"
)

var (
	tracer = otel.Tracer(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

type TranscriptionClient struct {
	streamingURL     string
	formatTurns      bool
	minChunkDuration time.Duration
	dialer           *websocket.Dialer
}

type TranscriptionClientOption func(*TranscriptionClient)

func NewTranscriptionClient(opts ...TranscriptionClientOption) *TranscriptionClient {
	client := &TranscriptionClient{
		streamingURL:     defaultStreamingURL,
		formatTurns:      true,
		minChunkDuration: 50 * time.Millisecond,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func WithStreamingURL(streamingURL string) TranscriptionClientOption {
	return func(c *TranscriptionClient) {
		if streamingURL != "" {
			c.streamingURL = streamingURL
		}
	}
}

// WithFormatTurns toggles punctuated, cased turn transcripts. When enabled
// only the formatted copy of a turn is reported.
func WithFormatTurns(formatTurns bool) TranscriptionClientOption {
	return func(c *TranscriptionClient) {
		c.formatTurns = formatTurns
	}
}

// WithMinChunkDuration sets how much audio is batched before a frame is
// written. The service rejects frames shorter than 50ms.
func WithMinChunkDuration(duration time.Duration) TranscriptionClientOption {
	return func(c *TranscriptionClient) {
		if duration >= 0 {
			c.minChunkDuration = duration
		}
	}
}
