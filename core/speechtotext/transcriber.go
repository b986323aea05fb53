package speechtotext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/koscakluka/ema-relay/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type State string

const (
	StateUnopened State = "unopened"
	StateOpen     State = "open"
	StateClosed   State = "closed"
)

const (
	writerDrainTimeout = 2 * time.Second
	streamCloseTimeout = 3 * time.Second
)

// Transcriber owns one streaming transcription connection for the lifetime
// of a session. Audio fed before Open or after Close is dropped.
type Transcriber struct {
	provider Provider

	mu         sync.Mutex
	state      State
	stream     Stream
	frames     *frameQueue
	writerDone chan struct{}

	closeOnce sync.Once
}

func NewTranscriber(provider Provider) *Transcriber {
	return &Transcriber{provider: provider, state: StateUnopened}
}

func (t *Transcriber) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Open connects to the provider. onFinal is called with the trimmed text
// of every completed utterance; empty utterances are never reported. Any
// failure is returned as a *ConnectionError.
func (t *Transcriber) Open(ctx context.Context, apiKey string, sampleRate int, onFinal func(text string)) error {
	ctx, span := tracer.Start(ctx, "open transcriber")
	defer span.End()
	span.SetAttributes(attribute.Int("audio.sample_rate", sampleRate))

	fail := func(err error) error {
		connErr := &ConnectionError{Err: err}
		span.RecordError(connErr)
		span.SetStatus(codes.Error, connErr.Error())
		return connErr
	}

	if state := t.State(); state != StateUnopened {
		return fail(fmt.Errorf("transcriber is %s", state))
	}
	if t.provider == nil {
		return fail(errors.New("no transcription provider configured"))
	}
	if strings.TrimSpace(apiKey) == "" {
		return fail(errors.New("transcription api key is empty"))
	}

	encoding := audio.NewLinear16EncodingInfo(sampleRate)
	if err := encoding.Validate(); err != nil {
		return fail(err)
	}

	handleFinal := func(transcript string) {
		text := strings.TrimSpace(transcript)
		if text == "" || onFinal == nil {
			return
		}
		if t.State() == StateClosed {
			return
		}
		onFinal(text)
	}

	stream, err := t.provider.Connect(ctx, apiKey,
		WithEncodingInfo(encoding),
		WithTranscriptionCallback(handleFinal),
		WithErrorCallback(func(err error) {
			logger.Warn("transcription stream error", "error", err)
		}),
	)
	if err != nil {
		return fail(err)
	}

	t.mu.Lock()
	if t.state == StateClosed {
		t.mu.Unlock()
		closeCtx, cancel := context.WithTimeout(context.Background(), streamCloseTimeout)
		defer cancel()
		_ = stream.Close(closeCtx)
		return fail(errors.New("transcriber closed while connecting"))
	}
	t.stream = stream
	t.frames = newFrameQueue()
	t.writerDone = make(chan struct{})
	t.state = StateOpen
	frames, done := t.frames, t.writerDone
	t.mu.Unlock()

	go t.writeFrames(stream, frames, done)
	return nil
}

// Feed queues a chunk of PCM audio for the provider. It never blocks and
// preserves the order of chunks.
func (t *Transcriber) Feed(chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateOpen {
		return
	}
	t.frames.Push(bytes.Clone(chunk))
}

// Close stops the connection. It is safe to call in any state and more
// than once; only the first call does any work.
func (t *Transcriber) Close() error {
	var closeErr error
	t.closeOnce.Do(func() {
		t.mu.Lock()
		previous := t.state
		t.state = StateClosed
		stream, frames, done := t.stream, t.frames, t.writerDone
		t.stream = nil
		t.mu.Unlock()

		if previous != StateOpen {
			return
		}

		frames.Close()
		select {
		case <-done:
		case <-time.After(writerDrainTimeout):
			logger.Warn("transcription writer did not stop in time")
		}

		ctx, cancel := context.WithTimeout(context.Background(), streamCloseTimeout)
		defer cancel()
		if err := stream.Close(ctx); err != nil {
			closeErr = fmt.Errorf("failed to close transcription stream: %w", err)
		}
	})
	return closeErr
}

func (t *Transcriber) writeFrames(stream Stream, frames *frameQueue, done chan<- struct{}) {
	defer close(done)

	failures := 0
	for {
		frame, ok := frames.Pop()
		if !ok {
			break
		}
		if err := stream.SendAudio(frame); err != nil {
			if failures == 0 {
				logger.Warn("failed to send audio to transcription provider", "error", err)
			}
			failures++
		}
	}
	if failures > 1 {
		logger.Warn("audio frames were not delivered to transcription provider", "count", failures)
	}
}
