// Package orchestration runs one voice-assistant session: it streams the
// client's audio to transcription, answers every finalized utterance with
// the dialogue engine, and speaks the answer back sentence by sentence.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-relay/core/audio"
	"github.com/koscakluka/ema-relay/core/credentials"
	"github.com/koscakluka/ema-relay/core/events"
	"github.com/koscakluka/ema-relay/core/llms"
	"github.com/koscakluka/ema-relay/core/providers"
	"github.com/koscakluka/ema-relay/core/speechtotext"
	"github.com/koscakluka/ema-relay/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Messages sent to the client in error events.
const (
	MissingCredentialsMessage = "Server is missing essential API keys."
	ConnectionFailedMessage   = "Could not connect to the transcription service."
)

var (
	ErrAlreadyOrchestrated = errors.New("orchestrator already started")
	ErrNoDialogueEngine    = errors.New("no dialogue engine configured")
)

// Orchestrator is a single session. Create one per client connection.
type Orchestrator struct {
	speechToText    speechtotext.Provider
	textToSpeech    texttospeech.Provider
	dialogue        DialogueEngine
	fallback        credentials.Set
	splitter        SentenceSplitter
	providerTimeout time.Duration
	sampleRate      int
	sessionID       string
	observer        Observer

	started atomic.Bool
	runtime atomic.Pointer[conversationRuntime]
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		splitter:        SplitSentences,
		providerTimeout: providers.DefaultTimeout,
		sampleRate:      audio.DefaultSampleRate,
		observer:        noopObserver{},
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

func (o *Orchestrator) SessionID() string { return o.sessionID }

// History returns a snapshot of the conversation so far.
func (o *Orchestrator) History() []llms.Turn {
	runtime := o.runtime.Load()
	if runtime == nil {
		return nil
	}
	return runtime.History()
}

// Orchestrate runs the session until in reports io.EOF, ctx is cancelled or
// reading fails. It may be called once.
//
// overrides holds the keys supplied by the caller; empty slots fall back to
// the configured credentials. When essential keys are missing, or the
// transcription service cannot be reached, a single error event is sent
// and the error is returned. A client disconnect is not an error.
func (o *Orchestrator) Orchestrate(ctx context.Context, overrides credentials.Set, in AudioSource, out EventSink) error {
	if !o.started.CompareAndSwap(false, true) {
		return ErrAlreadyOrchestrated
	}
	if o.dialogue == nil {
		return ErrNoDialogueEngine
	}

	ctx, span := tracer.Start(ctx, "orchestrate session", trace.WithAttributes(attribute.String("session.id", o.sessionID)))
	defer span.End()

	recordErr := func(err error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	o.observer.SessionStarted()
	outcome := OutcomeCompleted
	defer func() { o.observer.SessionEnded(outcome) }()

	emitter := newEventEmitter(out, o.observer)

	creds, err := credentials.Resolve(overrides, o.fallback)
	if err != nil {
		outcome = OutcomeMissingCredentials
		logger.Error("missing essential api keys", "session_id", o.sessionID, "error", err)
		o.sendError(ctx, emitter, MissingCredentialsMessage)
		err = fmt.Errorf("failed to resolve credentials: %w", err)
		recordErr(err)
		return err
	}
	span.SetAttributes(attribute.Bool("session.can_search", creds.CanSearch()))

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	transcriber := speechtotext.NewTranscriber(o.speechToText)
	synthesizer := texttospeech.NewSynthesizer(o.textToSpeech, texttospeech.WithTimeout(o.providerTimeout))
	runtime := newConversationRuntime(o.sessionID, creds, o.dialogue, synthesizer, o.splitter, emitter, o.observer)
	o.runtime.Store(runtime)
	runtime.start(sessionCtx)

	var teardownOnce sync.Once
	teardown := func() {
		teardownOnce.Do(func() {
			emitter.close()
			cancel()
			if err := transcriber.Close(); err != nil {
				logger.Warn("failed to close transcriber", "session_id", o.sessionID, "error", err)
			}
			runtime.end()
			runtime.waitUntilEnded()
		})
	}
	defer teardown()

	openStarted := time.Now()
	err = transcriber.Open(sessionCtx, creds.Transcription, o.sampleRate, func(text string) {
		logger.Info("final transcript received", "session_id", o.sessionID, "chars", len(text))
		if !runtime.enqueue(text) {
			logger.Debug("dropping transcript, session is ending", "session_id", o.sessionID)
		}
	})
	o.observer.StageCompleted(StageTranscription, time.Since(openStarted), err == nil)
	if err != nil {
		outcome = OutcomeConnectionFailed
		logger.Error("failed to connect to transcription service", "session_id", o.sessionID, "error", err)
		o.sendError(ctx, emitter, ConnectionFailedMessage)
		err = fmt.Errorf("failed to open transcriber: %w", err)
		recordErr(err)
		return err
	}

	for {
		frame, err := in.ReadFrame(sessionCtx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, ErrDisconnected):
				logger.Info("client disconnected", "session_id", o.sessionID)
				return nil
			case ctx.Err() != nil:
				logger.Info("session cancelled", "session_id", o.sessionID)
				return nil
			default:
				outcome = OutcomeTransportError
				err = fmt.Errorf("failed to read audio frame: %w", err)
				recordErr(err)
				return err
			}
		}

		o.observer.AudioBytes(DirectionInbound, len(frame))
		transcriber.Feed(frame)
	}
}

func (o *Orchestrator) sendError(ctx context.Context, emitter *eventEmitter, message string) {
	if err := emitter.emit(ctx, events.NewSessionError(message)); err != nil {
		logger.Warn("failed to send error event", "session_id", o.sessionID, "error", err)
	}
}
