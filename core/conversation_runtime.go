package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-relay/core/credentials"
	"github.com/koscakluka/ema-relay/core/dialogue"
	"github.com/koscakluka/ema-relay/core/events"
	"github.com/koscakluka/ema-relay/core/llms"
	"github.com/koscakluka/ema-relay/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const utteranceQueueCapacity = 10

// GenericFailureReply is sent as the assistant's reply when processing an
// utterance fails unexpectedly.
const GenericFailureReply = "Sorry, I encountered an error."

type utteranceQueueItem struct {
	text     string
	queuedAt time.Time
}

type conversationRuntime struct {
	baseContext context.Context
	sessionID   string
	credentials credentials.Set

	dialogue    DialogueEngine
	synthesizer *texttospeech.Synthesizer
	splitter    SentenceSplitter
	emitter     *eventEmitter
	observer    Observer

	historyMu sync.Mutex
	history   []llms.Turn

	queue   chan utteranceQueueItem
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once

	started atomic.Bool
}

func newConversationRuntime(
	sessionID string,
	creds credentials.Set,
	engine DialogueEngine,
	synthesizer *texttospeech.Synthesizer,
	splitter SentenceSplitter,
	emitter *eventEmitter,
	observer Observer,
) *conversationRuntime {
	if splitter == nil {
		splitter = SplitSentences
	}
	if observer == nil {
		observer = noopObserver{}
	}

	return &conversationRuntime{
		baseContext: context.Background(),
		sessionID:   sessionID,
		credentials: creds,
		dialogue:    engine,
		synthesizer: synthesizer,
		splitter:    splitter,
		emitter:     emitter,
		observer:    observer,
		queue:       make(chan utteranceQueueItem, utteranceQueueCapacity),
		closeCh:     make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// start launches the single worker that processes utterances in order.
func (runtime *conversationRuntime) start(ctx context.Context) (started bool) {
	if runtime.isClosed() {
		return false
	}

	runtime.startOnce.Do(func() {
		runtime.baseContext = ctx
		started = true
		runtime.started.Store(true)
		go func() {
			defer close(runtime.done)

			for {
				select {
				case <-runtime.closeCh:
					return
				case item := <-runtime.queue:
					if runtime.isClosed() {
						return
					}
					runtime.processQueuedUtterance(item)
				}
			}
		}()
	})

	return started
}

func (runtime *conversationRuntime) end() {
	runtime.endOnce.Do(func() {
		close(runtime.closeCh)
	})
}

func (runtime *conversationRuntime) waitUntilEnded() {
	if runtime.started.Load() {
		<-runtime.done
	}
}

// enqueue blocks while the queue is full and gives up once the runtime
// ends or its context is cancelled.
func (runtime *conversationRuntime) enqueue(text string) bool {
	if runtime.isClosed() {
		return false
	}

	item := utteranceQueueItem{text: text, queuedAt: time.Now()}
	select {
	case <-runtime.closeCh:
		return false
	case <-runtime.baseContext.Done():
		return false
	case runtime.queue <- item:
		return true
	}
}

func (runtime *conversationRuntime) isClosed() bool {
	select {
	case <-runtime.closeCh:
		return true
	default:
		return false
	}
}

func (runtime *conversationRuntime) History() []llms.Turn {
	runtime.historyMu.Lock()
	defer runtime.historyMu.Unlock()

	history := make([]llms.Turn, len(runtime.history))
	copy(history, runtime.history)
	return history
}

func (runtime *conversationRuntime) setHistory(history []llms.Turn) {
	runtime.historyMu.Lock()
	runtime.history = history
	runtime.historyMu.Unlock()
}

func (runtime *conversationRuntime) processQueuedUtterance(item utteranceQueueItem) {
	turnCtx, turnCancel := context.WithCancel(runtime.baseContext)
	defer turnCancel()
	defer close(withCloseHook(runtime.closeCh, turnCancel))

	ctx, span := tracer.Start(turnCtx, "process utterance")
	defer span.End()

	queuedTime := time.Since(item.queuedAt).Seconds()
	span.AddEvent("taken out of queue", trace.WithAttributes(attribute.Float64("utterance.queued_time", queuedTime)))
	span.SetAttributes(
		attribute.String("session.id", runtime.sessionID),
		attribute.Float64("utterance.queued_time", queuedTime),
		attribute.Int("utterance.queued", len(runtime.queue)),
	)

	err := panicSafeNamedWorker("utterance", func(ctx context.Context) error {
		return runtime.respondTo(ctx, item.text)
	})(ctx)
	runtime.observer.UtteranceProcessed()
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if runtime.isClosed() || ctx.Err() != nil || runtime.emitter.ending() || errors.Is(err, ErrDisconnected) {
		logger.Info("dropping utterance, session is ending", "session_id", runtime.sessionID, "error", err)
		return
	}

	logger.Error("failed to process utterance", "session_id", runtime.sessionID, "error", err)
	if emitErr := runtime.emitter.emit(ctx, events.NewAssistantResponseFinal(GenericFailureReply)); emitErr != nil {
		logger.Warn("failed to send failure reply", "session_id", runtime.sessionID, "error", emitErr)
	}
}

// respondTo runs one full turn: transcript, reply, then speech sentence by
// sentence.
func (runtime *conversationRuntime) respondTo(ctx context.Context, utterance string) error {
	if err := runtime.emitter.emit(ctx, events.NewUserTranscriptFinal(utterance)); err != nil {
		return fmt.Errorf("failed to send transcript: %w", err)
	}

	started := time.Now()
	shouldSearch := runtime.dialogue.Decide(ctx, utterance, runtime.credentials.Generation)
	runtime.observer.StageCompleted(StageDecision, time.Since(started), true)

	started = time.Now()
	reply, history := runtime.dialogue.Respond(ctx, utterance, runtime.History(), runtime.credentials, dialogue.WithWebSearch(shouldSearch))
	runtime.observer.StageCompleted(StageResponse, time.Since(started), replied(history, reply))
	if err := ctx.Err(); err != nil {
		return err
	}
	runtime.setHistory(history)

	if err := runtime.emitter.emit(ctx, events.NewAssistantResponseFinal(reply)); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}

	for i, sentence := range runtime.splitter(reply) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		audio, err := runtime.synthesize(ctx, sentence)
		if err != nil {
			return fmt.Errorf("failed to synthesize sentence %d: %w", i, err)
		}
		if len(audio) == 0 {
			continue
		}

		if err := runtime.emitter.emit(ctx, events.NewAssistantSpeechFrame(audio)); err != nil {
			return fmt.Errorf("failed to send audio for sentence %d: %w", i, err)
		}
	}

	return nil
}

// synthesize runs synthesis off the worker and waits for it while the
// session is alive. A failed sentence yields empty audio; only the end of
// the session is reported as an error.
func (runtime *conversationRuntime) synthesize(ctx context.Context, sentence string) ([]byte, error) {
	started := time.Now()
	result := make(chan []byte, 1)
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error("speech synthesis panicked", "session_id", runtime.sessionID, "panic", recovered)
				result <- nil
			}
		}()
		result <- runtime.synthesizer.Speak(ctx, sentence, runtime.credentials.Synthesis)
	}()

	select {
	case audio := <-result:
		runtime.observer.StageCompleted(StageSynthesis, time.Since(started), len(audio) > 0)
		return audio, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
