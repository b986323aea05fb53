package orchestration

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/koscakluka/ema-relay/core/events"
)

var errEmitterClosed = errors.New("event emitter closed")

// eventEmitter forwards events to the session's sink until teardown starts.
type eventEmitter struct {
	sink     EventSink
	observer Observer

	closed       atomic.Bool
	disconnected atomic.Bool
}

func newEventEmitter(sink EventSink, observer Observer) *eventEmitter {
	if observer == nil {
		observer = noopObserver{}
	}
	return &eventEmitter{sink: sink, observer: observer}
}

func (e *eventEmitter) emit(ctx context.Context, event events.Event) error {
	if e.closed.Load() {
		return errEmitterClosed
	}
	if e.disconnected.Load() {
		return ErrDisconnected
	}
	if e.sink == nil {
		return ErrDisconnected
	}

	if err := e.sink.Send(ctx, event); err != nil {
		if errors.Is(err, ErrDisconnected) {
			e.disconnected.Store(true)
		}
		return err
	}

	if frame, ok := event.(events.AssistantSpeechFrame); ok {
		e.observer.AudioBytes(DirectionOutbound, len(frame.Audio))
	}
	return nil
}

// close makes every later emit a no-op.
func (e *eventEmitter) close() {
	e.closed.Store(true)
}

func (e *eventEmitter) ending() bool {
	return e.closed.Load() || e.disconnected.Load()
}
