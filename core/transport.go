package orchestration

import (
	"context"
	"errors"

	"github.com/koscakluka/ema-relay/core/events"
)

// ErrDisconnected is returned by an EventSink once the client is gone.
var ErrDisconnected = errors.New("client disconnected")

// AudioSource delivers the client's audio frames in arrival order.
// ReadFrame returns io.EOF when the client disconnects.
type AudioSource interface {
	ReadFrame(ctx context.Context) ([]byte, error)
}

// EventSink delivers events to the client. Send must be safe for
// concurrent use and returns ErrDisconnected once the client is gone.
type EventSink interface {
	Send(ctx context.Context, event events.Event) error
}
