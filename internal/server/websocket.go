package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/ema-relay/core"
	"github.com/koscakluka/ema-relay/core/events"
)

// audioSource reads binary frames from the connection. Text frames are
// ignored.
type audioSource struct {
	conn *websocket.Conn
	once sync.Once
}

func newAudioSource(conn *websocket.Conn) *audioSource {
	return &audioSource{conn: conn}
}

func (s *audioSource) ReadFrame(ctx context.Context) ([]byte, error) {
	s.once.Do(func() {
		context.AfterFunc(ctx, func() {
			_ = s.conn.SetReadDeadline(time.Now())
		})
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isDisconnect(err) {
				return nil, io.EOF
			}
			return nil, err
		}
		if messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func isDisconnect(err error) bool {
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed)
}

// eventSink writes events as JSON text frames. Writes are serialized since
// a connection supports one concurrent writer.
type eventSink struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func newEventSink(conn *websocket.Conn, writeTimeout time.Duration) *eventSink {
	return &eventSink{conn: conn, writeTimeout: writeTimeout}
}

func (s *eventSink) Send(_ context.Context, event events.Event) error {
	payload, err := events.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return orchestration.ErrDisconnected
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.closed = true
		return fmt.Errorf("%w: %v", orchestration.ErrDisconnected, err)
	}
	return nil
}

// Close sends a normal close frame, if the connection still works, and
// releases it.
func (s *eventSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
	}
	_ = s.conn.Close()
}
