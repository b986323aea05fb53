package assemblyai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-relay/core/audio"
	"github.com/koscakluka/ema-relay/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const writeTimeout = 5 * time.Second

type transcriptionStream struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	options speechtotext.TranscriptionOptions

	pending      []byte
	minChunkSize int

	readDone  chan struct{}
	closing   chan struct{}
	closeOnce sync.Once
}

// Connect opens a streaming session authenticated with apiKey.
func (c *TranscriptionClient) Connect(ctx context.Context, apiKey string, opts ...speechtotext.TranscriptionOption) (speechtotext.Stream, error) {
	ctx, span := tracer.Start(ctx, "connect assemblyai transcription")
	defer span.End()

	options := speechtotext.NewTranscriptionOptions(opts...)
	fail := func(err error) (speechtotext.Stream, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if apiKey == "" {
		return fail(errors.New("assemblyai api key is empty"))
	}
	if options.EncodingInfo.Format != audio.EncodingLinear16 {
		return fail(fmt.Errorf("unsupported encoding %q", options.EncodingInfo.Format.Name()))
	}
	span.SetAttributes(attribute.Int("audio.sample_rate", options.EncodingInfo.SampleRate))

	streamingURL, err := url.Parse(c.streamingURL)
	if err != nil {
		return fail(fmt.Errorf("invalid streaming url: %w", err))
	}
	query := streamingURL.Query()
	query.Set("sample_rate", strconv.Itoa(options.EncodingInfo.SampleRate))
	query.Set("encoding", "pcm_s16le")
	query.Set("format_turns", strconv.FormatBool(c.formatTurns))
	streamingURL.RawQuery = query.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, streamingURL.String(),
		http.Header{"Authorization": {apiKey}})
	if err != nil {
		if resp != nil {
			return fail(fmt.Errorf("failed to open socket connection to assemblyai (status %d): %w", resp.StatusCode, err))
		}
		return fail(fmt.Errorf("failed to open socket connection to assemblyai: %w", err))
	}

	stream := &transcriptionStream{
		conn:         conn,
		options:      options,
		minChunkSize: options.EncodingInfo.FrameBytes(c.minChunkDuration),
		readDone:     make(chan struct{}),
		closing:      make(chan struct{}),
	}
	go stream.readMessages(c.formatTurns)

	return stream, nil
}

// SendAudio batches audio until at least the minimum chunk size is
// buffered, then writes it as one binary frame.
func (s *transcriptionStream) SendAudio(audio []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.pending = append(s.pending, audio...)
	if len(s.pending) < s.minChunkSize {
		return nil
	}
	return s.flushLocked()
}

func (s *transcriptionStream) flushLocked() error {
	if len(s.pending) == 0 {
		return nil
	}
	frame := s.pending
	s.pending = nil

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("failed to write to assemblyai client: %w", err)
	}
	return nil
}

// Close flushes buffered audio, asks the service to terminate the session
// and waits for its Termination message or ctx to expire.
func (s *transcriptionStream) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closing)

		s.connMu.Lock()
		if flushErr := s.flushLocked(); flushErr != nil {
			err = flushErr
		}
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if writeErr := s.conn.WriteJSON(terminateMessage{Type: messageTypeTerminate}); writeErr != nil && err == nil {
			err = fmt.Errorf("failed to send terminate message: %w", writeErr)
		}
		s.connMu.Unlock()

		select {
		case <-s.readDone:
		case <-ctx.Done():
		}

		s.connMu.Lock()
		defer s.connMu.Unlock()
		if closeErr := s.conn.Close(); closeErr != nil && err == nil && !errors.Is(closeErr, net.ErrClosed) {
			err = fmt.Errorf("failed to close assemblyai websocket: %w", closeErr)
		}
	})
	return err
}

func (s *transcriptionStream) readMessages(formatTurns bool) {
	defer close(s.readDone)

	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closing:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					logger.Warn("failed to read assemblyai websocket message", "error", err)
					s.options.ErrorCallback(fmt.Errorf("assemblyai connection lost: %w", err))
				}
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if done := s.processMessage(msg, formatTurns); done {
			return
		}
	}
}

// processMessage reports a final transcript once per turn and returns
// true when the service has terminated the session.
func (s *transcriptionStream) processMessage(msg []byte, formatTurns bool) bool {
	var parsed serverMessage
	if err := json.Unmarshal(msg, &parsed); err != nil {
		logger.Warn("failed to unmarshal assemblyai message", "error", err)
		return false
	}

	switch parsed.Type {
	case messageTypeBegin:
		logger.Debug("assemblyai session started", "session_id", parsed.ID)

	case messageTypeTurn:
		if !parsed.EndOfTurn {
			return false
		}
		if formatTurns && !parsed.TurnIsFormatted {
			return false
		}
		if transcript := strings.TrimSpace(parsed.Transcript); transcript != "" {
			s.options.TranscriptionCallback(transcript)
		}

	case messageTypeTermination:
		logger.Debug("assemblyai session terminated",
			"audio_duration_seconds", parsed.AudioDurationSeconds,
			"session_duration_seconds", parsed.SessionDurationSeconds)
		return true

	case messageTypeError:
		s.options.ErrorCallback(fmt.Errorf("assemblyai error: %s", parsed.Error))
	}
	return false
}
