package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-relay/core/audio"
	"github.com/koscakluka/ema-relay/core/speechtotext"
	"github.com/koscakluka/ema-relay/internal/utils"
	"go.opentelemetry.io/otel/codes"
)

const writeTimeout = 5 * time.Second

type transcriptionStream struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	options speechtotext.TranscriptionOptions

	lastMsgMu sync.Mutex
	lastMsgTs time.Time

	accumulatedTranscript string
	unendedSegment        bool

	cancel    context.CancelFunc
	readDone  chan struct{}
	closeOnce sync.Once
}

// Connect opens a listen websocket authenticated with apiKey.
func (c *TranscriptionClient) Connect(ctx context.Context, apiKey string, opts ...speechtotext.TranscriptionOption) (speechtotext.Stream, error) {
	ctx, span := tracer.Start(ctx, "connect deepgram transcription")
	defer span.End()

	options := speechtotext.NewTranscriptionOptions(opts...)
	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("invalid encoding: %w", err)
	}

	conn, err := c.dial(ctx, apiKey, encoding)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	stream := &transcriptionStream{
		conn:      conn,
		options:   options,
		lastMsgTs: time.Now(),
		cancel:    cancel,
		readDone:  make(chan struct{}),
	}
	go stream.readAndProcessMessages(streamCtx)
	go stream.generateSilence(streamCtx, options.EncodingInfo)

	return stream, nil
}

func (c *TranscriptionClient) listenURLFor(encoding encodingInfo) (string, error) {
	listenURL, err := url.Parse(c.listenURL)
	if err != nil {
		return "", fmt.Errorf("invalid listen url: %w", err)
	}
	queryParams := listenURL.Query()
	queryParams.Set("encoding", encoding.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", c.model)
	queryParams.Set("language", c.language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", strconv.Itoa(c.utteranceEndMs))
	queryParams.Set("endpointing", strconv.Itoa(c.endpointingMs))
	queryParams.Set("vad_events", "true")
	listenURL.RawQuery = queryParams.Encode()
	return listenURL.String(), nil
}

func (c *TranscriptionClient) dial(ctx context.Context, apiKey string, encoding encodingInfo) (*websocket.Conn, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram api key is empty")
	}
	listenURL, err := c.listenURLFor(encoding)
	if err != nil {
		return nil, err
	}

	conn, resp, err := c.dialer.DialContext(ctx, listenURL,
		http.Header{"Authorization": {"Token " + apiKey}})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to open socket connection to deepgram (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}

func (s *transcriptionStream) SendAudio(audio []byte) error {
	s.touch()
	return s.writeMessage(websocket.BinaryMessage, audio)
}

// Close asks the service to flush and then tears down the connection.
func (s *transcriptionStream) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if writeErr := s.writeJSON(struct {
			Type string `json:"type"`
		}{Type: string(api.TypeCloseStreamResponse)}); writeErr != nil {
			err = fmt.Errorf("failed to send close stream message: %w", writeErr)
		}

		select {
		case <-s.readDone:
		case <-ctx.Done():
		}
		s.cancel()

		s.connMu.Lock()
		defer s.connMu.Unlock()
		if closeErr := s.conn.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close deepgram websocket: %w", closeErr)
		}
	})
	return err
}

func (s *transcriptionStream) writeMessage(messageType int, data []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

func (s *transcriptionStream) writeJSON(v any) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(v)
}

func (s *transcriptionStream) touch() {
	s.lastMsgMu.Lock()
	s.lastMsgTs = time.Now()
	s.lastMsgMu.Unlock()
}

func (s *transcriptionStream) sinceLastMessage() time.Duration {
	s.lastMsgMu.Lock()
	defer s.lastMsgMu.Unlock()
	return time.Since(s.lastMsgTs)
}

func (s *transcriptionStream) readAndProcessMessages(ctx context.Context) {
	defer close(s.readDone)

	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Warn("failed to read deepgram websocket message", "error", err)
				s.options.ErrorCallback(fmt.Errorf("deepgram connection lost: %w", err))
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			s.processMessage(msg)
		}
	}
}

// processMessage handles one server message. Finals are accumulated until
// the service signals the end of the utterance.
func (s *transcriptionStream) processMessage(msg []byte) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram results", "error", err)
			return
		}
		if !msgResp.IsFinal {
			return
		}
		if len(msgResp.Channel.Alternatives) > 0 {
			transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
			if len(transcript) > 0 {
				s.accumulatedTranscript += " " + transcript
				s.unendedSegment = true
				s.options.PartialTranscriptionCallback(transcript)
			}
		}
		if msgResp.SpeechFinal {
			s.onSpeechEnded()
		}

	case api.TypeUtteranceEndResponse:
		var msgResp api.UtteranceEndResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram utterance end", "error", err)
			return
		}
		if s.unendedSegment {
			s.onSpeechEnded()
		}

	case api.TypeSpeechStartedResponse:
		s.unendedSegment = true
	}
}

func (s *transcriptionStream) onSpeechEnded() {
	s.unendedSegment = false
	fullTranscript := strings.TrimSpace(s.accumulatedTranscript)
	s.accumulatedTranscript = ""
	if len(fullTranscript) > 0 {
		s.options.TranscriptionCallback(fullTranscript)
	}
}

// generateSilence keeps the connection alive while the client is quiet:
// a second of silence frames so endpointing can fire, then periodic
// KeepAlive messages.
func (s *transcriptionStream) generateSilence(ctx context.Context, encoding audio.EncodingInfo) {
	type silenceGeneratorState string
	const (
		silenceGeneratorStateWaiting   silenceGeneratorState = "waiting"
		silenceGeneratorStateSilence   silenceGeneratorState = "silence"
		silenceGeneratorStateKeepAlive silenceGeneratorState = "keepAlive"
	)

	const frameDuration = 50 * time.Millisecond
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	chunk := make([]byte, encoding.FrameBytes(frameDuration))
	for i := range chunk {
		chunk[i] = encoding.SilenceValue()
	}

	state := silenceGeneratorStateWaiting
	var firstSilenceTime *time.Time
	var lastKeepAliveTime *time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			quiet := s.sinceLastMessage() > frameDuration
			switch state {
			case silenceGeneratorStateWaiting:
				if quiet {
					state = silenceGeneratorStateSilence
					firstSilenceTime = utils.Ptr(time.Now())
				}

			case silenceGeneratorStateSilence:
				if !quiet {
					state = silenceGeneratorStateWaiting
					firstSilenceTime = nil
					continue
				}
				if time.Since(*firstSilenceTime) >= time.Second {
					state = silenceGeneratorStateKeepAlive
					lastKeepAliveTime = utils.Ptr(time.Now())
					firstSilenceTime = nil
					continue
				}
				if err := s.writeMessage(websocket.BinaryMessage, chunk); err != nil {
					logger.Debug("failed to send silence", "error", err)
				}

			case silenceGeneratorStateKeepAlive:
				if !quiet {
					state = silenceGeneratorStateWaiting
					continue
				}
				if time.Since(*lastKeepAliveTime) >= 5*time.Second {
					lastKeepAliveTime = utils.Ptr(time.Now())
					if err := s.writeJSON(struct {
						Type string `json:"type"`
					}{Type: "KeepAlive"}); err != nil {
						logger.Debug("failed to send keep alive", "error", err)
					}
				}
			}
		}
	}
}
