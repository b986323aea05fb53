package assemblyai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-relay/core/speechtotext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	*httptest.Server
	auth   chan string
	query  chan string
	frames chan []byte
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fake := &fakeServer{
		auth:   make(chan string, 1),
		query:  make(chan string, 1),
		frames: make(chan []byte, 16),
	}
	upgrader := websocket.Upgrader{}
	fake.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.auth <- r.Header.Get("Authorization")
		fake.query <- r.URL.RawQuery
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteJSON(serverMessage{Type: messageTypeBegin, ID: "session-1"})
		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			switch msgType {
			case websocket.BinaryMessage:
				fake.frames <- msg
				_ = conn.WriteJSON(serverMessage{Type: messageTypeTurn, Transcript: "what's the weather", EndOfTurn: true})
				_ = conn.WriteJSON(serverMessage{Type: messageTypeTurn, Transcript: "What's the weather?", EndOfTurn: true, TurnIsFormatted: true})
			case websocket.TextMessage:
				var terminate terminateMessage
				if json.Unmarshal(msg, &terminate) == nil && terminate.Type == messageTypeTerminate {
					_ = conn.WriteJSON(serverMessage{Type: messageTypeTermination, AudioDurationSeconds: 1})
					return
				}
			}
		}
	}))
	t.Cleanup(fake.Close)
	return fake
}

func (f *fakeServer) wsURL() string {
	return "ws" + strings.TrimPrefix(f.URL, "http")
}

func TestConnectStreamsAudioAndReportsFormattedTurn(t *testing.T) {
	fake := newFakeServer(t)
	client := NewTranscriptionClient(WithStreamingURL(fake.wsURL()))

	finals := make(chan string, 4)
	stream, err := client.Connect(context.Background(), "aai-key",
		speechtotext.WithTranscriptionCallback(func(transcript string) { finals <- transcript }))
	require.NoError(t, err)

	assert.Equal(t, "aai-key", <-fake.auth)
	query := <-fake.query
	assert.Contains(t, query, "sample_rate=16000")
	assert.Contains(t, query, "encoding=pcm_s16le")

	// 100ms at 16kHz is above the minimum chunk size.
	require.NoError(t, stream.SendAudio(make([]byte, 3200)))

	select {
	case frame := <-fake.frames:
		assert.Len(t, frame, 3200)
	case <-time.After(time.Second):
		t.Fatal("server did not receive audio")
	}

	select {
	case final := <-finals:
		assert.Equal(t, "What's the weather?", final)
	case <-time.After(time.Second):
		t.Fatal("no final transcript received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, stream.Close(ctx))
	assert.Empty(t, finals, "unformatted turn must not be reported")
}

func TestSendAudioBatchesShortChunks(t *testing.T) {
	fake := newFakeServer(t)
	client := NewTranscriptionClient(WithStreamingURL(fake.wsURL()))

	stream, err := client.Connect(context.Background(), "aai-key")
	require.NoError(t, err)
	<-fake.auth
	<-fake.query

	for i := 0; i < 4; i++ {
		require.NoError(t, stream.SendAudio(make([]byte, 640)))
	}

	select {
	case frame := <-fake.frames:
		assert.Len(t, frame, 3*640, "expected 20ms chunks to be merged until 50ms is buffered")
	case <-time.After(time.Second):
		t.Fatal("server did not receive audio")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, stream.Close(ctx))
}

func TestConnectFailsOnRejectedHandshake(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewTranscriptionClient(WithStreamingURL("ws" + strings.TrimPrefix(server.URL, "http")))
	_, err := client.Connect(context.Background(), "bad-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestProcessMessageWithoutFormatting(t *testing.T) {
	var finals []string
	stream := &transcriptionStream{options: speechtotext.NewTranscriptionOptions(
		speechtotext.WithTranscriptionCallback(func(transcript string) { finals = append(finals, transcript) }),
	)}

	assert.False(t, stream.processMessage([]byte(`{"type":"Turn","transcript":"hello","end_of_turn":false}`), false))
	assert.False(t, stream.processMessage([]byte(`{"type":"Turn","transcript":" hello there ","end_of_turn":true}`), false))
	assert.False(t, stream.processMessage([]byte(`{"type":"Turn","transcript":"   ","end_of_turn":true}`), false))
	assert.True(t, stream.processMessage([]byte(`{"type":"Termination"}`), false))

	assert.Equal(t, []string{"hello there"}, finals)
}
