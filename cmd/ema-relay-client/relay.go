package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

// wireMessage is any event the relay sends.
type wireMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Text    string `json:"text,omitempty"`
	B64     string `json:"b64,omitempty"`
}

type (
	serverMsg       wireMessage
	savedMsg        struct{ path string }
	errMsg          struct{ err error }
	disconnectedMsg struct{}
)

type relayConn struct {
	conn *websocket.Conn

	mu        sync.Mutex
	closeOnce sync.Once
}

func newRelayConn(conn *websocket.Conn) *relayConn {
	return &relayConn{conn: conn}
}

func (r *relayConn) SendAudio(frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return r.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (r *relayConn) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = r.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
		r.mu.Unlock()
		_ = r.conn.Close()
	})
}

// receive forwards relay events to send until the connection ends.
func (r *relayConn) receive(replies *replyWriter, send func(tea.Msg)) {
	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			send(disconnectedMsg{})
			return
		}

		var message wireMessage
		if err := json.Unmarshal(data, &message); err != nil {
			send(errMsg{fmt.Errorf("invalid message from relay: %w", err)})
			continue
		}

		if message.Type == "audio" {
			path, err := replies.Save(message.B64)
			if err != nil {
				send(errMsg{err})
				continue
			}
			send(savedMsg{path: path})
			continue
		}
		send(serverMsg(message))
	}
}

// replyWriter saves each audio event as <dir>/reply-<n>.<ext>.
type replyWriter struct {
	dir       string
	extension string

	mu    sync.Mutex
	count int
}

func newReplyWriter(dir, extension string) *replyWriter {
	if extension == "" {
		extension = "mp3"
	}
	return &replyWriter{dir: dir, extension: extension}
}

func (w *replyWriter) Save(b64 string) (string, error) {
	audio, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("invalid audio payload: %w", err)
	}

	w.mu.Lock()
	w.count++
	n := w.count
	w.mu.Unlock()

	path := filepath.Join(w.dir, fmt.Sprintf("reply-%d.%s", n, w.extension))
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("failed to save reply: %w", err)
	}
	return path, nil
}
