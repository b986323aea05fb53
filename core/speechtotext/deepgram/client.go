package deepgram

import (
	"time"

	"github.com/gorilla/websocket"
)

const defaultListenURL = "wss://api.deepgram.com/v1/listen"

type TranscriptionClient struct {
	listenURL        string
	model            string
	language         string
	utteranceEndMs   int
	endpointingMs    int
	handshakeTimeout time.Duration
	dialer           *websocket.Dialer
}

type TranscriptionClientOption func(*TranscriptionClient)

func NewTranscriptionClient(opts ...TranscriptionClientOption) *TranscriptionClient {
	client := &TranscriptionClient{
		listenURL:        defaultListenURL,
		model:            "nova-3",
		language:         "en-US",
		utteranceEndMs:   1000,
		endpointingMs:    300,
		handshakeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.dialer == nil {
		client.dialer = &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: client.handshakeTimeout,
		}
	}
	return client
}

// WithListenURL overrides the streaming endpoint, mainly for tests.
func WithListenURL(listenURL string) TranscriptionClientOption {
	return func(c *TranscriptionClient) {
		if listenURL != "" {
			c.listenURL = listenURL
		}
	}
}

func WithModel(model string) TranscriptionClientOption {
	return func(c *TranscriptionClient) {
		if model != "" {
			c.model = model
		}
	}
}

func WithLanguage(language string) TranscriptionClientOption {
	return func(c *TranscriptionClient) {
		if language != "" {
			c.language = language
		}
	}
}

func WithHandshakeTimeout(timeout time.Duration) TranscriptionClientOption {
	return func(c *TranscriptionClient) {
		if timeout > 0 {
			c.handshakeTimeout = timeout
		}
	}
}
