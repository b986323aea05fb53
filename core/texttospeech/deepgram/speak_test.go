package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koscakluka/ema-relay/core/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextToSpeechClientValidatesVoice(t *testing.T) {
	_, err := NewTextToSpeechClient("robot-voice")
	assert.Error(t, err)

	client, err := NewTextToSpeechClient("")
	require.NoError(t, err)
	assert.Equal(t, string(defaultVoice), client.Voice())
}

func TestParseVoice(t *testing.T) {
	voice, ok := ParseVoice("aura-luna-en")
	assert.True(t, ok)
	assert.Equal(t, VoiceAuraLunaEn, voice)

	_, ok = ParseVoice("nope")
	assert.False(t, ok)
}

func TestSynthesizePostsTextWithToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/speak", r.URL.Path)
		assert.Equal(t, string(VoiceAura2HeliosEn), r.URL.Query().Get("model"))
		assert.Equal(t, "Token dg-key", r.Header.Get("Authorization"))

		var body struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Good evening.", body.Text)

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	client, err := NewTextToSpeechClient(VoiceAura2HeliosEn, WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	require.NoError(t, err)

	audio, err := client.Synthesize(context.Background(), "dg-key", "Good evening.")
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(audio))
}

func TestSynthesizeReportsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer server.Close()

	client, err := NewTextToSpeechClient("", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	require.NoError(t, err)

	_, err = client.Synthesize(context.Background(), "dg-key", "Hi.")
	var providerErr *providers.Error
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, http.StatusPaymentRequired, providerErr.StatusCode)
}
