package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/koscakluka/ema-relay/core/llms"
	"github.com/koscakluka/ema-relay/core/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
}

func TestGenerateSendsHistoryWithModelRole(t *testing.T) {
	var got recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/"+DefaultModel+":generateContent"), r.URL.Path)
		assert.Equal(t, "gemini-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"yes"}]}}]}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	reply, err := client.Generate(context.Background(), "gemini-key", "Is it raining?",
		llms.WithSystemPrompt("You are MARVIS."),
		llms.WithTurns(llms.UserTurn("hi"), llms.AssistantTurn("hello")),
	)
	require.NoError(t, err)
	assert.Equal(t, "yes", reply)

	require.Len(t, got.Contents, 3)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, "Is it raining?", got.Contents[2].Parts[0].Text)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "You are MARVIS.", got.SystemInstruction.Parts[0].Text)
}

func TestGenerateAPIErrorIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	_, err := client.Generate(context.Background(), "bad", "hi")

	var providerErr *providers.Error
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, http.StatusBadRequest, providerErr.StatusCode)
}

func TestGenerateRequiresKey(t *testing.T) {
	_, err := NewClient().Generate(context.Background(), " ", "hi")
	assert.ErrorIs(t, err, providers.ErrProvider)
}

func TestToContentsSkipsEmptyTurns(t *testing.T) {
	contents := toContents([]llms.Turn{llms.UserTurn(""), llms.AssistantTurn("ok")}, "next")
	require.Len(t, contents, 2)
	assert.Equal(t, "model", contents[0].Role)
	assert.Equal(t, "user", contents[1].Role)
}
