package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	orchestration "github.com/koscakluka/ema-relay/core"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverRecordsSessionLifecycle(t *testing.T) {
	m := New("")
	observer := m.Observer(nil)

	observer.SessionStarted()
	observer.SessionStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsActive))

	observer.SessionEnded(orchestration.OutcomeCompleted)
	observer.SessionEnded(orchestration.OutcomeMissingCredentials)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues("missing_credentials")))

	observer.UtteranceProcessed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UtterancesTotal))
}

func TestObserverLabelsStagesWithProviders(t *testing.T) {
	m := New("")
	observer := m.Observer(map[orchestration.Stage]string{
		orchestration.StageResponse:  "gemini",
		orchestration.StageSynthesis: "murf",
	})

	observer.StageCompleted(orchestration.StageResponse, 300*time.Millisecond, true)
	observer.StageCompleted(orchestration.StageSynthesis, time.Second, false)
	observer.StageCompleted(orchestration.StageDecision, time.Millisecond, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderCallsTotal.WithLabelValues("gemini", "response", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderCallsTotal.WithLabelValues("murf", "synthesis", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderCallsTotal.WithLabelValues("unknown", "decision", "ok")))
}

func TestObserverCountsAudioBytes(t *testing.T) {
	m := New("")
	observer := m.Observer(nil)

	observer.AudioBytes(orchestration.DirectionInbound, 640)
	observer.AudioBytes(orchestration.DirectionInbound, 0)
	observer.AudioBytes(orchestration.DirectionOutbound, 100)

	assert.Equal(t, 640.0, testutil.ToFloat64(m.AudioBytesTotal.WithLabelValues("inbound")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.AudioBytesTotal.WithLabelValues("outbound")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New("test")
	m.Observer(nil).UtteranceProcessed()

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "test_utterances_total 1")
	assert.Contains(t, string(body), "test_sessions_active 0")
}
