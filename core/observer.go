package orchestration

import "time"

type Stage string

const (
	StageTranscription Stage = "transcription"
	StageDecision      Stage = "decision"
	StageResponse      Stage = "response"
	StageSynthesis     Stage = "synthesis"
)

type Outcome string

const (
	OutcomeCompleted          Outcome = "completed"
	OutcomeMissingCredentials Outcome = "missing_credentials"
	OutcomeConnectionFailed   Outcome = "connection_failed"
	OutcomeTransportError     Outcome = "transport_error"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Observer receives session measurements. Implementations must be safe for
// concurrent use.
type Observer interface {
	SessionStarted()
	SessionEnded(outcome Outcome)
	UtteranceProcessed()
	StageCompleted(stage Stage, elapsed time.Duration, ok bool)
	AudioBytes(direction Direction, n int)
}

type noopObserver struct{}

func (noopObserver) SessionStarted()                           {}
func (noopObserver) SessionEnded(Outcome)                      {}
func (noopObserver) UtteranceProcessed()                       {}
func (noopObserver) StageCompleted(Stage, time.Duration, bool) {}
func (noopObserver) AudioBytes(Direction, int)                 {}
