package assemblyai

const (
	messageTypeBegin       = "Begin"
	messageTypeTurn        = "Turn"
	messageTypeTermination = "Termination"
	messageTypeError       = "Error"
	messageTypeTerminate   = "Terminate"
)

type serverMessage struct {
	Type string `json:"type"`

	// Begin
	ID        string `json:"id,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`

	// Turn
	TurnOrder       int    `json:"turn_order,omitempty"`
	Transcript      string `json:"transcript,omitempty"`
	EndOfTurn       bool   `json:"end_of_turn,omitempty"`
	TurnIsFormatted bool   `json:"turn_is_formatted,omitempty"`

	// Termination
	AudioDurationSeconds   float64 `json:"audio_duration_seconds,omitempty"`
	SessionDurationSeconds float64 `json:"session_duration_seconds,omitempty"`

	Error string `json:"error,omitempty"`
}

type terminateMessage struct {
	Type string `json:"type"`
}
