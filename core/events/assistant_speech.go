package events

const (
	// KindAssistantSpeechFrame identifies synthesized speech audio.
	KindAssistantSpeechFrame Kind = "assistant_speech.frame"
)

// AssistantSpeechFrame carries the synthesized audio of one sentence.
type AssistantSpeechFrame struct {
	Base
	Audio []byte
}

// NewAssistantSpeechFrame creates a speech frame event.
func NewAssistantSpeechFrame(audio []byte) AssistantSpeechFrame {
	return AssistantSpeechFrame{Base: NewBase(KindAssistantSpeechFrame), Audio: audio}
}
