package events

const (
	// KindAssistantResponseFinal identifies the complete reply text.
	KindAssistantResponseFinal Kind = "assistant_response.final"
)

// AssistantResponseFinal carries the complete reply for the utterance.
type AssistantResponseFinal struct {
	Base
	Response string
}

// NewAssistantResponseFinal creates a final response event.
func NewAssistantResponseFinal(response string) AssistantResponseFinal {
	return AssistantResponseFinal{Base: NewBase(KindAssistantResponseFinal), Response: response}
}
