package events

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Wire types as seen by clients.
const (
	WireTypeError     = "error"
	WireTypeFinal     = "final"
	WireTypeAssistant = "assistant"
	WireTypeAudio     = "audio"
)

type ErrorMessage struct {
	Type    string `json:"type" jsonschema:"enum=error"`
	Message string `json:"message" jsonschema:"description=Human readable failure message"`
}

type FinalMessage struct {
	Type string `json:"type" jsonschema:"enum=final"`
	Text string `json:"text" jsonschema:"description=Finalized transcript of the user's utterance"`
}

type AssistantMessage struct {
	Type string `json:"type" jsonschema:"enum=assistant"`
	Text string `json:"text" jsonschema:"description=Full assistant reply"`
}

type AudioMessage struct {
	Type string `json:"type" jsonschema:"enum=audio"`
	// Audio is encoded as standard base64 by encoding/json.
	Audio []byte `json:"b64" jsonschema:"description=Base64 encoded speech for one sentence,contentEncoding=base64"`
}

// Encode returns the wire payload for event.
func Encode(event Event) (any, error) {
	switch e := event.(type) {
	case SessionError:
		return ErrorMessage{Type: WireTypeError, Message: e.Message}, nil
	case UserTranscriptFinal:
		return FinalMessage{Type: WireTypeFinal, Text: e.Transcript}, nil
	case AssistantResponseFinal:
		return AssistantMessage{Type: WireTypeAssistant, Text: e.Response}, nil
	case AssistantSpeechFrame:
		return AudioMessage{Type: WireTypeAudio, Audio: e.Audio}, nil
	case nil:
		return nil, fmt.Errorf("nil event")
	default:
		return nil, fmt.Errorf("event kind %q has no wire form", event.Kind())
	}
}

// Marshal encodes event as a JSON text frame.
func Marshal(event Event) ([]byte, error) {
	payload, err := Encode(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(payload)
}

// Schemas returns the JSON Schema of every wire payload keyed by wire type.
func Schemas() map[string]*jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: false,
	}
	return map[string]*jsonschema.Schema{
		WireTypeError:     reflector.Reflect(&ErrorMessage{}),
		WireTypeFinal:     reflector.Reflect(&FinalMessage{}),
		WireTypeAssistant: reflector.Reflect(&AssistantMessage{}),
		WireTypeAudio:     reflector.Reflect(&AudioMessage{}),
	}
}
