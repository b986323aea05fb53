package llms

import "context"

// Generator produces a complete reply to prompt. The API key is passed per
// call so one generator can serve concurrent sessions with different
// credentials.
type Generator interface {
	Generate(ctx context.Context, apiKey, prompt string, opts ...PromptOption) (string, error)
}

// Turn is a single turn taken in the conversation.
type Turn struct {
	Role TurnRole

	// Content is the content of the turn
	// In user's turn it is the prompt,
	// in assistant's turn it is the response
	Content string
}

type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)

func UserTurn(content string) Turn {
	return Turn{Role: TurnRoleUser, Content: content}
}

func AssistantTurn(content string) Turn {
	return Turn{Role: TurnRoleAssistant, Content: content}
}
