package llms

import "testing"

func TestPromptOptionsAccumulateTurns(t *testing.T) {
	options := NewPromptOptions(
		WithSystemPrompt("first"),
		WithTurns(UserTurn("hi"), AssistantTurn("hello")),
		WithTurns(UserTurn("again")),
		WithSystemPrompt("second"),
		WithModel(""),
	)

	if options.Instructions != "second" {
		t.Fatalf("expected last system prompt to win, got %q", options.Instructions)
	}
	if len(options.Turns) != 3 || options.Turns[2].Content != "again" {
		t.Fatalf("unexpected turns: %+v", options.Turns)
	}
	if options.Model != "" {
		t.Fatalf("expected empty model override to be ignored")
	}
	if options.Temperature != nil {
		t.Fatalf("expected temperature to be unset")
	}
}
