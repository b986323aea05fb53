package llms

type PromptOptions struct {
	Instructions string
	Turns        []Turn
	Model        string
	Temperature  *float64
}

type PromptOption func(*PromptOptions)

func NewPromptOptions(opts ...PromptOption) PromptOptions {
	options := PromptOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// WithSystemPrompt sets the system prompt for the prompt.
// Repeating this option will overwrite the previous system prompt.
func WithSystemPrompt(prompt string) PromptOption {
	return func(opts *PromptOptions) {
		opts.Instructions = prompt
	}
}

// WithTurns adds turns information to the prompt.
// Repeating this option will sequentially add more turns.
func WithTurns(turns ...Turn) PromptOption {
	return func(opts *PromptOptions) {
		opts.Turns = append(opts.Turns, turns...)
	}
}

// WithModel overrides the generator's default model for a single call.
func WithModel(model string) PromptOption {
	return func(opts *PromptOptions) {
		if model != "" {
			opts.Model = model
		}
	}
}

func WithTemperature(temperature float64) PromptOption {
	return func(opts *PromptOptions) {
		opts.Temperature = &temperature
	}
}
