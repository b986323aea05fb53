package orchestration

import (
	"context"
	"fmt"

	"github.com/koscakluka/ema-relay/core/llms"
)

// withCloseHook calls onClose when closeCh is closed before the returned
// channel is.
func withCloseHook(closeCh <-chan struct{}, onClose func()) chan struct{} {
	done := make(chan struct{})
	go func() {
		select {
		case <-closeCh:
			onClose()
		case <-done:
		}
	}()
	return done
}

type workerRun func(context.Context) error

func panicSafeNamedWorker(name string, run func(context.Context) error) workerRun {
	return func(ctx context.Context) (err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("%s worker panicked: %v", name, recovered)
			}
		}()

		if err = run(ctx); err != nil {
			return fmt.Errorf("%s worker failed: %w", name, err)
		}

		return nil
	}
}

// replied reports whether history ends with reply as the assistant's turn,
// which is how the dialogue engine records a successful response.
func replied(history []llms.Turn, reply string) bool {
	if len(history) == 0 {
		return false
	}
	last := history[len(history)-1]
	return last.Role == llms.TurnRoleAssistant && last.Content == reply
}
