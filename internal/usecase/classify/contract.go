package classify

import "context"

// ChatCompleter is the LLM boundary the engine talks through.
type ChatCompleter interface {
	Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error)
}
