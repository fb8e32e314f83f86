// Package generate wraps autoregressive decoding behind a small Backend
// interface so the prompt and synthesis layers can run against the local
// compressed model, a served model, or a test fake interchangeably.
package generate

import "context"

// Backend produces a completion for a prompt. Implementations return the
// decoded text including the prompt; callers strip it by marker.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
