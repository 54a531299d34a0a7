// Package modelclient defines the LLM facade Grouper and Fixer consult,
// and the shared "fenced JSON block or raw JSON" response-extraction
// helper both components use to turn free-form model text into a
// validated structure.
package modelclient

import "context"

// Client is the interface Grouper and Fixer depend on. The concrete
// adapter (OpenAIClient) is the only implementation that talks to a
// real API; tests substitute a fake.
type Client interface {
	// Complete sends systemPrompt + userPrompt as a single chat
	// completion request and returns the model's raw text response.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Available reports whether the client has everything it needs
	// (an API key, primarily) to make requests. The orchestrator
	// consults this once at startup to set RunFlags.ModelEnabled.
	Available() bool
}
