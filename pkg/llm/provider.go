package llm

import (
	"context"
)

// Prompt is a single text generation request.
type Prompt struct {
	Name   string // intent, used for logging
	System string
	User   string
}

// Provider defines the interface for interacting with LLM services.
type Provider interface {
	// GenerateText sends a prompt and returns the text response.
	GenerateText(ctx context.Context, p Prompt) (string, error)

	// HealthCheck verifies that the provider is configured and reachable.
	HealthCheck(ctx context.Context) error
}
