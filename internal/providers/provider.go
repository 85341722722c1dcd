package providers

import (
	"context"

	"culturegateway/internal/models"
)

// Adapter abstracts one upstream LLM vendor.
type Adapter interface {
	// Name returns the provider's identifier (e.g. "ollama", "gemini")
	Name() string

	// Available reports whether the provider's credential is configured.
	// The router skips unavailable adapters without a network attempt.
	Available() bool

	// Generate performs exactly one synchronous request against the upstream
	// and normalizes the reply. Calling an unavailable adapter returns a
	// ConfigError, never an unauthenticated upstream call.
	Generate(ctx context.Context, req *models.GenerationRequest) (*models.UnifiedResponse, error)
}
