// Package llm defines the minimal completion contract the content
// cleaner's AI-narrowing pass depends on; pkg/llm/vertex is the concrete
// implementation.
package llm

import (
	"context"
)

// Provider turns one prompt into one completion.
type Provider interface {
	// Complete generates a completion for the given prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// IsConfigured reports whether the provider has working credentials;
	// callers treat an unconfigured provider as a disabled feature, not
	// an error.
	IsConfigured() bool
}
