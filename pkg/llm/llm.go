// Package llm contains minimal HTTP clients for the text-generation
// providers. Each client speaks one vendor API and normalizes the result
// into a shared Response shape; quota accounting and fallback ordering
// live above this package.
package llm

import (
	"context"
	"fmt"
)

// Request is a single text-generation call
type Request struct {
	Prompt      string
	System      string
	Model       string
	Temperature float64
	MaxTokens   int
	// JSONMode asks the provider for structured output when it supports
	// a native JSON response format. Clients ignore it otherwise.
	JSONMode bool
}

// Response is the normalized generation result
type Response struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Client is one generation backend
type Client interface {
	// Name returns the stable provider identifier used in quota state
	// and error reports.
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
}

// StatusError is returned when a provider answers with a non-2xx status.
// The status code drives quota bookkeeping in the caller.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
}
