// Package llm talks to the intelligent-extraction services that read medicine
// names out of prescription text.
package llm

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured is returned by NewClient when the provider has no credentials.
var ErrNotConfigured = errors.New("llm: not configured")

// Request is a single system + user exchange.
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// ChatClient is the interface the name extractor depends on.
type ChatClient interface {
	Complete(ctx context.Context, req Request) (string, error)
	// Provider returns a short label such as "openai:gpt-4o-mini".
	Provider() string
}

// Config selects and configures a provider.
type Config struct {
	Provider          string // openai | gemini | anthropic (claude) | ollama
	APIKey            string
	Model             string
	BaseURL           string
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerSecond float64
}
