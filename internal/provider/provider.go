// Package provider defines the natural-language content provider used for
// optional recommendation rewriting and tone scoring. Two implementations
// exist: a remote Gemini-backed provider and a deterministic template
// provider. WithFallback composes them so the pipeline never depends on
// the remote service being up.
package provider

import (
	"context"
	"errors"
)

// ErrUnavailable signals that the provider could not be reached or gave up
// after its retry budget. Callers fall back to deterministic behavior.
var ErrUnavailable = errors.New("content provider unavailable")

// ErrMalformed signals that the provider responded but the response could
// not be used. Distinct from ErrUnavailable so callers can tell a dead
// service from a misbehaving one.
var ErrMalformed = errors.New("content provider returned malformed response")

// RewriteRequest carries the prompt context for content enrichment.
type RewriteRequest struct {
	PersonaName string
	Title       string
	Body        string
	Rationale   string
	DataPoints  []string
}

// Provider generates enriched content and tone scores.
type Provider interface {
	// Rewrite returns an enriched version of the item body, or an error.
	Rewrite(ctx context.Context, req RewriteRequest) (string, error)
	// ScoreTone rates text quality/empathy on a 0 to 10 scale.
	ScoreTone(ctx context.Context, text string) (float64, error)
}
