package provider

import "context"

// Template is the deterministic provider: it returns catalog content
// unchanged and declines to score. It is the contractual fallback when the
// remote provider is down, and the only provider in offline deployments.
type Template struct{}

// NewTemplate creates the deterministic provider.
func NewTemplate() *Template {
	return &Template{}
}

// Rewrite returns the body as-is; the catalog text is already the
// deterministic output.
func (t *Template) Rewrite(_ context.Context, req RewriteRequest) (string, error) {
	return req.Body, nil
}

// ScoreTone reports unavailable so callers use their keyword fallback.
func (t *Template) ScoreTone(context.Context, string) (float64, error) {
	return 0, ErrUnavailable
}
