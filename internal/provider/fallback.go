package provider

import (
	"context"

	"github.com/rs/zerolog"
)

// Fallback tries a primary provider and falls back to a secondary on any
// error. Provider failures are logged, never surfaced to callers when the
// fallback succeeds.
type Fallback struct {
	primary   Provider
	secondary Provider
	logger    zerolog.Logger
}

// WithFallback composes two providers. primary may be nil, in which case
// every call goes straight to secondary.
func WithFallback(primary, secondary Provider, logger zerolog.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *Fallback) Rewrite(ctx context.Context, req RewriteRequest) (string, error) {
	if f.primary != nil {
		text, err := f.primary.Rewrite(ctx, req)
		if err == nil {
			return text, nil
		}
		f.logger.Warn().Err(err).Msg("primary provider rewrite failed, using fallback")
	}
	return f.secondary.Rewrite(ctx, req)
}

func (f *Fallback) ScoreTone(ctx context.Context, text string) (float64, error) {
	if f.primary != nil {
		score, err := f.primary.ScoreTone(ctx, text)
		if err == nil {
			return score, nil
		}
		f.logger.Warn().Err(err).Msg("primary provider tone scoring failed, using fallback")
	}
	return f.secondary.ScoreTone(ctx, text)
}
