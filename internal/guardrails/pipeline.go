// Package guardrails applies the four pre-persistence checks to every
// draft recommendation: consent, eligibility, tone, disclaimer. Checks run
// in that order and each can veto. Consent failures and harmful products
// discard the draft outright; eligibility and tone failures keep it only
// as a rejected audit record.
package guardrails

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/andychuong/spendsense-sub000/internal/models"
	"github.com/andychuong/spendsense-sub000/internal/provider"
	"github.com/andychuong/spendsense-sub000/internal/recommend"
)

// minToneScore is the provider-scored pass threshold on the 0-10 scale.
const minToneScore = 7.0

// Verdict is the pipeline's disposition for a draft.
type Verdict int

const (
	// VerdictApprove: all checks passed, persist as pending.
	VerdictApprove Verdict = iota
	// VerdictReject: eligibility or tone failed, persist rejected for audit.
	VerdictReject
	// VerdictDiscard: consent failed or product is harmful, never persist.
	VerdictDiscard
)

func (v Verdict) String() string {
	switch v {
	case VerdictApprove:
		return "approve"
	case VerdictReject:
		return "reject"
	case VerdictDiscard:
		return "discard"
	}
	return "unknown"
}

// ConsentChecker reads the user's current consent state.
type ConsentChecker interface {
	GetConsent(ctx context.Context, userID string) (*models.ConsentRecord, error)
}

// Outcome carries the verdict plus the per-check results for the trace.
type Outcome struct {
	Verdict Verdict
	Results []models.GuardrailResult
}

// Pipeline runs the four checks.
type Pipeline struct {
	consent  ConsentChecker
	provider provider.Provider
	logger   zerolog.Logger
	clock    func() time.Time
}

// NewPipeline creates the guardrail pipeline. provider may be the
// fallback composition; a nil provider forces keyword-based tone checks.
func NewPipeline(consent ConsentChecker, p provider.Provider, logger zerolog.Logger) *Pipeline {
	return &Pipeline{consent: consent, provider: p, logger: logger, clock: time.Now}
}

// Run applies every check to the draft. Later checks still run after a
// reject-grade failure so the trace captures the complete picture, but a
// discard-grade failure stops immediately.
func (g *Pipeline) Run(ctx context.Context, userID string, cand recommend.Candidate, disclaimer string) Outcome {
	out := Outcome{Verdict: VerdictApprove}

	consentRes, granted := g.checkConsent(ctx, userID)
	out.Results = append(out.Results, consentRes)
	if !granted {
		out.Verdict = VerdictDiscard
		return out
	}

	eligRes, eligible, harmful := g.checkEligibility(cand)
	out.Results = append(out.Results, eligRes)
	if harmful {
		out.Verdict = VerdictDiscard
		return out
	}
	if !eligible {
		out.Verdict = VerdictReject
	}

	toneRes, tonePass := g.checkTone(ctx, cand)
	out.Results = append(out.Results, toneRes)
	if !tonePass && out.Verdict == VerdictApprove {
		out.Verdict = VerdictReject
	}

	discRes, discPass := g.checkDisclaimer(disclaimer)
	out.Results = append(out.Results, discRes)
	if !discPass && out.Verdict == VerdictApprove {
		out.Verdict = VerdictReject
	}

	return out
}

// checkConsent blocks all processing when the current consent flag is
// false. The check is logged with user, operation, and timestamp whatever
// the outcome.
func (g *Pipeline) checkConsent(ctx context.Context, userID string) (models.GuardrailResult, bool) {
	now := g.clock()
	record, err := g.consent.GetConsent(ctx, userID)
	granted := err == nil && record != nil && record.Granted

	g.logger.Info().
		Str("user_id", userID).
		Str("operation", "recommendation_generation").
		Time("checked_at", now).
		Bool("granted", granted).
		Msg("consent check")

	explanation := "consent granted for recommendation processing"
	if err != nil {
		explanation = fmt.Sprintf("consent lookup failed: %v", err)
	} else if !granted {
		explanation = "user has not granted consent; processing blocked"
	}
	return models.GuardrailResult{
		Check:       models.CheckConsent,
		Passed:      granted,
		Explanation: explanation,
		CheckedAt:   now,
	}, granted
}

// checkEligibility re-validates the offer rules against the final draft.
// Education items carry no eligibility requirements.
func (g *Pipeline) checkEligibility(cand recommend.Candidate) (models.GuardrailResult, bool, bool) {
	now := g.clock()
	if cand.Item.Type != models.TypePartnerOffer {
		return models.GuardrailResult{
			Check:       models.CheckEligibility,
			Passed:      true,
			Explanation: "pass: education content carries no eligibility requirements",
			CheckedAt:   now,
		}, true, false
	}

	elig := cand.Eligibility
	if elig == nil {
		return models.GuardrailResult{
			Check:       models.CheckEligibility,
			Passed:      false,
			Explanation: "fail: offer reached guardrails without an eligibility evaluation",
			CheckedAt:   now,
		}, false, false
	}
	return models.GuardrailResult{
		Check:       models.CheckEligibility,
		Passed:      elig.Eligible,
		Explanation: elig.Explanation(),
		CheckedAt:   now,
	}, elig.Eligible, elig.Harmful
}

// checkTone hard-fails on any shaming phrase, then tries the provider's
// quality score, then falls back to keyword validation when the provider
// is unavailable.
func (g *Pipeline) checkTone(ctx context.Context, cand recommend.Candidate) (models.GuardrailResult, bool) {
	now := g.clock()
	text := cand.Body + " " + cand.Rationale

	if phrase := findShamingPhrase(text); phrase != "" {
		return models.GuardrailResult{
			Check:       models.CheckTone,
			Passed:      false,
			Explanation: fmt.Sprintf("fail: text contains shaming phrase %q", phrase),
			CheckedAt:   now,
		}, false
	}

	if g.provider != nil {
		score, err := g.provider.ScoreTone(ctx, text)
		if err == nil {
			passed := score >= minToneScore
			verdict := "pass"
			if !passed {
				verdict = "fail"
			}
			return models.GuardrailResult{
				Check:  models.CheckTone,
				Passed: passed,
				Score:  &score,
				Explanation: fmt.Sprintf("%s: provider tone score %.1f against a %.1f minimum",
					verdict, score, minToneScore),
				CheckedAt: now,
			}, passed
		}
		if !errors.Is(err, provider.ErrUnavailable) {
			g.logger.Warn().Err(err).Msg("tone scoring returned unusable response")
		}
	}

	// keyword fallback: no shaming phrase (already verified) plus at least
	// one empowering phrase
	if hasEmpoweringPhrase(text) {
		return models.GuardrailResult{
			Check:       models.CheckTone,
			Passed:      true,
			Explanation: "pass: keyword fallback found empowering language and no shaming phrases",
			CheckedAt:   now,
		}, true
	}
	return models.GuardrailResult{
		Check:       models.CheckTone,
		Passed:      false,
		Explanation: "fail: keyword fallback found no empowering language",
		CheckedAt:   now,
	}, false
}

// checkDisclaimer verifies the fixed regulatory disclaimer is attached.
func (g *Pipeline) checkDisclaimer(disclaimer string) (models.GuardrailResult, bool) {
	now := g.clock()
	if disclaimer == models.Disclaimer {
		return models.GuardrailResult{
			Check:       models.CheckDisclaimer,
			Passed:      true,
			Explanation: "pass: regulatory disclaimer attached",
			CheckedAt:   now,
		}, true
	}
	return models.GuardrailResult{
		Check:       models.CheckDisclaimer,
		Passed:      false,
		Explanation: "fail: regulatory disclaimer missing or altered",
		CheckedAt:   now,
	}, false
}
