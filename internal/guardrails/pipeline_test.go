package guardrails

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andychuong/spendsense-sub000/internal/catalog"
	"github.com/andychuong/spendsense-sub000/internal/logger"
	"github.com/andychuong/spendsense-sub000/internal/models"
	"github.com/andychuong/spendsense-sub000/internal/provider"
	"github.com/andychuong/spendsense-sub000/internal/recommend"
)

// ---------------------- Mocks ----------------------

type mockConsent struct {
	record *models.ConsentRecord
	err    error
	calls  int
}

func (m *mockConsent) GetConsent(_ context.Context, userID string) (*models.ConsentRecord, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.record, nil
}

type stubScorer struct {
	score      float64
	err        error
	scoreCalls int
}

func (s *stubScorer) Rewrite(_ context.Context, _ provider.RewriteRequest) (string, error) {
	return "", provider.ErrUnavailable
}

func (s *stubScorer) ScoreTone(_ context.Context, _ string) (float64, error) {
	s.scoreCalls++
	if s.err != nil {
		return 0, s.err
	}
	return s.score, nil
}

func grantedConsent() *mockConsent {
	return &mockConsent{record: &models.ConsentRecord{
		UserID:                 "user-1",
		Granted:                true,
		DisclaimerAcknowledged: true,
	}}
}

func educationCandidate() recommend.Candidate {
	return recommend.Candidate{
		Item: catalog.Item{
			ID:   "edu-snowball",
			Type: models.TypeEducation,
		},
		Title:     "Two Ways to Pay Down Card Balances",
		Body:      "You can pick the method that fits how you think about money.",
		Rationale: "Your card ...1234 currently sits at 68.0% utilization.",
	}
}

func offerCandidate(elig *recommend.EligibilityResult) recommend.Candidate {
	return recommend.Candidate{
		Item: catalog.Item{
			ID:           "offer-balance-transfer",
			Type:         models.TypePartnerOffer,
			ProductClass: "credit_card",
		},
		Title:       "0% Intro APR Balance Transfer Card",
		Body:        "Moving your balance could keep more of each payment working for you.",
		Rationale:   "Based on your estimated monthly income of $4340.00.",
		Eligibility: elig,
	}
}

func checkNames(results []models.GuardrailResult) []string {
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Check)
	}
	return names
}

// ---------------------- Tests ----------------------

func TestRun_ConsentDeniedDiscardsImmediately(t *testing.T) {
	consent := &mockConsent{record: &models.ConsentRecord{UserID: "user-1", Granted: false}}
	scorer := &stubScorer{score: 9}
	p := NewPipeline(consent, scorer, logger.New())

	out := p.Run(context.Background(), "user-1", educationCandidate(), models.Disclaimer)

	assert.Equal(t, VerdictDiscard, out.Verdict)
	require.Len(t, out.Results, 1)
	assert.Equal(t, models.CheckConsent, out.Results[0].Check)
	assert.False(t, out.Results[0].Passed)
	assert.Contains(t, out.Results[0].Explanation, "processing blocked")
	assert.Equal(t, 0, scorer.scoreCalls, "no downstream check should run after a consent failure")
}

func TestRun_ConsentLookupErrorDiscards(t *testing.T) {
	consent := &mockConsent{err: errors.New("connection refused")}
	p := NewPipeline(consent, &stubScorer{score: 9}, logger.New())

	out := p.Run(context.Background(), "user-1", educationCandidate(), models.Disclaimer)

	assert.Equal(t, VerdictDiscard, out.Verdict)
	require.Len(t, out.Results, 1)
	assert.Contains(t, out.Results[0].Explanation, "consent lookup failed")
}

func TestRun_HarmfulProductDiscards(t *testing.T) {
	elig := &recommend.EligibilityResult{
		Harmful:    true,
		Indicators: []string{"fail: product class payday_loan is excluded as predatory"},
	}
	p := NewPipeline(grantedConsent(), &stubScorer{score: 9}, logger.New())

	out := p.Run(context.Background(), "user-1", offerCandidate(elig), models.Disclaimer)

	assert.Equal(t, VerdictDiscard, out.Verdict)
	require.Len(t, out.Results, 2)
	assert.Equal(t, []string{models.CheckConsent, models.CheckEligibility}, checkNames(out.Results))
	assert.False(t, out.Results[1].Passed)
}

func TestRun_IneligibleOfferRejectsButCompletesAllChecks(t *testing.T) {
	elig := &recommend.EligibilityResult{
		Eligible:   false,
		Indicators: []string{"fail: estimated monthly income $1500.00 is below the $2000 minimum"},
	}
	p := NewPipeline(grantedConsent(), &stubScorer{score: 9}, logger.New())

	out := p.Run(context.Background(), "user-1", offerCandidate(elig), models.Disclaimer)

	assert.Equal(t, VerdictReject, out.Verdict)
	require.Len(t, out.Results, 4)
	assert.Equal(t, []string{
		models.CheckConsent,
		models.CheckEligibility,
		models.CheckTone,
		models.CheckDisclaimer,
	}, checkNames(out.Results))
	assert.False(t, out.Results[1].Passed)
	assert.True(t, out.Results[2].Passed, "tone still runs so the trace is complete")
	assert.True(t, out.Results[3].Passed)
}

func TestRun_OfferWithoutEligibilityResultRejects(t *testing.T) {
	p := NewPipeline(grantedConsent(), &stubScorer{score: 9}, logger.New())

	out := p.Run(context.Background(), "user-1", offerCandidate(nil), models.Disclaimer)

	assert.Equal(t, VerdictReject, out.Verdict)
	assert.False(t, out.Results[1].Passed)
	assert.Contains(t, out.Results[1].Explanation, "without an eligibility evaluation")
}

func TestRun_AllChecksPassApproves(t *testing.T) {
	scorer := &stubScorer{score: 8.5}
	p := NewPipeline(grantedConsent(), scorer, logger.New())

	out := p.Run(context.Background(), "user-1", educationCandidate(), models.Disclaimer)

	assert.Equal(t, VerdictApprove, out.Verdict)
	require.Len(t, out.Results, 4)
	for _, r := range out.Results {
		assert.True(t, r.Passed, "check %s should pass", r.Check)
	}
	require.NotNil(t, out.Results[2].Score)
	assert.InDelta(t, 8.5, *out.Results[2].Score, 0.001)
}

func TestRun_LowToneScoreRejects(t *testing.T) {
	p := NewPipeline(grantedConsent(), &stubScorer{score: 5.0}, logger.New())

	out := p.Run(context.Background(), "user-1", educationCandidate(), models.Disclaimer)

	assert.Equal(t, VerdictReject, out.Verdict)
	assert.False(t, out.Results[2].Passed)
	assert.Contains(t, out.Results[2].Explanation, "fail: provider tone score 5.0")
}

func TestRun_ShamingPhraseFailsWithoutCallingProvider(t *testing.T) {
	scorer := &stubScorer{score: 9}
	p := NewPipeline(grantedConsent(), scorer, logger.New())

	cand := educationCandidate()
	cand.Body = "It was irresponsible to let the balance grow this far."

	out := p.Run(context.Background(), "user-1", cand, models.Disclaimer)

	assert.Equal(t, VerdictReject, out.Verdict)
	assert.False(t, out.Results[2].Passed)
	assert.Contains(t, out.Results[2].Explanation, `shaming phrase "irresponsible"`)
	assert.Equal(t, 0, scorer.scoreCalls, "shaming phrases short-circuit before scoring")
}

func TestRun_ProviderUnavailableFallsBackToKeywords(t *testing.T) {
	scorer := &stubScorer{err: provider.ErrUnavailable}
	p := NewPipeline(grantedConsent(), scorer, logger.New())

	out := p.Run(context.Background(), "user-1", educationCandidate(), models.Disclaimer)

	assert.Equal(t, VerdictApprove, out.Verdict)
	assert.True(t, out.Results[2].Passed)
	assert.Contains(t, out.Results[2].Explanation, "keyword fallback")
	assert.Nil(t, out.Results[2].Score)
}

func TestRun_KeywordFallbackNeedsEmpoweringLanguage(t *testing.T) {
	scorer := &stubScorer{err: provider.ErrUnavailable}
	p := NewPipeline(grantedConsent(), scorer, logger.New())

	cand := educationCandidate()
	cand.Body = "The balance on the card is high."
	cand.Rationale = "The balance on the card is 68.0% of the limit."

	out := p.Run(context.Background(), "user-1", cand, models.Disclaimer)

	assert.Equal(t, VerdictReject, out.Verdict)
	assert.False(t, out.Results[2].Passed)
	assert.Contains(t, out.Results[2].Explanation, "no empowering language")
}

func TestRun_NilProviderUsesKeywordFallback(t *testing.T) {
	p := NewPipeline(grantedConsent(), nil, logger.New())

	out := p.Run(context.Background(), "user-1", educationCandidate(), models.Disclaimer)

	assert.Equal(t, VerdictApprove, out.Verdict)
	assert.Contains(t, out.Results[2].Explanation, "keyword fallback")
}

func TestRun_AlteredDisclaimerRejects(t *testing.T) {
	p := NewPipeline(grantedConsent(), &stubScorer{score: 9}, logger.New())

	out := p.Run(context.Background(), "user-1", educationCandidate(), "Not financial advice.")

	assert.Equal(t, VerdictReject, out.Verdict)
	assert.False(t, out.Results[3].Passed)
	assert.Contains(t, out.Results[3].Explanation, "missing or altered")
}

func TestFindShamingPhrase_CaseInsensitive(t *testing.T) {
	assert.Equal(t, "reckless", findShamingPhrase("That was a RECKLESS choice."))
	assert.Empty(t, findShamingPhrase("You can build momentum this month."))
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "approve", VerdictApprove.String())
	assert.Equal(t, "reject", VerdictReject.String())
	assert.Equal(t, "discard", VerdictDiscard.String())
}
