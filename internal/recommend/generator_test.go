package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andychuong/spendsense-sub000/internal/logger"
	"github.com/andychuong/spendsense-sub000/internal/models"
	"github.com/andychuong/spendsense-sub000/internal/persona"
	"github.com/andychuong/spendsense-sub000/internal/provider"
)

// ---------------------------------------------------------------------------
// Stub provider
// ---------------------------------------------------------------------------

type stubProvider struct {
	rewrite    string
	rewriteErr error
	calls      int
}

func (s *stubProvider) Rewrite(_ context.Context, req provider.RewriteRequest) (string, error) {
	s.calls++
	if s.rewriteErr != nil {
		return "", s.rewriteErr
	}
	if s.rewrite != "" {
		return s.rewrite, nil
	}
	return req.Body, nil
}

func (s *stubProvider) ScoreTone(context.Context, string) (float64, error) {
	return 0, provider.ErrUnavailable
}

func highUtilizationSet() models.SignalSet {
	return models.SignalSet{
		UserID: "user-1",
		Short: models.WindowSignals{
			Credit: &models.SignalReport{
				Domain: models.DomainCredit,
				Credit: &models.CreditSignals{
					Cards: []models.CardUtilization{{
						AccountID:      "card-1234",
						Balance:        amount("680.00"),
						CreditLimit:    amount("1000.00"),
						UtilizationPct: 68,
						Tier:           models.UtilizationTierCritical,
					}},
					MaxUtilizationPct: 68,
					InterestCharges:   amount("12.50"),
				},
			},
		},
	}
}

func TestGenerate_EducationAndOfferCounts(t *testing.T) {
	set := highUtilizationSet()
	result := persona.Classify(set)
	require.Equal(t, models.PersonaHighUtilization, result.Persona)

	g := NewGenerator(&stubProvider{}, logger.New())
	out := g.Generate(context.Background(), set, result, profileWith("3000.00", 700))

	education, offers := 0, 0
	for _, c := range out.Candidates {
		switch c.Item.Type {
		case models.TypeEducation:
			education++
		case models.TypePartnerOffer:
			offers++
		}
	}
	assert.GreaterOrEqual(t, education, 3)
	assert.LessOrEqual(t, education, 5)
	assert.GreaterOrEqual(t, offers, 1)
	assert.LessOrEqual(t, offers, 3)
}

func TestGenerate_RationaleCitesSignalData(t *testing.T) {
	set := highUtilizationSet()
	result := persona.Classify(set)

	g := NewGenerator(&stubProvider{}, logger.New())
	out := g.Generate(context.Background(), set, result, profileWith("3000.00", 700))

	require.NotEmpty(t, out.Candidates)
	for _, c := range out.Candidates {
		assert.Contains(t, c.Rationale, "...1234", "item %s", c.Item.ID)
		assert.Contains(t, c.Rationale, "68.0%", "item %s", c.Item.ID)
	}
}

func TestGenerate_IneligibleOffersSkippedWithReason(t *testing.T) {
	set := highUtilizationSet()
	result := persona.Classify(set)

	// income too low for every offer that carries an income floor
	g := NewGenerator(&stubProvider{}, logger.New())
	out := g.Generate(context.Background(), set, result, profileWith("500.00", 700))

	require.NotEmpty(t, out.Skipped)
	for _, s := range out.Skipped {
		assert.False(t, s.Harmful)
		assert.Contains(t, s.Reason, "below")
	}
}

func TestGenerate_ProviderFailureFallsBackToCatalogBody(t *testing.T) {
	set := highUtilizationSet()
	result := persona.Classify(set)

	stub := &stubProvider{rewriteErr: provider.ErrUnavailable}
	g := NewGenerator(stub, logger.New())
	out := g.Generate(context.Background(), set, result, Profile{})

	require.NotEmpty(t, out.Candidates)
	for _, c := range out.Candidates {
		assert.Equal(t, c.Item.Body, c.Body)
		assert.False(t, c.EnrichmentUsed)
	}
	assert.Greater(t, stub.calls, 0)
}

func TestGenerate_EnrichmentMarksCandidates(t *testing.T) {
	set := highUtilizationSet()
	result := persona.Classify(set)

	stub := &stubProvider{rewrite: "A friendlier version of the same guidance."}
	g := NewGenerator(stub, logger.New())
	out := g.Generate(context.Background(), set, result, Profile{})

	require.NotEmpty(t, out.Candidates)
	for _, c := range out.Candidates {
		assert.True(t, c.EnrichmentUsed)
		assert.Equal(t, "A friendlier version of the same guidance.", c.Body)
		assert.Equal(t, c.Item.Title, c.Title)
	}
}

func TestGenerate_DefaultPersonaStillGetsEducation(t *testing.T) {
	set := models.SignalSet{UserID: "user-1"}
	result := persona.Classify(set)
	require.Equal(t, models.PersonaDefault, result.Persona)

	g := NewGenerator(&stubProvider{}, logger.New())
	out := g.Generate(context.Background(), set, result, Profile{})

	education := 0
	for _, c := range out.Candidates {
		if c.Item.Type == models.TypeEducation {
			education++
			assert.NotEmpty(t, c.Rationale)
		}
	}
	assert.GreaterOrEqual(t, education, 3)
}
