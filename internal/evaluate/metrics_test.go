package evaluate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

// ---------------------- Fixtures ----------------------

// assignment builds a current persona assignment whose snapshot carries the
// given number of distinct behavioral indicators.
func assignment(userID string, p models.Persona, behaviors int) *models.PersonaAssignment {
	indicators := make([]string, 0, behaviors)
	for i := 0; i < behaviors; i++ {
		indicators = append(indicators, fmt.Sprintf("indicator_%d", i))
	}
	return &models.PersonaAssignment{
		UserID:      userID,
		Persona:     p,
		PersonaName: p.Name(),
		Signals: models.SignalSnapshot{
			UserID: userID,
			Windows: []models.WindowSnapshot{
				{Days: 30, Domains: []models.DomainSnapshot{
					{Domain: "credit", Indicators: indicators},
				}},
			},
		},
	}
}

func tracedRec(userID string, p models.Persona, generationMs int64) models.DecisionTrace {
	return models.DecisionTrace{
		UserID:       userID,
		Persona:      models.PersonaTrace{Persona: p, PersonaName: p.Name()},
		GenerationMs: generationMs,
	}
}

// ---------------------- Tests ----------------------

func TestCompute_EmptyCorpus(t *testing.T) {
	r := Compute(Corpus{})

	assert.Equal(t, 0, r.Users)
	assert.Equal(t, 0, r.Recommendations)
	assert.Zero(t, r.Coverage.CoveredPct)
	assert.Zero(t, r.Explainability.AvgQualityScore)
	assert.Zero(t, r.Relevance.PersonaMatchPct)
	assert.Zero(t, r.Latency.P50Ms)
	assert.Equal(t, int64(DefaultTargetMs), r.Latency.TargetMs)
	assert.Zero(t, r.Fairness.BalanceScore)
}

func TestCitesDataPoint(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Your subscriptions total $50.00 per month.", true},
		{"That is 68.0% of the limit.", true},
		{"Since 2025-05-02 the balance grew.", true},
		{"Your card ...1234 carries a balance.", true},
		{"Consider reviewing your spending habits.", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CitesDataPoint(tc.text), "text: %q", tc.text)
	}
}

func TestQualityScore(t *testing.T) {
	// in the length band, cites a figure, no jargon: full marks
	full := "Your card ...1234 carries $680.00 against a $1000.00 limit, and paying it down frees up room."
	assert.InDelta(t, 10.0, QualityScore(full), 0.001)

	// too short for length credit but still cites and stays plain
	assert.InDelta(t, 7.0, QualityScore("See $50."), 0.001)

	// jargon drops three points
	jargon := "Your utilization ratio sits at a level that lenders typically read as elevated risk exposure."
	assert.InDelta(t, 3.0, QualityScore(jargon), 0.001)

	// mid-length without citation or jargon
	plain := "A good place to start this month."
	assert.InDelta(t, 4.5, QualityScore(plain), 0.001)

	// beyond the band only earns the partial length credit
	long := strings.Repeat("Paying a little extra each month adds up over time. ", 10)
	require.Greater(t, len(long), 400)
	assert.InDelta(t, 4.5, QualityScore(long), 0.001)
}

func TestCoverage(t *testing.T) {
	c := Corpus{
		UserIDs: []string{"u1", "u2", "u3", "u4"},
		Assignments: map[string]*models.PersonaAssignment{
			"u1": assignment("u1", models.PersonaHighUtilization, 3),
			"u2": assignment("u2", models.PersonaDefault, 1),
			"u4": assignment("u4", models.PersonaSavingsBuilder, 4),
		},
	}
	r := Compute(c)

	assert.InDelta(t, 75.0, r.Coverage.WithPersonaPct, 0.001)
	assert.InDelta(t, 50.0, r.Coverage.WithBehaviorsPct, 0.001)
	assert.InDelta(t, 50.0, r.Coverage.CoveredPct, 0.001)
}

func TestRelevance_MatchesTracePersonaAgainstCurrent(t *testing.T) {
	c := Corpus{
		UserIDs: []string{"u1", "u2"},
		Assignments: map[string]*models.PersonaAssignment{
			"u1": assignment("u1", models.PersonaHighUtilization, 3),
			"u2": assignment("u2", models.PersonaDefault, 0),
		},
		Traces: []models.DecisionTrace{
			tracedRec("u1", models.PersonaHighUtilization, 100), // still current
			tracedRec("u2", models.PersonaSavingsBuilder, 100),  // user moved on
			tracedRec("u3", models.PersonaDefault, 100),         // no current assignment, skipped
		},
	}
	r := Compute(c)

	assert.InDelta(t, 50.0, r.Relevance.PersonaMatchPct, 0.001)
}

func TestLatency_NearestRankPercentiles(t *testing.T) {
	traces := make([]models.DecisionTrace, 0, 10)
	for ms := int64(100); ms <= 1000; ms += 100 {
		traces = append(traces, tracedRec("u1", models.PersonaDefault, ms))
	}
	r := Compute(Corpus{UserIDs: []string{"u1"}, Traces: traces})

	assert.InDelta(t, 500.0, r.Latency.P50Ms, 0.001)
	assert.InDelta(t, 1000.0, r.Latency.P95Ms, 0.001)
	assert.InDelta(t, 1000.0, r.Latency.P99Ms, 0.001)
	assert.InDelta(t, 100.0, r.Latency.UnderTargetPct, 0.001)
}

func TestLatency_UnderTargetWithSlowRun(t *testing.T) {
	traces := []models.DecisionTrace{
		tracedRec("u1", models.PersonaDefault, 800),
		tracedRec("u1", models.PersonaDefault, 1200),
		tracedRec("u1", models.PersonaDefault, 9000),
		tracedRec("u1", models.PersonaDefault, 400),
	}
	r := ComputeWithTarget(Corpus{UserIDs: []string{"u1"}, Traces: traces}, 5000)

	assert.InDelta(t, 75.0, r.Latency.UnderTargetPct, 0.001)
	assert.InDelta(t, 9000.0, r.Latency.P99Ms, 0.001)
}

func TestPercentile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50}
	assert.Equal(t, 30.0, percentile(sorted, 50))
	assert.Equal(t, 50.0, percentile(sorted, 95))
	assert.Equal(t, 10.0, percentile(sorted, 1))
	assert.Equal(t, 0.0, percentile(nil, 50))
}

func TestFairness_UniformDistribution(t *testing.T) {
	c := Corpus{
		UserIDs: []string{"u1", "u2", "u3", "u4", "u5"},
		Assignments: map[string]*models.PersonaAssignment{
			"u1": assignment("u1", models.PersonaHighUtilization, 4),
			"u2": assignment("u2", models.PersonaVariableIncome, 3),
			"u3": assignment("u3", models.PersonaSubscriptionHeavy, 3),
			"u4": assignment("u4", models.PersonaSavingsBuilder, 2),
			"u5": assignment("u5", models.PersonaDefault, 0),
		},
	}
	r := Compute(c)

	assert.InDelta(t, 1.0, r.Fairness.BalanceScore, 0.001)
	for name, share := range r.Fairness.PersonaSharePct {
		assert.InDelta(t, 20.0, share, 0.001, "persona %s", name)
	}
	assert.InDelta(t, 4.0, r.Fairness.AvgBehaviors["High Utilization"], 0.001)
	assert.InDelta(t, 0.0, r.Fairness.AvgBehaviors["Getting Started"], 0.001)
}

func TestFairness_SingleBucketScoresZero(t *testing.T) {
	c := Corpus{
		UserIDs: []string{"u1", "u2"},
		Assignments: map[string]*models.PersonaAssignment{
			"u1": assignment("u1", models.PersonaDefault, 3),
			"u2": assignment("u2", models.PersonaDefault, 3),
		},
	}
	r := Compute(c)

	assert.InDelta(t, 0.0, r.Fairness.BalanceScore, 0.001)
	assert.InDelta(t, 100.0, r.Fairness.PersonaSharePct["Getting Started"], 0.001)
}

func TestExplainability(t *testing.T) {
	c := Corpus{
		UserIDs: []string{"u1"},
		Recommendations: []models.Recommendation{
			{Rationale: "Your card ...1234 carries $680.00 against a $1000.00 limit, and paying it down frees up room."},
			{Rationale: "Consider reviewing your spending habits for opportunities to trim the excess."},
		},
	}
	r := Compute(c)

	assert.InDelta(t, 50.0, r.Explainability.CitationPct, 0.001)
	// (10 + 6) / 2
	assert.InDelta(t, 8.0, r.Explainability.AvgQualityScore, 0.001)
}

func TestRenderCSV(t *testing.T) {
	c := Corpus{
		UserIDs: []string{"u1"},
		Assignments: map[string]*models.PersonaAssignment{
			"u1": assignment("u1", models.PersonaHighUtilization, 3),
		},
	}
	out, err := RenderCSV(Compute(c))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "metric,value\n"))
	assert.Contains(t, out, "users,1")
	assert.Contains(t, out, "coverage_covered_pct,100.00")
	assert.Contains(t, out, "fairness_share_pct[High Utilization],100.00")
	assert.Contains(t, out, "fairness_avg_behaviors[High Utilization],3.00")
}

func TestRenderNarrative_EmptyCorpus(t *testing.T) {
	out := RenderNarrative(Compute(Corpus{}))
	assert.Contains(t, out, "Corpus: 0 users, 0 recommendations")
	assert.Contains(t, out, "No users in the corpus")
}

func TestRenderNarrative_FullReport(t *testing.T) {
	c := Corpus{
		UserIDs: []string{"u1", "u2"},
		Assignments: map[string]*models.PersonaAssignment{
			"u1": assignment("u1", models.PersonaHighUtilization, 3),
			"u2": assignment("u2", models.PersonaDefault, 3),
		},
		Traces: []models.DecisionTrace{
			tracedRec("u1", models.PersonaHighUtilization, 250),
		},
	}
	out := RenderNarrative(Compute(c))

	assert.Contains(t, out, "Corpus: 2 users")
	assert.Contains(t, out, "Coverage: 100.0% of users hold a persona")
	assert.Contains(t, out, "Relevance: 100.0%")
	assert.Contains(t, out, "p50 250ms")
	assert.Contains(t, out, "High Utilization")
	assert.Contains(t, out, "(avg 3.0 behaviors)")
}
