// Package evaluate batch-computes aggregate quality statistics over stored
// personas, recommendations, and decision traces. It reads persisted
// outputs only, never the live pipeline, and tolerates empty or partial
// corpora by reporting zeros instead of failing.
package evaluate

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

// Corpus is a snapshot of stored pipeline outputs.
type Corpus struct {
	UserIDs         []string
	Assignments     map[string]*models.PersonaAssignment // current, per user
	Recommendations []models.Recommendation
	Traces          []models.DecisionTrace
}

// Report holds every computed aggregate.
type Report struct {
	Users           int                `json:"users"`
	Recommendations int                `json:"recommendations"`
	Coverage        CoverageStats      `json:"coverage"`
	Explainability  ExplainStats       `json:"explainability"`
	Relevance       RelevanceStats     `json:"relevance"`
	Latency         LatencyStats       `json:"latency"`
	Fairness        FairnessStats      `json:"fairness"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

// CoverageStats: how much of the user base the pipeline reaches.
type CoverageStats struct {
	WithPersonaPct   float64 `json:"with_persona_pct"`
	WithBehaviorsPct float64 `json:"with_behaviors_pct"` // >= 3 detected behaviors
	CoveredPct       float64 `json:"covered_pct"`        // both
}

// ExplainStats: how well recommendations justify themselves.
type ExplainStats struct {
	CitationPct     float64 `json:"citation_pct"`
	AvgQualityScore float64 `json:"avg_quality_score"` // 0-10
}

// RelevanceStats: trace persona vs current persona agreement.
type RelevanceStats struct {
	PersonaMatchPct float64 `json:"persona_match_pct"`
}

// LatencyStats: generation timing percentiles from traces.
type LatencyStats struct {
	P50Ms          float64 `json:"p50_ms"`
	P95Ms          float64 `json:"p95_ms"`
	P99Ms          float64 `json:"p99_ms"`
	UnderTargetPct float64 `json:"under_target_pct"`
	TargetMs       int64   `json:"target_ms"`
}

// FairnessStats: persona distribution balance and per-persona depth.
type FairnessStats struct {
	BalanceScore    float64            `json:"balance_score"` // 0-1, 1 = uniform
	PersonaSharePct map[string]float64 `json:"persona_share_pct"`
	AvgBehaviors    map[string]float64 `json:"avg_behaviors"`
}

// DefaultTargetMs is the generation soft budget used for the under-target
// fraction.
const DefaultTargetMs = 5000

const minBehaviors = 3

// Compute runs every aggregate over the corpus.
func Compute(c Corpus) Report {
	return ComputeWithTarget(c, DefaultTargetMs)
}

// ComputeWithTarget is Compute with an explicit latency target.
func ComputeWithTarget(c Corpus, targetMs int64) Report {
	rep := Report{
		Users:           len(c.UserIDs),
		Recommendations: len(c.Recommendations),
		GeneratedAt:     time.Now().UTC(),
	}
	rep.Coverage = coverage(c)
	rep.Explainability = explainability(c.Recommendations)
	rep.Relevance = relevance(c)
	rep.Latency = latency(c.Traces, targetMs)
	rep.Fairness = fairness(c)
	return rep
}

func coverage(c Corpus) CoverageStats {
	if len(c.UserIDs) == 0 {
		return CoverageStats{}
	}
	withPersona, withBehaviors, covered := 0, 0, 0
	for _, id := range c.UserIDs {
		a := c.Assignments[id]
		hasPersona := a != nil && a.Persona.Valid()
		hasBehaviors := a != nil && a.Signals.BehaviorCount() >= minBehaviors
		if hasPersona {
			withPersona++
		}
		if hasBehaviors {
			withBehaviors++
		}
		if hasPersona && hasBehaviors {
			covered++
		}
	}
	n := float64(len(c.UserIDs))
	return CoverageStats{
		WithPersonaPct:   float64(withPersona) / n * 100,
		WithBehaviorsPct: float64(withBehaviors) / n * 100,
		CoveredPct:       float64(covered) / n * 100,
	}
}

var citationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\d`),                 // currency amount
	regexp.MustCompile(`\d+(\.\d+)?%`),         // percentage
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),    // ISO date
	regexp.MustCompile(`\.\.\.\S{2,4}\b`),      // account suffix
}

// CitesDataPoint reports whether the text contains a concrete data point:
// a currency amount, a percentage, a date, or an account suffix.
func CitesDataPoint(text string) bool {
	for _, p := range citationPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// jargonTerms penalize the rationale quality score.
var jargonTerms = []string{
	"amortization",
	"annual percentage rate",
	"debt-to-income",
	"fiduciary",
	"liquidity",
	"revolving credit facility",
	"utilization ratio",
}

// QualityScore rates a rationale 0-10 from length, citation, and jargon
// heuristics.
func QualityScore(rationale string) float64 {
	score := 0.0

	// length: full credit for a sentence or three, partial outside the band
	n := len(rationale)
	switch {
	case n >= 60 && n <= 400:
		score += 3
	case n >= 30:
		score += 1.5
	}

	if CitesDataPoint(rationale) {
		score += 4
	}

	lower := strings.ToLower(rationale)
	jargonFree := true
	for _, term := range jargonTerms {
		if strings.Contains(lower, term) {
			jargonFree = false
			break
		}
	}
	if jargonFree {
		score += 3
	}
	return score
}

func explainability(recs []models.Recommendation) ExplainStats {
	if len(recs) == 0 {
		return ExplainStats{}
	}
	cited := 0
	total := 0.0
	for _, r := range recs {
		if CitesDataPoint(r.Rationale) {
			cited++
		}
		total += QualityScore(r.Rationale)
	}
	n := float64(len(recs))
	return ExplainStats{
		CitationPct:     float64(cited) / n * 100,
		AvgQualityScore: total / n,
	}
}

func relevance(c Corpus) RelevanceStats {
	if len(c.Traces) == 0 {
		return RelevanceStats{}
	}
	matched, considered := 0, 0
	for _, t := range c.Traces {
		current := c.Assignments[t.UserID]
		if current == nil {
			continue
		}
		considered++
		if t.Persona.Persona == current.Persona {
			matched++
		}
	}
	if considered == 0 {
		return RelevanceStats{}
	}
	return RelevanceStats{PersonaMatchPct: float64(matched) / float64(considered) * 100}
}

func latency(traces []models.DecisionTrace, targetMs int64) LatencyStats {
	stats := LatencyStats{TargetMs: targetMs}
	if len(traces) == 0 {
		return stats
	}
	timings := make([]float64, 0, len(traces))
	under := 0
	for _, t := range traces {
		timings = append(timings, float64(t.GenerationMs))
		if t.GenerationMs < targetMs {
			under++
		}
	}
	sort.Float64s(timings)
	stats.P50Ms = percentile(timings, 50)
	stats.P95Ms = percentile(timings, 95)
	stats.P99Ms = percentile(timings, 99)
	stats.UnderTargetPct = float64(under) / float64(len(timings)) * 100
	return stats
}

// percentile uses nearest-rank on a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func fairness(c Corpus) FairnessStats {
	stats := FairnessStats{
		PersonaSharePct: map[string]float64{},
		AvgBehaviors:    map[string]float64{},
	}

	counts := map[models.Persona]int{}
	behaviors := map[models.Persona][]int{}
	assigned := 0
	for _, id := range c.UserIDs {
		a := c.Assignments[id]
		if a == nil || !a.Persona.Valid() {
			continue
		}
		assigned++
		counts[a.Persona]++
		behaviors[a.Persona] = append(behaviors[a.Persona], a.Signals.BehaviorCount())
	}
	if assigned == 0 {
		return stats
	}

	// balance score: 1 minus total deviation from the uniform share,
	// normalized so all-in-one-bucket scores 0
	personas := []models.Persona{
		models.PersonaHighUtilization,
		models.PersonaVariableIncome,
		models.PersonaSubscriptionHeavy,
		models.PersonaSavingsBuilder,
		models.PersonaDefault,
	}
	uniform := 1.0 / float64(len(personas))
	deviation := 0.0
	for _, p := range personas {
		share := float64(counts[p]) / float64(assigned)
		deviation += math.Abs(share - uniform)
		stats.PersonaSharePct[p.Name()] = share * 100

		if bs := behaviors[p]; len(bs) > 0 {
			sum := 0
			for _, b := range bs {
				sum += b
			}
			stats.AvgBehaviors[p.Name()] = float64(sum) / float64(len(bs))
		}
	}
	maxDeviation := 2 * (1 - uniform)
	stats.BalanceScore = 1 - deviation/maxDeviation
	return stats
}
