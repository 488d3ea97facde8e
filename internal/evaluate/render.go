package evaluate

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
)

// RenderCSV emits the report as flat metric,value rows.
func RenderCSV(r Report) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"metric", "value"},
		{"users", fmt.Sprintf("%d", r.Users)},
		{"recommendations", fmt.Sprintf("%d", r.Recommendations)},
		{"coverage_with_persona_pct", formatFloat(r.Coverage.WithPersonaPct)},
		{"coverage_with_behaviors_pct", formatFloat(r.Coverage.WithBehaviorsPct)},
		{"coverage_covered_pct", formatFloat(r.Coverage.CoveredPct)},
		{"explainability_citation_pct", formatFloat(r.Explainability.CitationPct)},
		{"explainability_avg_quality", formatFloat(r.Explainability.AvgQualityScore)},
		{"relevance_persona_match_pct", formatFloat(r.Relevance.PersonaMatchPct)},
		{"latency_p50_ms", formatFloat(r.Latency.P50Ms)},
		{"latency_p95_ms", formatFloat(r.Latency.P95Ms)},
		{"latency_p99_ms", formatFloat(r.Latency.P99Ms)},
		{"latency_under_target_pct", formatFloat(r.Latency.UnderTargetPct)},
		{"fairness_balance_score", formatFloat(r.Fairness.BalanceScore)},
	}
	for _, name := range sortedKeys(r.Fairness.PersonaSharePct) {
		rows = append(rows, []string{
			"fairness_share_pct[" + name + "]",
			formatFloat(r.Fairness.PersonaSharePct[name]),
		})
	}
	for _, name := range sortedKeys(r.Fairness.AvgBehaviors) {
		rows = append(rows, []string{
			"fairness_avg_behaviors[" + name + "]",
			formatFloat(r.Fairness.AvgBehaviors[name]),
		})
	}

	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("writing csv: %w", err)
	}
	return buf.String(), nil
}

// RenderNarrative emits a short human-readable summary for operators.
func RenderNarrative(r Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Evaluation report, generated %s\n", r.GeneratedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Corpus: %d users, %d recommendations\n\n", r.Users, r.Recommendations)

	if r.Users == 0 {
		b.WriteString("No users in the corpus; all aggregates are zero.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Coverage: %.1f%% of users hold a persona and %.1f%% show at "+
		"least %d detected behaviors (%.1f%% both).\n",
		r.Coverage.WithPersonaPct, r.Coverage.WithBehaviorsPct, minBehaviors, r.Coverage.CoveredPct)

	fmt.Fprintf(&b, "Explainability: %.1f%% of rationales cite a concrete data "+
		"point; average quality score %.1f/10.\n",
		r.Explainability.CitationPct, r.Explainability.AvgQualityScore)

	fmt.Fprintf(&b, "Relevance: %.1f%% of traced recommendations match the "+
		"user's current persona.\n", r.Relevance.PersonaMatchPct)

	fmt.Fprintf(&b, "Latency: p50 %.0fms, p95 %.0fms, p99 %.0fms; %.1f%% of runs "+
		"finished under the %dms target.\n",
		r.Latency.P50Ms, r.Latency.P95Ms, r.Latency.P99Ms,
		r.Latency.UnderTargetPct, r.Latency.TargetMs)

	fmt.Fprintf(&b, "Fairness: distribution balance %.2f (1.00 = uniform).\n",
		r.Fairness.BalanceScore)
	for _, name := range sortedKeys(r.Fairness.PersonaSharePct) {
		line := fmt.Sprintf("  %-26s %5.1f%%", name, r.Fairness.PersonaSharePct[name])
		if avg, ok := r.Fairness.AvgBehaviors[name]; ok {
			line += fmt.Sprintf("  (avg %.1f behaviors)", avg)
		}
		b.WriteString(line + "\n")
	}

	return b.String()
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
