package trace

import (
	"fmt"
	"strings"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

// Render converts a stored trace into the human-readable report used for
// operator review and export. Sections are marked collapsed ("+") or
// expanded ("-") the way the review tooling presents them; detail lines
// are indented under their section.
func Render(t models.DecisionTrace) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Decision Trace %s\n", t.ID)
	fmt.Fprintf(&b, "Recommendation: %s  User: %s\n", t.RecommendationID, t.UserID)
	fmt.Fprintf(&b, "Created: %s  Generation: %dms  Enrichment: %s\n",
		t.CreatedAt.Format("2006-01-02 15:04:05 MST"), t.GenerationMs, yesNo(t.EnrichmentUsed))
	b.WriteString(strings.Repeat("=", 60) + "\n")

	renderPersona(&b, t.Persona)
	renderSignals(&b, t.Signals)
	renderGuardrails(&b, t.Guardrails)

	return b.String()
}

func renderPersona(b *strings.Builder, p models.PersonaTrace) {
	fmt.Fprintf(b, "[-] Persona: %s (priority %d)\n", p.PersonaName, p.PriorityRank)
	fmt.Fprintf(b, "    %s\n", p.Rationale)
	if len(p.ConditionsMet) > 0 {
		b.WriteString("    Conditions met:\n")
		for _, c := range p.ConditionsMet {
			fmt.Fprintf(b, "      - %s\n", c)
		}
	}
}

func renderSignals(b *strings.Builder, s models.SignalSnapshot) {
	fmt.Fprintf(b, "[-] Signals (captured %s)\n", s.CapturedAt.Format("2006-01-02 15:04:05 MST"))
	for _, w := range s.Windows {
		fmt.Fprintf(b, "    [+] %d-day window (%s to %s)\n", w.Days, w.Start, w.End)
		for _, d := range w.Domains {
			if d.Insufficient {
				fmt.Fprintf(b, "        %s: insufficient data (%s)\n", d.Domain, d.Reason)
				continue
			}
			fmt.Fprintf(b, "        %s:\n", d.Domain)
			for _, m := range d.Metrics {
				fmt.Fprintf(b, "          %s = %s\n", m.Name, m.Value)
			}
			if len(d.Indicators) > 0 {
				fmt.Fprintf(b, "          indicators: %s\n", strings.Join(d.Indicators, ", "))
			}
			if len(d.Evidence) > 0 {
				fmt.Fprintf(b, "          evidence: %d records\n", len(d.Evidence))
			}
		}
	}
}

func renderGuardrails(b *strings.Builder, results []models.GuardrailResult) {
	b.WriteString("[-] Guardrails\n")
	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		if r.Score != nil {
			fmt.Fprintf(b, "    %-12s %s (score %.1f)\n", r.Check, status, *r.Score)
		} else {
			fmt.Fprintf(b, "    %-12s %s\n", r.Check, status)
		}
		fmt.Fprintf(b, "                 %s\n", r.Explanation)
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
