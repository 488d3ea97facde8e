// Package recommend selects catalog content for a classified user and
// writes the data-citing rationale for each pick. Offer selection applies
// the existing-product filter, the harmful-product blocklist, and numeric
// eligibility floors; failed candidates are dropped, never the whole run.
package recommend

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/andychuong/spendsense-sub000/internal/catalog"
	"github.com/andychuong/spendsense-sub000/internal/models"
	"github.com/andychuong/spendsense-sub000/internal/persona"
	"github.com/andychuong/spendsense-sub000/internal/provider"
)

const (
	minEducationItems = 3
	maxEducationItems = 5
	maxOfferItems     = 3
)

// Candidate is one draft recommendation headed for the guardrail pipeline.
type Candidate struct {
	Item           catalog.Item
	Title          string
	Body           string
	Rationale      string
	EnrichmentUsed bool
	Eligibility    *EligibilityResult // offers only
}

// Skipped records a candidate dropped during selection, for the trace.
type Skipped struct {
	ItemID  string
	Harmful bool
	Reason  string
}

// Output is the full generation result for one user.
type Output struct {
	Candidates []Candidate
	Skipped    []Skipped
}

// Generator builds recommendation candidates from the catalog.
type Generator struct {
	provider provider.Provider
	logger   zerolog.Logger
}

// NewGenerator creates a generator. The provider is typically the
// remote-with-template-fallback composition; it must never be nil.
func NewGenerator(p provider.Provider, logger zerolog.Logger) *Generator {
	return &Generator{provider: p, logger: logger}
}

// Generate selects education items and eligible offers for the classified
// persona and attaches a rationale to each. Enrichment failures fall back
// to the deterministic template text and are never fatal.
func (g *Generator) Generate(ctx context.Context, set models.SignalSet, result persona.Result, profile Profile) Output {
	builder := builderFor(result.Persona)
	var out Output

	education := catalog.Education(result.Persona)
	if len(education) > maxEducationItems {
		education = education[:maxEducationItems]
	}
	if len(education) < minEducationItems {
		g.logger.Warn().
			Int("available", len(education)).
			Str("persona", result.Persona.Name()).
			Msg("catalog has fewer education items than the selection floor")
	}
	for _, item := range education {
		out.Candidates = append(out.Candidates, g.candidate(ctx, item, set, result, builder, nil))
	}

	offers := 0
	for _, item := range catalog.Offers(result.Persona) {
		if offers >= maxOfferItems {
			break
		}
		elig := CheckOffer(item, profile)
		if elig.Harmful {
			out.Skipped = append(out.Skipped, Skipped{
				ItemID: item.ID, Harmful: true, Reason: elig.Explanation(),
			})
			continue
		}
		if !elig.Eligible {
			out.Skipped = append(out.Skipped, Skipped{
				ItemID: item.ID, Reason: elig.Explanation(),
			})
			continue
		}
		out.Candidates = append(out.Candidates, g.candidate(ctx, item, set, result, builder, &elig))
		offers++
	}

	return out
}

func (g *Generator) candidate(ctx context.Context, item catalog.Item, set models.SignalSet, result persona.Result, builder rationaleBuilder, elig *EligibilityResult) Candidate {
	rationale := builder.Build(item, set)

	body := item.Body
	enriched := false
	text, err := g.provider.Rewrite(ctx, provider.RewriteRequest{
		PersonaName: result.Persona.Name(),
		Title:       item.Title,
		Body:        item.Body,
		Rationale:   rationale,
		DataPoints:  builder.DataPoints(set),
	})
	if err == nil && text != "" && text != item.Body {
		body = text
		enriched = true
	} else if err != nil {
		// deterministic template text stands; enrichment is optional
		g.logger.Debug().Err(err).Str("item", item.ID).Msg("content enrichment unavailable")
	}

	return Candidate{
		Item:           item,
		Title:          item.Title,
		Body:           body,
		Rationale:      rationale,
		EnrichmentUsed: enriched,
		Eligibility:    elig,
	}
}
