// Package trace assembles and renders the immutable audit record behind
// every recommendation. A trace is written exactly once alongside its
// recommendation and never touched again; rendering works from the stored
// record alone, with no recomputation against live data.
package trace

import (
	"time"

	"github.com/google/uuid"

	"github.com/andychuong/spendsense-sub000/internal/models"
	"github.com/andychuong/spendsense-sub000/internal/persona"
)

// Recorder builds decision traces.
type Recorder struct {
	clock func() time.Time
}

// NewRecorder creates a trace recorder.
func NewRecorder() *Recorder {
	return &Recorder{clock: time.Now}
}

// Assemble builds the trace for one recommendation from the full
// provenance of its generation run.
func (r *Recorder) Assemble(
	userID string,
	recommendationID string,
	snapshot models.SignalSnapshot,
	result persona.Result,
	guardrails []models.GuardrailResult,
	generation time.Duration,
	enrichmentUsed bool,
) models.DecisionTrace {
	return models.DecisionTrace{
		ID:               uuid.NewString(),
		RecommendationID: recommendationID,
		UserID:           userID,
		Signals:          snapshot,
		Persona: models.PersonaTrace{
			Persona:       result.Persona,
			PersonaName:   result.Persona.Name(),
			PriorityRank:  result.PriorityRank,
			ConditionsMet: result.ConditionsMet,
			Rationale:     result.Rationale,
		},
		Guardrails:     guardrails,
		GenerationMs:   generation.Milliseconds(),
		EnrichmentUsed: enrichmentUsed,
		CreatedAt:      r.clock().UTC(),
	}
}
