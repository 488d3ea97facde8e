// Package pipeline orchestrates one user's full decision run: load records,
// detect signals, classify the persona, generate candidates, apply
// guardrails, and persist each surviving recommendation atomically with its
// trace.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andychuong/spendsense-sub000/internal/guardrails"
	"github.com/andychuong/spendsense-sub000/internal/metrics"
	"github.com/andychuong/spendsense-sub000/internal/models"
	"github.com/andychuong/spendsense-sub000/internal/persona"
	"github.com/andychuong/spendsense-sub000/internal/recommend"
	"github.com/andychuong/spendsense-sub000/internal/signals"
	"github.com/andychuong/spendsense-sub000/internal/trace"
)

// ErrConsentDenied means the user has not granted processing consent.
// Nothing is computed or persisted for such a run.
var ErrConsentDenied = errors.New("user consent not granted")

// ErrNoAccounts means the user has no linked accounts to analyze.
var ErrNoAccounts = errors.New("no accounts on file")

// Store is the persistence surface the pipeline needs.
type Store interface {
	GetConsent(ctx context.Context, userID string) (*models.ConsentRecord, error)
	GetAccounts(ctx context.Context, userID string) ([]models.Account, error)
	GetTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
	GetLiabilities(ctx context.Context, userID string) ([]models.Liability, error)
	GetActivePersona(ctx context.Context, userID string) (*models.PersonaAssignment, error)
	ReplaceActivePersona(ctx context.Context, a models.PersonaAssignment) (*models.PersonaAssignment, error)
	CreateRecommendationWithTrace(ctx context.Context, rec models.Recommendation, tr models.DecisionTrace) error
}

// Publisher emits downstream events for persisted recommendations. May be
// nil; publishing is best effort and never fails a run.
type Publisher interface {
	RecommendationCreated(ctx context.Context, rec models.Recommendation) error
}

// Outcome summarizes one completed run.
type Outcome struct {
	UserID         string
	Persona        persona.Result
	PersonaChanged bool
	Persisted      []models.Recommendation
	Discarded      int
	Duration       time.Duration
}

// Runner executes decision runs.
type Runner struct {
	store     Store
	detector  *signals.Detector
	generator *recommend.Generator
	guards    *guardrails.Pipeline
	recorder  *trace.Recorder
	publisher Publisher
	logger    zerolog.Logger

	generationBudget time.Duration
	clock            func() time.Time
}

// NewRunner wires the pipeline stages together. publisher may be nil.
func NewRunner(
	store Store,
	detector *signals.Detector,
	generator *recommend.Generator,
	guards *guardrails.Pipeline,
	recorder *trace.Recorder,
	publisher Publisher,
	generationBudget time.Duration,
	logger zerolog.Logger,
) *Runner {
	return &Runner{
		store:            store,
		detector:         detector,
		generator:        generator,
		guards:           guards,
		recorder:         recorder,
		publisher:        publisher,
		logger:           logger,
		generationBudget: generationBudget,
		clock:            time.Now,
	}
}

// Run executes the full pipeline for one user. Consent is checked before
// any data is read; a denied run returns ErrConsentDenied with nothing
// computed and nothing stored.
func (r *Runner) Run(ctx context.Context, userID string) (*Outcome, error) {
	started := r.clock()

	consent, err := r.store.GetConsent(ctx, userID)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("loading consent for user %s: %w", userID, err)
	}
	if consent == nil || !consent.Granted {
		metrics.PipelineRuns.WithLabelValues(metrics.OutcomeConsentDenied).Inc()
		r.logger.Info().Str("user_id", userID).Msg("run blocked: consent not granted")
		return nil, ErrConsentDenied
	}

	in, err := r.loadInputs(ctx, userID)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	asOf := r.clock().UTC()
	set := r.detector.DetectAll(ctx, in, asOf)
	result := persona.Classify(set)
	snapshot := signals.Snapshot(set, asOf)

	changed, err := r.swapPersona(ctx, userID, result, snapshot, asOf)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	profile := recommend.BuildProfile(set, in.Accounts)
	generated := r.generator.Generate(ctx, set, result, profile)

	out := &Outcome{UserID: userID, Persona: result, PersonaChanged: changed}
	enrichment := false
	for _, cand := range generated.Candidates {
		verdict := r.guards.Run(ctx, userID, cand, models.Disclaimer)
		recordGuardrailFailures(verdict.Results)

		if verdict.Verdict == guardrails.VerdictDiscard {
			out.Discarded++
			r.logger.Info().
				Str("user_id", userID).
				Str("catalog_id", cand.Item.ID).
				Msg("candidate discarded by guardrails")
			continue
		}
		if cand.EnrichmentUsed {
			enrichment = true
		}

		rec, err := r.persist(ctx, userID, cand, snapshot, result, verdict, r.clock().Sub(started))
		if err != nil {
			metrics.PipelineRuns.WithLabelValues(metrics.OutcomeError).Inc()
			return nil, err
		}
		out.Persisted = append(out.Persisted, rec)

		if r.publisher != nil && rec.Status == models.StatusPending {
			if err := r.publisher.RecommendationCreated(ctx, rec); err != nil {
				r.logger.Warn().Err(err).
					Str("recommendation_id", rec.ID).
					Msg("failed to publish recommendation event")
			}
		}
	}

	out.Duration = r.clock().Sub(started)
	metrics.PipelineRuns.WithLabelValues(metrics.OutcomeCompleted).Inc()
	metrics.GenerationDuration.Observe(out.Duration.Seconds())
	if r.generationBudget > 0 && out.Duration > r.generationBudget {
		r.logger.Warn().
			Str("user_id", userID).
			Dur("duration", out.Duration).
			Dur("budget", r.generationBudget).
			Msg("generation exceeded soft budget")
	}
	r.logger.Info().
		Str("user_id", userID).
		Str("persona", result.Persona.Name()).
		Bool("persona_changed", changed).
		Int("persisted", len(out.Persisted)).
		Int("discarded", out.Discarded).
		Bool("enrichment_used", enrichment).
		Dur("duration", out.Duration).
		Msg("pipeline run completed")
	return out, nil
}

func (r *Runner) loadInputs(ctx context.Context, userID string) (signals.Inputs, error) {
	accounts, err := r.store.GetAccounts(ctx, userID)
	if err != nil {
		return signals.Inputs{}, fmt.Errorf("loading accounts for user %s: %w", userID, err)
	}
	if len(accounts) == 0 {
		return signals.Inputs{}, fmt.Errorf("user %s: %w", userID, ErrNoAccounts)
	}
	txns, err := r.store.GetTransactions(ctx, userID)
	if err != nil {
		return signals.Inputs{}, fmt.Errorf("loading transactions for user %s: %w", userID, err)
	}
	liabilities, err := r.store.GetLiabilities(ctx, userID)
	if err != nil {
		return signals.Inputs{}, fmt.Errorf("loading liabilities for user %s: %w", userID, err)
	}
	return signals.Inputs{
		UserID:       userID,
		Accounts:     accounts,
		Transactions: txns,
		Liabilities:  liabilities,
	}, nil
}

// swapPersona replaces the active assignment when the classification
// changed. The store archives the previous assignment to history in the
// same transaction.
func (r *Runner) swapPersona(ctx context.Context, userID string, result persona.Result, snapshot models.SignalSnapshot, asOf time.Time) (bool, error) {
	current, err := r.store.GetActivePersona(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("loading active persona for user %s: %w", userID, err)
	}
	if current != nil && current.Persona == result.Persona {
		return false, nil
	}
	_, err = r.store.ReplaceActivePersona(ctx, models.PersonaAssignment{
		UserID:        userID,
		Persona:       result.Persona,
		PersonaName:   result.Persona.Name(),
		Rationale:     result.Rationale,
		ConditionsMet: result.ConditionsMet,
		PriorityRank:  result.PriorityRank,
		Signals:       snapshot,
		AssignedAt:    asOf,
	})
	if err != nil {
		return false, fmt.Errorf("replacing persona for user %s: %w", userID, err)
	}
	return true, nil
}

// persist writes the recommendation and its trace in one transaction.
// Guardrail-rejected candidates are stored too, flagged rejected, so the
// audit record survives.
func (r *Runner) persist(
	ctx context.Context,
	userID string,
	cand recommend.Candidate,
	snapshot models.SignalSnapshot,
	result persona.Result,
	verdict guardrails.Outcome,
	elapsed time.Duration,
) (models.Recommendation, error) {
	status := models.StatusPending
	if verdict.Verdict == guardrails.VerdictReject {
		status = models.StatusRejected
	}

	recID := uuid.NewString()
	tr := r.recorder.Assemble(userID, recID, snapshot, result, verdict.Results, elapsed, cand.EnrichmentUsed)

	rec := models.Recommendation{
		ID:         recID,
		UserID:     userID,
		Type:       cand.Item.Type,
		CatalogID:  cand.Item.ID,
		Title:      cand.Title,
		Body:       cand.Body,
		Rationale:  cand.Rationale,
		Disclaimer: models.Disclaimer,
		Status:     status,
		TraceID:    tr.ID,
		CreatedAt:  tr.CreatedAt,
	}
	if err := r.store.CreateRecommendationWithTrace(ctx, rec, tr); err != nil {
		return models.Recommendation{}, fmt.Errorf("persisting recommendation %s: %w", recID, err)
	}
	metrics.RecommendationsPersisted.WithLabelValues(string(status)).Inc()
	return rec, nil
}

func recordGuardrailFailures(results []models.GuardrailResult) {
	for _, res := range results {
		if !res.Passed {
			metrics.GuardrailFailures.WithLabelValues(res.Check).Inc()
		}
	}
}
