package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/andychuong/spendsense-sub000/internal/cache"
	"github.com/andychuong/spendsense-sub000/internal/database"
	"github.com/andychuong/spendsense-sub000/internal/evaluate"
	"github.com/andychuong/spendsense-sub000/internal/models"
	"github.com/andychuong/spendsense-sub000/internal/pipeline"
	"github.com/andychuong/spendsense-sub000/internal/signals"
	"github.com/andychuong/spendsense-sub000/internal/trace"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db       *database.DB
	detector *signals.Detector
	runner   *pipeline.Runner
	batch    *pipeline.Batch
	cache    *cache.Client
	logger   zerolog.Logger
}

// NewHandler creates a new Handler. cache may be nil.
func NewHandler(db *database.DB, detector *signals.Detector, runner *pipeline.Runner, batch *pipeline.Batch, cache *cache.Client, logger zerolog.Logger) *Handler {
	return &Handler{
		db:       db,
		detector: detector,
		runner:   runner,
		batch:    batch,
		cache:    cache,
		logger:   logger,
	}
}

// GetSignals handles GET /users/{userID}/signals
// Optional query params narrow the response: ?window=30|180 selects one
// window, ?domain=subscriptions|savings|credit|income one report. The
// window defaults to 30 when only a domain is given.
func (h *Handler) GetSignals(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	ctx := r.Context()

	if !h.requireConsent(w, ctx, userID) {
		return
	}

	accounts, err := h.db.GetAccounts(ctx, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(accounts) == 0 {
		http.Error(w, "no accounts on file", http.StatusNotFound)
		return
	}
	txns, err := h.db.GetTransactions(ctx, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	liabilities, err := h.db.GetLiabilities(ctx, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	set := h.detector.DetectAll(ctx, signals.Inputs{
		UserID:       userID,
		Accounts:     accounts,
		Transactions: txns,
		Liabilities:  liabilities,
	}, time.Now().UTC())

	query := r.URL.Query()
	windowed := set.Short
	switch query.Get("window") {
	case "", "30":
	case "180":
		windowed = set.Long
	default:
		http.Error(w, "window must be 30 or 180", http.StatusBadRequest)
		return
	}
	if domain := query.Get("domain"); domain != "" {
		rep := windowed.Report(models.SignalDomain(domain))
		if rep == nil {
			http.Error(w, "unknown signal domain", http.StatusBadRequest)
			return
		}
		respondJSON(w, http.StatusOK, rep)
		return
	}
	if query.Get("window") != "" {
		respondJSON(w, http.StatusOK, windowed)
		return
	}
	respondJSON(w, http.StatusOK, set)
}

// RunPipeline handles POST /users/{userID}/run
func (h *Handler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	out, err := h.runner.Run(r.Context(), userID)
	if errors.Is(err, pipeline.ErrConsentDenied) {
		http.Error(w, "consent not granted", http.StatusForbidden)
		return
	}
	if errors.Is(err, pipeline.ErrNoAccounts) {
		http.Error(w, "no accounts on file", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":         out.UserID,
		"persona":         out.Persona.Persona,
		"persona_name":    out.Persona.Persona.Name(),
		"persona_changed": out.PersonaChanged,
		"persisted":       len(out.Persisted),
		"discarded":       out.Discarded,
		"duration_ms":     out.Duration.Milliseconds(),
	})
}

// RunAll handles POST /run: a batch decision run over every known user.
// Consent-denied users are skipped; per-user failures are reported but do
// not stop the batch.
func (h *Handler) RunAll(w http.ResponseWriter, r *http.Request) {
	userIDs, err := h.db.ListUserIDs(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	failures := 0
	if err := h.batch.Run(r.Context(), userIDs); err != nil {
		var batchErr *pipeline.BatchError
		if !errors.As(err, &batchErr) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		failures = len(batchErr.Errors)
		h.logger.Warn().Int("failures", failures).Msg("batch run finished with failures")
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"users":    len(userIDs),
		"failures": failures,
	})
}

// GetPersona handles GET /users/{userID}/persona
func (h *Handler) GetPersona(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	assignment, err := h.db.GetActivePersona(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if assignment == nil {
		http.Error(w, "user has no persona assignment", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, assignment)
}

// GetPersonaHistory handles GET /users/{userID}/persona/history
func (h *Handler) GetPersonaHistory(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	history, err := h.db.GetPersonaHistory(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []models.PersonaHistoryEntry{}
	}

	respondJSON(w, http.StatusOK, history)
}

// GetRecommendations handles GET /users/{userID}/recommendations.
// The default view is user-facing: approved items for consent-granted
// users only. ?view=review returns everything for the review surface.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	ctx := r.Context()

	var recs []models.Recommendation
	var err error
	if r.URL.Query().Get("view") == "review" {
		recs, err = h.db.ListRecommendations(ctx, userID)
	} else {
		recs, err = h.db.ListVisibleRecommendations(ctx, userID)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}

	respondJSON(w, http.StatusOK, recs)
}

// ReviewRecommendation handles POST /recommendations/{id}/approve and
// /recommendations/{id}/reject
func (h *Handler) ReviewRecommendation(status models.RecommendationStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		rec, err := h.db.UpdateRecommendationStatus(r.Context(), id, status)
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if errors.Is(err, database.ErrInvalidTransition) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		h.logger.Info().
			Str("recommendation_id", rec.ID).
			Str("status", string(rec.Status)).
			Msg("recommendation reviewed")
		respondJSON(w, http.StatusOK, rec)
	}
}

// GetTrace handles GET /traces/{id}. ?format=text returns the rendered
// operator view instead of JSON.
func (h *Handler) GetTrace(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	t, err := h.db.GetTrace(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(trace.Render(*t)))
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// SetConsent handles PUT /users/{userID}/consent
func (h *Handler) SetConsent(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	var req struct {
		Granted                bool `json:"granted"`
		DisclaimerAcknowledged bool `json:"disclaimer_acknowledged"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Granted && !req.DisclaimerAcknowledged {
		http.Error(w, "granting consent requires disclaimer acknowledgement", http.StatusBadRequest)
		return
	}
	// revoking clears the acknowledgement
	if !req.Granted {
		req.DisclaimerAcknowledged = false
	}

	consent, err := h.db.SetConsent(r.Context(), userID, req.Granted, req.DisclaimerAcknowledged)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.logger.Info().
		Str("user_id", userID).
		Bool("granted", consent.Granted).
		Msg("consent updated")
	respondJSON(w, http.StatusOK, consent)
}

// GetConsent handles GET /users/{userID}/consent
func (h *Handler) GetConsent(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	consent, err := h.db.GetConsent(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if consent == nil {
		http.Error(w, "no consent record", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, consent)
}

// GetEvaluation handles GET /evaluation. ?format=csv and ?format=narrative
// select alternate renderings of the same report.
func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userIDs, err := h.db.ListUserIDs(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	assignments, err := h.db.ListActivePersonas(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	recs, err := h.db.ListAllRecommendations(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	traces, err := h.db.ListTracesSince(ctx, time.Time{})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	report := evaluate.Compute(evaluate.Corpus{
		UserIDs:         userIDs,
		Assignments:     assignments,
		Recommendations: recs,
		Traces:          traces,
	})

	switch r.URL.Query().Get("format") {
	case "csv":
		csvOut, err := evaluate.RenderCSV(report)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(csvOut))
	case "narrative":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(evaluate.RenderNarrative(report)))
	default:
		respondJSON(w, http.StatusOK, report)
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  map[string]string{},
	}
	services := health["services"].(map[string]string)
	allHealthy := true

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			services["postgres"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services["postgres"] = "healthy"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services["redis"] = "healthy"
		}
	}

	status := http.StatusOK
	if !allHealthy {
		health["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, health)
}

// requireConsent writes a 403 and returns false when processing consent is
// not granted.
func (h *Handler) requireConsent(w http.ResponseWriter, ctx context.Context, userID string) bool {
	consent, err := h.db.GetConsent(ctx, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return false
	}
	if consent == nil || !consent.Granted {
		http.Error(w, "consent not granted", http.StatusForbidden)
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
