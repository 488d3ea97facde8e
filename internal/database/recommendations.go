package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned for review-status changes other than
// pending to approved or pending to rejected.
var ErrInvalidTransition = errors.New("invalid status transition")

// CreateRecommendationWithTrace stores a recommendation and its decision
// trace in one transaction. Neither row ever exists without the other.
func (db *DB) CreateRecommendationWithTrace(ctx context.Context, rec models.Recommendation, tr models.DecisionTrace) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin recommendation insert: %w", err)
	}
	defer tx.Rollback()

	signalsJSON, err := json.Marshal(tr.Signals)
	if err != nil {
		return fmt.Errorf("failed to encode trace signals: %w", err)
	}
	personaJSON, err := json.Marshal(tr.Persona)
	if err != nil {
		return fmt.Errorf("failed to encode trace persona: %w", err)
	}
	guardrailsJSON, err := json.Marshal(tr.Guardrails)
	if err != nil {
		return fmt.Errorf("failed to encode trace guardrails: %w", err)
	}

	traceQuery := `
		INSERT INTO decision_traces (
			id, recommendation_id, user_id, signals, persona, guardrails,
			generation_ms, enrichment_used, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := tx.ExecContext(ctx, traceQuery,
		tr.ID, tr.RecommendationID, tr.UserID, signalsJSON, personaJSON,
		guardrailsJSON, tr.GenerationMs, tr.EnrichmentUsed, tr.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert decision trace %s: %w", tr.ID, err)
	}

	recQuery := `
		INSERT INTO recommendations (
			id, user_id, type, catalog_id, title, body, rationale,
			disclaimer, status, trace_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := tx.ExecContext(ctx, recQuery,
		rec.ID, rec.UserID, rec.Type, rec.CatalogID, rec.Title, rec.Body,
		rec.Rationale, rec.Disclaimer, rec.Status, rec.TraceID, rec.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert recommendation %s: %w", rec.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recommendation %s: %w", rec.ID, err)
	}
	return nil
}

const recommendationColumns = `
	id, user_id, type, catalog_id, title, body, rationale,
	disclaimer, status, trace_id, created_at
`

func scanRecommendation(row interface{ Scan(...any) error }) (models.Recommendation, error) {
	var r models.Recommendation
	err := row.Scan(
		&r.ID, &r.UserID, &r.Type, &r.CatalogID, &r.Title, &r.Body,
		&r.Rationale, &r.Disclaimer, &r.Status, &r.TraceID, &r.CreatedAt,
	)
	return r, err
}

// GetRecommendation retrieves one recommendation by id
func (db *DB) GetRecommendation(ctx context.Context, id string) (*models.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations WHERE id = $1`

	r, err := scanRecommendation(db.conn.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation %s: %w", id, err)
	}
	return &r, nil
}

// ListRecommendations retrieves every recommendation for a user, newest
// first, regardless of status. Review and audit surface.
func (db *DB) ListRecommendations(ctx context.Context, userID string) ([]models.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + `
		FROM recommendations
		WHERE user_id = $1
		ORDER BY created_at DESC`

	return db.queryRecommendations(ctx, query, userID)
}

// ListVisibleRecommendations retrieves the user-facing view: approved items
// only, and only while the user's consent is currently granted. Pending and
// rejected items, and anything for a consent-revoked user, never surface.
func (db *DB) ListVisibleRecommendations(ctx context.Context, userID string) ([]models.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + `
		FROM recommendations r
		WHERE r.user_id = $1
		  AND r.status = 'approved'
		  AND EXISTS (
			SELECT 1 FROM consents c
			WHERE c.user_id = r.user_id AND c.granted
		  )
		ORDER BY r.created_at DESC`

	return db.queryRecommendations(ctx, query, userID)
}

// ListAllRecommendations retrieves the full corpus for evaluation
func (db *DB) ListAllRecommendations(ctx context.Context) ([]models.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations ORDER BY created_at`
	return db.queryRecommendations(ctx, query)
}

func (db *DB) queryRecommendations(ctx context.Context, query string, args ...any) ([]models.Recommendation, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []models.Recommendation
	for rows.Next() {
		r, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// UpdateRecommendationStatus applies a review decision. Only pending
// recommendations can move, and only to approved or rejected.
func (db *DB) UpdateRecommendationStatus(ctx context.Context, id string, status models.RecommendationStatus) (*models.Recommendation, error) {
	if status != models.StatusApproved && status != models.StatusRejected {
		return nil, fmt.Errorf("status %q: %w", status, ErrInvalidTransition)
	}

	query := `
		UPDATE recommendations
		SET status = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + recommendationColumns

	r, err := scanRecommendation(db.conn.QueryRowContext(ctx, query, id, status))
	if err == sql.ErrNoRows {
		// either the row is missing or it already left pending
		if _, getErr := db.GetRecommendation(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("recommendation %s is not pending: %w", id, ErrInvalidTransition)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update recommendation %s: %w", id, err)
	}
	return &r, nil
}

// GetTrace retrieves one decision trace by id
func (db *DB) GetTrace(ctx context.Context, id string) (*models.DecisionTrace, error) {
	query := `
		SELECT id, recommendation_id, user_id, signals, persona, guardrails,
		       generation_ms, enrichment_used, created_at
		FROM decision_traces
		WHERE id = $1
	`

	var t models.DecisionTrace
	var signalsJSON, personaJSON, guardrailsJSON []byte
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.RecommendationID, &t.UserID, &signalsJSON, &personaJSON,
		&guardrailsJSON, &t.GenerationMs, &t.EnrichmentUsed, &t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trace %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trace %s: %w", id, err)
	}
	if err := decodeTrace(&t, signalsJSON, personaJSON, guardrailsJSON); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTracesSince retrieves traces created after the cutoff, for evaluation
func (db *DB) ListTracesSince(ctx context.Context, since time.Time) ([]models.DecisionTrace, error) {
	query := `
		SELECT id, recommendation_id, user_id, signals, persona, guardrails,
		       generation_ms, enrichment_used, created_at
		FROM decision_traces
		WHERE created_at >= $1
		ORDER BY created_at
	`

	rows, err := db.conn.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query traces: %w", err)
	}
	defer rows.Close()

	var traces []models.DecisionTrace
	for rows.Next() {
		var t models.DecisionTrace
		var signalsJSON, personaJSON, guardrailsJSON []byte
		if err := rows.Scan(
			&t.ID, &t.RecommendationID, &t.UserID, &signalsJSON, &personaJSON,
			&guardrailsJSON, &t.GenerationMs, &t.EnrichmentUsed, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trace: %w", err)
		}
		if err := decodeTrace(&t, signalsJSON, personaJSON, guardrailsJSON); err != nil {
			return nil, err
		}
		traces = append(traces, t)
	}
	return traces, rows.Err()
}

func decodeTrace(t *models.DecisionTrace, signalsJSON, personaJSON, guardrailsJSON []byte) error {
	if err := json.Unmarshal(signalsJSON, &t.Signals); err != nil {
		return fmt.Errorf("failed to decode trace %s signals: %w", t.ID, err)
	}
	if err := json.Unmarshal(personaJSON, &t.Persona); err != nil {
		return fmt.Errorf("failed to decode trace %s persona: %w", t.ID, err)
	}
	if err := json.Unmarshal(guardrailsJSON, &t.Guardrails); err != nil {
		return fmt.Errorf("failed to decode trace %s guardrails: %w", t.ID, err)
	}
	return nil
}
