package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

// GetActivePersona retrieves the current assignment for a user. Returns nil
// when the user has never been classified.
func (db *DB) GetActivePersona(ctx context.Context, userID string) (*models.PersonaAssignment, error) {
	query := `
		SELECT id, user_id, persona, persona_name, rationale, conditions_met,
		       priority_rank, signals, assigned_at
		FROM persona_assignments
		WHERE user_id = $1
	`

	var a models.PersonaAssignment
	var signalsJSON []byte
	err := db.conn.QueryRowContext(ctx, query, userID).Scan(
		&a.ID, &a.UserID, &a.Persona, &a.PersonaName, &a.Rationale,
		pq.Array(&a.ConditionsMet), &a.PriorityRank, &signalsJSON, &a.AssignedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active persona for user %s: %w", userID, err)
	}
	if err := json.Unmarshal(signalsJSON, &a.Signals); err != nil {
		return nil, fmt.Errorf("failed to decode signal snapshot for user %s: %w", userID, err)
	}
	return &a, nil
}

// ReplaceActivePersona swaps in a new assignment. The previous one, if any,
// is archived to persona_history in the same transaction so the audit
// ledger never loses an entry.
func (db *DB) ReplaceActivePersona(ctx context.Context, a models.PersonaAssignment) (*models.PersonaAssignment, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin persona swap: %w", err)
	}
	defer tx.Rollback()

	archive := `
		INSERT INTO persona_history (user_id, persona, rationale, assigned_at, archived_at)
		SELECT user_id, persona, rationale, assigned_at, $2
		FROM persona_assignments
		WHERE user_id = $1
	`
	if _, err := tx.ExecContext(ctx, archive, a.UserID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to archive persona for user %s: %w", a.UserID, err)
	}

	signalsJSON, err := json.Marshal(a.Signals)
	if err != nil {
		return nil, fmt.Errorf("failed to encode signal snapshot: %w", err)
	}

	upsert := `
		INSERT INTO persona_assignments (
			user_id, persona, persona_name, rationale, conditions_met,
			priority_rank, signals, assigned_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id)
		DO UPDATE SET
			persona = EXCLUDED.persona,
			persona_name = EXCLUDED.persona_name,
			rationale = EXCLUDED.rationale,
			conditions_met = EXCLUDED.conditions_met,
			priority_rank = EXCLUDED.priority_rank,
			signals = EXCLUDED.signals,
			assigned_at = EXCLUDED.assigned_at
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, upsert,
		a.UserID, a.Persona, a.PersonaName, a.Rationale,
		pq.Array(a.ConditionsMet), a.PriorityRank, signalsJSON, a.AssignedAt,
	).Scan(&a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert persona for user %s: %w", a.UserID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit persona swap: %w", err)
	}
	return &a, nil
}

// GetPersonaHistory retrieves archived assignments, newest first
func (db *DB) GetPersonaHistory(ctx context.Context, userID string) ([]models.PersonaHistoryEntry, error) {
	query := `
		SELECT id, user_id, persona, rationale, assigned_at, archived_at
		FROM persona_history
		WHERE user_id = $1
		ORDER BY archived_at DESC
	`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query persona history for user %s: %w", userID, err)
	}
	defer rows.Close()

	var entries []models.PersonaHistoryEntry
	for rows.Next() {
		var e models.PersonaHistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Persona, &e.Rationale, &e.AssignedAt, &e.ArchivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan persona history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListActivePersonas retrieves every current assignment, keyed by user
func (db *DB) ListActivePersonas(ctx context.Context) (map[string]*models.PersonaAssignment, error) {
	query := `
		SELECT id, user_id, persona, persona_name, rationale, conditions_met,
		       priority_rank, signals, assigned_at
		FROM persona_assignments
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active personas: %w", err)
	}
	defer rows.Close()

	assignments := make(map[string]*models.PersonaAssignment)
	for rows.Next() {
		var a models.PersonaAssignment
		var signalsJSON []byte
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Persona, &a.PersonaName, &a.Rationale,
			pq.Array(&a.ConditionsMet), &a.PriorityRank, &signalsJSON, &a.AssignedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan persona assignment: %w", err)
		}
		if err := json.Unmarshal(signalsJSON, &a.Signals); err != nil {
			return nil, fmt.Errorf("failed to decode signal snapshot for user %s: %w", a.UserID, err)
		}
		assignments[a.UserID] = &a
	}
	return assignments, rows.Err()
}
