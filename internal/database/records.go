package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

// GetAccounts retrieves all accounts for a user
func (db *DB) GetAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	query := `
		SELECT id, user_id, name, type, subtype, balance, credit_limit,
		       currency, holder_type, created_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts for user %s: %w", userID, err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Name, &a.Type, &a.Subtype, &a.Balance,
			&a.CreditLimit, &a.Currency, &a.HolderType, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetTransactions retrieves all transactions for a user, oldest first
func (db *DB) GetTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	query := `
		SELECT id, account_id, user_id, date, amount, merchant_name,
		       merchant_entity_id, payment_channel, category_primary,
		       category_detailed, pending
		FROM transactions
		WHERE user_id = $1
		ORDER BY date, id
	`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(
			&t.ID, &t.AccountID, &t.UserID, &t.Date, &t.Amount, &t.MerchantName,
			&t.MerchantEntityID, &t.PaymentChannel, &t.CategoryPrimary,
			&t.CategoryDetailed, &t.Pending,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// GetLiabilities retrieves credit liabilities for a user
func (db *DB) GetLiabilities(ctx context.Context, userID string) ([]models.Liability, error) {
	query := `
		SELECT account_id, user_id, apr, minimum_payment, last_payment_amount,
		       last_payment_date, last_interest_charge, is_overdue,
		       next_due_date, updated_at
		FROM liabilities
		WHERE user_id = $1
		ORDER BY account_id
	`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query liabilities for user %s: %w", userID, err)
	}
	defer rows.Close()

	var liabilities []models.Liability
	for rows.Next() {
		var l models.Liability
		if err := rows.Scan(
			&l.AccountID, &l.UserID, &l.APR, &l.MinimumPayment,
			&l.LastPaymentAmount, &l.LastPaymentDate, &l.LastInterestCharge,
			&l.IsOverdue, &l.NextDueDate, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan liability: %w", err)
		}
		liabilities = append(liabilities, l)
	}
	return liabilities, rows.Err()
}

// GetConsent retrieves the current consent record for a user. Returns nil
// when the user has never set consent.
func (db *DB) GetConsent(ctx context.Context, userID string) (*models.ConsentRecord, error) {
	query := `
		SELECT user_id, granted, disclaimer_acknowledged, updated_at
		FROM consents
		WHERE user_id = $1
	`

	var c models.ConsentRecord
	err := db.conn.QueryRowContext(ctx, query, userID).Scan(
		&c.UserID, &c.Granted, &c.DisclaimerAcknowledged, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get consent for user %s: %w", userID, err)
	}
	return &c, nil
}

// SetConsent upserts the consent record. Granting requires the disclaimer
// acknowledgement flag; revoking clears it.
func (db *DB) SetConsent(ctx context.Context, userID string, granted, disclaimerAcknowledged bool) (*models.ConsentRecord, error) {
	query := `
		INSERT INTO consents (user_id, granted, disclaimer_acknowledged, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET
			granted = EXCLUDED.granted,
			disclaimer_acknowledged = EXCLUDED.disclaimer_acknowledged,
			updated_at = EXCLUDED.updated_at
		RETURNING user_id, granted, disclaimer_acknowledged, updated_at
	`

	var c models.ConsentRecord
	err := db.conn.QueryRowContext(ctx, query, userID, granted, disclaimerAcknowledged, time.Now().UTC()).Scan(
		&c.UserID, &c.Granted, &c.DisclaimerAcknowledged, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set consent for user %s: %w", userID, err)
	}
	return &c, nil
}

// ListUserIDs returns every user with at least one account
func (db *DB) ListUserIDs(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT user_id FROM accounts ORDER BY user_id`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
