package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account subtypes recognized by the detectors.
const (
	SubtypeChecking    = "checking"
	SubtypeSavings     = "savings"
	SubtypeCreditCard  = "credit card"
	SubtypeMoneyMarket = "money market"
	SubtypeHSA         = "hsa"
)

// Account represents a normalized financial account supplied by the
// ingestion service. Immutable after ingestion except for balance refresh.
type Account struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Name        string           `json:"name"`
	Type        string           `json:"type"`    // depository, credit
	Subtype     string           `json:"subtype"` // checking, savings, credit card, money market, hsa
	Balance     decimal.Decimal  `json:"balance"`
	CreditLimit *decimal.Decimal `json:"credit_limit,omitempty"`
	Currency    string           `json:"currency"`
	HolderType  string           `json:"holder_type"` // individual, joint
	CreatedAt   time.Time        `json:"created_at"`
}

// IsSavingsLike reports whether the account counts toward savings signals.
func (a *Account) IsSavingsLike() bool {
	switch a.Subtype {
	case SubtypeSavings, SubtypeMoneyMarket, SubtypeHSA:
		return a.HolderType != "joint"
	}
	return false
}

// IsCreditCard reports whether the account is a revolving credit card.
func (a *Account) IsCreditCard() bool {
	return a.Subtype == SubtypeCreditCard
}

// Transaction is a single normalized transaction. Amounts are signed:
// negative means money out, positive means money in. Append-only per upload.
type Transaction struct {
	ID               string          `json:"id"`
	AccountID        string          `json:"account_id"`
	UserID           string          `json:"user_id"`
	Date             time.Time       `json:"date"`
	Amount           decimal.Decimal `json:"amount"`
	MerchantName     string          `json:"merchant_name"`
	MerchantEntityID string          `json:"merchant_entity_id,omitempty"`
	PaymentChannel   string          `json:"payment_channel"`
	CategoryPrimary  string          `json:"category_primary"`
	CategoryDetailed string          `json:"category_detailed"`
	Pending          bool            `json:"pending"`
}

// IsOutflow reports whether the transaction moved money out of the account.
func (t *Transaction) IsOutflow() bool {
	return t.Amount.IsNegative()
}

// MerchantKey returns the stable identity used to group transactions by
// merchant. Entity id wins when present; falls back to the display name.
func (t *Transaction) MerchantKey() string {
	if t.MerchantEntityID != "" {
		return t.MerchantEntityID
	}
	return t.MerchantName
}

// Liability carries credit-account terms refreshed on every upload.
type Liability struct {
	AccountID          string          `json:"account_id"`
	UserID             string          `json:"user_id"`
	APR                float64         `json:"apr"`
	MinimumPayment     decimal.Decimal `json:"minimum_payment"`
	LastPaymentAmount  decimal.Decimal `json:"last_payment_amount"`
	LastPaymentDate    *time.Time      `json:"last_payment_date,omitempty"`
	LastInterestCharge decimal.Decimal `json:"last_interest_charge"`
	IsOverdue          bool            `json:"is_overdue"`
	NextDueDate        *time.Time      `json:"next_due_date,omitempty"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ConsentRecord is the user's current data-processing consent state.
// DisclaimerAcknowledged is set when the regulatory disclaimer was shown
// and accepted at grant time.
type ConsentRecord struct {
	UserID                 string    `json:"user_id"`
	Granted                bool      `json:"granted"`
	DisclaimerAcknowledged bool      `json:"disclaimer_acknowledged"`
	UpdatedAt              time.Time `json:"updated_at"`
}
