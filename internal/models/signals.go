package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignalDomain identifies one of the four behavioral signal detectors.
type SignalDomain string

const (
	DomainSubscriptions SignalDomain = "subscriptions"
	DomainSavings       SignalDomain = "savings"
	DomainCredit        SignalDomain = "credit"
	DomainIncome        SignalDomain = "income"
)

// Domains lists every signal domain in stable order.
var Domains = []SignalDomain{DomainSubscriptions, DomainSavings, DomainCredit, DomainIncome}

// Window is one of the two fixed lookback horizons signals are computed over.
type Window struct {
	Days  int       `json:"days"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

const (
	ShortWindowDays = 30
	LongWindowDays  = 180
)

// NewWindow builds a window ending at the given instant.
func NewWindow(end time.Time, days int) Window {
	return Window{Days: days, Start: end.AddDate(0, 0, -days), End: end}
}

// Contains reports whether ts falls inside the window (start exclusive,
// end inclusive).
func (w Window) Contains(ts time.Time) bool {
	return ts.After(w.Start) && !ts.After(w.End)
}

// SignalReport is the computed metric bundle for one domain over one window.
// Exactly one of the domain payloads is non-nil unless Insufficient is set.
type SignalReport struct {
	UserID        string               `json:"user_id"`
	Domain        SignalDomain         `json:"domain"`
	Window        Window               `json:"window"`
	Insufficient  bool                 `json:"insufficient,omitempty"`
	Reason        string               `json:"reason,omitempty"`
	Subscriptions *SubscriptionSignals `json:"subscriptions,omitempty"`
	Savings       *SavingsSignals      `json:"savings,omitempty"`
	Credit        *CreditSignals       `json:"credit,omitempty"`
	Income        *IncomeSignals       `json:"income,omitempty"`
	ComputedAt    time.Time            `json:"computed_at"`
}

// InsufficientReport builds the explicit "not enough data" report for a
// domain. Detectors return this instead of failing.
func InsufficientReport(userID string, domain SignalDomain, w Window, reason string) *SignalReport {
	return &SignalReport{
		UserID:       userID,
		Domain:       domain,
		Window:       w,
		Insufficient: true,
		Reason:       reason,
	}
}

// RecurringMerchant is one merchant that qualified as a recurring charge.
type RecurringMerchant struct {
	Merchant       string          `json:"merchant"`
	Cadence        string          `json:"cadence"` // weekly, monthly
	TxnCount       int             `json:"txn_count"`
	AverageAmount  decimal.Decimal `json:"average_amount"`
	MonthlySpend   decimal.Decimal `json:"monthly_spend"`
	MedianGapDays  float64         `json:"median_gap_days"`
	TransactionIDs []string        `json:"transaction_ids"`
}

// SubscriptionSignals summarizes recurring-merchant behavior.
type SubscriptionSignals struct {
	Recurring         []RecurringMerchant `json:"recurring"`
	RecurringCount    int                 `json:"recurring_count"`
	MonthlySpend      decimal.Decimal     `json:"monthly_spend"`
	TotalOutflow      decimal.Decimal     `json:"total_outflow"`
	SharePctOfOutflow float64             `json:"share_pct_of_outflow"`
}

// SavingsSignals summarizes savings-account activity.
type SavingsSignals struct {
	AccountIDs          []string        `json:"account_ids"`
	Balance             decimal.Decimal `json:"balance"`
	Deposits            decimal.Decimal `json:"deposits"`
	Withdrawals         decimal.Decimal `json:"withdrawals"`
	NetInflow           decimal.Decimal `json:"net_inflow"`
	MonthlyNetInflow    decimal.Decimal `json:"monthly_net_inflow"`
	GrowthRatePct       float64         `json:"growth_rate_pct"`
	AvgMonthlyExpense   decimal.Decimal `json:"avg_monthly_expense"`
	EmergencyFundMonths float64         `json:"emergency_fund_months"`
}

// Utilization tiers, thresholds at 30/50/80 percent.
const (
	UtilizationTierNone     = "none"
	UtilizationTierHigh     = "high"
	UtilizationTierCritical = "critical"
	UtilizationTierSevere   = "severe"
)

// CardUtilization is the utilization picture for one credit card.
type CardUtilization struct {
	AccountID      string          `json:"account_id"`
	Balance        decimal.Decimal `json:"balance"`
	CreditLimit    decimal.Decimal `json:"credit_limit"`
	UtilizationPct float64         `json:"utilization_pct"`
	Tier           string          `json:"tier"`
}

// CreditSignals summarizes revolving-credit behavior.
type CreditSignals struct {
	Cards              []CardUtilization `json:"cards"`
	MaxUtilizationPct  float64           `json:"max_utilization_pct"`
	MinimumPaymentOnly bool              `json:"minimum_payment_only"`
	InterestCharges    decimal.Decimal   `json:"interest_charges"`
	HasOverdue         bool              `json:"has_overdue"`
}

// Income frequency and variability classifications.
const (
	FrequencyWeekly    = "weekly"
	FrequencyBiweekly  = "biweekly"
	FrequencyMonthly   = "monthly"
	FrequencyIrregular = "irregular"
	FrequencyVariable  = "variable"

	VariabilityLow    = "low"
	VariabilityMedium = "medium"
	VariabilityHigh   = "high"

	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// IncomeSignals summarizes payroll-deposit stability.
type IncomeSignals struct {
	DepositCount       int             `json:"deposit_count"`
	AverageAmount      decimal.Decimal `json:"average_amount"`
	MedianGapDays      float64         `json:"median_gap_days"`
	MeanGapDays        float64         `json:"mean_gap_days"`
	Frequency          string          `json:"frequency"`
	VariabilityPct     float64         `json:"variability_pct"` // coefficient of variation
	Variability        string          `json:"variability"`
	BufferMonths       float64         `json:"buffer_months"`
	EstimatedMonthly   decimal.Decimal `json:"estimated_monthly_income"`
	VariableIncome     bool            `json:"variable_income"`
	Confidence         string          `json:"confidence"`
	Indicators         []string        `json:"indicators,omitempty"`
	DepositAccountIDs  []string        `json:"deposit_account_ids,omitempty"`
	DepositTxnIDs      []string        `json:"deposit_txn_ids,omitempty"`
}

// WindowSignals bundles the four domain reports for a single window.
type WindowSignals struct {
	Window        Window        `json:"window"`
	Subscriptions *SignalReport `json:"subscriptions"`
	Savings       *SignalReport `json:"savings"`
	Credit        *SignalReport `json:"credit"`
	Income        *SignalReport `json:"income"`
}

// Report returns the report for a domain.
func (w WindowSignals) Report(d SignalDomain) *SignalReport {
	switch d {
	case DomainSubscriptions:
		return w.Subscriptions
	case DomainSavings:
		return w.Savings
	case DomainCredit:
		return w.Credit
	case DomainIncome:
		return w.Income
	}
	return nil
}

// SignalSet is the full signal picture for one user: all four domains over
// both the short (30 day) and long (180 day) windows.
type SignalSet struct {
	UserID string        `json:"user_id"`
	Short  WindowSignals `json:"short"`
	Long   WindowSignals `json:"long"`
}
