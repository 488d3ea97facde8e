package signals

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

const (
	utilizationHighPct     = 30
	utilizationCriticalPct = 50
	utilizationSeverePct   = 80

	// minimum-payment-only detection
	minPaymentTolerance = 0.10
	paymentsConsidered  = 3
	paymentsNearMinimum = 2
)

// DetectCredit computes per-card utilization tiers and payment-behavior
// flags. Interest charges and overdue status come straight from liability
// records.
func DetectCredit(in Inputs, w models.Window) *models.SignalReport {
	liabByAccount := map[string]models.Liability{}
	for _, l := range in.Liabilities {
		liabByAccount[l.AccountID] = l
	}

	var cards []models.CardUtilization
	maxUtil := 0.0
	for _, a := range in.Accounts {
		if !a.IsCreditCard() || a.CreditLimit == nil || !a.CreditLimit.IsPositive() {
			continue
		}
		util, _ := a.Balance.Div(*a.CreditLimit).Mul(decimal.NewFromInt(100)).Float64()
		cards = append(cards, models.CardUtilization{
			AccountID:      a.ID,
			Balance:        a.Balance.Round(2),
			CreditLimit:    a.CreditLimit.Round(2),
			UtilizationPct: util,
			Tier:           utilizationTier(util),
		})
		if util > maxUtil {
			maxUtil = util
		}
	}

	if len(cards) == 0 {
		return models.InsufficientReport(in.UserID, models.DomainCredit, w,
			"no credit card accounts with a credit limit")
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].AccountID < cards[j].AccountID })

	interest := decimal.Zero
	overdue := false
	minPayOnly := false
	for _, c := range cards {
		liab, ok := liabByAccount[c.AccountID]
		if !ok {
			continue
		}
		interest = interest.Add(liab.LastInterestCharge)
		if liab.IsOverdue {
			overdue = true
		}
		if minimumPaymentOnly(in.Transactions, c.AccountID, liab.MinimumPayment) {
			minPayOnly = true
		}
	}

	return &models.SignalReport{
		UserID: in.UserID,
		Domain: models.DomainCredit,
		Window: w,
		Credit: &models.CreditSignals{
			Cards:              cards,
			MaxUtilizationPct:  maxUtil,
			MinimumPaymentOnly: minPayOnly,
			InterestCharges:    interest.Round(2),
			HasOverdue:         overdue,
		},
	}
}

func utilizationTier(pct float64) string {
	switch {
	case pct >= utilizationSeverePct:
		return models.UtilizationTierSevere
	case pct >= utilizationCriticalPct:
		return models.UtilizationTierCritical
	case pct >= utilizationHighPct:
		return models.UtilizationTierHigh
	}
	return models.UtilizationTierNone
}

// minimumPaymentOnly flags a card when at least 2 of the last 3 payments
// land within ±10% of the statement minimum.
func minimumPaymentOnly(txns []models.Transaction, accountID string, minPayment decimal.Decimal) bool {
	if !minPayment.IsPositive() {
		return false
	}

	var payments []models.Transaction
	for _, t := range txns {
		// inflows on a credit card account are payments toward the balance
		if t.AccountID == accountID && !t.Pending && t.Amount.IsPositive() {
			payments = append(payments, t)
		}
	}
	sortTxns(payments)
	if len(payments) > paymentsConsidered {
		payments = payments[len(payments)-paymentsConsidered:]
	}
	if len(payments) < paymentsNearMinimum {
		return false
	}

	tol := minPayment.Mul(decimal.NewFromFloat(minPaymentTolerance))
	low := minPayment.Sub(tol)
	high := minPayment.Add(tol)
	near := 0
	for _, p := range payments {
		amt := p.Amount
		if amt.GreaterThanOrEqual(low) && amt.LessThanOrEqual(high) {
			near++
		}
	}
	return near >= paymentsNearMinimum
}
