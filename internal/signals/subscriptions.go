package signals

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

const (
	recurringLookbackDays = 90
	minRecurringTxns      = 3
	weeklyGapMaxDays      = 10
	monthlyGapMaxDays     = 35
)

// weeksPerMonth converts a weekly charge to its monthly equivalent.
var weeksPerMonth = decimal.NewFromFloat(4.33)

// DetectSubscriptions finds recurring merchants and their share of total
// outflow. Recurrence is judged over a trailing 90-day lookback from the
// window end; spend share is measured against outflow inside the window
// itself.
func DetectSubscriptions(in Inputs, w models.Window) *models.SignalReport {
	lookback := models.NewWindow(w.End, recurringLookbackDays)

	byMerchant := map[string][]models.Transaction{}
	for _, t := range settledInWindow(in.Transactions, lookback) {
		if !t.IsOutflow() || t.MerchantKey() == "" {
			continue
		}
		key := t.MerchantKey()
		byMerchant[key] = append(byMerchant[key], t)
	}

	if len(byMerchant) == 0 {
		return models.InsufficientReport(in.UserID, models.DomainSubscriptions, w,
			"no settled outflow transactions in lookback")
	}

	var recurring []models.RecurringMerchant
	for merchant, txns := range byMerchant {
		if len(txns) < minRecurringTxns {
			continue
		}

		// txns arrive date-sorted from settledInWindow
		gapVals := make([]float64, 0, len(txns)-1)
		for i := 1; i < len(txns); i++ {
			gapVals = append(gapVals, txns[i].Date.Sub(txns[i-1].Date).Hours()/24)
		}
		gap := median(gapVals)

		var cadence string
		switch {
		case gap <= weeklyGapMaxDays:
			cadence = "weekly"
		case gap <= monthlyGapMaxDays:
			cadence = "monthly"
		default:
			// cadence too loose to call recurring
			continue
		}

		total := decimal.Zero
		ids := make([]string, 0, len(txns))
		for _, t := range txns {
			total = total.Add(t.Amount.Abs())
			ids = append(ids, t.ID)
		}
		avg := total.Div(decimal.NewFromInt(int64(len(txns))))

		monthly := avg
		if cadence == "weekly" {
			monthly = avg.Mul(weeksPerMonth)
		}

		name := merchant
		if len(txns) > 0 && txns[0].MerchantName != "" {
			name = txns[0].MerchantName
		}
		recurring = append(recurring, models.RecurringMerchant{
			Merchant:       name,
			Cadence:        cadence,
			TxnCount:       len(txns),
			AverageAmount:  avg.Round(2),
			MonthlySpend:   monthly.Round(2),
			MedianGapDays:  gap,
			TransactionIDs: ids,
		})
	}

	sort.Slice(recurring, func(i, j int) bool {
		if !recurring[i].MonthlySpend.Equal(recurring[j].MonthlySpend) {
			return recurring[i].MonthlySpend.GreaterThan(recurring[j].MonthlySpend)
		}
		return recurring[i].Merchant < recurring[j].Merchant
	})

	monthlySpend := decimal.Zero
	for _, r := range recurring {
		monthlySpend = monthlySpend.Add(r.MonthlySpend)
	}

	totalOutflow := decimal.Zero
	for _, t := range settledInWindow(in.Transactions, w) {
		if t.IsOutflow() {
			totalOutflow = totalOutflow.Add(t.Amount.Abs())
		}
	}

	share := 0.0
	if totalOutflow.IsPositive() {
		share, _ = monthlySpend.Div(totalOutflow).Mul(decimal.NewFromInt(100)).Float64()
	}

	return &models.SignalReport{
		UserID: in.UserID,
		Domain: models.DomainSubscriptions,
		Window: w,
		Subscriptions: &models.SubscriptionSignals{
			Recurring:         recurring,
			RecurringCount:    len(recurring),
			MonthlySpend:      monthlySpend.Round(2),
			TotalOutflow:      totalOutflow.Round(2),
			SharePctOfOutflow: share,
		},
	}
}
