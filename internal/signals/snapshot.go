package signals

import (
	"fmt"
	"time"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

// Snapshot converts a live signal set into its serializable form. All
// decimals, dates, and percentages are formatted here, once, at the
// persistence boundary.
func Snapshot(set models.SignalSet, capturedAt time.Time) models.SignalSnapshot {
	return models.SignalSnapshot{
		UserID:     set.UserID,
		CapturedAt: capturedAt.UTC(),
		Windows: []models.WindowSnapshot{
			windowSnapshot(set.Short),
			windowSnapshot(set.Long),
		},
	}
}

func windowSnapshot(ws models.WindowSignals) models.WindowSnapshot {
	out := models.WindowSnapshot{
		Days:  ws.Window.Days,
		Start: models.FormatDate(ws.Window.Start),
		End:   models.FormatDate(ws.Window.End),
	}
	for _, domain := range models.Domains {
		if rep := ws.Report(domain); rep != nil {
			out.Domains = append(out.Domains, domainSnapshot(rep))
		}
	}
	return out
}

func domainSnapshot(rep *models.SignalReport) models.DomainSnapshot {
	snap := models.DomainSnapshot{Domain: string(rep.Domain)}
	if rep.Insufficient {
		snap.Insufficient = true
		snap.Reason = rep.Reason
		return snap
	}

	add := func(name, value string) {
		snap.Metrics = append(snap.Metrics, models.MetricSnapshot{Name: name, Value: value})
	}

	switch {
	case rep.Subscriptions != nil:
		s := rep.Subscriptions
		add("recurring_count", fmt.Sprintf("%d", s.RecurringCount))
		add("monthly_spend", models.FormatAmount(s.MonthlySpend))
		add("total_outflow", models.FormatAmount(s.TotalOutflow))
		add("share_pct", models.FormatPct(s.SharePctOfOutflow))
		for _, r := range s.Recurring {
			snap.Evidence = append(snap.Evidence, r.TransactionIDs...)
		}
		if s.RecurringCount >= 3 {
			snap.Indicators = append(snap.Indicators, "multiple_recurring_merchants")
		}
		if s.SharePctOfOutflow >= 10 {
			snap.Indicators = append(snap.Indicators, "high_subscription_share")
		}

	case rep.Savings != nil:
		s := rep.Savings
		add("balance", models.FormatAmount(s.Balance))
		add("net_inflow", models.FormatAmount(s.NetInflow))
		add("monthly_net_inflow", models.FormatAmount(s.MonthlyNetInflow))
		add("growth_rate_pct", models.FormatPct(s.GrowthRatePct))
		add("emergency_fund_months", models.FormatPct(s.EmergencyFundMonths))
		snap.Evidence = append(snap.Evidence, s.AccountIDs...)
		if s.GrowthRatePct >= 2 {
			snap.Indicators = append(snap.Indicators, "savings_growth")
		}
		if s.NetInflow.IsPositive() {
			snap.Indicators = append(snap.Indicators, "positive_net_inflow")
		}
		if s.EmergencyFundMonths < 3 {
			snap.Indicators = append(snap.Indicators, "thin_emergency_fund")
		}

	case rep.Credit != nil:
		c := rep.Credit
		add("max_utilization_pct", models.FormatPct(c.MaxUtilizationPct))
		add("interest_charges", models.FormatAmount(c.InterestCharges))
		add("card_count", fmt.Sprintf("%d", len(c.Cards)))
		for _, card := range c.Cards {
			snap.Evidence = append(snap.Evidence, card.AccountID)
			add("utilization_pct:"+card.AccountID, models.FormatPct(card.UtilizationPct))
			add("balance:"+card.AccountID, models.FormatAmount(card.Balance))
			add("credit_limit:"+card.AccountID, models.FormatAmount(card.CreditLimit))
			if card.Tier != models.UtilizationTierNone {
				snap.Indicators = append(snap.Indicators, card.Tier+"_utilization")
			}
		}
		if c.MinimumPaymentOnly {
			snap.Indicators = append(snap.Indicators, "minimum_payment_only")
		}
		if c.InterestCharges.IsPositive() {
			snap.Indicators = append(snap.Indicators, "interest_charges")
		}
		if c.HasOverdue {
			snap.Indicators = append(snap.Indicators, "overdue_account")
		}

	case rep.Income != nil:
		i := rep.Income
		add("deposit_count", fmt.Sprintf("%d", i.DepositCount))
		add("frequency", i.Frequency)
		add("median_gap_days", models.FormatPct(i.MedianGapDays))
		add("variability", i.Variability)
		add("variability_pct", models.FormatPct(i.VariabilityPct))
		add("buffer_months", models.FormatPct(i.BufferMonths))
		add("estimated_monthly_income", models.FormatAmount(i.EstimatedMonthly))
		add("confidence", i.Confidence)
		snap.Evidence = append(snap.Evidence, i.DepositTxnIDs...)
		snap.Indicators = append(snap.Indicators, i.Indicators...)
		if i.VariableIncome {
			snap.Indicators = append(snap.Indicators, "variable_income")
		}
	}

	return snap
}
