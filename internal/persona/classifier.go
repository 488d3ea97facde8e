// Package persona assigns exactly one behavioral persona per user from a
// fixed, prioritized rule set. Rules are evaluated highest priority first
// and the first match wins; classification is a pure function of signals.
package persona

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

// Result is the classification outcome, including exactly which
// sub-conditions fired for the winning rule.
type Result struct {
	Persona       models.Persona
	PriorityRank  int
	ConditionsMet []string
	Rationale     string
}

// Rule thresholds.
var (
	highUtilizationPct    = 50.0
	variableIncomeGapDays = 45.0
	minBufferMonths       = 1.0
	minRecurringMerchants = 3
	minRecurringSpend     = decimal.NewFromInt(50)
	minSubscriptionShare  = 10.0
	minGrowthRatePct      = 2.0
	minMonthlyNetInflow   = decimal.NewFromInt(200)
	maxBuilderUtilization = 30.0
)

type rule struct {
	persona  models.Persona
	evaluate func(set models.SignalSet) (bool, []string)
}

// Ordered rule table; index+1 is the priority rank.
var rules = []rule{
	{models.PersonaHighUtilization, evalHighUtilization},
	{models.PersonaVariableIncome, evalVariableIncome},
	{models.PersonaSubscriptionHeavy, evalSubscriptionHeavy},
	{models.PersonaSavingsBuilder, evalSavingsBuilder},
}

// Classify runs the ordered rules over the signal set. Insufficient-data
// reports simply fail to satisfy conditions; classification never errors.
func Classify(set models.SignalSet) Result {
	for i, r := range rules {
		if matched, conditions := r.evaluate(set); matched {
			return Result{
				Persona:       r.persona,
				PriorityRank:  i + 1,
				ConditionsMet: conditions,
				Rationale:     rationaleFor(r.persona, conditions),
			}
		}
	}
	return Result{
		Persona:      models.PersonaDefault,
		PriorityRank: len(rules) + 1,
		Rationale:    "No specific behavioral pattern matched; assigned the default persona.",
	}
}

func rationaleFor(p models.Persona, conditions []string) string {
	return fmt.Sprintf("Classified as %s: %s.", p.Name(), strings.Join(conditions, "; "))
}

// ---------------------------------------------------------------------------
// Rules
// ---------------------------------------------------------------------------

func creditSignals(set models.SignalSet) *models.CreditSignals {
	rep := set.Short.Credit
	if rep == nil || rep.Insufficient {
		return nil
	}
	return rep.Credit
}

// evalHighUtilization: any card at or above 50% utilization, any interest
// charge, minimum-payment-only behavior, or an overdue liability.
func evalHighUtilization(set models.SignalSet) (bool, []string) {
	c := creditSignals(set)
	if c == nil {
		return false, nil
	}

	var conditions []string
	for _, card := range c.Cards {
		if card.UtilizationPct >= highUtilizationPct {
			conditions = append(conditions, fmt.Sprintf(
				"card %s utilization %s%% >= %.0f%%",
				accountSuffix(card.AccountID), models.FormatPct(card.UtilizationPct), highUtilizationPct))
		}
	}
	if c.InterestCharges.IsPositive() {
		conditions = append(conditions, fmt.Sprintf(
			"interest charges of $%s", models.FormatAmount(c.InterestCharges)))
	}
	if c.MinimumPaymentOnly {
		conditions = append(conditions, "recent payments at or near the statement minimum")
	}
	if c.HasOverdue {
		conditions = append(conditions, "an overdue credit account")
	}
	return len(conditions) > 0, conditions
}

// evalVariableIncome: payroll gaps beyond 45 days with less than a month of
// cash-flow buffer. Reads the long window so sparse deposits are visible.
func evalVariableIncome(set models.SignalSet) (bool, []string) {
	rep := set.Long.Income
	if rep == nil || rep.Insufficient {
		return false, nil
	}
	inc := rep.Income

	var conditions []string
	if inc.MedianGapDays > variableIncomeGapDays {
		conditions = append(conditions, fmt.Sprintf(
			"median pay gap %.0f days > %.0f days", inc.MedianGapDays, variableIncomeGapDays))
	}
	if inc.BufferMonths < minBufferMonths {
		conditions = append(conditions, fmt.Sprintf(
			"cash-flow buffer %.1f months < %.0f month", inc.BufferMonths, minBufferMonths))
	}
	// both sub-conditions are required
	return len(conditions) == 2, conditions
}

// evalSubscriptionHeavy: three or more recurring merchants with either $50
// in monthly recurring spend in the 30-day window or a 10% share of outflow.
func evalSubscriptionHeavy(set models.SignalSet) (bool, []string) {
	rep := set.Short.Subscriptions
	if rep == nil || rep.Insufficient {
		return false, nil
	}
	s := rep.Subscriptions

	if s.RecurringCount < minRecurringMerchants {
		return false, nil
	}
	conditions := []string{fmt.Sprintf(
		"%d recurring merchants >= %d", s.RecurringCount, minRecurringMerchants)}

	spend := s.MonthlySpend.GreaterThanOrEqual(minRecurringSpend)
	share := s.SharePctOfOutflow >= minSubscriptionShare
	if spend {
		conditions = append(conditions, fmt.Sprintf(
			"monthly recurring spend $%s >= $%s",
			models.FormatAmount(s.MonthlySpend), minRecurringSpend.StringFixed(0)))
	}
	if share {
		conditions = append(conditions, fmt.Sprintf(
			"subscription share %s%% >= %.0f%%",
			models.FormatPct(s.SharePctOfOutflow), minSubscriptionShare))
	}
	return spend || share, conditions
}

// evalSavingsBuilder: growing savings (2% over the window or $200/month of
// net inflow) with every card utilization under 30%. Missing credit data
// counts as no cards above the limit.
func evalSavingsBuilder(set models.SignalSet) (bool, []string) {
	rep := set.Long.Savings
	if rep == nil || rep.Insufficient {
		return false, nil
	}
	s := rep.Savings

	var conditions []string
	if s.GrowthRatePct >= minGrowthRatePct {
		conditions = append(conditions, fmt.Sprintf(
			"savings growth %s%% >= %.0f%%", models.FormatPct(s.GrowthRatePct), minGrowthRatePct))
	}
	if s.MonthlyNetInflow.GreaterThanOrEqual(minMonthlyNetInflow) {
		conditions = append(conditions, fmt.Sprintf(
			"net inflow $%s/month >= $%s/month",
			models.FormatAmount(s.MonthlyNetInflow), minMonthlyNetInflow.StringFixed(0)))
	}
	if len(conditions) == 0 {
		return false, nil
	}

	if c := creditSignals(set); c != nil {
		for _, card := range c.Cards {
			if card.UtilizationPct >= maxBuilderUtilization {
				return false, nil
			}
		}
		conditions = append(conditions, fmt.Sprintf(
			"all card utilizations below %.0f%%", maxBuilderUtilization))
	}
	return true, conditions
}

// accountSuffix returns the last four characters of an account id, the way
// rationales and conditions reference accounts.
func accountSuffix(id string) string {
	if len(id) <= 4 {
		return id
	}
	return "..." + id[len(id)-4:]
}
