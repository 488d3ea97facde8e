package recommend

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andychuong/spendsense-sub000/internal/catalog"
	"github.com/andychuong/spendsense-sub000/internal/models"
)

// Profile is the eligibility picture derived from signals and accounts.
// Nil numeric fields mean the underlying data was missing or insufficient,
// which downgrades the corresponding check to "cannot verify" rather than
// silently approving.
type Profile struct {
	MonthlyIncome       *decimal.Decimal
	CreditScoreEstimate *int
	HeldProductClasses  []string
}

// EligibilityResult is the outcome of checking one offer, with a
// human-readable indicator per sub-check.
type EligibilityResult struct {
	Eligible     bool
	Harmful      bool
	CannotVerify bool
	Indicators   []string
}

// Explanation joins the per-check indicators into one string.
func (r EligibilityResult) Explanation() string {
	return strings.Join(r.Indicators, "; ")
}

// subtype to offer product class, for existing-product filtering
var subtypeProductClass = map[string]string{
	models.SubtypeChecking:    "checking_account",
	models.SubtypeSavings:     "savings_account",
	models.SubtypeMoneyMarket: "high_yield_savings",
	models.SubtypeCreditCard:  "credit_card",
}

// BuildProfile derives the eligibility profile from the signal set and the
// user's accounts.
//
// The credit score estimate is a heuristic anchored at 680 and adjusted by
// utilization tier, overdue status, and payment behavior. It exists only to
// gate offers conservatively and is not a bureau score.
func BuildProfile(set models.SignalSet, accounts []models.Account) Profile {
	var p Profile

	if rep := set.Long.Income; rep != nil && !rep.Insufficient {
		income := rep.Income.EstimatedMonthly
		p.MonthlyIncome = &income
	}

	if rep := set.Short.Credit; rep != nil && !rep.Insufficient {
		score := estimateCreditScore(rep.Credit)
		p.CreditScoreEstimate = &score
	}

	seen := map[string]bool{}
	for _, a := range accounts {
		if class, ok := subtypeProductClass[a.Subtype]; ok && !seen[class] {
			seen[class] = true
			p.HeldProductClasses = append(p.HeldProductClasses, class)
		}
	}
	return p
}

func estimateCreditScore(c *models.CreditSignals) int {
	score := 680
	switch {
	case c.MaxUtilizationPct >= 80:
		score -= 80
	case c.MaxUtilizationPct >= 50:
		score -= 40
	case c.MaxUtilizationPct < 30:
		score += 40
	}
	if c.HasOverdue {
		score -= 60
	}
	if c.MinimumPaymentOnly {
		score -= 30
	}
	if c.InterestCharges.IsPositive() {
		score -= 10
	}
	if score < 300 {
		score = 300
	}
	if score > 850 {
		score = 850
	}
	return score
}

// CheckOffer runs the full offer eligibility ruleset: harmful-product
// blocklist (hard reject), existing-product filter, then numeric income
// and credit floors with explicit cannot-verify handling.
func CheckOffer(item catalog.Item, p Profile) EligibilityResult {
	var r EligibilityResult

	if catalog.IsHarmful(item.ProductClass) {
		r.Harmful = true
		r.Indicators = append(r.Indicators,
			fmt.Sprintf("fail: product class %q is blocked", item.ProductClass))
		return r
	}
	r.Indicators = append(r.Indicators, "pass: product class is not blocked")

	for _, held := range p.HeldProductClasses {
		if held == item.ProductClass {
			r.Indicators = append(r.Indicators,
				fmt.Sprintf("fail: user already holds a %s product", item.ProductClass))
			return r
		}
	}
	r.Indicators = append(r.Indicators, "pass: user does not already hold this product")

	eligible := true
	if item.MinMonthlyIncome.IsPositive() {
		switch {
		case p.MonthlyIncome == nil:
			eligible = false
			r.CannotVerify = true
			r.Indicators = append(r.Indicators,
				"cannot verify: income requirement present but no income data available")
		case p.MonthlyIncome.GreaterThanOrEqual(item.MinMonthlyIncome):
			r.Indicators = append(r.Indicators, fmt.Sprintf(
				"pass: estimated income $%s/month meets the $%s minimum",
				models.FormatAmount(*p.MonthlyIncome), item.MinMonthlyIncome.StringFixed(0)))
		default:
			eligible = false
			r.Indicators = append(r.Indicators, fmt.Sprintf(
				"fail: estimated income $%s/month is below the $%s minimum",
				models.FormatAmount(*p.MonthlyIncome), item.MinMonthlyIncome.StringFixed(0)))
		}
	}

	if item.MinCreditScore > 0 {
		switch {
		case p.CreditScoreEstimate == nil:
			eligible = false
			r.CannotVerify = true
			r.Indicators = append(r.Indicators,
				"cannot verify: credit score requirement present but no credit data available")
		case *p.CreditScoreEstimate >= item.MinCreditScore:
			r.Indicators = append(r.Indicators, fmt.Sprintf(
				"pass: estimated credit score %d meets the %d minimum",
				*p.CreditScoreEstimate, item.MinCreditScore))
		default:
			eligible = false
			r.Indicators = append(r.Indicators, fmt.Sprintf(
				"fail: estimated credit score %d is below the %d minimum",
				*p.CreditScoreEstimate, item.MinCreditScore))
		}
	}

	r.Eligible = eligible
	return r
}
