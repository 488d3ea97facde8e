package recommend

import (
	"fmt"

	"github.com/andychuong/spendsense-sub000/internal/catalog"
	"github.com/andychuong/spendsense-sub000/internal/models"
)

// rationaleBuilder produces the plain-language, data-citing explanation for
// one catalog item. One implementation per persona keeps the persona switch
// in a single place and makes a missing variant a compile error.
type rationaleBuilder interface {
	Build(item catalog.Item, set models.SignalSet) string
	DataPoints(set models.SignalSet) []string
}

func builderFor(p models.Persona) rationaleBuilder {
	switch p {
	case models.PersonaHighUtilization:
		return highUtilizationRationale{}
	case models.PersonaVariableIncome:
		return variableIncomeRationale{}
	case models.PersonaSubscriptionHeavy:
		return subscriptionRationale{}
	case models.PersonaSavingsBuilder:
		return savingsRationale{}
	default:
		return defaultRationale{}
	}
}

// accountSuffix renders the account reference used in user-facing text.
func accountSuffix(id string) string {
	if len(id) <= 4 {
		return id
	}
	return "..." + id[len(id)-4:]
}

type highUtilizationRationale struct{}

func (highUtilizationRationale) Build(item catalog.Item, set models.SignalSet) string {
	if rep := set.Short.Credit; rep != nil && !rep.Insufficient {
		c := rep.Credit
		for _, card := range c.Cards {
			if card.UtilizationPct >= 50 {
				return fmt.Sprintf(
					"Your card %s currently carries $%s of its $%s limit, which is %s%% of the available credit. %q can help bring that balance down.",
					accountSuffix(card.AccountID),
					models.FormatAmount(card.Balance),
					models.FormatAmount(card.CreditLimit),
					models.FormatPct(card.UtilizationPct),
					item.Title)
			}
		}
		if c.InterestCharges.IsPositive() {
			return fmt.Sprintf(
				"You paid $%s in interest recently. %q is a step toward keeping more of that money.",
				models.FormatAmount(c.InterestCharges), item.Title)
		}
	}
	return fmt.Sprintf("Your credit balances are running high, so %q was picked to help you pay them down.", item.Title)
}

func (highUtilizationRationale) DataPoints(set models.SignalSet) []string {
	var points []string
	if rep := set.Short.Credit; rep != nil && !rep.Insufficient {
		for _, card := range rep.Credit.Cards {
			points = append(points, fmt.Sprintf("card %s at %s%% ($%s of $%s)",
				accountSuffix(card.AccountID), models.FormatPct(card.UtilizationPct),
				models.FormatAmount(card.Balance), models.FormatAmount(card.CreditLimit)))
		}
	}
	return points
}

type variableIncomeRationale struct{}

func (variableIncomeRationale) Build(item catalog.Item, set models.SignalSet) string {
	if rep := set.Long.Income; rep != nil && !rep.Insufficient {
		inc := rep.Income
		return fmt.Sprintf(
			"Your deposits arrive about %.0f days apart and your checking cushion covers about %.1f months of spending, so %q fits how your income really flows.",
			inc.MedianGapDays, inc.BufferMonths, item.Title)
	}
	return fmt.Sprintf("Your income pattern varies month to month, so %q was chosen to make planning easier.", item.Title)
}

func (variableIncomeRationale) DataPoints(set models.SignalSet) []string {
	var points []string
	if rep := set.Long.Income; rep != nil && !rep.Insufficient {
		inc := rep.Income
		points = append(points,
			fmt.Sprintf("median pay gap %.0f days", inc.MedianGapDays),
			fmt.Sprintf("buffer %.1f months", inc.BufferMonths),
			fmt.Sprintf("estimated income $%s/month", models.FormatAmount(inc.EstimatedMonthly)))
	}
	return points
}

type subscriptionRationale struct{}

func (subscriptionRationale) Build(item catalog.Item, set models.SignalSet) string {
	if rep := set.Short.Subscriptions; rep != nil && !rep.Insufficient {
		s := rep.Subscriptions
		top := ""
		if len(s.Recurring) > 0 {
			top = fmt.Sprintf(" Your largest is %s at $%s/month.",
				s.Recurring[0].Merchant, models.FormatAmount(s.Recurring[0].MonthlySpend))
		}
		return fmt.Sprintf(
			"You have %d recurring charges adding up to about $%s/month, %s%% of your spending.%s %q can help you decide which ones still earn their keep.",
			s.RecurringCount, models.FormatAmount(s.MonthlySpend),
			models.FormatPct(s.SharePctOfOutflow), top, item.Title)
	}
	return fmt.Sprintf("Recurring charges make up a sizable share of your spending, so %q was picked for you.", item.Title)
}

func (subscriptionRationale) DataPoints(set models.SignalSet) []string {
	var points []string
	if rep := set.Short.Subscriptions; rep != nil && !rep.Insufficient {
		s := rep.Subscriptions
		points = append(points,
			fmt.Sprintf("%d recurring merchants", s.RecurringCount),
			fmt.Sprintf("$%s/month recurring spend", models.FormatAmount(s.MonthlySpend)))
		for _, r := range s.Recurring {
			points = append(points, fmt.Sprintf("%s $%s/month (%s)",
				r.Merchant, models.FormatAmount(r.MonthlySpend), r.Cadence))
		}
	}
	return points
}

type savingsRationale struct{}

func (savingsRationale) Build(item catalog.Item, set models.SignalSet) string {
	if rep := set.Long.Savings; rep != nil && !rep.Insufficient {
		s := rep.Savings
		return fmt.Sprintf(
			"Your savings grew %s%% over the period ending %s, with $%s/month flowing in. %q helps that momentum go further.",
			models.FormatPct(s.GrowthRatePct), models.FormatDate(rep.Window.End),
			models.FormatAmount(s.MonthlyNetInflow), item.Title)
	}
	return fmt.Sprintf("You are building savings steadily, and %q builds on that habit.", item.Title)
}

func (savingsRationale) DataPoints(set models.SignalSet) []string {
	var points []string
	if rep := set.Long.Savings; rep != nil && !rep.Insufficient {
		s := rep.Savings
		points = append(points,
			fmt.Sprintf("savings balance $%s", models.FormatAmount(s.Balance)),
			fmt.Sprintf("growth %s%%", models.FormatPct(s.GrowthRatePct)),
			fmt.Sprintf("net inflow $%s/month", models.FormatAmount(s.MonthlyNetInflow)))
	}
	return points
}

type defaultRationale struct{}

func (defaultRationale) Build(item catalog.Item, set models.SignalSet) string {
	end := set.Short.Window.End
	if rep := set.Short.Subscriptions; rep != nil && !rep.Insufficient {
		return fmt.Sprintf(
			"Based on your activity in the 30 days ending %s, including $%s of total spending, %q is a good place to start.",
			models.FormatDate(end), models.FormatAmount(rep.Subscriptions.TotalOutflow), item.Title)
	}
	return fmt.Sprintf(
		"Based on your account activity through %s, %q is a good place to start.",
		models.FormatDate(end), item.Title)
}

func (defaultRationale) DataPoints(set models.SignalSet) []string {
	var points []string
	if rep := set.Short.Subscriptions; rep != nil && !rep.Insufficient {
		points = append(points, fmt.Sprintf("total spending $%s in 30 days",
			models.FormatAmount(rep.Subscriptions.TotalOutflow)))
	}
	return points
}
