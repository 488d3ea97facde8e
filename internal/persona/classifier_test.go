package persona

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func creditReport(cards []models.CardUtilization, interest string, minPayOnly, overdue bool) *models.SignalReport {
	maxUtil := 0.0
	for _, c := range cards {
		if c.UtilizationPct > maxUtil {
			maxUtil = c.UtilizationPct
		}
	}
	return &models.SignalReport{
		Domain: models.DomainCredit,
		Credit: &models.CreditSignals{
			Cards:              cards,
			MaxUtilizationPct:  maxUtil,
			InterestCharges:    amount(interest),
			MinimumPaymentOnly: minPayOnly,
			HasOverdue:         overdue,
		},
	}
}

func subscriptionsReport(count int, monthlySpend string, sharePct float64) *models.SignalReport {
	return &models.SignalReport{
		Domain: models.DomainSubscriptions,
		Subscriptions: &models.SubscriptionSignals{
			RecurringCount:    count,
			MonthlySpend:      amount(monthlySpend),
			SharePctOfOutflow: sharePct,
		},
	}
}

func incomeReport(medianGap, bufferMonths float64) *models.SignalReport {
	return &models.SignalReport{
		Domain: models.DomainIncome,
		Income: &models.IncomeSignals{
			MedianGapDays: medianGap,
			BufferMonths:  bufferMonths,
		},
	}
}

func savingsReport(growthPct float64, monthlyNet string) *models.SignalReport {
	return &models.SignalReport{
		Domain: models.DomainSavings,
		Savings: &models.SavingsSignals{
			GrowthRatePct:    growthPct,
			MonthlyNetInflow: amount(monthlyNet),
		},
	}
}

func card(id string, utilization float64) models.CardUtilization {
	return models.CardUtilization{AccountID: id, UtilizationPct: utilization}
}

func TestClassify_HighUtilization(t *testing.T) {
	set := models.SignalSet{
		UserID: "user-1",
		Short: models.WindowSignals{
			Credit: creditReport([]models.CardUtilization{card("card-1234", 68)}, "12.50", false, false),
		},
	}

	result := Classify(set)

	assert.Equal(t, models.PersonaHighUtilization, result.Persona)
	assert.Equal(t, 1, result.PriorityRank)
	require.Len(t, result.ConditionsMet, 2)
	assert.Contains(t, result.ConditionsMet[0], "...1234")
	assert.Contains(t, result.ConditionsMet[0], "68.0%")
	assert.Contains(t, result.ConditionsMet[1], "$12.50")
	assert.Contains(t, result.Rationale, "High Utilization")
}

func TestClassify_UtilizationJustBelowThreshold(t *testing.T) {
	set := models.SignalSet{
		Short: models.WindowSignals{
			Credit: creditReport([]models.CardUtilization{card("card-1234", 49.9)}, "0", false, false),
		},
	}

	result := Classify(set)
	assert.Equal(t, models.PersonaDefault, result.Persona)
}

func TestClassify_HighUtilizationBeatsSubscriptionHeavy(t *testing.T) {
	set := models.SignalSet{
		Short: models.WindowSignals{
			Credit:        creditReport([]models.CardUtilization{card("card-1234", 80)}, "0", false, false),
			Subscriptions: subscriptionsReport(4, "80.00", 15),
		},
	}

	result := Classify(set)
	assert.Equal(t, models.PersonaHighUtilization, result.Persona)
	assert.Equal(t, 1, result.PriorityRank)
}

func TestClassify_VariableIncomeRequiresBothConditions(t *testing.T) {
	wideGapOnly := models.SignalSet{
		Long: models.WindowSignals{Income: incomeReport(60, 2.5)},
	}
	assert.Equal(t, models.PersonaDefault, Classify(wideGapOnly).Persona)

	thinBufferOnly := models.SignalSet{
		Long: models.WindowSignals{Income: incomeReport(14, 0.5)},
	}
	assert.Equal(t, models.PersonaDefault, Classify(thinBufferOnly).Persona)

	both := models.SignalSet{
		Long: models.WindowSignals{Income: incomeReport(60, 0.5)},
	}
	result := Classify(both)
	assert.Equal(t, models.PersonaVariableIncome, result.Persona)
	assert.Equal(t, 2, result.PriorityRank)
	assert.Len(t, result.ConditionsMet, 2)
}

func TestClassify_SubscriptionHeavy(t *testing.T) {
	// exactly at both boundaries
	set := models.SignalSet{
		Short: models.WindowSignals{Subscriptions: subscriptionsReport(3, "50.00", 10)},
	}

	result := Classify(set)
	assert.Equal(t, models.PersonaSubscriptionHeavy, result.Persona)
	assert.Equal(t, 3, result.PriorityRank)
}

func TestClassify_SubscriptionHeavySpendAlone(t *testing.T) {
	set := models.SignalSet{
		Short: models.WindowSignals{Subscriptions: subscriptionsReport(3, "50.00", 4)},
	}
	assert.Equal(t, models.PersonaSubscriptionHeavy, Classify(set).Persona)

	justUnder := models.SignalSet{
		Short: models.WindowSignals{Subscriptions: subscriptionsReport(3, "49.99", 4)},
	}
	assert.Equal(t, models.PersonaDefault, Classify(justUnder).Persona)
}

func TestClassify_SubscriptionHeavyNeedsThreeMerchants(t *testing.T) {
	set := models.SignalSet{
		Short: models.WindowSignals{Subscriptions: subscriptionsReport(2, "200.00", 40)},
	}
	assert.Equal(t, models.PersonaDefault, Classify(set).Persona)
}

func TestClassify_SavingsBuilder(t *testing.T) {
	set := models.SignalSet{
		Short: models.WindowSignals{
			Credit: creditReport([]models.CardUtilization{card("card-1", 12)}, "0", false, false),
		},
		Long: models.WindowSignals{Savings: savingsReport(3.5, "150.00")},
	}

	result := Classify(set)
	assert.Equal(t, models.PersonaSavingsBuilder, result.Persona)
	assert.Equal(t, 4, result.PriorityRank)
	assert.Contains(t, result.ConditionsMet, "all card utilizations below 30%")
}

func TestClassify_SavingsBuilderBlockedByUtilization(t *testing.T) {
	set := models.SignalSet{
		Short: models.WindowSignals{
			Credit: creditReport([]models.CardUtilization{card("card-1", 35)}, "0", false, false),
		},
		Long: models.WindowSignals{Savings: savingsReport(3.5, "150.00")},
	}

	assert.Equal(t, models.PersonaDefault, Classify(set).Persona)
}

func TestClassify_SavingsBuilderMissingCreditDataPasses(t *testing.T) {
	set := models.SignalSet{
		Long: models.WindowSignals{Savings: savingsReport(0, "250.00")},
	}

	result := Classify(set)
	assert.Equal(t, models.PersonaSavingsBuilder, result.Persona)
}

func TestClassify_InsufficientReportsFallToDefault(t *testing.T) {
	set := models.SignalSet{
		Short: models.WindowSignals{
			Credit: &models.SignalReport{Domain: models.DomainCredit, Insufficient: true, Reason: "no cards"},
		},
		Long: models.WindowSignals{
			Income: &models.SignalReport{Domain: models.DomainIncome, Insufficient: true, Reason: "no deposits"},
		},
	}

	result := Classify(set)
	assert.Equal(t, models.PersonaDefault, result.Persona)
	assert.Equal(t, 5, result.PriorityRank)
	assert.Equal(t, "Getting Started", result.Persona.Name())
	assert.NotEmpty(t, result.Rationale)
}

func TestClassify_Deterministic(t *testing.T) {
	set := models.SignalSet{
		Short: models.WindowSignals{
			Credit: creditReport([]models.CardUtilization{card("card-1234", 68)}, "12.50", true, true),
		},
	}

	assert.Equal(t, Classify(set), Classify(set))
}
