package signals

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

const (
	weeklyIncomeGapMaxDays    = 7
	biweeklyIncomeGapMaxDays  = 18
	monthlyIncomeGapMaxDays   = 35
	irregularIncomeGapMaxDays = 45

	variabilityMediumPct = 5
	variabilityHighPct   = 15

	variableIncomeGapDays      = 45
	variableIncomeBufferMonths = 1.0
)

// Variable-income indicator names recorded in reports and traces.
const (
	IndicatorHighVariability    = "high_variability"
	IndicatorIrregularFrequency = "irregular_frequency"
	IndicatorLowBuffer          = "low_buffer"
)

// DetectIncome classifies payroll frequency and variability and estimates
// the cash-flow buffer in months.
func DetectIncome(in Inputs, w models.Window, expenseLookbackDays int) *models.SignalReport {
	deposits := payrollDeposits(settledInWindow(in.Transactions, w))
	if len(deposits) < 2 {
		return models.InsufficientReport(in.UserID, models.DomainIncome, w,
			"fewer than two payroll deposits in window")
	}

	dates := make([]time.Time, 0, len(deposits))
	amounts := make([]float64, 0, len(deposits))
	txnIDs := make([]string, 0, len(deposits))
	accountSeen := map[string]bool{}
	var accountIDs []string
	total := decimal.Zero
	for _, t := range deposits {
		dates = append(dates, t.Date)
		f, _ := t.Amount.Float64()
		amounts = append(amounts, f)
		txnIDs = append(txnIDs, t.ID)
		total = total.Add(t.Amount)
		if !accountSeen[t.AccountID] {
			accountSeen[t.AccountID] = true
			accountIDs = append(accountIDs, t.AccountID)
		}
	}

	gaps := gapsInDays(dates)
	medGap := median(gaps)
	meanGap := mean(gaps)
	frequency := classifyFrequency(medGap)

	avg := total.Div(decimal.NewFromInt(int64(len(deposits))))
	cv := 0.0
	if m := mean(amounts); m > 0 {
		cv = stddev(amounts) / m * 100
	}
	variability := classifyVariability(cv)

	// Monthly income estimate from cadence.
	monthly := avg
	switch frequency {
	case models.FrequencyWeekly:
		monthly = avg.Mul(weeksPerMonth)
	case models.FrequencyBiweekly:
		monthly = avg.Mul(decimal.NewFromFloat(2.17))
	case models.FrequencyMonthly:
		// avg stands as-is
	default:
		// irregular or variable: normalize observed total to a 30-day month
		monthly = total.Div(decimal.NewFromInt(int64(w.Days))).Mul(decimal.NewFromInt(30))
	}

	expense := avgMonthlyExpense(in.Transactions, w.End, expenseLookbackDays)
	buffer := bufferMonths(in, w, expense)

	var indicators []string
	if variability == models.VariabilityHigh {
		indicators = append(indicators, IndicatorHighVariability)
	}
	if frequency == models.FrequencyIrregular || frequency == models.FrequencyVariable {
		indicators = append(indicators, IndicatorIrregularFrequency)
	}
	if buffer < variableIncomeBufferMonths {
		indicators = append(indicators, IndicatorLowBuffer)
	}

	variable := len(indicators) >= 2
	confidence := models.ConfidenceLow
	switch len(indicators) {
	case 2:
		confidence = models.ConfidenceMedium
	case 3:
		confidence = models.ConfidenceHigh
	}

	return &models.SignalReport{
		UserID: in.UserID,
		Domain: models.DomainIncome,
		Window: w,
		Income: &models.IncomeSignals{
			DepositCount:      len(deposits),
			AverageAmount:     avg.Round(2),
			MedianGapDays:     medGap,
			MeanGapDays:       meanGap,
			Frequency:         frequency,
			VariabilityPct:    cv,
			Variability:       variability,
			BufferMonths:      buffer,
			EstimatedMonthly:  monthly.Round(2),
			VariableIncome:    variable,
			Confidence:        confidence,
			Indicators:        indicators,
			DepositAccountIDs: accountIDs,
			DepositTxnIDs:     txnIDs,
		},
	}
}

// payrollDeposits selects inflows that look like payroll by category and
// payment channel.
func payrollDeposits(txns []models.Transaction) []models.Transaction {
	var out []models.Transaction
	for _, t := range txns {
		if !t.Amount.IsPositive() {
			continue
		}
		category := strings.ToLower(t.CategoryPrimary)
		detailed := strings.ToLower(t.CategoryDetailed)
		if category != "income" && !strings.Contains(detailed, "payroll") && !strings.Contains(detailed, "wages") {
			continue
		}
		switch strings.ToLower(t.PaymentChannel) {
		case "other", "ach", "direct deposit":
			out = append(out, t)
		}
	}
	return out
}

func classifyFrequency(medianGapDays float64) string {
	switch {
	case medianGapDays <= weeklyIncomeGapMaxDays:
		return models.FrequencyWeekly
	case medianGapDays <= biweeklyIncomeGapMaxDays:
		return models.FrequencyBiweekly
	case medianGapDays <= monthlyIncomeGapMaxDays:
		return models.FrequencyMonthly
	case medianGapDays <= irregularIncomeGapMaxDays:
		return models.FrequencyIrregular
	}
	return models.FrequencyVariable
}

func classifyVariability(cvPct float64) string {
	switch {
	case cvPct < variabilityMediumPct:
		return models.VariabilityLow
	case cvPct < variabilityHighPct:
		return models.VariabilityMedium
	}
	return models.VariabilityHigh
}

// bufferMonths estimates how many months of expenses the checking balance
// covers above its observed floor. The floor is reconstructed by walking
// window transactions backwards from the current balance, so it carries
// the same approximation caveats as the savings start-balance estimate.
func bufferMonths(in Inputs, w models.Window, monthlyExpense decimal.Decimal) float64 {
	if !monthlyExpense.IsPositive() {
		return 0
	}

	checking := map[string]bool{}
	balance := decimal.Zero
	for _, a := range in.Accounts {
		if a.Subtype == models.SubtypeChecking {
			checking[a.ID] = true
			balance = balance.Add(a.Balance)
		}
	}
	if len(checking) == 0 {
		return 0
	}

	// Walk back through window transactions to find the balance floor.
	var checkingTxns []models.Transaction
	for _, t := range settledInWindow(in.Transactions, w) {
		if checking[t.AccountID] {
			checkingTxns = append(checkingTxns, t)
		}
	}
	minBalance := balance
	running := balance
	for i := len(checkingTxns) - 1; i >= 0; i-- {
		running = running.Sub(checkingTxns[i].Amount)
		if running.LessThan(minBalance) {
			minBalance = running
		}
	}
	if minBalance.IsNegative() {
		minBalance = decimal.Zero
	}

	months, _ := balance.Sub(minBalance).Div(monthlyExpense).Float64()
	if months < 0 {
		return 0
	}
	return months
}
