package signals

import (
	"github.com/shopspring/decimal"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

// DetectSavings measures net inflow, growth, and emergency-fund coverage
// across savings-like individual accounts (savings, money market, HSA).
//
// The start-of-window balance is reconstructed as end balance minus net
// in-window transactions. This is an estimation heuristic: it misattributes
// external transfers and ignores interest and fees. It is not a ledger
// reconstruction.
func DetectSavings(in Inputs, w models.Window, expenseLookbackDays int) *models.SignalReport {
	var accountIDs []string
	savingsAccounts := map[string]bool{}
	balance := decimal.Zero
	for _, a := range in.Accounts {
		if !a.IsSavingsLike() {
			continue
		}
		savingsAccounts[a.ID] = true
		accountIDs = append(accountIDs, a.ID)
		balance = balance.Add(a.Balance)
	}

	if len(accountIDs) == 0 {
		return models.InsufficientReport(in.UserID, models.DomainSavings, w,
			"no savings-like individual accounts")
	}

	deposits := decimal.Zero
	withdrawals := decimal.Zero
	for _, t := range settledInWindow(in.Transactions, w) {
		if !savingsAccounts[t.AccountID] {
			continue
		}
		if t.Amount.IsPositive() {
			deposits = deposits.Add(t.Amount)
		} else {
			withdrawals = withdrawals.Add(t.Amount.Abs())
		}
	}
	net := deposits.Sub(withdrawals)

	// Growth rate against the reconstructed start balance.
	start := balance.Sub(net)
	growth := 0.0
	if start.IsPositive() {
		growth, _ = balance.Sub(start).Div(start).Mul(decimal.NewFromInt(100)).Float64()
	}

	monthlyNet := net.Div(decimal.NewFromInt(int64(w.Days))).Mul(decimal.NewFromInt(30)).Round(2)

	expense := avgMonthlyExpense(in.Transactions, w.End, expenseLookbackDays)
	coverage := 0.0
	if expense.IsPositive() {
		coverage, _ = balance.Div(expense).Float64()
	}

	return &models.SignalReport{
		UserID: in.UserID,
		Domain: models.DomainSavings,
		Window: w,
		Savings: &models.SavingsSignals{
			AccountIDs:          accountIDs,
			Balance:             balance.Round(2),
			Deposits:            deposits.Round(2),
			Withdrawals:         withdrawals.Round(2),
			NetInflow:           net.Round(2),
			MonthlyNetInflow:    monthlyNet,
			GrowthRatePct:       growth,
			AvgMonthlyExpense:   expense,
			EmergencyFundMonths: coverage,
		},
	}
}
