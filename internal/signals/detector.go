package signals

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

// Inputs is the normalized record set a detector works from. Supplied by
// the ingestion service; detectors never see raw uploads.
type Inputs struct {
	UserID       string
	Accounts     []models.Account
	Transactions []models.Transaction
	Liabilities  []models.Liability
}

// Config carries detector tunables.
type Config struct {
	// ExpenseLookbackDays is the horizon used to average monthly expenses.
	ExpenseLookbackDays int
}

// DefaultConfig matches the documented defaults.
func DefaultConfig() Config {
	return Config{ExpenseLookbackDays: 90}
}

// ReportCache memoizes computed reports. A nil cache, a miss, or a cache
// error all fall through to recomputation; caching is never a correctness
// dependency.
type ReportCache interface {
	// Get returns the cached report, or nil on a miss.
	Get(ctx context.Context, userID string, domain models.SignalDomain, windowDays int) (*models.SignalReport, error)
	// Set stores a report under its (user, domain, window) key.
	Set(ctx context.Context, report *models.SignalReport) error
}

// Detector computes signal reports for every domain and window, optionally
// memoizing through an injected cache.
type Detector struct {
	cfg   Config
	cache ReportCache
	clock func() time.Time
}

// NewDetector creates a detector. cache may be nil.
func NewDetector(cfg Config, cache ReportCache) *Detector {
	if cfg.ExpenseLookbackDays <= 0 {
		cfg.ExpenseLookbackDays = DefaultConfig().ExpenseLookbackDays
	}
	return &Detector{cfg: cfg, cache: cache, clock: time.Now}
}

// DetectAll computes the full signal set (all four domains, both windows)
// for a user as of the given instant.
func (d *Detector) DetectAll(ctx context.Context, in Inputs, asOf time.Time) models.SignalSet {
	set := models.SignalSet{UserID: in.UserID}
	set.Short = d.detectWindow(ctx, in, models.NewWindow(asOf, models.ShortWindowDays))
	set.Long = d.detectWindow(ctx, in, models.NewWindow(asOf, models.LongWindowDays))
	return set
}

func (d *Detector) detectWindow(ctx context.Context, in Inputs, w models.Window) models.WindowSignals {
	return models.WindowSignals{
		Window:        w,
		Subscriptions: d.report(ctx, in, models.DomainSubscriptions, w),
		Savings:       d.report(ctx, in, models.DomainSavings, w),
		Credit:        d.report(ctx, in, models.DomainCredit, w),
		Income:        d.report(ctx, in, models.DomainIncome, w),
	}
}

// report is the compute-or-fetch step: cache hit wins, anything else runs
// the pure detector and back-fills the cache best effort.
func (d *Detector) report(ctx context.Context, in Inputs, domain models.SignalDomain, w models.Window) *models.SignalReport {
	if d.cache != nil {
		if cached, err := d.cache.Get(ctx, in.UserID, domain, w.Days); err == nil && cached != nil {
			return cached
		}
	}

	var rep *models.SignalReport
	switch domain {
	case models.DomainSubscriptions:
		rep = DetectSubscriptions(in, w)
	case models.DomainSavings:
		rep = DetectSavings(in, w, d.cfg.ExpenseLookbackDays)
	case models.DomainCredit:
		rep = DetectCredit(in, w)
	case models.DomainIncome:
		rep = DetectIncome(in, w, d.cfg.ExpenseLookbackDays)
	default:
		return nil
	}
	rep.ComputedAt = d.clock()

	if d.cache != nil {
		_ = d.cache.Set(ctx, rep)
	}
	return rep
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

// settledInWindow returns non-pending transactions dated inside the window,
// sorted ascending by date for stable downstream math.
func settledInWindow(txns []models.Transaction, w models.Window) []models.Transaction {
	out := make([]models.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.Pending || !w.Contains(t.Date) {
			continue
		}
		out = append(out, t)
	}
	sortTxns(out)
	return out
}

func sortTxns(txns []models.Transaction) {
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].ID < txns[j].ID
	})
}

// avgMonthlyExpense averages total settled outflow over the lookback,
// normalized to a 30-day month.
func avgMonthlyExpense(txns []models.Transaction, end time.Time, lookbackDays int) decimal.Decimal {
	w := models.NewWindow(end, lookbackDays)
	total := decimal.Zero
	for _, t := range txns {
		if t.Pending || !w.Contains(t.Date) || !t.IsOutflow() {
			continue
		}
		total = total.Add(t.Amount.Abs())
	}
	if lookbackDays <= 0 {
		return decimal.Zero
	}
	months := decimal.NewFromInt(int64(lookbackDays)).Div(decimal.NewFromInt(30))
	if months.IsZero() {
		return decimal.Zero
	}
	return total.Div(months).Round(2)
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func stddev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	sum := 0.0
	for _, v := range vals {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(vals)))
}

// gapsInDays returns day gaps between consecutive dates (assumed sorted).
func gapsInDays(dates []time.Time) []float64 {
	if len(dates) < 2 {
		return nil
	}
	gaps := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, dates[i].Sub(dates[i-1]).Hours()/24)
	}
	return gaps
}
