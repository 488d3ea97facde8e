package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SignalSnapshot is the serializable form of a SignalSet used for
// persistence inside persona assignments and decision traces. All values
// are rendered to strings at this boundary (decimals to two places, dates
// to ISO-8601) so storage never depends on in-memory representations.
type SignalSnapshot struct {
	UserID     string           `json:"user_id"`
	CapturedAt time.Time        `json:"captured_at"`
	Windows    []WindowSnapshot `json:"windows"`
}

// WindowSnapshot holds the per-domain snapshots for one window.
type WindowSnapshot struct {
	Days    int              `json:"days"`
	Start   string           `json:"start"`
	End     string           `json:"end"`
	Domains []DomainSnapshot `json:"domains"`
}

// DomainSnapshot is the flattened, self-describing record of one report.
type DomainSnapshot struct {
	Domain       string           `json:"domain"`
	Insufficient bool             `json:"insufficient,omitempty"`
	Reason       string           `json:"reason,omitempty"`
	Metrics      []MetricSnapshot `json:"metrics,omitempty"`
	Indicators   []string         `json:"indicators,omitempty"`
	Evidence     []string         `json:"evidence,omitempty"`
}

// MetricSnapshot is a single named, pre-formatted metric value.
type MetricSnapshot struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// BehaviorCount is the number of distinct behavioral indicators the
// snapshot captured across all domains and windows. Used by the coverage
// and fairness metrics.
func (s SignalSnapshot) BehaviorCount() int {
	seen := map[string]struct{}{}
	for _, w := range s.Windows {
		for _, d := range w.Domains {
			for _, ind := range d.Indicators {
				seen[d.Domain+":"+ind] = struct{}{}
			}
		}
	}
	return len(seen)
}

// Domain returns the snapshot for a domain within the window of the given
// length, or nil.
func (s SignalSnapshot) Domain(days int, domain SignalDomain) *DomainSnapshot {
	for _, w := range s.Windows {
		if w.Days != days {
			continue
		}
		for i := range w.Domains {
			if w.Domains[i].Domain == string(domain) {
				return &w.Domains[i]
			}
		}
	}
	return nil
}

// Metric returns the formatted value of a named metric, if present.
func (d *DomainSnapshot) Metric(name string) (string, bool) {
	if d == nil {
		return "", false
	}
	for _, m := range d.Metrics {
		if m.Name == name {
			return m.Value, true
		}
	}
	return "", false
}

// Snapshot formatting helpers. Everything stored goes through these.

// FormatAmount renders a decimal amount with two places.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatPct renders a percentage with one place.
func FormatPct(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// FormatDate renders a date as ISO-8601 (date only).
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
