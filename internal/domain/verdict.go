package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// End-of-day balances
// ============================================================

// EODPoint is the balance of an account (or portfolio) at the close of Date.
type EODPoint struct {
	Date    time.Time       `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// EODSeries is a contiguous, gap-free run of daily balances in ascending
// date order.
type EODSeries []EODPoint

// Start returns the first date of the series. The zero time if empty.
func (s EODSeries) Start() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Date
}

// End returns the last date of the series. The zero time if empty.
func (s EODSeries) End() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Date
}

// ============================================================
// Reconciliation results
// ============================================================

// Source labels used in verdicts, logs and reports.
const (
	SourceExternal = "external"
	SourceParser   = "parser"
)

// ReconciliationMetrics are the aggregate figures computed for one source.
// AvgMonthlyCreditL6M and AvgEODL6M are NULL (Valid=false) when undefined.
type ReconciliationMetrics struct {
	CreditCount         int                 `json:"credit_count"`
	DebitCount          int                 `json:"debit_count"`
	TotalCredit         decimal.Decimal     `json:"total_credit"`
	TotalDebit          decimal.Decimal     `json:"total_debit"`
	AvgMonthlyCreditL6M decimal.NullDecimal `json:"avg_monthly_credit_l6m"`
	AvgEODL6M           decimal.NullDecimal `json:"avg_eod_l6m"`
}

// MetricChecks records which of the compared metrics agreed after rounding.
type MetricChecks struct {
	TotalCredit         bool `json:"total_credit"`
	TotalDebit          bool `json:"total_debit"`
	AvgMonthlyCreditL6M bool `json:"avg_monthly_credit_l6m"`
	AvgEODL6M           bool `json:"avg_eod_l6m"`
}

// All reports whether every compared metric agreed.
func (c MetricChecks) All() bool {
	return c.TotalCredit && c.TotalDebit && c.AvgMonthlyCreditL6M && c.AvgEODL6M
}

// ReconciliationVerdict is the outcome of comparing two sources.
type ReconciliationVerdict struct {
	AllMatch bool                  `json:"all_match"`
	Checks   MetricChecks          `json:"checks"`
	SourceA  ReconciliationMetrics `json:"source_a"`
	SourceB  ReconciliationMetrics `json:"source_b"`
}

// Comparison is a verdict together with the date-aligned, zero-filtered
// tables it was computed from.
type Comparison struct {
	Verdict ReconciliationVerdict `json:"verdict"`
	Range   DateRange             `json:"range"`
	SourceA []Transaction         `json:"-"`
	SourceB []Transaction         `json:"-"`
}
