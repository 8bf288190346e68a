package reconcile

import (
	"sort"
	"time"

	"github.com/boddenberg/statement-recon-go/internal/domain"

	"github.com/shopspring/decimal"
)

// AggregateEOD sums per-account EOD series into one series over the union of
// their dates. An account with no entry on a date contributes zero to that
// date, including dates before its own window starts.
//
// TODO: decide whether accounts outside their window should be excluded
// instead of counted as zero once portfolio-level balances near account
// history boundaries are compared.
func AggregateEOD(series ...domain.EODSeries) domain.EODSeries {
	totals := make(map[time.Time]decimal.Decimal)
	for _, s := range series {
		for _, p := range s {
			totals[p.Date] = totals[p.Date].Add(p.Balance)
		}
	}

	dates := make([]time.Time, 0, len(totals))
	for d := range totals {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make(domain.EODSeries, len(dates))
	for i, d := range dates {
		out[i] = domain.EODPoint{Date: d, Balance: totals[d]}
	}
	return out
}

// PortfolioEOD builds each account's EOD series from a merged table and
// aggregates them across accounts.
func PortfolioEOD(txns []domain.Transaction, opts Options) domain.EODSeries {
	ledger := SplitAccounts(txns)
	series := make([]domain.EODSeries, 0, len(ledger))
	for _, accountID := range sortedKeys(ledger) {
		series = append(series, EODBalances(ledger[accountID].Transactions, opts))
	}
	return AggregateEOD(series...)
}
