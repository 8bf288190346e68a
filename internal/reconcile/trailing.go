package reconcile

import (
	"github.com/boddenberg/statement-recon-go/internal/domain"

	"github.com/shopspring/decimal"
)

// SeriesTrailingAverage is the mean balance of the last windowDays days of
// s, ending at the series' own last date. NULL for an empty series.
func SeriesTrailingAverage(s domain.EODSeries, windowDays int) decimal.NullDecimal {
	if len(s) == 0 {
		return decimal.NullDecimal{}
	}
	if windowDays <= 0 {
		windowDays = DefaultTrailingWindowDays
	}
	from := s.End().AddDate(0, 0, -(windowDays - 1))

	sum := decimal.Zero
	n := int64(0)
	for _, p := range s {
		if p.Date.Before(from) {
			continue
		}
		sum = sum.Add(p.Balance)
		n++
	}
	if n == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(sum.Div(decimal.NewFromInt(n)))
}

// TrailingAverageEOD averages each account's EOD balance over that account's
// own trailing window and sums the per-account averages. Accounts whose
// average is undefined are left out of the sum; if no account contributes
// the result is NULL.
func TrailingAverageEOD(txns []domain.Transaction, opts Options) decimal.NullDecimal {
	opts = opts.normalized()
	ledger := SplitAccounts(txns)

	var total decimal.NullDecimal
	for _, accountID := range sortedKeys(ledger) {
		avg := SeriesTrailingAverage(EODBalances(ledger[accountID].Transactions, opts), opts.TrailingWindowDays)
		if !avg.Valid {
			continue
		}
		total = decimal.NewNullDecimal(total.Decimal.Add(avg.Decimal))
	}
	return total
}
