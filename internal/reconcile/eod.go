package reconcile

import (
	"time"

	"github.com/boddenberg/statement-recon-go/internal/domain"

	"github.com/shopspring/decimal"
)

// EODBalances derives the daily end-of-day balance series of one account.
//
// The closing balance of a day is the balance of that day's transaction with
// the highest Sequence (later input position breaks ties). The series spans
// [end - EODLookbackMonths, end] where end is the last transaction date.
// Days without a transaction carry the previous day's balance forward; days
// before the first in-window transaction take the first known balance. An
// empty input yields an empty series.
func EODBalances(txns []domain.Transaction, opts Options) domain.EODSeries {
	if len(txns) == 0 {
		return domain.EODSeries{}
	}
	opts = opts.normalized()

	closing := closingBalances(txns)

	var end time.Time
	for d := range closing {
		if d.After(end) {
			end = d
		}
	}
	start := subtractMonths(end, opts.EODLookbackMonths)

	days := daysBetween(start, end) + 1
	values := make([]decimal.NullDecimal, days)
	for i := range values {
		if bal, ok := closing[start.AddDate(0, 0, i)]; ok {
			values[i] = decimal.NewNullDecimal(bal)
		}
	}
	values = fillGaps(values)

	series := make(domain.EODSeries, days)
	for i, v := range values {
		series[i] = domain.EODPoint{Date: start.AddDate(0, 0, i), Balance: v.Decimal}
	}
	return series
}

type closingEntry struct {
	sequence int
	index    int
	balance  decimal.Decimal
}

func closingBalances(txns []domain.Transaction) map[time.Time]decimal.Decimal {
	last := make(map[time.Time]closingEntry)
	for i, t := range txns {
		d := domain.DateOf(t.Date)
		cur, ok := last[d]
		if !ok || t.Sequence > cur.sequence || (t.Sequence == cur.sequence && i > cur.index) {
			last[d] = closingEntry{sequence: t.Sequence, index: i, balance: t.Balance}
		}
	}

	out := make(map[time.Time]decimal.Decimal, len(last))
	for d, e := range last {
		out[d] = e.balance
	}
	return out
}

// fillGaps forward-fills missing values from the latest earlier value, then
// back-fills a missing head from the earliest later value. The input is not
// modified. Applying fillGaps to its own output returns it unchanged.
func fillGaps(values []decimal.NullDecimal) []decimal.NullDecimal {
	out := make([]decimal.NullDecimal, len(values))
	copy(out, values)

	var carry decimal.NullDecimal
	for i := range out {
		if out[i].Valid {
			carry = out[i]
		} else if carry.Valid {
			out[i] = carry
		}
	}

	carry = decimal.NullDecimal{}
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Valid {
			carry = out[i]
		} else if carry.Valid {
			out[i] = carry
		}
	}
	return out
}

// subtractMonths moves t back n calendar months, clamping to the last day
// of the target month (March 31 minus one month is February 28 or 29).
func subtractMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m-time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
