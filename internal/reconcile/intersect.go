package reconcile

import (
	"time"

	"github.com/boddenberg/statement-recon-go/internal/domain"
)

// CommonRange returns the span both tables cover: the later of the two
// first dates and the earlier of the two last dates. It is symmetric in its
// arguments.
func CommonRange(a, b []domain.Transaction) (domain.DateRange, error) {
	if len(a) == 0 || len(b) == 0 {
		return domain.DateRange{}, &domain.ErrEmptyRange{Reason: "a source has no transactions"}
	}
	firstA, lastA := bounds(a)
	firstB, lastB := bounds(b)

	return domain.DateRange{
		Start: laterOf(firstA, firstB),
		End:   earlierOf(lastA, lastB),
	}, nil
}

// IntersectDateRange keeps, from each table, only the transactions dated
// strictly inside the common range. Both boundary dates are excluded.
func IntersectDateRange(a, b []domain.Transaction) ([]domain.Transaction, []domain.Transaction, domain.DateRange, error) {
	rng, err := CommonRange(a, b)
	if err != nil {
		return nil, nil, rng, err
	}

	fa := withinOpen(a, rng)
	fb := withinOpen(b, rng)
	if len(fa) == 0 || len(fb) == 0 {
		return nil, nil, rng, &domain.ErrEmptyRange{Range: rng, Reason: "no transactions strictly inside the common span"}
	}
	return fa, fb, rng, nil
}

// bounds returns the earliest and latest dates of a non-empty table.
// Merged multi-account tables are not globally date-ordered.
func bounds(txns []domain.Transaction) (first, last time.Time) {
	first, last = txns[0].Date, txns[0].Date
	for _, t := range txns[1:] {
		if t.Date.Before(first) {
			first = t.Date
		}
		if t.Date.After(last) {
			last = t.Date
		}
	}
	return first, last
}

func withinOpen(txns []domain.Transaction, rng domain.DateRange) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.Date.After(rng.Start) && t.Date.Before(rng.End) {
			out = append(out, t)
		}
	}
	return out
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
