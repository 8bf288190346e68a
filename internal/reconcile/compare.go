package reconcile

import (
	"time"

	"github.com/boddenberg/statement-recon-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Labels of the two compared sources.
const (
	SourceA = "source_a"
	SourceB = "source_b"
)

// DropZeroAmounts returns the transactions that moved money.
func DropZeroAmounts(txns []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txns))
	for _, t := range txns {
		if !t.Amount.IsZero() {
			out = append(out, t)
		}
	}
	return out
}

// ComputeMetrics computes the aggregate figures of one zero-filtered table.
func ComputeMetrics(txns []domain.Transaction, opts Options) domain.ReconciliationMetrics {
	opts = opts.normalized()

	var m domain.ReconciliationMetrics
	credit, debit := decimal.Zero, decimal.Zero
	for _, t := range txns {
		switch {
		case t.IsCredit():
			m.CreditCount++
			credit = credit.Add(t.Amount)
		case t.IsDebit():
			m.DebitCount++
			debit = debit.Add(t.Amount)
		}
	}
	m.TotalCredit = credit.RoundBank(2)
	m.TotalDebit = debit.RoundBank(2)
	m.AvgMonthlyCreditL6M = avgMonthlyCredit(txns, opts)
	m.AvgEODL6M = TrailingAverageEOD(txns, opts)
	return m
}

// avgMonthlyCredit is the mean credit dated after (last date - window),
// scaled to a month. NULL when no credit qualifies.
func avgMonthlyCredit(txns []domain.Transaction, opts Options) decimal.NullDecimal {
	if len(txns) == 0 {
		return decimal.NullDecimal{}
	}
	var last time.Time
	for _, t := range txns {
		if t.Date.After(last) {
			last = t.Date
		}
	}
	cutoff := last.AddDate(0, 0, -opts.CreditWindowDays)

	sum := decimal.Zero
	n := int64(0)
	for _, t := range txns {
		if t.IsCredit() && t.Date.After(cutoff) {
			sum = sum.Add(t.Amount)
			n++
		}
	}
	if n == 0 {
		return decimal.NullDecimal{}
	}
	mean := sum.Div(decimal.NewFromInt(n))
	return decimal.NewNullDecimal(mean.Mul(decimal.NewFromInt(int64(opts.CreditMonthDays))))
}

// Compare computes both sources' metrics from date-aligned tables and
// decides whether they agree. Zero-amount rows are dropped first. Only the
// credit total, debit total, monthly credit rate and trailing EOD average
// take part in the decision, each rounded to the nearest integer; the
// credit and debit counts are reported but never compared.
func Compare(a, b []domain.Transaction, opts Options) (*domain.ReconciliationVerdict, error) {
	fa, fb, err := dropZeros(a, b)
	if err != nil {
		return nil, err
	}
	v := compareFiltered(fa, fb, opts)
	return &v, nil
}

func dropZeros(a, b []domain.Transaction) ([]domain.Transaction, []domain.Transaction, error) {
	if err := requireRows(SourceA, a, "no transactions"); err != nil {
		return nil, nil, err
	}
	if err := requireRows(SourceB, b, "no transactions"); err != nil {
		return nil, nil, err
	}
	fa, fb := DropZeroAmounts(a), DropZeroAmounts(b)
	if err := requireRows(SourceA, fa, "only zero-amount transactions"); err != nil {
		return nil, nil, err
	}
	if err := requireRows(SourceB, fb, "only zero-amount transactions"); err != nil {
		return nil, nil, err
	}
	return fa, fb, nil
}

func requireRows(source string, txns []domain.Transaction, reason string) error {
	if len(txns) == 0 {
		return &domain.ErrInsufficientData{Source: source, Reason: reason}
	}
	return nil
}

func compareFiltered(a, b []domain.Transaction, opts Options) domain.ReconciliationVerdict {
	ma := ComputeMetrics(a, opts)
	mb := ComputeMetrics(b, opts)

	checks := domain.MetricChecks{
		TotalCredit:         roundedEqual(ma.TotalCredit, mb.TotalCredit),
		TotalDebit:          roundedEqual(ma.TotalDebit, mb.TotalDebit),
		AvgMonthlyCreditL6M: roundedNullEqual(ma.AvgMonthlyCreditL6M, mb.AvgMonthlyCreditL6M),
		AvgEODL6M:           roundedNullEqual(ma.AvgEODL6M, mb.AvgEODL6M),
	}
	return domain.ReconciliationVerdict{
		AllMatch: checks.All(),
		Checks:   checks,
		SourceA:  ma,
		SourceB:  mb,
	}
}

// roundedEqual compares two values rounded half-to-even to an integer.
func roundedEqual(a, b decimal.Decimal) bool {
	return a.RoundBank(0).Equal(b.RoundBank(0))
}

// roundedNullEqual treats two undefined values as equal and an undefined
// value as different from any defined one.
func roundedNullEqual(a, b decimal.NullDecimal) bool {
	if !a.Valid || !b.Valid {
		return a.Valid == b.Valid
	}
	return roundedEqual(a.Decimal, b.Decimal)
}

// ============================================================
// Full pipeline
// ============================================================

// Reconcile merges both ledgers, aligns them on their common date span and
// compares them. The returned Comparison carries the zero-filtered,
// date-aligned tables the verdict was computed from.
func Reconcile(a, b domain.AccountLedger, opts Options) (*domain.Comparison, error) {
	return ReconcileTables(MergeAccounts(a), MergeAccounts(b), opts)
}

// ReconcileTables is Reconcile for tables that are already merged and
// carry their AccountID.
func ReconcileTables(a, b []domain.Transaction, opts Options) (*domain.Comparison, error) {
	if err := requireRows(SourceA, a, "no transactions"); err != nil {
		return nil, err
	}
	if err := requireRows(SourceB, b, "no transactions"); err != nil {
		return nil, err
	}

	ia, ib, rng, err := IntersectDateRange(a, b)
	if err != nil {
		return nil, err
	}

	fa, fb, err := dropZeros(ia, ib)
	if err != nil {
		return nil, err
	}

	return &domain.Comparison{
		Verdict: compareFiltered(fa, fb, opts),
		Range:   rng,
		SourceA: fa,
		SourceB: fb,
	}, nil
}
