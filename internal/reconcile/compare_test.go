package reconcile_test

import (
	"errors"
	"testing"

	"github.com/boddenberg/statement-recon-go/internal/domain"
	"github.com/boddenberg/statement-recon-go/internal/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func single(account string, txns ...domain.Transaction) domain.AccountLedger {
	return domain.AccountLedger{account: {Transactions: txns}}
}

func TestReconcile_IdenticalLedgers(t *testing.T) {
	cmp, err := reconcile.Reconcile(ledger("X"), ledger("X"), reconcile.DefaultOptions())
	require.NoError(t, err)

	v := cmp.Verdict
	assert.True(t, v.AllMatch)
	assert.True(t, v.Checks.All())
	assert.Equal(t, day("2024-01-01"), cmp.Range.Start)
	assert.Equal(t, day("2024-03-01"), cmp.Range.End)
	assert.Len(t, cmp.SourceA, 6, "boundary rows are excluded")

	assert.True(t, v.SourceA.TotalCredit.Equal(dec("3260.50")))
	assert.True(t, v.SourceA.TotalDebit.Equal(dec("-1050.24")))
	assert.Equal(t, 3, v.SourceA.CreditCount)
	assert.Equal(t, 3, v.SourceA.DebitCount)
	assert.True(t, v.SourceA.TotalCredit.Equal(v.SourceB.TotalCredit))
	assert.True(t, v.SourceA.AvgEODL6M.Valid)
}

func TestReconcile_ExtraZeroAmountRowStillMatches(t *testing.T) {
	withZero := append(statement("X"), tx("X", "2024-01-20", "0", "1100.25", 8))

	cmp, err := reconcile.Reconcile(ledger("X"), single("X", withZero...), reconcile.DefaultOptions())
	require.NoError(t, err)

	assert.True(t, cmp.Verdict.AllMatch)
	assert.Len(t, cmp.SourceB, 6)
}

func subUnitLedger(credit, creditBalance, closing string) domain.AccountLedger {
	return single("X",
		tx("X", "2024-01-01", "1", "1", 0),
		tx("X", "2024-01-15", credit, creditBalance, 1),
		tx("X", "2024-02-01", "-1", closing, 2),
		tx("X", "2024-03-01", "1", "2", 3),
	)
}

func TestReconcile_SubUnitDifferenceMatches(t *testing.T) {
	a := subUnitLedger("10000.40", "10001.40", "10000.40")
	b := subUnitLedger("10000.41", "10001.41", "10000.41")

	cmp, err := reconcile.Reconcile(a, b, reconcile.DefaultOptions())
	require.NoError(t, err)

	assert.True(t, cmp.Verdict.AllMatch)
	assert.False(t, cmp.Verdict.SourceA.TotalCredit.Equal(cmp.Verdict.SourceB.TotalCredit))
}

func TestReconcile_DifferenceAcrossHalfUnitMismatches(t *testing.T) {
	a := subUnitLedger("10000.40", "10001.40", "10000.40")
	b := subUnitLedger("10000.60", "10001.60", "10000.60")

	cmp, err := reconcile.Reconcile(a, b, reconcile.DefaultOptions())
	require.NoError(t, err)

	assert.False(t, cmp.Verdict.AllMatch)
	assert.False(t, cmp.Verdict.Checks.TotalCredit)
	assert.True(t, cmp.Verdict.Checks.TotalDebit)
}

func TestReconcile_CountsAreNotCompared(t *testing.T) {
	a := single("X",
		tx("X", "2023-01-01", "1", "1", 0),
		tx("X", "2023-01-10", "60", "61", 1),
		tx("X", "2023-01-10", "40", "101", 2),
		tx("X", "2023-12-01", "500", "601", 3),
		tx("X", "2023-12-02", "-1", "600", 4),
		tx("X", "2023-12-31", "1", "601", 5),
	)
	b := single("X",
		tx("X", "2023-01-01", "1", "1", 0),
		tx("X", "2023-01-10", "100", "101", 1),
		tx("X", "2023-12-01", "500", "601", 2),
		tx("X", "2023-12-02", "-1", "600", 3),
		tx("X", "2023-12-31", "1", "601", 4),
	)

	cmp, err := reconcile.Reconcile(a, b, reconcile.DefaultOptions())
	require.NoError(t, err)

	v := cmp.Verdict
	assert.True(t, v.AllMatch)
	assert.Equal(t, 3, v.SourceA.CreditCount)
	assert.Equal(t, 2, v.SourceB.CreditCount)
	assert.True(t, v.SourceA.AvgMonthlyCreditL6M.Decimal.Equal(dec("15000")))
}

func TestReconcile_UndefinedMonthlyCreditOnBothSidesMatches(t *testing.T) {
	debitsOnly := single("X",
		tx("X", "2024-01-01", "100", "100", 0),
		tx("X", "2024-01-10", "-10", "90", 1),
		tx("X", "2024-02-01", "-5", "85", 2),
		tx("X", "2024-03-01", "-5", "80", 3),
	)

	cmp, err := reconcile.Reconcile(debitsOnly, debitsOnly, reconcile.DefaultOptions())
	require.NoError(t, err)

	assert.False(t, cmp.Verdict.SourceA.AvgMonthlyCreditL6M.Valid)
	assert.True(t, cmp.Verdict.Checks.AvgMonthlyCreditL6M)
	assert.True(t, cmp.Verdict.AllMatch)
	assert.True(t, cmp.Verdict.SourceA.TotalCredit.IsZero())
}

func TestCompare_UndefinedAgainstDefinedMismatches(t *testing.T) {
	a := []domain.Transaction{tx("X", "2024-01-10", "-10", "90", 0)}
	b := []domain.Transaction{
		tx("X", "2024-01-10", "-10", "90", 0),
		tx("X", "2024-01-10", "0.2", "90.2", 1),
	}

	v, err := reconcile.Compare(a, b, reconcile.DefaultOptions())
	require.NoError(t, err)

	assert.False(t, v.Checks.AvgMonthlyCreditL6M)
	assert.False(t, v.AllMatch)
	assert.True(t, v.Checks.TotalCredit, "0.2 rounds to zero")
}

func TestCompare_ZeroRowsAreNeverCounted(t *testing.T) {
	a := []domain.Transaction{
		tx("X", "2024-01-10", "0", "90", 0),
		tx("X", "2024-01-11", "5", "95", 1),
		tx("X", "2024-01-12", "0.00", "95", 2),
	}

	v, err := reconcile.Compare(a, a, reconcile.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, v.SourceA.CreditCount)
	assert.Equal(t, 0, v.SourceA.DebitCount)
}

func TestReconcile_RowOrderDoesNotMatter(t *testing.T) {
	rows := statement("X")
	reversed := make([]domain.Transaction, len(rows))
	for i, r := range rows {
		reversed[len(rows)-1-i] = r
	}

	want, err := reconcile.Reconcile(ledger("X"), ledger("X"), reconcile.DefaultOptions())
	require.NoError(t, err)
	got, err := reconcile.Reconcile(single("X", reversed...), ledger("X"), reconcile.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, want.Verdict.Checks, got.Verdict.Checks)
	assert.True(t, got.Verdict.AllMatch)
	assert.True(t, want.Verdict.SourceA.AvgEODL6M.Decimal.Equal(got.Verdict.SourceA.AvgEODL6M.Decimal))
	assert.True(t, want.Verdict.SourceA.AvgMonthlyCreditL6M.Decimal.Equal(got.Verdict.SourceA.AvgMonthlyCreditL6M.Decimal))
}

func TestReconcile_InsufficientData(t *testing.T) {
	t.Run("empty ledger", func(t *testing.T) {
		_, err := reconcile.Reconcile(domain.AccountLedger{}, ledger("X"), reconcile.DefaultOptions())

		var insufficient *domain.ErrInsufficientData
		require.True(t, errors.As(err, &insufficient))
		assert.Equal(t, reconcile.SourceA, insufficient.Source)
	})

	t.Run("only zero amounts inside the span", func(t *testing.T) {
		zeros := single("X",
			tx("X", "2024-01-01", "5", "5", 0),
			tx("X", "2024-01-15", "0", "5", 1),
			tx("X", "2024-03-01", "5", "10", 2),
		)

		_, err := reconcile.Reconcile(ledger("X"), zeros, reconcile.DefaultOptions())

		var insufficient *domain.ErrInsufficientData
		require.True(t, errors.As(err, &insufficient))
		assert.Equal(t, reconcile.SourceB, insufficient.Source)
	})

	t.Run("compare without rows", func(t *testing.T) {
		_, err := reconcile.Compare(nil, statement("X"), reconcile.DefaultOptions())

		var insufficient *domain.ErrInsufficientData
		assert.True(t, errors.As(err, &insufficient))
	})
}

func TestReconcile_DisjointSpans(t *testing.T) {
	late := single("X",
		tx("X", "2025-01-01", "5", "5", 0),
		tx("X", "2025-02-01", "5", "10", 1),
	)

	_, err := reconcile.Reconcile(ledger("X"), late, reconcile.DefaultOptions())

	var empty *domain.ErrEmptyRange
	assert.True(t, errors.As(err, &empty))
}
