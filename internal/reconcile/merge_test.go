package reconcile_test

import (
	"testing"

	"github.com/boddenberg/statement-recon-go/internal/domain"
	"github.com/boddenberg/statement-recon-go/internal/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeAccounts_TagsAndDeduplicates(t *testing.T) {
	l := domain.AccountLedger{
		"B-2": {Transactions: []domain.Transaction{
			tx("", "2024-01-02", "5", "5", 0),
		}},
		"A-1": {Label: "current", Transactions: []domain.Transaction{
			tx("", "2024-01-03", "10", "10", 0),
			tx("", "2024-01-01", "20", "30", 1),
			tx("", "2024-01-03", "10", "10", 2),
		}},
	}

	merged := reconcile.MergeAccounts(l)

	require.Len(t, merged, 3)
	assert.Equal(t, "A-1", merged[0].AccountID)
	assert.Equal(t, day("2024-01-03"), merged[0].Date)
	assert.Equal(t, "A-1", merged[1].AccountID)
	assert.Equal(t, day("2024-01-01"), merged[1].Date, "rows keep their order")
	assert.Equal(t, "B-2", merged[2].AccountID)
}

func TestMergeAccounts_SameRowInDifferentAccountsIsKept(t *testing.T) {
	row := tx("", "2024-01-01", "1", "1", 0)
	l := domain.AccountLedger{
		"A": {Transactions: []domain.Transaction{row}},
		"B": {Transactions: []domain.Transaction{row}},
	}

	assert.Len(t, reconcile.MergeAccounts(l), 2)
}

func TestSplitAccounts_RoundTrip(t *testing.T) {
	merged := reconcile.MergeAccounts(ledger("X", "Y"))

	split := reconcile.SplitAccounts(merged)

	require.Len(t, split, 2)
	assert.Len(t, split["X"].Transactions, len(statement("X")))
	assert.Equal(t, 7, split["Y"].Transactions[7].Sequence)
}
