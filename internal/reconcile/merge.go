package reconcile

import (
	"strings"

	"github.com/boddenberg/statement-recon-go/internal/domain"
)

// MergeAccounts flattens a ledger into one table. Every row is tagged with
// its ledger key as AccountID, accounts are visited in ascending account
// order, rows keep their order within an account, and exact duplicate rows
// are dropped keeping the first occurrence.
func MergeAccounts(ledger domain.AccountLedger) []domain.Transaction {
	merged := make([]domain.Transaction, 0, ledger.TransactionCount())
	seen := make(map[string]struct{}, ledger.TransactionCount())

	for _, accountID := range sortedKeys(ledger) {
		for _, t := range ledger[accountID].Transactions {
			t.AccountID = accountID
			key := rowKey(t)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, t)
		}
	}
	return merged
}

// SplitAccounts is the inverse of MergeAccounts for a pre-merged table:
// rows are grouped by AccountID, preserving their relative order.
func SplitAccounts(txns []domain.Transaction) domain.AccountLedger {
	ledger := make(domain.AccountLedger)
	for _, t := range txns {
		st := ledger[t.AccountID]
		st.Transactions = append(st.Transactions, t)
		ledger[t.AccountID] = st
	}
	return ledger
}

func rowKey(t domain.Transaction) string {
	var b strings.Builder
	b.WriteString(t.AccountID)
	b.WriteByte(0)
	b.WriteString(t.Date.Format(domain.DateLayout))
	b.WriteByte(0)
	b.WriteString(t.Amount.String())
	b.WriteByte(0)
	b.WriteString(t.Balance.String())
	b.WriteByte(0)
	b.WriteString(t.Category)
	b.WriteByte(0)
	b.WriteString(t.Narration)
	b.WriteByte(0)
	b.WriteString(t.Reference)
	return b.String()
}
