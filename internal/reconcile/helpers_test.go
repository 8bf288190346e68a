package reconcile_test

import (
	"time"

	"github.com/boddenberg/statement-recon-go/internal/domain"

	"github.com/shopspring/decimal"
)

func day(s string) time.Time {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tx(account, date, amount, balance string, seq int) domain.Transaction {
	return domain.Transaction{
		Date:      day(date),
		Amount:    dec(amount),
		Balance:   dec(balance),
		Narration: "txn " + date,
		AccountID: account,
		Sequence:  seq,
	}
}

// statement builds a small two-month history for one account with
// boundary rows on the first and last day.
func statement(account string) []domain.Transaction {
	return []domain.Transaction{
		tx(account, "2024-01-01", "1000.00", "1000.00", 0),
		tx(account, "2024-01-05", "250.50", "1250.50", 1),
		tx(account, "2024-01-10", "-100.25", "1150.25", 2),
		tx(account, "2024-01-10", "-50.00", "1100.25", 3),
		tx(account, "2024-02-01", "3000.00", "4100.25", 4),
		tx(account, "2024-02-14", "-899.99", "3200.26", 5),
		tx(account, "2024-02-28", "10.00", "3210.26", 6),
		tx(account, "2024-03-01", "-10.00", "3200.26", 7),
	}
}

func ledger(accounts ...string) domain.AccountLedger {
	l := make(domain.AccountLedger, len(accounts))
	for _, a := range accounts {
		l[a] = domain.AccountStatement{Transactions: statement(a)}
	}
	return l
}
