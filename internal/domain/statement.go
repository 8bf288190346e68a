package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date layout used on the wire and in reports.
const DateLayout = "2006-01-02"

// ============================================================
// Transactions (canonical schema)
// ============================================================

// Transaction is one statement line in the canonical schema shared by both
// sources. Amount is signed: positive = credit, negative = debit.
type Transaction struct {
	Date      time.Time       `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Balance   decimal.Decimal `json:"balance"`
	Category  string          `json:"category"`
	Narration string          `json:"narration"`
	Reference string          `json:"reference"`
	AccountID string          `json:"account_id"`

	// Sequence orders transactions of the same account. The last transaction
	// of a calendar day is the one with the highest Sequence.
	Sequence int `json:"sequence"`
}

// IsCredit reports whether the transaction adds money to the account.
func (t Transaction) IsCredit() bool { return t.Amount.IsPositive() }

// IsDebit reports whether the transaction removes money from the account.
func (t Transaction) IsDebit() bool { return t.Amount.IsNegative() }

// SameRow reports whether two transactions carry identical business fields.
// Sequence is positional and deliberately not part of row identity.
func (t Transaction) SameRow(o Transaction) bool {
	return t.Date.Equal(o.Date) &&
		t.Amount.Equal(o.Amount) &&
		t.Balance.Equal(o.Balance) &&
		t.Category == o.Category &&
		t.Narration == o.Narration &&
		t.Reference == o.Reference &&
		t.AccountID == o.AccountID
}

// DateOf truncates t to a UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ============================================================
// Per-account tables
// ============================================================

// RawRow is one undecoded transaction record as a source delivers it,
// keyed by the source's own field names.
type RawRow map[string]any

// RawStatement is a source's per-account table before normalization. It
// decodes from either a bare array of rows or a labelled object
// {"label": "...", "transactions": [...]}.
type RawStatement struct {
	Label string   `json:"label,omitempty"`
	Rows  []RawRow `json:"transactions"`
}

// UnmarshalJSON accepts both the bare-array and the labelled form. Numbers
// are kept as json.Number so amounts reach the normalizer unrounded.
func (s *RawStatement) UnmarshalJSON(data []byte) error {
	var rows []RawRow
	if err := decodeNumbers(data, &rows); err == nil {
		s.Label = ""
		s.Rows = rows
		return nil
	}

	var labelled struct {
		Label        string   `json:"label"`
		Transactions []RawRow `json:"transactions"`
	}
	if err := decodeNumbers(data, &labelled); err != nil {
		return fmt.Errorf("account table must be an array of rows or a labelled object: %w", err)
	}
	s.Label = labelled.Label
	s.Rows = labelled.Transactions
	return nil
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// RawLedger maps account number to that account's raw table.
type RawLedger map[string]RawStatement

// AccountStatement is one account's normalized transactions, in occurrence
// order, optionally tagged with a source-provided label.
type AccountStatement struct {
	Label        string        `json:"label,omitempty"`
	Transactions []Transaction `json:"transactions"`
}

// AccountLedger maps account_id to that account's statement.
type AccountLedger map[string]AccountStatement

// TransactionCount returns the number of transactions across all accounts.
func (l AccountLedger) TransactionCount() int {
	n := 0
	for _, st := range l {
		n += len(st.Transactions)
	}
	return n
}

// DateRange is a span of calendar dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// String renders the range as "start..end".
func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}
