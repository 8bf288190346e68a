package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/boddenberg/statement-recon-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Schema names the fields a source uses for each canonical column.
type Schema struct {
	Name      string
	Date      string
	Amount    string
	Balance   string
	Category  string
	Narration string
	Reference string
}

// Known source schemas.
var (
	// ExternalSchema is the third-party verification report layout.
	ExternalSchema = Schema{
		Name:      domain.SourceExternal,
		Date:      "date",
		Amount:    "amount",
		Balance:   "balance",
		Category:  "category",
		Narration: "narration",
		Reference: "chqNo",
	}

	// ParserSchema is the internal document-parsing pipeline layout.
	ParserSchema = Schema{
		Name:      domain.SourceParser,
		Date:      "Date",
		Amount:    "Amount",
		Balance:   "Balance",
		Category:  "Category",
		Narration: "Narration",
		Reference: "Ref No./Cheque No.",
	}

	// CanonicalSchema reads rows already in canonical naming.
	CanonicalSchema = Schema{
		Name:      "canonical",
		Date:      "date",
		Amount:    "amount",
		Balance:   "balance",
		Category:  "category",
		Narration: "narration",
		Reference: "reference",
	}
)

// SchemaByName resolves a schema name as used in API requests.
// An empty name selects CanonicalSchema.
func SchemaByName(name string) (Schema, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", CanonicalSchema.Name:
		return CanonicalSchema, true
	case ExternalSchema.Name:
		return ExternalSchema, true
	case ParserSchema.Name:
		return ParserSchema, true
	}
	return Schema{}, false
}

var dateLayouts = []string{
	domain.DateLayout,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006",
	"02-01-2006",
	"02-Jan-2006",
}

// Normalize maps one account's raw rows onto canonical transactions. Rows
// keep their input order, which becomes their Sequence. Date, amount and
// balance are required; the descriptive fields default to empty.
func Normalize(schema Schema, accountID string, rows []domain.RawRow) ([]domain.Transaction, error) {
	out := make([]domain.Transaction, 0, len(rows))
	for i, row := range rows {
		dateRaw, err := required(schema, row, schema.Date, i)
		if err != nil {
			return nil, err
		}
		amountRaw, err := required(schema, row, schema.Amount, i)
		if err != nil {
			return nil, err
		}
		balanceRaw, err := required(schema, row, schema.Balance, i)
		if err != nil {
			return nil, err
		}

		date, err := parseDate(dateRaw)
		if err != nil {
			return nil, &domain.ErrDataFormat{Field: "date", Value: dateRaw, Row: i, Err: err}
		}
		amount, err := parseDecimal(amountRaw)
		if err != nil {
			return nil, &domain.ErrDataFormat{Field: "amount", Value: amountRaw, Row: i, Err: err}
		}
		balance, err := parseDecimal(balanceRaw)
		if err != nil {
			return nil, &domain.ErrDataFormat{Field: "balance", Value: balanceRaw, Row: i, Err: err}
		}

		out = append(out, domain.Transaction{
			Date:      date,
			Amount:    amount,
			Balance:   balance,
			Category:  optional(row, schema.Category),
			Narration: optional(row, schema.Narration),
			Reference: optional(row, schema.Reference),
			AccountID: accountID,
			Sequence:  i,
		})
	}
	return out, nil
}

// NormalizeLedger normalizes every account table of a source.
func NormalizeLedger(schema Schema, raw domain.RawLedger) (domain.AccountLedger, error) {
	ledger := make(domain.AccountLedger, len(raw))
	for _, accountID := range sortedKeys(raw) {
		st := raw[accountID]
		txns, err := Normalize(schema, accountID, st.Rows)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", accountID, err)
		}
		ledger[accountID] = domain.AccountStatement{Label: st.Label, Transactions: txns}
	}
	return ledger, nil
}

func required(schema Schema, row domain.RawRow, field string, i int) (any, error) {
	v, ok := row[field]
	if !ok || v == nil {
		return nil, &domain.ErrSchema{Source: schema.Name, Field: field, Row: i}
	}
	return v, nil
}

func optional(row domain.RawRow, field string) string {
	if field == "" {
		return ""
	}
	switch v := row[field].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func parseDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return domain.DateOf(t), nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return domain.DateOf(parsed), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised date layout")
	}
	return time.Time{}, fmt.Errorf("unsupported date type %T", v)
}

func parseDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case json.Number:
		return decimal.NewFromString(n.String())
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if s == "" {
			return decimal.Zero, errors.New("empty value")
		}
		return decimal.NewFromString(s)
	}
	return decimal.Zero, fmt.Errorf("unsupported numeric type %T", v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
