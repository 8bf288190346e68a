package reconcile_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/boddenberg/statement-recon-go/internal/domain"
	"github.com/boddenberg/statement-recon-go/internal/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_ExternalSchema(t *testing.T) {
	rows := []domain.RawRow{
		{"date": "2024-01-02", "amount": json.Number("1500.75"), "balance": json.Number("2500.75"),
			"category": "Salary", "narration": "NEFT ACME PAYROLL", "chqNo": json.Number("123456")},
		{"date": "2024-01-03", "amount": -200.5, "balance": "2,300.25", "narration": " ATM "},
	}

	txns, err := reconcile.Normalize(reconcile.ExternalSchema, "ACC-1", rows)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, day("2024-01-02"), txns[0].Date)
	assert.True(t, txns[0].Amount.Equal(dec("1500.75")))
	assert.True(t, txns[0].Balance.Equal(dec("2500.75")))
	assert.Equal(t, "Salary", txns[0].Category)
	assert.Equal(t, "123456", txns[0].Reference)
	assert.Equal(t, "ACC-1", txns[0].AccountID)
	assert.Equal(t, 0, txns[0].Sequence)

	assert.True(t, txns[1].Amount.Equal(dec("-200.5")))
	assert.True(t, txns[1].Balance.Equal(dec("2300.25")))
	assert.Equal(t, "ATM", txns[1].Narration)
	assert.Equal(t, "", txns[1].Reference)
	assert.Equal(t, 1, txns[1].Sequence)
}

func TestNormalize_ParserSchema(t *testing.T) {
	rows := []domain.RawRow{
		{"Date": "02/01/2024", "Amount": "10", "Balance": "10", "Ref No./Cheque No.": "UTR99"},
	}

	txns, err := reconcile.Normalize(reconcile.ParserSchema, "ACC-2", rows)
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-02"), txns[0].Date)
	assert.Equal(t, "UTR99", txns[0].Reference)
}

func TestNormalize_MissingRequiredField(t *testing.T) {
	rows := []domain.RawRow{
		{"date": "2024-01-02", "amount": "1", "balance": "1"},
		{"date": "2024-01-03", "amount": "1"},
	}

	_, err := reconcile.Normalize(reconcile.ExternalSchema, "ACC-1", rows)

	var schemaErr *domain.ErrSchema
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "balance", schemaErr.Field)
	assert.Equal(t, 1, schemaErr.Row)
}

func TestNormalize_MalformedValues(t *testing.T) {
	cases := map[string]domain.RawRow{
		"date":    {"date": "yesterday", "amount": "1", "balance": "1"},
		"amount":  {"date": "2024-01-01", "amount": "12abc", "balance": "1"},
		"balance": {"date": "2024-01-01", "amount": "1", "balance": ""},
	}
	for field, row := range cases {
		_, err := reconcile.Normalize(reconcile.ExternalSchema, "ACC-1", []domain.RawRow{row})

		var formatErr *domain.ErrDataFormat
		require.True(t, errors.As(err, &formatErr), field)
		assert.Equal(t, field, formatErr.Field)
	}
}

func TestNormalizeLedger_LabelledAndBareTables(t *testing.T) {
	payload := []byte(`{
		"ACC-1": [{"date": "2024-01-01", "amount": 10.10, "balance": 10.10}],
		"ACC-2": {"label": "savings", "transactions": [{"date": "2024-01-02", "amount": -1, "balance": 9}]}
	}`)

	var raw domain.RawLedger
	require.NoError(t, json.Unmarshal(payload, &raw))

	l, err := reconcile.NormalizeLedger(reconcile.ExternalSchema, raw)
	require.NoError(t, err)

	require.Len(t, l, 2)
	assert.Equal(t, "", l["ACC-1"].Label)
	assert.True(t, l["ACC-1"].Transactions[0].Amount.Equal(dec("10.10")))
	assert.Equal(t, "savings", l["ACC-2"].Label)
	assert.Equal(t, "ACC-2", l["ACC-2"].Transactions[0].AccountID)
}

func TestNormalizeLedger_WrapsAccountInError(t *testing.T) {
	raw := domain.RawLedger{"ACC-9": {Rows: []domain.RawRow{{"amount": "1", "balance": "1"}}}}

	_, err := reconcile.NormalizeLedger(reconcile.ExternalSchema, raw)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACC-9")
	var schemaErr *domain.ErrSchema
	assert.True(t, errors.As(err, &schemaErr))
}

func TestSchemaByName(t *testing.T) {
	s, ok := reconcile.SchemaByName("External")
	assert.True(t, ok)
	assert.Equal(t, reconcile.ExternalSchema, s)

	s, ok = reconcile.SchemaByName("")
	assert.True(t, ok)
	assert.Equal(t, reconcile.CanonicalSchema, s)

	_, ok = reconcile.SchemaByName("bank-of-nowhere")
	assert.False(t, ok)
}
