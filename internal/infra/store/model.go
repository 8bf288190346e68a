package store

import (
	"encoding/json"
	"time"

	"github.com/boddenberg/statement-recon-go/internal/domain"

	"github.com/shopspring/decimal"
)

// ReconciliationRun is one row of the run log.
type ReconciliationRun struct {
	ID          string `gorm:"primary_key;size:36"`
	ReferenceID string `gorm:"size:100;not null;index"`
	Status      string `gorm:"size:20;not null;index"`
	AllMatch    bool   `gorm:"not null"`
	ErrorText   string `gorm:"type:text"`

	RangeStart *time.Time
	RangeEnd   *time.Time

	TotalCreditA         string `gorm:"size:40"`
	TotalCreditB         string `gorm:"size:40"`
	TotalDebitA          string `gorm:"size:40"`
	TotalDebitB          string `gorm:"size:40"`
	AvgMonthlyCreditL6MA string `gorm:"size:40"`
	AvgMonthlyCreditL6MB string `gorm:"size:40"`
	AvgEODL6MA           string `gorm:"size:40"`
	AvgEODL6MB           string `gorm:"size:40"`

	// Verdict is the full verdict as JSON; the columns above are for queries.
	Verdict string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName pins the table name.
func (ReconciliationRun) TableName() string { return "reconciliation_runs" }

func fromRecord(r *domain.RunRecord) (*ReconciliationRun, error) {
	m := &ReconciliationRun{
		ID:          r.ID,
		ReferenceID: r.ReferenceID,
		Status:      r.Status,
		ErrorText:   r.Error,
		CreatedAt:   r.CreatedAt,
	}
	if r.Range != nil {
		start, end := r.Range.Start, r.Range.End
		m.RangeStart, m.RangeEnd = &start, &end
	}
	if v := r.Verdict; v != nil {
		m.AllMatch = v.AllMatch
		m.TotalCreditA = v.SourceA.TotalCredit.String()
		m.TotalCreditB = v.SourceB.TotalCredit.String()
		m.TotalDebitA = v.SourceA.TotalDebit.String()
		m.TotalDebitB = v.SourceB.TotalDebit.String()
		m.AvgMonthlyCreditL6MA = nullString(v.SourceA.AvgMonthlyCreditL6M)
		m.AvgMonthlyCreditL6MB = nullString(v.SourceB.AvgMonthlyCreditL6M)
		m.AvgEODL6MA = nullString(v.SourceA.AvgEODL6M)
		m.AvgEODL6MB = nullString(v.SourceB.AvgEODL6M)

		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		m.Verdict = string(raw)
	}
	return m, nil
}

func (m *ReconciliationRun) toRecord() (*domain.RunRecord, error) {
	r := &domain.RunRecord{
		ID:          m.ID,
		ReferenceID: m.ReferenceID,
		Status:      m.Status,
		Error:       m.ErrorText,
		CreatedAt:   m.CreatedAt.UTC(),
	}
	if m.RangeStart != nil && m.RangeEnd != nil {
		r.Range = &domain.DateRange{Start: m.RangeStart.UTC(), End: m.RangeEnd.UTC()}
	}
	if m.Verdict != "" {
		var v domain.ReconciliationVerdict
		if err := json.Unmarshal([]byte(m.Verdict), &v); err != nil {
			return nil, err
		}
		r.Verdict = &v
	}
	return r, nil
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
