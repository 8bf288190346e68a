// Package report writes reconciliation results to disk: one workbook per
// reference with both filtered tables and the summary, a portfolio EOD
// chart and a batch results workbook.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/boddenberg/statement-recon-go/internal/domain"
	"github.com/boddenberg/statement-recon-go/internal/reconcile"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Output file names.
const (
	FileChart   = "eod.png"
	FileResults = "results.xlsx"
)

// Workbook sheet names.
const (
	SheetSourceA = "Perfios Transactions"
	SheetSourceB = "Parser Transactions"
	SheetSummary = "Summary Output"
	SheetResults = "Results"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Exporter writes reports under a root directory.
type Exporter struct {
	root   string
	opts   reconcile.Options
	logger *zap.Logger
}

// NewExporter creates an Exporter rooted at dir.
func NewExporter(dir string, opts reconcile.Options, logger *zap.Logger) *Exporter {
	return &Exporter{root: dir, opts: opts, logger: logger}
}

// WorkbookName is the file name of a reference's workbook.
func WorkbookName(referenceID string) string {
	return safeName(referenceID) + ".xlsx"
}

// ExportComparison writes <root>/<reference>/<reference>.xlsx with the two
// filtered tables and the summary, plus eod.png beside it. The chart is
// also placed on the summary sheet. A chart that cannot be drawn is
// skipped with a warning.
func (e *Exporter) ExportComparison(_ context.Context, referenceID string, c *domain.Comparison) (string, error) {
	dir := filepath.Join(e.root, safeName(referenceID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSourceA); err != nil {
		return "", fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSheet(f, SheetSourceA, transactionRows(c.SourceA)); err != nil {
		return "", err
	}
	if err := writeSheet(f, SheetSourceB, transactionRows(c.SourceB)); err != nil {
		return "", err
	}
	if err := writeSheet(f, SheetSummary, summaryRows(c)); err != nil {
		return "", err
	}

	png, err := RenderEODChart(
		reconcile.PortfolioEOD(c.SourceA, e.opts),
		reconcile.PortfolioEOD(c.SourceB, e.opts),
	)
	if err != nil {
		e.logger.Warn("skipping EOD chart",
			zap.String("reference_id", referenceID),
			zap.Error(err),
		)
	} else {
		if err := os.WriteFile(filepath.Join(dir, FileChart), png, 0o644); err != nil {
			return "", fmt.Errorf("write chart: %w", err)
		}
		if err := f.AddPictureFromBytes(SheetSummary, "D2", &excelize.Picture{
			Extension: ".png",
			File:      png,
			Format:    &excelize.GraphicOptions{AltText: "Portfolio EOD balance"},
		}); err != nil {
			return "", fmt.Errorf("embed chart: %w", err)
		}
	}

	path := filepath.Join(dir, WorkbookName(referenceID))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return dir, nil
}

// ExportBatch writes <root>/results.xlsx with one row per item.
func (e *Exporter) ExportBatch(_ context.Context, results []domain.ItemResult) (string, error) {
	if err := os.MkdirAll(e.root, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	rows := [][]any{{
		"reference_id", "run_id", "match",
		"total_credit_b", "total_credit_a",
		"total_debit_b", "total_debit_a",
		"avg_monthly_credit_l6m_a", "avg_monthly_credit_l6m_b",
		"avg_eod_l6m_a", "avg_eod_l6m_b",
		"directory", "error",
	}}
	for _, r := range results {
		row := make([]any, 13)
		row[0] = r.Item.ReferenceID
		row[11] = r.Item.Directory
		if r.Err != nil {
			row[12] = r.Err.Error()
		}
		if r.OK() {
			v := r.Outcome.Comparison.Verdict
			row[1] = r.Outcome.RunID
			row[2] = v.AllMatch
			row[3] = number(v.SourceB.TotalCredit)
			row[4] = number(v.SourceA.TotalCredit)
			row[5] = number(v.SourceB.TotalDebit)
			row[6] = number(v.SourceA.TotalDebit)
			row[7] = nullNumber(v.SourceA.AvgMonthlyCreditL6M)
			row[8] = nullNumber(v.SourceB.AvgMonthlyCreditL6M)
			row[9] = nullNumber(v.SourceA.AvgEODL6M)
			row[10] = nullNumber(v.SourceB.AvgEODL6M)
		}
		rows = append(rows, row)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetResults); err != nil {
		return "", fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSheet(f, SheetResults, rows); err != nil {
		return "", err
	}

	path := filepath.Join(e.root, FileResults)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

func summaryRows(c *domain.Comparison) [][]any {
	v := c.Verdict
	return [][]any{
		{"metric", "value"},
		{"all_match", v.AllMatch},
		{"range_start", c.Range.Start.Format(domain.DateLayout)},
		{"range_end", c.Range.End.Format(domain.DateLayout)},
		{"source_b_total_credit", number(v.SourceB.TotalCredit)},
		{"source_a_total_credit", number(v.SourceA.TotalCredit)},
		{"source_b_total_debit", number(v.SourceB.TotalDebit)},
		{"source_a_total_debit", number(v.SourceA.TotalDebit)},
		{"source_a_avg_monthly_credit_l6m", nullNumber(v.SourceA.AvgMonthlyCreditL6M)},
		{"source_b_avg_monthly_credit_l6m", nullNumber(v.SourceB.AvgMonthlyCreditL6M)},
		{"source_a_avg_eod_l6m", nullNumber(v.SourceA.AvgEODL6M)},
		{"source_b_avg_eod_l6m", nullNumber(v.SourceB.AvgEODL6M)},
		{"source_a_credit_count", v.SourceA.CreditCount},
		{"source_b_credit_count", v.SourceB.CreditCount},
		{"source_a_debit_count", v.SourceA.DebitCount},
		{"source_b_debit_count", v.SourceB.DebitCount},
	}
}

func transactionRows(txns []domain.Transaction) [][]any {
	rows := make([][]any, 0, len(txns)+1)
	rows = append(rows, []any{"date", "amount", "balance", "category", "narration", "reference", "account_id"})
	for _, t := range txns {
		rows = append(rows, []any{
			t.Date.Format(domain.DateLayout),
			number(t.Amount),
			number(t.Balance),
			t.Category,
			t.Narration,
			t.Reference,
			t.AccountID,
		})
	}
	return rows
}

// writeSheet writes rows from A1 down, creating the sheet when missing.
func writeSheet(f *excelize.File, sheet string, rows [][]any) error {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("sheet %s: %w", sheet, err)
	}
	if idx == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// number renders an amount as a numeric cell.
func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// nullNumber leaves the cell empty for an undefined metric.
func nullNumber(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return number(d.Decimal)
}

// safeName maps a reference id onto a directory and file name. Ids that
// need rewriting get a short hash of the original so distinct ids never
// share a name.
func safeName(s string) string {
	name := unsafeChars.ReplaceAllString(s, "_")
	if name == s && name != "" && name != "." && name != ".." {
		return name
	}
	if name == "." || name == ".." {
		name = "_"
	}
	sum := uuid.NewSHA1(uuid.NameSpaceURL, []byte(s)).String()
	return name + "-" + sum[:8]
}
