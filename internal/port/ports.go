// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/statement-recon-go/internal/domain"
)

// StatementFetcher retrieves the third-party verification report for an
// external reference id, as raw per-account rows.
type StatementFetcher interface {
	FetchStatement(ctx context.Context, referenceID string) (domain.RawLedger, error)
}

// DocumentParser runs the internal parsing pipeline over statement
// documents and returns raw per-account rows.
type DocumentParser interface {
	ParseDocuments(ctx context.Context, paths []string) (domain.RawLedger, error)
}

// Cache provides generic caching.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// RunStore persists reconciliation runs.
type RunStore interface {
	SaveRun(ctx context.Context, run *domain.RunRecord) error
	GetRun(ctx context.Context, id string) (*domain.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

// ReportExporter writes human-readable reconciliation reports.
type ReportExporter interface {
	// ExportComparison writes the per-reference report and returns its directory.
	ExportComparison(ctx context.Context, referenceID string, c *domain.Comparison) (string, error)
	// ExportBatch writes the batch summary and returns its path.
	ExportBatch(ctx context.Context, results []domain.ItemResult) (string, error)
}
