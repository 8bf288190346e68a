package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/statement-recon-go/internal/domain"
	"github.com/boddenberg/statement-recon-go/internal/infra/observability"
	"github.com/boddenberg/statement-recon-go/internal/port"
	"github.com/boddenberg/statement-recon-go/internal/reconcile"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("service/reconciler")

// Upstream service names used in logs and metrics.
const (
	serviceStatement = "statement-service"
	serviceParser    = "parser"
)

// Reconciler runs reconciliations: it gathers both sources, drives the
// engine, records the run and exports reports.
type Reconciler struct {
	statements port.StatementFetcher
	parser     port.DocumentParser
	cache      port.Cache[domain.RawLedger]
	store      port.RunStore
	exporter   port.ReportExporter
	metrics    *observability.Metrics
	logger     *zap.Logger

	// fetches collapses concurrent cache misses for one reference.
	fetches singleflight.Group

	opts             reconcile.Options
	batchConcurrency int
}

// NewReconciler creates the reconciliation service. store and exporter may
// be nil, in which case runs are not persisted or reports not written.
func NewReconciler(
	statements port.StatementFetcher,
	parser port.DocumentParser,
	cache port.Cache[domain.RawLedger],
	store port.RunStore,
	exporter port.ReportExporter,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts reconcile.Options,
	batchConcurrency int,
) *Reconciler {
	if batchConcurrency < 1 {
		batchConcurrency = 1
	}
	return &Reconciler{
		statements:       statements,
		parser:           parser,
		cache:            cache,
		store:            store,
		exporter:         exporter,
		metrics:          metrics,
		logger:           logger,
		opts:             opts,
		batchConcurrency: batchConcurrency,
	}
}

// ReconcileRaw normalizes two raw ledgers with their schemas and reconciles
// them.
func (r *Reconciler) ReconcileRaw(ctx context.Context, referenceID string, schemaA reconcile.Schema, rawA domain.RawLedger, schemaB reconcile.Schema, rawB domain.RawLedger) (*domain.RunOutcome, error) {
	a, err := reconcile.NormalizeLedger(schemaA, rawA)
	if err != nil {
		return nil, r.fail(ctx, referenceID, fmt.Errorf("%s: %w", reconcile.SourceA, err))
	}
	b, err := reconcile.NormalizeLedger(schemaB, rawB)
	if err != nil {
		return nil, r.fail(ctx, referenceID, fmt.Errorf("%s: %w", reconcile.SourceB, err))
	}
	return r.ReconcileLedgers(ctx, referenceID, a, b)
}

// ReconcileLedgers reconciles two normalized ledgers, records the run and,
// when an exporter is configured, writes its report.
func (r *Reconciler) ReconcileLedgers(ctx context.Context, referenceID string, a, b domain.AccountLedger) (*domain.RunOutcome, error) {
	ctx, span := tracer.Start(ctx, "Reconciler.ReconcileLedgers")
	defer span.End()
	span.SetAttributes(attribute.String("reference.id", referenceID))

	start := time.Now()
	defer func() {
		r.metrics.RecordDuration("reconcile", time.Since(start))
	}()

	cmp, err := reconcile.Reconcile(a, b, r.opts)
	if err != nil {
		span.RecordError(err)
		return nil, r.fail(ctx, referenceID, err)
	}

	v := cmp.Verdict
	span.SetAttributes(attribute.Bool("all_match", v.AllMatch))
	r.metrics.RecordComparison(cmp)
	r.logger.Info("reconciliation verdict",
		zap.String("reference_id", referenceID),
		zap.Bool("all_match", v.AllMatch),
		zap.Stringer("range", cmp.Range),
		zap.Int("transactions_a", len(cmp.SourceA)),
		zap.Int("transactions_b", len(cmp.SourceB)),
		zap.Stringer("total_credit_a", v.SourceA.TotalCredit),
		zap.Stringer("total_credit_b", v.SourceB.TotalCredit),
		zap.Stringer("total_debit_a", v.SourceA.TotalDebit),
		zap.Stringer("total_debit_b", v.SourceB.TotalDebit),
		observability.TraceField(ctx),
	)

	status := domain.RunStatusMismatched
	if v.AllMatch {
		status = domain.RunStatusMatched
	}
	rng := cmp.Range
	out := &domain.RunOutcome{
		RunID:       r.save(ctx, &domain.RunRecord{ReferenceID: referenceID, Status: status, Range: &rng, Verdict: &cmp.Verdict}),
		ReferenceID: referenceID,
		Comparison:  cmp,
	}

	if r.exporter != nil {
		dir, err := r.exporter.ExportComparison(ctx, referenceID, cmp)
		if err != nil {
			r.logger.Error("failed to export report",
				zap.String("reference_id", referenceID),
				zap.Error(err),
			)
		} else {
			out.ReportDir = dir
		}
	}

	return out, nil
}

// ReconcileReference reconciles the external report of item.ReferenceID
// against the parsed documents of the item. Both sources are gathered
// concurrently; a source that fails or returns nothing is reported as
// insufficient data.
func (r *Reconciler) ReconcileReference(ctx context.Context, item domain.BatchItem) (*domain.RunOutcome, error) {
	if item.ReferenceID == "" {
		return nil, r.fail(ctx, item.ReferenceID, &domain.ErrValidation{Field: "reference_id", Message: "must not be empty"})
	}
	if item.DirectoryErr != nil {
		return nil, r.fail(ctx, item.ReferenceID, &domain.ErrInsufficientData{
			Source: domain.SourceParser,
			Reason: "document directory " + item.Directory + " unreadable",
			Err:    item.DirectoryErr,
		})
	}
	if len(item.DocumentPaths) == 0 {
		return nil, r.fail(ctx, item.ReferenceID, &domain.ErrValidation{Field: "document_paths", Message: "at least one document is required"})
	}

	ctx, span := tracer.Start(ctx, "Reconciler.ReconcileReference")
	defer span.End()
	span.SetAttributes(
		attribute.String("reference.id", item.ReferenceID),
		attribute.Int("documents", len(item.DocumentPaths)),
	)

	var external, parsed domain.AccountLedger

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		raw, err := r.fetchStatement(gCtx, item.ReferenceID)
		if err != nil {
			return err
		}
		l, err := reconcile.NormalizeLedger(reconcile.ExternalSchema, raw)
		if err != nil {
			return fmt.Errorf("%s statement: %w", domain.SourceExternal, err)
		}
		external = l
		return nil
	})

	g.Go(func() error {
		raw, err := r.parser.ParseDocuments(gCtx, item.DocumentPaths)
		if err != nil {
			r.logger.Error("failed to parse documents",
				zap.String("reference_id", item.ReferenceID),
				zap.Strings("documents", item.DocumentPaths),
				zap.Error(err),
			)
			r.metrics.IncrExternalError(serviceParser)
			return &domain.ErrInsufficientData{Source: domain.SourceParser, Reason: "document parsing failed", Err: err}
		}
		if len(raw) == 0 {
			return &domain.ErrInsufficientData{Source: domain.SourceParser, Reason: "no accounts parsed"}
		}
		l, err := reconcile.NormalizeLedger(reconcile.ParserSchema, raw)
		if err != nil {
			return fmt.Errorf("%s output: %w", domain.SourceParser, err)
		}
		parsed = l
		return nil
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, r.fail(ctx, item.ReferenceID, err)
	}

	return r.ReconcileLedgers(ctx, item.ReferenceID, external, parsed)
}

// fetchStatement returns the external report, consulting the cache first.
// Concurrent misses for the same reference share one upstream call. Only
// non-empty reports are cached.
func (r *Reconciler) fetchStatement(ctx context.Context, referenceID string) (domain.RawLedger, error) {
	if cached, ok := r.cache.Get(referenceID); ok {
		r.metrics.IncrCacheHit(observability.CacheStatements)
		return cached, nil
	}
	r.metrics.IncrCacheMiss(observability.CacheStatements)

	v, err, _ := r.fetches.Do(referenceID, func() (any, error) {
		// a call that finished between the miss above and Do has filled the cache
		if cached, ok := r.cache.Get(referenceID); ok {
			return cached, nil
		}

		raw, err := r.statements.FetchStatement(ctx, referenceID)
		if err != nil {
			r.logger.Error("failed to fetch statement",
				zap.String("reference_id", referenceID),
				zap.Error(err),
			)
			r.metrics.IncrExternalError(serviceStatement)
			return nil, &domain.ErrInsufficientData{Source: domain.SourceExternal, Reason: "statement fetch failed", Err: err}
		}
		if len(raw) == 0 {
			return nil, &domain.ErrInsufficientData{Source: domain.SourceExternal, Reason: "report has no accounts"}
		}

		r.cache.Set(referenceID, raw)
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(domain.RawLedger), nil
}

// GetRun returns a stored run.
func (r *Reconciler) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	if r.store == nil {
		return nil, &domain.ErrNotFound{Resource: "run", ID: id}
	}
	return r.store.GetRun(ctx, id)
}

// ListRuns returns the most recent runs, newest first.
func (r *Reconciler) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if r.store == nil {
		return []domain.RunRecord{}, nil
	}
	return r.store.ListRuns(ctx, limit)
}

// fail counts and records a reconciliation that produced no verdict. It
// returns err unchanged.
func (r *Reconciler) fail(ctx context.Context, referenceID string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	r.metrics.IncrFailedRun()
	r.logger.Warn("reconciliation failed",
		zap.String("reference_id", referenceID),
		observability.TraceField(ctx),
		zap.Error(err),
	)
	r.save(ctx, &domain.RunRecord{ReferenceID: referenceID, Status: domain.RunStatusFailed, Error: err.Error()})
	return err
}

// save persists run and returns its id. Storage failures are only logged.
func (r *Reconciler) save(ctx context.Context, run *domain.RunRecord) string {
	run.ID = uuid.NewString()
	run.CreatedAt = time.Now().UTC()
	if r.store == nil {
		return run.ID
	}
	if err := r.store.SaveRun(ctx, run); err != nil {
		r.logger.Error("failed to save run",
			zap.String("run_id", run.ID),
			zap.String("reference_id", run.ReferenceID),
			zap.Error(err),
		)
	}
	return run.ID
}
