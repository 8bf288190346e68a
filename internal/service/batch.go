package service

import (
	"context"
	"time"

	"github.com/boddenberg/statement-recon-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunBatch reconciles every item with bounded concurrency. Results keep the
// input order and every item gets one, whatever happens to the others.
func (r *Reconciler) RunBatch(ctx context.Context, items []domain.BatchItem) []domain.ItemResult {
	ctx, span := tracer.Start(ctx, "Reconciler.RunBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("items", len(items)))

	start := time.Now()
	results := make([]domain.ItemResult, len(items))

	var g errgroup.Group
	g.SetLimit(r.batchConcurrency)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = r.runItem(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	sum := domain.Summarize(results)
	r.metrics.RecordDuration("batch", time.Since(start))
	r.logger.Info("batch finished",
		zap.Int("items", len(items)),
		zap.Int("matched", sum.Matched),
		zap.Int("mismatched", sum.Mismatched),
		zap.Int("failed", sum.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)

	return results
}

func (r *Reconciler) runItem(ctx context.Context, item domain.BatchItem) domain.ItemResult {
	if err := ctx.Err(); err != nil {
		return domain.ItemResult{Item: item, Err: r.fail(ctx, item.ReferenceID, err)}
	}

	out, err := r.ReconcileReference(ctx, item)
	if err != nil {
		r.logger.Warn("batch item failed",
			zap.String("reference_id", item.ReferenceID),
			zap.String("directory", item.Directory),
			zap.Error(err),
		)
		return domain.ItemResult{Item: item, Err: err}
	}
	return domain.ItemResult{Item: item, Outcome: out}
}
