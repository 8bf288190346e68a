package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/boddenberg/statement-recon-go/internal/app"
	"github.com/boddenberg/statement-recon-go/internal/config"
	"github.com/boddenberg/statement-recon-go/internal/domain"
	"github.com/boddenberg/statement-recon-go/internal/infra/manifest"
	"github.com/boddenberg/statement-recon-go/internal/infra/observability"

	"go.uber.org/zap"
)

func main() {
	manifestPath := flag.String("manifest", "file_list.csv", "CSV manifest with file_path and provider_ref_id columns")
	limit := flag.Int("limit", 0, "reconcile only the first N manifest rows (0 = all)")
	configPath := flag.String("config", "", "TOML config file (default $RECON_CONFIG or recon.toml)")
	flag.Parse()

	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	if *configPath == "" {
		*configPath = config.FilePath()
	}
	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdown, err := observability.InitTracer(ctx, "statement-recon-batch", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Manifest ---
	items, err := manifest.Load(*manifestPath, cfg.DocumentRoot)
	if err != nil {
		logger.Fatal("failed to read manifest", zap.String("path", *manifestPath), zap.Error(err))
	}
	if *limit > 0 && *limit < len(items) {
		items = items[:*limit]
	}
	logger.Info("manifest loaded",
		zap.String("path", *manifestPath),
		zap.Int("items", len(items)),
	)

	// --- Components ---
	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build application", zap.Error(err))
	}
	defer a.Close()

	// --- Run ---
	results := a.Reconciler.RunBatch(ctx, items)

	if a.Exporter == nil {
		logger.Warn("report export disabled: REPORT_DIR not configured")
	} else {
		path, err := a.Exporter.ExportBatch(ctx, results)
		if err != nil {
			logger.Error("failed to write batch results", zap.Error(err))
		} else {
			logger.Info("batch results written", zap.String("path", path))
		}
	}

	sum := domain.Summarize(results)
	fmt.Printf("reconciled %d references: %d matched, %d mismatched, %d failed\n",
		len(results), sum.Matched, sum.Mismatched, sum.Failed)
}
