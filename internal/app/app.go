// Package app wires configuration, infrastructure and services into a
// ready-to-use reconciler shared by the CLI and the HTTP server.
package app

import (
	"fmt"
	"net/http"

	"github.com/boddenberg/statement-recon-go/internal/config"
	"github.com/boddenberg/statement-recon-go/internal/domain"
	"github.com/boddenberg/statement-recon-go/internal/infra/cache"
	"github.com/boddenberg/statement-recon-go/internal/infra/client"
	"github.com/boddenberg/statement-recon-go/internal/infra/observability"
	"github.com/boddenberg/statement-recon-go/internal/infra/report"
	"github.com/boddenberg/statement-recon-go/internal/infra/resilience"
	"github.com/boddenberg/statement-recon-go/internal/infra/store"
	"github.com/boddenberg/statement-recon-go/internal/port"
	"github.com/boddenberg/statement-recon-go/internal/service"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"
)

// App holds the wired components.
type App struct {
	Config     *config.Config
	Metrics    *observability.Metrics
	Reconciler *service.Reconciler
	Exporter   *report.Exporter
	DB         *gorm.DB

	reports *cache.InMemory[domain.RawLedger]
}

// New builds every component from cfg. An empty DatabaseURL disables the run
// store and an empty ReportDir disables report export.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Metrics: observability.NewMetrics(),
		reports: cache.New[domain.RawLedger](cfg.CacheTTL),
	}

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	statements := client.NewStatementClient(
		httpClient,
		cfg.StatementAPIURL,
		cfg.StatementReport,
		cfg.StatementRateLimit,
		resilience.NewCircuitBreaker(client.ServiceStatement),
		resilienceCfg,
	)
	parser := client.NewParserClient(
		httpClient,
		cfg.ParserAPIURL,
		resilience.NewCircuitBreaker(client.ServiceParser),
		resilienceCfg,
	)

	// --- Storage ---
	var runs port.RunStore
	if cfg.DatabaseURL != "" {
		db, err := store.Open(cfg.DatabaseDialect, cfg.DatabaseURL)
		if err != nil {
			a.reports.Close()
			return nil, err
		}
		a.DB = db
		runs = store.NewRunStore(db)
		logger.Info("run store enabled", zap.String("dialect", cfg.DatabaseDialect))
	} else {
		logger.Warn("run store: DATABASE_URL not configured, runs are not persisted")
	}

	var exporter port.ReportExporter
	if cfg.ReportDir != "" {
		a.Exporter = report.NewExporter(cfg.ReportDir, cfg.Engine(), logger)
		exporter = a.Exporter
	}

	// --- Services ---
	a.Reconciler = service.NewReconciler(
		statements,
		parser,
		a.reports,
		runs,
		exporter,
		a.Metrics,
		logger,
		cfg.Engine(),
		cfg.BatchConcurrency,
	)
	return a, nil
}

// Ping checks the database connection, if one is configured.
func (a *App) Ping(r *http.Request) error {
	if a.DB == nil {
		return nil
	}
	if err := a.DB.DB().PingContext(r.Context()); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	return nil
}

// Close releases the cache sweeper and the database.
func (a *App) Close() error {
	a.reports.Close()
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
