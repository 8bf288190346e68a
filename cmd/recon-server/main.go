package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/statement-recon-go/internal/app"
	"github.com/boddenberg/statement-recon-go/internal/config"
	"github.com/boddenberg/statement-recon-go/internal/handler"
	"github.com/boddenberg/statement-recon-go/internal/infra/observability"
	"github.com/boddenberg/statement-recon-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	issueToken := flag.String("issue-token", "", "print a service token for `subject` and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of an issued token (0 = no expiry)")
	noAuth := flag.Bool("no-auth", false, "serve /v1 without service tokens")
	flag.Parse()

	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg, err := config.LoadFile(config.FilePath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	tokens := service.NewTokenService(cfg.JWTSecret)
	if *issueToken != "" {
		token, err := tokens.Issue(*issueToken, *tokenTTL)
		if err != nil {
			fmt.Fprintln(os.Stderr, "issue token:", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("statement_api_url", cfg.StatementAPIURL),
		zap.String("parser_api_url", cfg.ParserAPIURL),
		zap.Float64("statement_rate_limit", cfg.StatementRateLimit),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.String("database_dialect", cfg.DatabaseDialect),
		zap.String("report_dir", cfg.ReportDir),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(context.Background(), "statement-recon", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Components ---
	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build application", zap.Error(err))
	}
	defer a.Close()

	if *noAuth {
		logger.Warn("auth disabled: /v1 is served without service tokens")
		tokens = nil
	}

	// --- Router ---
	router := handler.NewRouter(a.Reconciler, tokens, a.Metrics, logger,
		handler.HealthCheck{Name: "database", Check: a.Ping},
	)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
