package app_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/boddenberg/statement-recon-go/internal/app"
	"github.com/boddenberg/statement-recon-go/internal/config"
	"github.com/boddenberg/statement-recon-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_InMemoryStore(t *testing.T) {
	cfg := config.Default()
	cfg.DatabaseURL = ":memory:"
	cfg.ReportDir = t.TempDir()

	a, err := app.New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.DB)
	require.NotNil(t, a.Exporter)
	assert.NoError(t, a.Ping(httptest.NewRequest("GET", "/healthz", nil)))

	runs, err := a.Reconciler.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestNew_WithoutStore(t *testing.T) {
	cfg := config.Default()
	cfg.DatabaseURL = ""
	cfg.ReportDir = ""

	a, err := app.New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Exporter)

	_, err = a.Reconciler.GetRun(context.Background(), "missing")
	var notFound *domain.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestNew_BadDialect(t *testing.T) {
	cfg := config.Default()
	cfg.DatabaseDialect = "oracle"

	_, err := app.New(cfg, zap.NewNop())
	assert.Error(t, err)
}
