package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/statement-recon-go/internal/app"
	"github.com/boddenberg/statement-recon-go/internal/config"
	"github.com/boddenberg/statement-recon-go/internal/domain"
	"github.com/boddenberg/statement-recon-go/internal/handler"
	"github.com/boddenberg/statement-recon-go/internal/infra/manifest"
	"github.com/boddenberg/statement-recon-go/internal/infra/report"
	"github.com/boddenberg/statement-recon-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type xn struct {
	Date      string  `json:"date"`
	Amount    float64 `json:"amount"`
	Balance   float64 `json:"balance"`
	Narration string  `json:"narration"`
}

var history = []xn{
	{"2024-01-01", 1000, 1000, "opening"},
	{"2024-01-05", 250.5, 1250.5, "salary"},
	{"2024-01-05", -50, 1200.5, "card"},
	{"2024-02-01", 3000, 4200.5, "invoice 17"},
	{"2024-02-14", -900.25, 3300.25, "rent"},
	{"2024-03-01", 0, 3300.25, "fee reversal"},
	{"2024-03-10", -10, 3290.25, "fee"},
}

// upstreams serves the statement report and the document parser.
type upstreams struct {
	statements *httptest.Server
	parser     *httptest.Server
	fetches    atomic.Int32
}

func newUpstreams(t *testing.T) *upstreams {
	t.Helper()
	u := &upstreams{}

	u.statements = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.fetches.Add(1)
		var req struct {
			ID string `json:"perfiosTransactionId"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		rows := history
		switch req.ID {
		case "PRF-404":
			http.Error(w, "no report", http.StatusNotFound)
			return
		case "PRF-DRIFT":
			rows = append([]xn(nil), history...)
			rows[3].Amount = 2000
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"jsonResponse": map[string]any{
					"accountXns": []map[string]any{{"accountNo": "ACC-1", "xns": rows}},
				},
			},
		})
	}))
	t.Cleanup(u.statements.Close)

	u.parser = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/parse" {
			http.NotFound(w, r)
			return
		}
		rows := make([]map[string]any, len(history))
		for i, x := range history {
			rows[i] = map[string]any{
				"Date":      x.Date,
				"Amount":    x.Amount,
				"Balance":   x.Balance,
				"Narration": x.Narration,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"accounts": map[string]any{
				"ACC-1": map[string]any{"label": "current account", "transactions": rows},
			},
		})
	}))
	t.Cleanup(u.parser.Close)

	return u
}

func newApp(t *testing.T, u *upstreams) *app.App {
	t.Helper()
	cfg := config.Default()
	cfg.StatementAPIURL = u.statements.URL
	cfg.ParserAPIURL = u.parser.URL
	cfg.StatementRateLimit = 0
	cfg.MaxRetries = 1
	cfg.InitialBackoff = time.Millisecond
	cfg.HTTPTimeout = 5 * time.Second
	cfg.DatabaseURL = ":memory:"
	cfg.ReportDir = t.TempDir()

	a, err := app.New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

// TestIntegration_HTTPFlow drives the API end to end against mock upstreams.
func TestIntegration_HTTPFlow(t *testing.T) {
	u := newUpstreams(t)
	a := newApp(t, u)
	tokens := service.NewTokenService("integration-secret")
	router := handler.NewRouter(a.Reconciler, tokens, a.Metrics, zap.NewNop())

	srv := httptest.NewServer(router)
	defer srv.Close()

	token, err := tokens.Issue("integration", time.Minute)
	require.NoError(t, err)

	post := func(path, body string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	// --- Matching reference ---
	resp := post("/v1/references/PRF-1/reconcile", `{"document_paths": ["/docs/jan.pdf"]}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		RunID     string                       `json:"run_id"`
		Range     domain.DateRange             `json:"range"`
		Verdict   domain.ReconciliationVerdict `json:"verdict"`
		ReportDir string                       `json:"report_dir"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

	assert.True(t, result.Verdict.AllMatch)
	assert.Equal(t, "2024-01-01", result.Range.Start.Format(domain.DateLayout))
	assert.Equal(t, "2024-03-10", result.Range.End.Format(domain.DateLayout))
	assert.Equal(t, "3250.5", result.Verdict.SourceA.TotalCredit.String())
	assert.Equal(t, 2, result.Verdict.SourceA.CreditCount)
	assert.FileExists(t, filepath.Join(result.ReportDir, report.WorkbookName("PRF-1")))

	// --- Drifted reference ---
	resp2 := post("/v1/references/PRF-DRIFT/reconcile", `{"document_paths": ["/docs/jan.pdf"]}`)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var drift struct {
		Verdict domain.ReconciliationVerdict `json:"verdict"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&drift))
	assert.False(t, drift.Verdict.AllMatch)
	assert.False(t, drift.Verdict.Checks.TotalCredit)
	assert.True(t, drift.Verdict.Checks.TotalDebit)

	// --- Missing external report ---
	resp3 := post("/v1/references/PRF-404/reconcile", `{"document_paths": ["/docs/jan.pdf"]}`)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp3.StatusCode)

	// --- Cached report ---
	before := u.fetches.Load()
	resp4 := post("/v1/references/PRF-1/reconcile", `{"document_paths": ["/docs/jan.pdf"]}`)
	resp4.Body.Close()
	assert.Equal(t, http.StatusOK, resp4.StatusCode)
	assert.Equal(t, before, u.fetches.Load())

	// --- Run log and snapshot ---
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/metrics/reconciliation", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	snapResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer snapResp.Body.Close()

	var snap domain.ReconciliationSnapshot
	require.NoError(t, json.NewDecoder(snapResp.Body).Decode(&snap))
	assert.EqualValues(t, 4, snap.TotalRuns)
	assert.EqualValues(t, 2, snap.Matched)
	assert.EqualValues(t, 1, snap.Mismatched)
	assert.EqualValues(t, 1, snap.Failed)

	runs, err := a.Reconciler.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 4)
}

// TestIntegration_Batch runs a manifest through the batch pipeline.
func TestIntegration_Batch(t *testing.T) {
	u := newUpstreams(t)
	a := newApp(t, u)

	root := t.TempDir()
	for _, dir := range []string{"match", "drift", "missing"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, dir, "statement.pdf"), []byte("%PDF"), 0o644))
	}
	manifestPath := filepath.Join(root, "file_list.csv")
	require.NoError(t, os.WriteFile(manifestPath, []byte(
		"file_path,provider_ref_id\nmatch,PRF-1\ndrift,PRF-DRIFT\nmissing,PRF-404\n",
	), 0o644))

	items, err := manifest.Load(manifestPath, root)
	require.NoError(t, err)
	require.Len(t, items, 3)

	results := a.Reconciler.RunBatch(context.Background(), items)
	require.Len(t, results, 3)
	assert.True(t, results[0].OK())
	assert.True(t, results[1].OK())
	assert.False(t, results[2].OK())

	path, err := a.Exporter.ExportBatch(context.Background(), results)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := f.GetRows(report.SheetResults)
	require.NoError(t, err)

	require.Len(t, records, 4)
	assert.Equal(t, []string{"PRF-1", "TRUE"}, []string{records[1][0], records[1][2]})
	assert.Equal(t, []string{"PRF-DRIFT", "FALSE"}, []string{records[2][0], records[2][2]})
	assert.Equal(t, "PRF-404", records[3][0])
	assert.NotEmpty(t, records[3][12])
}
