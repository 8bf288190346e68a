package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/statement-recon-go/internal/domain"
	"github.com/boddenberg/statement-recon-go/internal/infra/observability"
	"github.com/boddenberg/statement-recon-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// maxBodyBytes bounds request bodies; inline ledgers can be large.
const maxBodyBytes = 32 << 20

// HealthCheck probes one dependency for /healthz.
type HealthCheck struct {
	Name  string
	Check func(r *http.Request) error
}

// NewRouter creates the HTTP router with all routes and middleware. With a
// nil tokens service the API is served without authentication.
func NewRouter(svc *service.Reconciler, tokens *service.TokenService, metrics *observability.Metrics, logger *zap.Logger, checks ...HealthCheck) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(checks))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if tokens != nil {
			r.Use(JWTAuthMiddleware(tokens, logger))
		}

		// =============================================
		// Reconciliation
		// =============================================
		r.Post("/reconciliations", reconcileLedgersHandler(svc, logger))
		r.Post("/references/{referenceId}/reconcile", reconcileReferenceHandler(svc, logger))

		// =============================================
		// Run log
		// =============================================
		r.Get("/runs", listRunsHandler(svc, logger))
		r.Get("/runs/{runId}", getRunHandler(svc, logger))

		// =============================================
		// Metrics
		// =============================================
		r.Get("/metrics/reconciliation", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, metrics.Snapshot())
		})
	})

	return r
}

func healthzHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "recon-api", Status: "healthy", LastChecked: now},
		}
		overall := "healthy"
		for _, c := range checks {
			start := time.Now()
			status := "healthy"
			if err := c.Check(r); err != nil {
				status = "degraded"
				overall = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name:        c.Name,
				Status:      status,
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			})
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overall,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
