package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/boddenberg/statement-recon-go/internal/domain"
	"github.com/boddenberg/statement-recon-go/internal/reconcile"
	"github.com/boddenberg/statement-recon-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Request / response bodies
// ============================================================

type reconcileLedgersRequest struct {
	ReferenceID string           `json:"reference_id"`
	SchemaA     string           `json:"schema_a"`
	SchemaB     string           `json:"schema_b"`
	SourceA     domain.RawLedger `json:"source_a"`
	SourceB     domain.RawLedger `json:"source_b"`
}

type reconcileReferenceRequest struct {
	DocumentPaths []string `json:"document_paths"`
}

type reconcileResponse struct {
	RunID       string                       `json:"run_id"`
	ReferenceID string                       `json:"reference_id"`
	Range       domain.DateRange             `json:"range"`
	Verdict     domain.ReconciliationVerdict `json:"verdict"`
	ReportDir   string                       `json:"report_dir,omitempty"`
}

func toResponse(out *domain.RunOutcome) reconcileResponse {
	return reconcileResponse{
		RunID:       out.RunID,
		ReferenceID: out.ReferenceID,
		Range:       out.Comparison.Range,
		Verdict:     out.Comparison.Verdict,
		ReportDir:   out.ReportDir,
	}
}

// ============================================================
// POST /v1/reconciliations
// ============================================================

func reconcileLedgersHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "Handler.ReconcileLedgers")
		defer span.End()

		var req reconcileLedgersRequest
		if err := decodeBody(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		schemaA, ok := reconcile.SchemaByName(req.SchemaA)
		if !ok {
			handleServiceError(w, &domain.ErrValidation{Field: "schema_a", Message: "unknown schema " + strconv.Quote(req.SchemaA)}, logger)
			return
		}
		schemaB, ok := reconcile.SchemaByName(req.SchemaB)
		if !ok {
			handleServiceError(w, &domain.ErrValidation{Field: "schema_b", Message: "unknown schema " + strconv.Quote(req.SchemaB)}, logger)
			return
		}
		if req.ReferenceID == "" {
			req.ReferenceID = uuid.NewString()
		}
		span.SetAttributes(attribute.String("reference.id", req.ReferenceID))

		out, err := svc.ReconcileRaw(ctx, req.ReferenceID, schemaA, req.SourceA, schemaB, req.SourceB)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(out))
	}
}

// ============================================================
// POST /v1/references/{referenceId}/reconcile
// ============================================================

func reconcileReferenceHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "Handler.ReconcileReference")
		defer span.End()

		referenceID := chi.URLParam(r, "referenceId")
		span.SetAttributes(attribute.String("reference.id", referenceID))

		var req reconcileReferenceRequest
		if err := decodeBody(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		out, err := svc.ReconcileReference(ctx, domain.BatchItem{
			ReferenceID:   referenceID,
			DocumentPaths: req.DocumentPaths,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(out))
	}
}

// ============================================================
// GET /v1/runs, GET /v1/runs/{runId}
// ============================================================

func listRunsHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseLimit(r)
		runs, err := svc.ListRuns(r.Context(), limit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.RunRecord]{
			Data:  runs,
			Total: len(runs),
			Limit: limit,
		})
	}
}

func getRunHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := svc.GetRun(r.Context(), chi.URLParam(r, "runId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return &domain.ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}
