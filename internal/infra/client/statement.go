package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/boddenberg/statement-recon-go/internal/domain"
	"github.com/boddenberg/statement-recon-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("client")

// ServiceStatement is the service name used in errors and metrics.
const ServiceStatement = "statement-service"

// StatementClient fetches verification reports from the external statement
// service. Calls are rate limited, retried with backoff and guarded by a
// circuit breaker.
type StatementClient struct {
	httpClient *http.Client
	url        string
	reportType string
	cb         *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	cfg        resilience.Config
}

// NewStatementClient creates a StatementClient. A perSecond of zero disables
// rate limiting.
func NewStatementClient(httpClient *http.Client, url, reportType string, perSecond float64, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *StatementClient {
	limit := rate.Inf
	burst := 1
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = int(math.Max(1, math.Ceil(perSecond)))
	}
	if reportType == "" {
		reportType = "JSON"
	}
	return &StatementClient{
		httpClient: httpClient,
		url:        url,
		reportType: reportType,
		cb:         cb,
		limiter:    rate.NewLimiter(limit, burst),
		cfg:        cfg,
	}
}

type statementRequest struct {
	TransactionID string `json:"perfiosTransactionId"`
	ReportType    string `json:"perfiosReportType"`
}

type statementResponse struct {
	Data struct {
		JSONResponse *struct {
			AccountXns []struct {
				AccountNo string          `json:"accountNo"`
				Xns       []domain.RawRow `json:"xns"`
			} `json:"accountXns"`
		} `json:"jsonResponse"`
	} `json:"data"`
}

// FetchStatement returns the report's transactions keyed by account number.
// A report without accounts yields an empty ledger.
func (c *StatementClient) FetchStatement(ctx context.Context, referenceID string) (domain.RawLedger, error) {
	ctx, span := tracer.Start(ctx, "StatementClient.FetchStatement")
	defer span.End()
	span.SetAttributes(attribute.String("reference.id", referenceID))

	body, err := json.Marshal(statementRequest{TransactionID: referenceID, ReportType: c.reportType})
	if err != nil {
		return nil, err
	}

	result, err := c.cb.Execute(func() (any, error) {
		var ledger domain.RawLedger
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return resilience.Permanent(err)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
			if err != nil {
				return resilience.Permanent(err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "*/*")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return resilience.Permanent(&domain.ErrNotFound{Resource: "statement report", ID: referenceID})
			case resp.StatusCode >= 400 && resp.StatusCode < 500:
				return resilience.Permanent(fmt.Errorf("statement API returned status %d", resp.StatusCode))
			case resp.StatusCode != http.StatusOK:
				return fmt.Errorf("statement API returned status %d", resp.StatusCode)
			}

			ledger, err = decodeStatement(resp.Body)
			return err
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return ledger, nil
	})

	if err != nil {
		span.RecordError(err)
		return nil, &domain.ErrExternalService{Service: ServiceStatement, Err: err}
	}

	ledger := result.(domain.RawLedger)
	span.SetAttributes(attribute.Int("accounts", len(ledger)))
	return ledger, nil
}

func decodeStatement(r io.Reader) (domain.RawLedger, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var out statementResponse
	if err := dec.Decode(&out); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("decode statement report: %w", err))
	}

	ledger := make(domain.RawLedger)
	if out.Data.JSONResponse == nil {
		return ledger, nil
	}
	for _, acc := range out.Data.JSONResponse.AccountXns {
		st := ledger[acc.AccountNo]
		st.Rows = append(st.Rows, acc.Xns...)
		ledger[acc.AccountNo] = st
	}
	return ledger, nil
}
