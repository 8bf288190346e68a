package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/boddenberg/statement-recon-go/internal/domain"
	"github.com/boddenberg/statement-recon-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
)

// ServiceParser is the service name used in errors and metrics.
const ServiceParser = "parser"

// ParserClient calls the document-parsing pipeline. Concurrent parse calls
// are bounded by a bulkhead since each one is CPU heavy upstream.
type ParserClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
}

// NewParserClient creates a new ParserClient.
func NewParserClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *ParserClient {
	return &ParserClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
	}
}

type parseRequest struct {
	DocumentPaths []string `json:"document_paths"`
}

type parseResponse struct {
	Accounts domain.RawLedger `json:"accounts"`
}

// ParseDocuments parses the given statement documents.
func (c *ParserClient) ParseDocuments(ctx context.Context, paths []string) (domain.RawLedger, error) {
	ctx, span := tracer.Start(ctx, "ParserClient.ParseDocuments")
	defer span.End()
	span.SetAttributes(attribute.Int("documents", len(paths)))

	body, err := json.Marshal(parseRequest{DocumentPaths: paths})
	if err != nil {
		return nil, err
	}

	var ledger domain.RawLedger
	err = c.bulkhead.Do(ctx, func() error {
		_, cbErr := c.cb.Execute(func() (any, error) {
			return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
				req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/parse", bytes.NewReader(body))
				if err != nil {
					return resilience.Permanent(err)
				}
				req.Header.Set("Content-Type", "application/json")

				resp, err := c.httpClient.Do(req)
				if err != nil {
					return err
				}
				defer resp.Body.Close()

				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					return resilience.Permanent(fmt.Errorf("parser returned status %d", resp.StatusCode))
				}
				if resp.StatusCode != http.StatusOK {
					return fmt.Errorf("parser returned status %d", resp.StatusCode)
				}

				var out parseResponse
				if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
					return resilience.Permanent(fmt.Errorf("decode parser output: %w", err))
				}
				ledger = out.Accounts
				return nil
			})
		})
		return cbErr
	})

	if err != nil {
		span.RecordError(err)
		return nil, &domain.ErrExternalService{Service: ServiceParser, Err: err}
	}
	if ledger == nil {
		ledger = domain.RawLedger{}
	}
	return ledger, nil
}
