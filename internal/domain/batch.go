package domain

import "time"

// ============================================================
// Batch runs
// ============================================================

// BatchItem is one manifest row: an external reference id paired with the
// statement documents the internal parser should read.
type BatchItem struct {
	ReferenceID   string   `json:"reference_id"`
	Directory     string   `json:"directory"`
	DocumentPaths []string `json:"document_paths"`

	// DirectoryErr is set when Directory could not be listed.
	DirectoryErr error `json:"-"`
}

// RunOutcome is a successful reconciliation.
type RunOutcome struct {
	RunID       string      `json:"run_id"`
	ReferenceID string      `json:"reference_id"`
	Comparison  *Comparison `json:"comparison"`
	ReportDir   string      `json:"report_dir,omitempty"`
}

// ItemResult is the outcome of one batch item: exactly one of Outcome or
// Err is set.
type ItemResult struct {
	Item    BatchItem   `json:"item"`
	Outcome *RunOutcome `json:"outcome,omitempty"`
	Err     error       `json:"-"`
}

// OK reports whether the item produced a verdict.
func (r ItemResult) OK() bool { return r.Err == nil && r.Outcome != nil }

// BatchSummary counts batch outcomes.
type BatchSummary struct {
	Matched    int `json:"matched"`
	Mismatched int `json:"mismatched"`
	Failed     int `json:"failed"`
}

// Summarize counts the outcomes of results. An item without a verdict is
// failed.
func Summarize(results []ItemResult) BatchSummary {
	var s BatchSummary
	for _, r := range results {
		switch {
		case !r.OK():
			s.Failed++
		case r.Outcome.Comparison.Verdict.AllMatch:
			s.Matched++
		default:
			s.Mismatched++
		}
	}
	return s
}

// Run statuses.
const (
	RunStatusMatched    = "matched"
	RunStatusMismatched = "mismatched"
	RunStatusFailed     = "failed"
)

// RunRecord is the persisted summary of one reconciliation.
type RunRecord struct {
	ID          string                 `json:"id"`
	ReferenceID string                 `json:"reference_id"`
	Status      string                 `json:"status"`
	Error       string                 `json:"error,omitempty"`
	Range       *DateRange             `json:"range,omitempty"`
	Verdict     *ReconciliationVerdict `json:"verdict,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// ReconciliationSnapshot is returned by GET /v1/metrics/reconciliation.
type ReconciliationSnapshot struct {
	TotalRuns      int64   `json:"totalRuns"`
	Matched        int64   `json:"matched"`
	Mismatched     int64   `json:"mismatched"`
	Failed         int64   `json:"failed"`
	MatchRate      float64 `json:"matchRate"`
	CacheHitRate   float64 `json:"cacheHitRate"`
	ExternalErrors int64   `json:"externalErrors"`
}
