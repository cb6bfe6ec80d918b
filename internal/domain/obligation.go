package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ObligationResult is one row returned by fn_generate_monthly_obligations.
// Only the two counters are interpreted; Raw is the row exactly as the
// backend produced it and is what responses and the audit trail carry.
type ObligationResult struct {
	ObligationsCreated int
	ObligationsSkipped int
	Raw                json.RawMessage
}

// NewObligationResult reads the counters out of a raw row. Rows that are not
// objects, and counters that are missing or not numeric, count as zero.
func NewObligationResult(raw []byte) ObligationResult {
	row := ObligationResult{Raw: json.RawMessage(bytes.Clone(bytes.TrimSpace(raw)))}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(row.Raw, &fields); err != nil {
		return row
	}
	row.ObligationsCreated = countField(fields["obligations_created"])
	row.ObligationsSkipped = countField(fields["obligations_skipped"])
	return row
}

func countField(raw json.RawMessage) int {
	var n float64
	if len(raw) == 0 || json.Unmarshal(raw, &n) != nil {
		return 0
	}
	return int(n)
}

func (r ObligationResult) MarshalJSON() ([]byte, error) {
	if len(r.Raw) == 0 {
		return json.Marshal(struct {
			ObligationsCreated int `json:"obligations_created"`
			ObligationsSkipped int `json:"obligations_skipped"`
		}{r.ObligationsCreated, r.ObligationsSkipped})
	}
	return r.Raw, nil
}

func (r *ObligationResult) UnmarshalJSON(data []byte) error {
	*r = NewObligationResult(data)
	return nil
}

// GenerationSummary aggregates obligation generation rows.
type GenerationSummary struct {
	TotalCreated       int `json:"total_created"`
	TotalSkipped       int `json:"total_skipped"`
	CompaniesProcessed int `json:"companies_processed"`
}

func SummarizeGeneration(rows []ObligationResult) GenerationSummary {
	summary := GenerationSummary{CompaniesProcessed: len(rows)}
	for _, row := range rows {
		summary.TotalCreated += row.ObligationsCreated
		summary.TotalSkipped += row.ObligationsSkipped
	}
	return summary
}

// GenerationParams are the arguments of fn_generate_monthly_obligations.
// A nil CompanyID means every active company.
type GenerationParams struct {
	CompanyID *int64
	Year      int
	Month     int
}

func (p GenerationParams) Validate() error {
	if p.Year < 1 {
		return fmt.Errorf("%w: year must be positive, got %d", ErrValidation, p.Year)
	}
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: month must be between 1 and 12, got %d", ErrValidation, p.Month)
	}
	if p.CompanyID != nil && *p.CompanyID < 1 {
		return fmt.Errorf("%w: company id must be positive, got %d", ErrValidation, *p.CompanyID)
	}
	return nil
}
