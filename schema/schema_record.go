package schema

import "time"

// ResolvedField is the merged value of one field plus its provenance.
type ResolvedField struct {
	Value        FieldValue         `json:"value"`
	Missing      bool               `json:"missing,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	Normalized   *float64           `json:"normalized,omitempty"`
	Confidence   float64            `json:"confidence"`
	Winner       SourceID           `json:"winner,omitempty"`
	Sources      []SourceID         `json:"sources,omitempty"`
	Strategy     ResolutionStrategy `json:"strategy,omitempty"`
	Disagreement bool               `json:"disagreement,omitempty"`
	ObservedAt   time.Time          `json:"observed_at"` // stalest contributing observation
}

// MissingField builds a missing ResolvedField with a reason.
func MissingField(reason string) ResolvedField {
	return ResolvedField{Missing: true, Reason: reason}
}

// DataQuality summarizes how much the merged record can be trusted.
type DataQuality struct {
	Completeness float64 `json:"completeness"`
	Consistency  float64 `json:"consistency"`
	Freshness    float64 `json:"freshness"`
	SourceCount  int     `json:"source_count"`
}

// Metric returns a data quality value by its metric key.
func (q DataQuality) Metric(key string) (float64, bool) {
	switch key {
	case CompletenessMetric:
		return q.Completeness, true
	case ConsistencyMetric:
		return q.Consistency, true
	case FreshnessMetric:
		return q.Freshness, true
	case SourceCountMetric:
		return float64(q.SourceCount), true
	}
	return 0, false
}

// TrendSummary is a linear fit over the history of one field from one source.
type TrendSummary struct {
	Source        SourceID       `json:"source"`
	Points        int            `json:"points"`
	SlopePerDay   float64        `json:"slope_per_day"`
	RSquared      float64        `json:"r_squared"`
	Direction     TrendDirection `json:"direction"`
	GrowthPercent float64        `json:"growth_percent"`
	CAGR          float64        `json:"cagr"`
	First         time.Time      `json:"first"`
	Last          time.Time      `json:"last"`
}

// UnifiedRecord is the merged view of a repository across all sources.
type UnifiedRecord struct {
	RepositoryID string                      `json:"repository"`
	Category     Category                    `json:"category"`
	Fields       map[FieldName]ResolvedField `json:"fields"`
	Quality      DataQuality                 `json:"quality"`
	Trends       map[FieldName]TrendSummary  `json:"trends,omitempty"`
	Warnings     map[FieldName]string        `json:"warnings,omitempty"` // field-level error codes
	MergedAt     time.Time                   `json:"merged_at"`
}

// Number returns the resolved numeric value of a field.
func (u UnifiedRecord) Number(field FieldName) (float64, bool) {
	rf, ok := u.Fields[field]
	if !ok || rf.Missing {
		return 0, false
	}
	return rf.Value.Float()
}

// Normalized returns the normalized value of a field.
func (u UnifiedRecord) Normalized(field FieldName) (float64, bool) {
	rf, ok := u.Fields[field]
	if !ok || rf.Missing || rf.Normalized == nil {
		return 0, false
	}
	return *rf.Normalized, true
}

// MissingFields lists the fields marked missing, in sorted order.
func (u UnifiedRecord) MissingFields() []FieldName {
	var out []FieldName
	for name, rf := range u.Fields {
		if rf.Missing {
			out = append(out, name)
		}
	}
	SortFieldNames(out)
	return out
}
