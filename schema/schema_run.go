package schema

import "time"

// ManifestEntry records a per-repository problem encountered during a run.
type ManifestEntry struct {
	RepositoryID string    `json:"repository"`
	Stage        Stage     `json:"stage"`
	Severity     Severity  `json:"severity"`
	Code         string    `json:"code"`
	Field        FieldName `json:"field,omitempty"`
	Message      string    `json:"message"`
}

// DataQualitySummary aggregates data quality across every repository of a run.
type DataQualitySummary struct {
	Repositories     int                  `json:"repositories"`
	Aggregated       int                  `json:"aggregated"`
	Failed           int                  `json:"failed"`
	MeanCompleteness float64              `json:"mean_completeness"`
	MeanConsistency  float64              `json:"mean_consistency"`
	MeanFreshness    float64              `json:"mean_freshness"`
	MinCompleteness  float64              `json:"min_completeness"`
	MinConsistency   float64              `json:"min_consistency"`
	MinFreshness     float64              `json:"min_freshness"`
	MissingFields    map[FieldName]int    `json:"missing_fields"`
	LowQuality       []string             `json:"low_quality"`
	StatusCounts     map[FilterStatus]int `json:"status_counts"`
}

// RepoOutcome is what a worker produces for a single repository.
type RepoOutcome struct {
	Repository Repository
	Unified    *UnifiedRecord
	Score      *ScoreBreakdown
	Filter     *FilterResult
	Manifest   []ManifestEntry
}

// Completed reports whether every per-repository stage ran.
func (o RepoOutcome) Completed() bool {
	return o.Filter != nil
}

// RunResult is everything a run produces.
type RunResult struct {
	RunID      string                    `json:"run_id"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
	AsOf       time.Time                 `json:"as_of"`
	Algorithm  RankAlgorithm             `json:"algorithm"`
	Unified    []UnifiedRecord           `json:"unified"`
	Scores     map[string]ScoreBreakdown `json:"scores"`
	Filters    []FilterResult            `json:"filters"`
	Global     *Ranking                  `json:"global,omitempty"`
	ByCategory map[Category]Ranking      `json:"by_category,omitempty"`
	Selection  *DiversitySelection       `json:"selection,omitempty"`
	Manifest   []ManifestEntry           `json:"manifest"`
	Summary    DataQualitySummary        `json:"summary"`
	Incomplete []string                  `json:"incomplete,omitempty"`
}

// FilterFor returns the filter result of a repository.
func (r *RunResult) FilterFor(id string) (FilterResult, bool) {
	for _, f := range r.Filters {
		if f.RepositoryID == id {
			return f, true
		}
	}
	return FilterResult{}, false
}

// UnifiedFor returns the unified record of a repository.
func (r *RunResult) UnifiedFor(id string) (UnifiedRecord, bool) {
	for _, u := range r.Unified {
		if u.RepositoryID == id {
			return u, true
		}
	}
	return UnifiedRecord{}, false
}
