package schema

import "time"

// RecordStoreStatus represents the status of the source record store.
type RecordStoreStatus struct {
	Backend        string    `json:"backend"`
	Connected      bool      `json:"connected"`
	Repositories   int       `json:"repositories"`
	Records        int       `json:"records"`
	LastObserved   time.Time `json:"last_observed"`
	OldestObserved time.Time `json:"oldest_observed"`
	TableSizeBytes int64     `json:"table_size_bytes"`
}

// RunStoreStatus represents the status of the run artifact store.
type RunStoreStatus struct {
	Backend           string           `json:"backend"`
	Connected         bool             `json:"connected"`
	TotalRuns         int              `json:"total_runs"`
	LastRunID         int64            `json:"last_run_id"`
	LastRunUUID       string           `json:"last_run_uuid"`
	LastRunTime       time.Time        `json:"last_run_time"`
	OldestRunTime     time.Time        `json:"oldest_run_time"`
	TotalRepositories int              `json:"total_repositories"`
	TableSizes        map[string]int64 `json:"table_sizes"`
}

// RunRecord represents a row from the reposcout_runs table.
type RunRecord struct {
	RunID             int64
	RunUUID           string
	StartTime         time.Time
	EndTime           *time.Time
	RunDurationMs     *int32
	Algorithm         string
	TotalRepositories int32
	IncompleteCount   int32
	TimedOut          bool
	ConfigParams      *string
	Summary           *string
}

// RepositoryResultRecord represents a row from the reposcout_repository_results table.
type RepositoryResultRecord struct {
	RunID           int64   `db:"run_id"`
	RepositoryID    string  `db:"repository_id"`
	Category        string  `db:"category"`
	Status          string  `db:"status"`
	Completeness    float64 `db:"completeness"`
	Consistency     float64 `db:"consistency"`
	Freshness       float64 `db:"freshness"`
	SourceCount     int32   `db:"source_count"`
	Popularity      float64 `db:"popularity"`
	Activity        float64 `db:"activity"`
	CommunityHealth float64 `db:"community_health"`
	QualityScore    float64 `db:"quality_score"`
	Overall         float64 `db:"overall"`
	Unified         string  `db:"unified"`       // JSON of the UnifiedRecord
	Filter          string  `db:"filter_result"` // JSON of the FilterResult
}

// SelectionRecord represents a row from the reposcout_selections table.
type SelectionRecord struct {
	RunID        int64   `db:"run_id"`
	RepositoryID string  `db:"repository_id"`
	Rank         int32   `db:"rank_position"`
	RankScore    float64 `db:"rank_score"`
	Front        int32   `db:"front"`
	ScaleBucket  string  `db:"scale_bucket"`
	Included     bool    `db:"included"`
	Bucket       *string `db:"bucket"`
	Reason       *string `db:"reason"`
}

// ManifestRecord represents a row from the reposcout_manifest table.
type ManifestRecord struct {
	RunID        int64   `db:"run_id"`
	Seq          int32   `db:"seq"`
	RepositoryID string  `db:"repository_id"`
	Stage        string  `db:"stage"`
	Severity     string  `db:"severity"`
	Code         string  `db:"code"`
	Field        *string `db:"field"`
	Message      string  `db:"message"`
}
