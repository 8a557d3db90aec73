// Package parquet provides data structures and functions for exporting reposcout
// run data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/reposcout/schema"
	"github.com/parquet-go/parquet-go"
)

// Run represents a single pipeline run with metadata.
// This struct maps to the reposcout_runs database table.
type Run struct {
	// RunID is the numeric identifier assigned by the run store
	RunID int64 `parquet:"run_id,snappy"`

	// RunUUID is the identifier the pipeline generated for the run
	RunUUID string `parquet:"run_uuid,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// Algorithm is the ranking algorithm of the run
	Algorithm string `parquet:"algorithm,snappy,dict"`

	// TotalRepositories is the number of repositories in the input batch
	TotalRepositories int32 `parquet:"total_repositories,snappy"`

	// IncompleteCount is the number of repositories cut off by the time budget
	IncompleteCount int32 `parquet:"incomplete_count,snappy"`

	// TimedOut reports whether the run exceeded its time budget
	TimedOut bool `parquet:"timed_out"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`

	// Summary contains the JSON-encoded data quality summary (nullable)
	Summary *string `parquet:"summary,optional,snappy"`
}

// RepositoryResult represents the quality, scores and filter outcome of one repository in a run.
// This struct maps to the reposcout_repository_results database table.
type RepositoryResult struct {
	RunID           int64   `parquet:"run_id,snappy"`
	RepositoryID    string  `parquet:"repository_id,snappy"`
	Category        string  `parquet:"category,snappy,dict"`
	Status          string  `parquet:"status,snappy,dict"`
	Completeness    float64 `parquet:"completeness,snappy"`
	Consistency     float64 `parquet:"consistency,snappy"`
	Freshness       float64 `parquet:"freshness,snappy"`
	SourceCount     int32   `parquet:"source_count,snappy"`
	Popularity      float64 `parquet:"popularity,snappy"`
	Activity        float64 `parquet:"activity,snappy"`
	CommunityHealth float64 `parquet:"community_health,snappy"`
	QualityScore    float64 `parquet:"quality_score,snappy"`
	Overall         float64 `parquet:"overall,snappy"`

	// Unified is the JSON-encoded unified record with per-field provenance
	Unified string `parquet:"unified,snappy"`

	// Filter is the JSON-encoded filter result with its evidence
	Filter string `parquet:"filter_result,snappy"`
}

// Selection represents one entry of a diversity-balanced shortlist.
// This struct maps to the reposcout_selections database table.
type Selection struct {
	RunID        int64   `parquet:"run_id,snappy"`
	RepositoryID string  `parquet:"repository_id,snappy"`
	Rank         int32   `parquet:"rank_position,snappy"`
	RankScore    float64 `parquet:"rank_score,snappy"`
	Front        int32   `parquet:"front,snappy"`
	ScaleBucket  string  `parquet:"scale_bucket,snappy,dict"`
	Included     bool    `parquet:"included"`
	Bucket       *string `parquet:"bucket,optional,snappy"`
	Reason       *string `parquet:"reason,optional,snappy"`
}

// ManifestEntry represents one note of a run manifest.
// This struct maps to the reposcout_manifest database table.
type ManifestEntry struct {
	RunID        int64   `parquet:"run_id,snappy"`
	Seq          int32   `parquet:"seq,snappy"`
	RepositoryID string  `parquet:"repository_id,snappy"`
	Stage        string  `parquet:"stage,snappy,dict"`
	Severity     string  `parquet:"severity,snappy,dict"`
	Code         string  `parquet:"code,snappy,dict"`
	Field        *string `parquet:"field,optional,snappy"`
	Message      string  `parquet:"message,snappy"`
}

// RankedRepository is one row of a ranking, written by the parquet output format of a run.
type RankedRepository struct {
	Rank            int32    `parquet:"rank,snappy"`
	RepositoryID    string   `parquet:"repository_id,snappy"`
	Category        string   `parquet:"category,snappy,dict"`
	Status          string   `parquet:"status,snappy,dict"`
	RankScore       float64  `parquet:"rank_score,snappy"`
	Front           int32    `parquet:"front,snappy"`
	Popularity      float64  `parquet:"popularity,snappy"`
	Activity        float64  `parquet:"activity,snappy"`
	CommunityHealth float64  `parquet:"community_health,snappy"`
	QualityScore    float64  `parquet:"quality_score,snappy"`
	Overall         float64  `parquet:"overall,snappy"`
	TiebreakField   *string  `parquet:"tiebreak_field,optional,snappy"`
	TiebreakValue   *float64 `parquet:"tiebreak_value,optional,snappy"`
	Included        *bool    `parquet:"included,optional"`
	ScaleBucket     *string  `parquet:"scale_bucket,optional,snappy"`
}

// writeRows writes a slice of rows to a Parquet file. The schema is derived from the struct tags.
func writeRows[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteRunsParquet writes a slice of Run structs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteRepositoryResultsParquet writes a slice of RepositoryResult structs to a Parquet file.
func WriteRepositoryResultsParquet(data []RepositoryResult, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteSelectionsParquet writes a slice of Selection structs to a Parquet file.
func WriteSelectionsParquet(data []Selection, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteManifestParquet writes a slice of ManifestEntry structs to a Parquet file.
func WriteManifestParquet(data []ManifestEntry, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteRankingParquet writes a slice of RankedRepository structs to a Parquet file.
func WriteRankingParquet(data []RankedRepository, outputPath string) error {
	return writeRows(data, outputPath)
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:             record.RunID,
			RunUUID:           record.RunUUID,
			StartTime:         record.StartTime,
			EndTime:           record.EndTime,
			RunDurationMs:     record.RunDurationMs,
			Algorithm:         record.Algorithm,
			TotalRepositories: record.TotalRepositories,
			IncompleteCount:   record.IncompleteCount,
			TimedOut:          record.TimedOut,
			ConfigParams:      record.ConfigParams,
			Summary:           record.Summary,
		}
	}
	return result
}

// ConvertRepositoryResultRecords converts schema.RepositoryResultRecord to RepositoryResult for Parquet export.
func ConvertRepositoryResultRecords(records []schema.RepositoryResultRecord) []RepositoryResult {
	result := make([]RepositoryResult, len(records))
	for i, record := range records {
		result[i] = RepositoryResult(record)
	}
	return result
}

// ConvertSelectionRecords converts schema.SelectionRecord to Selection for Parquet export.
func ConvertSelectionRecords(records []schema.SelectionRecord) []Selection {
	result := make([]Selection, len(records))
	for i, record := range records {
		result[i] = Selection(record)
	}
	return result
}

// ConvertManifestRecords converts schema.ManifestRecord to ManifestEntry for Parquet export.
func ConvertManifestRecords(records []schema.ManifestRecord) []ManifestEntry {
	result := make([]ManifestEntry, len(records))
	for i, record := range records {
		result[i] = ManifestEntry(record)
	}
	return result
}

// ConvertRanking flattens a ranking into rows, marking shortlist membership when a selection exists.
func ConvertRanking(ranking schema.Ranking, selection *schema.DiversitySelection) []RankedRepository {
	decisions := make(map[string]schema.SelectionEntry)
	if selection != nil {
		for _, e := range selection.Entries {
			decisions[e.RepositoryID] = e
		}
	}

	rows := make([]RankedRepository, len(ranking.Entries))
	for i, e := range ranking.Entries {
		row := RankedRepository{
			Rank:            int32(e.Rank),
			RepositoryID:    e.RepositoryID,
			Category:        string(e.Category),
			Status:          string(e.Status),
			RankScore:       e.RankScore,
			Front:           int32(e.Front),
			Popularity:      e.Score.Popularity,
			Activity:        e.Score.Activity,
			CommunityHealth: e.Score.CommunityHealth,
			QualityScore:    e.Score.QualityScore,
			Overall:         e.Score.Overall,
			TiebreakValue:   e.TiebreakValue,
		}
		if e.TiebreakField != "" {
			field := string(e.TiebreakField)
			row.TiebreakField = &field
		}
		if d, ok := decisions[e.RepositoryID]; ok {
			included := d.Included
			bucket := string(d.ScaleBucket)
			row.Included = &included
			row.ScaleBucket = &bucket
		}
		rows[i] = row
	}
	return rows
}
