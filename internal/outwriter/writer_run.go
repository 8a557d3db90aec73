package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/internal/parquet"
	"github.com/huangsam/reposcout/schema"
)

// jsonShortlistEntry is a shortlist entry with its score label.
type jsonShortlistEntry struct {
	Label string `json:"label"`
	schema.SelectionEntry
}

// jsonRunResult is the JSON document of a run.
type jsonRunResult struct {
	RunID      string                    `json:"run_id"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
	AsOf       time.Time                 `json:"as_of"`
	Algorithm  schema.RankAlgorithm      `json:"algorithm"`
	Shortlist  []jsonShortlistEntry      `json:"shortlist"`
	Excluded   []schema.SelectionEntry   `json:"excluded,omitempty"`
	Global     *schema.Ranking           `json:"global,omitempty"`
	Filters    []schema.FilterResult     `json:"filters,omitempty"`
	Unified    []schema.UnifiedRecord    `json:"unified,omitempty"`
	Manifest   []schema.ManifestEntry    `json:"manifest"`
	Summary    schema.DataQualitySummary `json:"summary"`
	Incomplete []string                  `json:"incomplete,omitempty"`
}

// writeJSONRunResult writes the run in JSON format. Explain adds the filter evidence and
// the unified records with their provenance.
func writeJSONRunResult(w io.Writer, result *schema.RunResult, cfg *contract.Config) error {
	rows, _ := shortlistRows(result, cfg.ResultLimit)
	doc := jsonRunResult{
		RunID:      result.RunID,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		AsOf:       result.AsOf,
		Algorithm:  result.Algorithm,
		Shortlist:  make([]jsonShortlistEntry, len(rows)),
		Global:     result.Global,
		Manifest:   result.Manifest,
		Summary:    result.Summary,
		Incomplete: result.Incomplete,
	}
	for i, e := range rows {
		doc.Shortlist[i] = jsonShortlistEntry{Label: contract.GetPlainLabel(e.Score.Overall), SelectionEntry: e}
	}
	for _, e := range rankedRows(result) {
		if !e.Included {
			doc.Excluded = append(doc.Excluded, e)
		}
	}
	if doc.Manifest == nil {
		doc.Manifest = []schema.ManifestEntry{}
	}
	if cfg.Explain {
		doc.Filters = result.Filters
		doc.Unified = result.Unified
	}
	return writeJSON(w, doc)
}

// writeCSVRunResult writes one row per ranked repository with its shortlist decision.
func writeCSVRunResult(w io.Writer, result *schema.RunResult, fmtFloat func(float64) string) error {
	header := []string{
		"rank",
		"repository",
		"category",
		"status",
		"rank_score",
		"label",
		"front",
		"popularity",
		"activity",
		"community_health",
		"quality_score",
		"overall",
		"tiebreak",
		"scale_bucket",
		"included",
		"bucket",
		"reason",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, e := range rankedRows(result) {
			rec := []string{
				strconv.Itoa(e.Rank),
				e.RepositoryID,
				string(e.Category),
				string(e.Status),
				fmtFloat(e.RankScore),
				contract.GetPlainLabel(e.Score.Overall),
				strconv.Itoa(e.Front),
				fmtFloat(e.Score.Popularity),
				fmtFloat(e.Score.Activity),
				fmtFloat(e.Score.CommunityHealth),
				fmtFloat(e.Score.QualityScore),
				fmtFloat(e.Score.Overall),
				formatTiebreak(e.RankedEntry, fmtFloat),
				string(e.ScaleBucket),
				strconv.FormatBool(e.Included),
				e.Bucket,
				e.Reason,
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		return nil
	})
}

// writeParquetRunResult writes the global ranking with shortlist decisions to a Parquet file.
func writeParquetRunResult(result *schema.RunResult, outputFile string) error {
	if outputFile == "" {
		return errors.New("parquet output requires --output-file")
	}
	var rows []parquet.RankedRepository
	if result.Global != nil {
		rows = parquet.ConvertRanking(*result.Global, result.Selection)
	}
	if err := parquet.WriteRankingParquet(rows, outputFile); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote Parquet to %s\n", outputFile)
	return nil
}
