package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *contract.Config {
	cfg := contract.NewDefaultConfig()
	cfg.Workers = 4
	cfg.Width = 160
	return cfg
}

func sampleRunResult() *schema.RunResult {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	stars := 27000.0
	tokio := schema.RankedEntry{
		Rank:         1,
		RepositoryID: "tokio-rs/tokio",
		Category:     schema.RustLibraries,
		Score: schema.ScoreBreakdown{
			Popularity: 0.9, Activity: 0.8, CommunityHealth: 0.7, QualityScore: 0.85, Overall: 0.82,
			Components: map[schema.FieldName]float64{schema.StarsField: 0.11, schema.DocsCompletenessField: 0.1, schema.HasTestsField: 0.08},
		},
		RankScore:     0.82,
		Status:        schema.PassedStatus,
		TiebreakField: schema.StarsField,
		TiebreakValue: &stars,
	}
	serde := schema.RankedEntry{
		Rank:         2,
		RepositoryID: "serde-rs/serde",
		Category:     schema.RustLibraries,
		Score:        schema.ScoreBreakdown{Overall: 0.6},
		RankScore:    0.6,
		Status:       schema.WarningStatus,
	}
	rayon := schema.RankedEntry{
		Rank:         3,
		RepositoryID: "rayon-rs/rayon",
		Category:     schema.RustLibraries,
		Score:        schema.ScoreBreakdown{Overall: 0.4},
		RankScore:    0.4,
		Status:       schema.PassedStatus,
	}

	return &schema.RunResult{
		RunID:      "0d3c9a9e-7d4b-4c55-9a51-2f4f7f1d1c01",
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		AsOf:       started,
		Algorithm:  schema.WeightedSumRank,
		Filters: []schema.FilterResult{
			{RepositoryID: "tokio-rs/tokio", Category: schema.RustLibraries, Status: schema.PassedStatus},
		},
		Global: &schema.Ranking{Algorithm: schema.WeightedSumRank, Scope: schema.GlobalScope, Entries: []schema.RankedEntry{tokio, serde, rayon}},
		Selection: &schema.DiversitySelection{
			Algorithm: schema.WeightedSumRank,
			Entries: []schema.SelectionEntry{
				{RankedEntry: tokio, ScaleBucket: schema.LargeScale, Included: true, Bucket: schema.ScaleBucketKey(schema.LargeScale)},
				{RankedEntry: serde, ScaleBucket: schema.LargeScale, Included: false, Reason: "QuotaExhausted: scale:large full"},
				{RankedEntry: rayon, ScaleBucket: schema.SmallScale, Included: true, Bucket: schema.ScaleBucketKey(schema.SmallScale)},
			},
		},
		Manifest: []schema.ManifestEntry{
			{RepositoryID: "ghost/empty", Stage: schema.AggregateStage, Severity: schema.ErrorSeverity, Code: "NoSourceData", Message: "no source data"},
		},
		Summary: schema.DataQualitySummary{
			Repositories:     4,
			Aggregated:       3,
			Failed:           1,
			MeanCompleteness: 0.75,
			MinCompleteness:  0.5,
			MissingFields:    map[schema.FieldName]int{schema.DownloadsField: 2},
			LowQuality:       []string{"rayon-rs/rayon"},
			StatusCounts:     map[schema.FilterStatus]int{schema.PassedStatus: 2, schema.WarningStatus: 1},
		},
	}
}

func TestWriteRunTable(t *testing.T) {
	fmtFloat, _ := createFormatters(2)
	cfg := testConfig()

	var buf bytes.Buffer
	require.NoError(t, writeRunTable(&buf, sampleRunResult(), cfg, fmtFloat, time.Second))
	out := buf.String()

	assert.Contains(t, out, "WEIGHTED SUM shortlist (2 of 3 ranked)")
	assert.Contains(t, out, "tokio-rs/tokio")
	assert.Contains(t, out, "rayon-rs/rayon")
	assert.NotContains(t, out, "serde-rs/serde", "excluded entries are not part of the shortlist")
	assert.Contains(t, out, "1 ranked repositories excluded by diversity quotas")
	assert.Contains(t, out, "Manifest (1)")
	assert.Contains(t, out, "NoSourceData")
	assert.Contains(t, out, "Data quality")
	assert.Contains(t, out, "downloads (2)")
	assert.Contains(t, out, "passed 2, warning 1, failed 0")
	assert.Contains(t, out, "Run 0d3c9a9e-7d4b-4c55-9a51-2f4f7f1d1c01 completed")
}

func TestWriteRunTableVariants(t *testing.T) {
	fmtFloat, _ := createFormatters(2)

	t.Run("explain", func(t *testing.T) {
		cfg := testConfig()
		cfg.Explain = true
		var buf bytes.Buffer
		require.NoError(t, writeRunTable(&buf, sampleRunResult(), cfg, fmtFloat, time.Second))
		assert.Contains(t, buf.String(), "stars")
	})

	t.Run("limit", func(t *testing.T) {
		cfg := testConfig()
		cfg.ResultLimit = 1
		var buf bytes.Buffer
		require.NoError(t, writeRunTable(&buf, sampleRunResult(), cfg, fmtFloat, time.Second))
		assert.Contains(t, buf.String(), "shortlist (1 of 3 ranked)")
	})

	t.Run("timed out", func(t *testing.T) {
		result := sampleRunResult()
		result.Global = nil
		result.Selection = nil
		result.Incomplete = []string{"a/b", "c/d"}
		var buf bytes.Buffer
		require.NoError(t, writeRunTable(&buf, result, testConfig(), fmtFloat, time.Second))
		assert.Contains(t, buf.String(), "No ranking: 2 of 4 repositories")
		assert.Contains(t, buf.String(), "Data quality")
	})

	t.Run("no manifest", func(t *testing.T) {
		result := sampleRunResult()
		result.Manifest = nil
		var buf bytes.Buffer
		require.NoError(t, writeRunTable(&buf, result, testConfig(), fmtFloat, time.Second))
		assert.NotContains(t, buf.String(), "Manifest")
	})
}

func TestWriteJSONRunResult(t *testing.T) {
	cfg := testConfig()

	var buf bytes.Buffer
	require.NoError(t, writeJSONRunResult(&buf, sampleRunResult(), cfg))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "0d3c9a9e-7d4b-4c55-9a51-2f4f7f1d1c01", doc["run_id"])
	assert.Equal(t, "weighted_sum", doc["algorithm"])

	shortlist, ok := doc["shortlist"].([]any)
	require.True(t, ok)
	require.Len(t, shortlist, 2)
	first := shortlist[0].(map[string]any)
	assert.Equal(t, "tokio-rs/tokio", first["repository"])
	assert.Equal(t, "Strong", first["label"])
	assert.Equal(t, true, first["included"])
	assert.Equal(t, "large", first["scale_bucket"])

	excluded, ok := doc["excluded"].([]any)
	require.True(t, ok)
	require.Len(t, excluded, 1)
	assert.Equal(t, "QuotaExhausted: scale:large full", excluded[0].(map[string]any)["reason"])

	assert.NotContains(t, doc, "filters", "filters are only written with explain")

	t.Run("explain", func(t *testing.T) {
		cfg := testConfig()
		cfg.Explain = true
		var buf bytes.Buffer
		require.NoError(t, writeJSONRunResult(&buf, sampleRunResult(), cfg))
		var doc map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
		assert.Contains(t, doc, "filters")
	})

	t.Run("empty manifest is an array", func(t *testing.T) {
		result := sampleRunResult()
		result.Manifest = nil
		var buf bytes.Buffer
		require.NoError(t, writeJSONRunResult(&buf, result, testConfig()))
		assert.Contains(t, buf.String(), `"manifest": []`)
	})
}

func TestWriteCSVRunResult(t *testing.T) {
	fmtFloat, _ := createFormatters(2)

	var buf bytes.Buffer
	require.NoError(t, writeCSVRunResult(&buf, sampleRunResult(), fmtFloat))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4) // header + 3 rows

	assert.Equal(t, "rank", records[0][0])
	assert.Equal(t, []string{"1", "tokio-rs/tokio", "rust-libraries", "passed", "0.82", "Strong"}, records[1][:6])
	assert.Equal(t, "stars=27000.00", records[1][12])
	assert.Equal(t, "false", records[2][14])
	assert.Equal(t, "QuotaExhausted: scale:large full", records[2][16])
}

func TestWriteCSVRunResult_NoSelection(t *testing.T) {
	fmtFloat, _ := createFormatters(2)
	result := sampleRunResult()
	result.Selection = nil

	var buf bytes.Buffer
	require.NoError(t, writeCSVRunResult(&buf, result, fmtFloat))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	for _, rec := range records[1:] {
		assert.Equal(t, "true", rec[14], "a ranking without selection includes everything")
	}
}

func TestWriteRunResult(t *testing.T) {
	dir := t.TempDir()
	modes := []schema.OutputMode{schema.TextOut, schema.CSVOut, schema.JSONOut, schema.ParquetOut}
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			cfg := testConfig()
			cfg.Output = mode
			cfg.OutputFile = filepath.Join(dir, "result."+string(mode))

			require.NoError(t, WriteRunResult(sampleRunResult(), cfg, time.Second))
			info, err := os.Stat(cfg.OutputFile)
			require.NoError(t, err)
			assert.Greater(t, info.Size(), int64(0))
		})
	}

	t.Run("timed out parquet", func(t *testing.T) {
		result := sampleRunResult()
		result.Global = nil
		cfg := testConfig()
		cfg.Output = schema.ParquetOut
		cfg.OutputFile = filepath.Join(dir, "partial.parquet")
		assert.NoError(t, WriteRunResult(result, cfg, time.Second))
	})

	t.Run("parquet needs a file", func(t *testing.T) {
		cfg := testConfig()
		cfg.Output = schema.ParquetOut
		err := WriteRunResult(sampleRunResult(), cfg, time.Second)
		assert.ErrorContains(t, err, "requires --output-file")
	})

	t.Run("nil result", func(t *testing.T) {
		assert.Error(t, WriteRunResult(nil, testConfig(), 0))
	})
}

func TestLogRunHeader(t *testing.T) {
	cfg := testConfig()
	assert.NotPanics(t, func() { LogRunHeader(cfg, 10, 42) })

	cfg.AsOf = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg.Budget = 0
	cfg.Categories = []schema.Category{schema.RustLibraries}
	assert.NotPanics(t, func() { LogRunHeader(cfg, 1, 1) })
}

func TestGetMaxTableIDWidth(t *testing.T) {
	tests := []struct {
		name      string
		width     int
		explain   bool
		algorithm schema.RankAlgorithm
		want      int
	}{
		{"narrow terminal", 80, false, schema.WeightedSumRank, 15},
		{"medium terminal", 120, false, schema.WeightedSumRank, 45},
		{"wide terminal is capped", 200, false, schema.WeightedSumRank, 60},
		{"explain column", 150, true, schema.WeightedSumRank, 40},
		{"pareto front column", 120, false, schema.ParetoRank, 37},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Width = tt.width
			cfg.Explain = tt.explain
			cfg.Algorithm = tt.algorithm
			assert.Equal(t, tt.want, getMaxTableIDWidth(cfg))
		})
	}
}

func TestColorLabel(t *testing.T) {
	assert.Equal(t, contract.StrongValue, colorLabel(0.9, false))
	assert.True(t, strings.Contains(colorLabel(0.9, true), contract.StrongValue))
}
