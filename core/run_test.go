package core

import (
	"context"
	"testing"
	"time"

	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runAsOf = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

// repoMetrics holds the raw values a host and a registry report for one repository.
type repoMetrics struct {
	stars, forks, downloads         float64
	contributors, commits, releases float64
	response, resolution, diversity float64
	docs, tests, security           float64
}

var (
	strongMetrics = repoMetrics{
		stars: 20000, forks: 2000, downloads: 1e6,
		contributors: 200, commits: 30, releases: 12,
		response: 24, resolution: 0.8, diversity: 0.6,
		docs: 0.9, tests: 1, security: 1,
	}
	// mediumMetrics is strong on everything but quality, so it only warns.
	mediumMetrics = repoMetrics{
		stars: 20000, forks: 2000, downloads: 1e6,
		contributors: 200, commits: 30, releases: 12,
		response: 24, resolution: 0.8, diversity: 0.6,
		docs: 0.5, tests: 0, security: 0,
	}
	weakMetrics = repoMetrics{
		stars: 500, forks: 10, downloads: 1000,
		contributors: 3, commits: 1, releases: 1,
		response: 150, resolution: 0.2, diversity: 0.1,
		docs: 0.2, tests: 0, security: 0,
	}
)

func repoRecords(id string, m repoMetrics) []schema.SourceRecord {
	observed := runAsOf.Add(-24 * time.Hour)
	return []schema.SourceRecord{
		{
			RepositoryID: id,
			Source:       schema.HostSource,
			ObservedAt:   observed,
			Fields: map[schema.FieldName]schema.FieldValue{
				schema.StarsField:                schema.Number(m.stars),
				schema.ForksField:                schema.Number(m.forks),
				schema.ContributorsField:         schema.Number(m.contributors),
				schema.CommitFrequencyField:      schema.Number(m.commits),
				schema.ReleaseFrequencyField:     schema.Number(m.releases),
				schema.IssueResponseHoursField:   schema.Number(m.response),
				schema.IssueResolutionRateField:  schema.Number(m.resolution),
				schema.ContributorDiversityField: schema.Number(m.diversity),
				schema.DocsCompletenessField:     schema.Number(m.docs),
				schema.HasTestsField:             schema.Number(m.tests),
				schema.HasSecurityPolicyField:    schema.Number(m.security),
				schema.LicenseField:              schema.String("MIT"),
			},
		},
		{
			RepositoryID: id,
			Source:       schema.RegistryCratesSource,
			ObservedAt:   observed,
			Fields: map[schema.FieldName]schema.FieldValue{
				schema.DownloadsField:     schema.Number(m.downloads),
				schema.LastReleaseAtField: schema.Timestamp(observed.Add(-72 * time.Hour)),
			},
		},
	}
}

// rustBatch has a strong, a medium and a weak rust library.
func rustBatch() schema.Batch {
	batch := schema.Batch{Repositories: []schema.Repository{
		{ID: "tokio-rs/tokio", Category: schema.RustLibraries},
		{ID: "serde-rs/serde", Category: schema.RustLibraries},
		{ID: "someone/tiny", Category: schema.RustLibraries},
	}}
	batch.Records = append(batch.Records, repoRecords("tokio-rs/tokio", strongMetrics)...)
	batch.Records = append(batch.Records, repoRecords("serde-rs/serde", mediumMetrics)...)
	batch.Records = append(batch.Records, repoRecords("someone/tiny", weakMetrics)...)
	return batch
}

func testRunConfig() *contract.Config {
	cfg := contract.NewDefaultConfig()
	cfg.AsOf = runAsOf
	cfg.Workers = 4
	return cfg
}

func rankedIDs(r *schema.Ranking) []string {
	out := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		out = append(out, e.RepositoryID)
	}
	return out
}

func TestPipelineRun(t *testing.T) {
	result, err := NewPipeline(testRunConfig()).Run(context.Background(), rustBatch())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, runAsOf, result.AsOf)
	assert.Equal(t, schema.WeightedSumRank, result.Algorithm)
	assert.Empty(t, result.Incomplete)
	assert.Len(t, result.Unified, 3)
	assert.Len(t, result.Scores, 3)

	t.Run("filter statuses", func(t *testing.T) {
		strong, ok := result.FilterFor("tokio-rs/tokio")
		require.True(t, ok)
		assert.Equal(t, schema.PassedStatus, strong.Status)

		medium, ok := result.FilterFor("serde-rs/serde")
		require.True(t, ok)
		assert.Equal(t, schema.WarningStatus, medium.Status)

		weak, ok := result.FilterFor("someone/tiny")
		require.True(t, ok)
		assert.Equal(t, schema.FailedStatus, weak.Status)
		require.NotNil(t, weak.DecidedBy)
		assert.Equal(t, schema.OverallScore, weak.DecidedBy.Metric)
	})

	t.Run("scores", func(t *testing.T) {
		assert.InDelta(t, 0.73, result.Scores["tokio-rs/tokio"].Overall, 0.02)
		assert.InDelta(t, 0.51, result.Scores["serde-rs/serde"].Overall, 0.02)
		assert.Less(t, result.Scores["someone/tiny"].Overall, 0.2)
	})

	t.Run("rankings leave failed repositories out", func(t *testing.T) {
		require.NotNil(t, result.Global)
		assert.Equal(t, []string{"tokio-rs/tokio", "serde-rs/serde"}, rankedIDs(result.Global))
		assert.Equal(t, 1, result.Global.Entries[0].Rank)
		assert.Equal(t, schema.GlobalScope, result.Global.Scope)

		rust, ok := result.ByCategory[schema.RustLibraries]
		require.True(t, ok)
		assert.Equal(t, rankedIDs(result.Global), rankedIDs(&rust))
		assert.Len(t, result.ByCategory, 1)
	})

	t.Run("selection", func(t *testing.T) {
		require.NotNil(t, result.Selection)
		short := result.Selection.Shortlist()
		require.Len(t, short, 2)
		assert.Equal(t, schema.LargeScale, short[0].ScaleBucket)
		assert.Equal(t, 2, result.Selection.Filled[schema.ScaleBucketKey(schema.LargeScale)])
	})

	t.Run("summary", func(t *testing.T) {
		assert.Equal(t, 3, result.Summary.Repositories)
		assert.Equal(t, 3, result.Summary.Aggregated)
		assert.Equal(t, 0, result.Summary.Failed)
		assert.Equal(t, 1, result.Summary.StatusCounts[schema.PassedStatus])
		assert.Equal(t, 1, result.Summary.StatusCounts[schema.WarningStatus])
		assert.Equal(t, 1, result.Summary.StatusCounts[schema.FailedStatus])
		assert.InDelta(t, 1, result.Summary.MeanCompleteness, 1e-9)
	})
}

func TestPipelineRunManifest(t *testing.T) {
	batch := rustBatch()
	batch.Repositories = append(batch.Repositories,
		schema.Repository{ID: "ghost/empty", Category: schema.GoLibraries},
		schema.Repository{ID: "odd/cobol", Category: "cobol-libraries"},
	)
	batch.Records = append(batch.Records, repoRecords("odd/cobol", strongMetrics)...)
	orphans := repoRecords("never/declared", weakMetrics)
	batch.Records = append(batch.Records, orphans...)

	result, err := NewPipeline(testRunConfig()).Run(context.Background(), batch)
	require.NoError(t, err)

	find := func(id string) []schema.ManifestEntry {
		var out []schema.ManifestEntry
		for _, m := range result.Manifest {
			if m.RepositoryID == id {
				out = append(out, m)
			}
		}
		return out
	}

	orphanEntries := find("never/declared")
	require.Len(t, orphanEntries, 1, "one entry per undeclared repository")
	assert.Equal(t, schema.LoadStage, orphanEntries[0].Stage)
	assert.Equal(t, schema.WarningSeverity, orphanEntries[0].Severity)

	empty := find("ghost/empty")
	require.Len(t, empty, 1)
	assert.Equal(t, schema.AggregateStage, empty[0].Stage)
	assert.Equal(t, schema.ErrorSeverity, empty[0].Severity)
	assert.Equal(t, schema.ErrorCode(schema.ErrNoSourceData), empty[0].Code)

	cobol := find("odd/cobol")
	require.Len(t, cobol, 1)
	assert.Equal(t, schema.ErrorCode(schema.ErrUnknownCategory), cobol[0].Code)

	assert.Equal(t, 5, result.Summary.Repositories)
	assert.Equal(t, 3, result.Summary.Aggregated)
	assert.Equal(t, 2, result.Summary.Failed)
	assert.Len(t, result.Filters, 3)

	require.NotNil(t, result.Global)
	assert.Equal(t, []string{"tokio-rs/tokio", "serde-rs/serde"}, rankedIDs(result.Global))
}

func TestPipelineRunCategoryFilter(t *testing.T) {
	batch := rustBatch()
	batch.Repositories = append(batch.Repositories, schema.Repository{ID: "spf13/cobra", Category: schema.GoLibraries})
	batch.Records = append(batch.Records, repoRecords("spf13/cobra", strongMetrics)...)

	cfg := testRunConfig()
	cfg.Categories = []schema.Category{schema.GoLibraries}

	result, err := NewPipeline(cfg).Run(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Summary.Repositories)
	require.Len(t, result.Unified, 1)
	assert.Equal(t, "spf13/cobra", result.Unified[0].RepositoryID)
	assert.Equal(t, []string{"spf13/cobra"}, rankedIDs(result.Global))
}

func TestPipelineRunTimedOut(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	result, err := NewPipeline(testRunConfig()).Run(ctx, rustBatch())
	require.ErrorIs(t, err, schema.ErrRunTimedOut)
	require.NotNil(t, result, "partial results are returned")

	assert.ElementsMatch(t, []string{"tokio-rs/tokio", "serde-rs/serde", "someone/tiny"}, result.Incomplete)
	assert.Nil(t, result.Global, "no ranking without every repository")
	assert.Nil(t, result.Selection)
	assert.Equal(t, 3, result.Summary.Repositories)

	timedOut := 0
	for _, m := range result.Manifest {
		if m.Code == schema.ErrorCode(schema.ErrRunTimedOut) {
			timedOut++
		}
	}
	assert.Equal(t, 3, timedOut)
}

func TestPipelineRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewPipeline(testRunConfig()).Run(ctx, rustBatch())
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, schema.ErrRunTimedOut)
	require.NotNil(t, result)
	assert.Len(t, result.Incomplete, 3)
}

func TestPipelineRunZeroBudget(t *testing.T) {
	cfg := testRunConfig()
	cfg.Budget = 0

	result, err := NewPipeline(cfg).Run(context.Background(), rustBatch())
	require.NoError(t, err)
	assert.NotNil(t, result.Global)
}

func TestPipelineRunDeterministic(t *testing.T) {
	run := func(workers int, algorithm schema.RankAlgorithm) *schema.RunResult {
		cfg := testRunConfig()
		cfg.Workers = workers
		cfg.Algorithm = algorithm
		result, err := NewPipeline(cfg).Run(context.Background(), rustBatch())
		require.NoError(t, err)
		return result
	}

	for _, algorithm := range []schema.RankAlgorithm{schema.WeightedSumRank, schema.ParetoRank, schema.TopsisRank} {
		t.Run(string(algorithm), func(t *testing.T) {
			serial := run(1, algorithm)
			parallel := run(8, algorithm)

			assert.Equal(t, serial.Unified, parallel.Unified)
			assert.Equal(t, serial.Scores, parallel.Scores)
			assert.Equal(t, serial.Filters, parallel.Filters)
			assert.Equal(t, serial.Global, parallel.Global)
			assert.Equal(t, serial.Selection, parallel.Selection)
			assert.Equal(t, serial.Manifest, parallel.Manifest)
			assert.Equal(t, algorithm, serial.Algorithm)
		})
	}
}

func TestPipelineRunEmptyBatch(t *testing.T) {
	result, err := NewPipeline(testRunConfig()).Run(context.Background(), schema.Batch{})
	require.NoError(t, err)
	require.NotNil(t, result.Global)
	assert.Empty(t, result.Global.Entries)
	assert.Equal(t, 0, result.Summary.Repositories)
}

func TestGlobalWeights(t *testing.T) {
	p := NewPipeline(testRunConfig())

	got := p.globalWeights([]schema.Category{schema.RustLibraries, schema.CLITools})
	assert.InDelta(t, 0.30, got[schema.PopularitySub], 1e-9)
	assert.InDelta(t, 0.25, got[schema.ActivitySub], 1e-9)
	assert.InDelta(t, 0.20, got[schema.CommunityHealthSub], 1e-9)
	assert.InDelta(t, 0.25, got[schema.QualitySub], 1e-9)

	assert.Empty(t, p.globalWeights(nil))
}

func BenchmarkPipelineRun(b *testing.B) {
	batch := rustBatch()
	for i := range 50 {
		id := "bench/repo-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		batch.Repositories = append(batch.Repositories, schema.Repository{ID: id, Category: schema.RustLibraries})
		m := strongMetrics
		m.stars = float64(100 * (i + 1))
		batch.Records = append(batch.Records, repoRecords(id, m)...)
	}
	p := NewPipeline(testRunConfig())

	for b.Loop() {
		if _, err := p.Run(context.Background(), batch); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkScore(b *testing.B) {
	u := unifiedWith(allScoredFields(0.5))
	profile := schema.GetDefaultProfile(schema.RustLibraries)

	for b.Loop() {
		if _, err := Score(u, profile); err != nil {
			b.Fatal(err)
		}
	}
}
