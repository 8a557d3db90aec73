package agg

import (
	"testing"

	"github.com/huangsam/reposcout/schema"
	"github.com/stretchr/testify/assert"
)

func TestSummarizeQuality(t *testing.T) {
	records := []schema.UnifiedRecord{
		{
			RepositoryID: "b/low",
			Quality:      schema.DataQuality{Completeness: 0.25, Consistency: 1, Freshness: 0.5},
			Fields: map[schema.FieldName]schema.ResolvedField{
				schema.DownloadsField: schema.MissingField("no source reported the field"),
				schema.LicenseField:   schema.MissingField("no source reported the field"),
			},
		},
		{
			RepositoryID: "a/high",
			Quality:      schema.DataQuality{Completeness: 0.75, Consistency: 0.5, Freshness: 1},
			Fields: map[schema.FieldName]schema.ResolvedField{
				schema.DownloadsField: schema.MissingField("no source reported the field"),
			},
		},
	}
	filters := []schema.FilterResult{
		{RepositoryID: "a/high", Status: schema.WarningStatus},
		{RepositoryID: "b/low", Status: schema.FailedStatus},
	}

	summary := SummarizeQuality(3, records, filters)

	assert.Equal(t, 3, summary.Repositories)
	assert.Equal(t, 2, summary.Aggregated)
	assert.Equal(t, 1, summary.Failed)
	assert.InDelta(t, 0.5, summary.MeanCompleteness, 1e-9)
	assert.InDelta(t, 0.75, summary.MeanConsistency, 1e-9)
	assert.InDelta(t, 0.75, summary.MeanFreshness, 1e-9)
	assert.Equal(t, 0.25, summary.MinCompleteness)
	assert.Equal(t, 0.5, summary.MinConsistency)
	assert.Equal(t, 0.5, summary.MinFreshness)
	assert.Equal(t, map[schema.FieldName]int{schema.DownloadsField: 2, schema.LicenseField: 1}, summary.MissingFields)
	assert.Equal(t, []string{"b/low"}, summary.LowQuality)
	assert.Equal(t, map[schema.FilterStatus]int{schema.WarningStatus: 1, schema.FailedStatus: 1}, summary.StatusCounts)
}

func TestSummarizeQualityEmpty(t *testing.T) {
	summary := SummarizeQuality(2, nil, nil)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 0.0, summary.MinCompleteness)
	assert.Empty(t, summary.LowQuality)
}
