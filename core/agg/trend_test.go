package agg

import (
	"testing"
	"time"

	"github.com/huangsam/reposcout/schema"
	"github.com/stretchr/testify/assert"
)

func series(values ...float64) []TrendPoint {
	points := make([]TrendPoint, len(values))
	for i, v := range values {
		points[i] = TrendPoint{At: t0.AddDate(0, 0, 30*i), Value: v}
	}
	return points
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name      string
		points    []TrendPoint
		direction schema.TrendDirection
		growth    float64
	}{
		{"increasing", series(100, 200, 300, 400), schema.Increasing, 300},
		{"decreasing", series(400, 300, 200, 100), schema.Decreasing, -75},
		{"stable", series(1000, 1001, 1000, 1001), schema.Stable, 0.1},
		{"volatile", series(100, 400, 50, 450, 80, 300), schema.Volatile, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Trend(schema.HostSource, tt.points)
			assert.Equal(t, tt.direction, got.Direction)
			assert.InDelta(t, tt.growth, got.GrowthPercent, 1e-9)
			assert.Equal(t, len(tt.points), got.Points)
			assert.Equal(t, tt.points[0].At, got.First)
		})
	}
}

func TestTrendCAGR(t *testing.T) {
	points := []TrendPoint{
		{At: t0, Value: 100},
		{At: t0.Add(365 * 24 * time.Hour), Value: 121},
		{At: t0.Add(2 * 365 * 24 * time.Hour), Value: 121},
	}
	got := Trend(schema.RegistryNPMSource, points)
	assert.InDelta(t, 10, got.CAGR, 1e-9)
	assert.InDelta(t, 21, got.GrowthPercent, 1e-9)
}

func TestTrendUnsortedAndShortInput(t *testing.T) {
	assert.Equal(t, schema.TrendSummary{}, Trend(schema.HostSource, series(5)))

	sorted := Trend(schema.HostSource, series(1, 2, 3))
	shuffled := series(1, 2, 3)
	shuffled[0], shuffled[2] = shuffled[2], shuffled[0]
	assert.Equal(t, sorted, Trend(schema.HostSource, shuffled))
}

func TestHistoryTrendPrefersPriority(t *testing.T) {
	records := []schema.SourceRecord{
		record(schema.TrendingSource, 3, fields{schema.StarsField: schema.Number(10)}),
		record(schema.TrendingSource, 2, fields{schema.StarsField: schema.Number(20)}),
		record(schema.HostSource, 2, fields{schema.StarsField: schema.Number(10)}),
		record(schema.HostSource, 1, fields{schema.StarsField: schema.Number(20)}),
		record(schema.RegistryNPMSource, 1, fields{schema.StarsField: schema.Number(20)}),
	}
	got, ok := historyTrend(schema.StarsField, records, []schema.SourceID{schema.HostSource, schema.TrendingSource})
	assert.True(t, ok)
	assert.Equal(t, schema.HostSource, got.Source)

	_, ok = historyTrend(schema.DownloadsField, records, nil)
	assert.False(t, ok)
}
