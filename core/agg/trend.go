package agg

import (
	"math"
	"slices"
	"time"

	"github.com/huangsam/reposcout/core/algo"
	"github.com/huangsam/reposcout/schema"
)

const (
	stableRelativeChange = 0.02 // fitted change over the window, relative to the mean
	volatileRSquared     = 0.5
	daysPerYear          = 365.0
)

// TrendPoint is one observation in a field's history.
type TrendPoint struct {
	At    time.Time
	Value float64
}

// Trend fits a line through the points and classifies its direction.
// Fewer than two points give a zero summary.
func Trend(source schema.SourceID, points []TrendPoint) schema.TrendSummary {
	if len(points) < 2 {
		return schema.TrendSummary{}
	}
	points = slices.Clone(points)
	slices.SortStableFunc(points, func(a, b TrendPoint) int { return a.At.Compare(b.At) })

	first, last := points[0], points[len(points)-1]
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.At.Sub(first.At).Hours() / 24
		ys[i] = p.Value
	}
	slope, _, r2 := algo.LinearRegression(xs, ys)

	summary := schema.TrendSummary{
		Source:      source,
		Points:      len(points),
		SlopePerDay: slope,
		RSquared:    r2,
		First:       first.At,
		Last:        last.At,
	}
	if first.Value != 0 {
		summary.GrowthPercent = (last.Value - first.Value) / math.Abs(first.Value) * 100
	}
	spanDays := xs[len(xs)-1]
	if years := spanDays / daysPerYear; years > 0 && first.Value > 0 && last.Value > 0 {
		summary.CAGR = (math.Pow(last.Value/first.Value, 1/years) - 1) * 100
	}

	var meanAbs float64
	for _, y := range ys {
		meanAbs += math.Abs(y)
	}
	meanAbs /= float64(len(ys))

	relative := 0.0
	if meanAbs > 0 {
		relative = slope * spanDays / meanAbs
	}
	switch {
	case math.Abs(relative) < stableRelativeChange:
		summary.Direction = schema.Stable
	case len(points) > 2 && r2 < volatileRSquared:
		summary.Direction = schema.Volatile
	case relative > 0:
		summary.Direction = schema.Increasing
	default:
		summary.Direction = schema.Decreasing
	}
	return summary
}

// historyTrend picks the highest-priority source with at least two numeric observations
// of the field and summarizes its history.
func historyTrend(field schema.FieldName, records []schema.SourceRecord, priority []schema.SourceID) (schema.TrendSummary, bool) {
	series := make(map[schema.SourceID][]TrendPoint)
	var sources []Observation
	for _, rec := range records {
		v, ok := rec.Fields[field].Float()
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if _, seen := series[rec.Source]; !seen {
			sources = append(sources, Observation{Source: rec.Source})
		}
		series[rec.Source] = append(series[rec.Source], TrendPoint{At: rec.ObservedAt, Value: v})
	}
	for _, o := range sortByPriority(sources, priority) {
		if points := series[o.Source]; len(points) >= 2 {
			return Trend(o.Source, points), true
		}
	}
	return schema.TrendSummary{}, false
}
