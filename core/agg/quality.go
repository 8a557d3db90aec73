package agg

import (
	"math"
	"slices"
	"time"

	"github.com/huangsam/reposcout/schema"
)

// LowQualityCompleteness marks records that lack too much expected data for the summary.
const LowQualityCompleteness = 0.5

// completeness is the share of expected fields that resolved to a value.
func completeness(fields map[schema.FieldName]schema.ResolvedField, expected []schema.FieldName) float64 {
	if len(expected) == 0 {
		return 1
	}
	resolved := 0
	for _, name := range expected {
		if rf, ok := fields[name]; ok && !rf.Missing {
			resolved++
		}
	}
	return float64(resolved) / float64(len(expected))
}

// consistency is one minus the share of multi-source fields whose sources disagree.
func consistency(fields map[schema.FieldName]schema.ResolvedField) float64 {
	multi, disagreeing := 0, 0
	for _, rf := range fields {
		if len(rf.Sources) < 2 {
			continue
		}
		multi++
		if rf.Disagreement {
			disagreeing++
		}
	}
	if multi == 0 {
		return 1
	}
	return 1 - float64(disagreeing)/float64(multi)
}

// freshness is the lowest exponential decay factor over the resolved fields, where each
// field decays with the half-life of its class from its stalest observation.
func freshness(fields map[schema.FieldName]schema.ResolvedField, halfLives map[schema.FieldClass]time.Duration, asOf time.Time) float64 {
	lowest := math.Inf(1)
	for name, rf := range fields {
		if rf.Missing || rf.ObservedAt.IsZero() {
			continue
		}
		halfLife, ok := halfLives[schema.ClassOf(name)]
		if !ok || halfLife <= 0 {
			continue
		}
		age := asOf.Sub(rf.ObservedAt)
		if age < 0 {
			age = 0
		}
		decay := math.Pow(0.5, age.Hours()/halfLife.Hours())
		lowest = math.Min(lowest, decay)
	}
	if math.IsInf(lowest, 1) {
		return 0
	}
	return lowest
}

// SummarizeQuality rolls data quality up over a run. total counts every repository
// the run was asked to process, including the ones that failed to aggregate.
func SummarizeQuality(total int, records []schema.UnifiedRecord, filters []schema.FilterResult) schema.DataQualitySummary {
	summary := schema.DataQualitySummary{
		Repositories:  total,
		Aggregated:    len(records),
		Failed:        total - len(records),
		MissingFields: make(map[schema.FieldName]int),
		StatusCounts:  make(map[schema.FilterStatus]int),
		LowQuality:    []string{},
	}
	for _, f := range filters {
		summary.StatusCounts[f.Status]++
	}
	if len(records) == 0 {
		return summary
	}

	summary.MinCompleteness, summary.MinConsistency, summary.MinFreshness = 1, 1, 1
	for _, u := range records {
		q := u.Quality
		summary.MeanCompleteness += q.Completeness
		summary.MeanConsistency += q.Consistency
		summary.MeanFreshness += q.Freshness
		summary.MinCompleteness = math.Min(summary.MinCompleteness, q.Completeness)
		summary.MinConsistency = math.Min(summary.MinConsistency, q.Consistency)
		summary.MinFreshness = math.Min(summary.MinFreshness, q.Freshness)
		for _, name := range u.MissingFields() {
			summary.MissingFields[name]++
		}
		if q.Completeness < LowQualityCompleteness {
			summary.LowQuality = append(summary.LowQuality, u.RepositoryID)
		}
	}
	n := float64(len(records))
	summary.MeanCompleteness /= n
	summary.MeanConsistency /= n
	summary.MeanFreshness /= n
	slices.Sort(summary.LowQuality)
	return summary
}
