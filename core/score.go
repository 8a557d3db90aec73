package core

import (
	"fmt"

	"github.com/huangsam/reposcout/core/algo"
	"github.com/huangsam/reposcout/schema"
)

// Score computes the four sub-scores and the weighted overall score of a unified record.
//
// Each sub-score is the weighted mean of its metric values:
// - popularity: stars, downloads, fork/star ratio
// - activity: commit frequency, contributors, release frequency
// - community_health: issue response time (inverted), issue resolution rate, contributor diversity
// - quality_score: docs completeness, tests, security policy
//
// A missing metric contributes 0 while its weight stays in the denominator, so absent data
// lowers the score instead of being ignored. Components records the contribution of each
// metric to the overall score.
func Score(record schema.UnifiedRecord, profile schema.WeightProfile) (schema.ScoreBreakdown, error) {
	if len(profile.Overall) == 0 {
		return schema.ScoreBreakdown{}, fmt.Errorf("profile for %s has no overall weights: %w", record.Category, schema.ErrInvalidConfig)
	}

	breakdown := schema.ScoreBreakdown{Components: make(map[schema.FieldName]float64)}
	subs := make(map[schema.SubScore]float64, len(schema.AllSubScores))

	for _, sub := range schema.AllSubScores {
		weights := profile.Metrics[sub]
		total := 0.0
		for _, w := range weights {
			total += w
		}
		if total <= 0 {
			continue
		}

		value := 0.0
		for _, field := range schema.SortedFieldNames(weights) {
			share := weights[field] / total
			v := metricValue(record, field)
			value += share * v
			if contribution := profile.Overall[sub] * share * v; contribution > 0 {
				breakdown.Components[field] += contribution
			}
		}
		subs[sub] = algo.Clamp01(value)
	}

	breakdown.Popularity = subs[schema.PopularitySub]
	breakdown.Activity = subs[schema.ActivitySub]
	breakdown.CommunityHealth = subs[schema.CommunityHealthSub]
	breakdown.QualityScore = subs[schema.QualitySub]

	overall := 0.0
	for _, sub := range schema.AllSubScores {
		overall += profile.Overall[sub] * subs[sub]
	}
	breakdown.Overall = algo.Clamp01(overall)

	if len(breakdown.Components) == 0 {
		breakdown.Components = nil
	}
	return breakdown, nil
}

// metricValue returns the normalized value of a field. Fields without one score 0.
func metricValue(record schema.UnifiedRecord, field schema.FieldName) float64 {
	if n, ok := record.Normalized(field); ok {
		return algo.Clamp01(n)
	}
	return 0
}
