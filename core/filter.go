package core

import (
	"github.com/huangsam/reposcout/schema"
)

// Classify evaluates the threshold set against a scored record.
//
// Must-criteria are evaluated first; any violation fails the record, and the first one
// decides it. Quality criteria are always evaluated in full; a violation only downgrades
// a record that met every must-criterion to warning. A metric that cannot be resolved
// counts as violated.
func Classify(record schema.UnifiedRecord, score schema.ScoreBreakdown, thresholds schema.ThresholdSet) schema.FilterResult {
	result := schema.FilterResult{
		RepositoryID: record.RepositoryID,
		Category:     record.Category,
		Status:       schema.PassedStatus,
		Thresholds:   thresholds,
		Evidence:     make([]schema.Evidence, 0, len(thresholds.Must)+len(thresholds.Quality)),
	}

	for _, c := range thresholds.Must {
		ev := evaluate(schema.MustCriterion, c, record, score)
		result.Evidence = append(result.Evidence, ev)
		if !ev.Passed {
			result.MustViolations = append(result.MustViolations, ev)
		}
	}
	qualityViolated := false
	for _, c := range thresholds.Quality {
		ev := evaluate(schema.QualityCriterion, c, record, score)
		result.Evidence = append(result.Evidence, ev)
		if !ev.Passed {
			qualityViolated = true
		}
	}

	switch {
	case len(result.MustViolations) > 0:
		result.Status = schema.FailedStatus
		decided := result.MustViolations[0]
		result.DecidedBy = &decided
	case qualityViolated:
		result.Status = schema.WarningStatus
	}
	return result
}

func evaluate(kind schema.CriterionKind, c schema.Criterion, record schema.UnifiedRecord, score schema.ScoreBreakdown) schema.Evidence {
	ev := schema.Evidence{Kind: kind, Metric: c.Metric, Op: c.Op, Threshold: c.Threshold}
	value, ok := ResolveMetric(c.Metric, record, score)
	if !ok {
		ev.Missing = true
		return ev
	}
	ev.Value = value
	ev.Passed = c.Holds(value)
	return ev
}

// ResolveMetric looks a metric up in the score keys, then the data quality keys, then
// the resolved numeric fields of the record.
func ResolveMetric(metric string, record schema.UnifiedRecord, score schema.ScoreBreakdown) (float64, bool) {
	if v, ok := score.Metric(metric); ok {
		return v, true
	}
	if v, ok := record.Quality.Metric(metric); ok {
		return v, true
	}
	return record.Number(schema.FieldName(metric))
}
