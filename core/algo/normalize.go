package algo

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/huangsam/reposcout/schema"
)

// FieldStats describes the population distribution of one numeric field.
type FieldStats struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64 // sample
	Median float64
	Q1     float64
	Q3     float64
}

// PopulationStats is a frozen snapshot of per-field statistics for one run.
// It has no mutators, so it is safe to share between workers.
type PopulationStats struct {
	fields map[schema.FieldName]FieldStats
}

// Field returns the statistics of a field, if any observation was numeric.
func (p PopulationStats) Field(name schema.FieldName) (FieldStats, bool) {
	fs, ok := p.fields[name]
	return fs, ok
}

// Fields lists the fields that have statistics, in sorted order.
func (p PopulationStats) Fields() []schema.FieldName {
	return schema.SortedFieldNames(p.fields)
}

// NewFieldStats computes the statistics of a sample. Non-finite values are ignored.
func NewFieldStats(values []float64) FieldStats {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return FieldStats{}
	}
	slices.Sort(finite)
	return FieldStats{
		Count:  len(finite),
		Min:    finite[0],
		Max:    finite[len(finite)-1],
		Mean:   Mean(finite),
		StdDev: SampleStdDev(finite),
		Median: quantileSorted(finite, 0.5),
		Q1:     quantileSorted(finite, 0.25),
		Q3:     quantileSorted(finite, 0.75),
	}
}

// BuildPopulationStats collects every latest-per-source numeric observation of every
// repository and freezes the per-field statistics.
func BuildPopulationStats(inputs []schema.RepositoryInput) PopulationStats {
	samples := make(map[schema.FieldName][]float64)
	for _, in := range inputs {
		for _, rec := range LatestBySource(in.Records) {
			for name, value := range rec.Fields {
				if v, ok := value.Float(); ok {
					samples[name] = append(samples[name], v)
				}
			}
		}
	}

	stats := PopulationStats{fields: make(map[schema.FieldName]FieldStats, len(samples))}
	for name, values := range samples {
		if fs := NewFieldStats(values); fs.Count > 0 {
			stats.fields[name] = fs
		}
	}
	return stats
}

// LatestBySource keeps the most recent record of every source, ordered by source.
// Among records observed at the same instant, the last one given wins.
func LatestBySource(records []schema.SourceRecord) []schema.SourceRecord {
	latest := make(map[schema.SourceID]schema.SourceRecord, len(records))
	for _, rec := range records {
		prev, ok := latest[rec.Source]
		if !ok || !rec.ObservedAt.Before(prev.ObservedAt) {
			latest[rec.Source] = rec
		}
	}
	out := make([]schema.SourceRecord, 0, len(latest))
	for _, rec := range latest {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b schema.SourceRecord) int {
		return strings.Compare(string(a.Source), string(b.Source))
	})
	return out
}

// Normalize rescales a raw value onto [0,1] according to spec. Bounds the spec leaves
// open are taken from the population stats of the field.
func Normalize(value float64, spec schema.NormSpec, stats FieldStats) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("value %v is not finite: %w", value, schema.ErrInvalidMetricValue)
	}

	var n float64
	switch spec.Strategy {
	case schema.MinMaxNorm, "":
		n = minMax(value, spec, stats)
	case schema.ZScoreNorm:
		if stats.Count < 2 || stats.StdDev == 0 {
			n = 0.5
		} else {
			n = Sigmoid((value - stats.Mean) / stats.StdDev)
		}
	case schema.LogScale:
		if value < 0 {
			return 0, fmt.Errorf("log_scale needs a non-negative value, got %v: %w", value, schema.ErrInvalidMetricValue)
		}
		ceiling := stats.Max
		if spec.Ceiling != nil {
			ceiling = *spec.Ceiling
		}
		if ceiling <= 0 {
			n = 0
		} else {
			n = math.Log1p(value) / math.Log1p(ceiling)
		}
	case schema.RobustNorm:
		iqr := stats.Q3 - stats.Q1
		if stats.Count == 0 || iqr == 0 {
			n = 0.5
		} else {
			n = Sigmoid((value - stats.Median) / iqr)
		}
	default:
		return 0, fmt.Errorf("unknown normalization strategy %q", spec.Strategy)
	}

	n = Clamp01(n)
	if spec.Invert {
		n = 1 - n
	}
	return n, nil
}

func minMax(value float64, spec schema.NormSpec, stats FieldStats) float64 {
	lo, hi := stats.Min, stats.Max
	if stats.Count == 0 {
		lo, hi = value, value
	}
	if spec.Min != nil {
		lo = *spec.Min
	}
	if spec.Max != nil {
		hi = *spec.Max
	}
	if hi <= lo {
		return 0.5
	}
	return (value - lo) / (hi - lo)
}

// ValidateNormSpec rejects specs that can never produce a meaningful value.
func ValidateNormSpec(field schema.FieldName, spec schema.NormSpec) error {
	if _, ok := schema.ValidNormStrategies[spec.Strategy]; !ok {
		return fmt.Errorf("field %s: unknown normalization strategy %q: %w", field, spec.Strategy, schema.ErrInvalidConfig)
	}
	if spec.Min != nil && spec.Max != nil && *spec.Max < *spec.Min {
		return fmt.Errorf("field %s: max %v is below min %v: %w", field, *spec.Max, *spec.Min, schema.ErrInvalidConfig)
	}
	if spec.Ceiling != nil && *spec.Ceiling <= 0 {
		return fmt.Errorf("field %s: ceiling must be positive: %w", field, schema.ErrInvalidConfig)
	}
	return nil
}
