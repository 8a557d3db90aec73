// Package agg merges per-source observations into unified repository records.
package agg

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/huangsam/reposcout/core/algo"
	"github.com/huangsam/reposcout/schema"
)

// Settings is the frozen context an Aggregator works with.
type Settings struct {
	Policies       map[schema.FieldName]schema.FieldConflictPolicy
	DefaultPolicy  schema.FieldConflictPolicy
	Normalization  map[schema.FieldName]schema.NormSpec
	ExpectedFields map[schema.Category][]schema.FieldName
	HalfLives      map[schema.FieldClass]time.Duration
	TrendFields    []schema.FieldName
	Resolve        ResolveOptions
	Stats          algo.PopulationStats
	AsOf           time.Time
}

// DefaultSettings returns settings built from the schema defaults, evaluated at asOf.
func DefaultSettings(stats algo.PopulationStats, asOf time.Time) Settings {
	expected := make(map[schema.Category][]schema.FieldName, len(schema.AllCategories))
	for _, c := range schema.AllCategories {
		expected[c] = schema.DefaultExpectedFields(c)
	}
	return Settings{
		Policies:       schema.DefaultPolicies(),
		DefaultPolicy:  schema.DefaultPolicy(),
		Normalization:  schema.DefaultNormalization(),
		ExpectedFields: expected,
		HalfLives:      schema.DefaultHalfLives(),
		TrendFields:    schema.DefaultTrendFields(),
		Resolve:        DefaultResolveOptions(),
		Stats:          stats,
		AsOf:           asOf,
	}
}

// Aggregator turns the source records of one repository into a UnifiedRecord.
// It holds no mutable state and may be shared between goroutines.
type Aggregator struct {
	settings Settings
}

// NewAggregator creates an Aggregator. The maps in settings must not be modified afterwards.
func NewAggregator(settings Settings) *Aggregator {
	return &Aggregator{settings: settings}
}

// PolicyFor returns the conflict policy of a field.
func (a *Aggregator) PolicyFor(field schema.FieldName) schema.FieldConflictPolicy {
	if p, ok := a.settings.Policies[field]; ok {
		return p
	}
	return a.settings.DefaultPolicy
}

// Aggregate merges records into a UnifiedRecord. Only the latest record per source is
// merged; the full history feeds the trend summaries.
func (a *Aggregator) Aggregate(id string, category schema.Category, records []schema.SourceRecord) (schema.UnifiedRecord, error) {
	if _, ok := schema.ValidCategories[category]; !ok {
		return schema.UnifiedRecord{}, fmt.Errorf("repository %s has category %q: %w", id, category, schema.ErrUnknownCategory)
	}
	if len(records) == 0 {
		return schema.UnifiedRecord{}, fmt.Errorf("repository %s: %w", id, schema.ErrNoSourceData)
	}

	latest := algo.LatestBySource(records)
	observations := make(map[schema.FieldName][]Observation)
	for _, rec := range latest {
		for name, value := range rec.Fields {
			observations[name] = append(observations[name], Observation{Source: rec.Source, Value: value, ObservedAt: rec.ObservedAt})
		}
	}

	expected := a.settings.ExpectedFields[category]
	names := schema.SortedFieldNames(observations)
	for _, name := range expected {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	schema.SortFieldNames(names)

	unified := schema.UnifiedRecord{
		RepositoryID: id,
		Category:     category,
		Fields:       make(map[schema.FieldName]schema.ResolvedField, len(names)+1),
		Warnings:     make(map[schema.FieldName]string),
		MergedAt:     a.settings.AsOf,
	}

	for _, name := range names {
		policy := a.PolicyFor(name)
		res, err := Resolve(name, observations[name], policy, a.settings.Resolve)
		switch {
		case err != nil:
			unified.Fields[name] = schema.MissingField(err.Error())
			unified.Warnings[name] = schema.ErrorCode(err)
		case res.Missing:
			unified.Fields[name] = schema.MissingField("no source reported the field")
		default:
			unified.Fields[name] = schema.ResolvedField{
				Value:        res.Value,
				Confidence:   res.Confidence,
				Winner:       res.Winner,
				Sources:      res.Sources,
				Strategy:     policy.Strategy,
				Disagreement: res.Disagreement,
				ObservedAt:   res.Oldest,
			}
		}
	}

	deriveForkStarRatio(unified.Fields)
	a.normalize(&unified)

	unified.Quality = schema.DataQuality{
		Completeness: completeness(unified.Fields, expected),
		Consistency:  consistency(unified.Fields),
		Freshness:    freshness(unified.Fields, a.settings.HalfLives, a.settings.AsOf),
		SourceCount:  len(latest),
	}

	for _, field := range a.settings.TrendFields {
		if trend, ok := historyTrend(field, records, a.PolicyFor(field).Priority); ok {
			if unified.Trends == nil {
				unified.Trends = make(map[schema.FieldName]schema.TrendSummary)
			}
			unified.Trends[field] = trend
		}
	}
	if len(unified.Warnings) == 0 {
		unified.Warnings = nil
	}
	return unified, nil
}

// deriveForkStarRatio adds forks / stars when no source reported the ratio itself.
func deriveForkStarRatio(fields map[schema.FieldName]schema.ResolvedField) {
	if rf, ok := fields[schema.ForkStarRatioField]; ok && !rf.Missing {
		return
	}
	stars, okStars := fields[schema.StarsField]
	forks, okForks := fields[schema.ForksField]
	if !okStars || !okForks || stars.Missing || forks.Missing {
		return
	}
	s, sNum := stars.Value.Float()
	f, fNum := forks.Value.Float()
	if !sNum || !fNum || s <= 0 {
		return
	}
	observed := stars.ObservedAt
	if forks.ObservedAt.Before(observed) {
		observed = forks.ObservedAt
	}
	fields[schema.ForkStarRatioField] = schema.ResolvedField{
		Value:      schema.Number(f / s),
		Confidence: min(stars.Confidence, forks.Confidence),
		Winner:     stars.Winner,
		ObservedAt: observed,
	}
}

// normalize fills the normalized value of every numeric field that has a spec.
// Fields that cannot be normalized are marked missing.
func (a *Aggregator) normalize(u *schema.UnifiedRecord) {
	for _, name := range slices.Sorted(maps.Keys(u.Fields)) {
		rf := u.Fields[name]
		spec, ok := a.settings.Normalization[name]
		if !ok || rf.Missing {
			continue
		}
		v, isNum := rf.Value.Float()
		if !isNum {
			err := fmt.Errorf("field %s is %s: %w", name, rf.Value.Kind, schema.ErrNonNumericField)
			u.Fields[name] = schema.MissingField(err.Error())
			u.Warnings[name] = schema.ErrorCode(err)
			continue
		}
		stats, _ := a.settings.Stats.Field(name)
		n, err := algo.Normalize(v, spec, stats)
		if err != nil {
			u.Fields[name] = schema.MissingField(fmt.Sprintf("field %s: %v", name, err))
			u.Warnings[name] = schema.ErrorCode(err)
			continue
		}
		rf.Normalized = &n
		u.Fields[name] = rf
	}
}
