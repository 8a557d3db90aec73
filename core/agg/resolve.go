package agg

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/reposcout/schema"
)

// Confidence levels that do not come from an agreement fraction.
const (
	listedConfidence   = 1.0
	unlistedConfidence = 0.5
	fallbackConfidence = 0.25
)

// Observation is the value one source reported for one field.
type Observation struct {
	Source     schema.SourceID
	Value      schema.FieldValue
	ObservedAt time.Time
}

// ResolveOptions tune how values are compared and weighted.
type ResolveOptions struct {
	Tolerance     float64                     // relative tolerance for numbers
	TimeTolerance time.Duration               // absolute tolerance for timestamps
	Reliability   map[schema.SourceID]float64 // weighted_average weights, default 1
}

// DefaultResolveOptions uses a 5% relative tolerance and a one day timestamp tolerance.
func DefaultResolveOptions() ResolveOptions {
	return ResolveOptions{Tolerance: 0.05, TimeTolerance: 24 * time.Hour}
}

// Resolution is the outcome of merging the observations of one field.
type Resolution struct {
	Value        schema.FieldValue
	Missing      bool
	Winner       schema.SourceID
	Confidence   float64
	Sources      []schema.SourceID // priority order
	Disagreement bool
	Oldest       time.Time
}

// Agree reports whether two values match within the tolerances.
func (o ResolveOptions) Agree(a, b schema.FieldValue) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case schema.NumberKind:
		scale := math.Max(math.Abs(a.Num), math.Abs(b.Num))
		if scale == 0 {
			return true
		}
		return math.Abs(a.Num-b.Num)/scale <= o.Tolerance
	case schema.TimestampKind:
		d := a.Time.Sub(b.Time)
		if d < 0 {
			d = -d
		}
		return d <= o.TimeTolerance
	}
	return a.Equal(b)
}

// priorityIndex places listed sources by their index and unlisted sources after them.
func priorityIndex(priority []schema.SourceID, source schema.SourceID) (int, bool) {
	if i := slices.Index(priority, source); i >= 0 {
		return i, true
	}
	return len(priority), false
}

// sortByPriority orders observations by policy priority, unlisted sources by id.
func sortByPriority(obs []Observation, priority []schema.SourceID) []Observation {
	sorted := slices.Clone(obs)
	slices.SortStableFunc(sorted, func(a, b Observation) int {
		ia, _ := priorityIndex(priority, a.Source)
		ib, _ := priorityIndex(priority, b.Source)
		if ia != ib {
			return ia - ib
		}
		return strings.Compare(string(a.Source), string(b.Source))
	})
	return sorted
}

// Resolve merges the observations of one field into a single value according to the policy.
// Zero observations resolve to a missing value rather than a zero.
func Resolve(field schema.FieldName, obs []Observation, policy schema.FieldConflictPolicy, opts ResolveOptions) (Resolution, error) {
	if len(obs) == 0 {
		return Resolution{Missing: true}, nil
	}
	obs = sortByPriority(obs, policy.Priority)

	res := Resolution{Sources: make([]schema.SourceID, len(obs)), Oldest: obs[0].ObservedAt}
	mixed := false
	for i, o := range obs {
		res.Sources[i] = o.Source
		if o.ObservedAt.Before(res.Oldest) {
			res.Oldest = o.ObservedAt
		}
		if o.Value.Kind != obs[0].Value.Kind {
			mixed = true
		}
	}

	strategy := policy.Strategy
	if strategy == "" {
		strategy = schema.MostRecent
	}
	if strategy == schema.WeightedAverage {
		for _, o := range obs {
			if !o.Value.IsNumber() {
				return Resolution{}, fmt.Errorf("field %s from %s is %s: %w", field, o.Source, o.Value.Kind, schema.ErrNonNumericField)
			}
		}
	}
	if mixed && (strategy == schema.HighestValue || strategy == schema.Consensus) {
		return Resolution{}, fmt.Errorf("field %s mixes %s and other kinds: %w", field, obs[0].Value.Kind, schema.ErrMixedFieldKinds)
	}

	if len(obs) == 1 {
		res.Value = obs[0].Value
		res.Winner = obs[0].Source
		res.Confidence = unlistedConfidence
		if _, listed := priorityIndex(policy.Priority, obs[0].Source); listed {
			res.Confidence = listedConfidence
		}
		return res, nil
	}

	res.Disagreement = !allAgree(obs, opts)

	switch strategy {
	case schema.HighestValue:
		best := obs[0]
		for _, o := range obs[1:] {
			if o.Value.Compare(best.Value) > 0 {
				best = o
			}
		}
		res.Value, res.Winner = best.Value, best.Source
	case schema.MostRecent:
		latest := obs[0]
		for _, o := range obs[1:] {
			if o.ObservedAt.After(latest.ObservedAt) {
				latest = o
			}
		}
		res.Value, res.Winner = latest.Value, latest.Source
	case schema.WeightedAverage:
		res.Value = schema.Number(weightedAverage(obs, opts.Reliability))
		res.Winner = obs[0].Source
	case schema.Consensus:
		value, winner, count := majority(obs, opts)
		if count*2 <= len(obs) {
			res.Value, res.Winner = obs[0].Value, obs[0].Source
			res.Confidence = fallbackConfidence
			return res, nil
		}
		res.Value, res.Winner = value, winner
	default:
		return Resolution{}, fmt.Errorf("field %s: unknown resolution strategy %q: %w", field, strategy, schema.ErrInvalidConfig)
	}

	agreeing := 0
	for _, o := range obs {
		if opts.Agree(o.Value, res.Value) {
			agreeing++
		}
	}
	res.Confidence = float64(agreeing) / float64(len(obs))
	return res, nil
}

func allAgree(obs []Observation, opts ResolveOptions) bool {
	for i := range obs {
		for j := i + 1; j < len(obs); j++ {
			if !opts.Agree(obs[i].Value, obs[j].Value) {
				return false
			}
		}
	}
	return true
}

func weightedAverage(obs []Observation, reliability map[schema.SourceID]float64) float64 {
	var sum, total float64
	for _, o := range obs {
		w := 1.0
		if r, ok := reliability[o.Source]; ok {
			w = r
		}
		sum += w * o.Value.Num
		total += w
	}
	if total == 0 {
		var plain float64
		for _, o := range obs {
			plain += o.Value.Num
		}
		return plain / float64(len(obs))
	}
	return sum / total
}

// majority groups observations around the highest-priority member of each group and
// returns the largest group. Ties go to the group formed first.
func majority(obs []Observation, opts ResolveOptions) (schema.FieldValue, schema.SourceID, int) {
	type group struct {
		head  Observation
		count int
	}
	var groups []group
	for _, o := range obs {
		placed := false
		for i := range groups {
			if opts.Agree(groups[i].head.Value, o.Value) {
				groups[i].count++
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, group{head: o, count: 1})
		}
	}
	best := groups[0]
	for _, g := range groups[1:] {
		if g.count > best.count {
			best = g
		}
	}
	return best.head.Value, best.head.Source, best.count
}
