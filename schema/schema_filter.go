package schema

import "fmt"

// Criterion is a single threshold comparison.
type Criterion struct {
	Metric    string    `json:"metric" mapstructure:"metric"`
	Op        CompareOp `json:"op" mapstructure:"op"`
	Threshold float64   `json:"threshold" mapstructure:"threshold"`
}

// String renders the criterion as "metric >= threshold".
func (c Criterion) String() string {
	return fmt.Sprintf("%s %s %g", c.Metric, c.Op, c.Threshold)
}

// Holds reports whether a value satisfies the criterion.
func (c Criterion) Holds(value float64) bool {
	if c.Op == AtMost {
		return value <= c.Threshold
	}
	return value >= c.Threshold
}

// ThresholdSet groups hard requirements and soft quality expectations.
type ThresholdSet struct {
	Must    []Criterion `json:"must"`
	Quality []Criterion `json:"quality"`
}

// Override returns a copy of the set where each override replaces the default criterion
// of the same metric and kind, or is appended when no default exists.
func (t ThresholdSet) Override(o ThresholdSet) ThresholdSet {
	return ThresholdSet{
		Must:    overrideCriteria(t.Must, o.Must),
		Quality: overrideCriteria(t.Quality, o.Quality),
	}
}

func overrideCriteria(base, overrides []Criterion) []Criterion {
	out := append([]Criterion{}, base...)
	for _, o := range overrides {
		replaced := false
		for i := range out {
			if out[i].Metric == o.Metric {
				out[i] = o
				replaced = true
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}
	return out
}

// Evidence records the outcome of one criterion against one record.
type Evidence struct {
	Kind      CriterionKind `json:"kind"`
	Metric    string        `json:"metric"`
	Op        CompareOp     `json:"op"`
	Threshold float64       `json:"threshold"`
	Value     float64       `json:"value"`
	Missing   bool          `json:"missing,omitempty"`
	Passed    bool          `json:"passed"`
}

// FilterResult is the classification of a repository against a ThresholdSet.
type FilterResult struct {
	RepositoryID   string       `json:"repository"`
	Category       Category     `json:"category"`
	Status         FilterStatus `json:"status"`
	Thresholds     ThresholdSet `json:"thresholds"`
	Evidence       []Evidence   `json:"evidence"`
	MustViolations []Evidence   `json:"must_violations,omitempty"`
	DecidedBy      *Evidence    `json:"decided_by,omitempty"`
}

// Rankable reports whether the repository may enter a ranking.
func (f FilterResult) Rankable() bool {
	return f.Status == PassedStatus || f.Status == WarningStatus
}

// QualityViolations lists the quality criteria that were not met.
func (f FilterResult) QualityViolations() []Evidence {
	var out []Evidence
	for _, e := range f.Evidence {
		if e.Kind == QualityCriterion && !e.Passed {
			out = append(out, e)
		}
	}
	return out
}
