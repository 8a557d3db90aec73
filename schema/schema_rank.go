package schema

// GlobalScope is the scope name of the ranking over every category.
const GlobalScope = "global"

// RankedEntry is one position within a Ranking.
type RankedEntry struct {
	Rank          int            `json:"rank"`
	RepositoryID  string         `json:"repository"`
	Category      Category       `json:"category"`
	Score         ScoreBreakdown `json:"score"`
	RankScore     float64        `json:"rank_score"`
	Front         int            `json:"front,omitempty"` // pareto only, 1-based
	Status        FilterStatus   `json:"status"`
	TiebreakField FieldName      `json:"tiebreak_field,omitempty"`
	TiebreakValue *float64       `json:"tiebreak_value,omitempty"`
	Scale         float64        `json:"-"` // raw value of the diversity scale metric
	HasScale      bool           `json:"-"`
}

// Ranking is an ordered list of repositories produced by one algorithm.
type Ranking struct {
	Algorithm RankAlgorithm `json:"algorithm"`
	Scope     string        `json:"scope"`
	Entries   []RankedEntry `json:"entries"`
}

// DiversityQuota configures the buckets of the diversity balancer.
type DiversityQuota struct {
	ScaleMetric    FieldName           `json:"scale_metric"`
	SmallMax       float64             `json:"small_max"`
	MediumMax      float64             `json:"medium_max"`
	ScaleQuotas    map[ScaleBucket]int `json:"scale_quotas"`
	CategoryQuotas map[Category]int    `json:"category_quotas"`
	OpenSlots      int                 `json:"open_slots"`
}

// BucketOf returns the scale bucket of a raw scale value. SmallMax and MediumMax are
// inclusive upper bounds.
func (q DiversityQuota) BucketOf(value float64) ScaleBucket {
	switch {
	case value <= q.SmallMax:
		return SmallScale
	case value <= q.MediumMax:
		return MediumScale
	}
	return LargeScale
}

// SelectionEntry is a ranked repository together with the balancer's decision.
type SelectionEntry struct {
	RankedEntry
	ScaleBucket ScaleBucket `json:"scale_bucket"`
	Included    bool        `json:"included"`
	Bucket      string      `json:"bucket,omitempty"`
	Reason      string      `json:"reason,omitempty"`
}

// DiversitySelection is the shortlist produced from a Ranking under quotas.
type DiversitySelection struct {
	Algorithm RankAlgorithm    `json:"algorithm"`
	Quota     DiversityQuota   `json:"quota"`
	Entries   []SelectionEntry `json:"entries"`
	Filled    map[string]int   `json:"filled"`
}

// Shortlist returns the included entries in rank order.
func (d DiversitySelection) Shortlist() []SelectionEntry {
	var out []SelectionEntry
	for _, e := range d.Entries {
		if e.Included {
			out = append(out, e)
		}
	}
	return out
}

// ScaleBucketKey is the Filled key of a scale bucket.
func ScaleBucketKey(b ScaleBucket) string { return "scale:" + string(b) }

// CategoryBucketKey is the Filled key of a category bucket.
func CategoryBucketKey(c Category) string { return "category:" + string(c) }

// OpenBucketKey is the Filled key of the open bucket.
const OpenBucketKey = "open"
