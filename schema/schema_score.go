package schema

// ScoreBreakdown holds the sub-scores and the overall score of a repository, all in [0,1].
type ScoreBreakdown struct {
	Popularity      float64               `json:"popularity"`
	Activity        float64               `json:"activity"`
	CommunityHealth float64               `json:"community_health"`
	QualityScore    float64               `json:"quality_score"`
	Overall         float64               `json:"overall"`
	Components      map[FieldName]float64 `json:"components,omitempty"` // weighted contribution per metric
}

// Sub returns a sub-score by name.
func (s ScoreBreakdown) Sub(sub SubScore) float64 {
	switch sub {
	case PopularitySub:
		return s.Popularity
	case ActivitySub:
		return s.Activity
	case CommunityHealthSub:
		return s.CommunityHealth
	case QualitySub:
		return s.QualityScore
	}
	return 0
}

// Vector returns the four sub-scores in AllSubScores order.
func (s ScoreBreakdown) Vector() []float64 {
	return []float64{s.Popularity, s.Activity, s.CommunityHealth, s.QualityScore}
}

// Metric returns a score value by its metric key.
func (s ScoreBreakdown) Metric(key string) (float64, bool) {
	if key == OverallScore {
		return s.Overall, true
	}
	if _, ok := ValidSubScores[SubScore(key)]; ok {
		return s.Sub(SubScore(key)), true
	}
	return 0, false
}

// WeightProfile is the set of weights that turns normalized metrics into scores.
type WeightProfile struct {
	Overall map[SubScore]float64               `json:"overall"`
	Metrics map[SubScore]map[FieldName]float64 `json:"metrics"`
}

// Clone returns a deep copy of the profile.
func (p WeightProfile) Clone() WeightProfile {
	out := WeightProfile{
		Overall: make(map[SubScore]float64, len(p.Overall)),
		Metrics: make(map[SubScore]map[FieldName]float64, len(p.Metrics)),
	}
	for k, v := range p.Overall {
		out.Overall[k] = v
	}
	for sub, weights := range p.Metrics {
		inner := make(map[FieldName]float64, len(weights))
		for k, v := range weights {
			inner[k] = v
		}
		out.Metrics[sub] = inner
	}
	return out
}
