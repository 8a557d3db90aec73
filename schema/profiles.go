package schema

// defaultMetricWeights are shared by every category; only the overall mix differs.
var defaultMetricWeights = map[SubScore]map[FieldName]float64{
	PopularitySub: {
		StarsField:         0.50,
		DownloadsField:     0.35,
		ForkStarRatioField: 0.15,
	},
	ActivitySub: {
		CommitFrequencyField:  0.40,
		ContributorsField:     0.35,
		ReleaseFrequencyField: 0.25,
	},
	CommunityHealthSub: {
		IssueResponseHoursField:   0.40,
		IssueResolutionRateField:  0.35,
		ContributorDiversityField: 0.25,
	},
	QualitySub: {
		DocsCompletenessField:  0.40,
		HasTestsField:          0.35,
		HasSecurityPolicyField: 0.25,
	},
}

// defaultOverallWeights holds the popularity, activity, community and quality mix per category.
var defaultOverallWeights = map[Category][4]float64{
	RustLibraries:       {0.25, 0.25, 0.20, 0.30},
	PythonLibraries:     {0.30, 0.25, 0.20, 0.25},
	JavaScriptLibraries: {0.35, 0.25, 0.15, 0.25},
	GoLibraries:         {0.25, 0.25, 0.20, 0.30},
	CLITools:            {0.35, 0.25, 0.20, 0.20},
	WebFrameworks:       {0.30, 0.25, 0.25, 0.20},
	DataTools:           {0.25, 0.25, 0.20, 0.30},
	DevOpsTools:         {0.25, 0.30, 0.25, 0.20},
}

// GetDefaultProfile returns the default weight profile of a category.
// Unknown categories get an even mix across the four sub-scores.
func GetDefaultProfile(category Category) WeightProfile {
	mix, ok := defaultOverallWeights[category]
	if !ok {
		mix = [4]float64{0.25, 0.25, 0.25, 0.25}
	}
	profile := WeightProfile{
		Overall: make(map[SubScore]float64, len(AllSubScores)),
		Metrics: make(map[SubScore]map[FieldName]float64, len(AllSubScores)),
	}
	for i, sub := range AllSubScores {
		profile.Overall[sub] = mix[i]
		weights := make(map[FieldName]float64, len(defaultMetricWeights[sub]))
		for field, w := range defaultMetricWeights[sub] {
			weights[field] = w
		}
		profile.Metrics[sub] = weights
	}
	return profile
}

// DefaultThresholds returns the threshold set applied to every category.
func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		Must: []Criterion{
			{Metric: CompletenessMetric, Op: AtLeast, Threshold: 0.5},
			{Metric: OverallScore, Op: AtLeast, Threshold: 0.2},
		},
		Quality: []Criterion{
			{Metric: FreshnessMetric, Op: AtLeast, Threshold: 0.25},
			{Metric: ConsistencyMetric, Op: AtLeast, Threshold: 0.8},
			{Metric: string(CommunityHealthSub), Op: AtLeast, Threshold: 0.4},
			{Metric: string(QualitySub), Op: AtLeast, Threshold: 0.5},
		},
	}
}

// DefaultDiversity returns the default shortlist quotas.
func DefaultDiversity() DiversityQuota {
	return DiversityQuota{
		ScaleMetric: StarsField,
		SmallMax:    1000,
		MediumMax:   10000,
		ScaleQuotas: map[ScaleBucket]int{
			SmallScale:  3,
			MediumScale: 4,
			LargeScale:  3,
		},
		CategoryQuotas: map[Category]int{},
	}
}
