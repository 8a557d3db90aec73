package schema

import "time"

// Field names reported by sources or derived during aggregation.
const (
	StarsField         FieldName = "stars"
	ForksField         FieldName = "forks"
	WatchersField      FieldName = "watchers"
	DownloadsField     FieldName = "downloads"
	ForkStarRatioField FieldName = "fork_star_ratio" // derived
	TrendingRankField  FieldName = "trending_rank"

	CommitFrequencyField  FieldName = "commit_frequency"
	ContributorsField     FieldName = "contributors"
	ReleaseFrequencyField FieldName = "release_frequency"
	LastCommitAtField     FieldName = "last_commit_at"
	LastReleaseAtField    FieldName = "last_release_at"

	IssueResponseHoursField   FieldName = "issue_response_hours"
	IssueResolutionRateField  FieldName = "issue_resolution_rate"
	ContributorDiversityField FieldName = "contributor_diversity"
	OpenIssuesField           FieldName = "open_issues"

	DocsCompletenessField  FieldName = "docs_completeness"
	HasTestsField          FieldName = "has_tests"
	HasSecurityPolicyField FieldName = "has_security_policy"
	VulnerabilitiesField   FieldName = "vulnerability_count"

	LicenseField FieldName = "license"
)

// Data quality metric keys understood by the threshold filter.
const (
	CompletenessMetric = "completeness"
	ConsistencyMetric  = "consistency"
	FreshnessMetric    = "freshness"
	SourceCountMetric  = "source_count"
)

// fieldClasses maps every known field to the class that sets its half-life.
// Unknown fields fall back to QualityClass.
var fieldClasses = map[FieldName]FieldClass{
	StarsField:         PopularityClass,
	ForksField:         PopularityClass,
	WatchersField:      PopularityClass,
	DownloadsField:     PopularityClass,
	ForkStarRatioField: PopularityClass,
	TrendingRankField:  PopularityClass,

	CommitFrequencyField:  ActivityClass,
	ContributorsField:     ActivityClass,
	ReleaseFrequencyField: ActivityClass,
	LastCommitAtField:     ActivityClass,
	LastReleaseAtField:    ActivityClass,

	IssueResponseHoursField:   CommunityClass,
	IssueResolutionRateField:  CommunityClass,
	ContributorDiversityField: CommunityClass,
	OpenIssuesField:           CommunityClass,

	DocsCompletenessField:  QualityClass,
	HasTestsField:          QualityClass,
	HasSecurityPolicyField: QualityClass,
	VulnerabilitiesField:   QualityClass,

	LicenseField: LicenseClass,
}

// ClassOf returns the field class of a field.
func ClassOf(field FieldName) FieldClass {
	if class, ok := fieldClasses[field]; ok {
		return class
	}
	return QualityClass
}

// FieldConflictPolicy decides how disagreeing sources are merged for one field.
type FieldConflictPolicy struct {
	Strategy ResolutionStrategy `json:"strategy"`
	Priority []SourceID         `json:"priority"`
}

// NormSpec describes how a numeric field is rescaled onto [0,1].
// Nil bounds are taken from the population stats of the run.
type NormSpec struct {
	Strategy NormStrategy `json:"strategy"`
	Min      *float64     `json:"min,omitempty"`
	Max      *float64     `json:"max,omitempty"`
	Ceiling  *float64     `json:"ceiling,omitempty"`
	Invert   bool         `json:"invert,omitempty"`
}

func bound(v float64) *float64 { return &v }

const day = 24 * time.Hour

// DefaultHalfLives returns the freshness half-life of every field class.
func DefaultHalfLives() map[FieldClass]time.Duration {
	return map[FieldClass]time.Duration{
		ActivityClass:   30 * day,
		PopularityClass: 90 * day,
		CommunityClass:  60 * day,
		QualityClass:    120 * day,
		LicenseClass:    180 * day,
	}
}

// DefaultNormalization returns the normalization spec of every scored field.
func DefaultNormalization() map[FieldName]NormSpec {
	return map[FieldName]NormSpec{
		StarsField:         {Strategy: MinMaxNorm, Min: bound(0), Max: bound(50000)},
		DownloadsField:     {Strategy: LogScale, Ceiling: bound(1e7)},
		ForksField:         {Strategy: LogScale, Ceiling: bound(1e4)},
		ForkStarRatioField: {Strategy: MinMaxNorm, Min: bound(0), Max: bound(0.5)},

		CommitFrequencyField:  {Strategy: MinMaxNorm, Min: bound(0), Max: bound(50)},
		ContributorsField:     {Strategy: LogScale, Ceiling: bound(1000)},
		ReleaseFrequencyField: {Strategy: MinMaxNorm, Min: bound(0), Max: bound(24)},

		IssueResponseHoursField:   {Strategy: MinMaxNorm, Min: bound(0), Max: bound(168), Invert: true},
		IssueResolutionRateField:  {Strategy: MinMaxNorm, Min: bound(0), Max: bound(1)},
		ContributorDiversityField: {Strategy: MinMaxNorm, Min: bound(0), Max: bound(1)},

		DocsCompletenessField:  {Strategy: MinMaxNorm, Min: bound(0), Max: bound(1)},
		HasTestsField:          {Strategy: MinMaxNorm, Min: bound(0), Max: bound(1)},
		HasSecurityPolicyField: {Strategy: MinMaxNorm, Min: bound(0), Max: bound(1)},
	}
}

var registries = []SourceID{RegistryCratesSource, RegistryNPMSource, RegistryPyPISource}

// DefaultPolicy is applied to any field without an explicit policy.
func DefaultPolicy() FieldConflictPolicy {
	return FieldConflictPolicy{Strategy: MostRecent, Priority: []SourceID{HostSource, RegistryCratesSource, RegistryNPMSource, RegistryPyPISource, TrendingSource}}
}

// DefaultPolicies returns the conflict policy of every field that sources commonly disagree on.
func DefaultPolicies() map[FieldName]FieldConflictPolicy {
	hostFirst := append([]SourceID{HostSource}, registries...)
	registryFirst := append(append([]SourceID{}, registries...), HostSource)
	return map[FieldName]FieldConflictPolicy{
		StarsField:            {Strategy: HighestValue, Priority: []SourceID{HostSource, TrendingSource}},
		ForksField:            {Strategy: HighestValue, Priority: []SourceID{HostSource}},
		DownloadsField:        {Strategy: MostRecent, Priority: registryFirst},
		ContributorsField:     {Strategy: Consensus, Priority: hostFirst},
		CommitFrequencyField:  {Strategy: MostRecent, Priority: []SourceID{HostSource}},
		ReleaseFrequencyField: {Strategy: WeightedAverage, Priority: hostFirst},
		LastReleaseAtField:    {Strategy: MostRecent, Priority: registryFirst},
		LicenseField:          {Strategy: Consensus, Priority: hostFirst},
	}
}

// coreFields are expected for every category.
var coreFields = []FieldName{StarsField, ContributorsField, CommitFrequencyField, LicenseField}

// DefaultExpectedFields returns the fields a complete record of the category carries.
func DefaultExpectedFields(category Category) []FieldName {
	fields := append([]FieldName{}, coreFields...)
	switch category {
	case RustLibraries, PythonLibraries, JavaScriptLibraries, GoLibraries:
		return append(fields, DownloadsField, LastReleaseAtField)
	case CLITools, DevOpsTools:
		return append(fields, ForksField, ReleaseFrequencyField)
	case WebFrameworks:
		return append(fields, DownloadsField, IssueResponseHoursField)
	case DataTools:
		return append(fields, DownloadsField, DocsCompletenessField)
	}
	return fields
}

// DefaultTrendFields lists the fields whose history is summarized into trends.
func DefaultTrendFields() []FieldName {
	return []FieldName{StarsField, DownloadsField}
}

// DefaultTiebreak returns the field used to order equal overall scores.
func DefaultTiebreak(category Category) FieldName {
	switch category {
	case PythonLibraries, JavaScriptLibraries:
		return DownloadsField
	}
	return StarsField
}
