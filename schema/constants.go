package schema

// Custom string types for type safety.
type (
	// SourceID identifies the external system that produced a SourceRecord.
	SourceID string

	// Category is the classification a repository is judged within.
	Category string

	// FieldName is the logical name of a metric or attribute.
	FieldName string

	// FieldKind is the type tag of a FieldValue.
	FieldKind string

	// FieldClass groups fields that age at the same rate.
	FieldClass string

	// ResolutionStrategy selects how conflicting source values are merged.
	ResolutionStrategy string

	// NormStrategy selects how a raw metric is rescaled onto [0,1].
	NormStrategy string

	// SubScore names one of the four composite sub-scores.
	SubScore string

	// RankAlgorithm selects the ranking algorithm of a run.
	RankAlgorithm string

	// FilterStatus is the outcome of the threshold filter.
	FilterStatus string

	// CriterionKind tells must-thresholds apart from quality-thresholds.
	CriterionKind string

	// CompareOp is the comparison applied by a threshold criterion.
	CompareOp string

	// ScaleBucket is the size class used by the diversity balancer.
	ScaleBucket string

	// TrendDirection classifies a fitted trend line.
	TrendDirection string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for a store.
	DatabaseBackend string

	// Stage names a step of the per-repository pipeline.
	Stage string

	// Severity tells manifest errors apart from warnings.
	Severity string
)

// All sources supported.
const (
	HostSource           SourceID = "host"
	RegistryNPMSource    SourceID = "registry-npm"
	RegistryPyPISource   SourceID = "registry-pypi"
	RegistryCratesSource SourceID = "registry-crates"
	TrendingSource       SourceID = "trending"
)

// All categories supported.
const (
	RustLibraries       Category = "rust-libraries"
	PythonLibraries     Category = "python-libraries"
	JavaScriptLibraries Category = "javascript-libraries"
	GoLibraries         Category = "go-libraries"
	CLITools            Category = "cli-tools"
	WebFrameworks       Category = "web-frameworks"
	DataTools           Category = "data-tools"
	DevOpsTools         Category = "devops-tools"
)

// All field kinds supported.
const (
	NumberKind    FieldKind = "number"
	StringKind    FieldKind = "string"
	TimestampKind FieldKind = "timestamp"
)

// All field classes supported.
const (
	PopularityClass FieldClass = "popularity"
	ActivityClass   FieldClass = "activity"
	CommunityClass  FieldClass = "community"
	QualityClass    FieldClass = "quality"
	LicenseClass    FieldClass = "license"
)

// All resolution strategies supported.
const (
	HighestValue    ResolutionStrategy = "highest_value"
	MostRecent      ResolutionStrategy = "most_recent" // default
	WeightedAverage ResolutionStrategy = "weighted_average"
	Consensus       ResolutionStrategy = "consensus"
)

// All normalization strategies supported.
const (
	MinMaxNorm NormStrategy = "min_max"
	ZScoreNorm NormStrategy = "z_score"
	LogScale   NormStrategy = "log_scale"
	RobustNorm NormStrategy = "robust"
)

// All sub-scores.
const (
	PopularitySub      SubScore = "popularity"
	ActivitySub        SubScore = "activity"
	CommunityHealthSub SubScore = "community_health"
	QualitySub         SubScore = "quality_score"
)

// OverallScore is the metric key of the weighted combination of sub-scores.
const OverallScore = "overall"

// All ranking algorithms supported.
const (
	WeightedSumRank RankAlgorithm = "weighted_sum" // default
	ParetoRank      RankAlgorithm = "pareto"
	TopsisRank      RankAlgorithm = "topsis"
)

// All filter statuses.
const (
	PassedStatus  FilterStatus = "passed"
	WarningStatus FilterStatus = "warning"
	FailedStatus  FilterStatus = "failed"
)

// All criterion kinds.
const (
	MustCriterion    CriterionKind = "must"
	QualityCriterion CriterionKind = "quality"
)

// All comparison operators.
const (
	AtLeast CompareOp = ">="
	AtMost  CompareOp = "<="
)

// All scale buckets.
const (
	SmallScale  ScaleBucket = "small"
	MediumScale ScaleBucket = "medium"
	LargeScale  ScaleBucket = "large"
)

// All trend directions.
const (
	Increasing TrendDirection = "increasing"
	Decreasing TrendDirection = "decreasing"
	Stable     TrendDirection = "stable"
	Volatile   TrendDirection = "volatile"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Pipeline stages.
const (
	LoadStage      Stage = "load"
	AggregateStage Stage = "aggregate"
	ScoreStage     Stage = "score"
	FilterStage    Stage = "filter"
	RankStage      Stage = "rank"
)

// Manifest severities.
const (
	ErrorSeverity   Severity = "error"
	WarningSeverity Severity = "warning"
)

// AllSources lists every source in canonical order.
var AllSources = []SourceID{HostSource, RegistryCratesSource, RegistryNPMSource, RegistryPyPISource, TrendingSource}

// AllCategories lists every category in canonical order.
var AllCategories = []Category{
	RustLibraries, PythonLibraries, JavaScriptLibraries, GoLibraries,
	CLITools, WebFrameworks, DataTools, DevOpsTools,
}

// AllSubScores lists the sub-scores in the order they appear in output.
var AllSubScores = []SubScore{PopularitySub, ActivitySub, CommunityHealthSub, QualitySub}

// AllScaleBuckets lists the scale buckets from smallest to largest.
var AllScaleBuckets = []ScaleBucket{SmallScale, MediumScale, LargeScale}

// ValidSources lists all valid sources.
var ValidSources = map[SourceID]struct{}{
	HostSource:           {},
	RegistryNPMSource:    {},
	RegistryPyPISource:   {},
	RegistryCratesSource: {},
	TrendingSource:       {},
}

// ValidCategories lists all valid categories.
var ValidCategories = map[Category]struct{}{
	RustLibraries:       {},
	PythonLibraries:     {},
	JavaScriptLibraries: {},
	GoLibraries:         {},
	CLITools:            {},
	WebFrameworks:       {},
	DataTools:           {},
	DevOpsTools:         {},
}

// ValidResolutionStrategies lists all valid resolution strategies.
var ValidResolutionStrategies = map[ResolutionStrategy]struct{}{
	HighestValue:    {},
	MostRecent:      {},
	WeightedAverage: {},
	Consensus:       {},
}

// ValidNormStrategies lists all valid normalization strategies.
var ValidNormStrategies = map[NormStrategy]struct{}{
	MinMaxNorm: {},
	ZScoreNorm: {},
	LogScale:   {},
	RobustNorm: {},
}

// ValidRankAlgorithms lists all valid ranking algorithms.
var ValidRankAlgorithms = map[RankAlgorithm]struct{}{
	WeightedSumRank: {},
	ParetoRank:      {},
	TopsisRank:      {},
}

// ValidSubScores lists all valid sub-scores.
var ValidSubScores = map[SubScore]struct{}{
	PopularitySub:      {},
	ActivitySub:        {},
	CommunityHealthSub: {},
	QualitySub:         {},
}

// ValidFieldClasses lists all valid field classes.
var ValidFieldClasses = map[FieldClass]struct{}{
	PopularityClass: {},
	ActivityClass:   {},
	CommunityClass:  {},
	QualityClass:    {},
	LicenseClass:    {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}
