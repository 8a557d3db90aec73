package contract

import (
	"fmt"
	"maps"
	"math"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/reposcout/core/algo"
	"github.com/huangsam/reposcout/schema"
	"github.com/sirupsen/logrus"
)

// Default values for configuration.
const (
	DefaultResultLimit = 25
	MaxResultLimit     = 1000
	DefaultPrecision   = 2
	DefaultBudget      = 2 * time.Minute
	DefaultTolerance   = 0.05
	DefaultLogLevel    = "warn"
)

// WeightEpsilon is the allowed deviation of a weight sum from 1.
const WeightEpsilon = 1e-6

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// SubScoreWeightsRaw holds the custom overall mix of one profile.
// Use float64 pointers for optional fields.
type SubScoreWeightsRaw struct {
	Popularity      *float64 `mapstructure:"popularity"`
	Activity        *float64 `mapstructure:"activity"`
	CommunityHealth *float64 `mapstructure:"community_health"`
	QualityScore    *float64 `mapstructure:"quality_score"`
}

// ProfileRawInput holds the weight overrides for one category.
// A metrics entry replaces the whole metric mix of that sub-score.
type ProfileRawInput struct {
	Overall *SubScoreWeightsRaw           `mapstructure:"overall"`
	Metrics map[string]map[string]float64 `mapstructure:"metrics"`
}

// ThresholdsRawInput holds the default threshold set and the per-category overrides.
type ThresholdsRawInput struct {
	Default    *schema.ThresholdSet           `mapstructure:"default"`
	Categories map[string]schema.ThresholdSet `mapstructure:"categories"`
}

// PolicyRawInput holds the conflict policy of one field.
type PolicyRawInput struct {
	Strategy string   `mapstructure:"strategy"`
	Priority []string `mapstructure:"priority"`
}

// NormRawInput holds the normalization spec of one field.
type NormRawInput struct {
	Strategy string   `mapstructure:"strategy"`
	Min      *float64 `mapstructure:"min"`
	Max      *float64 `mapstructure:"max"`
	Ceiling  *float64 `mapstructure:"ceiling"`
	Invert   *bool    `mapstructure:"invert"`
}

// DiversityRawInput holds the shortlist quota configuration.
type DiversityRawInput struct {
	ScaleMetric string         `mapstructure:"scale_metric"`
	SmallMax    *float64       `mapstructure:"small_max"`
	MediumMax   *float64       `mapstructure:"medium_max"`
	Scale       map[string]int `mapstructure:"scale"`
	Categories  map[string]int `mapstructure:"categories"`
	Open        *int           `mapstructure:"open"`
}

// Config holds the runtime configuration of a run.
// This struct is the "final, validated" config.
type Config struct {
	Workers     int
	Budget      time.Duration
	AsOf        time.Time
	Algorithm   schema.RankAlgorithm
	Tolerance   float64
	ResultLimit int
	Precision   int
	Output      schema.OutputMode
	OutputFile  string
	Explain     bool
	UseColors   bool
	Width       int // Terminal width override, 0 detects
	LogLevel    logrus.Level

	InputFiles []string          // Set from positional args or --input
	Categories []schema.Category // Empty means every category

	RecordsBackend   schema.DatabaseBackend
	RecordsDBConnect string // Please use env var as this is plaintext

	RunsBackend   schema.DatabaseBackend
	RunsDBConnect string // Please use env var as this is plaintext

	// Profiles is the final weight profile of every category, defaults plus overrides.
	Profiles map[schema.Category]schema.WeightProfile

	// Thresholds is the default threshold set; CategoryThresholds holds the raw overrides.
	Thresholds         schema.ThresholdSet
	CategoryThresholds map[schema.Category]schema.ThresholdSet

	Policies       map[schema.FieldName]schema.FieldConflictPolicy
	DefaultPolicy  schema.FieldConflictPolicy
	Reliability    map[schema.SourceID]float64
	Normalization  map[schema.FieldName]schema.NormSpec
	HalfLives      map[schema.FieldClass]time.Duration
	ExpectedFields map[schema.Category][]schema.FieldName
	Tiebreak       map[schema.Category]schema.FieldName
	TrendFields    []schema.FieldName
	Diversity      schema.DiversityQuota
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Workers          int     `mapstructure:"workers"`
	Budget           string  `mapstructure:"budget"`
	AsOf             string  `mapstructure:"as-of"`
	Algorithm        string  `mapstructure:"algorithm"`
	Tolerance        float64 `mapstructure:"tolerance"`
	Limit            int     `mapstructure:"limit"`
	Precision        int     `mapstructure:"precision"`
	Output           string  `mapstructure:"output"`
	OutputFile       string  `mapstructure:"output-file"`
	Explain          bool    `mapstructure:"explain"`
	Color            string  `mapstructure:"color"`
	Width            int     `mapstructure:"width"`
	LogLevel         string  `mapstructure:"log-level"`
	RecordsBackend   string  `mapstructure:"records-backend"`
	RecordsDBConnect string  `mapstructure:"records-db-connect"`
	RunsBackend      string  `mapstructure:"runs-backend"`
	RunsDBConnect    string  `mapstructure:"runs-db-connect"`

	// --- Fields from runCmd.Flags() ---
	Input    []string `mapstructure:"input"`
	Category []string `mapstructure:"category"`

	// --- Sections from the config file ---
	Profiles       map[string]ProfileRawInput `mapstructure:"profiles"`
	Thresholds     ThresholdsRawInput         `mapstructure:"thresholds"`
	Policies       map[string]PolicyRawInput  `mapstructure:"policies"`
	Reliability    map[string]float64         `mapstructure:"reliability"`
	Normalization  map[string]NormRawInput    `mapstructure:"normalization"`
	HalfLives      map[string]string          `mapstructure:"half_lives"`
	ExpectedFields map[string][]string        `mapstructure:"expected_fields"`
	Tiebreak       map[string]string          `mapstructure:"tiebreak"`
	TrendFields    []string                   `mapstructure:"trend_fields"`
	Diversity      DiversityRawInput          `mapstructure:"diversity"`
}

// NewDefaultConfig returns a Config populated with every built-in default.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Workers:            DefaultWorkers,
		Budget:             DefaultBudget,
		Algorithm:          schema.WeightedSumRank,
		Tolerance:          DefaultTolerance,
		ResultLimit:        DefaultResultLimit,
		Precision:          DefaultPrecision,
		Output:             schema.TextOut,
		LogLevel:           logrus.WarnLevel,
		RecordsBackend:     schema.SQLiteBackend,
		RunsBackend:        schema.SQLiteBackend,
		Profiles:           make(map[schema.Category]schema.WeightProfile, len(schema.AllCategories)),
		Thresholds:         schema.DefaultThresholds(),
		CategoryThresholds: make(map[schema.Category]schema.ThresholdSet),
		Policies:           schema.DefaultPolicies(),
		DefaultPolicy:      schema.DefaultPolicy(),
		Reliability:        make(map[schema.SourceID]float64),
		Normalization:      schema.DefaultNormalization(),
		HalfLives:          schema.DefaultHalfLives(),
		ExpectedFields:     make(map[schema.Category][]schema.FieldName, len(schema.AllCategories)),
		Tiebreak:           make(map[schema.Category]schema.FieldName, len(schema.AllCategories)),
		TrendFields:        schema.DefaultTrendFields(),
		Diversity:          schema.DefaultDiversity(),
	}
	for _, c := range schema.AllCategories {
		cfg.Profiles[c] = schema.GetDefaultProfile(c)
		cfg.ExpectedFields[c] = schema.DefaultExpectedFields(c)
		cfg.Tiebreak[c] = schema.DefaultTiebreak(c)
	}
	return cfg
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.InputFiles = slices.Clone(c.InputFiles)
	clone.Categories = slices.Clone(c.Categories)
	clone.TrendFields = slices.Clone(c.TrendFields)
	if c.Profiles != nil {
		clone.Profiles = make(map[schema.Category]schema.WeightProfile, len(c.Profiles))
		for category, profile := range c.Profiles {
			clone.Profiles[category] = profile.Clone()
		}
	}
	clone.Thresholds = c.Thresholds.Override(schema.ThresholdSet{})
	if c.CategoryThresholds != nil {
		clone.CategoryThresholds = make(map[schema.Category]schema.ThresholdSet, len(c.CategoryThresholds))
		for category, set := range c.CategoryThresholds {
			clone.CategoryThresholds[category] = set.Override(schema.ThresholdSet{})
		}
	}
	if c.Policies != nil {
		clone.Policies = make(map[schema.FieldName]schema.FieldConflictPolicy, len(c.Policies))
		for field, policy := range c.Policies {
			policy.Priority = slices.Clone(policy.Priority)
			clone.Policies[field] = policy
		}
	}
	clone.DefaultPolicy.Priority = slices.Clone(c.DefaultPolicy.Priority)
	clone.Reliability = maps.Clone(c.Reliability)
	clone.Normalization = maps.Clone(c.Normalization)
	clone.HalfLives = maps.Clone(c.HalfLives)
	clone.Tiebreak = maps.Clone(c.Tiebreak)
	if c.ExpectedFields != nil {
		clone.ExpectedFields = make(map[schema.Category][]schema.FieldName, len(c.ExpectedFields))
		for category, fields := range c.ExpectedFields {
			clone.ExpectedFields[category] = slices.Clone(fields)
		}
	}
	clone.Diversity.ScaleQuotas = maps.Clone(c.Diversity.ScaleQuotas)
	clone.Diversity.CategoryQuotas = maps.Clone(c.Diversity.CategoryQuotas)
	return &clone
}

// ProfileFor returns the weight profile of a category.
func (c *Config) ProfileFor(category schema.Category) schema.WeightProfile {
	if p, ok := c.Profiles[category]; ok {
		return p
	}
	return schema.GetDefaultProfile(category)
}

// ThresholdsFor returns the default threshold set with the category overrides applied.
func (c *Config) ThresholdsFor(category schema.Category) schema.ThresholdSet {
	if o, ok := c.CategoryThresholds[category]; ok {
		return c.Thresholds.Override(o)
	}
	return c.Thresholds
}

// TiebreakFor returns the tiebreak field of a category.
func (c *Config) TiebreakFor(category schema.Category) schema.FieldName {
	if f, ok := c.Tiebreak[category]; ok {
		return f
	}
	return schema.DefaultTiebreak(category)
}

// ConfigParams returns the parameters recorded with a persisted run.
func (c *Config) ConfigParams() map[string]any {
	categories := make([]string, len(c.Categories))
	for i, category := range c.Categories {
		categories[i] = string(category)
	}
	return map[string]any{
		"workers":    c.Workers,
		"budget":     c.Budget.String(),
		"as_of":      c.AsOf.Format(DateTimeFormat),
		"algorithm":  string(c.Algorithm),
		"tolerance":  c.Tolerance,
		"categories": categories,
		"diversity":  c.Diversity,
		"thresholds": c.Thresholds,
		"profiles":   c.Profiles,
	}
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct. Every validation failure wraps schema.ErrInvalidConfig.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	steps := []func(*Config, *ConfigRawInput) error{
		validateSimpleInputs,
		processTimeInputs,
		processProfiles,
		processThresholds,
		processPolicies,
		processNormalization,
		validateProfileNormalization,
		processHalfLives,
		processFieldLists,
		processDiversity,
	}
	for _, step := range steps {
		if err := step(cfg, input); err != nil {
			return fmt.Errorf("%w: %w", schema.ErrInvalidConfig, err)
		}
	}
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates record and run backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.RecordsBackend = schema.DatabaseBackend(strings.ToLower(input.RecordsBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.RecordsBackend]; !ok {
		return fmt.Errorf("invalid records backend '%s'. must be sqlite, mysql, postgresql, none", input.RecordsBackend)
	}
	cfg.RecordsDBConnect = input.RecordsDBConnect
	if err := ValidateDatabaseConnectionString(cfg.RecordsBackend, cfg.RecordsDBConnect); err != nil {
		return err
	}

	cfg.RunsBackend = schema.DatabaseBackend(strings.ToLower(input.RunsBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.RunsBackend]; !ok {
		return fmt.Errorf("invalid runs backend '%s'. must be sqlite, mysql, postgresql, none", input.RunsBackend)
	}
	cfg.RunsDBConnect = input.RunsDBConnect
	if err := ValidateDatabaseConnectionString(cfg.RunsBackend, cfg.RunsDBConnect); err != nil {
		return err
	}

	// For SQLite, resolve to actual file paths to catch default path conflicts
	if cfg.RecordsBackend == schema.SQLiteBackend && cfg.RunsBackend == schema.SQLiteBackend {
		recordsPath := cfg.RecordsDBConnect
		if recordsPath == "" {
			recordsPath = GetRecordsDBFilePath()
		}
		runsPath := cfg.RunsDBConnect
		if runsPath == "" {
			runsPath = GetRunsDBFilePath()
		}
		if recordsPath == runsPath && recordsPath != ":memory:" {
			return fmt.Errorf("record and run storage must use different SQLite database files. Both resolve to %q", recordsPath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all scalar fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Explain = input.Explain
	cfg.InputFiles = slices.Clone(input.Input)

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	level, err := logrus.ParseLevel(input.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level value: %w", err)
	}
	cfg.LogLevel = level

	if input.Width < 0 {
		return fmt.Errorf("width cannot be negative (received %d)", input.Width)
	}
	cfg.Width = input.Width

	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	cfg.Algorithm = schema.RankAlgorithm(strings.ToLower(input.Algorithm))
	if _, ok := schema.ValidRankAlgorithms[cfg.Algorithm]; !ok {
		return fmt.Errorf("invalid algorithm '%s'. must be weighted_sum, pareto, topsis", input.Algorithm)
	}

	if input.Tolerance < 0 || input.Tolerance >= 1 || math.IsNaN(input.Tolerance) {
		return fmt.Errorf("tolerance must be within [0, 1) (received %g)", input.Tolerance)
	}
	cfg.Tolerance = input.Tolerance

	if input.Precision < 1 || input.Precision > 4 {
		return fmt.Errorf("precision must be between 1 and 4 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	cfg.Categories = nil
	for _, raw := range input.Category {
		for part := range strings.SplitSeq(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			category, ok := schema.ParseCategory(part)
			if !ok {
				return fmt.Errorf("invalid category '%s': %w", part, schema.ErrUnknownCategory)
			}
			if !slices.Contains(cfg.Categories, category) {
				cfg.Categories = append(cfg.Categories, category)
			}
		}
	}

	return validateBackendConfigs(cfg, input)
}

// processTimeInputs handles the run budget and the as-of time.
func processTimeInputs(cfg *Config, input *ConfigRawInput) error {
	now := time.Now().UTC()
	cfg.Budget = DefaultBudget
	switch raw := strings.ToLower(strings.TrimSpace(input.Budget)); raw {
	case "":
	case "0", "none":
		cfg.Budget = 0
	default:
		budget, err := ParseLookbackDuration(input.Budget)
		if err != nil {
			return fmt.Errorf("invalid --budget: %w", err)
		}
		cfg.Budget = budget
	}

	cfg.AsOf = now
	if strings.TrimSpace(input.AsOf) != "" {
		asOf, err := ParseAsOf(input.AsOf, now)
		if err != nil {
			return err
		}
		cfg.AsOf = asOf
	}
	return nil
}

// ParseAsOf parses an absolute RFC3339 time or a relative "N [units] ago" form.
func ParseAsOf(s string, now time.Time) (time.Time, error) {
	t, err := time.Parse(DateTimeFormat, strings.TrimSpace(s))
	if err == nil {
		return t.UTC(), nil
	}
	t, relErr := ParseRelativeTime(s, now)
	if relErr != nil {
		return time.Time{}, fmt.Errorf("invalid as-of format for '%s'. Expected absolute ISO8601 or 'N [units] ago': %v", s, err)
	}
	return t.UTC(), nil
}

// processProfiles applies the configured weight overrides on top of the category defaults
// and checks that every weight mix sums to 1.
func processProfiles(cfg *Config, input *ConfigRawInput) error {
	cfg.Profiles = make(map[schema.Category]schema.WeightProfile, len(schema.AllCategories))
	for _, c := range schema.AllCategories {
		cfg.Profiles[c] = schema.GetDefaultProfile(c)
	}

	for rawCategory, raw := range input.Profiles {
		category, ok := schema.ParseCategory(rawCategory)
		if !ok {
			return fmt.Errorf("profile for '%s': %w", rawCategory, schema.ErrUnknownCategory)
		}
		profile := cfg.Profiles[category]
		if raw.Overall != nil {
			overrides := map[schema.SubScore]*float64{
				schema.PopularitySub:      raw.Overall.Popularity,
				schema.ActivitySub:        raw.Overall.Activity,
				schema.CommunityHealthSub: raw.Overall.CommunityHealth,
				schema.QualitySub:         raw.Overall.QualityScore,
			}
			for sub, w := range overrides {
				if w != nil {
					profile.Overall[sub] = *w
				}
			}
		}
		for rawSub, weights := range raw.Metrics {
			sub := schema.SubScore(strings.ToLower(rawSub))
			if _, ok := schema.ValidSubScores[sub]; !ok {
				return fmt.Errorf("profile for %s names unknown sub-score '%s'", category, rawSub)
			}
			mix := make(map[schema.FieldName]float64, len(weights))
			for field, w := range weights {
				mix[schema.FieldName(strings.ToLower(field))] = w
			}
			profile.Metrics[sub] = mix
		}
		cfg.Profiles[category] = profile
	}

	for _, category := range schema.AllCategories {
		if err := ValidateProfile(cfg.Profiles[category]); err != nil {
			return fmt.Errorf("profile for %s: %w", category, err)
		}
	}
	return nil
}

// ValidateProfile checks that the overall mix and every metric mix are non-negative
// and sum to 1 within WeightEpsilon.
func ValidateProfile(p schema.WeightProfile) error {
	if err := validateWeightSum("overall", p.Overall); err != nil {
		return err
	}
	for _, sub := range schema.AllSubScores {
		if err := validateWeightSum(string(sub), p.Metrics[sub]); err != nil {
			return err
		}
	}
	return nil
}

func validateWeightSum[K ~string](name string, weights map[K]float64) error {
	sum := 0.0
	for _, key := range slices.Sorted(maps.Keys(weights)) {
		w := weights[key]
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%s weight for %s must be a non-negative number (received %g)", name, key, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > WeightEpsilon {
		return fmt.Errorf("%s weights must sum to 1.0, got %.6f", name, sum)
	}
	return nil
}

// processThresholds reads the default threshold set and the category overrides.
func processThresholds(cfg *Config, input *ConfigRawInput) error {
	cfg.Thresholds = schema.DefaultThresholds()
	if input.Thresholds.Default != nil {
		cfg.Thresholds = cfg.Thresholds.Override(*input.Thresholds.Default)
	}
	if err := validateThresholdSet(cfg.Thresholds); err != nil {
		return fmt.Errorf("default thresholds: %w", err)
	}

	cfg.CategoryThresholds = make(map[schema.Category]schema.ThresholdSet, len(input.Thresholds.Categories))
	for rawCategory, set := range input.Thresholds.Categories {
		category, ok := schema.ParseCategory(rawCategory)
		if !ok {
			return fmt.Errorf("thresholds for '%s': %w", rawCategory, schema.ErrUnknownCategory)
		}
		if err := validateThresholdSet(set); err != nil {
			return fmt.Errorf("thresholds for %s: %w", category, err)
		}
		cfg.CategoryThresholds[category] = set
	}
	return nil
}

func validateThresholdSet(set schema.ThresholdSet) error {
	for _, c := range slices.Concat(set.Must, set.Quality) {
		if strings.TrimSpace(c.Metric) == "" {
			return fmt.Errorf("criterion '%s' has no metric", c)
		}
		if c.Op != schema.AtLeast && c.Op != schema.AtMost {
			return fmt.Errorf("criterion '%s' has unknown operator '%s'. must be >= or <=", c, c.Op)
		}
		if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
			return fmt.Errorf("criterion '%s' needs a finite threshold", c)
		}
	}
	return nil
}

// processPolicies reads conflict policy overrides and per-source reliability weights.
func processPolicies(cfg *Config, input *ConfigRawInput) error {
	cfg.Policies = schema.DefaultPolicies()
	cfg.DefaultPolicy = schema.DefaultPolicy()
	for rawField, raw := range input.Policies {
		strategy := schema.ResolutionStrategy(strings.ToLower(raw.Strategy))
		if _, ok := schema.ValidResolutionStrategies[strategy]; !ok {
			return fmt.Errorf("policy for %s has unknown strategy '%s'. must be highest_value, most_recent, weighted_average, consensus", rawField, raw.Strategy)
		}
		priority, err := parseSources(raw.Priority)
		if err != nil {
			return fmt.Errorf("policy for %s: %w", rawField, err)
		}
		cfg.Policies[schema.FieldName(strings.ToLower(rawField))] = schema.FieldConflictPolicy{Strategy: strategy, Priority: priority}
	}

	cfg.Reliability = make(map[schema.SourceID]float64, len(input.Reliability))
	for rawSource, w := range input.Reliability {
		source := schema.SourceID(strings.ToLower(rawSource))
		if _, ok := schema.ValidSources[source]; !ok {
			return fmt.Errorf("reliability names unknown source '%s'", rawSource)
		}
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("reliability of %s must be positive (received %g)", source, w)
		}
		cfg.Reliability[source] = w
	}
	return nil
}

func parseSources(raw []string) ([]schema.SourceID, error) {
	sources := make([]schema.SourceID, 0, len(raw))
	for _, r := range raw {
		source := schema.SourceID(strings.ToLower(strings.TrimSpace(r)))
		if _, ok := schema.ValidSources[source]; !ok {
			return nil, fmt.Errorf("unknown source '%s'", r)
		}
		if slices.Contains(sources, source) {
			return nil, fmt.Errorf("source '%s' is listed twice", r)
		}
		sources = append(sources, source)
	}
	return sources, nil
}

// processNormalization reads normalization overrides. An override replaces the whole spec.
func processNormalization(cfg *Config, input *ConfigRawInput) error {
	cfg.Normalization = schema.DefaultNormalization()
	for rawField, raw := range input.Normalization {
		field := schema.FieldName(strings.ToLower(rawField))
		spec := schema.NormSpec{
			Strategy: schema.NormStrategy(strings.ToLower(raw.Strategy)),
			Min:      raw.Min,
			Max:      raw.Max,
			Ceiling:  raw.Ceiling,
		}
		if raw.Invert != nil {
			spec.Invert = *raw.Invert
		}
		if err := algo.ValidateNormSpec(field, spec); err != nil {
			return err
		}
		cfg.Normalization[field] = spec
	}
	return nil
}

// validateProfileNormalization requires a normalization spec for every field a profile scores.
func validateProfileNormalization(cfg *Config, _ *ConfigRawInput) error {
	for _, category := range schema.AllCategories {
		profile := cfg.Profiles[category]
		for _, sub := range schema.AllSubScores {
			for _, field := range schema.SortedFieldNames(profile.Metrics[sub]) {
				if _, ok := cfg.Normalization[field]; !ok {
					return fmt.Errorf("profile for %s scores %s field '%s' without a normalization spec", category, sub, field)
				}
			}
		}
	}
	return nil
}

// processHalfLives reads freshness half-lives per field class.
func processHalfLives(cfg *Config, input *ConfigRawInput) error {
	cfg.HalfLives = schema.DefaultHalfLives()
	for rawClass, rawDuration := range input.HalfLives {
		class := schema.FieldClass(strings.ToLower(rawClass))
		if _, ok := schema.ValidFieldClasses[class]; !ok {
			return fmt.Errorf("half-life names unknown field class '%s'", rawClass)
		}
		d, err := ParseLookbackDuration(rawDuration)
		if err != nil {
			return fmt.Errorf("half-life of %s: %w", class, err)
		}
		if d <= 0 {
			return fmt.Errorf("half-life of %s must be positive", class)
		}
		cfg.HalfLives[class] = d
	}
	return nil
}

// processFieldLists reads expected fields, tiebreak fields and trend fields.
func processFieldLists(cfg *Config, input *ConfigRawInput) error {
	cfg.ExpectedFields = make(map[schema.Category][]schema.FieldName, len(schema.AllCategories))
	cfg.Tiebreak = make(map[schema.Category]schema.FieldName, len(schema.AllCategories))
	for _, c := range schema.AllCategories {
		cfg.ExpectedFields[c] = schema.DefaultExpectedFields(c)
		cfg.Tiebreak[c] = schema.DefaultTiebreak(c)
	}

	for rawCategory, rawFields := range input.ExpectedFields {
		category, ok := schema.ParseCategory(rawCategory)
		if !ok {
			return fmt.Errorf("expected fields for '%s': %w", rawCategory, schema.ErrUnknownCategory)
		}
		fields := parseFieldNames(rawFields)
		if len(fields) == 0 {
			return fmt.Errorf("expected fields for %s must not be empty", category)
		}
		cfg.ExpectedFields[category] = fields
	}

	for rawCategory, rawField := range input.Tiebreak {
		category, ok := schema.ParseCategory(rawCategory)
		if !ok {
			return fmt.Errorf("tiebreak for '%s': %w", rawCategory, schema.ErrUnknownCategory)
		}
		field := schema.FieldName(strings.ToLower(strings.TrimSpace(rawField)))
		if field == "" {
			return fmt.Errorf("tiebreak for %s must name a field", category)
		}
		cfg.Tiebreak[category] = field
	}

	cfg.TrendFields = schema.DefaultTrendFields()
	if input.TrendFields != nil {
		cfg.TrendFields = parseFieldNames(input.TrendFields)
	}
	return nil
}

func parseFieldNames(raw []string) []schema.FieldName {
	fields := make([]schema.FieldName, 0, len(raw))
	for _, r := range raw {
		field := schema.FieldName(strings.ToLower(strings.TrimSpace(r)))
		if field != "" && !slices.Contains(fields, field) {
			fields = append(fields, field)
		}
	}
	return fields
}

// processDiversity reads the shortlist quotas on top of the defaults.
// Configured scale or category maps replace the default maps.
func processDiversity(cfg *Config, input *ConfigRawInput) error {
	q := schema.DefaultDiversity()
	raw := input.Diversity
	if raw.ScaleMetric != "" {
		q.ScaleMetric = schema.FieldName(strings.ToLower(raw.ScaleMetric))
	}
	if raw.SmallMax != nil {
		q.SmallMax = *raw.SmallMax
	}
	if raw.MediumMax != nil {
		q.MediumMax = *raw.MediumMax
	}
	if raw.Scale != nil {
		q.ScaleQuotas = make(map[schema.ScaleBucket]int, len(raw.Scale))
		for bucket, n := range raw.Scale {
			q.ScaleQuotas[schema.ScaleBucket(strings.ToLower(bucket))] = n
		}
	}
	if raw.Categories != nil {
		q.CategoryQuotas = make(map[schema.Category]int, len(raw.Categories))
		for category, n := range raw.Categories {
			q.CategoryQuotas[schema.Category(strings.ToLower(strings.TrimSpace(category)))] = n
		}
	}
	if raw.Open != nil {
		q.OpenSlots = *raw.Open
	}
	if err := algo.ValidateQuota(q); err != nil {
		return err
	}
	cfg.Diversity = q
	return nil
}
