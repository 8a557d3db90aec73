package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/schema"
)

// maxViolationsShown caps the per-section listing of the check output.
const maxViolationsShown = 5

// exitFunc is replaced in tests.
var exitFunc = os.Exit

// ExecuteCheck runs the check command for CI/CD gating.
// It aggregates, scores and filters every repository and exits non-zero when any
// repository failed a must-threshold or could not be processed.
func ExecuteCheck(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()

	result, err := RunPipelineSilently(ctx, cfg, mgr)
	if result == nil {
		return err
	}
	if err != nil && !errors.Is(err, schema.ErrRunTimedOut) {
		return err
	}

	check := BuildCheckResult(result)
	printCheckResult(check, cfg, time.Since(start))

	if !check.Passed {
		fmt.Printf("%d repository(ies) did not pass\n", len(check.Failed)+len(check.Errored)+len(check.Incomplete))
		exitFunc(1)
	}
	return nil
}

// BuildCheckResult summarizes the filter outcomes of a run for the CI gate.
func BuildCheckResult(result *schema.RunResult) *schema.CheckResult {
	check := &schema.CheckResult{
		Total:        result.Summary.Repositories,
		StatusCounts: make(map[schema.FilterStatus]int, 3),
		Failed:       []schema.FilterResult{},
		Warned:       []schema.FilterResult{},
		Errored:      []schema.ManifestEntry{},
		Incomplete:   result.Incomplete,
	}
	for _, f := range result.Filters {
		check.StatusCounts[f.Status]++
		switch f.Status {
		case schema.FailedStatus:
			check.Failed = append(check.Failed, f)
		case schema.WarningStatus:
			check.Warned = append(check.Warned, f)
		}
	}
	for _, m := range result.Manifest {
		if m.Severity == schema.ErrorSeverity && m.Stage != schema.RankStage {
			check.Errored = append(check.Errored, m)
		}
	}
	check.Passed = len(check.Failed) == 0 && len(check.Errored) == 0 && len(check.Incomplete) == 0
	return check
}

// printCheckResult prints the check result in a concise format suitable for CI/CD.
func printCheckResult(result *schema.CheckResult, cfg *contract.Config, duration time.Duration) {
	printCheckHeader(result, cfg, duration)

	if result.Passed {
		printCheckSuccess(result, cfg)
	} else {
		printCheckFailure(result, cfg)
	}
}

// printCheckHeader prints the common header information for check results.
func printCheckHeader(result *schema.CheckResult, cfg *contract.Config, duration time.Duration) {
	fmt.Println("Threshold Check Results:")

	labels := []string{"Categories:", "Must:", "Quality:"}
	categories := "all"
	if len(cfg.Categories) > 0 {
		categories = fmt.Sprint(cfg.Categories)
	}
	values := []any{
		categories,
		formatCriteria(cfg.Thresholds.Must),
		formatCriteria(cfg.Thresholds.Quality),
	}

	maxLabelLen := 0
	for _, label := range labels {
		maxLabelLen = max(maxLabelLen, len(label))
	}
	for i, label := range labels {
		fmt.Printf("  %-*s %v\n", maxLabelLen+1, label, values[i])
	}
	fmt.Println()

	fmt.Printf("Checked %d repositories in %v\n\n", result.Total, duration)
}

// printCheckSuccess prints the success case output.
func printCheckSuccess(result *schema.CheckResult, cfg *contract.Config) {
	fmt.Printf("✅ All repositories met their must-thresholds\n\n")
	fmt.Printf("  passed: %d, warning: %d\n",
		result.StatusCounts[schema.PassedStatus], result.StatusCounts[schema.WarningStatus])
	if len(result.Warned) > 0 {
		fmt.Println()
		fmt.Println("Quality warnings:")
		printFilterResults(result.Warned, cfg, func(f schema.FilterResult) []schema.Evidence {
			return f.QualityViolations()
		})
	}
}

// printCheckFailure prints the failure case output.
func printCheckFailure(result *schema.CheckResult, cfg *contract.Config) {
	fmt.Printf("❌ Threshold check failed: %d failed, %d errored, %d incomplete out of %d repositories\n\n",
		len(result.Failed), len(result.Errored), len(result.Incomplete), result.Total)

	if len(result.Failed) > 0 {
		fmt.Printf("Failed (%d)\n", len(result.Failed))
		printFilterResults(result.Failed, cfg, func(f schema.FilterResult) []schema.Evidence {
			return f.MustViolations
		})
		fmt.Println()
	}
	if len(result.Errored) > 0 {
		fmt.Printf("Errored (%d)\n", len(result.Errored))
		for i, m := range result.Errored {
			if i >= maxViolationsShown {
				fmt.Printf("  ... and %d more\n", len(result.Errored)-i)
				break
			}
			fmt.Printf("  - %s [%s/%s] %s\n", m.RepositoryID, m.Stage, m.Code, m.Message)
		}
		fmt.Println()
	}
	if len(result.Incomplete) > 0 {
		fmt.Printf("Incomplete (%d): budget of %v exhausted\n\n", len(result.Incomplete), cfg.Budget)
	}
}

// printFilterResults lists repositories with the evidence selected by pick.
func printFilterResults(results []schema.FilterResult, cfg *contract.Config, pick func(schema.FilterResult) []schema.Evidence) {
	for i, f := range results {
		if i >= maxViolationsShown {
			fmt.Printf("  ... and %d more\n", len(results)-i)
			break
		}
		fmt.Printf("  - %s (%s) %s\n", f.RepositoryID, f.Category, contract.GetStatusLabel(f.Status, cfg.UseColors))
		for _, e := range pick(f) {
			if e.Missing {
				fmt.Printf("      %s %s %.*f: missing\n", e.Metric, e.Op, cfg.Precision, e.Threshold)
				continue
			}
			fmt.Printf("      %s %s %.*f: got %.*f\n", e.Metric, e.Op, cfg.Precision, e.Threshold, cfg.Precision, e.Value)
		}
	}
}

// formatCriteria renders criteria as "a >= 0.5, b <= 3".
func formatCriteria(criteria []schema.Criterion) string {
	if len(criteria) == 0 {
		return "none"
	}
	out := ""
	for i, c := range criteria {
		if i > 0 {
			out += ", "
		}
		out += c.String()
	}
	return out
}
