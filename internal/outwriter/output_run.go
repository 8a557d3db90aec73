package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

const maxManifestShown = 20

// writeRunTable generates and writes the human-readable run report.
func writeRunTable(w io.Writer, result *schema.RunResult, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	if err := writeShortlistTable(w, result, cfg, fmtFloat); err != nil {
		return err
	}
	if err := writeManifestTable(w, result.Manifest, cfg); err != nil {
		return err
	}
	if err := writeQualitySummary(w, result.Summary, fmtFloat); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Run %s completed in %v with %d workers. Runs backend: %s\n",
		result.RunID, duration, cfg.Workers, cfg.RunsBackend)
	return err
}

// writeShortlistTable writes the shortlist, or a note when the run produced no ranking.
func writeShortlistTable(w io.Writer, result *schema.RunResult, cfg *contract.Config, fmtFloat func(float64) string) error {
	if result.Global == nil {
		_, err := fmt.Fprintf(w, "⏱️  No ranking: %d of %d repositories did not finish within the budget\n\n",
			len(result.Incomplete), result.Summary.Repositories)
		return err
	}

	rows, excluded := shortlistRows(result, cfg.ResultLimit)
	if _, err := fmt.Fprintf(w, "%s shortlist (%d of %d ranked)\n",
		getDisplayNameForAlgorithm(result.Algorithm), len(rows), len(result.Global.Entries)); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)

	// 1. Define Headers
	headers := []string{"Rank", "Repository", "Category", "Score", "Label", "Status"}
	pareto := result.Algorithm == schema.ParetoRank
	if pareto {
		headers = append(headers, "Front")
	}
	if cfg.Explain {
		headers = append(headers, "Explain")
	}
	table.Header(headers)

	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	// 2. Populate Rows
	idWidth := getMaxTableIDWidth(cfg)
	data := make([][]string, 0, len(rows))
	for _, e := range rows {
		row := []string{
			strconv.Itoa(e.Rank),
			contract.TruncateText(e.RepositoryID, idWidth),
			string(e.Category),
			fmtFloat(e.RankScore),
			colorLabel(e.Score.Overall, cfg.UseColors),
			contract.GetStatusLabel(e.Status, cfg.UseColors),
		}
		if pareto {
			row = append(row, strconv.Itoa(e.Front))
		}
		if cfg.Explain {
			row = append(row, explainEntry(e, fmtFloat))
		}
		data = append(data, row)
	}

	// 3. Render the table
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if excluded > 0 {
		if _, err := fmt.Fprintf(w, "%d ranked repositories excluded by diversity quotas\n", excluded); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// explainEntry combines the top score components with the tie-break that ordered the entry.
func explainEntry(e schema.SelectionEntry, fmtFloat func(float64) string) string {
	parts := []string{formatTopComponents(e.Score)}
	if tb := formatTiebreak(e.RankedEntry, fmtFloat); tb != "" {
		parts = append(parts, tb)
	}
	if e.Bucket != "" {
		parts = append(parts, e.Bucket)
	}
	return strings.Join(parts, " | ")
}

// writeManifestTable writes the per-repository problems of the run.
func writeManifestTable(w io.Writer, manifest []schema.ManifestEntry, cfg *contract.Config) error {
	if len(manifest) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "Manifest (%d)\n", len(manifest)); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Repository", "Stage", "Severity", "Code", "Field", "Message"})

	idWidth := getMaxTableIDWidth(cfg)
	shown := min(len(manifest), maxManifestShown)
	data := make([][]string, 0, shown)
	for _, m := range manifest[:shown] {
		data = append(data, []string{
			contract.TruncateText(m.RepositoryID, idWidth),
			string(m.Stage),
			string(m.Severity),
			m.Code,
			string(m.Field),
			contract.TruncateText(m.Message, 60),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if len(manifest) > shown {
		if _, err := fmt.Fprintf(w, "... and %d more\n", len(manifest)-shown); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// writeQualitySummary writes the data quality summary as aligned label/value lines.
func writeQualitySummary(w io.Writer, s schema.DataQualitySummary, fmtFloat func(float64) string) error {
	lines := [][2]string{
		{"Repositories:", fmt.Sprintf("%d (aggregated: %d, failed: %d)", s.Repositories, s.Aggregated, s.Failed)},
		{"Completeness:", fmt.Sprintf("mean %s, min %s", fmtFloat(s.MeanCompleteness), fmtFloat(s.MinCompleteness))},
		{"Consistency:", fmt.Sprintf("mean %s, min %s", fmtFloat(s.MeanConsistency), fmtFloat(s.MinConsistency))},
		{"Freshness:", fmt.Sprintf("mean %s, min %s", fmtFloat(s.MeanFreshness), fmtFloat(s.MinFreshness))},
		{"Status:", fmt.Sprintf("passed %d, warning %d, failed %d",
			s.StatusCounts[schema.PassedStatus], s.StatusCounts[schema.WarningStatus], s.StatusCounts[schema.FailedStatus])},
	}
	if len(s.MissingFields) > 0 {
		missing := make([]string, 0, len(s.MissingFields))
		for _, field := range schema.SortedFieldNames(s.MissingFields) {
			missing = append(missing, fmt.Sprintf("%s (%d)", field, s.MissingFields[field]))
		}
		lines = append(lines, [2]string{"Missing fields:", strings.Join(missing, ", ")})
	}
	if len(s.LowQuality) > 0 {
		lines = append(lines, [2]string{"Low quality:", strings.Join(s.LowQuality, ", ")})
	}

	if _, err := fmt.Fprintln(w, "📊 Data quality"); err != nil {
		return err
	}
	labelWidth := 0
	for _, l := range lines {
		labelWidth = max(labelWidth, len(l[0]))
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "  %-*s %s\n", labelWidth, l[0], l[1]); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// colorLabel returns the score label, colored when useColors is set.
func colorLabel(score float64, useColors bool) string {
	if useColors {
		return contract.GetColorLabel(score)
	}
	return contract.GetPlainLabel(score)
}
