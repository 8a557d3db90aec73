package outwriter

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/huangsam/reposcout/schema"
)

const (
	componentContribMinimum = 0.005
	topNComponents          = 3
)

// getDisplayNameForAlgorithm returns the display name with emoji for a ranking algorithm.
func getDisplayNameForAlgorithm(algorithm schema.RankAlgorithm) string {
	switch algorithm {
	case schema.WeightedSumRank:
		return "⚖️  WEIGHTED SUM"
	case schema.ParetoRank:
		return "🏔️  PARETO"
	case schema.TopsisRank:
		return "🎯 TOPSIS"
	default:
		return strings.ToUpper(string(algorithm))
	}
}

// rankedRows returns the rows to display for a run. With a selection every entry is returned
// with its decision; otherwise the global ranking is returned as if every entry were included.
func rankedRows(result *schema.RunResult) []schema.SelectionEntry {
	if result.Selection != nil {
		return result.Selection.Entries
	}
	if result.Global == nil {
		return nil
	}
	rows := make([]schema.SelectionEntry, len(result.Global.Entries))
	for i, e := range result.Global.Entries {
		rows[i] = schema.SelectionEntry{RankedEntry: e, Included: true}
	}
	return rows
}

// shortlistRows returns the included rows in rank order, at most limit of them.
func shortlistRows(result *schema.RunResult, limit int) (rows []schema.SelectionEntry, excluded int) {
	for _, e := range rankedRows(result) {
		if !e.Included {
			excluded++
			continue
		}
		if limit > 0 && len(rows) >= limit {
			continue
		}
		rows = append(rows, e)
	}
	return rows, excluded
}

// formatTopComponents lists the metrics with the largest contribution to the overall score.
func formatTopComponents(score schema.ScoreBreakdown) string {
	type component struct {
		name  schema.FieldName
		value float64
	}
	var parts []component
	for name, v := range score.Components {
		if math.Abs(v) >= componentContribMinimum {
			parts = append(parts, component{name: name, value: v})
		}
	}
	if len(parts) == 0 {
		return "Not applicable"
	}

	sort.Slice(parts, func(i, j int) bool {
		if parts[i].value != parts[j].value {
			return parts[i].value > parts[j].value
		}
		return parts[i].name < parts[j].name
	})

	limit := min(len(parts), topNComponents)
	names := make([]string, limit)
	for i := range limit {
		names[i] = string(parts[i].name)
	}
	return strings.Join(names, " > ")
}

// formatWeights formats a weight map as "0.50*stars+0.35*downloads", heaviest first.
func formatWeights[K ~string](weights map[K]float64) string {
	keys := make([]K, 0, len(weights))
	for k, w := range weights {
		if w > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if weights[keys[i]] != weights[keys[j]] {
			return weights[keys[i]] > weights[keys[j]]
		}
		return keys[i] < keys[j]
	})

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%.2f*%s", weights[k], k)
	}
	return strings.Join(parts, "+")
}

// formatCriteria renders criteria as "completeness >= 0.5, overall >= 0.2".
func formatCriteria(criteria []schema.Criterion) string {
	if len(criteria) == 0 {
		return "none"
	}
	parts := make([]string, len(criteria))
	for i, c := range criteria {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// formatTiebreak renders the tie-break field and value of an entry.
func formatTiebreak(e schema.RankedEntry, fmtFloat func(float64) string) string {
	if e.TiebreakField == "" {
		return ""
	}
	if e.TiebreakValue == nil {
		return fmt.Sprintf("%s=missing", e.TiebreakField)
	}
	return fmt.Sprintf("%s=%s", e.TiebreakField, fmtFloat(*e.TiebreakValue))
}
