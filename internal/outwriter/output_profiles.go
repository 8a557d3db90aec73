package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/schema"
)

// profileView is the active configuration of one category.
type profileView struct {
	Category       schema.Category      `json:"category"`
	Title          string               `json:"title"`
	Profile        schema.WeightProfile `json:"profile"`
	Formula        string               `json:"formula"`
	Thresholds     schema.ThresholdSet  `json:"thresholds"`
	Tiebreak       schema.FieldName     `json:"tiebreak"`
	ExpectedFields []schema.FieldName   `json:"expected_fields"`
}

// profilesRenderModel is everything the profiles command displays.
type profilesRenderModel struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Algorithm   schema.RankAlgorithm  `json:"algorithm"`
	Profiles    []profileView         `json:"profiles"`
	Diversity   schema.DiversityQuota `json:"diversity"`
}

// buildProfilesRenderModel constructs the render model from the active configuration.
func buildProfilesRenderModel(cfg *contract.Config) *profilesRenderModel {
	categories := cfg.Categories
	if len(categories) == 0 {
		categories = schema.AllCategories
	}

	views := make([]profileView, len(categories))
	for i, category := range categories {
		profile := cfg.ProfileFor(category)
		views[i] = profileView{
			Category:       category,
			Title:          schema.CategoryTitle(category),
			Profile:        profile,
			Formula:        formatWeights(profile.Overall),
			Thresholds:     cfg.ThresholdsFor(category),
			Tiebreak:       cfg.TiebreakFor(category),
			ExpectedFields: cfg.ExpectedFields[category],
		}
	}

	return &profilesRenderModel{
		Title:       "Reposcout Weight Profiles",
		Description: "Overall = weighted sum of sub-scores; each sub-score = weighted sum of normalized metrics",
		Algorithm:   cfg.Algorithm,
		Profiles:    views,
		Diversity:   cfg.Diversity,
	}
}

// writeProfilesText displays the profiles in human-readable text format.
func writeProfilesText(w io.Writer, model *profilesRenderModel, cfg *contract.Config) error {
	var b strings.Builder
	fmt.Fprintf(&b, "📐 %s\n", model.Title)
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", len(model.Title)+3))
	fmt.Fprintf(&b, "%s\n", model.Description)
	fmt.Fprintf(&b, "Ranking: %s\n\n", getDisplayNameForAlgorithm(model.Algorithm))

	for _, p := range model.Profiles {
		fmt.Fprintf(&b, "%s (%s)\n", p.Title, p.Category)
		fmt.Fprintf(&b, "   Overall: %s\n", p.Formula)
		for _, sub := range schema.AllSubScores {
			fmt.Fprintf(&b, "   %s: %s\n", sub, formatWeights(p.Profile.Metrics[sub]))
		}
		fmt.Fprintf(&b, "   Must: %s\n", formatCriteria(p.Thresholds.Must))
		fmt.Fprintf(&b, "   Quality: %s\n", formatCriteria(p.Thresholds.Quality))
		if p.Tiebreak != "" {
			fmt.Fprintf(&b, "   Tiebreak: %s\n", p.Tiebreak)
		}
		if cfg.Explain && len(p.ExpectedFields) > 0 {
			fields := make([]string, len(p.ExpectedFields))
			for i, f := range p.ExpectedFields {
				fields[i] = string(f)
			}
			fmt.Fprintf(&b, "   Expected: %s\n", strings.Join(fields, ", "))
		}
		b.WriteString("\n")
	}

	d := model.Diversity
	fmt.Fprintf(&b, "🧺 Diversity (scale metric: %s, small <= %g < medium <= %g < large)\n", d.ScaleMetric, d.SmallMax, d.MediumMax)
	for _, bucket := range schema.AllScaleBuckets {
		fmt.Fprintf(&b, "   %s: %d\n", bucket, d.ScaleQuotas[bucket])
	}
	for _, category := range schema.AllCategories {
		if n, ok := d.CategoryQuotas[category]; ok {
			fmt.Fprintf(&b, "   %s: %d\n", category, n)
		}
	}
	if d.OpenSlots > 0 {
		fmt.Fprintf(&b, "   open: %d\n", d.OpenSlots)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// writeCSVProfiles writes one row per weight of every profile.
func writeCSVProfiles(w io.Writer, model *profilesRenderModel) error {
	header := []string{"category", "group", "key", "weight"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, p := range model.Profiles {
			for _, sub := range schema.AllSubScores {
				if err := cw.Write([]string{string(p.Category), schema.OverallScore, string(sub), formatWeight(p.Profile.Overall[sub])}); err != nil {
					return fmt.Errorf("failed to write CSV record: %w", err)
				}
			}
			for _, sub := range schema.AllSubScores {
				metrics := p.Profile.Metrics[sub]
				for _, field := range schema.SortedFieldNames(metrics) {
					if err := cw.Write([]string{string(p.Category), string(sub), string(field), formatWeight(metrics[field])}); err != nil {
						return fmt.Errorf("failed to write CSV record: %w", err)
					}
				}
			}
		}
		return nil
	})
}

func formatWeight(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
