package core

import (
	"math"
	"testing"

	"github.com/huangsam/reposcout/schema"
)

// FuzzScore fuzzes Score with arbitrary normalized and raw values and checks the bounds.
func FuzzScore(f *testing.F) {
	seeds := []struct {
		stars, downloads, commits, response, docs float64
		rawTests                                  float64
	}{
		{0.4, 0.8, 0.6, 0.9, 1, 1},
		{0, 0, 0, 0, 0, 0},
		{-3, 12, 0.5, math.Inf(1), math.NaN(), -1},
		{1e308, -1e308, 1, 0.25, 0.5, 2},
	}
	for _, s := range seeds {
		f.Add(s.stars, s.downloads, s.commits, s.response, s.docs, s.rawTests)
	}

	f.Fuzz(func(t *testing.T, stars, downloads, commits, response, docs, rawTests float64) {
		u := unifiedWith(map[schema.FieldName]float64{
			schema.StarsField:              stars,
			schema.DownloadsField:          downloads,
			schema.CommitFrequencyField:    commits,
			schema.IssueResponseHoursField: response,
			schema.DocsCompletenessField:   docs,
		})
		u.Fields[schema.HasTestsField] = schema.ResolvedField{Value: schema.Number(rawTests)}

		for _, category := range schema.AllCategories {
			got, err := Score(u, schema.GetDefaultProfile(category))
			if err != nil {
				t.Fatalf("Score(%s) returned error: %v", category, err)
			}
			for _, v := range append(got.Vector(), got.Overall) {
				if math.IsNaN(v) || v < 0 || v > 1 {
					t.Fatalf("Score(%s) produced out of range value %v in %+v", category, v, got)
				}
			}
		}
	})
}
