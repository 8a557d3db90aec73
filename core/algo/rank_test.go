package algo

import (
	"testing"

	"github.com/huangsam/reposcout/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string, overall float64, stars *float64, subs ...float64) schema.RankedEntry {
	e := schema.RankedEntry{
		RepositoryID:  id,
		Category:      schema.GoLibraries,
		Status:        schema.PassedStatus,
		Score:         schema.ScoreBreakdown{Overall: overall},
		TiebreakField: schema.StarsField,
		TiebreakValue: stars,
	}
	if len(subs) == 4 {
		e.Score.Popularity, e.Score.Activity, e.Score.CommunityHealth, e.Score.QualityScore = subs[0], subs[1], subs[2], subs[3]
	}
	return e
}

func ids(r schema.Ranking) []string {
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.RepositoryID
	}
	return out
}

func TestRankWeightedSum(t *testing.T) {
	candidates := []schema.RankedEntry{
		entry("c/low", 0.3, ptr(10)),
		entry("a/tie-few-stars", 0.8, ptr(100)),
		entry("b/tie-many-stars", 0.8, ptr(5000)),
		entry("d/tie-no-stars", 0.8, nil),
		entry("e/tie-same-stars", 0.8, ptr(100)),
	}
	failed := entry("z/failed", 0.99, ptr(1))
	failed.Status = schema.FailedStatus
	candidates = append(candidates, failed)

	ranking, err := Rank(candidates, schema.WeightedSumRank, nil, schema.GlobalScope)
	require.NoError(t, err)

	assert.Equal(t, []string{"b/tie-many-stars", "a/tie-few-stars", "e/tie-same-stars", "d/tie-no-stars", "c/low"}, ids(ranking))
	for i, e := range ranking.Entries {
		assert.Equal(t, i+1, e.Rank)
	}
	assert.Equal(t, schema.WeightedSumRank, ranking.Algorithm)
	assert.Equal(t, schema.GlobalScope, ranking.Scope)
}

func TestRankWarningIsRankable(t *testing.T) {
	w := entry("w/warn", 0.5, nil)
	w.Status = schema.WarningStatus
	ranking, err := Rank([]schema.RankedEntry{w}, schema.WeightedSumRank, nil, "go-libraries")
	require.NoError(t, err)
	assert.Len(t, ranking.Entries, 1)
}

func TestRankPareto(t *testing.T) {
	candidates := []schema.RankedEntry{
		entry("dominated", 0.2, nil, 0.2, 0.2, 0.2, 0.2),
		entry("balanced", 0.5, nil, 0.5, 0.5, 0.5, 0.5),
		entry("popular", 0.45, nil, 0.9, 0.3, 0.3, 0.3),
		entry("middle", 0.3, nil, 0.3, 0.3, 0.3, 0.3),
	}

	ranking, err := Rank(candidates, schema.ParetoRank, nil, schema.GlobalScope)
	require.NoError(t, err)

	assert.Equal(t, []string{"balanced", "popular", "middle", "dominated"}, ids(ranking))
	fronts := map[string]int{}
	for _, e := range ranking.Entries {
		fronts[e.RepositoryID] = e.Front
	}
	assert.Equal(t, map[string]int{"balanced": 1, "popular": 1, "middle": 2, "dominated": 3}, fronts)
}

func TestRankTopsis(t *testing.T) {
	weights := schema.GetDefaultProfile(schema.GoLibraries).Overall
	candidates := []schema.RankedEntry{
		entry("worst", 0.1, nil, 0.1, 0.1, 0.1, 0.1),
		entry("best", 0.9, nil, 0.9, 0.9, 0.9, 0.9),
		entry("mid", 0.5, nil, 0.5, 0.5, 0.5, 0.5),
	}

	ranking, err := Rank(candidates, schema.TopsisRank, weights, schema.GlobalScope)
	require.NoError(t, err)

	assert.Equal(t, []string{"best", "mid", "worst"}, ids(ranking))
	assert.InDelta(t, 1.0, ranking.Entries[0].RankScore, 1e-9)
	assert.InDelta(t, 0.0, ranking.Entries[2].RankScore, 1e-9)
	assert.InDelta(t, 0.5, ranking.Entries[1].RankScore, 1e-9)
}

func TestRankTopsisIdenticalCandidates(t *testing.T) {
	candidates := []schema.RankedEntry{
		entry("b", 0.5, nil, 0.5, 0.5, 0.5, 0.5),
		entry("a", 0.5, nil, 0.5, 0.5, 0.5, 0.5),
	}
	ranking, err := Rank(candidates, schema.TopsisRank, nil, schema.GlobalScope)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(ranking))
	assert.Equal(t, 0.5, ranking.Entries[0].RankScore)
}

func TestRankUnknownAlgorithm(t *testing.T) {
	_, err := Rank(nil, "borda", nil, schema.GlobalScope)
	assert.Error(t, err)
}

func TestRankIsDeterministic(t *testing.T) {
	candidates := []schema.RankedEntry{
		entry("x", 0.5, ptr(1)), entry("y", 0.5, ptr(1)), entry("z", 0.5, ptr(1)),
	}
	reversed := []schema.RankedEntry{candidates[2], candidates[1], candidates[0]}

	for _, algorithm := range []schema.RankAlgorithm{schema.WeightedSumRank, schema.ParetoRank, schema.TopsisRank} {
		t.Run(string(algorithm), func(t *testing.T) {
			a, err := Rank(candidates, algorithm, nil, schema.GlobalScope)
			require.NoError(t, err)
			b, err := Rank(reversed, algorithm, nil, schema.GlobalScope)
			require.NoError(t, err)
			assert.Equal(t, a, b)
		})
	}
}

// BenchmarkRankPareto benchmarks front peeling on a small population.
func BenchmarkRankPareto(b *testing.B) {
	var candidates []schema.RankedEntry
	for i := range 200 {
		v := float64(i%17) / 17
		candidates = append(candidates, entry(string(rune('a'+i%26))+string(rune('a'+i/26)), v, nil, v, 1-v, v/2, 1-v/2))
	}

	for b.Loop() {
		_, _ = Rank(candidates, schema.ParetoRank, nil, schema.GlobalScope)
	}
}
