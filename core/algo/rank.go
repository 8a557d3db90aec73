package algo

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/huangsam/reposcout/schema"
)

// Rank orders the rankable candidates with the given algorithm. Candidates whose
// status is not passed or warning are left out. Weights are only used by topsis.
func Rank(candidates []schema.RankedEntry, algorithm schema.RankAlgorithm, weights map[schema.SubScore]float64, scope string) (schema.Ranking, error) {
	entries := make([]schema.RankedEntry, 0, len(candidates))
	for _, c := range candidates {
		if c.Status == schema.PassedStatus || c.Status == schema.WarningStatus {
			entries = append(entries, c)
		}
	}

	switch algorithm {
	case schema.WeightedSumRank, "":
		algorithm = schema.WeightedSumRank
		for i := range entries {
			entries[i].RankScore = entries[i].Score.Overall
			entries[i].Front = 0
		}
		slices.SortFunc(entries, compareByScore)
	case schema.ParetoRank:
		assignParetoFronts(entries)
		slices.SortFunc(entries, func(a, b schema.RankedEntry) int {
			if a.Front != b.Front {
				return a.Front - b.Front
			}
			return compareByScore(a, b)
		})
	case schema.TopsisRank:
		assignTopsisCloseness(entries, weights)
		slices.SortFunc(entries, compareByScore)
	default:
		return schema.Ranking{}, fmt.Errorf("unknown ranking algorithm %q", algorithm)
	}

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return schema.Ranking{Algorithm: algorithm, Scope: scope, Entries: entries}, nil
}

// compareByScore orders by rank score desc, tiebreak value desc (missing last), then id asc.
func compareByScore(a, b schema.RankedEntry) int {
	if a.RankScore != b.RankScore {
		if a.RankScore > b.RankScore {
			return -1
		}
		return 1
	}
	ta, tb := tiebreakOf(a), tiebreakOf(b)
	if ta != tb {
		if ta > tb {
			return -1
		}
		return 1
	}
	return strings.Compare(a.RepositoryID, b.RepositoryID)
}

func tiebreakOf(e schema.RankedEntry) float64 {
	if e.TiebreakValue == nil {
		return math.Inf(-1)
	}
	return *e.TiebreakValue
}

// dominates reports whether a is at least as good as b on every sub-score and
// strictly better on one.
func dominates(a, b []float64) bool {
	better := false
	for i := range a {
		if a[i] < b[i] {
			return false
		}
		if a[i] > b[i] {
			better = true
		}
	}
	return better
}

// assignParetoFronts peels non-dominated fronts over the four sub-scores.
// Front numbers start at 1. Within a front, entries are ordered by overall score.
func assignParetoFronts(entries []schema.RankedEntry) {
	vectors := make([][]float64, len(entries))
	for i, e := range entries {
		vectors[i] = e.Score.Vector()
		entries[i].RankScore = e.Score.Overall
		entries[i].Front = 0
	}

	remaining := len(entries)
	for front := 1; remaining > 0; front++ {
		var current []int
		for i := range entries {
			if entries[i].Front != 0 {
				continue
			}
			dominated := false
			for j := range entries {
				if i == j || (entries[j].Front != 0 && entries[j].Front < front) {
					continue
				}
				if dominates(vectors[j], vectors[i]) {
					dominated = true
					break
				}
			}
			if !dominated {
				current = append(current, i)
			}
		}
		for _, i := range current {
			entries[i].Front = front
		}
		remaining -= len(current)
	}
}

// assignTopsisCloseness sets each entry's rank score to its relative closeness to the
// ideal solution over the weighted, vector-normalized sub-score matrix.
func assignTopsisCloseness(entries []schema.RankedEntry, weights map[schema.SubScore]float64) {
	if len(entries) == 0 {
		return
	}
	cols := len(schema.AllSubScores)

	norms := make([]float64, cols)
	for _, e := range entries {
		for j, v := range e.Score.Vector() {
			norms[j] += v * v
		}
	}
	w := make([]float64, cols)
	for j, sub := range schema.AllSubScores {
		norms[j] = math.Sqrt(norms[j])
		w[j] = 1 / float64(cols)
		if weights != nil {
			w[j] = weights[sub]
		}
	}

	matrix := make([][]float64, len(entries))
	best := make([]float64, cols)
	worst := make([]float64, cols)
	for j := range cols {
		best[j] = math.Inf(-1)
		worst[j] = math.Inf(1)
	}
	for i, e := range entries {
		row := e.Score.Vector()
		for j := range row {
			if norms[j] > 0 {
				row[j] = w[j] * row[j] / norms[j]
			} else {
				row[j] = 0
			}
			best[j] = math.Max(best[j], row[j])
			worst[j] = math.Min(worst[j], row[j])
		}
		matrix[i] = row
	}

	for i := range entries {
		var dBest, dWorst float64
		for j, v := range matrix[i] {
			dBest += (v - best[j]) * (v - best[j])
			dWorst += (v - worst[j]) * (v - worst[j])
		}
		dBest, dWorst = math.Sqrt(dBest), math.Sqrt(dWorst)
		if dBest+dWorst == 0 {
			entries[i].RankScore = 0.5
		} else {
			entries[i].RankScore = dWorst / (dBest + dWorst)
		}
		entries[i].Front = 0
	}
}
