package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/reposcout/core/agg"
	"github.com/huangsam/reposcout/core/algo"
	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/schema"
)

// Pipeline runs batches of source records through aggregation, scoring, filtering and ranking.
type Pipeline struct {
	cfg *contract.Config
	now func() time.Time
}

// NewPipeline creates a pipeline bound to a validated config.
func NewPipeline(cfg *contract.Config) *Pipeline {
	return &Pipeline{cfg: cfg, now: time.Now}
}

// indexedOutcome carries a worker result back to its input position.
type indexedOutcome struct {
	index   int
	outcome schema.RepoOutcome
}

// Run processes every repository of the batch and ranks the ones that completed.
//
// The per-repository stages run on a worker pool. Ranking waits for all of them; when the
// budget expires first, the partial result is returned together with an error wrapping
// schema.ErrRunTimedOut and no ranking is produced.
func (p *Pipeline) Run(ctx context.Context, batch schema.Batch) (*schema.RunResult, error) {
	started := p.now().UTC()
	asOf := p.cfg.AsOf
	if asOf.IsZero() {
		asOf = started
	}
	result := &schema.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: started,
		AsOf:      asOf,
		Algorithm: p.cfg.Algorithm,
		Scores:    make(map[string]schema.ScoreBreakdown),
		Unified:   []schema.UnifiedRecord{},
		Filters:   []schema.FilterResult{},
		Manifest:  []schema.ManifestEntry{},
	}
	ctx = withRunID(ctx, result.RunID)

	inputs, loadManifest := p.selectInputs(batch)
	result.Manifest = append(result.Manifest, loadManifest...)

	// Population stats are frozen before any worker starts.
	stats := algo.BuildPopulationStats(inputs)
	aggregator := agg.NewAggregator(p.settings(stats, asOf))

	runCtx, cancel := p.withBudget(ctx)
	defer cancel()

	outcomes := p.process(runCtx, aggregator, inputs)

	for i, o := range outcomes {
		if o == nil {
			result.Incomplete = append(result.Incomplete, inputs[i].ID)
			continue
		}
		result.Manifest = append(result.Manifest, o.Manifest...)
		if o.Unified != nil {
			result.Unified = append(result.Unified, *o.Unified)
		}
		if o.Score != nil {
			result.Scores[o.Repository.ID] = *o.Score
		}
		if o.Filter != nil {
			result.Filters = append(result.Filters, *o.Filter)
		}
	}
	result.Summary = agg.SummarizeQuality(len(inputs), result.Unified, result.Filters)

	if len(result.Incomplete) > 0 {
		result.FinishedAt = p.now().UTC()
		for _, id := range result.Incomplete {
			result.Manifest = append(result.Manifest, schema.ManifestEntry{
				RepositoryID: id,
				Stage:        schema.RankStage,
				Severity:     schema.ErrorSeverity,
				Code:         schema.ErrorCode(schema.ErrRunTimedOut),
				Message:      "not processed before the run stopped",
			})
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return result, fmt.Errorf("%d of %d repositories incomplete after %s: %w", len(result.Incomplete), len(inputs), p.cfg.Budget, schema.ErrRunTimedOut)
		}
		return result, fmt.Errorf("run canceled with %d repositories incomplete: %w", len(result.Incomplete), ctx.Err())
	}

	if err := p.rank(result, outcomes); err != nil {
		return result, err
	}
	result.FinishedAt = p.now().UTC()

	contract.LogInfo("Run finished", map[string]any{
		"run":          result.RunID,
		"repositories": len(inputs),
		"ranked":       len(result.Global.Entries),
		"shortlisted":  len(result.Selection.Shortlist()),
		"duration":     result.FinishedAt.Sub(result.StartedAt).String(),
	})
	return result, nil
}

// withBudget applies the wall-clock budget of the run. A zero budget means no limit.
func (p *Pipeline) withBudget(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.Budget <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.cfg.Budget)
}

// selectInputs groups the batch by repository and keeps the configured categories.
// Records for undeclared repositories are reported once per repository id.
func (p *Pipeline) selectInputs(batch schema.Batch) ([]schema.RepositoryInput, []schema.ManifestEntry) {
	all, orphans := batch.Inputs()

	var manifest []schema.ManifestEntry
	seen := make(map[string]struct{})
	for _, rec := range orphans {
		if _, ok := seen[rec.RepositoryID]; ok {
			continue
		}
		seen[rec.RepositoryID] = struct{}{}
		manifest = append(manifest, schema.ManifestEntry{
			RepositoryID: rec.RepositoryID,
			Stage:        schema.LoadStage,
			Severity:     schema.WarningSeverity,
			Code:         schema.ErrorCode(schema.ErrUnknownCategory),
			Message:      "records reference a repository that was never declared",
		})
	}

	if len(p.cfg.Categories) == 0 {
		return all, manifest
	}
	inputs := make([]schema.RepositoryInput, 0, len(all))
	for _, in := range all {
		if slices.Contains(p.cfg.Categories, in.Category) {
			inputs = append(inputs, in)
		}
	}
	return inputs, manifest
}

// settings builds the frozen aggregator settings from the config.
func (p *Pipeline) settings(stats algo.PopulationStats, asOf time.Time) agg.Settings {
	settings := agg.DefaultSettings(stats, asOf)
	settings.Policies = p.cfg.Policies
	settings.DefaultPolicy = p.cfg.DefaultPolicy
	settings.Normalization = p.cfg.Normalization
	settings.ExpectedFields = p.cfg.ExpectedFields
	settings.HalfLives = p.cfg.HalfLives
	settings.TrendFields = p.cfg.TrendFields
	settings.Resolve.Tolerance = p.cfg.Tolerance
	settings.Resolve.Reliability = p.cfg.Reliability
	return settings
}

// process runs every repository on a worker pool. It spawns cfg.Workers goroutines
// and returns the outcomes in input order; repositories that were never started are nil.
func (p *Pipeline) process(ctx context.Context, aggregator *agg.Aggregator, inputs []schema.RepositoryInput) []*schema.RepoOutcome {
	inputCh := make(chan int, len(inputs))
	outcomeCh := make(chan indexedOutcome, len(inputs))
	var wg sync.WaitGroup

	for range max(p.cfg.Workers, 1) {
		wg.Go(func() {
			for i := range inputCh {
				// Coarse cancellation: a started repository always finishes.
				if ctx.Err() != nil {
					continue
				}
				outcome := NewOutcomeBuilder(ctx, p.cfg, aggregator, inputs[i]).
					Aggregate().
					Score().
					Filter().
					Build()
				outcomeCh <- indexedOutcome{index: i, outcome: outcome}
			}
		})
	}

	for i := range inputs {
		inputCh <- i
	}
	close(inputCh)

	wg.Wait()
	close(outcomeCh)

	outcomes := make([]*schema.RepoOutcome, len(inputs))
	for r := range outcomeCh {
		outcomes[r.index] = &r.outcome
	}
	return outcomes
}

// rank builds the global and per-category rankings and balances the global one.
func (p *Pipeline) rank(result *schema.RunResult, outcomes []*schema.RepoOutcome) error {
	candidates := make([]schema.RankedEntry, 0, len(outcomes))
	byCategory := make(map[schema.Category][]schema.RankedEntry)
	var categories []schema.Category
	for _, o := range outcomes {
		if !o.Completed() {
			continue
		}
		entry := p.candidate(*o)
		candidates = append(candidates, entry)
		if _, ok := byCategory[entry.Category]; !ok {
			categories = append(categories, entry.Category)
		}
		byCategory[entry.Category] = append(byCategory[entry.Category], entry)
	}

	global, err := algo.Rank(candidates, p.cfg.Algorithm, p.globalWeights(categories), schema.GlobalScope)
	if err != nil {
		return fmt.Errorf("global ranking: %w", err)
	}
	result.Global = &global
	result.Algorithm = global.Algorithm

	result.ByCategory = make(map[schema.Category]schema.Ranking, len(categories))
	for _, c := range categories {
		ranking, err := algo.Rank(byCategory[c], p.cfg.Algorithm, p.cfg.ProfileFor(c).Overall, string(c))
		if err != nil {
			return fmt.Errorf("ranking %s: %w", c, err)
		}
		result.ByCategory[c] = ranking
	}

	selection := algo.Balance(global, p.cfg.Diversity)
	result.Selection = &selection
	return nil
}

// candidate turns a completed outcome into a ranking candidate.
func (p *Pipeline) candidate(o schema.RepoOutcome) schema.RankedEntry {
	entry := schema.RankedEntry{
		RepositoryID:  o.Repository.ID,
		Category:      o.Repository.Category,
		Score:         *o.Score,
		Status:        o.Filter.Status,
		TiebreakField: p.cfg.TiebreakFor(o.Repository.Category),
	}
	if v, ok := o.Unified.Number(entry.TiebreakField); ok {
		entry.TiebreakValue = &v
	}
	if v, ok := o.Unified.Number(p.cfg.Diversity.ScaleMetric); ok {
		entry.Scale = v
		entry.HasScale = true
	}
	return entry
}

// globalWeights averages the overall weights of the categories present in the run.
func (p *Pipeline) globalWeights(categories []schema.Category) map[schema.SubScore]float64 {
	weights := make(map[schema.SubScore]float64, len(schema.AllSubScores))
	if len(categories) == 0 {
		return weights
	}
	for _, c := range categories {
		for sub, w := range p.cfg.ProfileFor(c).Overall {
			weights[sub] += w
		}
	}
	for sub := range weights {
		weights[sub] /= float64(len(categories))
	}
	return weights
}
