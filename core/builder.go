package core

import (
	"context"
	"fmt"

	"github.com/huangsam/reposcout/core/agg"
	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/schema"
)

// OutcomeBuilder runs the per-repository stages of a run.
// A failed stage records a manifest entry and the remaining stages are skipped.
type OutcomeBuilder struct {
	ctx        context.Context
	cfg        *contract.Config
	aggregator *agg.Aggregator
	input      schema.RepositoryInput
	outcome    *schema.RepoOutcome
	failed     bool
}

// NewOutcomeBuilder is the starting point for building a repository outcome.
func NewOutcomeBuilder(ctx context.Context, cfg *contract.Config, aggregator *agg.Aggregator, input schema.RepositoryInput) *OutcomeBuilder {
	return &OutcomeBuilder{
		ctx:        ctx,
		cfg:        cfg,
		aggregator: aggregator,
		input:      input,
		outcome:    &schema.RepoOutcome{Repository: input.Repository},
	}
}

// Aggregate merges the source records into a unified record.
// Field-level problems are kept as manifest warnings.
func (b *OutcomeBuilder) Aggregate() *OutcomeBuilder {
	if b.failed {
		return b
	}
	unified, err := b.aggregator.Aggregate(b.input.ID, b.input.Category, b.input.Records)
	if err != nil {
		return b.fail(schema.AggregateStage, err)
	}
	for _, field := range schema.SortedFieldNames(unified.Warnings) {
		rf := unified.Fields[field]
		b.outcome.Manifest = append(b.outcome.Manifest, schema.ManifestEntry{
			RepositoryID: b.input.ID,
			Stage:        schema.AggregateStage,
			Severity:     schema.WarningSeverity,
			Code:         unified.Warnings[field],
			Field:        field,
			Message:      rf.Reason,
		})
	}
	b.outcome.Unified = &unified
	return b
}

// Score computes the score breakdown with the category profile.
func (b *OutcomeBuilder) Score() *OutcomeBuilder {
	if b.failed {
		return b
	}
	score, err := Score(*b.outcome.Unified, b.cfg.ProfileFor(b.input.Category))
	if err != nil {
		return b.fail(schema.ScoreStage, err)
	}
	b.outcome.Score = &score
	return b
}

// Filter classifies the scored record against the category thresholds.
func (b *OutcomeBuilder) Filter() *OutcomeBuilder {
	if b.failed {
		return b
	}
	result := Classify(*b.outcome.Unified, *b.outcome.Score, b.cfg.ThresholdsFor(b.input.Category))
	b.outcome.Filter = &result
	return b
}

// Build finalizes the construction and returns the outcome.
func (b *OutcomeBuilder) Build() schema.RepoOutcome {
	if runID, ok := getRunID(b.ctx); ok {
		contract.LogDebug("Repository processed", map[string]any{
			"run":        runID,
			"repository": b.input.ID,
			"completed":  b.outcome.Completed(),
		})
	}
	return *b.outcome
}

func (b *OutcomeBuilder) fail(stage schema.Stage, err error) *OutcomeBuilder {
	b.failed = true
	b.outcome.Manifest = append(b.outcome.Manifest, schema.ManifestEntry{
		RepositoryID: b.input.ID,
		Stage:        stage,
		Severity:     schema.ErrorSeverity,
		Code:         schema.ErrorCode(err),
		Message:      fmt.Sprintf("%s failed: %v", stage, err),
	})
	return b
}
