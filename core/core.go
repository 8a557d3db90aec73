// Package core has core logic for aggregation runs, scoring, filtering and ranking.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/internal/iocache"
	"github.com/huangsam/reposcout/internal/outwriter"
	"github.com/huangsam/reposcout/schema"
)

// ExecutorFunc defines the function signature for executing the different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error

// ExecuteRun runs the full pipeline and prints the shortlist, manifest and data quality summary.
// A timed out run still prints and persists its partial results before the error is returned.
func ExecuteRun(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	result, runErr := RunPipeline(ctx, cfg, mgr)
	if result == nil {
		return runErr
	}
	if err := outwriter.WriteRunResult(result, cfg, time.Since(start)); err != nil {
		return err
	}
	return runErr
}

// ExecuteIngest appends the repositories and source records of the input files to the record store.
func ExecuteIngest(_ context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	if len(cfg.InputFiles) == 0 {
		return errors.New("no input files given")
	}
	store := recordStoreOf(mgr)
	if store == nil {
		return errors.New("record store is disabled (records-backend is none)")
	}

	batch, err := iocache.LoadBatchFiles(cfg.InputFiles)
	if err != nil {
		return err
	}
	repos, err := store.PutRepositories(batch.Repositories)
	if err != nil {
		return fmt.Errorf("failed to store repositories: %w", err)
	}
	records, err := store.AppendRecords(batch.Records)
	if err != nil {
		return fmt.Errorf("failed to store source records: %w", err)
	}
	fmt.Printf("Ingested %d repositories and %d source records from %d file(s)\n", repos, records, len(cfg.InputFiles))
	return nil
}

// ExecuteProfiles displays the active weight profiles and thresholds.
// This is a static display that does not run the pipeline.
func ExecuteProfiles(_ context.Context, cfg *contract.Config, _ contract.StoreManager) error {
	return outwriter.WriteProfiles(cfg)
}

// RunPipeline loads the configured batch, runs the pipeline over it and persists the result.
// Input files take precedence over the record store.
func RunPipeline(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (*schema.RunResult, error) {
	ctx = contextWithStoreManager(ctx, mgr)

	batch, err := loadBatch(cfg, mgr)
	if err != nil {
		return nil, err
	}
	if len(batch.Repositories) == 0 {
		return nil, fmt.Errorf("no repositories to process: %w", schema.ErrNoSourceData)
	}

	if !shouldSuppressHeader(ctx) {
		outwriter.LogRunHeader(cfg, len(batch.Repositories), len(batch.Records))
	}

	result, runErr := NewPipeline(cfg).Run(ctx, batch)
	if result != nil {
		persistRun(ctx, cfg, result)
	}
	return result, runErr
}

// RunPipelineSilently is RunPipeline without the run header, for callers that own stdout.
func RunPipelineSilently(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (*schema.RunResult, error) {
	return RunPipeline(withSuppressHeader(ctx), cfg, mgr)
}

// loadBatch reads the input files, or the record store when no files are given.
func loadBatch(cfg *contract.Config, mgr contract.StoreManager) (schema.Batch, error) {
	if len(cfg.InputFiles) > 0 {
		return iocache.LoadBatchFiles(cfg.InputFiles)
	}
	store := recordStoreOf(mgr)
	if store == nil {
		return schema.Batch{}, errors.New("no input files given and the record store is disabled")
	}
	batch, err := store.LoadBatch(cfg.AsOf, cfg.Categories...)
	if err != nil {
		return schema.Batch{}, fmt.Errorf("failed to load source records: %w", err)
	}
	return batch, nil
}

// persistRun records the run in the run store, if one is configured.
// Failures are logged and never fail the run.
func persistRun(ctx context.Context, cfg *contract.Config, result *schema.RunResult) {
	mgr := storeManagerFromContext(ctx)
	if mgr == nil {
		return
	}
	store := mgr.GetRunStore()
	if store == nil {
		return
	}
	id, err := store.SaveRun(result, cfg.ConfigParams())
	if err != nil {
		contract.LogWarn(fmt.Sprintf("Run tracking failed for %s", result.RunID), err)
		return
	}
	contract.LogInfo("Run persisted", map[string]any{"run": result.RunID, "id": id})
}

func recordStoreOf(mgr contract.StoreManager) contract.RecordStore {
	if mgr == nil {
		return nil
	}
	return mgr.GetRecordStore()
}
