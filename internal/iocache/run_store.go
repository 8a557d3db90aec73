package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/schema"
	"github.com/jmoiron/sqlx"
)

// Table names for run tracking.
const (
	runsTable              = "reposcout_runs"
	repositoryResultsTable = "reposcout_repository_results"
	selectionsTable        = "reposcout_selections"
	manifestTable          = "reposcout_manifest"
)

// runTables lists the run tables in creation order.
var runTables = []string{runsTable, repositoryResultsTable, selectionsTable, manifestTable}

// runRow is the stored form of a run. Times stay raw because SQLite keeps them as text.
type runRow struct {
	RunID             int64          `db:"run_id"`
	RunUUID           string         `db:"run_uuid"`
	StartTime         any            `db:"start_time"`
	EndTime           any            `db:"end_time"`
	RunDurationMs     *int32         `db:"run_duration_ms"`
	Algorithm         string         `db:"algorithm"`
	TotalRepositories int32          `db:"total_repositories"`
	IncompleteCount   int32          `db:"incomplete_count"`
	TimedOut          bool           `db:"timed_out"`
	ConfigParams      sql.NullString `db:"config_params"`
	Summary           sql.NullString `db:"summary"`
}

// RunStoreImpl implements the RunStore interface.
type RunStoreImpl struct {
	db      *sqlx.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// NewRunStore creates a new RunStore with the specified backend.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (contract.RunStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &RunStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, contract.GetRunsDBFilePath())
	if err != nil {
		return nil, err
	}
	queries := map[string]string{
		runsTable:              getCreateRunsQuery(backend),
		repositoryResultsTable: getCreateRepositoryResultsQuery(backend),
		selectionsTable:        getCreateSelectionsQuery(backend),
		manifestTable:          getCreateManifestQuery(backend),
	}
	if err := createTables(db, queries, runTables); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create run tables: %w", err)
	}

	return &RunStoreImpl{db: db, backend: backend, connStr: connStr}, nil
}

// getCreateRunsQuery returns the CREATE TABLE query for reposcout_runs.
func getCreateRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(runsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				run_uuid VARCHAR(64) NOT NULL,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				algorithm VARCHAR(32) NOT NULL,
				total_repositories INT NOT NULL,
				incomplete_count INT NOT NULL,
				timed_out BOOLEAN NOT NULL,
				config_params TEXT,
				summary TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				run_uuid TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				algorithm TEXT NOT NULL,
				total_repositories INT NOT NULL,
				incomplete_count INT NOT NULL,
				timed_out BOOLEAN NOT NULL,
				config_params TEXT,
				summary TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_uuid TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				algorithm TEXT NOT NULL,
				total_repositories INTEGER NOT NULL,
				incomplete_count INTEGER NOT NULL,
				timed_out INTEGER NOT NULL,
				config_params TEXT,
				summary TEXT
			);
		`, quotedTableName)
	}
}

// getCreateRepositoryResultsQuery returns the CREATE TABLE query for reposcout_repository_results.
func getCreateRepositoryResultsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(repositoryResultsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				repository_id VARCHAR(255) NOT NULL,
				category VARCHAR(64) NOT NULL,
				status VARCHAR(16) NOT NULL,
				completeness DOUBLE NOT NULL,
				consistency DOUBLE NOT NULL,
				freshness DOUBLE NOT NULL,
				source_count INT NOT NULL,
				popularity DOUBLE NOT NULL,
				activity DOUBLE NOT NULL,
				community_health DOUBLE NOT NULL,
				quality_score DOUBLE NOT NULL,
				overall DOUBLE NOT NULL,
				unified MEDIUMTEXT NOT NULL,
				filter_result TEXT NOT NULL,
				PRIMARY KEY (run_id, repository_id)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				repository_id TEXT NOT NULL,
				category TEXT NOT NULL,
				status TEXT NOT NULL,
				completeness DOUBLE PRECISION NOT NULL,
				consistency DOUBLE PRECISION NOT NULL,
				freshness DOUBLE PRECISION NOT NULL,
				source_count INT NOT NULL,
				popularity DOUBLE PRECISION NOT NULL,
				activity DOUBLE PRECISION NOT NULL,
				community_health DOUBLE PRECISION NOT NULL,
				quality_score DOUBLE PRECISION NOT NULL,
				overall DOUBLE PRECISION NOT NULL,
				unified TEXT NOT NULL,
				filter_result TEXT NOT NULL,
				PRIMARY KEY (run_id, repository_id)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				repository_id TEXT NOT NULL,
				category TEXT NOT NULL,
				status TEXT NOT NULL,
				completeness REAL NOT NULL,
				consistency REAL NOT NULL,
				freshness REAL NOT NULL,
				source_count INTEGER NOT NULL,
				popularity REAL NOT NULL,
				activity REAL NOT NULL,
				community_health REAL NOT NULL,
				quality_score REAL NOT NULL,
				overall REAL NOT NULL,
				unified TEXT NOT NULL,
				filter_result TEXT NOT NULL,
				PRIMARY KEY (run_id, repository_id)
			);
		`, quotedTableName)
	}
}

// getCreateSelectionsQuery returns the CREATE TABLE query for reposcout_selections.
func getCreateSelectionsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(selectionsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				repository_id VARCHAR(255) NOT NULL,
				rank_position INT NOT NULL,
				rank_score DOUBLE NOT NULL,
				front INT NOT NULL,
				scale_bucket VARCHAR(16) NOT NULL,
				included BOOLEAN NOT NULL,
				bucket VARCHAR(64),
				reason VARCHAR(255),
				PRIMARY KEY (run_id, repository_id)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				repository_id TEXT NOT NULL,
				rank_position INT NOT NULL,
				rank_score DOUBLE PRECISION NOT NULL,
				front INT NOT NULL,
				scale_bucket TEXT NOT NULL,
				included BOOLEAN NOT NULL,
				bucket TEXT,
				reason TEXT,
				PRIMARY KEY (run_id, repository_id)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				repository_id TEXT NOT NULL,
				rank_position INTEGER NOT NULL,
				rank_score REAL NOT NULL,
				front INTEGER NOT NULL,
				scale_bucket TEXT NOT NULL,
				included INTEGER NOT NULL,
				bucket TEXT,
				reason TEXT,
				PRIMARY KEY (run_id, repository_id)
			);
		`, quotedTableName)
	}
}

// getCreateManifestQuery returns the CREATE TABLE query for reposcout_manifest.
func getCreateManifestQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(manifestTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				seq INT NOT NULL,
				repository_id VARCHAR(255) NOT NULL,
				stage VARCHAR(16) NOT NULL,
				severity VARCHAR(16) NOT NULL,
				code VARCHAR(64) NOT NULL,
				field VARCHAR(64),
				message TEXT NOT NULL,
				PRIMARY KEY (run_id, seq)
			);
		`, quotedTableName)

	default: // SQLite and PostgreSQL
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				seq INTEGER NOT NULL,
				repository_id TEXT NOT NULL,
				stage TEXT NOT NULL,
				severity TEXT NOT NULL,
				code TEXT NOT NULL,
				field TEXT,
				message TEXT NOT NULL,
				PRIMARY KEY (run_id, seq)
			);
		`, quotedTableName)
	}
}

// SaveRun stores every artifact of a run in one transaction and returns the numeric run ID.
func (rs *RunStoreImpl) SaveRun(result *schema.RunResult, configParams map[string]any) (int64, error) {
	// Skip for NoneBackend
	if rs.db == nil || result == nil {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}
	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal summary: %w", err)
	}

	tx, err := rs.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	runID, err := rs.insertRun(tx, result, string(configJSON), string(summaryJSON))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	results, err := repositoryResultRows(runID, result)
	if err != nil {
		return 0, err
	}
	if err := namedInsert(tx, rs.insertQuery(repositoryResultsTable, `(run_id, repository_id, category, status,
		completeness, consistency, freshness, source_count,
		popularity, activity, community_health, quality_score, overall, unified, filter_result)
		VALUES (:run_id, :repository_id, :category, :status,
		:completeness, :consistency, :freshness, :source_count,
		:popularity, :activity, :community_health, :quality_score, :overall, :unified, :filter_result)`), repositoryResultsTable, results); err != nil {
		return 0, err
	}

	if err := namedInsert(tx, rs.insertQuery(selectionsTable, `(run_id, repository_id, rank_position, rank_score,
		front, scale_bucket, included, bucket, reason)
		VALUES (:run_id, :repository_id, :rank_position, :rank_score,
		:front, :scale_bucket, :included, :bucket, :reason)`), selectionsTable, selectionRows(runID, result)); err != nil {
		return 0, err
	}

	if err := namedInsert(tx, rs.insertQuery(manifestTable, `(run_id, seq, repository_id, stage, severity, code, field, message)
		VALUES (:run_id, :seq, :repository_id, :stage, :severity, :code, :field, :message)`), manifestTable, manifestRows(runID, result)); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// insertRun writes the run row and returns its generated ID.
func (rs *RunStoreImpl) insertRun(tx *sqlx.Tx, result *schema.RunResult, configJSON, summaryJSON string) (int64, error) {
	quotedTableName := quoteTableName(runsTable, rs.backend)
	durationMs := int32(result.FinishedAt.Sub(result.StartedAt).Milliseconds())
	args := []any{
		result.RunID,
		formatTime(result.StartedAt, rs.backend),
		formatTime(result.FinishedAt, rs.backend),
		durationMs,
		string(result.Algorithm),
		result.Summary.Repositories,
		len(result.Incomplete),
		len(result.Incomplete) > 0,
		configJSON,
		summaryJSON,
	}
	query := fmt.Sprintf(`INSERT INTO %s (run_uuid, start_time, end_time, run_duration_ms, algorithm,
		total_repositories, incomplete_count, timed_out, config_params, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, quotedTableName)

	var runID int64
	switch rs.backend {
	case schema.PostgreSQLBackend:
		err := tx.QueryRowx(tx.Rebind(query+" RETURNING run_id"), args...).Scan(&runID)
		return runID, err
	default: // SQLite and MySQL
		res, err := tx.Exec(query, args...)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}
}

// insertQuery builds a named INSERT for one of the run tables.
func (rs *RunStoreImpl) insertQuery(table, columns string) string {
	return fmt.Sprintf("INSERT INTO %s %s", quoteTableName(table, rs.backend), columns)
}

// namedInsert runs a multi-row named insert in chunks of recordInsertChunk rows.
func namedInsert[T any](tx *sqlx.Tx, query, table string, rows []T) error {
	for start := 0; start < len(rows); start += recordInsertChunk {
		end := min(start+recordInsertChunk, len(rows))
		if _, err := tx.NamedExec(query, rows[start:end]); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

// repositoryResultRows flattens the unified records, scores and filter results of a run.
func repositoryResultRows(runID int64, result *schema.RunResult) ([]schema.RepositoryResultRecord, error) {
	rows := make([]schema.RepositoryResultRecord, 0, len(result.Unified))
	for _, u := range result.Unified {
		unifiedJSON, err := json.Marshal(u)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal unified record of %s: %w", u.RepositoryID, err)
		}
		row := schema.RepositoryResultRecord{
			RunID:        runID,
			RepositoryID: u.RepositoryID,
			Category:     string(u.Category),
			Completeness: u.Quality.Completeness,
			Consistency:  u.Quality.Consistency,
			Freshness:    u.Quality.Freshness,
			SourceCount:  int32(u.Quality.SourceCount),
			Unified:      string(unifiedJSON),
			Filter:       "{}",
		}
		if s, ok := result.Scores[u.RepositoryID]; ok {
			row.Popularity = s.Popularity
			row.Activity = s.Activity
			row.CommunityHealth = s.CommunityHealth
			row.QualityScore = s.QualityScore
			row.Overall = s.Overall
		}
		if f, ok := result.FilterFor(u.RepositoryID); ok {
			filterJSON, err := json.Marshal(f)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal filter result of %s: %w", u.RepositoryID, err)
			}
			row.Status = string(f.Status)
			row.Filter = string(filterJSON)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// selectionRows flattens the diversity selection of a run. Timed out runs have none.
func selectionRows(runID int64, result *schema.RunResult) []schema.SelectionRecord {
	if result.Selection == nil {
		return nil
	}
	rows := make([]schema.SelectionRecord, 0, len(result.Selection.Entries))
	for _, e := range result.Selection.Entries {
		rows = append(rows, schema.SelectionRecord{
			RunID:        runID,
			RepositoryID: e.RepositoryID,
			Rank:         int32(e.Rank),
			RankScore:    e.RankScore,
			Front:        int32(e.Front),
			ScaleBucket:  string(e.ScaleBucket),
			Included:     e.Included,
			Bucket:       optionalString(e.Bucket),
			Reason:       optionalString(e.Reason),
		})
	}
	return rows
}

// manifestRows numbers the manifest entries of a run in emission order.
func manifestRows(runID int64, result *schema.RunResult) []schema.ManifestRecord {
	rows := make([]schema.ManifestRecord, 0, len(result.Manifest))
	for i, m := range result.Manifest {
		rows = append(rows, schema.ManifestRecord{
			RunID:        runID,
			Seq:          int32(i + 1),
			RepositoryID: m.RepositoryID,
			Stage:        string(m.Stage),
			Severity:     string(m.Severity),
			Code:         m.Code,
			Field:        optionalString(string(m.Field)),
			Message:      m.Message,
		})
	}
	return rows
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Close closes the underlying connection.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the run store.
func (rs *RunStoreImpl) GetStatus() (schema.RunStoreStatus, error) {
	status := schema.RunStoreStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if rs.db == nil {
		return status, nil
	}

	quotedRuns := quoteTableName(runsTable, rs.backend)
	if err := rs.db.Get(&status.TotalRuns, "SELECT COUNT(*) FROM "+quotedRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		var last runRow
		query := fmt.Sprintf("SELECT run_id, run_uuid, start_time FROM %s ORDER BY run_id DESC LIMIT 1", quotedRuns)
		if err := rs.db.Get(&last, query); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		lastTime, err := parseTime(last.StartTime)
		if err != nil {
			return status, fmt.Errorf("failed to parse last run time: %w", err)
		}
		status.LastRunID = last.RunID
		status.LastRunUUID = last.RunUUID
		status.LastRunTime = lastTime

		var oldest runRow
		query = fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id ASC LIMIT 1", quotedRuns)
		if err := rs.db.Get(&oldest, query); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		if status.OldestRunTime, err = parseTime(oldest.StartTime); err != nil {
			return status, fmt.Errorf("failed to parse oldest run time: %w", err)
		}

		query = fmt.Sprintf("SELECT COALESCE(SUM(total_repositories), 0) FROM %s", quotedRuns)
		if err := rs.db.Get(&status.TotalRepositories, query); err != nil {
			return status, fmt.Errorf("failed to get total repositories: %w", err)
		}
	}

	for _, table := range runTables {
		var count int64
		if err := rs.db.Get(&count, "SELECT COUNT(*) FROM "+quoteTableName(table, rs.backend)); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// GetAllRuns retrieves all runs from the store, oldest first.
func (rs *RunStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, run_uuid, start_time, end_time, run_duration_ms, algorithm,
		total_repositories, incomplete_count, timed_out, config_params, summary
		FROM %s ORDER BY run_id`, quoteTableName(runsTable, rs.backend))
	var rows []runRow
	if err := rs.db.Select(&rows, query); err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	records := make([]schema.RunRecord, 0, len(rows))
	for _, row := range rows {
		record := schema.RunRecord{
			RunID:             row.RunID,
			RunUUID:           row.RunUUID,
			RunDurationMs:     row.RunDurationMs,
			Algorithm:         row.Algorithm,
			TotalRepositories: row.TotalRepositories,
			IncompleteCount:   row.IncompleteCount,
			TimedOut:          row.TimedOut,
		}
		start, err := parseTime(row.StartTime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse start_time of run %d: %w", row.RunID, err)
		}
		record.StartTime = start
		if row.EndTime != nil {
			end, err := parseTime(row.EndTime)
			if err != nil {
				return nil, fmt.Errorf("failed to parse end_time of run %d: %w", row.RunID, err)
			}
			record.EndTime = &end
		}
		if row.ConfigParams.Valid {
			record.ConfigParams = &row.ConfigParams.String
		}
		if row.Summary.Valid {
			record.Summary = &row.Summary.String
		}
		records = append(records, record)
	}
	return records, nil
}

// GetAllRepositoryResults retrieves every per-repository result from the store.
func (rs *RunStoreImpl) GetAllRepositoryResults() ([]schema.RepositoryResultRecord, error) {
	if rs.db == nil {
		return nil, nil
	}
	var records []schema.RepositoryResultRecord
	query := fmt.Sprintf(`SELECT run_id, repository_id, category, status,
		completeness, consistency, freshness, source_count,
		popularity, activity, community_health, quality_score, overall, unified, filter_result
		FROM %s ORDER BY run_id, repository_id`, quoteTableName(repositoryResultsTable, rs.backend))
	if err := rs.db.Select(&records, query); err != nil {
		return nil, fmt.Errorf("failed to query repository results: %w", err)
	}
	return records, nil
}

// GetAllSelections retrieves every stored shortlist entry.
func (rs *RunStoreImpl) GetAllSelections() ([]schema.SelectionRecord, error) {
	if rs.db == nil {
		return nil, nil
	}
	var records []schema.SelectionRecord
	query := fmt.Sprintf(`SELECT run_id, repository_id, rank_position, rank_score,
		front, scale_bucket, included, bucket, reason
		FROM %s ORDER BY run_id, rank_position`, quoteTableName(selectionsTable, rs.backend))
	if err := rs.db.Select(&records, query); err != nil {
		return nil, fmt.Errorf("failed to query selections: %w", err)
	}
	return records, nil
}

// GetAllManifest retrieves every stored manifest entry.
func (rs *RunStoreImpl) GetAllManifest() ([]schema.ManifestRecord, error) {
	if rs.db == nil {
		return nil, nil
	}
	var records []schema.ManifestRecord
	query := fmt.Sprintf(`SELECT run_id, seq, repository_id, stage, severity, code, field, message
		FROM %s ORDER BY run_id, seq`, quoteTableName(manifestTable, rs.backend))
	if err := rs.db.Select(&records, query); err != nil {
		return nil, fmt.Errorf("failed to query manifest: %w", err)
	}
	return records, nil
}
