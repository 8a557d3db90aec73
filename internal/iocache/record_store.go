package iocache

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/schema"
	"github.com/jmoiron/sqlx"
)

// Table names for the source record store.
const (
	repositoriesTable  = "reposcout_repositories"
	sourceRecordsTable = "reposcout_source_records"
)

// recordInsertChunk caps the rows of one multi-row insert.
const recordInsertChunk = 200

// recordRow is the stored form of a schema.SourceRecord.
type recordRow struct {
	RecordID     int64  `db:"record_id"`
	RepositoryID string `db:"repository_id"`
	Source       string `db:"source"`
	ObservedAtNs int64  `db:"observed_at_ns"`
	Fields       string `db:"fields"`
}

// storedField is the stored form of a schema.FieldValue. The kind is kept next to the
// payload so that every value reloads with the kind it was written with.
type storedField struct {
	Kind  schema.FieldKind `json:"kind"`
	Value string           `json:"value"`
}

// encodeFields renders a field map as kind-tagged JSON. Numbers use the shortest exact
// representation, which also covers NaN and the infinities.
func encodeFields(fields map[schema.FieldName]schema.FieldValue) (string, error) {
	stored := make(map[schema.FieldName]storedField, len(fields))
	for name, v := range fields {
		sf := storedField{Kind: v.Kind}
		switch v.Kind {
		case schema.NumberKind:
			sf.Value = strconv.FormatFloat(v.Num, 'g', -1, 64)
		case schema.TimestampKind:
			sf.Value = v.Time.UTC().Format(time.RFC3339Nano)
		case schema.StringKind:
			sf.Value = v.Str
		default:
			return "", fmt.Errorf("field %s has unknown kind %q", name, v.Kind)
		}
		stored[name] = sf
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeFields reverses encodeFields. Rows written as plain JSON scalars are still accepted.
func decodeFields(raw string) (map[schema.FieldName]schema.FieldValue, error) {
	var stored map[schema.FieldName]storedField
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		var plain map[schema.FieldName]schema.FieldValue
		if plainErr := json.Unmarshal([]byte(raw), &plain); plainErr != nil {
			return nil, err
		}
		return plain, nil
	}

	fields := make(map[schema.FieldName]schema.FieldValue, len(stored))
	for name, sf := range stored {
		switch sf.Kind {
		case schema.NumberKind:
			n, err := strconv.ParseFloat(sf.Value, 64)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", name, err)
			}
			fields[name] = schema.Number(n)
		case schema.TimestampKind:
			t, err := time.Parse(time.RFC3339Nano, sf.Value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", name, err)
			}
			fields[name] = schema.Timestamp(t)
		case schema.StringKind:
			fields[name] = schema.String(sf.Value)
		default:
			return nil, fmt.Errorf("field %s has unknown kind %q", name, sf.Kind)
		}
	}
	return fields, nil
}

// RecordStoreImpl implements the RecordStore interface on top of sqlx.
type RecordStoreImpl struct {
	db      *sqlx.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.RecordStore = &RecordStoreImpl{} // Compile-time check

// NewRecordStore creates a RecordStore with the specified backend.
func NewRecordStore(backend schema.DatabaseBackend, connStr string) (contract.RecordStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled storage
		return &RecordStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, contract.GetRecordsDBFilePath())
	if err != nil {
		return nil, err
	}
	queries := map[string]string{
		repositoriesTable:  getCreateRepositoriesQuery(backend),
		sourceRecordsTable: getCreateSourceRecordsQuery(backend),
	}
	if err := createTables(db, queries, []string{repositoriesTable, sourceRecordsTable}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create record tables: %w", err)
	}

	return &RecordStoreImpl{db: db, backend: backend, connStr: connStr}, nil
}

// getCreateRepositoriesQuery returns the CREATE TABLE query for reposcout_repositories.
func getCreateRepositoriesQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(repositoriesTable, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				repository_id VARCHAR(255) PRIMARY KEY,
				category VARCHAR(64) NOT NULL
			);
		`, quotedTableName)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				repository_id TEXT PRIMARY KEY,
				category TEXT NOT NULL
			);
		`, quotedTableName)
	}
}

// getCreateSourceRecordsQuery returns the CREATE TABLE query for reposcout_source_records.
func getCreateSourceRecordsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(sourceRecordsTable, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				record_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				repository_id VARCHAR(255) NOT NULL,
				source VARCHAR(64) NOT NULL,
				observed_at_ns BIGINT NOT NULL,
				fields TEXT NOT NULL,
				INDEX idx_records_repository (repository_id)
			);
		`, quotedTableName)
	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				record_id BIGSERIAL PRIMARY KEY,
				repository_id TEXT NOT NULL,
				source TEXT NOT NULL,
				observed_at_ns BIGINT NOT NULL,
				fields TEXT NOT NULL
			);
		`, quotedTableName)
	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				record_id INTEGER PRIMARY KEY AUTOINCREMENT,
				repository_id TEXT NOT NULL,
				source TEXT NOT NULL,
				observed_at_ns INTEGER NOT NULL,
				fields TEXT NOT NULL
			);
		`, quotedTableName)
	}
}

// getUpsertRepositoryQuery returns the UPSERT query for the backend.
func (rs *RecordStoreImpl) getUpsertRepositoryQuery() string {
	quotedTableName := quoteTableName(repositoriesTable, rs.backend)
	switch rs.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (repository_id, category) VALUES (?, ?) AS new
			ON DUPLICATE KEY UPDATE category = new.category`, quotedTableName)
	default: // SQLite and PostgreSQL
		return rs.db.Rebind(fmt.Sprintf(`INSERT INTO %s (repository_id, category) VALUES (?, ?)
			ON CONFLICT (repository_id) DO UPDATE SET category = excluded.category`, quotedTableName))
	}
}

// PutRepositories inserts or updates the category of each repository.
func (rs *RecordStoreImpl) PutRepositories(repos []schema.Repository) (int, error) {
	if rs.db == nil || len(repos) == 0 {
		return 0, nil
	}

	tx, err := rs.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := rs.getUpsertRepositoryQuery()
	for _, repo := range repos {
		if repo.ID == "" {
			return 0, fmt.Errorf("repository without id: %w", schema.ErrInvalidConfig)
		}
		if _, err := tx.Exec(query, repo.ID, string(repo.Category)); err != nil {
			return 0, fmt.Errorf("failed to upsert repository %s: %w", repo.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit repositories: %w", err)
	}
	return len(repos), nil
}

// AppendRecords stores source records. Records are never updated in place.
func (rs *RecordStoreImpl) AppendRecords(records []schema.SourceRecord) (int, error) {
	if rs.db == nil || len(records) == 0 {
		return 0, nil
	}

	rows := make([]recordRow, 0, len(records))
	for _, rec := range records {
		fields, err := encodeFields(rec.Fields)
		if err != nil {
			return 0, fmt.Errorf("failed to encode fields of %s/%s: %w", rec.RepositoryID, rec.Source, err)
		}
		rows = append(rows, recordRow{
			RepositoryID: rec.RepositoryID,
			Source:       string(rec.Source),
			ObservedAtNs: rec.ObservedAt.UnixNano(),
			Fields:       fields,
		})
	}

	tx, err := rs.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`INSERT INTO %s (repository_id, source, observed_at_ns, fields)
		VALUES (:repository_id, :source, :observed_at_ns, :fields)`, quoteTableName(sourceRecordsTable, rs.backend))
	for start := 0; start < len(rows); start += recordInsertChunk {
		end := min(start+recordInsertChunk, len(rows))
		if _, err := tx.NamedExec(query, rows[start:end]); err != nil {
			return 0, fmt.Errorf("failed to insert source records: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit source records: %w", err)
	}
	return len(rows), nil
}

// LoadBatch returns the stored repositories and every record observed at or before asOf.
func (rs *RecordStoreImpl) LoadBatch(asOf time.Time, categories ...schema.Category) (schema.Batch, error) {
	if rs.db == nil {
		return schema.Batch{}, nil
	}
	repoTable := quoteTableName(repositoriesTable, rs.backend)
	recordTable := quoteTableName(sourceRecordsTable, rs.backend)

	repoQuery := fmt.Sprintf("SELECT repository_id, category FROM %s", repoTable)
	recordQuery := fmt.Sprintf("SELECT record_id, repository_id, source, observed_at_ns, fields FROM %s WHERE 1=1", recordTable)
	var repoArgs, recordArgs []any
	if len(categories) > 0 {
		names := make([]string, len(categories))
		for i, c := range categories {
			names[i] = string(c)
		}
		var err error
		repoQuery, repoArgs, err = sqlx.In(repoQuery+" WHERE category IN (?)", names)
		if err != nil {
			return schema.Batch{}, err
		}
		var inArgs []any
		recordQuery, inArgs, err = sqlx.In(recordQuery+
			fmt.Sprintf(" AND repository_id IN (SELECT repository_id FROM %s WHERE category IN (?))", repoTable), names)
		if err != nil {
			return schema.Batch{}, err
		}
		recordArgs = append(recordArgs, inArgs...)
	}
	if !asOf.IsZero() {
		recordQuery += " AND observed_at_ns <= ?"
		recordArgs = append(recordArgs, asOf.UnixNano())
	}
	repoQuery += " ORDER BY repository_id"
	recordQuery += " ORDER BY record_id"

	var batch schema.Batch
	if err := rs.db.Select(&batch.Repositories, rs.db.Rebind(repoQuery), repoArgs...); err != nil {
		return schema.Batch{}, fmt.Errorf("failed to query repositories: %w", err)
	}

	var rows []recordRow
	if err := rs.db.Select(&rows, rs.db.Rebind(recordQuery), recordArgs...); err != nil {
		return schema.Batch{}, fmt.Errorf("failed to query source records: %w", err)
	}
	batch.Records = make([]schema.SourceRecord, 0, len(rows))
	for _, row := range rows {
		rec := schema.SourceRecord{
			RepositoryID: row.RepositoryID,
			Source:       schema.SourceID(row.Source),
			ObservedAt:   time.Unix(0, row.ObservedAtNs).UTC(),
		}
		fields, err := decodeFields(row.Fields)
		if err != nil {
			return schema.Batch{}, fmt.Errorf("failed to decode record %d: %w", row.RecordID, err)
		}
		rec.Fields = fields
		batch.Records = append(batch.Records, rec)
	}
	return batch, nil
}

// Close closes the underlying connection.
func (rs *RecordStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the record store.
func (rs *RecordStoreImpl) GetStatus() (schema.RecordStoreStatus, error) {
	status := schema.RecordStoreStatus{
		Backend:   string(rs.backend),
		Connected: rs.db != nil,
	}
	if rs.db == nil {
		return status, nil
	}

	if err := rs.db.Get(&status.Repositories, "SELECT COUNT(*) FROM "+quoteTableName(repositoriesTable, rs.backend)); err != nil {
		return status, fmt.Errorf("failed to count repositories: %w", err)
	}
	recordTable := quoteTableName(sourceRecordsTable, rs.backend)
	if err := rs.db.Get(&status.Records, "SELECT COUNT(*) FROM "+recordTable); err != nil {
		return status, fmt.Errorf("failed to count source records: %w", err)
	}
	if status.Records == 0 {
		return status, nil
	}

	var bounds struct {
		Newest int64 `db:"newest"`
		Oldest int64 `db:"oldest"`
	}
	query := fmt.Sprintf("SELECT MAX(observed_at_ns) AS newest, MIN(observed_at_ns) AS oldest FROM %s", recordTable)
	if err := rs.db.Get(&bounds, query); err != nil {
		return status, fmt.Errorf("failed to get observation range: %w", err)
	}
	status.LastObserved = time.Unix(0, bounds.Newest).UTC()
	status.OldestObserved = time.Unix(0, bounds.Oldest).UTC()
	status.TableSizeBytes = tableSizeBytes(rs.db, rs.backend, rs.connStr, sourceRecordsTable, status.Records)
	return status, nil
}
