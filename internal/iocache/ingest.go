package iocache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/reposcout/schema"
	"gopkg.in/yaml.v3"
)

// LoadBatchFiles reads and concatenates the batches of every file, in order.
func LoadBatchFiles(paths []string) (schema.Batch, error) {
	var batch schema.Batch
	for _, path := range paths {
		b, err := LoadBatchFile(path)
		if err != nil {
			return schema.Batch{}, err
		}
		batch.Repositories = append(batch.Repositories, b.Repositories...)
		batch.Records = append(batch.Records, b.Records...)
	}
	return batch, nil
}

// LoadBatchFile reads one batch file. Files ending in .json are decoded as JSON, anything else as YAML.
func LoadBatchFile(path string) (schema.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Batch{}, fmt.Errorf("failed to read batch file: %w", err)
	}

	var batch schema.Batch
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = decodeJSONBatch(data, &batch)
	} else {
		err = decodeYAMLBatch(data, &batch)
	}
	if err != nil {
		return schema.Batch{}, fmt.Errorf("failed to decode batch file %s: %w", path, err)
	}
	if err := validateBatch(batch); err != nil {
		return schema.Batch{}, fmt.Errorf("invalid batch file %s: %w", path, err)
	}
	return batch, nil
}

func decodeYAMLBatch(data []byte, batch *schema.Batch) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(batch); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeJSONBatch(data []byte, batch *schema.Batch) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(batch)
}

func validSource(source schema.SourceID) bool {
	_, ok := schema.ValidSources[source]
	return ok
}

// validateBatch rejects records that can never be attributed or ordered.
// Unknown categories and undeclared repositories are reported by the pipeline instead.
func validateBatch(batch schema.Batch) error {
	for i, repo := range batch.Repositories {
		if strings.TrimSpace(repo.ID) == "" {
			return fmt.Errorf("repository %d has no id: %w", i, schema.ErrInvalidConfig)
		}
	}
	for i, rec := range batch.Records {
		switch {
		case strings.TrimSpace(rec.RepositoryID) == "":
			return fmt.Errorf("record %d has no repository: %w", i, schema.ErrInvalidConfig)
		case rec.Source == "":
			return fmt.Errorf("record %d of %s has no source: %w", i, rec.RepositoryID, schema.ErrInvalidConfig)
		case !validSource(rec.Source):
			return fmt.Errorf("record %d of %s has unknown source '%s': %w", i, rec.RepositoryID, rec.Source, schema.ErrInvalidConfig)
		case rec.ObservedAt.IsZero():
			return fmt.Errorf("record %d of %s has no observed_at: %w", i, rec.RepositoryID, schema.ErrInvalidConfig)
		}
	}
	return nil
}
