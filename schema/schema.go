// Package schema has the models, constants and sentinel errors shared by all parts of reposcout.
package schema

import "time"

// Repository is a repository identity together with the category it is judged within.
type Repository struct {
	ID       string   `yaml:"id" json:"id" db:"repository_id"`
	Category Category `yaml:"category" json:"category" db:"category"`
}

// SourceRecord is one immutable observation of a repository made by a single source.
// Several records may exist per (repository, source) over time.
type SourceRecord struct {
	RepositoryID string                   `yaml:"repository" json:"repository"`
	Source       SourceID                 `yaml:"source" json:"source"`
	ObservedAt   time.Time                `yaml:"observed_at" json:"observed_at"`
	Fields       map[FieldName]FieldValue `yaml:"fields" json:"fields"`
}

// RepositoryInput bundles a repository with every record known for it.
type RepositoryInput struct {
	Repository
	Records []SourceRecord
}

// Batch is the on-disk format accepted by ingest and run --input.
type Batch struct {
	Repositories []Repository  `yaml:"repositories" json:"repositories"`
	Records      []SourceRecord `yaml:"records" json:"records"`
}

// Inputs groups the records of a batch by repository, in the order repositories are declared.
// Records for undeclared repositories are returned separately.
func (b Batch) Inputs() (inputs []RepositoryInput, orphans []SourceRecord) {
	index := make(map[string]int, len(b.Repositories))
	for _, repo := range b.Repositories {
		if _, seen := index[repo.ID]; seen {
			continue
		}
		index[repo.ID] = len(inputs)
		inputs = append(inputs, RepositoryInput{Repository: repo})
	}
	for _, rec := range b.Records {
		i, ok := index[rec.RepositoryID]
		if !ok {
			orphans = append(orphans, rec)
			continue
		}
		inputs[i].Records = append(inputs[i].Records, rec)
	}
	return inputs, orphans
}
