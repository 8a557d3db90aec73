package schema

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CategoryTitle formats "rust-libraries" as "Rust Libraries".
func CategoryTitle(c Category) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(c), "-", " "))
}

// SortFieldNames sorts field names in place.
func SortFieldNames(fields []FieldName) {
	slices.Sort(fields)
}

// SortedFieldNames returns the keys of a field map in sorted order.
func SortedFieldNames[V any](m map[FieldName]V) []FieldName {
	out := make([]FieldName, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	SortFieldNames(out)
	return out
}

// ParseCategory validates a raw category name.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := ValidCategories[c]
	return c, ok
}
