package index

import (
	"errors"
	"fmt"
)

const (
	typeString         = "Edm.String"
	typeDateTimeOffset = "Edm.DateTimeOffset"

	// SemanticConfigName is the semantic configuration every index carries.
	SemanticConfigName = "default"
)

var ErrInvalidSchema = errors.New("invalid index schema")

// Field describes a single index field with its capability flags. The flags
// are part of the index contract: changing them changes query behavior, so
// every flag is set explicitly rather than left to service defaults.
type Field struct {
	Name        string
	Type        string
	Key         bool
	Searchable  bool
	Filterable  bool
	Retrievable bool
	Sortable    bool
	Facetable   bool
}

// Schema is the logical definition of a search index. The adapter owns the
// translation to the service's wire format.
type Schema struct {
	Fields []Field

	// SemanticTitleField is the field the semantic configuration ranks as
	// the document title. Content fields are always title and content.
	SemanticTitleField string
}

// DefaultSchema returns the schema every pipeline index is created with.
func DefaultSchema(semanticTitleField string) Schema {
	if semanticTitleField == "" {
		semanticTitleField = "title"
	}
	return Schema{
		SemanticTitleField: semanticTitleField,
		Fields: []Field{
			{Name: "id", Type: typeString, Key: true, Searchable: true, Filterable: true, Retrievable: true, Sortable: true, Facetable: true},
			{Name: "doc_type", Type: typeString, Searchable: true, Filterable: true, Retrievable: true},
			{Name: "page_title", Type: typeString, Searchable: true, Filterable: true, Retrievable: true, Sortable: true},
			{Name: "title", Type: typeString, Searchable: true, Filterable: true, Retrievable: true, Sortable: true, Facetable: true},
			{Name: "content", Type: typeString, Searchable: true, Filterable: true, Retrievable: true},
			{Name: "file_name", Type: typeString, Searchable: true, Filterable: true, Retrievable: true, Sortable: true, Facetable: true},
			{Name: "upload_date", Type: typeDateTimeOffset, Filterable: true, Retrievable: true, Sortable: true, Facetable: true},
		},
	}
}

// Validate checks the schema is well formed: exactly one key field and a
// semantic title field that actually exists.
func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: no fields", ErrInvalidSchema)
	}
	keys := 0
	hasTitle := false
	for _, f := range s.Fields {
		if f.Name == "" || f.Type == "" {
			return fmt.Errorf("%w: field missing name or type", ErrInvalidSchema)
		}
		if f.Key {
			keys++
		}
		if f.Name == s.SemanticTitleField {
			hasTitle = true
		}
	}
	if keys != 1 {
		return fmt.Errorf("%w: expected exactly one key field, got %d", ErrInvalidSchema, keys)
	}
	if !hasTitle {
		return fmt.Errorf("%w: semantic title field %q not in schema", ErrInvalidSchema, s.SemanticTitleField)
	}
	return nil
}
