package declaration

import (
	"fmt"
	"strconv"

	"nullfix/internal/location"
	"nullfix/internal/relation"
)

// FieldDeclaration is one row of field_declarations.tsv.
type FieldDeclaration struct {
	Class       string
	Field       string
	Initialized bool
	Path        string
}

var FieldSchema = relation.Schema[FieldDeclaration]{
	Name:    "field_declarations",
	Columns: 4,
	Parse: func(v []string) (FieldDeclaration, error) {
		initialized, err := strconv.ParseBool(v[2])
		if err != nil {
			return FieldDeclaration{}, fmt.Errorf("initialized column: %w", err)
		}
		return FieldDeclaration{Class: v[0], Field: v[1], Initialized: initialized, Path: v[3]}, nil
	},
	Key: func(d FieldDeclaration) string { return d.Class },
}

// FieldStore answers questions about declared fields.
type FieldStore struct {
	store *relation.Store[FieldDeclaration]
}

func NewFieldStore(store *relation.Store[FieldDeclaration]) *FieldStore {
	return &FieldStore{store: store}
}

// IsUninitialized reports whether any variable of the field location is
// declared without an initializer. Fields with no declaration facts count
// as initialized.
func (s *FieldStore) IsUninitialized(loc location.Location) bool {
	if !loc.IsField() {
		return false
	}
	decls := s.store.Find(func(d FieldDeclaration) bool {
		return d.Class == loc.Class && loc.HasField(d.Field)
	}, relation.HashOf(loc.Class))
	for _, d := range decls {
		if !d.Initialized {
			return true
		}
	}
	return false
}

// FieldsOf lists the declared fields of class in declaration order.
func (s *FieldStore) FieldsOf(class string) []string {
	decls := s.store.Find(func(d FieldDeclaration) bool {
		return d.Class == class
	}, relation.HashOf(class))
	out := make([]string, 0, len(decls))
	for _, d := range decls {
		out = append(out, d.Field)
	}
	return out
}
