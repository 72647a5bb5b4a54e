package declaration

import (
	"fmt"
	"strconv"

	"nullfix/internal/location"
	"nullfix/internal/relation"
)

// Method is one row of method_info.tsv. ParentID points at the closest
// overridden super-method, -1 when the method overrides nothing.
type Method struct {
	ID            int
	Class         string
	Signature     string
	ParentID      int
	Params        int
	IsConstructor bool
	Path          string
}

func (m Method) Region() location.Region {
	return location.Region{Class: m.Class, Member: m.Signature}
}

func (m Method) Location() location.Location {
	loc := location.OnMethod(m.Class, m.Signature)
	loc.Path = m.Path
	return loc
}

var MethodSchema = relation.Schema[Method]{
	Name:    "method_info",
	Columns: 7,
	Parse: func(v []string) (Method, error) {
		id, err := strconv.Atoi(v[0])
		if err != nil {
			return Method{}, fmt.Errorf("id column: %w", err)
		}
		parent, err := strconv.Atoi(v[3])
		if err != nil {
			return Method{}, fmt.Errorf("parent column: %w", err)
		}
		params, err := strconv.Atoi(v[4])
		if err != nil {
			return Method{}, fmt.Errorf("params column: %w", err)
		}
		ctor, err := strconv.ParseBool(v[5])
		if err != nil {
			return Method{}, fmt.Errorf("constructor column: %w", err)
		}
		return Method{
			ID:            id,
			Class:         v[1],
			Signature:     v[2],
			ParentID:      parent,
			Params:        params,
			IsConstructor: ctor,
			Path:          v[6],
		}, nil
	},
	Key: func(m Method) string { return m.Class },
}

// MethodTree indexes method declarations by class and by the override
// relation.
type MethodTree struct {
	store    *relation.Store[Method]
	byID     map[int]Method
	children map[int][]Method
}

func NewMethodTree(store *relation.Store[Method]) *MethodTree {
	t := &MethodTree{
		store:    store,
		byID:     make(map[int]Method, store.Len()),
		children: make(map[int][]Method),
	}
	for _, m := range store.All() {
		t.byID[m.ID] = m
		if m.ParentID >= 0 {
			t.children[m.ParentID] = append(t.children[m.ParentID], m)
		}
	}
	return t
}

// ConstructorsOf returns the constructors of class in declaration order.
func (t *MethodTree) ConstructorsOf(class string) []Method {
	return t.store.Find(func(m Method) bool {
		return m.IsConstructor && m.Class == class
	}, relation.HashOf(class))
}

func (t *MethodTree) Find(class, signature string) (Method, bool) {
	found := t.store.Find(func(m Method) bool {
		return m.Class == class && m.Signature == signature
	}, relation.HashOf(class))
	if len(found) == 0 {
		return Method{}, false
	}
	return found[0], true
}

// Children returns the methods directly overriding m.
func (t *MethodTree) Children(m Method) []Method {
	return t.children[m.ID]
}

// Parent returns the closest super-method overridden by m.
func (t *MethodTree) Parent(m Method) (Method, bool) {
	if m.ParentID < 0 {
		return Method{}, false
	}
	p, ok := t.byID[m.ParentID]
	return p, ok
}

// Overriders returns every method overriding m, directly or transitively,
// in breadth-first order.
func (t *MethodTree) Overriders(m Method) []Method {
	var out []Method
	seen := map[int]bool{m.ID: true}
	queue := []Method{m}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range t.children[cur.ID] {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}
