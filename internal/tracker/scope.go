package tracker

import (
	"nullfix/internal/location"
	"nullfix/internal/relation"
)

// ScopeProvider contributes regions that raw usage facts do not show, such
// as lambdas capturing a field or anonymous subclasses scoped inside a
// method.
type ScopeProvider interface {
	Scope(loc location.Location) []location.Region
}

// NoScope contributes nothing.
type NoScope struct{}

func (NoScope) Scope(location.Location) []location.Region { return nil }

// ScopeEdge is one row of scope_widening.tsv.
type ScopeEdge struct {
	TargetClass  string
	TargetMember string
	Region       location.Region
	Relation     string // lambda, anonymous, ...
}

var ScopeSchema = relation.Schema[ScopeEdge]{
	Name:    "scope_widening",
	Columns: 5,
	Parse: func(v []string) (ScopeEdge, error) {
		return ScopeEdge{
			TargetClass:  v[0],
			TargetMember: v[1],
			Region:       location.Region{Class: v[2], Member: v[3]},
			Relation:     v[4],
		}, nil
	},
	Key: func(e ScopeEdge) string { return e.TargetClass },
}

// FactScope answers scope queries from scope_widening.tsv.
type FactScope struct {
	store *relation.Store[ScopeEdge]
}

func NewFactScope(store *relation.Store[ScopeEdge]) *FactScope {
	return &FactScope{store: store}
}

func (s *FactScope) Scope(loc location.Location) []location.Region {
	edges := s.store.Find(func(e ScopeEdge) bool {
		if e.TargetClass != loc.Class {
			return false
		}
		if loc.IsField() {
			return loc.HasField(e.TargetMember)
		}
		return e.TargetMember == loc.Member
	}, relation.HashOf(loc.Class))
	out := make([]location.Region, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.Region)
	}
	return out
}
