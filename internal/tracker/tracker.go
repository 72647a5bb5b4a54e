// Package tracker computes the regions whose behavior could change when a
// location receives an annotation.
//
// The trackers form a closed set dispatched on location kind by Set. Each
// variant answers Regions with ok=false when it does not handle the kind,
// and with ok=true and a possibly empty set otherwise, so "untracked" and
// "no observable effect" stay distinguishable downstream.
package tracker

import (
	"nullfix/internal/declaration"
	"nullfix/internal/location"
	"nullfix/internal/relation"
)

// RegionTracker is the capability shared by every tracker variant.
type RegionTracker interface {
	Regions(loc location.Location) (location.RegionSet, bool)
}

// FieldTracker tracks field locations.
type FieldTracker struct {
	usages  *relation.Store[Node]
	fields  *declaration.FieldStore
	methods *declaration.MethodTree
	scope   ScopeProvider
}

func NewFieldTracker(usages *relation.Store[Node], fields *declaration.FieldStore, methods *declaration.MethodTree, scope ScopeProvider) *FieldTracker {
	if scope == nil {
		scope = NoScope{}
	}
	return &FieldTracker{usages: usages, fields: fields, methods: methods, scope: scope}
}

func (t *FieldTracker) Regions(loc location.Location) (location.RegionSet, bool) {
	if !loc.IsField() {
		return nil, false
	}
	// Regions where the field is read or assigned.
	ans := location.NewRegionSet()
	for _, n := range t.usages.Find(func(n Node) bool {
		return n.CalleeClass == loc.Class && loc.HasField(n.CalleeMember)
	}, relation.HashOf(loc.Class)) {
		ans.Add(n.Region)
	}
	ans.AddAll(t.scope.Scope(loc)...)
	// An uninitialized field gets its value from whatever the constructors
	// do, whether or not they mention it.
	if t.fields.IsUninitialized(loc) {
		for _, ctor := range t.methods.ConstructorsOf(loc.Class) {
			ans.Add(ctor.Region())
		}
	}
	return ans, true
}

// MethodTracker tracks method return locations.
type MethodTracker struct {
	calls *relation.Store[Node]
	scope ScopeProvider
}

func NewMethodTracker(calls *relation.Store[Node], scope ScopeProvider) *MethodTracker {
	if scope == nil {
		scope = NoScope{}
	}
	return &MethodTracker{calls: calls, scope: scope}
}

func (t *MethodTracker) Regions(loc location.Location) (location.RegionSet, bool) {
	if !loc.IsMethod() {
		return nil, false
	}
	ans := location.NewRegionSet(loc.Region())
	for _, n := range t.calls.Find(func(n Node) bool {
		return n.CalleeClass == loc.Class && n.CalleeMember == loc.Member
	}, relation.HashOf(loc.Class)) {
		ans.Add(n.Region)
	}
	ans.AddAll(t.scope.Scope(loc)...)
	return ans, true
}

// ParameterTracker tracks parameter locations. Overriding methods must keep
// a compatible parameter contract, so their bodies are affected too.
type ParameterTracker struct {
	methods *declaration.MethodTree
	scope   ScopeProvider
}

func NewParameterTracker(methods *declaration.MethodTree, scope ScopeProvider) *ParameterTracker {
	if scope == nil {
		scope = NoScope{}
	}
	return &ParameterTracker{methods: methods, scope: scope}
}

func (t *ParameterTracker) Regions(loc location.Location) (location.RegionSet, bool) {
	if !loc.IsParameter() {
		return nil, false
	}
	ans := location.NewRegionSet(loc.Region())
	if m, ok := t.methods.Find(loc.Class, loc.Member); ok {
		for _, o := range t.methods.Overriders(m) {
			ans.Add(o.Region())
		}
	}
	ans.AddAll(t.scope.Scope(loc)...)
	return ans, true
}

// Set dispatches a location to the tracker for its kind. Nil members leave
// that kind untracked.
type Set struct {
	Field     *FieldTracker
	Method    *MethodTracker
	Parameter *ParameterTracker
}

func (s Set) Regions(loc location.Location) (location.RegionSet, bool) {
	switch loc.Kind {
	case location.KindField:
		if s.Field != nil {
			return s.Field.Regions(loc)
		}
	case location.KindMethod:
		if s.Method != nil {
			return s.Method.Regions(loc)
		}
	case location.KindParameter:
		if s.Parameter != nil {
			return s.Parameter.Regions(loc)
		}
	}
	return nil, false
}
