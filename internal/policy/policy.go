// Package policy decides which candidate fixes of a pass may be applied
// together.
package policy

import (
	"fmt"

	"nullfix/internal/fix"
	"nullfix/internal/location"
)

type Reason string

const (
	// ReasonConflict: another fix proposes a different annotation for the
	// same target in this pass.
	ReasonConflict Reason = "conflict"
	// ReasonOverlap: the blast radius touches a conflicting fix's radius.
	ReasonOverlap Reason = "overlap"
	// ReasonDuplicate: an identical fix appears earlier in the batch.
	ReasonDuplicate Reason = "duplicate"
)

// Candidate is a fix together with its blast radius.
type Candidate struct {
	Fix    fix.Fix
	Radius location.RegionSet
}

type Rejection struct {
	Fix    fix.Fix
	Reason Reason
}

type Decision struct {
	Accepted []fix.Fix
	Rejected []Rejection
}

type Policy interface {
	Decide(candidates []Candidate) Decision
}

// Scope selects what "the same target" means when looking for conflicts.
type Scope string

const (
	// ScopeLocation: fixes conflict only on the identical location.
	ScopeLocation Scope = "location"
	// ScopeMember: fixes conflict on the same class member, so a method's
	// return and its parameters are one target.
	ScopeMember Scope = "member"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeLocation, "":
		return ScopeLocation, nil
	case ScopeMember:
		return ScopeMember, nil
	}
	return "", fmt.Errorf("unknown conflict scope %q", s)
}

// ConflictPolicy rejects fixes that disagree on the same target, then every
// fix whose radius overlaps a rejected fix's radius. The rest are accepted
// in input order.
type ConflictPolicy struct {
	Scope Scope
}

func (p ConflictPolicy) target(f fix.Fix) location.Location {
	loc := f.Location.Key()
	if p.Scope == ScopeMember {
		loc.Kind = ""
		loc.Index = 0
	}
	return loc
}

func (p ConflictPolicy) Decide(candidates []Candidate) Decision {
	var d Decision

	unique := make([]Candidate, 0, len(candidates))
	seen := make(map[fix.Key]bool, len(candidates))
	for _, c := range candidates {
		if seen[c.Fix.Key()] {
			d.Rejected = append(d.Rejected, Rejection{Fix: c.Fix, Reason: ReasonDuplicate})
			continue
		}
		seen[c.Fix.Key()] = true
		unique = append(unique, c)
	}

	annotations := make(map[location.Location]map[fix.Annotation]bool)
	for _, c := range unique {
		t := p.target(c.Fix)
		if annotations[t] == nil {
			annotations[t] = make(map[fix.Annotation]bool)
		}
		annotations[t][c.Fix.Annotation] = true
	}

	rejectedRadius := location.NewRegionSet()
	var remaining []Candidate
	for _, c := range unique {
		if len(annotations[p.target(c.Fix)]) > 1 {
			d.Rejected = append(d.Rejected, Rejection{Fix: c.Fix, Reason: ReasonConflict})
			for r := range c.Radius {
				rejectedRadius.Add(r)
			}
			continue
		}
		remaining = append(remaining, c)
	}

	for _, c := range remaining {
		if c.Radius.Overlaps(rejectedRadius) {
			d.Rejected = append(d.Rejected, Rejection{Fix: c.Fix, Reason: ReasonOverlap})
			continue
		}
		d.Accepted = append(d.Accepted, c.Fix)
	}
	return d
}
