package policy

import (
	"testing"

	"nullfix/internal/fix"
	"nullfix/internal/location"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func radius(members ...string) location.RegionSet {
	s := location.NewRegionSet()
	for _, m := range members {
		s.Add(location.Region{Class: "Foo", Member: m})
	}
	return s
}

func TestConflictPolicy_Decide(t *testing.T) {
	nullableCount := fix.Fix{Location: location.OnField("Foo", "count"), Annotation: fix.Nullable}
	nonnullCount := fix.Fix{Location: location.OnField("Foo", "count"), Annotation: fix.Nonnull}
	overlapping := fix.Fix{Location: location.OnMethod("Foo", "get()"), Annotation: fix.Nullable}
	disjoint := fix.Fix{Location: location.OnMethod("Foo", "other()"), Annotation: fix.Nullable}

	tests := []struct {
		name       string
		candidates []Candidate
		accepted   []fix.Fix
		reasons    map[Reason]int
	}{
		{
			name: "conflicting pair is rejected",
			candidates: []Candidate{
				{Fix: nullableCount, Radius: radius("a()")},
				{Fix: nonnullCount, Radius: radius("a()")},
			},
			accepted: nil,
			reasons:  map[Reason]int{ReasonConflict: 2},
		},
		{
			name: "overlap with a conflicting radius is rejected",
			candidates: []Candidate{
				{Fix: nullableCount, Radius: radius("a()")},
				{Fix: nonnullCount, Radius: radius("b()")},
				{Fix: overlapping, Radius: radius("get()", "b()")},
				{Fix: disjoint, Radius: radius("other()")},
			},
			accepted: []fix.Fix{disjoint},
			reasons:  map[Reason]int{ReasonConflict: 2, ReasonOverlap: 1},
		},
		{
			name: "independent fixes are accepted in order",
			candidates: []Candidate{
				{Fix: overlapping, Radius: radius("get()", "a()")},
				{Fix: nullableCount, Radius: radius("a()")},
				{Fix: disjoint, Radius: radius("other()")},
			},
			accepted: []fix.Fix{overlapping, nullableCount, disjoint},
			reasons:  map[Reason]int{},
		},
		{
			name: "duplicates collapse",
			candidates: []Candidate{
				{Fix: disjoint, Radius: radius("other()")},
				{Fix: disjoint, Radius: radius("other()")},
			},
			accepted: []fix.Fix{disjoint},
			reasons:  map[Reason]int{ReasonDuplicate: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ConflictPolicy{Scope: ScopeLocation}.Decide(tt.candidates)

			assert.Equal(t, tt.accepted, d.Accepted)
			counts := map[Reason]int{}
			for _, r := range d.Rejected {
				counts[r.Reason]++
			}
			assert.Equal(t, tt.reasons, counts)
		})
	}
}

func TestConflictPolicy_MemberScope(t *testing.T) {
	ret := fix.Fix{Location: location.OnMethod("Foo", "get(Object)"), Annotation: fix.Nullable}
	param := fix.Fix{Location: location.OnParameter("Foo", "get(Object)", 0), Annotation: fix.Nonnull}
	candidates := []Candidate{
		{Fix: ret, Radius: radius("get(Object)")},
		{Fix: param, Radius: radius("get(Object)")},
	}

	byLocation := ConflictPolicy{Scope: ScopeLocation}.Decide(candidates)
	assert.Len(t, byLocation.Accepted, 2)

	byMember := ConflictPolicy{Scope: ScopeMember}.Decide(candidates)
	assert.Empty(t, byMember.Accepted)
	require.Len(t, byMember.Rejected, 2)
	assert.Equal(t, ReasonConflict, byMember.Rejected[0].Reason)
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeLocation, s)

	s, err = ParseScope("member")
	require.NoError(t, err)
	assert.Equal(t, ScopeMember, s)

	_, err = ParseScope("file")
	assert.Error(t, err)
}
