package location

import "sort"

// Region is a named code scope (method body, constructor, field initializer)
// in which the effect of an annotation could be observed.
type Region struct {
	Class  string `json:"class"`
	Member string `json:"member"`
}

func (r Region) String() string {
	return r.Class + "." + r.Member
}

// RegionSet is an unordered set of regions. The zero value is not usable;
// create sets with NewRegionSet.
type RegionSet map[Region]struct{}

func NewRegionSet(regions ...Region) RegionSet {
	s := make(RegionSet, len(regions))
	s.AddAll(regions...)
	return s
}

func (s RegionSet) Add(r Region) {
	s[r] = struct{}{}
}

func (s RegionSet) AddAll(regions ...Region) {
	for _, r := range regions {
		s[r] = struct{}{}
	}
}

func (s RegionSet) Contains(r Region) bool {
	_, ok := s[r]
	return ok
}

// Union returns a new set holding the regions of both sets.
func (s RegionSet) Union(other RegionSet) RegionSet {
	out := make(RegionSet, len(s)+len(other))
	for r := range s {
		out[r] = struct{}{}
	}
	for r := range other {
		out[r] = struct{}{}
	}
	return out
}

// Overlaps reports whether the two sets share at least one region.
func (s RegionSet) Overlaps(other RegionSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for r := range small {
		if _, ok := large[r]; ok {
			return true
		}
	}
	return false
}

// Sorted returns the regions ordered by class, then member.
func (s RegionSet) Sorted() []Region {
	out := make([]Region, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Class == out[j].Class {
			return out[i].Member < out[j].Member
		}
		return out[i].Class < out[j].Class
	})
	return out
}
