package patcher

import "nullfix/internal/fix"

// WorkList is the set of fixes rewritten in one pass over a single file.
type WorkList struct {
	Path  string    `json:"path"`
	Fixes []fix.Fix `json:"fixes"`
}

// BuildWorkLists groups fixes by source file. Files keep the order in which
// they first appear and each file keeps the order of its fixes.
func BuildWorkLists(fixes []fix.Fix) []WorkList {
	var lists []WorkList
	byPath := make(map[string]int)
	for _, f := range fixes {
		i, ok := byPath[f.Location.Path]
		if !ok {
			i = len(lists)
			byPath[f.Location.Path] = i
			lists = append(lists, WorkList{Path: f.Location.Path})
		}
		lists[i].Fixes = append(lists[i].Fixes, f)
	}
	return lists
}
