package fixpoint

import (
	"nullfix/internal/fix"
	"nullfix/internal/location"
)

// Ledger holds the fixes applied during a run. A location in the ledger is
// settled and is never proposed again in the same run.
type Ledger struct {
	order []fix.Fix
	byLoc map[location.Location]int
}

func NewLedger() *Ledger {
	return &Ledger{byLoc: make(map[location.Location]int)}
}

// Add records f. It returns false if f's location is already settled.
func (l *Ledger) Add(f fix.Fix) bool {
	key := f.Location.Key()
	if _, ok := l.byLoc[key]; ok {
		return false
	}
	l.byLoc[key] = len(l.order)
	l.order = append(l.order, f)
	return true
}

func (l *Ledger) Contains(loc location.Location) bool {
	_, ok := l.byLoc[loc.Key()]
	return ok
}

// Get returns the fix applied to loc.
func (l *Ledger) Get(loc location.Location) (fix.Fix, bool) {
	i, ok := l.byLoc[loc.Key()]
	if !ok {
		return fix.Fix{}, false
	}
	return l.order[i], true
}

func (l *Ledger) Len() int { return len(l.order) }

// Fixes returns the settled fixes in the order they were applied.
func (l *Ledger) Fixes() []fix.Fix {
	out := make([]fix.Fix, len(l.order))
	copy(out, l.order)
	return out
}
