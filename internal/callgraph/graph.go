package callgraph

import (
	"errors"

	"nullfix/internal/fix"
	"nullfix/internal/location"
	"nullfix/internal/relation"
)

// Call is one row of call_graph.tsv: CallerClass.CallerMethod calls
// CalleeClass.CalleeMethod.
type Call struct {
	CallerClass  string
	CallerMethod string
	CalleeMethod string
	CalleeClass  string
}

var CallSchema = relation.Schema[Call]{
	Name:    "call_graph",
	Columns: 4,
	Parse: func(v []string) (Call, error) {
		if v[2] == "" || v[3] == "" {
			return Call{}, errors.New("empty callee")
		}
		return Call{CallerClass: v[0], CallerMethod: v[1], CalleeMethod: v[2], CalleeClass: v[3]}, nil
	},
	Key: func(c Call) string { return c.CalleeClass },
}

// Usage is a call site of a method: the caller member and its class.
type Usage struct {
	CallerMember string
	CallerClass  string
}

func (u Usage) Region() location.Region {
	return location.Region{Class: u.CallerClass, Member: u.CallerMember}
}

// Graph is the caller relation of the analyzed module, bucketed by callee
// class.
type Graph struct {
	calls *relation.Store[Call]
}

func NewGraph(calls *relation.Store[Call]) *Graph {
	return &Graph{calls: calls}
}

func (g *Graph) callsTo(method, class string) []Call {
	return g.calls.Find(func(c Call) bool {
		return c.CalleeClass == class && c.CalleeMethod == method
	}, relation.HashOf(class))
}

// UserClassesOfMethod returns the class of every caller of method, one entry
// per call record.
func (g *Graph) UserClassesOfMethod(method, class string) []string {
	calls := g.callsTo(method, class)
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.CallerClass)
	}
	return out
}

// Usage returns the call sites of the method targeted by f.
func (g *Graph) Usage(f fix.Fix) []Usage {
	calls := g.callsTo(f.Location.Member, f.Location.Class)
	out := make([]Usage, 0, len(calls))
	for _, c := range calls {
		out = append(out, Usage{CallerMember: c.CallerMethod, CallerClass: c.CallerClass})
	}
	return out
}

// TransitiveUsage walks callers of callers breadth-first. depth counts extra
// hops beyond the direct callers, so depth <= 0 returns direct callers only.
// Each caller appears once, in level order, then file order.
func (g *Graph) TransitiveUsage(method, class string, depth int) []Usage {
	if depth < 0 {
		depth = 0
	}
	start := Usage{CallerMember: method, CallerClass: class}
	seen := map[Usage]bool{start: true}
	var out []Usage

	level := []Usage{start}
	for hop := 0; hop <= depth && len(level) > 0; hop++ {
		var next []Usage
		for _, cur := range level {
			for _, c := range g.callsTo(cur.CallerMember, cur.CallerClass) {
				u := Usage{CallerMember: c.CallerMethod, CallerClass: c.CallerClass}
				if seen[u] {
					continue
				}
				seen[u] = true
				out = append(out, u)
				next = append(next, u)
			}
		}
		level = next
	}
	return out
}

func (g *Graph) Len() int { return g.calls.Len() }
