// Package facts loads the fact files one checker pass emits for a module and
// wires them into the per-pass stores, trackers and call graph.
package facts

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"nullfix/internal/callgraph"
	"nullfix/internal/declaration"
	"nullfix/internal/fix"
	"nullfix/internal/impact"
	"nullfix/internal/location"
	"nullfix/internal/relation"
	"nullfix/internal/tracker"

	"golang.org/x/sync/errgroup"
)

// Well-known fact file names inside a module's output directory.
const (
	FieldGraphFile        = "field_graph.tsv"
	CallGraphFile         = "call_graph.tsv"
	FieldDeclarationsFile = "field_declarations.tsv"
	MethodInfoFile        = "method_info.tsv"
	ScopeWideningFile     = "scope_widening.tsv"
	FixesFile             = "fixes.json"
)

// ParseError aborts a pass: a fact set that failed to load cannot be
// partially trusted.
type ParseError struct {
	Dir string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to load facts from %s: %v", e.Dir, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Snapshot holds everything derived from one pass's facts. It is owned by a
// single pass of a single module and must not be reused afterwards.
type Snapshot struct {
	Dir      string
	Fixes    []fix.Fix
	Fields   *declaration.FieldStore
	Methods  *declaration.MethodTree
	Trackers tracker.Set
	Graph    *callgraph.Graph
	Analyzer *impact.Analyzer
}

// Loader builds Snapshots from a module output directory.
type Loader struct {
	// Required lists fact file names whose absence is fatal. Any other
	// missing file means "no facts of that kind".
	Required        []string
	TransitiveDepth int
	Parallelism     int
}

func (l Loader) required(name string) bool {
	return slices.Contains(l.Required, name)
}

func load[T any](l Loader, dir, name string, schema relation.Schema[T], out **relation.Store[T]) error {
	s, err := relation.Load(filepath.Join(dir, name), schema)
	if err != nil {
		if relation.IsMissing(err) && !l.required(name) {
			*out = relation.Empty(schema)
			return nil
		}
		return err
	}
	*out = s
	return nil
}

// Load reads every fact file of dir concurrently and builds fresh stores.
func (l Loader) Load(ctx context.Context, dir string) (*Snapshot, error) {
	var (
		fieldGraph *relation.Store[tracker.Node]
		calls      *relation.Store[callgraph.Call]
		fieldDecls *relation.Store[declaration.FieldDeclaration]
		methods    *relation.Store[declaration.Method]
		scope      *relation.Store[tracker.ScopeEdge]
		fixes      []fix.Fix
	)

	var g errgroup.Group
	g.Go(func() error { return load(l, dir, FieldGraphFile, tracker.NodeSchema, &fieldGraph) })
	g.Go(func() error { return load(l, dir, CallGraphFile, callgraph.CallSchema, &calls) })
	g.Go(func() error { return load(l, dir, FieldDeclarationsFile, declaration.FieldSchema, &fieldDecls) })
	g.Go(func() error { return load(l, dir, MethodInfoFile, declaration.MethodSchema, &methods) })
	g.Go(func() error { return load(l, dir, ScopeWideningFile, tracker.ScopeSchema, &scope) })
	g.Go(func() error {
		f, err := fix.ReadFile(filepath.Join(dir, FixesFile))
		if err != nil {
			if relation.IsMissing(err) && !l.required(FixesFile) {
				return nil
			}
			return err
		}
		fixes = f
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, &ParseError{Dir: dir, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fieldStore := declaration.NewFieldStore(fieldDecls)
	tree := declaration.NewMethodTree(methods)
	scopes := tracker.NewFactScope(scope)
	set := tracker.Set{
		Field:     tracker.NewFieldTracker(fieldGraph, fieldStore, tree, scopes),
		Method:    tracker.NewMethodTracker(callNodes(calls), scopes),
		Parameter: tracker.NewParameterTracker(tree, scopes),
	}
	graph := callgraph.NewGraph(calls)

	return &Snapshot{
		Dir:      dir,
		Fixes:    fixes,
		Fields:   fieldStore,
		Methods:  tree,
		Trackers: set,
		Graph:    graph,
		Analyzer: impact.NewAnalyzer(set, graph, l.TransitiveDepth, l.Parallelism),
	}, nil
}

// callNodes reuses the parsed call graph as the method tracker's caller
// regions.
func callNodes(calls *relation.Store[callgraph.Call]) *relation.Store[tracker.Node] {
	all := calls.All()
	nodes := make([]tracker.Node, 0, len(all))
	for _, c := range all {
		nodes = append(nodes, tracker.Node{
			Region:       location.Region{Class: c.CallerClass, Member: c.CallerMethod},
			CalleeMember: c.CalleeMethod,
			CalleeClass:  c.CalleeClass,
		})
	}
	return relation.FromRecords(tracker.NodeSchema, nodes)
}
