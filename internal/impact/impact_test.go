package impact

import (
	"context"
	"testing"

	"nullfix/internal/callgraph"
	"nullfix/internal/declaration"
	"nullfix/internal/fix"
	"nullfix/internal/location"
	"nullfix/internal/relation"
	"nullfix/internal/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func region(class, member string) location.Region {
	return location.Region{Class: class, Member: member}
}

func testAnalyzer(transitiveDepth int) *Analyzer {
	methods := declaration.NewMethodTree(relation.FromRecords(declaration.MethodSchema, []declaration.Method{
		{ID: 1, Class: "Foo", Signature: "<init>()", ParentID: -1, IsConstructor: true},
	}))
	fields := declaration.NewFieldStore(relation.FromRecords(declaration.FieldSchema, []declaration.FieldDeclaration{
		{Class: "Foo", Field: "count", Initialized: false},
	}))
	usages := relation.FromRecords(tracker.NodeSchema, []tracker.Node{
		{Region: region("Baz", "qux()"), CalleeMember: "count", CalleeClass: "Foo"},
	})
	calls := []callgraph.Call{
		{CallerClass: "Baz", CallerMethod: "qux()", CalleeMethod: "get()", CalleeClass: "Foo"},
		{CallerClass: "Main", CallerMethod: "main()", CalleeMethod: "qux()", CalleeClass: "Baz"},
	}
	callNodes := make([]tracker.Node, 0, len(calls))
	for _, c := range calls {
		callNodes = append(callNodes, tracker.Node{
			Region:       region(c.CallerClass, c.CallerMethod),
			CalleeMember: c.CalleeMethod,
			CalleeClass:  c.CalleeClass,
		})
	}

	set := tracker.Set{
		Field:  tracker.NewFieldTracker(usages, fields, methods, nil),
		Method: tracker.NewMethodTracker(relation.FromRecords(tracker.NodeSchema, callNodes), nil),
	}
	graph := callgraph.NewGraph(relation.FromRecords(callgraph.CallSchema, calls))
	return NewAnalyzer(set, graph, transitiveDepth, 4)
}

func TestAnalyzer_BlastRadius(t *testing.T) {
	t.Run("field", func(t *testing.T) {
		r := testAnalyzer(0).BlastRadius(fix.Fix{Location: location.OnField("Foo", "count"), Annotation: fix.Nullable})
		assert.True(t, r.Tracked)
		assert.Equal(t, location.NewRegionSet(region("Baz", "qux()"), region("Foo", "<init>()")), r.Direct)
		assert.Empty(t, r.Indirect)
	})

	t.Run("method without transitive callers", func(t *testing.T) {
		r := testAnalyzer(0).BlastRadius(fix.Fix{Location: location.OnMethod("Foo", "get()"), Annotation: fix.Nullable})
		assert.Equal(t, location.NewRegionSet(region("Foo", "get()"), region("Baz", "qux()")), r.Direct)
		assert.Empty(t, r.Indirect)
	})

	t.Run("method with transitive callers", func(t *testing.T) {
		r := testAnalyzer(1).BlastRadius(fix.Fix{Location: location.OnMethod("Foo", "get()"), Annotation: fix.Nullable})
		assert.Equal(t, location.NewRegionSet(region("Main", "main()")), r.Indirect)
		assert.Len(t, r.All(), 3)
	})

	t.Run("untracked kind", func(t *testing.T) {
		r := testAnalyzer(0).BlastRadius(fix.Fix{Location: location.OnParameter("Foo", "get()", 0), Annotation: fix.Nullable})
		assert.False(t, r.Tracked)
		assert.Empty(t, r.All())
	})
}

func TestAnalyzer_AnalyzeAll(t *testing.T) {
	a := testAnalyzer(1)
	fixes := []fix.Fix{
		{Location: location.OnField("Foo", "count"), Annotation: fix.Nullable},
		{Location: location.OnMethod("Foo", "get()"), Annotation: fix.Nullable},
		{Location: location.OnParameter("Foo", "get()", 0), Annotation: fix.Nullable},
	}

	reports, err := a.AnalyzeAll(context.Background(), fixes)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	for _, f := range fixes {
		assert.Equal(t, a.BlastRadius(f), reports[f.Key()])
	}
}

func TestAnalyzer_AnalyzeAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testAnalyzer(0).AnalyzeAll(ctx, []fix.Fix{
		{Location: location.OnField("Foo", "count"), Annotation: fix.Nullable},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
