package patcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"nullfix/internal/fix"
	"nullfix/internal/location"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixAt(path, class, member string) fix.Fix {
	loc := location.OnMethod(class, member)
	loc.Path = path
	return fix.Fix{Location: loc, Annotation: fix.Nullable}
}

func TestBuildWorkLists(t *testing.T) {
	a1 := fixAt("A.java", "A", "a1()")
	b1 := fixAt("B.java", "B", "b1()")
	a2 := fixAt("A.java", "A", "a2()")
	c1 := fixAt("C.java", "C", "c1()")

	lists := BuildWorkLists([]fix.Fix{a1, b1, a2, c1})

	require.Len(t, lists, 3)
	assert.Equal(t, "A.java", lists[0].Path)
	assert.Equal(t, []fix.Fix{a1, a2}, lists[0].Fixes)
	assert.Equal(t, "B.java", lists[1].Path)
	assert.Equal(t, []fix.Fix{b1}, lists[1].Fixes)
	assert.Equal(t, "C.java", lists[2].Path)

	assert.Empty(t, BuildWorkLists(nil))
}

func TestExec_OneInvocationPerFile(t *testing.T) {
	dir := t.TempDir()
	p := &Exec{
		Command:     `cat >> calls.ndjson; echo >> calls.ndjson`,
		Dir:         dir,
		Annotations: Annotations{Nullable: "javax.annotation.Nullable", Nonnull: "javax.annotation.Nonnull"},
	}
	fixes := []fix.Fix{
		fixAt("A.java", "A", "a1()"),
		fixAt("B.java", "B", "b1()"),
		fixAt("A.java", "A", "a2()"),
	}

	results := p.Apply(context.Background(), fixes, true)
	require.Len(t, results, 3)
	assert.Empty(t, Failed(results))

	f, err := os.Open(filepath.Join(dir, "calls.ndjson"))
	require.NoError(t, err)
	defer f.Close()

	var reqs []request
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var req request
		require.NoError(t, json.Unmarshal(sc.Bytes(), &req))
		reqs = append(reqs, req)
	}
	require.Len(t, reqs, 2)
	assert.Equal(t, "A.java", reqs[0].Path)
	assert.Len(t, reqs[0].Fixes, 2)
	assert.True(t, reqs[0].KeepStyle)
	assert.Equal(t, "javax.annotation.Nullable", reqs[0].Annotations.Nullable)
	assert.Equal(t, "B.java", reqs[1].Path)
}

func TestExec_FailureFailsWholeWorkList(t *testing.T) {
	p := &Exec{
		Command: `if grep -q Bad.java; then echo cannot rewrite; exit 1; fi`,
		Dir:     t.TempDir(),
	}
	fixes := []fix.Fix{
		fixAt("Bad.java", "Bad", "x()"),
		fixAt("Good.java", "Good", "y()"),
		fixAt("Bad.java", "Bad", "z()"),
	}

	results := p.Apply(context.Background(), fixes, false)
	failed := Failed(results)
	require.Len(t, failed, 2)
	for _, r := range failed {
		assert.Equal(t, "Bad.java", r.Fix.Location.Path)
		var appErr *ApplicationError
		require.ErrorAs(t, r.Err, &appErr)
		assert.Contains(t, appErr.Error(), "cannot rewrite")
	}
}

type resolverMap map[string]string

func (m resolverMap) ResolvePath(class string) (string, bool) {
	path, ok := m[class]
	return path, ok
}

func TestExec_ResolvesMissingPaths(t *testing.T) {
	dir := t.TempDir()
	p := &Exec{
		Command: `cat >> calls.ndjson; echo >> calls.ndjson`,
		Dir:     dir,
		Resolver: resolverMap{
			"a.Foo": "src/a/Foo.java",
			"b.Bar": "src/b/Bar.java",
		},
	}
	fixes := []fix.Fix{
		fixAt("", "a.Foo", "x()"),
		fixAt("", "b.Bar", "y()"),
		fixAt("", "c.Gone", "z()"),
	}

	results := p.Apply(context.Background(), fixes, false)
	require.Len(t, results, 3)

	failed := Failed(results)
	require.Len(t, failed, 1)
	assert.Equal(t, "c.Gone", failed[0].Fix.Location.Class)
	assert.ErrorIs(t, failed[0].Err, ErrNoSourcePath)
	var appErr *ApplicationError
	assert.ErrorAs(t, failed[0].Err, &appErr)

	data, err := os.ReadFile(filepath.Join(dir, "calls.ndjson"))
	require.NoError(t, err)
	var paths []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var req request
		require.NoError(t, json.Unmarshal(sc.Bytes(), &req))
		require.Len(t, req.Fixes, 1)
		paths = append(paths, req.Path)
	}
	assert.Equal(t, []string{"src/a/Foo.java", "src/b/Bar.java"}, paths)
}

func TestExec_NoResolverFailsPathlessFix(t *testing.T) {
	p := &Exec{Command: "cat > /dev/null", Dir: t.TempDir()}

	results := p.Apply(context.Background(), []fix.Fix{fixAt("", "a.Foo", "x()")}, false)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrNoSourcePath)
}

type verifierFunc func(location.Location) error

func (f verifierFunc) Verify(loc location.Location) error { return f(loc) }

func TestExec_PreflightRejectsMissingDeclarations(t *testing.T) {
	gone := errors.New("gone")
	p := &Exec{
		Command: "cat > /dev/null",
		Dir:     t.TempDir(),
		Verifier: verifierFunc(func(loc location.Location) error {
			if loc.Member == "removed()" {
				return gone
			}
			return nil
		}),
	}

	results := p.Apply(context.Background(), []fix.Fix{
		fixAt("A.java", "A", "removed()"),
		fixAt("A.java", "A", "kept()"),
	}, false)

	require.Len(t, results, 2)
	failed := Failed(results)
	require.Len(t, failed, 1)
	assert.Equal(t, "removed()", failed[0].Fix.Location.Member)
	assert.ErrorIs(t, failed[0].Err, gone)
}

func TestExec_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &Exec{Command: "true", Dir: t.TempDir()}

	results := p.Apply(ctx, []fix.Fix{fixAt("A.java", "A", "a()")}, false)
	require.Len(t, Failed(results), 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}
