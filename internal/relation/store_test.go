package relation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type edge struct {
	RegionClass  string
	RegionMember string
	Target       string
	TargetClass  string
}

var edgeSchema = Schema[edge]{
	Name:    "edges",
	Columns: 4,
	Parse: func(v []string) (edge, error) {
		if v[3] == "" {
			return edge{}, errors.New("empty target class")
		}
		return edge{RegionClass: v[0], RegionMember: v[1], Target: v[2], TargetClass: v[3]}, nil
	},
	Key: func(e edge) string { return e.TargetClass },
}

func writeFacts(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "facts.tsv")
	content := "REGION_CLASS\tREGION_MEMBER\tTARGET\tTARGET_CLASS\n" + strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sampleFacts(t *testing.T) string {
	lines := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		lines = append(lines, fmt.Sprintf("a.R%d\tm%d()\tf%d\ta.T%d", i, i, i%3, i%7))
	}
	return writeFacts(t, lines...)
}

func TestLoad_SkipsHeaderAndBlankLines(t *testing.T) {
	path := writeFacts(t, "a.Baz\tqux()\tcount\ta.Foo", "", "a.Baz\tquux()\tcount\ta.Foo")

	s, err := Load(path, edgeSchema)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "edges", s.Name())
}

func TestFind_BucketCorrectness(t *testing.T) {
	s, err := Load(sampleFacts(t), edgeSchema)
	require.NoError(t, err)

	everything := func(edge) bool { return true }
	for _, rec := range s.All() {
		own := s.Find(everything, HashOf(rec.TargetClass))
		assert.Contains(t, own, rec)

		for _, other := range []string{"a.T0", "a.T1", "a.T2", "a.T3", "a.T4", "a.T5", "a.T6", "a.Missing"} {
			if other == rec.TargetClass {
				continue
			}
			assert.NotContains(t, s.Find(everything, HashOf(other)), rec)
		}
	}
}

func TestFind_InsertionOrderWithinBucket(t *testing.T) {
	path := writeFacts(t,
		"a.Baz\tqux()\tcount\ta.Foo",
		"a.Other\tx()\tname\ta.Bar",
		"a.Baz\tquux()\tcount\ta.Foo",
	)
	s, err := Load(path, edgeSchema)
	require.NoError(t, err)

	got := s.Find(func(e edge) bool { return e.Target == "count" }, HashOf("a.Foo"))
	require.Len(t, got, 2)
	assert.Equal(t, "qux()", got[0].RegionMember)
	assert.Equal(t, "quux()", got[1].RegionMember)
}

func TestLoad_Idempotent(t *testing.T) {
	path := sampleFacts(t)
	first, err := Load(path, edgeSchema)
	require.NoError(t, err)
	second, err := Load(path, edgeSchema)
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		class := fmt.Sprintf("a.T%d", i)
		for j := 0; j < 3; j++ {
			target := fmt.Sprintf("f%d", j)
			pred := func(e edge) bool { return e.TargetClass == class && e.Target == target }
			assert.Equal(t, first.Find(pred, HashOf(class)), second.Find(pred, HashOf(class)))
		}
	}
	assert.Equal(t, first.All(), second.All())
}

func TestLoad_MalformedRecord(t *testing.T) {
	t.Run("wrong column count", func(t *testing.T) {
		path := writeFacts(t, "a.Baz\tqux()\tcount\ta.Foo", "a.Baz\tqux()\tcount")

		_, err := Load(path, edgeSchema)
		var malformed *MalformedRecordError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, 3, malformed.Line)
		assert.Equal(t, 4, malformed.Want)
		assert.Equal(t, 3, malformed.Got)
	})

	t.Run("parser rejects values", func(t *testing.T) {
		path := writeFacts(t, "a.Baz\tqux()\tcount\t")

		_, err := Load(path, edgeSchema)
		var malformed *MalformedRecordError
		require.ErrorAs(t, err, &malformed)
		assert.EqualError(t, malformed.Err, "empty target class")
	})
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.tsv"), edgeSchema)
	require.Error(t, err)
	assert.True(t, IsMissing(err))

	empty := Empty(edgeSchema)
	assert.Equal(t, 0, empty.Len())
	assert.Empty(t, empty.Find(func(edge) bool { return true }, HashOf("a.Foo")))
}

func TestFromRecords(t *testing.T) {
	s := FromRecords(edgeSchema, []edge{
		{"a.Baz", "qux()", "count", "a.Foo"},
		{"a.Baz", "quux()", "count", "a.Foo"},
	})
	got := s.Find(func(e edge) bool { return e.Target == "count" }, HashOf("a.Foo"))
	assert.Len(t, got, 2)
}
