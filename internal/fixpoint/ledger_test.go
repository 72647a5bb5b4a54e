package fixpoint

import (
	"testing"

	"nullfix/internal/fix"
	"nullfix/internal/location"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger(t *testing.T) {
	l := NewLedger()
	loc := location.OnParameter("Foo", "put(Object)", 0)
	loc.Path = "src/Foo.java"

	require.True(t, l.Add(fix.Fix{Location: loc, Annotation: fix.Nullable, Pass: 1}))

	// Path is metadata; the same location from another pass is settled.
	assert.True(t, l.Contains(location.OnParameter("Foo", "put(Object)", 0)))
	assert.False(t, l.Add(fix.Fix{Location: location.OnParameter("Foo", "put(Object)", 0), Annotation: fix.Nonnull}))
	assert.False(t, l.Contains(location.OnParameter("Foo", "put(Object)", 1)))

	f, ok := l.Get(loc)
	require.True(t, ok)
	assert.Equal(t, fix.Nullable, f.Annotation)
	assert.Equal(t, 1, l.Len())

	fixes := l.Fixes()
	fixes[0].Annotation = fix.Nonnull
	f, _ = l.Get(loc)
	assert.Equal(t, fix.Nullable, f.Annotation)
}
