package fix

import (
	"os"
	"path/filepath"
	"testing"

	"nullfix/internal/location"
	"nullfix/internal/relation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixes.json")
	content := `{"location":{"kind":"FIELD","class":"a.Foo","member":"count","path":"src/a/Foo.java"},"annotation":"nullable","reason":"ASSIGN_FIELD_NULLABLE"}

{"location":{"kind":"parameter","class":"a.Foo","member":"bar(int)","index":0},"annotation":"Nullable"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	fixes, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, fixes, 2)

	assert.Equal(t, location.KindField, fixes[0].Location.Kind)
	assert.Equal(t, -1, fixes[0].Location.Index)
	assert.Equal(t, "src/a/Foo.java", fixes[0].Location.Path)
	assert.Equal(t, "ASSIGN_FIELD_NULLABLE", fixes[0].Reason)
	assert.Equal(t, location.OnParameter("a.Foo", "bar(int)", 0), fixes[1].Location)
	assert.Equal(t, Nullable, fixes[1].Annotation)
}

func TestReadFile_Malformed(t *testing.T) {
	cases := map[string]string{
		"bad json":          `{"location":`,
		"unknown kind":      `{"location":{"kind":"local","class":"a.Foo","member":"x"},"annotation":"nullable"}`,
		"missing member":    `{"location":{"kind":"field","class":"a.Foo"},"annotation":"nullable"}`,
		"bad annotation":    `{"location":{"kind":"field","class":"a.Foo","member":"x"},"annotation":"maybe"}`,
		"negative param ix": `{"location":{"kind":"parameter","class":"a.Foo","member":"m()","index":-1},"annotation":"nullable"}`,
		"fractional index":  `{"location":{"kind":"parameter","class":"a.Foo","member":"m()","index":1.5},"annotation":"nullable"}`,
		"index omitted":     `{"location":{"kind":"parameter","class":"a.Foo","member":"m(int)"},"annotation":"nullable"}`,
		"no index, caps":    `{"location":{"kind":"PARAMETER","class":"a.Foo","member":"m(int)"},"annotation":"nullable"}`,
		"annotation type":   `{"location":{"kind":"field","class":"a.Foo","member":"x"},"annotation":1}`,
		"not an object":     `["field","a.Foo","x"]`,
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "fixes.json")
			require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0o644))

			_, err := ReadFile(path)
			var malformed *relation.MalformedRecordError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, 1, malformed.Line)
		})
	}
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "fixes.json"))
	assert.True(t, relation.IsMissing(err))
}

func TestWriteFile_ReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixes.json")
	in := []Fix{
		{Location: location.OnMethod("a.Foo", "get()"), Annotation: Nullable, Reason: "RETURN_NULLABLE", Pass: 2},
		{Location: location.OnField("a.Foo", "x", "y"), Annotation: Nonnull},
	}
	require.NoError(t, WriteFile(path, in))

	out, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFix_Key(t *testing.T) {
	a := Fix{Location: location.OnMethod("a.Foo", "get()"), Annotation: Nullable, Pass: 1}
	b := a
	b.Location.Path = "Foo.java"
	b.Pass = 3

	assert.Equal(t, a.Key(), b.Key())
	b.Annotation = Nonnull
	assert.NotEqual(t, a.Key(), b.Key())
}
