package utils

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriteFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "chart.html")
	require.NoError(t, SafeWriteFile(path, []byte("<html>")))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html>", string(b))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestSafeWriteFileReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.md")
	require.NoError(t, SafeWriteFile(path, []byte("first draft")))
	require.NoError(t, SafeWriteFile(path, []byte("v2")))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(b))
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"total": 3})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"total\": 3\n}", string(b))

	_, err = PrettyJSON(func() {})
	assert.Error(t, err)
}

func TestFindUp(t *testing.T) {
	root := t.TempDir()
	data := filepath.Join(root, "data", "planets.csv")
	require.NoError(t, SafeWriteFile(data, []byte("pl_name\n")))
	deep := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	got, err := FindUp(deep, filepath.Join("data", "planets.csv"))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	got, err = FindUp("", data)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = FindUp(deep, "missing.csv")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
