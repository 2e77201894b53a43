package ai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "models.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadCatalogFromJSON(t *testing.T) {
	p := writeCatalog(t, `{"gemini-9-flash": {"output": "text", "grounding": true}}`)
	m, err := LoadCatalogFromJSON(p)
	require.NoError(t, err)
	require.Contains(t, m, "gemini-9-flash")
	assert.Equal(t, OutputText, m["gemini-9-flash"].Output)
	assert.True(t, m["gemini-9-flash"].Grounding)
}

func TestLoadCatalogRejectsBadEntries(t *testing.T) {
	_, err := LoadCatalogFromJSON(writeCatalog(t, `{"x": {"output": "video"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid catalog")

	_, err = LoadCatalogFromJSON(writeCatalog(t, `{"x": {"grounding": "yes"}}`))
	require.Error(t, err)

	_, err = LoadCatalogFromJSON(writeCatalog(t, `{not json`))
	require.Error(t, err)

	_, err = LoadCatalogFromJSON(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestMergeCatalogAndCheckModel(t *testing.T) {
	saved := make(map[string]ModelInfo, len(models))
	for k, v := range models {
		saved[k] = v
	}
	t.Cleanup(func() { models = saved })

	MergeCatalog(map[string]ModelInfo{"custom-tts": {Output: OutputAudio}})
	mi, ok := LookupModel("custom-tts")
	require.True(t, ok)
	assert.Equal(t, "custom-tts", mi.Name)

	assert.NoError(t, CheckModel("custom-tts", OutputAudio))
	assert.Error(t, CheckModel("custom-tts", OutputText))
	assert.NoError(t, CheckModel("never-heard-of-it", OutputImage))

	cat := Catalog()
	for i := 1; i < len(cat); i++ {
		assert.LessOrEqual(t, cat[i-1].Output, cat[i].Output)
	}
}
