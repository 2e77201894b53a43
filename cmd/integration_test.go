package cmd

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/exodash/internal/analysis"
)

const testCSV = `# NASA Exoplanet Archive export
pl_name,hostname,discoverymethod,disc_year,pl_orbper,pl_rade,pl_bmasse,pl_eqt,pl_refname
TOI-700 d,TOI-700,Transit,2020,37.42,1.07,1.72,269,"<a refstr=X href=https://ui.adsabs.harvard.edu/abs/2020AJ/abstract target=ref>Gilbert et al. 2020</a>"
TOI-270 b,TOI-270,Transit,2019,3.36,1.28,1.58,,
LHS 3844 b,LHS 3844,Transit,2019,0.46,1.3,,805,
`

// resetFlags restores every flag to its default so runs don't leak into each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command with args and returns stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, args...)
	require.NoError(t, err, "command %v", args)
	return out
}

// setupEnv isolates HOME and points the data source at a temp CSV.
func setupEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	data := filepath.Join(home, "planets.csv")
	require.NoError(t, os.WriteFile(data, []byte(testCSV), 0o644))
	t.Setenv("EXODASH_DATA_SOURCE", data)
	return home
}

// fakeGemini answers text, image and audio requests like the REST API would.
func fakeGemini(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req struct {
			GenerationConfig *struct {
				ResponseModalities []string `json:"responseModalities"`
				ImageConfig        *struct {
					ImageSize string `json:"imageSize"`
				} `json:"imageConfig"`
			} `json:"generationConfig"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		part := map[string]any{"text": "TOI-700 d glows under a red dwarf."}
		if gc := req.GenerationConfig; gc != nil {
			switch {
			case gc.ImageConfig != nil:
				part = map[string]any{"inlineData": map[string]string{
					"mimeType": "image/png", "data": base64.StdEncoding.EncodeToString([]byte("PNG:" + gc.ImageConfig.ImageSize)),
				}}
			case len(gc.ResponseModalities) > 0:
				part = map[string]any{"inlineData": map[string]string{
					"mimeType": "audio/L16;codec=pcm;rate=24000", "data": base64.StdEncoding.EncodeToString([]byte{1, 0, 2, 0}),
				}}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{part}},
				"groundingMetadata": map[string]any{"groundingChunks": []any{
					map[string]any{"web": map[string]string{"uri": "https://news.test/toi-700", "title": "news.test"}},
				}},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestCLI_SummaryFormats(t *testing.T) {
	home := setupEnv(t)

	md := mustRun(t, "summary")
	assert.Contains(t, md, "[DATASET SUMMARY]")
	assert.Contains(t, md, "Confirmed planets: 3")
	assert.Contains(t, md, "- Transit: 3")

	out := filepath.Join(home, "out", "summary.json")
	mustRun(t, "summary", "--format", "json", "-o", out)
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var s analysis.Summary
	require.NoError(t, json.Unmarshal(b, &s))
	assert.Equal(t, 3, s.Total)
	require.NotNil(t, s.LatestYear)
	assert.Equal(t, 2020, *s.LatestYear)

	y := mustRun(t, "summary", "-f", "yaml")
	assert.Contains(t, y, "total: 3")

	tm := mustRun(t, "summary", "-f", "toml")
	assert.Contains(t, tm, "total = 3")
	assert.Contains(t, tm, "[[properties]]")

	_, err = runCmd(t, "summary", "--format", "xml")
	assert.Error(t, err)
}

func TestCLI_ListAndShow(t *testing.T) {
	setupEnv(t)

	out := mustRun(t, "list", "-q", "toi")
	assert.Contains(t, out, "TOI-700 d")
	assert.Contains(t, out, "TOI-270 b")
	assert.NotContains(t, out, "LHS 3844 b")

	out = mustRun(t, "list", "--limit", "1")
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out), "\n")+1)

	out = mustRun(t, "show", "toi-700 d")
	assert.Contains(t, out, "Gilbert et al. 2020")
	assert.Contains(t, out, "Radius: 1.07 Earth radii")
	assert.Contains(t, out, "Stellar Temperature: N/A")

	_, err := runCmd(t, "show", "Kepler-22 b")
	assert.Error(t, err)
}

func TestCLI_ChartWritesHTML(t *testing.T) {
	home := setupEnv(t)
	path := filepath.Join(home, "dash.html")
	mustRun(t, "chart", "-o", path)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Discoveries per Year")

	out := mustRun(t, "chart", "--planet", "TOI-700 d", "-o", "-")
	assert.Contains(t, out, "Size Comparison")
}

func TestCLI_ConfigSetShow(t *testing.T) {
	setupEnv(t)

	mustRun(t, "config", "set", "api_key", "abcdef123456")
	mustRun(t, "config", "set", "image_size", "2k")
	_, err := runCmd(t, "config", "set", "image_size", "3K")
	assert.Error(t, err)
	_, err = runCmd(t, "config", "set", "nope", "x")
	assert.Error(t, err)

	out := mustRun(t, "config", "show")
	assert.Contains(t, out, "api_key: abc****456")
	assert.Contains(t, out, "image_size: 2K")
}

func TestCLI_FeaturesAgainstFakeGemini(t *testing.T) {
	home := setupEnv(t)
	srv, calls := fakeGemini(t)
	t.Setenv("EXODASH_API_KEY", "test-key")
	t.Setenv("EXODASH_BASE_URL", srv.URL)

	out := mustRun(t, "narrate", "TOI-700 d", "--speak", filepath.Join(home, "n.wav"))
	assert.Contains(t, out, "red dwarf")
	wav, err := os.ReadFile(filepath.Join(home, "n.wav"))
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(wav[:4]))

	out = mustRun(t, "search", "TOI-700 d")
	assert.Contains(t, out, "https://news.test/toi-700")

	img := filepath.Join(home, "img.png")
	mustRun(t, "image", "TOI-700 d", "--size", "4K", "-o", img)
	b, err := os.ReadFile(img)
	require.NoError(t, err)
	assert.Equal(t, "PNG:4K", string(b))

	// narrative + speech, search, description + image
	assert.Equal(t, int32(5), atomic.LoadInt32(calls))
}

func TestCLI_CacheAvoidsRepeatCalls(t *testing.T) {
	home := setupEnv(t)
	srv, calls := fakeGemini(t)
	t.Setenv("EXODASH_API_KEY", "test-key")
	t.Setenv("EXODASH_BASE_URL", srv.URL)
	t.Setenv("EXODASH_CACHE_PATH", filepath.Join(home, "cache", "artifacts.db"))

	mustRun(t, "search", "TOI-270 b")
	mustRun(t, "search", "TOI-270 b")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	out := mustRun(t, "cache", "list")
	assert.Contains(t, out, "TOI-270 b")
	out = mustRun(t, "cache", "purge")
	assert.Contains(t, out, "Purged 1 entries")
}

func TestCLI_MissingKey(t *testing.T) {
	setupEnv(t)
	t.Setenv("EXODASH_API_KEY", "")
	_, err := runCmd(t, "narrate", "TOI-700 d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "toi-700-d", slug("TOI-700 d"))
	assert.Equal(t, "planet", slug("***"))
}

func TestCLI_ModelsSyncValidatesCatalog(t *testing.T) {
	home := setupEnv(t)

	bad := filepath.Join(home, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"m": {"output": "hologram"}}`), 0o644))
	_, err := runCmd(t, "models", "sync", "--file", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid catalog")

	good := filepath.Join(home, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"gemini-test-tts": {"output": "audio", "notes": "lab"}}`), 0o644))
	out := mustRun(t, "models", "sync", "--file", good)
	assert.Contains(t, out, "Merged 1 models")

	out = mustRun(t, "models", "show")
	assert.Contains(t, out, "gemini-test-tts")
	assert.Contains(t, out, "Configured: text=gemini-2.5-flash")
}
