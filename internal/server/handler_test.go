package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/exodash/internal/ai"
	"github.com/KaramelBytes/exodash/internal/planet"
	"github.com/KaramelBytes/exodash/internal/state"
)

type fakeFeatures struct {
	mu        sync.Mutex
	err       error
	imageSize string
	spoken    string
}

func (f *fakeFeatures) Narrative(_ context.Context, r planet.Record) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "A tale of " + r.Name, nil
}

func (f *fakeFeatures) Search(_ context.Context, r planet.Record) (ai.SearchResult, error) {
	if f.err != nil {
		return ai.SearchResult{}, f.err
	}
	return ai.SearchResult{Content: "news about " + r.Name, Sources: []ai.Source{{Title: "a", URL: "https://a.test"}}}, nil
}

func (f *fakeFeatures) Image(_ context.Context, r planet.Record, size string) (ai.Image, error) {
	f.mu.Lock()
	f.imageSize = size
	f.mu.Unlock()
	if f.err != nil {
		return ai.Image{}, f.err
	}
	return ai.Image{MIMEType: "image/png", Data: base64.StdEncoding.EncodeToString([]byte("png!")), Size: size}, nil
}

func (f *fakeFeatures) Speech(_ context.Context, text string) (ai.Audio, error) {
	f.mu.Lock()
	f.spoken = text
	f.mu.Unlock()
	if f.err != nil {
		return ai.Audio{}, f.err
	}
	return ai.Audio{MIMEType: "audio/L16;rate=24000", Data: base64.StdEncoding.EncodeToString([]byte{1, 0, 2, 0}), SampleRate: 24000, Channels: 1}, nil
}

func testRecords() []planet.Record {
	return []planet.Record{
		{Name: "TOI-700 d", HostStar: "TOI-700", YearDiscovered: "2020", OrbitalPeriod: 37.4, Radius: 1.19,
			ReferenceMarkup: `<a refstr=GILBERT_ET_AL__2020 href=https://ui.adsabs.harvard.edu/abs/2020AJ....160..116G/abstract target=ref>Gilbert et al. 2020</a>`},
		{Name: "TOI-270 b", HostStar: "TOI-270", YearDiscovered: "2019", OrbitalPeriod: 3.36, Radius: 1.28},
		{Name: "LHS 3844 b", HostStar: "LHS 3844", YearDiscovered: "2019", OrbitalPeriod: 0.46, Radius: 1.3},
	}
}

func newTestServer(t *testing.T, f Features) (*httptest.Server, *Handler) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(planet.NewDataset("test.csv", testRecords()), f, log)
	srv := httptest.NewServer(New(h, log))
	t.Cleanup(srv.Close)
	return srv, h
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthAndRequestID(t *testing.T) {
	srv, _ := newTestServer(t, &fakeFeatures{})

	resp := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "abc-123", resp2.Header.Get(RequestIDHeader))
}

func TestSummaryAndPlanets(t *testing.T) {
	srv, _ := newTestServer(t, &fakeFeatures{})

	resp := do(t, http.MethodGet, srv.URL+"/api/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sum := decode[map[string]any](t, resp)
	assert.Equal(t, float64(3), sum["total"])
	assert.Equal(t, float64(2020), sum["latest_year"])
	assert.Equal(t, "test.csv", sum["source"])

	resp = do(t, http.MethodGet, srv.URL+"/api/planets?q=toi", "")
	list := decode[[]planet.Record](t, resp)
	assert.Len(t, list, 2)

	resp = do(t, http.MethodGet, srv.URL+"/api/planets/TOI-700%20d", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := decode[PlanetDetail](t, resp)
	require.NotNil(t, d.Reference)
	assert.Equal(t, "Gilbert et al. 2020", d.Reference.Title)
	assert.Len(t, d.Properties, len(planet.Properties))

	resp = do(t, http.MethodGet, srv.URL+"/api/planets/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	e := decode[ErrorResponse](t, resp)
	assert.Equal(t, ErrNotFound.Error(), e.Error)
}

func TestFeatureNeedsSelection(t *testing.T) {
	srv, _ := newTestServer(t, &fakeFeatures{})

	resp := do(t, http.MethodPost, srv.URL+"/api/features/narrative", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/features/telepathy", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPut, srv.URL+"/api/selection", `{"name":"Kepler-1 b"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPut, srv.URL+"/api/selection", `{bad`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNarrativeThenSpeech(t *testing.T) {
	f := &fakeFeatures{}
	srv, _ := newTestServer(t, f)

	resp := do(t, http.MethodPut, srv.URL+"/api/selection", `{"name":"TOI-700 d"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Speech is gated on a narrative.
	resp = do(t, http.MethodPost, srv.URL+"/api/features/speech", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/features/narrative", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[state.State](t, resp)
	assert.Equal(t, state.StatusSuccess, st.StatusOf(state.FeatureNarrative))
	assert.Equal(t, "A tale of TOI-700 d", st.Results.Narrative)

	resp = do(t, http.MethodGet, srv.URL+"/api/audio.wav", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/features/speech", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st = decode[state.State](t, resp)
	assert.True(t, st.HasAudio)
	f.mu.Lock()
	assert.Equal(t, "A tale of TOI-700 d", f.spoken)
	f.mu.Unlock()

	resp = do(t, http.MethodGet, srv.URL+"/api/audio.wav", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(body[:4]))
	assert.Len(t, body, 48)
}

func TestFeatureFailureIsRecorded(t *testing.T) {
	srv, _ := newTestServer(t, &fakeFeatures{err: errors.New("quota exceeded")})

	do(t, http.MethodPut, srv.URL+"/api/selection", `{"name":"TOI-270 b"}`)
	resp := do(t, http.MethodPost, srv.URL+"/api/features/search", "")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	e := decode[ErrorResponse](t, resp)
	assert.Contains(t, e.Details, "quota exceeded")

	resp = do(t, http.MethodGet, srv.URL+"/api/state", "")
	st := decode[state.State](t, resp)
	assert.Equal(t, state.StatusError, st.StatusOf(state.FeatureSearch))
	assert.Equal(t, "quota exceeded", st.Errors[state.FeatureSearch])
	assert.Equal(t, state.StatusIdle, st.StatusOf(state.FeatureNarrative))
}

func TestImageUsesChosenSize(t *testing.T) {
	f := &fakeFeatures{}
	srv, _ := newTestServer(t, f)

	resp := do(t, http.MethodPut, srv.URL+"/api/image-size", `{"size":"8K"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = do(t, http.MethodPut, srv.URL+"/api/image-size", `{"size":"2K"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	do(t, http.MethodPut, srv.URL+"/api/selection", `{"name":"LHS 3844 b"}`)
	resp = do(t, http.MethodPost, srv.URL+"/api/features/image", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	f.mu.Lock()
	assert.Equal(t, "2K", f.imageSize)
	f.mu.Unlock()

	resp = do(t, http.MethodGet, srv.URL+"/api/image", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "png!", string(body))
}

func TestSelectionChangeResetsResults(t *testing.T) {
	srv, _ := newTestServer(t, &fakeFeatures{})

	do(t, http.MethodPut, srv.URL+"/api/selection", `{"name":"TOI-700 d"}`)
	do(t, http.MethodPost, srv.URL+"/api/features/narrative", "")

	resp := do(t, http.MethodPut, srv.URL+"/api/selection", `{"name":"TOI-270 b"}`)
	st := decode[state.State](t, resp)
	assert.Empty(t, st.Results.Narrative)
	assert.Equal(t, state.StatusIdle, st.StatusOf(state.FeatureNarrative))

	resp = do(t, http.MethodDelete, srv.URL+"/api/selection", "")
	st = decode[state.State](t, resp)
	assert.False(t, st.Selection.IsSelected())
}

func TestAsyncFeature(t *testing.T) {
	srv, h := newTestServer(t, &fakeFeatures{})

	do(t, http.MethodPut, srv.URL+"/api/selection", `{"name":"TOI-700 d"}`)
	resp := do(t, http.MethodPost, srv.URL+"/api/features/search?async=1", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		return h.Session().Snapshot().StatusOf(state.FeatureSearch) == state.StatusSuccess
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "news about TOI-700 d", h.Session().Snapshot().Results.Search.Content)
}

func TestChartPages(t *testing.T) {
	srv, _ := newTestServer(t, &fakeFeatures{})

	resp := do(t, http.MethodGet, srv.URL+"/charts/dashboard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Orbital Period vs Radius")

	resp = do(t, http.MethodGet, srv.URL+"/charts/planet/TOI-700%20d", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Size Comparison")

	resp = do(t, http.MethodGet, srv.URL+"/charts/planet/none", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecoverMiddleware(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	rec := httptest.NewRecorder()
	Chain(boom, RequestID, Recover(log), Logger(log)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestRunStopsOnCancel(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(planet.NewDataset("", nil), &fakeFeatures{}, log)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, h, Options{Addr: "127.0.0.1:0"}, log) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := &fakeFeatures{err: errors.New("quota exceeded")}
	srv, _ := newTestServer(t, f)

	do(t, http.MethodGet, srv.URL+"/healthz", "")
	do(t, http.MethodGet, srv.URL+"/nope", "")
	do(t, http.MethodPut, srv.URL+"/api/selection", `{"name":"TOI-270 b"}`)
	resp := do(t, http.MethodPost, srv.URL+"/api/features/search", "")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(b)
	assert.Contains(t, body, `exodash_http_requests_total{method="GET",route="GET /healthz",status="200"} 1`)
	assert.Contains(t, body, `exodash_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, body, `exodash_feature_runs_total{feature="search",outcome="error"} 1`)
	assert.Contains(t, body, `exodash_features_in_flight 0`)
	assert.Contains(t, body, "go_goroutines")
}

func TestReloadSwapsDataset(t *testing.T) {
	srv, h := newTestServer(t, &fakeFeatures{})
	do(t, http.MethodPut, srv.URL+"/api/selection", `{"name":"TOI-270 b"}`)

	recs := testRecords()
	h.Reload(planet.NewDataset("v2.csv", recs[1:]))
	st := decode[state.State](t, do(t, http.MethodGet, srv.URL+"/api/state", ""))
	assert.Equal(t, 2, st.Records)
	assert.True(t, st.Selection.IsSelected(), "TOI-270 b is still present")

	h.Reload(planet.NewDataset("v3.csv", recs[:1]))
	st = decode[state.State](t, do(t, http.MethodGet, srv.URL+"/api/state", ""))
	assert.Equal(t, 1, st.Records)
	assert.False(t, st.Selection.IsSelected())

	s := decode[map[string]any](t, do(t, http.MethodGet, srv.URL+"/api/summary", ""))
	assert.Equal(t, "v3.csv", s["source"])
}
