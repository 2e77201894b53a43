// Package server exposes the dashboard over HTTP: a JSON API for the dataset,
// selection and AI features, plus go-echarts HTML pages for the charts.
package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KaramelBytes/exodash/internal/ai"
	"github.com/KaramelBytes/exodash/internal/analysis"
	"github.com/KaramelBytes/exodash/internal/chart"
	"github.com/KaramelBytes/exodash/internal/planet"
	"github.com/KaramelBytes/exodash/internal/reference"
	"github.com/KaramelBytes/exodash/internal/state"
)

const tracerName = "github.com/KaramelBytes/exodash/internal/server"

var (
	// ErrNoSelection is reported when a feature runs with nothing selected.
	ErrNoSelection = errors.New("no planet selected")
	// ErrNotFound is reported for an unknown planet name.
	ErrNotFound = errors.New("planet not found")
)

// Features is the AI surface the handler drives. *ai.Service satisfies it.
type Features interface {
	Narrative(ctx context.Context, r planet.Record) (string, error)
	Search(ctx context.Context, r planet.Record) (ai.SearchResult, error)
	Image(ctx context.Context, r planet.Record, size string) (ai.Image, error)
	Speech(ctx context.Context, text string) (ai.Audio, error)
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// PlanetDetail is a record with its derived view.
type PlanetDetail struct {
	Record     planet.Record        `json:"record"`
	Reference  *reference.Reference `json:"reference"`
	Properties []PropertyValue      `json:"properties"`
	Selected   bool                 `json:"selected"`
}

// PropertyValue is one labelled numeric attribute; zero means unknown.
type PropertyValue struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Unit  string  `json:"unit,omitempty"`
	Value float64 `json:"value"`
	Known bool    `json:"known"`
}

// Handler serves the dashboard API.
type Handler struct {
	mu       sync.RWMutex
	data     *planet.Dataset
	features Features
	session  *state.Session
	log      *slog.Logger
	metrics  *Metrics
	timeout  time.Duration
}

// NewHandler creates a handler with a fresh session over data.
func NewHandler(data *planet.Dataset, f Features, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		data:     data,
		features: f,
		session:  state.NewSession(state.New(data.Len())),
		log:      log,
		metrics:  NewMetrics(),
		timeout:  3 * time.Minute,
	}
}

// SetFeatureTimeout bounds background feature runs.
func (h *Handler) SetFeatureTimeout(d time.Duration) {
	if d > 0 {
		h.timeout = d
	}
}

// Dataset returns the dataset currently served.
func (h *Handler) Dataset() *planet.Dataset {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.data
}

// Reload swaps in ds. The selection survives only if ds still has that planet.
func (h *Handler) Reload(ds *planet.Dataset) {
	h.mu.Lock()
	h.data = ds
	h.mu.Unlock()
	h.session.Dispatch(state.Reload{Records: ds.Len(), Has: func(name string) bool {
		_, ok := ds.Find(name)
		return ok
	}})
	h.log.Info("dataset reloaded", "source", ds.Source(), "records", ds.Len(), "selection_kept", keep)
}

// Metrics exposes the handler's Prometheus collectors.
func (h *Handler) Metrics() *Metrics { return h.metrics }

// Session exposes the dashboard state.
func (h *Handler) Session() *state.Session { return h.session }

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("GET /metrics", h.metrics.Handler())
	mux.HandleFunc("GET /api/summary", h.GetSummary)
	mux.HandleFunc("GET /api/planets", h.ListPlanets)
	mux.HandleFunc("GET /api/planets/{name}", h.GetPlanet)
	mux.HandleFunc("GET /api/state", h.GetState)
	mux.HandleFunc("PUT /api/selection", h.PutSelection)
	mux.HandleFunc("DELETE /api/selection", h.DeleteSelection)
	mux.HandleFunc("PUT /api/image-size", h.PutImageSize)
	mux.HandleFunc("POST /api/features/{feature}", h.RunFeature)
	mux.HandleFunc("GET /api/audio.wav", h.GetAudio)
	mux.HandleFunc("GET /api/image", h.GetImage)
	mux.HandleFunc("GET /charts/dashboard", h.DashboardChart)
	mux.HandleFunc("GET /charts/planet/{name}", h.PlanetChart)
	return mux
}

// Health reports liveness and the dataset size.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "records": h.Dataset().Len()}, http.StatusOK)
}

// GetSummary returns the aggregate metrics.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ds := h.Dataset()
	s := analysis.Summarize(ds.Records())
	s.Source = ds.Source()
	writeJSON(w, s, http.StatusOK)
}

// ListPlanets returns records filtered by ?q= on name or host star.
func (h *Handler) ListPlanets(w http.ResponseWriter, r *http.Request) {
	out := planet.Filter(h.Dataset().Records(), r.URL.Query().Get("q"))
	if lim, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && lim > 0 && lim < len(out) {
		out = out[:lim]
	}
	writeJSON(w, out, http.StatusOK)
}

// GetPlanet returns one record with its reference and properties.
func (h *Handler) GetPlanet(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.Dataset().Find(r.PathValue("name"))
	if !ok {
		writeError(w, ErrNotFound.Error(), r.PathValue("name"), http.StatusNotFound)
		return
	}
	writeJSON(w, h.detail(rec), http.StatusOK)
}

func (h *Handler) detail(rec planet.Record) PlanetDetail {
	d := PlanetDetail{
		Record:   rec,
		Selected: h.session.Snapshot().Selection.Matches(rec),
	}
	if ref, ok := reference.Extract(rec.ReferenceMarkup); ok {
		d.Reference = &ref
	}
	for _, p := range planet.Properties {
		v := p.Value(rec)
		d.Properties = append(d.Properties, PropertyValue{
			Key: p.Key, Label: p.Label, Unit: p.Unit, Value: v, Known: v != 0,
		})
	}
	return d
}

// GetState returns the dashboard state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.session.Snapshot(), http.StatusOK)
}

type selectionRequest struct {
	Name string `json:"name"`
}

// PutSelection selects a planet by name.
func (h *Handler) PutSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	rec, ok := h.Dataset().Find(req.Name)
	if !ok {
		writeError(w, ErrNotFound.Error(), req.Name, http.StatusNotFound)
		return
	}
	st := h.session.Dispatch(state.Select{Name: rec.Name})
	h.log.Debug("planet selected", "planet", rec.Name)
	writeJSON(w, st, http.StatusOK)
}

// DeleteSelection clears the selection.
func (h *Handler) DeleteSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.session.Dispatch(state.Clear{}), http.StatusOK)
}

type imageSizeRequest struct {
	Size string `json:"size"`
}

// PutImageSize changes the resolution used by the next image run.
func (h *Handler) PutImageSize(w http.ResponseWriter, r *http.Request) {
	var req imageSizeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if !ai.ValidImageSize(req.Size) {
		writeError(w, "Invalid image size", req.Size, http.StatusBadRequest)
		return
	}
	writeJSON(w, h.session.Dispatch(state.SetImageSize{Size: req.Size}), http.StatusOK)
}

// RunFeature runs one AI feature for the current selection. The call blocks
// until the feature settles unless ?async=1 is given, in which case it
// returns 202 and the outcome shows up in /api/state.
func (h *Handler) RunFeature(w http.ResponseWriter, r *http.Request) {
	f, err := state.ParseFeature(r.PathValue("feature"))
	if err != nil {
		writeError(w, "Unknown feature", err.Error(), http.StatusNotFound)
		return
	}
	st, ok := h.session.TryStart(f)
	if !ok {
		switch {
		case !st.Selection.IsSelected():
			writeError(w, ErrNoSelection.Error(), "", http.StatusConflict)
		case st.StatusOf(f) == state.StatusLoading:
			writeError(w, "Feature already running", string(f), http.StatusConflict)
		default:
			writeError(w, "Feature unavailable", "speech needs a narrative first", http.StatusConflict)
		}
		return
	}
	name := st.Selection.Name()
	rec, found := h.Dataset().Find(name)
	if !found {
		h.session.Dispatch(state.Fail{Feature: f, Planet: name, Err: ErrNotFound})
		writeError(w, ErrNotFound.Error(), name, http.StatusNotFound)
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
			defer cancel()
			_ = h.run(ctx, f, rec, st)
		}()
		writeJSON(w, h.session.Snapshot(), http.StatusAccepted)
		return
	}

	if err := h.run(r.Context(), f, rec, st); err != nil {
		writeError(w, "Feature failed", err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, h.session.Snapshot(), http.StatusOK)
}

// run executes f and records the outcome against the planet it started for.
func (h *Handler) run(ctx context.Context, f state.Feature, rec planet.Record, st state.State) error {
	start := time.Now()
	done := state.Succeed{Feature: f, Planet: rec.Name}
	var err error
	finish := h.metrics.featureStarted(string(f))
	ctx, span := otel.Tracer(tracerName).Start(ctx, "feature."+string(f),
		trace.WithAttributes(attribute.String("exodash.planet", rec.Name)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		finish(err)
	}()
	switch f {
	case state.FeatureNarrative:
		done.Narrative, err = h.features.Narrative(ctx, rec)
	case state.FeatureSearch:
		var res ai.SearchResult
		if res, err = h.features.Search(ctx, rec); err == nil {
			done.Search = &res
		}
	case state.FeatureImage:
		var img ai.Image
		if img, err = h.features.Image(ctx, rec, st.ImageSize); err == nil {
			done.Image = &img
		}
	case state.FeatureSpeech:
		var audio ai.Audio
		if audio, err = h.features.Speech(ctx, st.Results.Narrative); err == nil {
			done.Audio = &audio
		}
	}
	if err != nil {
		h.log.Warn("feature failed", "feature", f, "planet", rec.Name, "kind", ai.KindOf(err), "error", err, "elapsed", time.Since(start))
		h.session.Dispatch(state.Fail{Feature: f, Planet: rec.Name, Err: err})
		return err
	}
	h.log.Info("feature done", "feature", f, "planet", rec.Name, "elapsed", time.Since(start))
	h.session.Dispatch(done)
	return nil
}

// GetAudio streams the last narration as a WAV file.
func (h *Handler) GetAudio(w http.ResponseWriter, r *http.Request) {
	audio := h.session.Snapshot().Results.Audio
	if audio == nil {
		writeError(w, "No audio", "run the speech feature first", http.StatusNotFound)
		return
	}
	wav, err := audio.WAV()
	if err != nil {
		writeError(w, "Failed to encode audio", err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeContent(w, r, "narration.wav", time.Time{}, bytes.NewReader(wav))
}

// GetImage serves the last generated image as raw bytes.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	img := h.session.Snapshot().Results.Image
	if img == nil {
		writeError(w, "No image", "run the image feature first", http.StatusNotFound)
		return
	}
	data, err := base64.StdEncoding.DecodeString(img.Data)
	if err != nil {
		writeError(w, "Failed to decode image", err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", img.MIMEType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// DashboardChart renders the scatter and discoveries charts, highlighting
// the current selection.
func (h *Handler) DashboardChart(w http.ResponseWriter, r *http.Request) {
	sel := h.session.Snapshot().Selection
	h.renderHTML(w, func(out io.Writer) error {
		return chart.Dashboard(out, h.Dataset().Records(), sel)
	})
}

// PlanetChart renders the size comparison and highlighted scatter for one planet.
func (h *Handler) PlanetChart(w http.ResponseWriter, r *http.Request) {
	ds := h.Dataset()
	rec, ok := ds.Find(r.PathValue("name"))
	if !ok {
		writeError(w, ErrNotFound.Error(), r.PathValue("name"), http.StatusNotFound)
		return
	}
	h.renderHTML(w, func(out io.Writer) error {
		return chart.PlanetPage(out, ds.Records(), rec)
	})
}

func (h *Handler) renderHTML(w http.ResponseWriter, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		h.log.Error("render chart", "error", err)
		writeError(w, "Failed to render chart", err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode json", "error", err)
	}
}

func writeError(w http.ResponseWriter, error, details string, statusCode int) {
	writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}
