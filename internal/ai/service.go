package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KaramelBytes/exodash/internal/planet"
	"github.com/KaramelBytes/exodash/internal/reference"
	"github.com/KaramelBytes/exodash/internal/utils"
)

const tracerName = "github.com/KaramelBytes/exodash/internal/ai"

// MaxSpeechTokens caps the text sent to the TTS model.
const MaxSpeechTokens = 4000

var (
	// ErrNoImage is returned when the image model answers without inline image data.
	ErrNoImage = errors.New("model returned no image")
	// ErrNoAudio is returned when the TTS model answers without inline audio.
	ErrNoAudio = errors.New("model returned no audio")
	// ErrEmptyText is returned when speech is requested for blank text.
	ErrEmptyText = errors.New("no text to speak")
)

// Source is one grounding citation.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SearchResult is a grounded answer with the web pages it drew on.
type SearchResult struct {
	Content string   `json:"content"`
	Sources []Source `json:"urls"`
}

// Image is a generated rendering.
type Image struct {
	MIMEType    string `json:"mime_type"`
	Data        string `json:"data"` // base64
	Size        string `json:"size"`
	Description string `json:"description,omitempty"`
}

// DataURL renders the image as a data: URL for direct embedding.
func (i Image) DataURL() string {
	mt := i.MIMEType
	if mt == "" {
		mt = "image/png"
	}
	return "data:" + mt + ";base64," + i.Data
}

// Store is an optional artifact cache keyed by planet, feature and variant.
type Store interface {
	Get(ctx context.Context, planet, feature, variant string, v any) (bool, error)
	Put(ctx context.Context, planet, feature, variant string, v any) error
}

// Models selects the model for each feature.
type Models struct {
	Text  string
	Image string
	TTS   string
	Voice string
}

// DefaultModels returns the stock Gemini models.
func DefaultModels() Models {
	return Models{Text: DefaultTextModel, Image: DefaultImageModel, TTS: DefaultTTSModel, Voice: DefaultVoice}
}

// Service runs the AI features for a single planet record.
type Service struct {
	rt     Runtime
	models Models
	store  Store
	log    *slog.Logger
	tracer trace.Tracer
}

type Option func(*Service)

func WithModels(m Models) Option {
	return func(s *Service) {
		d := DefaultModels()
		if m.Text == "" {
			m.Text = d.Text
		}
		if m.Image == "" {
			m.Image = d.Image
		}
		if m.TTS == "" {
			m.TTS = d.TTS
		}
		if m.Voice == "" {
			m.Voice = d.Voice
		}
		s.models = m
	}
}

func WithStore(st Store) Option { return func(s *Service) { s.store = st } }

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTracerProvider traces model calls with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

func NewService(rt Runtime, opts ...Option) *Service {
	s := &Service{rt: rt, models: DefaultModels(), log: slog.Default(), tracer: otel.Tracer(tracerName)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Models returns the models in use.
func (s *Service) Models() Models { return s.models }

func (s *Service) call(ctx context.Context, feature, model string, req GenerateContentRequest) (*GenerateContentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "gemini.generateContent", trace.WithAttributes(
		attribute.String("exodash.feature", feature),
		attribute.String("gemini.model", model),
	))
	defer span.End()

	start := time.Now()
	resp, err := s.rt.GenerateContent(ctx, model, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Warn("model call failed", "feature", feature, "model", model, "elapsed", time.Since(start), "err", err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("gemini.tokens", resp.UsageMetadata.TotalTokenCount),
		attribute.String("gemini.request_id", resp.RequestID),
	)
	s.log.Debug("model call", "feature", feature, "model", model, "elapsed", time.Since(start),
		"tokens", resp.UsageMetadata.TotalTokenCount, "request_id", resp.RequestID)
	return resp, nil
}

func (s *Service) cached(ctx context.Context, name, feature, variant string, v any) bool {
	if s.store == nil {
		return false
	}
	ok, err := s.store.Get(ctx, name, feature, variant, v)
	if err != nil {
		s.log.Warn("cache read failed", "planet", name, "feature", feature, "err", err)
		return false
	}
	return ok
}

func (s *Service) remember(ctx context.Context, name, feature, variant string, v any) {
	if s.store == nil {
		return
	}
	if err := s.store.Put(ctx, name, feature, variant, v); err != nil {
		s.log.Warn("cache write failed", "planet", name, "feature", feature, "err", err)
	}
}

func refFor(r planet.Record) *reference.Reference {
	if ref, ok := reference.Extract(r.ReferenceMarkup); ok {
		return &ref
	}
	return nil
}

func groundedRequest(prompt string) GenerateContentRequest {
	req := TextRequest(prompt)
	req.Tools = []Tool{SearchTool()}
	return req
}

// Narrative writes a short story about r, grounded on its discovery paper when known.
func (s *Service) Narrative(ctx context.Context, r planet.Record) (string, error) {
	var text string
	if s.cached(ctx, r.Name, "narrative", "", &text) {
		return text, nil
	}
	resp, err := s.call(ctx, "narrative", s.models.Text, groundedRequest(NarrativePrompt(r, refFor(r))))
	if err != nil {
		return "", fmt.Errorf("narrative: %w", err)
	}
	text = strings.TrimSpace(resp.Text())
	if text == "" {
		return NoNarrative, nil
	}
	s.remember(ctx, r.Name, "narrative", "", text)
	return text, nil
}

// Search asks a grounded question about r and returns the answer with its sources.
func (s *Service) Search(ctx context.Context, r planet.Record) (SearchResult, error) {
	var res SearchResult
	if s.cached(ctx, r.Name, "search", "", &res) {
		return res, nil
	}
	resp, err := s.call(ctx, "search", s.models.Text, groundedRequest(SearchPrompt(r)))
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	res = SearchResult{Content: strings.TrimSpace(resp.Text()), Sources: resp.Sources()}
	if res.Content == "" {
		res.Content = NoSearchResults
		return res, nil
	}
	s.remember(ctx, r.Name, "search", "", res)
	return res, nil
}

// ImageDescription produces a prompt for the image model. It never fails:
// errors and empty answers fall back to a generic description.
func (s *Service) ImageDescription(ctx context.Context, r planet.Record) string {
	resp, err := s.call(ctx, "image-description", s.models.Text, groundedRequest(ImageDescriptionPrompt(r, refFor(r))))
	if err != nil {
		return FallbackImageDescription(r.Name)
	}
	if text := strings.TrimSpace(resp.Text()); text != "" {
		return text
	}
	return FallbackImageDescription(r.Name)
}

// Image describes r and then renders the description at the given size.
func (s *Service) Image(ctx context.Context, r planet.Record, size string) (Image, error) {
	size = NormalizeImageSize(size)
	var img Image
	if s.cached(ctx, r.Name, "image", size, &img) {
		return img, nil
	}
	desc := s.ImageDescription(ctx, r)
	req := GenerateContentRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: ImagePrompt(desc)}}}},
		GenerationConfig: &GenerationConfig{
			ImageConfig: &ImageConfig{AspectRatio: "16:9", ImageSize: size},
		},
	}
	resp, err := s.call(ctx, "image", s.models.Image, req)
	if err != nil {
		return Image{}, fmt.Errorf("image: %w", err)
	}
	data, ok := resp.FirstInlineData()
	if !ok {
		return Image{}, ErrNoImage
	}
	img = Image{MIMEType: data.MIMEType, Data: data.Data, Size: size, Description: desc}
	if img.MIMEType == "" {
		img.MIMEType = "image/png"
	}
	s.remember(ctx, r.Name, "image", size, img)
	return img, nil
}

// Speech reads text aloud with the configured voice.
func (s *Service) Speech(ctx context.Context, text string) (Audio, error) {
	if strings.TrimSpace(text) == "" {
		return Audio{}, ErrEmptyText
	}
	if utils.CountTokens(text) > MaxSpeechTokens {
		s.log.Debug("speech text truncated", "tokens", utils.CountTokens(text), "limit", MaxSpeechTokens)
		text = utils.TruncateToTokenLimit(text, MaxSpeechTokens)
	}
	req := GenerateContentRequest{
		Contents: []Content{{Parts: []Part{{Text: text}}}},
		GenerationConfig: &GenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &SpeechConfig{VoiceConfig: &VoiceConfig{
				PrebuiltVoiceConfig: &PrebuiltVoiceConfig{VoiceName: s.models.Voice},
			}},
		},
	}
	resp, err := s.call(ctx, "speech", s.models.TTS, req)
	if err != nil {
		return Audio{}, fmt.Errorf("speech: %w", err)
	}
	data, ok := resp.FirstInlineData()
	if !ok {
		return Audio{}, ErrNoAudio
	}
	return newAudio(data), nil
}
