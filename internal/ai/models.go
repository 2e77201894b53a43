package ai

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Default model per feature.
const (
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "gemini-3-pro-image-preview"
	DefaultTTSModel   = "gemini-2.5-flash-preview-tts"
	DefaultVoice      = "Kore"
)

// Output modalities.
const (
	OutputText  = "text"
	OutputImage = "image"
	OutputAudio = "audio"
)

type ModelInfo struct {
	Name   string `json:"name"`
	Output string `json:"output"`
	// Grounding reports whether the model accepts the google_search tool.
	Grounding bool   `json:"grounding"`
	Notes     string `json:"notes,omitempty"`
}

var models = map[string]ModelInfo{
	"gemini-2.5-flash": {
		Name:      "gemini-2.5-flash",
		Output:    OutputText,
		Grounding: true,
		Notes:     "narrative, search, image description",
	},
	"gemini-2.5-pro": {
		Name:      "gemini-2.5-pro",
		Output:    OutputText,
		Grounding: true,
	},
	"gemini-3-pro-image-preview": {
		Name:   "gemini-3-pro-image-preview",
		Output: OutputImage,
		Notes:  "supports imageSize 1K/2K/4K",
	},
	"gemini-2.5-flash-image": {
		Name:   "gemini-2.5-flash-image",
		Output: OutputImage,
	},
	"gemini-2.5-flash-preview-tts": {
		Name:   "gemini-2.5-flash-preview-tts",
		Output: OutputAudio,
		Notes:  "24kHz mono PCM",
	},
	"gemini-2.5-pro-preview-tts": {
		Name:   "gemini-2.5-pro-preview-tts",
		Output: OutputAudio,
	},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// CheckModel warns about a configured model that is known to produce a different
// output than the feature needs. Unknown models pass.
func CheckModel(name, output string) error {
	mi, ok := LookupModel(name)
	if !ok || mi.Output == output {
		return nil
	}
	return fmt.Errorf("model %s produces %s, not %s", name, mi.Output, output)
}

// catalogSchema constrains a catalog file: an object of model entries keyed by name.
const catalogSchema = `{
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "required": ["output"],
    "additionalProperties": false,
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "output": {"enum": ["text", "image", "audio"]},
      "grounding": {"type": "boolean"},
      "notes": {"type": "string"}
    }
  }
}`

var catalogSchemaLoader = gojsonschema.NewStringLoader(catalogSchema)

// LoadCatalogFromJSON loads a JSON object map[string]ModelInfo from a file path.
// The file is validated against catalogSchema before decoding.
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := gojsonschema.Validate(catalogSchemaLoader, gojsonschema.NewBytesLoader(b))
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("invalid catalog: %s", strings.Join(msgs, "; "))
	}
	var m map[string]ModelInfo
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// MergeCatalog merges/overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
		}
		models[k] = v
	}
}

// Catalog returns the catalog sorted by output then name.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, v := range models {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Output != out[j].Output {
			return out[i].Output < out[j].Output
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Image sizes accepted by the image model.
var ImageSizes = []string{"1K", "2K", "4K"}

// DefaultImageSize is used when none is chosen.
const DefaultImageSize = "1K"

// ValidImageSize reports whether s is one of ImageSizes (case-insensitive).
func ValidImageSize(s string) bool {
	for _, v := range ImageSizes {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// NormalizeImageSize upper-cases a valid size, or returns DefaultImageSize.
func NormalizeImageSize(s string) string {
	if ValidImageSize(s) {
		return strings.ToUpper(s)
	}
	return DefaultImageSize
}
