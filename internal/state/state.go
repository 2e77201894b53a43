// Package state holds the dashboard's selection and AI feature progress.
//
// All transitions go through Update, which is pure; Session serializes
// access for concurrent HTTP handlers.
package state

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KaramelBytes/exodash/internal/ai"
	"github.com/KaramelBytes/exodash/internal/planet"
)

// Selection is either NoSelection (the zero value) or a selected planet name.
type Selection struct {
	name     string
	selected bool
}

// NoSelection is the empty selection.
var NoSelection = Selection{}

// Selected returns a selection of name.
func Selected(name string) Selection { return Selection{name: name, selected: true} }

// Select moves to the given record from any state.
func (Selection) Select(r planet.Record) Selection { return Selected(r.Name) }

// Clear moves to NoSelection from any state.
func (Selection) Clear() Selection { return NoSelection }

func (s Selection) IsSelected() bool { return s.selected }
func (s Selection) Name() string     { return s.name }

// Matches compares by planet name.
func (s Selection) Matches(r planet.Record) bool { return s.selected && s.name == r.Name }

// MarshalJSON renders null or the selected name.
func (s Selection) MarshalJSON() ([]byte, error) {
	if !s.selected {
		return []byte("null"), nil
	}
	return json.Marshal(s.name)
}

func (s *Selection) UnmarshalJSON(b []byte) error {
	var name *string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	if name == nil {
		*s = NoSelection
		return nil
	}
	*s = Selected(*name)
	return nil
}

func (s Selection) String() string {
	if !s.selected {
		return "<none>"
	}
	return s.name
}

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type Feature string

const (
	FeatureNarrative Feature = "narrative"
	FeatureSpeech    Feature = "speech"
	FeatureSearch    Feature = "search"
	FeatureImage     Feature = "image"
)

// Features lists every AI feature in display order.
var Features = []Feature{FeatureNarrative, FeatureSpeech, FeatureSearch, FeatureImage}

// ParseFeature accepts a feature name case-insensitively.
func ParseFeature(s string) (Feature, error) {
	for _, f := range Features {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown feature %q", s)
}

// Results holds the latest successful output of each feature.
type Results struct {
	Narrative string           `json:"narrative,omitempty"`
	Search    *ai.SearchResult `json:"search,omitempty"`
	Image     *ai.Image        `json:"image,omitempty"`
	Audio     *ai.Audio        `json:"-"`
}

// State is the whole dashboard state. Values are treated as immutable;
// Update returns a fresh copy.
type State struct {
	Records   int                `json:"records"`
	Selection Selection          `json:"selection"`
	Status    map[Feature]Status `json:"status"`
	Errors    map[Feature]string `json:"errors,omitempty"`
	Results   Results            `json:"results"`
	HasAudio  bool               `json:"has_audio"`
	ImageSize string             `json:"image_size"`
}

// New returns the initial state for a dataset of n records.
func New(n int) State {
	return State{
		Records:   n,
		Selection: NoSelection,
		Status:    idleStatuses(),
		ImageSize: ai.DefaultImageSize,
	}
}

func idleStatuses() map[Feature]Status {
	m := make(map[Feature]Status, len(Features))
	for _, f := range Features {
		m[f] = StatusIdle
	}
	return m
}

// StatusOf returns the status of f, idle when unset.
func (s State) StatusOf(f Feature) Status {
	if st, ok := s.Status[f]; ok {
		return st
	}
	return StatusIdle
}

// Busy reports whether any feature is loading.
func (s State) Busy() bool {
	for _, f := range Features {
		if s.StatusOf(f) == StatusLoading {
			return true
		}
	}
	return false
}

func (s State) clone() State {
	out := s
	out.Status = make(map[Feature]Status, len(s.Status))
	for k, v := range s.Status {
		out.Status[k] = v
	}
	if s.Errors != nil {
		out.Errors = make(map[Feature]string, len(s.Errors))
		for k, v := range s.Errors {
			out.Errors[k] = v
		}
	}
	return out
}

// resetFeatures drops every feature status and result; used on planet change.
func (s State) resetFeatures() State {
	s.Status = idleStatuses()
	s.Errors = nil
	s.Results = Results{}
	s.HasAudio = false
	return s
}
