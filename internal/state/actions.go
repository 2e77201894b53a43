package state

import (
	"github.com/KaramelBytes/exodash/internal/ai"
)

// Action is a state transition applied by Update.
type Action interface {
	apply(State) State
}

// Select focuses a planet. Re-selecting the current planet is a no-op;
// any other change resets feature progress.
type Select struct{ Name string }

// Clear drops the selection and resets feature progress.
type Clear struct{}

// SetImageSize picks the resolution for the next image. Invalid sizes are ignored.
type SetImageSize struct{ Size string }

// Start marks a feature loading for the current selection.
type Start struct{ Feature Feature }

// Succeed records a feature result for Planet. Only the field matching
// Feature is read.
type Succeed struct {
	Feature   Feature
	Planet    string
	Narrative string
	Search    *ai.SearchResult
	Image     *ai.Image
	Audio     *ai.Audio
}

// Reload swaps in a dataset of Records planets. The selection is kept only
// if Has reports that planet; a nil Has clears it.
type Reload struct {
	Records int
	Has     func(name string) bool
}

// Fail records a feature error for Planet.
type Fail struct {
	Feature Feature
	Planet  string
	Err     error
}

// Update applies a to s and returns the new state. s is not modified.
func Update(s State, a Action) State {
	if a == nil {
		return s
	}
	return a.apply(s.clone())
}

func (a Select) apply(s State) State {
	if s.Selection.IsSelected() && s.Selection.Name() == a.Name {
		return s
	}
	s = s.resetFeatures()
	s.Selection = Selected(a.Name)
	return s
}

func (Clear) apply(s State) State {
	if !s.Selection.IsSelected() {
		return s
	}
	s = s.resetFeatures()
	s.Selection = s.Selection.Clear()
	return s
}

func (a Reload) apply(s State) State {
	s.Records = a.Records
	if s.Selection.IsSelected() && (a.Has == nil || !a.Has(s.Selection.Name())) {
		s = s.resetFeatures()
		s.Selection = s.Selection.Clear()
	}
	return s
}

func (a SetImageSize) apply(s State) State {
	if ai.ValidImageSize(a.Size) {
		s.ImageSize = ai.NormalizeImageSize(a.Size)
	}
	return s
}

// CanStart reports whether f may begin in s.
func CanStart(s State, f Feature) bool {
	if !s.Selection.IsSelected() || s.StatusOf(f) == StatusLoading {
		return false
	}
	if f == FeatureSpeech && s.Results.Narrative == "" {
		return false
	}
	return true
}

func (a Start) apply(s State) State {
	if !CanStart(s, a.Feature) {
		return s
	}
	s.Status[a.Feature] = StatusLoading
	delete(s.Errors, a.Feature)
	return s
}

// current reports whether a completion for planet/feature still applies.
func current(s State, planet string, f Feature) bool {
	return s.Selection.IsSelected() && s.Selection.Name() == planet && s.StatusOf(f) == StatusLoading
}

func (a Succeed) apply(s State) State {
	if !current(s, a.Planet, a.Feature) {
		return s
	}
	switch a.Feature {
	case FeatureNarrative:
		s.Results.Narrative = a.Narrative
	case FeatureSearch:
		s.Results.Search = a.Search
	case FeatureImage:
		s.Results.Image = a.Image
	case FeatureSpeech:
		s.Results.Audio = a.Audio
		s.HasAudio = a.Audio != nil
	}
	s.Status[a.Feature] = StatusSuccess
	return s
}

func (a Fail) apply(s State) State {
	if !current(s, a.Planet, a.Feature) {
		return s
	}
	s.Status[a.Feature] = StatusError
	if s.Errors == nil {
		s.Errors = map[Feature]string{}
	}
	msg := "failed"
	if a.Err != nil {
		msg = a.Err.Error()
	}
	s.Errors[a.Feature] = msg
	return s
}
