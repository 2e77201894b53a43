package state

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/exodash/internal/ai"
	"github.com/KaramelBytes/exodash/internal/planet"
)

func TestSelectionTransitions(t *testing.T) {
	r := planet.Record{Name: "TOI-700 d"}

	sel := NoSelection.Select(r)
	assert.True(t, sel.IsSelected())
	assert.Equal(t, "TOI-700 d", sel.Name())
	assert.True(t, sel.Matches(r))
	assert.False(t, sel.Matches(planet.Record{Name: "TOI-700 e"}))

	assert.Equal(t, NoSelection, sel.Clear())
	assert.Equal(t, NoSelection, NoSelection.Clear())
	assert.False(t, NoSelection.Matches(planet.Record{}), "empty name never matches without a selection")

	other := sel.Select(planet.Record{Name: "TOI-270 b"})
	assert.Equal(t, Selected("TOI-270 b"), other)
}

func TestSelectionJSON(t *testing.T) {
	b, err := json.Marshal(struct{ S Selection }{NoSelection})
	require.NoError(t, err)
	assert.JSONEq(t, `{"S":null}`, string(b))

	b, err = json.Marshal(Selected("x"))
	require.NoError(t, err)
	assert.Equal(t, `"x"`, string(b))

	var s Selection
	require.NoError(t, json.Unmarshal([]byte(`"y"`), &s))
	assert.Equal(t, Selected("y"), s)
	require.NoError(t, json.Unmarshal([]byte(`null`), &s))
	assert.Equal(t, NoSelection, s)
}

func TestUpdateIsPure(t *testing.T) {
	s0 := New(3)
	s1 := Update(s0, Select{Name: "a"})
	s2 := Update(s1, Start{Feature: FeatureNarrative})

	assert.Equal(t, NoSelection, s0.Selection)
	assert.Equal(t, StatusIdle, s1.StatusOf(FeatureNarrative))
	assert.Equal(t, StatusLoading, s2.StatusOf(FeatureNarrative))
	assert.Equal(t, s0, Update(s0, nil))
}

func TestFeatureLifecycle(t *testing.T) {
	s := Update(New(1), Select{Name: "a"})

	// Speech needs a narrative first.
	assert.False(t, CanStart(s, FeatureSpeech))
	assert.Equal(t, StatusIdle, Update(s, Start{Feature: FeatureSpeech}).StatusOf(FeatureSpeech))

	s = Update(s, Start{Feature: FeatureNarrative})
	assert.True(t, s.Busy())
	s = Update(s, Succeed{Feature: FeatureNarrative, Planet: "a", Narrative: "story"})
	assert.Equal(t, StatusSuccess, s.StatusOf(FeatureNarrative))
	assert.Equal(t, "story", s.Results.Narrative)
	assert.False(t, s.Busy())

	s = Update(s, Start{Feature: FeatureSpeech})
	assert.Equal(t, StatusLoading, s.StatusOf(FeatureSpeech))
	s = Update(s, Succeed{Feature: FeatureSpeech, Planet: "a", Audio: &ai.Audio{Data: "AA=="}})
	assert.True(t, s.HasAudio)

	s = Update(s, Start{Feature: FeatureImage})
	s = Update(s, Fail{Feature: FeatureImage, Planet: "a", Err: errors.New("quota")})
	assert.Equal(t, StatusError, s.StatusOf(FeatureImage))
	assert.Equal(t, "quota", s.Errors[FeatureImage])

	// Retrying clears the error.
	s = Update(s, Start{Feature: FeatureImage})
	assert.Equal(t, StatusLoading, s.StatusOf(FeatureImage))
	assert.NotContains(t, s.Errors, FeatureImage)
}

func TestNothingStartsWithoutSelection(t *testing.T) {
	s := New(0)
	for _, f := range Features {
		assert.False(t, CanStart(s, f), f)
		assert.Equal(t, StatusIdle, Update(s, Start{Feature: f}).StatusOf(f))
	}
}

func TestPlanetChangeResetsFeatures(t *testing.T) {
	s := Update(New(2), Select{Name: "a"})
	s = Update(s, Start{Feature: FeatureSearch})
	s = Update(s, Succeed{Feature: FeatureSearch, Planet: "a", Search: &ai.SearchResult{Content: "x"}})
	require.NotNil(t, s.Results.Search)

	same := Update(s, Select{Name: "a"})
	assert.Equal(t, StatusSuccess, same.StatusOf(FeatureSearch), "reselecting keeps results")

	moved := Update(s, Select{Name: "b"})
	assert.Equal(t, Selected("b"), moved.Selection)
	assert.Nil(t, moved.Results.Search)
	for _, f := range Features {
		assert.Equal(t, StatusIdle, moved.StatusOf(f))
	}

	cleared := Update(s, Clear{})
	assert.Equal(t, NoSelection, cleared.Selection)
	assert.Nil(t, cleared.Results.Search)
}

func TestStaleCompletionDropped(t *testing.T) {
	s := Update(New(2), Select{Name: "a"})
	s = Update(s, Start{Feature: FeatureNarrative})
	s = Update(s, Select{Name: "b"})

	after := Update(s, Succeed{Feature: FeatureNarrative, Planet: "a", Narrative: "late"})
	assert.Empty(t, after.Results.Narrative)
	assert.Equal(t, StatusIdle, after.StatusOf(FeatureNarrative))

	after = Update(s, Fail{Feature: FeatureNarrative, Planet: "a", Err: errors.New("late")})
	assert.Empty(t, after.Errors)

	// A completion for a feature that was never started is ignored too.
	after = Update(s, Succeed{Feature: FeatureImage, Planet: "b", Image: &ai.Image{}})
	assert.Nil(t, after.Results.Image)
}

func TestSetImageSize(t *testing.T) {
	s := New(0)
	assert.Equal(t, "1K", s.ImageSize)
	assert.Equal(t, "4K", Update(s, SetImageSize{Size: "4k"}).ImageSize)
	assert.Equal(t, "1K", Update(s, SetImageSize{Size: "16K"}).ImageSize)
}

func TestParseFeature(t *testing.T) {
	f, err := ParseFeature("Speech")
	require.NoError(t, err)
	assert.Equal(t, FeatureSpeech, f)
	_, err = ParseFeature("video")
	assert.Error(t, err)
}

func TestSessionConcurrent(t *testing.T) {
	sess := NewSession(New(10))
	sess.Dispatch(Select{Name: "a"})

	var wg sync.WaitGroup
	started := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := sess.TryStart(FeatureSearch)
			started <- ok
		}()
	}
	wg.Wait()
	close(started)

	n := 0
	for ok := range started {
		if ok {
			n++
		}
	}
	assert.Equal(t, 1, n, "only one concurrent start wins")
	assert.Equal(t, StatusLoading, sess.Snapshot().StatusOf(FeatureSearch))

	snap := sess.Snapshot()
	snap.Status[FeatureSearch] = StatusError
	assert.Equal(t, StatusLoading, sess.Snapshot().StatusOf(FeatureSearch), "snapshots are copies")
}

func TestReload(t *testing.T) {
	s := Update(New(2), Select{Name: "a"})
	s = Update(s, Start{Feature: FeatureSearch})
	s = Update(s, Succeed{Feature: FeatureSearch, Planet: "a", Search: &ai.SearchResult{Content: "x"}})

	onlyA := func(name string) bool { return name == "a" }
	kept := Update(s, Reload{Records: 5, Has: onlyA})
	assert.Equal(t, 5, kept.Records)
	assert.Equal(t, Selected("a"), kept.Selection)
	assert.NotNil(t, kept.Results.Search)

	gone := Update(s, Reload{Records: 1})
	assert.Equal(t, 1, gone.Records)
	assert.Equal(t, NoSelection, gone.Selection)
	assert.Nil(t, gone.Results.Search)
	assert.Equal(t, StatusIdle, gone.StatusOf(FeatureSearch))

	missing := Update(s, Reload{Records: 4, Has: func(string) bool { return false }})
	assert.Equal(t, NoSelection, missing.Selection)
}

func TestReloadChecksSelectionHeldAtDispatch(t *testing.T) {
	sess := NewSession(New(2))
	sess.Dispatch(Select{Name: "a"})
	reload := Reload{Records: 1, Has: func(name string) bool { return name == "a" }}

	// The selection moves to a planet the new data lacks before the reload lands.
	sess.Dispatch(Select{Name: "b"})
	st := sess.Dispatch(reload)
	assert.Equal(t, NoSelection, st.Selection)
	assert.Equal(t, 1, st.Records)
}
