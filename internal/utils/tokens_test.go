package utils_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KaramelBytes/exodash/internal/utils"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		min  int
	}{
		{"empty", "", 0},
		{"simple", "hello world", 2},
		{"long", strings.Repeat("a", 4000), 900},
	}
	for _, c := range cases {
		assert.GreaterOrEqual(t, utils.CountTokens(c.in), c.min, c.name)
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	text := strings.Repeat("abcd ", 1000)
	trunc := utils.TruncateToTokenLimit(text, 300)
	assert.LessOrEqual(t, utils.CountTokens(trunc), 300)
	assert.NotEmpty(t, trunc)

	assert.Equal(t, "short", utils.TruncateToTokenLimit("short", 10))
	assert.Empty(t, utils.TruncateToTokenLimit("anything", 0))
}

func TestTruncateEndsOnSentence(t *testing.T) {
	text := strings.Repeat("The planet orbits. ", 20)
	trunc := utils.TruncateToTokenLimit(text, 20)
	assert.True(t, strings.HasSuffix(trunc, "."), trunc)
	assert.LessOrEqual(t, len(trunc), 80)
}
