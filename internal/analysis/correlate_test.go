package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/exodash/internal/planet"
)

func indexOf(keys []string, k string) int {
	for i, v := range keys {
		if v == k {
			return i
		}
	}
	return -1
}

func TestCorrelationsLogSpace(t *testing.T) {
	// radius = period^2 and mass = 1/period are exact power laws.
	recs := []planet.Record{
		{OrbitalPeriod: 1, Radius: 1, Mass: 1},
		{OrbitalPeriod: 10, Radius: 100, Mass: 0.1},
		{OrbitalPeriod: 100, Radius: 10000, Mass: 0.01},
		{OrbitalPeriod: 1000, Radius: 0, Mass: 0.001},
	}
	m := Correlations(recs)
	p := indexOf(m.Keys, planet.ColOrbitalPeriod)
	r := indexOf(m.Keys, planet.ColRadius)
	ms := indexOf(m.Keys, planet.ColMass)
	require.True(t, p >= 0 && r >= 0 && ms >= 0)

	assert.InDelta(t, 1.0, m.Values[p][r], 1e-9)
	assert.InDelta(t, 1.0, m.Values[r][p], 1e-9)
	assert.Equal(t, 3, m.N[p][r], "unknown radius drops the fourth record")
	assert.InDelta(t, -1.0, m.Values[p][ms], 1e-9)
	assert.Equal(t, 4, m.N[p][ms])
	assert.Equal(t, 1.0, m.Values[p][p])

	// Too few shared samples.
	d := indexOf(m.Keys, planet.ColDistance)
	assert.Zero(t, m.Values[p][d])

	top := m.TopPairs(2)
	require.Len(t, top, 2)
	for _, c := range top {
		assert.InDelta(t, 1.0, abs(c.R), 1e-9)
	}
}

func TestCorrelationsEmpty(t *testing.T) {
	m := Correlations(nil)
	assert.Len(t, m.Keys, len(planet.Properties))
	assert.Empty(t, m.TopPairs(5))
}

func TestMedianMAD(t *testing.T) {
	med, mad := medianMAD([]float64{1, 2, 3, 4, 100})
	assert.Equal(t, 3.0, med)
	assert.Equal(t, 1.0, mad)

	med, _ = medianMAD([]float64{4, 1, 3, 2})
	assert.Equal(t, 2.5, med)

	med, mad = medianMAD(nil)
	assert.Zero(t, med)
	assert.Zero(t, mad)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
