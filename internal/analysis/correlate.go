package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/exodash/internal/planet"
)

// MinCorrSamples is the fewest records with both values known before a pair
// gets a coefficient.
const MinCorrSamples = 3

// CorrMatrix holds a symmetric Pearson correlation matrix across planet properties.
// Pairs with too few shared samples are 0.
type CorrMatrix struct {
	Keys   []string    `json:"keys" yaml:"keys" toml:"keys"`
	Values [][]float64 `json:"values" yaml:"values" toml:"values"` // row-major, Values[i][j]
	N      [][]int     `json:"n" yaml:"n" toml:"n"`
}

// PairCorr is one correlation between two properties.
type PairCorr struct {
	A string  `json:"a" yaml:"a" toml:"a"`
	B string  `json:"b" yaml:"b" toml:"b"`
	R float64 `json:"r" yaml:"r" toml:"r"`
	N int     `json:"n" yaml:"n" toml:"n"`
}

type pairAcc struct {
	n                               float64
	sumX, sumY, sumXX, sumYY, sumXY float64
}

func (p *pairAcc) add(x, y float64) {
	p.n++
	p.sumX += x
	p.sumY += y
	p.sumXX += x * x
	p.sumYY += y * y
	p.sumXY += x * y
}

func (p *pairAcc) r() float64 {
	if p.n < MinCorrSamples {
		return 0
	}
	denom := math.Sqrt((p.n*p.sumXX - p.sumX*p.sumX) * (p.n*p.sumYY - p.sumY*p.sumY))
	if denom == 0 {
		return 0
	}
	r := (p.n*p.sumXY - p.sumX*p.sumY) / denom
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

// Correlations computes pairwise Pearson coefficients over the log10 of each
// property, skipping records where either side is unknown or non-positive.
func Correlations(records []planet.Record) CorrMatrix {
	props := planet.Properties
	n := len(props)
	acc := make([][]pairAcc, n)
	for i := range acc {
		acc[i] = make([]pairAcc, n)
	}
	logs := make([]float64, n)
	known := make([]bool, n)
	for _, r := range records {
		for i, p := range props {
			v := p.Value(r)
			known[i] = v > 0
			if known[i] {
				logs[i] = math.Log10(v)
			}
		}
		for i := 1; i < n; i++ {
			if !known[i] {
				continue
			}
			for j := 0; j < i; j++ {
				if known[j] {
					acc[i][j].add(logs[i], logs[j])
				}
			}
		}
	}

	m := CorrMatrix{Keys: make([]string, n), Values: make([][]float64, n), N: make([][]int, n)}
	for i, p := range props {
		m.Keys[i] = p.Key
		m.Values[i] = make([]float64, n)
		m.N[i] = make([]int, n)
	}
	for i := 0; i < n; i++ {
		m.Values[i][i] = 1
		for j := 0; j < i; j++ {
			r, cnt := acc[i][j].r(), int(acc[i][j].n)
			m.Values[i][j], m.Values[j][i] = r, r
			m.N[i][j], m.N[j][i] = cnt, cnt
		}
	}
	return m
}

// TopPairs returns up to k off-diagonal pairs ordered by |r| descending.
func (m CorrMatrix) TopPairs(k int) []PairCorr {
	var out []PairCorr
	for i := range m.Keys {
		for j := 0; j < i; j++ {
			if m.N[i][j] < MinCorrSamples || m.Values[i][j] == 0 {
				continue
			}
			out = append(out, PairCorr{A: m.Keys[j], B: m.Keys[i], R: m.Values[i][j], N: m.N[i][j]})
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		ra, rb := math.Abs(out[a].R), math.Abs(out[b].R)
		if ra != rb {
			return ra > rb
		}
		if out[a].A != out[b].A {
			return out[a].A < out[b].A
		}
		return out[a].B < out[b].B
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// medianMAD computes the median and median absolute deviation of vals.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
