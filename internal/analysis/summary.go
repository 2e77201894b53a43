package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/exodash/internal/planet"
)

// PropertyStat summarizes one numeric property over the records that carry it.
// Zero values are treated as unknown and excluded.
type PropertyStat struct {
	Key     string  `json:"key" yaml:"key" toml:"key"`
	Label   string  `json:"label" yaml:"label" toml:"label"`
	Unit    string  `json:"unit,omitempty" yaml:"unit,omitempty" toml:"unit,omitempty"`
	Known   int     `json:"known" yaml:"known" toml:"known"`
	Unknown int     `json:"unknown" yaml:"unknown" toml:"unknown"`
	Min     float64 `json:"min" yaml:"min" toml:"min"`
	Max     float64 `json:"max" yaml:"max" toml:"max"`
	Mean    float64 `json:"mean" yaml:"mean" toml:"mean"`
	Std     float64 `json:"std" yaml:"std" toml:"std"`
	Median  float64 `json:"median" yaml:"median" toml:"median"`
	MAD     float64 `json:"mad" yaml:"mad" toml:"mad"`
}

// PropertyStats computes min/max/mean/std per numeric property using Welford's
// method, plus the median and median absolute deviation.
func PropertyStats(records []planet.Record) []PropertyStat {
	out := make([]PropertyStat, 0, len(planet.Properties))
	for _, p := range planet.Properties {
		st := PropertyStat{Key: p.Key, Label: p.Label, Unit: p.Unit}
		var n int
		var mean, m2 float64
		lo, hi := math.Inf(1), math.Inf(-1)
		vals := make([]float64, 0, len(records))
		for _, r := range records {
			v := p.Value(r)
			if v == 0 {
				st.Unknown++
				continue
			}
			vals = append(vals, v)
			n++
			d := v - mean
			mean += d / float64(n)
			m2 += d * (v - mean)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		st.Known = n
		if n > 0 {
			st.Min, st.Max, st.Mean = lo, hi, mean
		}
		if n > 1 {
			st.Std = math.Sqrt(m2 / float64(n-1))
		}
		st.Median, st.MAD = medianMAD(vals)
		out = append(out, st)
	}
	return out
}

// Summary is the derived view of a record collection, recomputed on demand.
type Summary struct {
	Source          string         `json:"source,omitempty" yaml:"source,omitempty" toml:"source,omitempty"`
	Total           int            `json:"total" yaml:"total" toml:"total"`
	UniqueHosts     int            `json:"unique_hosts" yaml:"unique_hosts" toml:"unique_hosts"`
	LatestYear      *int           `json:"latest_year" yaml:"latest_year" toml:"latest_year"`
	PerYear         []YearCount    `json:"per_year" yaml:"per_year" toml:"per_year"`
	Plottable       int            `json:"plottable" yaml:"plottable" toml:"plottable"`
	MinYear         int            `json:"min_year" yaml:"min_year" toml:"min_year"`
	MaxYear         int            `json:"max_year" yaml:"max_year" toml:"max_year"`
	DiscoveryMethod map[string]int `json:"discovery_methods" yaml:"discovery_methods" toml:"discovery_methods"`
	Properties      []PropertyStat `json:"properties" yaml:"properties" toml:"properties"`
	Correlations    []PairCorr     `json:"correlations" yaml:"correlations" toml:"correlations"`
}

// TopCorrelations is how many pairs Summarize keeps.
const TopCorrelations = 5

// Summarize computes every aggregate the dashboard shows.
func Summarize(records []planet.Record) Summary {
	s := Summary{
		Total:           TotalCount(records),
		UniqueHosts:     UniqueHostCount(records),
		PerYear:         DiscoveriesPerYear(records),
		DiscoveryMethod: map[string]int{},
		Properties:      PropertyStats(records),
		Correlations:    Correlations(records).TopPairs(TopCorrelations),
	}
	if y, ok := LatestDiscoveryYear(records); ok {
		s.LatestYear = &y
	}
	series := PlottableSeries(records)
	s.Plottable = len(series)
	s.MinYear, s.MaxYear = YearDomain(series)
	for _, r := range records {
		if r.Method != "" {
			s.DiscoveryMethod[r.Method]++
		}
	}
	return s
}

// LatestYearLabel renders the latest year or "N/A".
func (s Summary) LatestYearLabel() string {
	if s.LatestYear == nil {
		return FormatYear(0, false)
	}
	return FormatYear(*s.LatestYear, true)
}

// Markdown renders the summary as a compact, AI-ready report.
func (s Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if s.Source != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", s.Source))
	}
	b.WriteString(fmt.Sprintf("Confirmed planets: %d\n", s.Total))
	b.WriteString(fmt.Sprintf("Unique host stars: %d\n", s.UniqueHosts))
	b.WriteString(fmt.Sprintf("Latest discovery: %s\n", s.LatestYearLabel()))
	b.WriteString(fmt.Sprintf("Plottable (period & radius known): %d\n\n", s.Plottable))

	if len(s.PerYear) > 0 {
		b.WriteString("[DISCOVERIES BY YEAR]\n")
		for _, yc := range s.PerYear {
			b.WriteString(fmt.Sprintf("- %s: %d\n", yc.Year, yc.Count))
		}
		b.WriteString("\n")
	}

	if len(s.DiscoveryMethod) > 0 {
		b.WriteString("[DISCOVERY METHODS]\n")
		for _, kv := range topCounts(s.DiscoveryMethod) {
			b.WriteString(fmt.Sprintf("- %s: %d\n", kv.Year, kv.Count))
		}
		b.WriteString("\n")
	}

	b.WriteString("[PROPERTIES]\n")
	for _, p := range s.Properties {
		name := p.Label
		if p.Unit != "" {
			name = fmt.Sprintf("%s [%s]", name, p.Unit)
		}
		total := p.Known + p.Unknown
		missPct := 0.0
		if total > 0 {
			missPct = float64(p.Unknown) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: known %d, unknown %.1f%%", name, p.Known, missPct))
		if p.Known > 0 {
			b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g, median %.4g, std %.4g", p.Min, p.Max, p.Mean, p.Median, p.Std))
		}
		b.WriteString("\n")
	}

	if len(s.Correlations) > 0 {
		b.WriteString("\n[CORRELATIONS] (log10, Pearson r)\n")
		for _, c := range s.Correlations {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f (n=%d)\n", c.A, c.B, c.R, c.N))
		}
	}
	return b.String()
}

// topCounts orders a count map by descending count, then key.
func topCounts(m map[string]int) []YearCount {
	out := make([]YearCount, 0, len(m))
	for k, v := range m {
		out = append(out, YearCount{Year: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Year < out[j].Year
	})
	return out
}
