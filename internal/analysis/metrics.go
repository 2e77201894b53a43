package analysis

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/exodash/internal/planet"
)

// Fallback axis domains used when no plottable record carries a value.
const (
	DefaultMinYear   = 2018
	DefaultMinPeriod = 0.1
	DefaultMaxPeriod = 1000
	DefaultMinRadius = 0.1
	DefaultMaxRadius = 30
)

// YearCount is one bar of the discoveries-per-year histogram.
type YearCount struct {
	Year  string `json:"year" yaml:"year" toml:"year"`
	Count int    `json:"count" yaml:"count" toml:"count"`
}

// TotalCount returns the number of records.
func TotalCount(records []planet.Record) int { return len(records) }

// UniqueHostCount counts distinct host star names using exact string equality.
func UniqueHostCount(records []planet.Record) int {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		seen[r.HostStar] = struct{}{}
	}
	return len(seen)
}

// LatestDiscoveryYear returns the most recent positive discovery year.
// ok is false when no record carries a usable year.
func LatestDiscoveryYear(records []planet.Record) (year int, ok bool) {
	for _, r := range records {
		y, valid := r.Year()
		if !valid {
			continue
		}
		if !ok || y > year {
			year, ok = y, true
		}
	}
	return year, ok
}

// FormatYear renders a year from LatestDiscoveryYear, using "N/A" when unavailable.
func FormatYear(year int, ok bool) string {
	if !ok {
		return "N/A"
	}
	return strconv.Itoa(year)
}

// DiscoveriesPerYearMap counts records per non-empty discovery year string.
func DiscoveriesPerYearMap(records []planet.Record) map[string]int {
	out := make(map[string]int)
	for _, r := range records {
		if r.YearDiscovered == "" {
			continue
		}
		out[r.YearDiscovered]++
	}
	return out
}

// DiscoveriesPerYear returns per-year counts in ascending numeric year order.
// Keys that do not parse as integers sort after numeric ones, by string.
func DiscoveriesPerYear(records []planet.Record) []YearCount {
	m := DiscoveriesPerYearMap(records)
	out := make([]YearCount, 0, len(m))
	for y, c := range m {
		out = append(out, YearCount{Year: y, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return yearLess(out[i].Year, out[j].Year) })
	return out
}

func yearLess(a, b string) bool {
	ai, aerr := strconv.Atoi(strings.TrimSpace(a))
	bi, berr := strconv.Atoi(strings.TrimSpace(b))
	switch {
	case aerr == nil && berr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}

// PlottableSeries keeps records with strictly positive period and radius,
// the only ones that can sit on logarithmic axes. Order is preserved.
func PlottableSeries(records []planet.Record) []planet.Record {
	out := make([]planet.Record, 0, len(records))
	for _, r := range records {
		if r.Plottable() {
			out = append(out, r)
		}
	}
	return out
}

// YearDomain returns the discovery year extent of records, falling back to
// DefaultMinYear and the current year for missing ends.
func YearDomain(records []planet.Record) (minYear, maxYear int) {
	found := false
	for _, r := range records {
		y, ok := r.Year()
		if !ok {
			continue
		}
		if !found {
			minYear, maxYear, found = y, y, true
			continue
		}
		if y < minYear {
			minYear = y
		}
		if y > maxYear {
			maxYear = y
		}
	}
	if !found {
		return DefaultMinYear, time.Now().Year()
	}
	return minYear, maxYear
}

// LogDomain returns the positive extent of value over records, or the
// fallbacks when nothing positive is present.
func LogDomain(records []planet.Record, value func(planet.Record) float64, fallbackMin, fallbackMax float64) (lo, hi float64) {
	found := false
	for _, r := range records {
		v := value(r)
		if v <= 0 {
			continue
		}
		if !found {
			lo, hi, found = v, v, true
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if !found {
		return fallbackMin, fallbackMax
	}
	return lo, hi
}

// PeriodDomain is LogDomain over orbital period with the scatter-plot fallbacks.
func PeriodDomain(records []planet.Record) (float64, float64) {
	return LogDomain(records, func(r planet.Record) float64 { return r.OrbitalPeriod }, DefaultMinPeriod, DefaultMaxPeriod)
}

// RadiusDomain is LogDomain over planet radius with the scatter-plot fallbacks.
func RadiusDomain(records []planet.Record) (float64, float64) {
	return LogDomain(records, func(r planet.Record) float64 { return r.Radius }, DefaultMinRadius, DefaultMaxRadius)
}
