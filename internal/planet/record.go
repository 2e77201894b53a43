package planet

import (
	"math"
	"strconv"
	"strings"
)

// Record is one normalized row of the confirmed-planets table.
// Numeric fields are always finite; 0 means the value was absent or unparseable
// and must be read as "unknown", not as a measurement.
type Record struct {
	Name            string  `json:"pl_name" yaml:"pl_name"`
	HostStar        string  `json:"hostname" yaml:"hostname"`
	Method          string  `json:"discoverymethod" yaml:"discoverymethod"`
	YearDiscovered  string  `json:"disc_year" yaml:"disc_year"`
	OrbitalPeriod   float64 `json:"pl_orbper" yaml:"pl_orbper"`   // days
	SemiMajorAxis   float64 `json:"pl_orbsmax" yaml:"pl_orbsmax"` // au
	Radius          float64 `json:"pl_rade" yaml:"pl_rade"`       // Earth radii
	Mass            float64 `json:"pl_bmasse" yaml:"pl_bmasse"`   // Earth masses
	EquilibriumTemp float64 `json:"pl_eqt" yaml:"pl_eqt"`         // K
	StellarTemp     float64 `json:"st_teff" yaml:"st_teff"`       // K
	StellarRadius   float64 `json:"st_rad" yaml:"st_rad"`         // solar radii
	StellarMass     float64 `json:"st_mass" yaml:"st_mass"`       // solar masses
	Distance        float64 `json:"sy_dist" yaml:"sy_dist"`       // pc
	VMagnitude      float64 `json:"sy_vmag" yaml:"sy_vmag"`
	RA              string  `json:"ra" yaml:"ra"`
	Dec             string  `json:"dec" yaml:"dec"`
	ReferenceMarkup string  `json:"pl_refname" yaml:"pl_refname"`
}

// Source column names.
const (
	ColName            = "pl_name"
	ColHostStar        = "hostname"
	ColMethod          = "discoverymethod"
	ColYear            = "disc_year"
	ColOrbitalPeriod   = "pl_orbper"
	ColSemiMajorAxis   = "pl_orbsmax"
	ColRadius          = "pl_rade"
	ColMass            = "pl_bmasse"
	ColEquilibriumTemp = "pl_eqt"
	ColStellarTemp     = "st_teff"
	ColStellarRadius   = "st_rad"
	ColStellarMass     = "st_mass"
	ColDistance        = "sy_dist"
	ColVMagnitude      = "sy_vmag"
	ColRA              = "ra"
	ColDec             = "dec"
	ColReference       = "pl_refname"
)

// ParseFloat coerces a raw cell into a number. Empty, unparseable and
// non-finite values all yield exactly 0.
func ParseFloat(s string) float64 {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Year returns the discovery year as a positive integer, or false when the
// field is empty or not a positive integer.
func (r Record) Year() (int, bool) {
	y, err := strconv.Atoi(strings.TrimSpace(r.YearDiscovered))
	if err != nil || y <= 0 {
		return 0, false
	}
	return y, true
}

// Plottable reports whether the record can be placed on log-scaled period/radius axes.
func (r Record) Plottable() bool {
	return r.OrbitalPeriod > 0 && r.Radius > 0
}

// Property names a numeric attribute of a Record.
type Property struct {
	Key   string
	Label string
	Unit  string
	Value func(Record) float64
}

// Properties lists the numeric attributes in column order.
var Properties = []Property{
	{ColOrbitalPeriod, "Orbital Period", "days", func(r Record) float64 { return r.OrbitalPeriod }},
	{ColSemiMajorAxis, "Semi-Major Axis", "au", func(r Record) float64 { return r.SemiMajorAxis }},
	{ColRadius, "Radius", "Earth radii", func(r Record) float64 { return r.Radius }},
	{ColMass, "Mass", "Earth masses", func(r Record) float64 { return r.Mass }},
	{ColEquilibriumTemp, "Equilibrium Temperature", "K", func(r Record) float64 { return r.EquilibriumTemp }},
	{ColStellarTemp, "Stellar Temperature", "K", func(r Record) float64 { return r.StellarTemp }},
	{ColStellarRadius, "Stellar Radius", "solar radii", func(r Record) float64 { return r.StellarRadius }},
	{ColStellarMass, "Stellar Mass", "solar masses", func(r Record) float64 { return r.StellarMass }},
	{ColDistance, "Distance", "pc", func(r Record) float64 { return r.Distance }},
	{ColVMagnitude, "V Magnitude", "", func(r Record) float64 { return r.VMagnitude }},
}

// Find returns the first record whose name matches exactly.
func Find(records []Record, name string) (Record, bool) {
	for _, r := range records {
		if r.Name == name {
			return r, true
		}
	}
	return Record{}, false
}

// Filter returns records whose name or host star contains term, ignoring case.
// An empty term returns every record.
func Filter(records []Record, term string) []Record {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if term == "" ||
			strings.Contains(strings.ToLower(r.Name), term) ||
			strings.Contains(strings.ToLower(r.HostStar), term) {
			out = append(out, r)
		}
	}
	return out
}
