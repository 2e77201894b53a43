package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/exodash/internal/planet"
)

// NeutralColor is used for records whose discovery year cannot be parsed.
const NeutralColor = "#475569"

// viridis sampled at t = 0, 0.1, ..., 1.
var viridis = [][3]uint8{
	{0x44, 0x01, 0x54},
	{0x48, 0x24, 0x75},
	{0x41, 0x44, 0x87},
	{0x35, 0x5f, 0x8d},
	{0x2a, 0x78, 0x8e},
	{0x21, 0x91, 0x8c},
	{0x22, 0xa8, 0x84},
	{0x44, 0xbf, 0x70},
	{0x7a, 0xd1, 0x51},
	{0xbd, 0xdf, 0x26},
	{0xfd, 0xe7, 0x25},
}

// Ramp maps t in [0,1] to a hex color on the viridis ramp. Out-of-range t is clamped.
func Ramp(t float64) string {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	pos := t * float64(len(viridis)-1)
	i := int(math.Floor(pos))
	if i >= len(viridis)-1 {
		c := viridis[len(viridis)-1]
		return hex(c[0], c[1], c[2])
	}
	f := pos - float64(i)
	a, b := viridis[i], viridis[i+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*f))
	}
	return hex(lerp(a[0], b[0]), lerp(a[1], b[1]), lerp(a[2], b[2]))
}

// ColorForYear places year linearly within [minYear, maxYear] on the ramp.
// A degenerate domain maps to the ramp midpoint; an unparseable year gets NeutralColor.
func ColorForYear(year string, minYear, maxYear int) string {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return NeutralColor
	}
	if maxYear == minYear {
		return Ramp(0.5)
	}
	return Ramp(float64(y-minYear) / float64(maxYear-minYear))
}

func hex(r, g, b uint8) string { return fmt.Sprintf("#%02x%02x%02x", r, g, b) }

// Selector reports whether a record is the focused one.
type Selector interface {
	Matches(planet.Record) bool
}

// PointStyle is how a single scatter point is drawn.
type PointStyle struct {
	Size        int     `json:"size"`
	Opacity     float64 `json:"opacity"`
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth int     `json:"stroke_width"`
	Selected    bool    `json:"selected"`
}

// Point sizes and highlight colors.
const (
	BaseSize       = 5
	SelectedSize   = 8
	BaseOpacity    = 0.8
	SelectedFill   = "#ffffff"
	SelectedStroke = "#06b6d4"
)

// PointStyleFor styles r for a scatter plot whose color domain is [minYear, maxYear].
// The selected record is enlarged and stroked; everything else uses the base style.
func PointStyleFor(r planet.Record, sel Selector, minYear, maxYear int) PointStyle {
	if sel != nil && sel.Matches(r) {
		return PointStyle{
			Size:        SelectedSize,
			Opacity:     1,
			Fill:        SelectedFill,
			Stroke:      SelectedStroke,
			StrokeWidth: 3,
			Selected:    true,
		}
	}
	return PointStyle{
		Size:    BaseSize,
		Opacity: BaseOpacity,
		Fill:    ColorForYear(r.YearDiscovered, minYear, maxYear),
	}
}
