// Package chart renders the dashboard's visualizations as go-echarts HTML.
package chart

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/KaramelBytes/exodash/internal/analysis"
	"github.com/KaramelBytes/exodash/internal/planet"
)

const (
	background = "#0f172a"
	textMuted  = "#94a3b8"
	barColor   = "#6366f1"
	earthColor = "#3b82f6"
	chartWidth = "900px"
)

func initOpts(title, height string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle:       title,
		Width:           chartWidth,
		Height:          height,
		BackgroundColor: background,
	})
}

func titleOpts(title, subtitle string) charts.GlobalOpts {
	return charts.WithTitleOpts(opts.Title{
		Title:         title,
		Subtitle:      subtitle,
		TitleStyle:    &opts.TextStyle{Color: "#e2e8f0"},
		SubtitleStyle: &opts.TextStyle{Color: textMuted},
	})
}

type bucket struct {
	label  string
	year   int
	points []opts.ScatterData
}

// Scatter plots orbital period against radius on log-log axes. Points are
// colored by discovery year; the selected planet is drawn on top in its own
// highlighted series.
func Scatter(records []planet.Record, sel analysis.Selector) *charts.Scatter {
	series := analysis.PlottableSeries(records)
	minYear, maxYear := analysis.YearDomain(series)
	pLo, pHi := analysis.PeriodDomain(series)
	rLo, rHi := analysis.RadiusDomain(series)

	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		initOpts("Orbital period vs radius", "520px"),
		titleOpts("Orbital Period vs Radius", fmt.Sprintf("%d planets, colored by discovery year %d-%d", len(series), minYear, maxYear)),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      "Orbital Period (days)",
			Type:      "log",
			Min:       pLo,
			Max:       pHi,
			AxisLabel: &opts.AxisLabel{Color: textMuted},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "Radius (Earth Radii)",
			Type:      "log",
			Min:       rLo,
			Max:       rHi,
			AxisLabel: &opts.AxisLabel{Color: textMuted},
		}),
	)

	buckets := map[string]*bucket{}
	var selected []opts.ScatterData
	for _, r := range series {
		st := analysis.PointStyleFor(r, sel, minYear, maxYear)
		pt := opts.ScatterData{
			Name:       r.Name,
			Value:      []any{r.OrbitalPeriod, r.Radius, r.YearDiscovered},
			SymbolSize: st.Size * 2,
		}
		if st.Selected {
			selected = append(selected, pt)
			continue
		}
		b, ok := buckets[st.Fill]
		if !ok {
			y, err := strconv.Atoi(r.YearDiscovered)
			if err != nil {
				y = maxYear + 1
			}
			label := r.YearDiscovered
			if label == "" {
				label = "unknown"
			}
			b = &bucket{label: label, year: y}
			buckets[st.Fill] = b
		}
		b.points = append(b.points, pt)
	}

	colors := make([]string, 0, len(buckets))
	for c := range buckets {
		colors = append(colors, c)
	}
	sort.Slice(colors, func(i, j int) bool {
		bi, bj := buckets[colors[i]], buckets[colors[j]]
		if bi.year != bj.year {
			return bi.year < bj.year
		}
		return colors[i] < colors[j]
	})
	for _, c := range colors {
		b := buckets[c]
		sc.AddSeries(b.label, b.points,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: c, Opacity: opts.Float(analysis.BaseOpacity)}),
		)
	}
	if len(selected) > 0 {
		sc.AddSeries("Selected", selected,
			charts.WithItemStyleOpts(opts.ItemStyle{
				Color:       analysis.SelectedFill,
				BorderColor: analysis.SelectedStroke,
				BorderWidth: 3,
				Opacity:     opts.Float(1),
			}),
		)
	}
	return sc
}

// Discoveries is a bar per discovery year in ascending order.
func Discoveries(records []planet.Record) *charts.Bar {
	counts := analysis.DiscoveriesPerYear(records)
	years := make([]string, len(counts))
	data := make([]opts.BarData, len(counts))
	for i, yc := range counts {
		years[i] = yc.Year
		data[i] = opts.BarData{Value: yc.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts("Discoveries per year", "320px"),
		titleOpts("Discoveries per Year", fmt.Sprintf("%d planets", analysis.TotalCount(records))),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: textMuted}}),
		charts.WithYAxisOpts(opts.YAxis{AxisLabel: &opts.AxisLabel{Color: textMuted}}),
	)
	bar.SetXAxis(years).AddSeries("Discoveries", data,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: barColor}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top", Color: textMuted}),
	)
	return bar
}

// SizeComparison sets the planet's radius beside Earth's. It reports false
// when the radius is unknown.
func SizeComparison(r planet.Record) (*charts.Bar, bool) {
	if r.Radius <= 0 {
		return nil, false
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts("Size comparison", "280px"),
		titleOpts("Size Comparison", fmt.Sprintf("%s is %.2fx Earth's radius", r.Name, r.Radius)),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: textMuted}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Radius (Earth Radii)", AxisLabel: &opts.AxisLabel{Color: textMuted}}),
	)
	bar.SetXAxis([]string{"Earth", r.Name}).AddSeries("Radius", []opts.BarData{
		{Value: 1.0, ItemStyle: &opts.ItemStyle{Color: earthColor}},
		{Value: r.Radius, ItemStyle: &opts.ItemStyle{Color: analysis.SelectedStroke}},
	})
	return bar, true
}

// Page renders charts onto a single HTML page.
func Page(w io.Writer, title string, cs ...components.Charter) error {
	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(cs...)
	return page.Render(w)
}

// Dashboard renders the scatter and discoveries charts.
func Dashboard(w io.Writer, records []planet.Record, sel analysis.Selector) error {
	return Page(w, "Exoplanet dashboard", Scatter(records, sel), Discoveries(records))
}

// PlanetPage renders the size comparison and the scatter with r highlighted.
func PlanetPage(w io.Writer, records []planet.Record, r planet.Record) error {
	cs := []components.Charter{}
	if bar, ok := SizeComparison(r); ok {
		cs = append(cs, bar)
	}
	cs = append(cs, Scatter(records, nameSelector(r.Name)))
	return Page(w, r.Name, cs...)
}

type nameSelector string

func (n nameSelector) Matches(r planet.Record) bool { return string(n) == r.Name }
