package chart

import (
	"math"
	"strconv"

	"github.com/couchcryptid/covid-trends-service/internal/domain"
	"github.com/couchcryptid/covid-trends-service/internal/trend"
)

const (
	doublingMarkerSize = 6
	// Unaligned charts with labels get two blank points after the last day
	// so the index label of the final point is not clipped.
	labelSpacerPoints    = 2
	labelSpacerThreshold = 30
)

// Build assembles a chart for regions. Regions are drawn in descending order
// of their latest count of p.CaseType; the input slice is not modified.
func Build(regions []*domain.Region, p Params) *Chart {
	ordered := domain.SortRegions(append([]*domain.Region(nil), regions...), domain.SortByCount(p.CaseType))

	firstDays := make([]int, len(ordered))
	for i, r := range ordered {
		firstDays[i] = r.FirstNonZeroDay()
	}
	earliest := trend.EarliestFirstDay(firstDays)

	c := &Chart{
		Options: Options{
			Title:         Title(p),
			Logarithmic:   p.Logarithmic,
			LabelInterval: LabelInterval(p.ViewportWidth),
			ValueFormat:   ValueFormat(p),
		},
		Series: make([]Series, 0, len(ordered)),
	}
	if len(ordered) == 1 {
		c.Options.ColorSet = "oneColor"
	}

	values := make([][]float64, 0, len(ordered))
	for i, r := range ordered {
		s, ys := buildSeries(r, firstDays[i], earliest, p)
		c.Series = append(c.Series, s)
		values = append(values, ys)
	}

	c.Options.AxisMaximum = axisMaximum(values, len(ordered), p)
	return c
}

// buildSeries derives one region's points. It also returns the plotted
// values so the caller can scale the axis.
func buildSeries(r *domain.Region, firstDay, earliest int, p Params) (Series, []float64) {
	raw := trend.Floats(r.Series(p.CaseType))

	v := raw
	if p.Smooth > 1 {
		v = trend.MovingAverageTrailing(v, p.Smooth)
	}
	v = trend.ApplyDelta(v, p.Delta)
	v = trend.ApplyRatio(v, p.Ratio, r.Population, r.Beds)
	if p.Logarithmic {
		v = trend.LogSafe(v)
	}

	var doublings map[int]trend.Doubling
	if p.Delta == domain.Cumulative {
		doublings = trend.Doublings(raw)
	}

	tmpl := toolTipTemplate(p)
	start := trend.StartIndex(firstDay, p.StartDay, p.AlignDayZero)
	x := p.StartDay + 1

	var points []Point
	var plotted []float64
	for c := start; c < len(v); c++ {
		y := v[c]
		label := domain.DayLabel(c)
		if p.AlignDayZero {
			label = strconv.Itoa(x)
		}

		pt := Point{X: x, Y: finite(y), Label: label, Format: pointFormat(y, p)}
		if d, ok := doublings[c]; ok {
			pt.Marker = &Marker{Type: "square", Size: doublingMarkerSize}
			pt.ToolTip = expandToolTip(tmpl, r.Name, label, y) + ". " + doublingText(d)
		}
		if p.ShowLabels && c == len(v)-1 {
			pt.IndexLabel = r.ShortestName()
		}

		points = append(points, pt)
		plotted = append(plotted, y)
		x++
	}

	switch {
	case p.AlignDayZero:
		for range trend.TailPadding(firstDay, earliest) {
			points = append(points, Point{X: x})
			plotted = append(plotted, math.NaN())
			x++
		}
	case p.ShowLabels && len(v)-p.StartDay > labelSpacerThreshold:
		for range labelSpacerPoints {
			points = append(points, Point{X: x, Label: " "})
			plotted = append(plotted, math.NaN())
			x++
		}
	}

	kind := p.Kind.String()
	if p.Kind == domain.Line {
		kind = "spline"
	}

	return Series{Name: r.Name, ToolTip: tmpl, Kind: kind, Points: points}, plotted
}

func doublingText(d trend.Doubling) string {
	multiplier := "Doubled"
	if d.Multiplier > 2 {
		multiplier = strconv.Itoa(d.Multiplier) + "X"
	}
	return multiplier + " in " + formatNumber(d.TimeToDouble, 1) + " days"
}

func axisMaximum(values [][]float64, regions int, p Params) float64 {
	var m float64
	if p.Kind.Stacked() && regions >= 2 {
		m = trend.StackedMaximum(values)
	} else {
		m = trend.Maximum(values)
	}

	nice := trend.NiceMaximum(m)
	if p.TightAxis {
		nice = trend.NiceMaximumTight(m)
	}
	if p.Logarithmic {
		return trend.LogMaximum(nice)
	}
	return nice
}

func finite(y float64) *float64 {
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return nil
	}
	return &y
}
