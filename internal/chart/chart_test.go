package chart

import (
	"testing"
	"time"

	"github.com/couchcryptid/covid-trends-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegion(id int, name string, confirmed ...int64) *domain.Region {
	r := domain.NewRegion(domain.RegionFields{
		ID:           id,
		Level:        domain.LevelCountry,
		Kind:         domain.KindCountry,
		Level1:       name,
		LocationName: name,
	}, domain.DefaultLookupTables())
	r.SetSeries(domain.Confirmed, confirmed)
	return r
}

func defaultParams() Params {
	return Params{
		CaseType:      domain.Confirmed,
		Delta:         domain.Cumulative,
		Ratio:         domain.Absolute,
		Kind:          domain.Line,
		ShowLabels:    true,
		ViewportWidth: 1400,
	}
}

func ys(t *testing.T, points []Point) []float64 {
	t.Helper()
	out := make([]float64, 0, len(points))
	for _, p := range points {
		require.NotNil(t, p.Y, "point x=%d", p.X)
		out = append(out, *p.Y)
	}
	return out
}

func TestBuild_SingleRegionCumulative(t *testing.T) {
	italy := newRegion(1, "Italy", 0, 0, 1, 2, 4, 8)

	c := Build([]*domain.Region{italy}, defaultParams())

	assert.Equal(t, "COVID-19 Confirmed Cases by Country Cumulative Total", c.Options.Title)
	assert.Equal(t, "oneColor", c.Options.ColorSet)
	assert.Equal(t, 1, c.Options.LabelInterval)
	assert.Equal(t, "#,###,###", c.Options.ValueFormat)
	assert.InDelta(t, 8.0, c.Options.AxisMaximum, 1e-9)

	require.Len(t, c.Series, 1)
	s := c.Series[0]
	assert.Equal(t, "Italy", s.Name)
	assert.Equal(t, "spline", s.Kind)
	assert.Equal(t, "{name}: Total confirmed on day {label}: {y}", s.ToolTip)

	require.Len(t, s.Points, 6)
	assert.Equal(t, []float64{0, 0, 1, 2, 4, 8}, ys(t, s.Points))
	assert.Equal(t, 1, s.Points[0].X)
	assert.Equal(t, "1/22", s.Points[0].Label)
	assert.Equal(t, "#", s.Points[0].Format)
	assert.Equal(t, "#.#", s.Points[5].Format)
	assert.Equal(t, "Italy", s.Points[5].IndexLabel)
	assert.Empty(t, s.Points[4].IndexLabel)

	last := s.Points[5]
	require.NotNil(t, last.Marker)
	assert.Equal(t, Marker{Type: "square", Size: 6}, *last.Marker)
	assert.Equal(t, "Italy: Total confirmed on day 1/27: 8. Doubled in 1 days", last.ToolTip)
	assert.NotNil(t, s.Points[4].Marker)
	assert.Nil(t, s.Points[3].Marker, "annotation without a doubling time is dropped")
}

func TestBuild_AlignedDayZeroPadsLaterRegions(t *testing.T) {
	a := newRegion(1, "A", 0, 0, 0, 5, 10)
	b := newRegion(2, "B", 0, 3, 6, 9, 12)
	p := defaultParams()
	p.AlignDayZero = true
	p.ShowLabels = false

	c := Build([]*domain.Region{a, b}, p)

	assert.Equal(t, "COVID-19 Confirmed Cases by Country Cumulative Total with Day Zeroes Aligned", c.Options.Title)
	assert.Empty(t, c.Options.ColorSet)
	assert.InDelta(t, 20.0, c.Options.AxisMaximum, 1e-9)

	require.Len(t, c.Series, 2)
	assert.Equal(t, "B", c.Series[0].Name, "ordered by latest count")
	assert.Equal(t, "A", c.Series[1].Name)

	bPts := c.Series[0].Points
	require.Len(t, bPts, 4)
	assert.Equal(t, []float64{3, 6, 9, 12}, ys(t, bPts))
	assert.Equal(t, "1", bPts[0].Label)
	assert.Equal(t, "B: Total confirmed on day 4: 12. Doubled in 2 days", bPts[3].ToolTip)

	aPts := c.Series[1].Points
	require.Len(t, aPts, 4)
	assert.Equal(t, []float64{5, 10}, ys(t, aPts[:2]))
	for i, pt := range aPts[2:] {
		assert.Equal(t, i+3, pt.X)
		assert.Nil(t, pt.Y)
		assert.Empty(t, pt.Label)
	}
}

func TestBuild_StackedDeltaAxis(t *testing.T) {
	a := newRegion(1, "A", 0, 1, 3, 6)
	b := newRegion(2, "B", 0, 2, 4, 8)
	p := defaultParams()
	p.Delta = domain.Delta
	p.Kind = domain.StackedColumn
	p.ShowLabels = false

	c := Build([]*domain.Region{a, b}, p)

	assert.InDelta(t, 7.0, c.Options.AxisMaximum, 1e-9)
	assert.Equal(t, "{name}: Δ confirmed on day {label}: {y}", c.Series[0].ToolTip)
	for _, s := range c.Series {
		assert.Equal(t, "stackedColumn", s.Kind)
		for _, pt := range s.Points {
			assert.Nil(t, pt.Marker, "no doublings for deltas")
		}
	}
	assert.Equal(t, []float64{0, 2, 2, 4}, ys(t, c.Series[0].Points))

	p.Kind = domain.Line
	c = Build([]*domain.Region{a, b}, p)
	assert.InDelta(t, 4.0, c.Options.AxisMaximum, 1e-9)
}

func TestBuild_LogarithmicReplacesZeros(t *testing.T) {
	p := defaultParams()
	p.Logarithmic = true

	c := Build([]*domain.Region{newRegion(1, "A", 0, 0, 50)}, p)

	assert.True(t, c.Options.Logarithmic)
	assert.InDelta(t, 100.0, c.Options.AxisMaximum, 1e-9)
	assert.Equal(t, []float64{1, 1, 50}, ys(t, c.Series[0].Points))
}

func TestBuild_StartDayAndLabelSpacers(t *testing.T) {
	counts := make([]int64, 35)
	for i := range counts {
		counts[i] = int64(i * 3)
	}
	p := defaultParams()
	p.StartDay = 3

	c := Build([]*domain.Region{newRegion(1, "A", counts...)}, p)

	pts := c.Series[0].Points
	require.Len(t, pts, 34)
	assert.Equal(t, 4, pts[0].X)
	assert.Equal(t, "1/25", pts[0].Label)
	for _, pt := range pts[32:] {
		assert.Nil(t, pt.Y)
		assert.Equal(t, " ", pt.Label)
	}
	assert.Equal(t, "A", pts[31].IndexLabel)
}

func TestBuild_NonFiniteValuesHaveNoY(t *testing.T) {
	p := defaultParams()
	p.Ratio = domain.PerMillion

	c := Build([]*domain.Region{newRegion(1, "Atlantis", 0, 5)}, p)

	for _, pt := range c.Series[0].Points {
		assert.Nil(t, pt.Y)
	}
	assert.InDelta(t, 1.0, c.Options.AxisMaximum, 1e-9)
}

func TestBuild_NoRegions(t *testing.T) {
	c := Build(nil, defaultParams())
	assert.Empty(t, c.Series)
	assert.InDelta(t, 1.0, c.Options.AxisMaximum, 1e-9)
}

func TestBuild_SmoothingRunsBeforeDelta(t *testing.T) {
	p := defaultParams()
	p.Smooth = 2
	p.Delta = domain.Delta
	p.ShowLabels = false

	c := Build([]*domain.Region{newRegion(1, "A", 0, 2, 4, 10)}, p)

	// Averages are 0, 1, 3, 7.
	assert.Equal(t, []float64{0, 1, 2, 4}, ys(t, c.Series[0].Points))
	assert.Contains(t, c.Series[0].ToolTip, "(2 pt moving avg)")
}

func TestBuild_TightAxis(t *testing.T) {
	a := newRegion(1, "A", 10, 50, 172)
	p := defaultParams()

	c := Build([]*domain.Region{a}, p)
	assert.InDelta(t, 200.0, c.Options.AxisMaximum, 1e-9)

	p.TightAxis = true
	c = Build([]*domain.Region{a}, p)
	assert.InDelta(t, 180.0, c.Options.AxisMaximum, 1e-9)

	p.Logarithmic = true
	c = Build([]*domain.Region{a}, p)
	assert.InDelta(t, 1000.0, c.Options.AxisMaximum, 1e-9)
}

func TestBuild_DoesNotReorderInput(t *testing.T) {
	a := newRegion(1, "A", 1)
	b := newRegion(2, "B", 2)
	in := []*domain.Region{a, b}

	Build(in, defaultParams())
	assert.Same(t, a, in[0])
}

func TestCacheKey(t *testing.T) {
	a := newRegion(1, "A", 1)
	b := newRegion(2, "B", 2)
	loaded := time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)
	p := defaultParams()

	k := CacheKey(p, []*domain.Region{a, b}, loaded)
	assert.Equal(t, k, CacheKey(p, []*domain.Region{b, a}, loaded), "region order does not matter")
	assert.NotEqual(t, k, CacheKey(p, []*domain.Region{a}, loaded))
	assert.NotEqual(t, k, CacheKey(p, []*domain.Region{a, b}, loaded.Add(time.Hour)))

	p.Logarithmic = true
	assert.NotEqual(t, k, CacheKey(p, []*domain.Region{a, b}, loaded))

	tight := defaultParams()
	tight.TightAxis = true
	assert.NotEqual(t, k, CacheKey(tight, []*domain.Region{a, b}, loaded))
}
