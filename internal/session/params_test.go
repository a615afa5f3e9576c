package session

import (
	"net/url"
	"testing"

	"github.com/couchcryptid/covid-trends-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery_Defaults(t *testing.T) {
	v, err := ParseQuery(url.Values{}, 60)
	require.NoError(t, err)
	assert.Equal(t, DefaultParams(), v.Params)
	assert.Empty(t, v.Regions)
}

func TestParseQuery_AllKeys(t *testing.T) {
	q, err := url.ParseQuery("day=12&log&align0=true&label=false&delta=deltaPercent&ratio=perBed&chart=stackedArea&type=active&smooth=7&width=900&tight&Italy&Korea%2C+South")
	require.NoError(t, err)

	v, err := ParseQuery(q, 60)
	require.NoError(t, err)

	p := v.Params
	assert.Equal(t, 12, p.StartDay)
	assert.True(t, p.Logarithmic)
	assert.True(t, p.AlignDayZero)
	assert.False(t, p.ShowLabels)
	assert.Equal(t, domain.DeltaPercent, p.Delta)
	assert.Equal(t, domain.PerBed, p.Ratio)
	assert.Equal(t, domain.StackedArea, p.Kind)
	assert.Equal(t, domain.Active, p.CaseType)
	assert.Equal(t, 7, p.Smooth)
	assert.Equal(t, 900, p.ViewportWidth)
	assert.True(t, p.TightAxis)
	assert.Equal(t, []string{"Italy", "Korea, South"}, v.Regions)
}

func TestParseQuery_ClampsDayAndSmooth(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		totalDays int
		wantDay   int
		wantSmth  int
	}{
		{"day past end", "day=90", 60, 55, 1},
		{"negative day", "day=-4", 60, 0, 1},
		{"short dataset", "day=3", 4, 0, 1},
		{"smooth too large", "smooth=365", 60, 0, maxSmooth},
		{"smooth zero", "smooth=0", 60, 0, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := url.ParseQuery(tc.query)
			require.NoError(t, err)
			v, err := ParseQuery(q, tc.totalDays)
			require.NoError(t, err)
			assert.Equal(t, tc.wantDay, v.Params.StartDay)
			assert.Equal(t, tc.wantSmth, v.Params.Smooth)
		})
	}
}

func TestParseQuery_Invalid(t *testing.T) {
	for _, raw := range []string{"day=soon", "log=maybe", "type=hospitalized", "delta=weekly", "ratio=x", "chart=pie", "width=wide", "tight=very"} {
		t.Run(raw, func(t *testing.T) {
			q, err := url.ParseQuery(raw)
			require.NoError(t, err)
			_, err = ParseQuery(q, 60)
			require.ErrorIs(t, err, ErrInvalidParam)
		})
	}
}

func TestEncode(t *testing.T) {
	p := DefaultParams()
	p.Smooth = 3
	p.Delta = domain.Delta

	got := Encode(p, []string{"US", "Korea, South"})
	assert.Equal(t, "day=0&log=false&align0=false&label=true&delta=deltaCount&ratio=absolute&chart=line&type=confirmed&smooth=3&US&Korea%2C+South", got)

	q, err := url.ParseQuery(got)
	require.NoError(t, err)
	v, err := ParseQuery(q, 60)
	require.NoError(t, err)
	assert.Equal(t, p, v.Params)
	assert.Equal(t, []string{"Korea, South", "US"}, v.Regions)
}

func TestEncode_TightAxis(t *testing.T) {
	p := DefaultParams()
	p.TightAxis = true

	got := Encode(p, []string{"Italy"})
	assert.Equal(t, "day=0&log=false&align0=false&label=true&delta=cumulative&ratio=absolute&chart=line&type=confirmed&tight=true&Italy", got)

	q, err := url.ParseQuery(got)
	require.NoError(t, err)
	v, err := ParseQuery(q, 60)
	require.NoError(t, err)
	assert.Equal(t, p, v.Params)
	assert.Equal(t, []string{"Italy"}, v.Regions)
}
