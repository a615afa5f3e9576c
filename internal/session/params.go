package session

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/covid-trends-service/internal/chart"
	"github.com/couchcryptid/covid-trends-service/internal/domain"
)

// Query-string keys understood by ParseQuery. Every other key names a region.
const (
	keyDay    = "day"
	keyLog    = "log"
	keyAlign  = "align0"
	keyLabel  = "label"
	keyDelta  = "delta"
	keyRatio  = "ratio"
	keyChart  = "chart"
	keyType   = "type"
	keySmooth = "smooth"
	keyWidth  = "width"
	keyTight  = "tight"
)

const (
	defaultViewportWidth = 1400
	maxSmooth            = 30
	// The start day never hides the last few days of data.
	minVisibleDays = 5
)

var reservedKeys = []string{keyDay, keyLog, keyAlign, keyLabel, keyDelta, keyRatio, keyChart, keyType, keySmooth, keyWidth, keyTight}

// ErrInvalidParam is wrapped by ParseQuery for values it cannot interpret.
var ErrInvalidParam = errors.New("invalid parameter")

// View is a parsed query string: display parameters plus the names of the
// regions to show.
type View struct {
	Params  chart.Params
	Regions []string
}

// DefaultParams are the display parameters of a fresh session.
func DefaultParams() chart.Params {
	return chart.Params{
		CaseType:      domain.Confirmed,
		Delta:         domain.Cumulative,
		Ratio:         domain.Absolute,
		Kind:          domain.Line,
		ShowLabels:    true,
		Smooth:        1,
		ViewportWidth: defaultViewportWidth,
	}
}

// ParseQuery reads display parameters and region names from q. Absent keys
// take their defaults. A boolean key present without a value is true. The
// start day is clamped so at least the last few of totalDays stay visible.
func ParseQuery(q url.Values, totalDays int) (View, error) {
	p := DefaultParams()
	var err error

	if p.StartDay, err = intParam(q, keyDay, 0); err != nil {
		return View{}, err
	}
	p.StartDay = ClampStartDay(p.StartDay, totalDays)

	if p.Logarithmic, err = boolParam(q, keyLog, false); err != nil {
		return View{}, err
	}
	if p.AlignDayZero, err = boolParam(q, keyAlign, false); err != nil {
		return View{}, err
	}
	if p.ShowLabels, err = boolParam(q, keyLabel, true); err != nil {
		return View{}, err
	}
	if v := q.Get(keyDelta); v != "" {
		if p.Delta, err = domain.ParseDeltaMode(v); err != nil {
			return View{}, fmt.Errorf("%w %s: %w", ErrInvalidParam, keyDelta, err)
		}
	}
	if v := q.Get(keyRatio); v != "" {
		if p.Ratio, err = domain.ParseCountRatio(v); err != nil {
			return View{}, fmt.Errorf("%w %s: %w", ErrInvalidParam, keyRatio, err)
		}
	}
	if v := q.Get(keyChart); v != "" {
		if p.Kind, err = domain.ParseChartKind(v); err != nil {
			return View{}, fmt.Errorf("%w %s: %w", ErrInvalidParam, keyChart, err)
		}
	}
	if v := q.Get(keyType); v != "" {
		if p.CaseType, err = domain.ParseCaseType(v); err != nil {
			return View{}, fmt.Errorf("%w %s: %w", ErrInvalidParam, keyType, err)
		}
	}
	if p.Smooth, err = intParam(q, keySmooth, 1); err != nil {
		return View{}, err
	}
	p.Smooth = min(max(p.Smooth, 1), maxSmooth)
	if p.ViewportWidth, err = intParam(q, keyWidth, defaultViewportWidth); err != nil {
		return View{}, err
	}
	if p.TightAxis, err = boolParam(q, keyTight, false); err != nil {
		return View{}, err
	}

	var regions []string
	for key := range q {
		if !slices.Contains(reservedKeys, key) && strings.TrimSpace(key) != "" {
			regions = append(regions, key)
		}
	}
	slices.Sort(regions)

	return View{Params: p, Regions: regions}, nil
}

// Encode renders parameters and region names as a shareable query string.
// Region names are bare keys; ParseQuery(Encode(p, names)) restores both
// except the viewport width, which belongs to the viewer.
func Encode(p chart.Params, regions []string) string {
	parts := []string{
		keyDay + "=" + strconv.Itoa(p.StartDay),
		keyLog + "=" + strconv.FormatBool(p.Logarithmic),
		keyAlign + "=" + strconv.FormatBool(p.AlignDayZero),
		keyLabel + "=" + strconv.FormatBool(p.ShowLabels),
		keyDelta + "=" + p.Delta.String(),
		keyRatio + "=" + p.Ratio.String(),
		keyChart + "=" + p.Kind.String(),
		keyType + "=" + p.CaseType.String(),
	}
	if p.Smooth > 1 {
		parts = append(parts, keySmooth+"="+strconv.Itoa(p.Smooth))
	}
	if p.TightAxis {
		parts = append(parts, keyTight+"=true")
	}
	for _, name := range regions {
		parts = append(parts, url.QueryEscape(name))
	}
	return strings.Join(parts, "&")
}

// ClampStartDay limits day to [0, totalDays-5].
func ClampStartDay(day, totalDays int) int {
	return max(0, min(day, totalDays-minVisibleDays))
}

func boolParam(q url.Values, key string, def bool) (bool, error) {
	vals, ok := q[key]
	if !ok {
		return def, nil
	}
	if len(vals) == 0 || vals[0] == "" {
		return true, nil
	}
	b, err := strconv.ParseBool(vals[0])
	if err != nil {
		return false, fmt.Errorf("%w %s=%q", ErrInvalidParam, key, vals[0])
	}
	return b, nil
}

func intParam(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w %s=%q", ErrInvalidParam, key, v)
	}
	return n, nil
}
