// Package trend derives display series from raw cumulative counts: alignment,
// smoothing, differencing, normalization, doubling times and axis scaling.
//
// Every function is pure and works on float64 slices. Non-finite values that
// arise from zero denominators are passed through unchanged; presentation
// layers decide how to render them.
package trend

import "github.com/couchcryptid/covid-trends-service/internal/domain"

// Floats converts a count series to float64.
func Floats(counts []int64) []float64 {
	out := make([]float64, len(counts))
	for i, v := range counts {
		out[i] = float64(v)
	}
	return out
}

// StartIndex is the first series index shown on a chart. Unaligned charts
// start at startDay; aligned charts start startDay days after the region's
// first nonzero day.
func StartIndex(firstNonZero, startDay int, aligned bool) int {
	if aligned {
		return firstNonZero + startDay
	}
	return startDay
}

// EarliestFirstDay returns the smallest first-nonzero day among regions, or
// 0 when there are none.
func EarliestFirstDay(firstDays []int) int {
	if len(firstDays) == 0 {
		return 0
	}
	earliest := firstDays[0]
	for _, d := range firstDays[1:] {
		earliest = min(earliest, d)
	}
	return earliest
}

// TailPadding is the number of value-less points appended to an aligned
// region so that every region on the chart spans the same x range.
func TailPadding(firstNonZero, earliestFirst int) int {
	return max(0, firstNonZero-earliestFirst)
}

// MovingAverageTrailing averages each value with up to window-1 preceding
// values. Near the start the window shrinks to what is available.
func MovingAverageTrailing(v []float64, window int) []float64 {
	out := make([]float64, len(v))
	if window <= 1 {
		copy(out, v)
		return out
	}
	for i := range v {
		lo := max(0, i-window+1)
		var sum float64
		for _, x := range v[lo : i+1] {
			sum += x
		}
		out[i] = sum / float64(i+1-lo)
	}
	return out
}

// ApplyDelta differences a cumulative series. Day 0 has no prior day, so its
// delta is 0; DeltaDelta likewise treats missing days as 0. DeltaPercent is
// the day's change relative to the prior value, 0 when the prior value is 0.
func ApplyDelta(v []float64, mode domain.DeltaMode) []float64 {
	out := make([]float64, len(v))
	for c := range v {
		var d1, d2 float64
		if c >= 1 {
			d1 = v[c] - v[c-1]
		}
		if c >= 2 {
			d2 = v[c-1] - v[c-2]
		}
		switch mode {
		case domain.Cumulative:
			out[c] = v[c]
		case domain.Delta:
			out[c] = d1
		case domain.DeltaDelta:
			out[c] = d1 - d2
		case domain.DeltaPercent:
			if prev := v[c] - d1; prev != 0 {
				out[c] = d1 / prev
			}
		}
	}
	return out
}

// ApplyRatio normalizes values by population (per million residents) or by
// hospital bed capacity (as a fraction). Zero denominators are not guarded.
func ApplyRatio(v []float64, ratio domain.CountRatio, population int64, beds float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		switch ratio {
		case domain.PerMillion:
			out[i] = 1e6 * x / float64(population)
		case domain.PerBed:
			out[i] = x / beds
		default:
			out[i] = x
		}
	}
	return out
}

// LogSafe replaces zeros with 1 so a value can be drawn on a log axis.
func LogSafe(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		if x == 0 {
			x = 1
		}
		out[i] = x
	}
	return out
}
