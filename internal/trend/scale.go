package trend

import "math"

// NiceMaximum rounds a positive data maximum up to one significant digit:
// 172 -> 200, 3728 -> 4000, 0.07 -> 0.1, 5.6 -> 6. Non-positive and
// non-finite input yields 1.
func NiceMaximum(maxValue float64) float64 {
	if !(maxValue > 0) || math.IsInf(maxValue, 0) {
		return 1
	}
	e := math.Log10(maxValue)
	var exp int
	if e > 0 {
		exp = int(math.Floor(e))
	} else {
		exp = int(math.Ceil(e))
	}
	scale := math.Pow10(exp)
	return math.Ceil(maxValue/scale) * scale
}

// NiceMaximumTight is NiceMaximum followed by stepping down in tenths of the
// rounded value while the result stays above maxValue: 172 -> 180.
func NiceMaximumTight(maxValue float64) float64 {
	nice := NiceMaximum(maxValue)
	if !(maxValue > 0) || math.IsInf(maxValue, 0) {
		return nice
	}
	step := nice / 10
	for nice-step > maxValue {
		nice -= step
	}
	return nice
}

// LogMaximum rounds up to the next power of ten for a logarithmic axis.
func LogMaximum(maxValue float64) float64 {
	if !(maxValue > 0) || math.IsInf(maxValue, 0) {
		return 1
	}
	return math.Pow10(int(math.Ceil(math.Log10(maxValue))))
}

// Maximum is the largest finite value across all series, or 0 if there is
// none.
func Maximum(series [][]float64) float64 {
	best, found := 0.0, false
	for _, s := range series {
		for _, x := range s {
			if isFinite(x) && (!found || x > best) {
				best, found = x, true
			}
		}
	}
	return best
}

// StackedMaximum is the largest day-wise sum across series, for charts that
// draw regions on top of each other. Series are summed index by index and
// non-finite values count as 0.
func StackedMaximum(series [][]float64) float64 {
	var sums []float64
	for _, s := range series {
		for i, x := range s {
			if i >= len(sums) {
				sums = append(sums, 0)
			}
			if isFinite(x) {
				sums[i] += x
			}
		}
	}
	return Maximum([][]float64{sums})
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
