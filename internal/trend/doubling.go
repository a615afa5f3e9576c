package trend

import "math"

// Doubling annotates the day on which a cumulative series reached a value
// Multiplier times smaller than the next annotated value, TimeToDouble days
// earlier.
type Doubling struct {
	Value        float64
	Multiplier   int
	TimeToDouble float64
}

// Doublings estimates doubling times by walking backward from the latest
// value, halving a target each time the series drops below it and
// interpolating the crossing linearly within the day. The result maps a day
// index (the rounded crossing) to the annotation describing how long the
// following doubling took. The latest day is always the first candidate.
// Series whose latest value is not positive, or that never halved, yield an
// empty map.
//
// A day counts as below the target only when strictly less than it, so a day
// sitting exactly on half the target does not end the walk. On a series that
// doubles every day the earliest doubling is therefore not annotated.
func Doublings(v []float64) map[int]Doubling {
	out := make(map[int]Doubling)
	n := len(v)
	if n == 0 || !(v[n-1] > 0) || math.IsInf(v[n-1], 0) {
		return out
	}

	type mark struct {
		day int
		pos float64
	}
	last := mark{day: n - 1, pos: float64(n - 1)}
	out[last.day] = Doubling{Value: v[n-1], Multiplier: 2}
	half := v[n-1] / 2

	for i := n - 2; i >= 0; i-- {
		multiplier := 2
		for v[i] > 0 && v[i] < half {
			frac := 1.0
			if den := v[i+1] - v[i]; den > 0 {
				if f := (half - v[i]) / den; f <= 1 {
					frac = f
				}
			}
			pos := float64(i) + frac

			day := int(math.Round(pos))
			out[day] = Doubling{Value: half, Multiplier: 2}

			prev := out[last.day]
			prev.Multiplier = multiplier
			prev.TimeToDouble = last.pos - pos
			out[last.day] = prev
			last = mark{day: day, pos: pos}

			multiplier *= 2
			half /= 2
		}
	}

	for day, d := range out {
		if d.TimeToDouble == 0 {
			delete(out, day)
		}
	}
	return out
}
