package feature

import "math"

// Series helpers shared by the indicator groups. Undefined values are NaN;
// every rolling helper propagates NaN through incomplete windows so the
// engine can trim the warm-up prefix in one pass at the end.

const divisionEpsilon = 1e-10

// leadingNaN counts the undefined prefix of a series.
func leadingNaN(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}

	return len(values)
}

// shift delays a series by n rows, leaving NaN in the vacated prefix.
func shift(values []float64, n int) []float64 {
	out := make([]float64, len(values))

	for i := range out {
		if i < n {
			out[i] = math.NaN()
			continue
		}

		out[i] = values[i-n]
	}

	return out
}

// diff is the first difference, values[i] - values[i-1].
func diff(values []float64) []float64 {
	out := make([]float64, len(values))

	for i := range out {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}

		out[i] = values[i] - values[i-1]
	}

	return out
}

// pctChange is the n-step relative change. A zero base yields zero rather
// than an infinity.
func pctChange(values []float64, n int) []float64 {
	out := make([]float64, len(values))

	for i := range out {
		if i < n {
			out[i] = math.NaN()
			continue
		}

		base := values[i-n]
		if math.Abs(base) < divisionEpsilon {
			out[i] = 0
			continue
		}

		out[i] = (values[i] - base) / base
	}

	return out
}

// logReturns is ln(v[i] / v[i-1]), with non-positive ratios clamped to zero.
func logReturns(values []float64) []float64 {
	out := make([]float64, len(values))

	for i := range out {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}

		prev := values[i-1]
		if prev < divisionEpsilon || values[i] < divisionEpsilon {
			out[i] = 0
			continue
		}

		out[i] = math.Log(values[i] / prev)
	}

	return out
}

// sma is the simple rolling mean. Windows that are incomplete or contain NaN
// are NaN.
func sma(values []float64, window int) []float64 {
	return rollingApply(values, window, func(win []float64) float64 {
		sum := 0.0
		for _, v := range win {
			sum += v
		}

		return sum / float64(len(win))
	})
}

// rollingStd is the rolling sample standard deviation (n-1 denominator).
func rollingStd(values []float64, window int) []float64 {
	return rollingApply(values, window, func(win []float64) float64 {
		if len(win) < 2 {
			return 0
		}

		mean := 0.0
		for _, v := range win {
			mean += v
		}

		mean /= float64(len(win))

		variance := 0.0
		for _, v := range win {
			d := v - mean
			variance += d * d
		}

		return math.Sqrt(variance / float64(len(win)-1))
	})
}

// rollingStdPop is the rolling population standard deviation (n denominator),
// the convention Bollinger Bands use.
func rollingStdPop(values []float64, window int) []float64 {
	return rollingApply(values, window, func(win []float64) float64 {
		mean := 0.0
		for _, v := range win {
			mean += v
		}

		mean /= float64(len(win))

		variance := 0.0
		for _, v := range win {
			d := v - mean
			variance += d * d
		}

		return math.Sqrt(variance / float64(len(win)))
	})
}

// rollingMax is the rolling window maximum.
func rollingMax(values []float64, window int) []float64 {
	return rollingApply(values, window, func(win []float64) float64 {
		best := win[0]
		for _, v := range win[1:] {
			if v > best {
				best = v
			}
		}

		return best
	})
}

// rollingMin is the rolling window minimum.
func rollingMin(values []float64, window int) []float64 {
	return rollingApply(values, window, func(win []float64) float64 {
		best := win[0]
		for _, v := range win[1:] {
			if v < best {
				best = v
			}
		}

		return best
	})
}

func rollingApply(values []float64, window int, fn func([]float64) float64) []float64 {
	out := make([]float64, len(values))

	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}

		win := values[i-window+1 : i+1]

		defined := true

		for _, v := range win {
			if math.IsNaN(v) {
				defined = false
				break
			}
		}

		if !defined {
			out[i] = math.NaN()
			continue
		}

		out[i] = fn(win)
	}

	return out
}

// ema is the exponentially weighted mean with smoothing 2/(span+1), seeded
// from the first defined value and defined from that row onward.
func ema(values []float64, span int) []float64 {
	return ewmMean(values, 2.0/(float64(span)+1.0), 1)
}

// emaMasked is ema but undefined until minPeriods observations have been
// folded in, matching indicator conventions that hide the unstable prefix.
func emaMasked(values []float64, span, minPeriods int) []float64 {
	return ewmMean(values, 2.0/(float64(span)+1.0), minPeriods)
}

// wilderSmooth is the exponentially weighted mean with alpha 1/window,
// undefined until a full window of observations has been folded in.
func wilderSmooth(values []float64, window int) []float64 {
	return ewmMean(values, 1.0/float64(window), window)
}

// ewmMean runs the recursive weighted mean m = alpha*v + (1-alpha)*m over the
// defined suffix of the series. Output rows before the minPeriods-th defined
// observation are NaN; the recursion itself always starts at the first one.
func ewmMean(values []float64, alpha float64, minPeriods int) []float64 {
	out := make([]float64, len(values))

	seen := 0

	var prev float64

	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}

		if seen == 0 {
			prev = v
		} else {
			prev = alpha*v + (1-alpha)*prev
		}

		seen++

		if seen < minPeriods {
			out[i] = math.NaN()
			continue
		}

		out[i] = prev
	}

	return out
}
