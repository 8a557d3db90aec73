// Package algo has the numeric building blocks of reposcout: statistics,
// normalization, ranking and diversity balancing.
package algo

import (
	"math"
	"slices"
)

// Clamp01 limits v to [0,1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v > 0 {
		return v
	}
	return 0
}

// Sigmoid is the logistic function, mapping any real onto (0,1).
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Mean returns the arithmetic mean, or 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdDev returns the sample standard deviation (n-1 denominator).
// Fewer than two values give 0.
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// CoefficientOfVariation returns stddev / |mean|, or 0 when the mean is 0.
func CoefficientOfVariation(values []float64) float64 {
	mean := Mean(values)
	if mean == 0 {
		return 0
	}
	return SampleStdDev(values) / math.Abs(mean)
}

// Quantile returns the q-th quantile (0 <= q <= 1) using linear interpolation
// between closest ranks. The input does not need to be sorted.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return quantileSorted(sorted, q)
}

func quantileSorted(sorted []float64, q float64) float64 {
	q = Clamp01(q)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Median returns the 0.5 quantile.
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// IQR returns the interquartile range q3 - q1.
func IQR(values []float64) float64 {
	return Quantile(values, 0.75) - Quantile(values, 0.25)
}

// Outliers returns the indices of values outside [q1 - k*IQR, q3 + k*IQR].
func Outliers(values []float64, k float64) []int {
	if len(values) < 4 {
		return nil
	}
	q1 := Quantile(values, 0.25)
	q3 := Quantile(values, 0.75)
	spread := q3 - q1
	lo, hi := q1-k*spread, q3+k*spread

	var out []int
	for i, v := range values {
		if v < lo || v > hi {
			out = append(out, i)
		}
	}
	return out
}

// LinearRegression fits y = slope*x + intercept by least squares and returns the
// coefficient of determination. Degenerate inputs give a flat line through the mean.
func LinearRegression(xs, ys []float64) (slope, intercept, rSquared float64) {
	n := min(len(xs), len(ys))
	if n == 0 {
		return 0, 0, 0
	}
	mx, my := Mean(xs[:n]), Mean(ys[:n])

	var sxy, sxx, syy float64
	for i := range n {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 {
		return 0, my, 0
	}
	slope = sxy / sxx
	intercept = my - slope*mx
	if syy == 0 {
		return slope, intercept, 1
	}
	rSquared = (sxy * sxy) / (sxx * syy)
	return slope, intercept, Clamp01(rSquared)
}
