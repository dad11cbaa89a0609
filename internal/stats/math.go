package stats

import "slices"

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Percentile returns the q-quantile (0 <= q <= 1) of values using the
// nearest-rank method. The input is not modified.
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}

	// Work on a copy to avoid mutating the original
	temp := make([]float64, len(values))
	copy(temp, values)
	slices.Sort(temp)

	index := int(float64(len(temp)) * q)
	if index >= len(temp) {
		index = len(temp) - 1
	}
	if index < 0 {
		index = 0
	}
	return temp[index]
}

// Clamp01 clips v to the unit interval.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
