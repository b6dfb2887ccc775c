// Package classes computes class boundaries for choropleth maps.
package classes

import (
	"math"
	"slices"

	"github.com/rotisserie/eris"
)

// Scheme names a classification method.
type Scheme string

// Supported schemes.
const (
	SchemeQuantiles     Scheme = "quantiles"
	SchemeEqualInterval Scheme = "equal_interval"
)

// Quantiles returns the upper bounds of k quantile classes: the i/k
// percentiles for i = 1..k, linearly interpolated between order statistics.
// Duplicate bounds collapse, so fewer than k bins can come back.
func Quantiles(values []float64, k int) ([]float64, error) {
	sorted, err := prepare(values, k)
	if err != nil {
		return nil, err
	}

	bins := make([]float64, 0, k)
	for i := 1; i <= k; i++ {
		bins = append(bins, percentile(sorted, float64(i)/float64(k)))
	}
	return slices.Compact(bins), nil
}

// EqualInterval returns the upper bounds of k classes of equal width
// spanning [min, max]. The last bound is max exactly.
func EqualInterval(values []float64, k int) ([]float64, error) {
	sorted, err := prepare(values, k)
	if err != nil {
		return nil, err
	}

	lo, hi := sorted[0], sorted[len(sorted)-1]
	width := (hi - lo) / float64(k)
	bins := make([]float64, 0, k)
	for i := 1; i < k; i++ {
		bins = append(bins, lo+float64(i)*width)
	}
	bins = append(bins, hi)
	return slices.Compact(bins), nil
}

// Pad wraps bins with an outer lower and upper boundary, producing the
// full boundary list a style context expects.
func Pad(bins []float64, lower, upper float64) []float64 {
	out := make([]float64, 0, len(bins)+2)
	out = append(out, lower)
	out = append(out, bins...)
	return append(out, upper)
}

// Compute runs scheme over values and pads the result.
func Compute(scheme Scheme, values []float64, k int, lower, upper float64) ([]float64, error) {
	var (
		bins []float64
		err  error
	)
	switch scheme {
	case SchemeQuantiles, "":
		bins, err = Quantiles(values, k)
	case SchemeEqualInterval:
		bins, err = EqualInterval(values, k)
	default:
		return nil, eris.Errorf("classes: unknown scheme %q", scheme)
	}
	if err != nil {
		return nil, err
	}
	return Pad(bins, lower, upper), nil
}

func prepare(values []float64, k int) ([]float64, error) {
	if k < 1 {
		return nil, eris.Errorf("classes: k must be positive, got %d", k)
	}
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return nil, eris.New("classes: no finite values")
	}
	slices.Sort(sorted)
	return sorted, nil
}

// percentile interpolates linearly at rank q*(n-1) of a sorted slice.
func percentile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
