package classes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantiles(t *testing.T) {
	values := []float64{5, 1, 4, 2, 3}

	bins, err := Quantiles(values, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4, 5}, bins)
}

func TestQuantiles_Interpolates(t *testing.T) {
	bins, err := Quantiles([]float64{10, 20, 30, 40}, 2)
	require.NoError(t, err)
	require.Len(t, bins, 2)
	assert.InDelta(t, 25.0, bins[0], 1e-9)
	assert.InDelta(t, 40.0, bins[1], 1e-9)
}

func TestQuantiles_CollapsesDuplicates(t *testing.T) {
	bins, err := Quantiles([]float64{7, 7, 7, 7}, 8)
	require.NoError(t, err)
	assert.Equal(t, []float64{7}, bins)
}

func TestQuantiles_DropsNaN(t *testing.T) {
	bins, err := Quantiles([]float64{math.NaN(), 1, 3, math.Inf(1)}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, bins)
}

func TestQuantiles_Errors(t *testing.T) {
	_, err := Quantiles([]float64{1, 2}, 0)
	assert.Error(t, err)

	_, err = Quantiles(nil, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no finite values")
}

func TestEqualInterval(t *testing.T) {
	bins, err := EqualInterval([]float64{0, 3, 10, 7}, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6, 8, 10}, bins)
}

func TestPad(t *testing.T) {
	assert.Equal(t, []float64{0, 2, 4, 1000}, Pad([]float64{2, 4}, 0, 1000))
	assert.Equal(t, []float64{0, 1000}, Pad(nil, 0, 1000))
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		scheme   Scheme
		expected []float64
	}{
		{name: "quantiles", scheme: SchemeQuantiles, expected: []float64{0, 2, 3, 4, 5, 1000}},
		{name: "default scheme", scheme: "", expected: []float64{0, 2, 3, 4, 5, 1000}},
		{name: "equal interval", scheme: SchemeEqualInterval, expected: []float64{0, 2, 3, 4, 5, 1000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.scheme, []float64{1, 2, 3, 4, 5}, 4, 0, 1000)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCompute_UnknownScheme(t *testing.T) {
	_, err := Compute("jenks", []float64{1}, 3, 0, 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scheme")
}
