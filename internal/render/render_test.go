package render

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/zonemap/internal/style"
	"github.com/sells-group/zonemap/internal/zones"
)

func testZones(n int) *zones.Collection {
	c := zones.New()
	for i := 1; i <= n; i++ {
		x := float64(i)
		c.Features = append(c.Features, &geojson.Feature{
			Geometry: geom.NewPolygonFlat(geom.XY, []float64{x, 0, x, 1, x + 1, 1, x + 1, 0, x, 0}, []int{10}),
			Properties: map[string]any{
				zones.DefaultIDProp: float64(i),
				"name":              fmt.Sprintf("zone %d", i),
			},
		})
	}
	return c
}

func newTestRenderer(t *testing.T, mutate func(*Options)) *Renderer {
	t.Helper()
	reg, err := style.NewRegistry(style.DefaultFuncs())
	require.NoError(t, err)
	opts := DefaultOptions()
	opts.Concurrency = 4
	if mutate != nil {
		mutate(&opts)
	}
	r, err := NewRenderer(reg, opts)
	require.NoError(t, err)
	return r
}

func featureStyle(t *testing.T, f *geojson.Feature) *style.Descriptor {
	t.Helper()
	d, ok := f.Properties[StyleProp].(*style.Descriptor)
	require.True(t, ok, "feature has no style")
	return d
}

func TestRender_StylesEveryZone(t *testing.T) {
	r := newTestRenderer(t, func(o *Options) { o.K = 4 })
	zc := testZones(5)
	costs := map[string]float64{"1": 5, "2": 10, "3": 20, "4": 40}

	layer, err := r.Render(context.Background(), zc, costs)
	require.NoError(t, err)
	require.True(t, layer.Styled)

	assert.Equal(t, []float64{0, 8.75, 15, 25, 40, 1000}, layer.Classes)
	require.Len(t, layer.Colorscale, 5)
	assert.Equal(t, "#fcfdbf", layer.Colorscale[0])
	assert.Equal(t, "#000004", layer.Colorscale[4])

	assert.Equal(t, layer.Colorscale[0], featureStyle(t, zc.Features[0]).FillColor)
	assert.Equal(t, layer.Colorscale[1], featureStyle(t, zc.Features[1]).FillColor)
	assert.Equal(t, layer.Colorscale[2], featureStyle(t, zc.Features[2]).FillColor)
	assert.Equal(t, layer.Colorscale[3], featureStyle(t, zc.Features[3]).FillColor)

	unmatched := featureStyle(t, zc.Features[4])
	assert.Equal(t, style.DefaultColor, unmatched.FillColor)
	assert.Nil(t, zc.Features[4].Properties["time"])
}

func TestRender_KeepsBaseStyle(t *testing.T) {
	r := newTestRenderer(t, nil)
	zc := testZones(2)

	_, err := r.Render(context.Background(), zc, map[string]float64{"1": 3})
	require.NoError(t, err)

	d := featureStyle(t, zc.Features[0])
	assert.Equal(t, "white", *d.Color)
	assert.Equal(t, 2.0, *d.Weight)
	assert.Equal(t, 1.0, *d.Opacity)
	assert.Equal(t, 0.7, *d.FillOpacity)

	assert.NotSame(t, featureStyle(t, zc.Features[0]), featureStyle(t, zc.Features[1]))
	assert.Equal(t, "", r.base.FillColor)
}

func TestRender_ZeroTimeIsDefault(t *testing.T) {
	r := newTestRenderer(t, nil)
	zc := testZones(3)

	_, err := r.Render(context.Background(), zc, map[string]float64{"1": 0, "2": 10, "3": 20})
	require.NoError(t, err)

	assert.Equal(t, style.DefaultColor, featureStyle(t, zc.Features[0]).FillColor)
	assert.NotEqual(t, style.DefaultColor, featureStyle(t, zc.Features[1]).FillColor)
}

func TestRender_WithoutCosts(t *testing.T) {
	r := newTestRenderer(t, nil)
	zc := testZones(2)

	layer, err := r.Render(context.Background(), zc, nil)
	require.NoError(t, err)
	assert.False(t, layer.Styled)
	assert.Nil(t, layer.Legend)
	require.NotNil(t, layer.Bounds)
	assert.Equal(t, 1.0, layer.Bounds.Min(0))
	assert.Equal(t, 3.0, layer.Bounds.Max(0))
	_, ok := zc.Features[0].Properties[StyleProp]
	assert.False(t, ok)
}

func TestRender_NoMatches(t *testing.T) {
	r := newTestRenderer(t, nil)
	zc := testZones(3)

	layer, err := r.Render(context.Background(), zc, map[string]float64{"99": 5})
	require.NoError(t, err)
	assert.True(t, layer.Styled)
	assert.Empty(t, layer.Legend.Entries)
	for _, f := range zc.Features {
		assert.Equal(t, style.DefaultColor, featureStyle(t, f).FillColor)
	}
}

func TestRender_CancelledContext(t *testing.T) {
	r := newTestRenderer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, testZones(10), map[string]float64{"1": 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "style zones")
}

func TestRender_UnknownPalette(t *testing.T) {
	r := newTestRenderer(t, func(o *Options) { o.Palette = "jet" })
	_, err := r.Render(context.Background(), testZones(2), map[string]float64{"1": 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample palette")
}

func TestRender_CustomFunc(t *testing.T) {
	reg, err := style.NewRegistry(map[string]style.Func{
		"flat": func(_ style.Feature, ctx *style.Context) *style.Descriptor {
			ctx.Style.FillColor = "blue"
			return ctx.Style
		},
	})
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Func = "flat"
	r, err := NewRenderer(reg, opts)
	require.NoError(t, err)

	zc := testZones(2)
	_, err = r.Render(context.Background(), zc, map[string]float64{"1": 3})
	require.NoError(t, err)
	assert.Equal(t, "blue", featureStyle(t, zc.Features[1]).FillColor)
}

func TestNewRenderer_Errors(t *testing.T) {
	reg, err := style.NewRegistry(style.DefaultFuncs())
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.ColorProp = ""
	_, err = NewRenderer(reg, opts)
	assert.Error(t, err)

	opts = DefaultOptions()
	opts.Func = "missing"
	_, err = NewRenderer(reg, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve style function")
}

func TestNewRenderer_FillsDefaults(t *testing.T) {
	reg, err := style.NewRegistry(style.DefaultFuncs())
	require.NoError(t, err)

	r, err := NewRenderer(reg, Options{ColorProp: "time", Palette: "magma", K: 3})
	require.NoError(t, err)
	assert.Equal(t, zones.DefaultIDProp, r.Options().IDProp)
	assert.Equal(t, style.FuncChoropleth, r.Options().Func)
	assert.Positive(t, r.Options().Concurrency)
}
