// Package render turns transport zones and travel costs into a styled
// choropleth layer.
package render

import (
	"context"
	"runtime"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/zonemap/internal/classes"
	"github.com/sells-group/zonemap/internal/palette"
	"github.com/sells-group/zonemap/internal/style"
	"github.com/sells-group/zonemap/internal/zones"
)

// StyleProp is the feature property that receives the computed style.
const StyleProp = "style"

// Options configures a Renderer.
type Options struct {
	ColorProp   string         `yaml:"color_prop" mapstructure:"color_prop"`
	IDProp      string         `yaml:"id_prop" mapstructure:"id_prop"`
	Scheme      classes.Scheme `yaml:"scheme" mapstructure:"scheme"`
	K           int            `yaml:"k" mapstructure:"k"`
	Lower       float64        `yaml:"lower" mapstructure:"lower"`
	Upper       float64        `yaml:"upper" mapstructure:"upper"`
	Palette     string         `yaml:"palette" mapstructure:"palette"`
	Reverse     bool           `yaml:"reverse" mapstructure:"reverse"`
	Func        string         `yaml:"func" mapstructure:"func"`
	Concurrency int            `yaml:"concurrency" mapstructure:"concurrency"`
}

// DefaultOptions styles travel time in eight quantile classes between 0 and
// 1000 minutes on a reversed magma scale.
func DefaultOptions() Options {
	return Options{
		ColorProp:   "time",
		IDProp:      zones.DefaultIDProp,
		Scheme:      classes.SchemeQuantiles,
		K:           8,
		Lower:       0,
		Upper:       1000,
		Palette:     "magma",
		Reverse:     true,
		Func:        style.FuncChoropleth,
		Concurrency: runtime.NumCPU(),
	}
}

// BaseStyle is the style every zone starts from.
func BaseStyle() *style.Descriptor {
	return &style.Descriptor{
		Color:       style.String("white"),
		Weight:      style.Float(2),
		Opacity:     style.Float(1),
		FillOpacity: style.Float(0.7),
	}
}

// Layer is a rendered zone collection with the classification used.
type Layer struct {
	Zones      *zones.Collection
	Classes    []float64
	Colorscale []string
	Legend     *Legend
	Bounds     *geom.Bounds
	Styled     bool
}

// Renderer styles zone collections. It is safe for concurrent use.
type Renderer struct {
	opts Options
	fn   style.Func
	base *style.Descriptor
}

// NewRenderer resolves the style function from reg.
func NewRenderer(reg *style.Registry, opts Options) (*Renderer, error) {
	if opts.ColorProp == "" {
		return nil, eris.New("render: color property is required")
	}
	if opts.IDProp == "" {
		opts.IDProp = zones.DefaultIDProp
	}
	if opts.Func == "" {
		opts.Func = style.FuncChoropleth
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	fn, err := reg.Lookup(opts.Func)
	if err != nil {
		return nil, eris.Wrap(err, "render: resolve style function")
	}
	return &Renderer{opts: opts, fn: fn, base: BaseStyle()}, nil
}

// Options returns the renderer's effective options.
func (r *Renderer) Options() Options {
	return r.opts
}

// Render joins costs onto zc and styles every zone. A nil costs map leaves
// the zones unstyled. zc is modified in place.
func (r *Renderer) Render(ctx context.Context, zc *zones.Collection, costs map[string]float64) (*Layer, error) {
	layer := &Layer{Zones: zc, Bounds: zc.Bounds()}
	if costs == nil {
		return layer, nil
	}

	log := zap.L().With(zap.String("component", "render"))
	start := time.Now()

	matched := zc.Join(costs, r.opts.IDProp, r.opts.ColorProp)
	values := zc.Values(r.opts.ColorProp)

	var (
		bounds []float64
		colors []string
	)
	if len(values) > 0 {
		var err error
		bounds, err = classes.Compute(r.opts.Scheme, values, r.opts.K, r.opts.Lower, r.opts.Upper)
		if err != nil {
			return nil, eris.Wrap(err, "render: compute classes")
		}
		colors, err = palette.Sample(r.opts.Palette, len(bounds)-1)
		if err != nil {
			return nil, eris.Wrap(err, "render: sample palette")
		}
		if r.opts.Reverse {
			colors = palette.Reverse(colors)
		}
	} else {
		log.Warn("no zone matched the travel costs, every zone gets the default color",
			zap.Int("zones", zc.Len()))
	}

	sctx, err := style.NewContext(bounds, colors, r.opts.ColorProp, nil)
	if err != nil {
		return nil, eris.Wrap(err, "render: build style context")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for _, f := range zc.Features {
		f := f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fctx := *sctx
			fctx.Style = r.base.Clone()
			f.Properties[StyleProp] = r.fn(style.Feature{Properties: f.Properties}, &fctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "render: style zones")
	}

	layer.Classes = bounds
	layer.Colorscale = colors
	layer.Legend = NewLegend(r.opts.ColorProp, bounds, colors)
	layer.Styled = true

	log.Debug("rendered layer",
		zap.Int("zones", zc.Len()),
		zap.Int("matched", matched),
		zap.Int("classes", len(colors)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return layer, nil
}
