// Package style assigns display colors to map features by bucketing one
// numeric property against ordered class boundaries.
package style

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultColor is the fill color used when no class applies.
const DefaultColor = "gray"

// Sentinel errors returned by NewContext.
var (
	ErrColorscaleLength = eris.New("style: colorscale length must be len(classes)-1")
	ErrEmptyColorProp   = eris.New("style: color property is required")
)

// Feature is the property bag of a single map feature.
type Feature struct {
	Properties map[string]any
}

// Context carries everything Classify needs for one rendering pass.
// Build it with NewContext to get the colorscale length check; a literal
// Context is accepted as-is.
type Context struct {
	Classes    []float64
	Colorscale []string
	Style      *Descriptor
	ColorProp  string
}

// NewContext validates and builds a classification context. Class
// boundaries are expected ascending but are not checked.
func NewContext(classes []float64, colorscale []string, colorProp string, base *Descriptor) (*Context, error) {
	if colorProp == "" {
		return nil, ErrEmptyColorProp
	}
	if len(classes) >= 2 && len(colorscale) != len(classes)-1 {
		return nil, eris.Wrapf(ErrColorscaleLength, "got %d classes and %d colors", len(classes), len(colorscale))
	}
	return &Context{
		Classes:    classes,
		Colorscale: colorscale,
		Style:      base,
		ColorProp:  colorProp,
	}, nil
}

// Classify sets the fill color of ctx.Style from the feature's ColorProp
// value and returns that same descriptor.
//
// Buckets are half-open: bucket i holds values in (Classes[i], Classes[i+1]].
// The first matching bucket wins. A missing, null or non-numeric value, or
// one outside every bucket, gets DefaultColor. Blank strings count as 0 and
// booleans as 0 or 1. If the matched bucket has no
// entry in Colorscale the fill color is left empty.
func Classify(f Feature, ctx *Context) *Descriptor {
	if ctx == nil {
		ctx = &Context{}
	}
	s := ctx.Style
	if s == nil {
		s = &Descriptor{}
	}

	s.FillColor = DefaultColor

	value, ok := numeric(f.Properties[ctx.ColorProp])
	if !ok {
		return s
	}

	for i := 0; i < len(ctx.Classes)-1; i++ {
		if value > ctx.Classes[i] && value <= ctx.Classes[i+1] {
			s.FillColor = colorAt(ctx.Colorscale, i)
			break
		}
	}
	return s
}

func colorAt(colorscale []string, i int) string {
	if i < len(colorscale) {
		return colorscale[i]
	}
	return ""
}

// numeric converts a property value to float64 with loose numeric
// coercion: blank strings are 0 and booleans are 0 or 1. NaN is returned
// as-is and fails every comparison.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case *float64:
		if n == nil {
			return 0, false
		}
		return *n, true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return math.NaN(), true
		}
		return f, true
	case string:
		n = strings.TrimSpace(n)
		if n == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return math.NaN(), true
		}
		return f, true
	default:
		return 0, false
	}
}
