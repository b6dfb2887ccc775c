// Package palette samples named sequential colormaps into discrete
// colorscales.
package palette

import (
	"slices"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
)

// Gradient is an ordered list of evenly spaced color stops on [0, 1].
type Gradient []colorful.Color

// At returns the RGB blend between the stops around t.
func (g Gradient) At(t float64) colorful.Color {
	switch {
	case len(g) == 1 || t <= 0:
		return g[0]
	case t >= 1:
		return g[len(g)-1]
	}

	pos := t * float64(len(g)-1)
	i := int(pos)
	if i >= len(g)-1 {
		return g[len(g)-1]
	}
	return g[i].BlendRgb(g[i+1], pos-float64(i)).Clamped()
}

// Sample returns n colors evenly spaced from the start to the end of the
// gradient, as lowercase hex.
func (g Gradient) Sample(n int) []string {
	out := make([]string, n)
	if n == 1 {
		out[0] = g.At(0).Hex()
		return out
	}
	for i := range out {
		out[i] = g.At(float64(i) / float64(n-1)).Hex()
	}
	return out
}

var gradients = map[string]Gradient{
	"magma": mustGradient(
		"#000004", "#1c1044", "#4f127b", "#812581", "#b5367a",
		"#e55064", "#fb8761", "#fec287", "#fcfdbf",
	),
	"viridis": mustGradient(
		"#440154", "#482878", "#3e4989", "#31688e", "#26828e",
		"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
	),
	"blues": mustGradient(
		"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6",
		"#4292c6", "#2171b5", "#08519c", "#08306b",
	),
}

// Names lists the available colormaps.
func Names() []string {
	names := make([]string, 0, len(gradients))
	for name := range gradients {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Sample returns n colors from the named colormap.
func Sample(name string, n int) ([]string, error) {
	g, ok := gradients[name]
	if !ok {
		return nil, eris.Errorf("palette: unknown colormap %q", name)
	}
	if n < 1 {
		return nil, eris.Errorf("palette: need at least one color, got %d", n)
	}
	return g.Sample(n), nil
}

// Reverse returns a reversed copy of colors.
func Reverse(colors []string) []string {
	out := slices.Clone(colors)
	slices.Reverse(out)
	return out
}

func mustGradient(hexes ...string) Gradient {
	g := make(Gradient, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			panic("palette: bad stop " + h + ": " + err.Error())
		}
		g[i] = c
	}
	return g
}
