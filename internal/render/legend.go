package render

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/zonemap/internal/style"
)

// LegendEntry describes one class: values in (Lower, Upper] get Color.
type LegendEntry struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
	Color string  `json:"color" yaml:"color"`
}

// Legend lists the classes of a rendered layer.
type Legend struct {
	Property string        `json:"property" yaml:"property"`
	Default  string        `json:"default" yaml:"default"`
	Entries  []LegendEntry `json:"entries" yaml:"entries"`
}

// NewLegend pairs each class interval with its color.
func NewLegend(prop string, bounds []float64, colors []string) *Legend {
	l := &Legend{Property: prop, Default: style.DefaultColor}
	for i := 0; i+1 < len(bounds) && i < len(colors); i++ {
		l.Entries = append(l.Entries, LegendEntry{Lower: bounds[i], Upper: bounds[i+1], Color: colors[i]})
	}
	return l
}

// Write encodes the legend as "json" or "yaml".
func (l *Legend) Write(w io.Writer, format string) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(l), "render: encode legend json")
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(l); err != nil {
			return eris.Wrap(err, "render: encode legend yaml")
		}
		return eris.Wrap(enc.Close(), "render: flush legend yaml")
	default:
		return eris.Errorf("render: unknown legend format %q", format)
	}
}
