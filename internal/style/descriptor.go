package style

import (
	"encoding/json"
	"maps"

	"github.com/rotisserie/eris"
)

// Descriptor holds Leaflet path options for one feature. Classify only
// writes FillColor; every other field is passed through untouched.
//
// Pass-through options are pointers: nil means unset and is left out of
// the JSON, so an explicit zero such as opacity 0 survives a round trip.
type Descriptor struct {
	FillColor   string
	Color       *string
	Weight      *float64
	Opacity     *float64
	FillOpacity *float64
	Extra       map[string]any
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

// Clone returns a deep copy so concurrent callers each own their target.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return &Descriptor{}
	}
	return &Descriptor{
		FillColor:   d.FillColor,
		Color:       clonePtr(d.Color),
		Weight:      clonePtr(d.Weight),
		Opacity:     clonePtr(d.Opacity),
		FillOpacity: clonePtr(d.FillOpacity),
		Extra:       maps.Clone(d.Extra),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Map flattens the descriptor into Leaflet option keys. Set fields win
// over Extra entries with the same key.
func (d *Descriptor) Map() map[string]any {
	m := make(map[string]any, len(d.Extra)+5)
	maps.Copy(m, d.Extra)
	if d.FillColor != "" {
		m["fillColor"] = d.FillColor
	}
	if d.Color != nil {
		m["color"] = *d.Color
	}
	if d.Weight != nil {
		m["weight"] = *d.Weight
	}
	if d.Opacity != nil {
		m["opacity"] = *d.Opacity
	}
	if d.FillOpacity != nil {
		m["fillOpacity"] = *d.FillOpacity
	}
	return m
}

// MarshalJSON implements json.Marshaler.
func (d *Descriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Map())
}

// UnmarshalJSON implements json.Unmarshaler. Unknown keys, and known keys
// whose value has an unexpected type, land in Extra unchanged.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return eris.Wrap(err, "style: decode descriptor")
	}

	*d = Descriptor{}
	for k, v := range m {
		var ok bool
		switch k {
		case "fillColor":
			d.FillColor, ok = v.(string)
		case "color":
			var s string
			if s, ok = v.(string); ok {
				d.Color = &s
			}
		case "weight":
			d.Weight, ok = floatPtr(v)
		case "opacity":
			d.Opacity, ok = floatPtr(v)
		case "fillOpacity":
			d.FillOpacity, ok = floatPtr(v)
		}
		if !ok {
			if d.Extra == nil {
				d.Extra = make(map[string]any)
			}
			d.Extra[k] = v
		}
	}
	return nil
}

func floatPtr(v any) (*float64, bool) {
	f, ok := v.(float64)
	if !ok {
		return nil, false
	}
	return &f, true
}
