// Package zones loads transport-zone polygons and joins per-zone values
// onto their properties.
package zones

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// DefaultIDProp is the property holding the zone identifier.
const DefaultIDProp = "transport_zone_id"

// Options controls how zone files are read.
type Options struct {
	// Charset of shapefile DBF attributes, as an HTML encoding label.
	// Empty means UTF-8.
	Charset string
}

// Collection is a set of zone features.
type Collection struct {
	*geojson.FeatureCollection
}

// New wraps features in a Collection.
func New(features ...*geojson.Feature) *Collection {
	return &Collection{FeatureCollection: &geojson.FeatureCollection{Features: features}}
}

// LoadFile reads a zone file, choosing the decoder by extension.
func LoadFile(path string, opts Options) (*Collection, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return ReadShapefile(path, opts)
	case ".geojson", ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "zones: open %s", path)
		}
		defer func() { _ = f.Close() }()
		return ReadGeoJSON(f)
	default:
		return nil, eris.Errorf("zones: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadGeoJSON decodes a GeoJSON FeatureCollection.
func ReadGeoJSON(r io.Reader) (*Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "zones: read geojson")
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "zones: decode geojson")
	}
	for _, f := range fc.Features {
		if f.Properties == nil {
			f.Properties = make(map[string]any)
		}
	}
	return &Collection{FeatureCollection: &fc}, nil
}

// WriteGeoJSON encodes the collection as a GeoJSON FeatureCollection.
func (c *Collection) WriteGeoJSON(w io.Writer) error {
	data, err := json.Marshal(c.FeatureCollection)
	if err != nil {
		return eris.Wrap(err, "zones: encode geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "zones: write geojson")
	}
	return nil
}

// Len returns the number of features.
func (c *Collection) Len() int {
	return len(c.Features)
}

// Bounds returns the bounding box of every feature geometry, or nil when
// the collection has no geometry.
func (c *Collection) Bounds() *geom.Bounds {
	var b *geom.Bounds
	for _, f := range c.Features {
		if f.Geometry == nil {
			continue
		}
		if b == nil {
			b = geom.NewBounds(geom.XY)
		}
		b.Extend(f.Geometry)
	}
	return b
}

// ZoneID returns the feature's id property as a join key. Numeric ids are
// formatted without a trailing fraction so 42.0 and "42" match.
func ZoneID(f *geojson.Feature, idProp string) (string, bool) {
	switch v := f.Properties[idProp].(type) {
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

// Join copies values onto each feature under valueProp, keyed by the
// feature's idProp. Features without a match get a null value. Returns
// the number of matched features.
func (c *Collection) Join(values map[string]float64, idProp, valueProp string) int {
	matched := 0
	for _, f := range c.Features {
		if f.Properties == nil {
			f.Properties = make(map[string]any)
		}
		id, ok := ZoneID(f, idProp)
		if !ok {
			f.Properties[valueProp] = nil
			continue
		}
		v, ok := values[id]
		if !ok {
			f.Properties[valueProp] = nil
			continue
		}
		f.Properties[valueProp] = v
		matched++
	}

	zap.L().Debug("zones: joined values",
		zap.String("prop", valueProp),
		zap.Int("features", len(c.Features)),
		zap.Int("matched", matched),
	)
	return matched
}

// Values returns the non-null float values of prop across all features.
func (c *Collection) Values(prop string) []float64 {
	out := make([]float64, 0, len(c.Features))
	for _, f := range c.Features {
		if v, ok := f.Properties[prop].(float64); ok {
			out = append(out, v)
		}
	}
	return out
}
